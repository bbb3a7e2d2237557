// Package telemetry assembles OpenTelemetry meter and tracer providers that
// export to stdout or a rotated file.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/JaimeStill/adherence/pkg/lifecycle"
)

// System exposes the meter and tracer providers of the process.
type System interface {
	MeterProvider() metric.MeterProvider
	TracerProvider() trace.TracerProvider
	// Start registers a shutdown hook that flushes and stops the providers.
	Start(lc *lifecycle.Coordinator) error
	// Shutdown flushes and stops the providers, then closes the output file.
	Shutdown(ctx context.Context) error
}

type otelSystem struct {
	meters  metric.MeterProvider
	tracers trace.TracerProvider
	closers []func(context.Context) error
	logger  *slog.Logger
}

// New builds the providers described by cfg. When telemetry is disabled, the
// providers are no-ops. Enabled providers are registered globally.
func New(ctx context.Context, cfg *Config, version string, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "telemetry")

	if !cfg.IsEnabled() {
		return &otelSystem{
			meters:  metricnoop.NewMeterProvider(),
			tracers: tracenoop.NewTracerProvider(),
			logger:  logger,
		}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	s := &otelSystem{logger: logger}

	w := s.writer(cfg.Output)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				metricExporter,
				sdkmetric.WithInterval(cfg.IntervalDuration()),
			),
		),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	s.meters = mp
	s.closers = append([]func(context.Context) error{mp.Shutdown}, s.closers...)

	if cfg.TracesEnabled() {
		traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		s.tracers = tp
		s.closers = append([]func(context.Context) error{tp.Shutdown}, s.closers...)
	} else {
		s.tracers = tracenoop.NewTracerProvider()
	}

	logger.Info("telemetry enabled", "output", cfg.Output, "interval", cfg.Interval, "traces", cfg.TracesEnabled())
	return s, nil
}

// writer returns stdout or a rotating file. The file closer runs after the
// providers flush.
func (s *otelSystem) writer(output string) io.Writer {
	if output == "stdout" {
		return os.Stdout
	}

	file := &lumberjack.Logger{
		Filename:   output,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	s.closers = append(s.closers, func(context.Context) error { return file.Close() })
	return file
}

func (s *otelSystem) MeterProvider() metric.MeterProvider {
	return s.meters
}

func (s *otelSystem) TracerProvider() trace.TracerProvider {
	return s.tracers
}

func (s *otelSystem) Start(lc *lifecycle.Coordinator) error {
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := s.Shutdown(context.Background()); err != nil {
			s.logger.Error("telemetry shutdown failed", "error", err)
			return
		}
		s.logger.Info("telemetry flushed")
	})
	return nil
}

func (s *otelSystem) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range s.closers {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
