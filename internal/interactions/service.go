package interactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/adherence/intervention"
	"github.com/JaimeStill/adherence/pkg/lifecycle"
)

// Config bounds how long an untouched interaction is kept.
type Config struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

type service struct {
	machine  *intervention.Machine
	registry *Registry
	metrics  *metrics
	tracer   trace.Tracer
	interval time.Duration
	logger   *slog.Logger
}

// New creates an interaction system driving flows with machine.
func New(
	machine *intervention.Machine,
	cfg Config,
	meters metric.MeterProvider,
	tracers trace.TracerProvider,
	logger *slog.Logger,
) (System, error) {
	m, err := newMetrics(meters)
	if err != nil {
		return nil, fmt.Errorf("create interaction metrics: %w", err)
	}

	return &service{
		machine:  machine,
		registry: NewRegistry(cfg.IdleTimeout),
		metrics:  m,
		tracer:   tracers.Tracer(instrumentation),
		interval: cfg.SweepInterval,
		logger:   logger.With("system", "interactions"),
	}, nil
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger)
}

func (s *service) Start(lc *lifecycle.Coordinator) error {
	done := make(chan struct{})

	lc.OnStartup(func() {
		go func() {
			defer close(done)
			s.registry.Run(lc.Context(), s.interval, func(evicted []*intervention.Flow) {
				s.evict(lc.Context(), evicted)
			})
		}()
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-done
		s.logger.Info("interaction sweeper stopped", "abandoned", s.registry.Len())
	})

	return nil
}

func (s *service) evict(ctx context.Context, evicted []*intervention.Flow) {
	n := int64(len(evicted))
	s.metrics.evicted.Add(ctx, n)
	s.metrics.active.Add(ctx, -n)

	for _, flow := range evicted {
		attrs := []any{"step", flow.State.Step}
		if flow.Session != nil {
			attrs = append(attrs, "session_id", flow.Session.SessionID)
		}

		if flow.State.Step != intervention.StepFinalize || flow.Saved() {
			s.logger.Info("idle interaction evicted", attrs...)
			continue
		}

		// Finalized but never persisted: one last attempt before the
		// session is dropped.
		if err := s.machine.Save(ctx, flow); err != nil {
			s.metrics.saveFailures.Add(ctx, 1, metric.WithAttributes(attribute.Bool("evicted", true)))
			s.logger.Error(
				"unsaved session evicted",
				append(attrs,
					"patient_id", flow.Session.PatientID,
					"records", len(flow.Session.MedicationAdministration),
					"error", err,
				)...,
			)
			continue
		}
		s.logger.Warn("session saved on eviction", attrs...)
	}
}

func (s *service) Begin(ctx context.Context) (Interaction, error) {
	flow := s.machine.Start()
	id := s.registry.Add(flow)

	s.metrics.started.Add(ctx, 1)
	s.metrics.active.Add(ctx, 1)
	s.logger.Info("interaction started", "id", id)

	var v Interaction
	err := s.registry.Do(id, func(flow *intervention.Flow, created time.Time) error {
		v = view(id, flow, created)
		return nil
	})
	return v, err
}

func (s *service) Find(_ context.Context, id uuid.UUID) (Interaction, error) {
	var v Interaction
	err := s.registry.Do(id, func(flow *intervention.Flow, created time.Time) error {
		v = view(id, flow, created)
		return nil
	})
	return v, err
}

func (s *service) Respond(ctx context.Context, id uuid.UUID, in intervention.Input) (Response, error) {
	var resp Response

	err := s.registry.Do(id, func(flow *intervention.Flow, created time.Time) error {
		step := flow.State.Step

		ctx, span := s.tracer.Start(ctx, "interactions.respond", trace.WithAttributes(
			attribute.String("interaction.id", id.String()),
			attribute.String("interaction.step", string(step)),
		))
		defer span.End()

		turn, err := s.machine.Handle(ctx, flow, in)
		if err != nil && !errors.Is(err, intervention.ErrSaveFailed) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		s.metrics.responses.Add(ctx, 1, metric.WithAttributes(
			attribute.String("step", string(step)),
			attribute.Bool("accepted", turn.Accepted),
		))
		span.SetAttributes(attribute.Bool("interaction.accepted", turn.Accepted))

		resp = Response{
			Turn:        turn,
			Interaction: view(id, flow, created),
		}

		if turn.Outcome != nil && step != intervention.StepFinalize {
			s.metrics.finalized.Add(ctx, 1, metric.WithAttributes(
				attribute.Bool("nurse_contact_required", turn.Outcome.NurseContactRequired),
			))
		}

		if err != nil {
			s.metrics.saveFailures.Add(ctx, 1)
			span.RecordError(err)
			resp.SaveError = err.Error()
		}
		return nil
	})

	return resp, err
}

func (s *service) Save(ctx context.Context, id uuid.UUID) (Interaction, error) {
	var v Interaction

	err := s.registry.Do(id, func(flow *intervention.Flow, created time.Time) error {
		if err := s.machine.Save(ctx, flow); err != nil {
			if errors.Is(err, intervention.ErrSaveFailed) {
				s.metrics.saveFailures.Add(ctx, 1)
			}
			return err
		}
		v = view(id, flow, created)
		return nil
	})

	return v, err
}

func (s *service) Abandon(ctx context.Context, id uuid.UUID) error {
	if !s.registry.Remove(id) {
		return ErrNotFound
	}

	s.metrics.active.Add(ctx, -1)
	s.logger.Info("interaction abandoned", "id", id)
	return nil
}
