package interactions

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const instrumentation = "github.com/JaimeStill/adherence/internal/interactions"

type metrics struct {
	started      metric.Int64Counter
	responses    metric.Int64Counter
	finalized    metric.Int64Counter
	saveFailures metric.Int64Counter
	evicted      metric.Int64Counter
	active       metric.Int64UpDownCounter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(instrumentation)

	var (
		m   metrics
		err error
	)

	if m.started, err = meter.Int64Counter(
		"interactions.started",
		metric.WithDescription("Interactions begun"),
	); err != nil {
		return nil, fmt.Errorf("interactions.started: %w", err)
	}

	if m.responses, err = meter.Int64Counter(
		"interactions.responses",
		metric.WithDescription("Answers handled, by step and acceptance"),
	); err != nil {
		return nil, fmt.Errorf("interactions.responses: %w", err)
	}

	if m.finalized, err = meter.Int64Counter(
		"interactions.finalized",
		metric.WithDescription("Sessions finalized, by nurse contact outcome"),
	); err != nil {
		return nil, fmt.Errorf("interactions.finalized: %w", err)
	}

	if m.saveFailures, err = meter.Int64Counter(
		"interactions.save_failures",
		metric.WithDescription("Session persistence failures"),
	); err != nil {
		return nil, fmt.Errorf("interactions.save_failures: %w", err)
	}

	if m.evicted, err = meter.Int64Counter(
		"interactions.evicted",
		metric.WithDescription("Idle interactions discarded without persistence"),
	); err != nil {
		return nil, fmt.Errorf("interactions.evicted: %w", err)
	}

	if m.active, err = meter.Int64UpDownCounter(
		"interactions.active",
		metric.WithDescription("Interactions currently registered"),
	); err != nil {
		return nil, fmt.Errorf("interactions.active: %w", err)
	}

	return &m, nil
}
