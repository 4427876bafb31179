package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Outcomes counts results of one operation, labeled by outcome and diagnostic code.
type Outcomes struct {
	counter metric.Int64Counter
}

// NewOutcomes registers a counter on the global MeterProvider. Registration failures fall back to a no-op
// counter so instrumentation never blocks a security flow.
func NewOutcomes(scope, name, description string) *Outcomes {
	c, err := otel.Meter(scope).Int64Counter(name, metric.WithDescription(description))
	if err != nil || c == nil {
		c = noop.Int64Counter{}
	}
	return &Outcomes{counter: c}
}

// Add records one outcome.
func (o *Outcomes) Add(ctx context.Context, outcome, code string) {
	if o == nil {
		return
	}
	o.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("diagnostic_code", code),
	))
}
