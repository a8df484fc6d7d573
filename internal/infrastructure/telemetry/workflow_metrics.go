package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WorkflowMetrics records order workflow counters
type WorkflowMetrics struct {
	events           metric.Int64Counter
	conflicts        metric.Int64Counter
	commissionsPaid  metric.Int64Counter
	commissionAmount metric.Float64Counter
	duration         metric.Float64Histogram
}

// NewWorkflowMetrics registers the workflow instruments on meter
func NewWorkflowMetrics(meter metric.Meter) (*WorkflowMetrics, error) {
	m := &WorkflowMetrics{}
	var err error

	if m.events, err = meter.Int64Counter("orderflow.order.events",
		metric.WithDescription("Domain events raised by order operations"),
		metric.WithUnit("{event}")); err != nil {
		return nil, err
	}
	if m.conflicts, err = meter.Int64Counter("orderflow.order.conflicts",
		metric.WithDescription("Order operations rejected by a lock or version conflict"),
		metric.WithUnit("{conflict}")); err != nil {
		return nil, err
	}
	if m.commissionsPaid, err = meter.Int64Counter("orderflow.commission.paid",
		metric.WithDescription("Commissions marked paid"),
		metric.WithUnit("{commission}")); err != nil {
		return nil, err
	}
	if m.commissionAmount, err = meter.Float64Counter("orderflow.commission.paid_amount",
		metric.WithDescription("Sum of commission amounts marked paid")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("orderflow.order.operation.duration",
		metric.WithDescription("Duration of order operations"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500)); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordEvent counts one domain event
func (m *WorkflowMetrics) RecordEvent(ctx context.Context, eventType string) {
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// RecordConflict counts an operation rejected with a conflict
func (m *WorkflowMetrics) RecordConflict(ctx context.Context, operation, code string) {
	m.conflicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("code", code),
	))
}

// RecordCommissionPaid counts a paid commission and its amount
func (m *WorkflowMetrics) RecordCommissionPaid(ctx context.Context, amount decimal.Decimal) {
	m.commissionsPaid.Add(ctx, 1)
	m.commissionAmount.Add(ctx, amount.InexactFloat64())
}

// RecordOperation records the duration and outcome of an operation
func (m *WorkflowMetrics) RecordOperation(ctx context.Context, operation string, d time.Duration, err error) {
	m.duration.Record(ctx, float64(d.Microseconds())/1000, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("error", err != nil),
	))
}
