package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/wholesale/orderflow/internal/domain/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

// AuditLogHandler writes one structured log line per workflow event
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new audit log handler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns nil so the handler receives every event
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event with its payload-specific fields
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *ordering.OrderStatusChangedEvent:
		fields = append(fields,
			zap.String("actor_id", e.ActorID.String()),
			zap.String("from", e.From.String()),
			zap.String("to", e.To.String()),
		)
		if e.Reason != "" {
			fields = append(fields, zap.String("reason", e.Reason))
		}
		if e.QuotedTotal != nil {
			fields = append(fields, zap.String("quoted_total", e.QuotedTotal.StringFixed(ordering.MoneyScale)))
		}
	case *ordering.OrderPricingEvent:
		fields = append(fields,
			zap.String("actor_id", e.ActorID.String()),
			zap.Bool("notified", e.Notified),
			zap.Bool("selections_cleared", e.SelectionsCleared),
		)
	case *ordering.DealerAssignmentEvent:
		fields = append(fields,
			zap.String("dealer_id", e.DealerID.String()),
			zap.String("commission_rate", e.CommissionRate.String()),
		)
	case *ordering.InvoiceTypeChangedEvent:
		fields = append(fields, zap.String("from", string(e.From)), zap.String("to", string(e.To)))
	case *ordering.CommissionEvent:
		fields = append(fields,
			zap.String("order_id", e.OrderID.String()),
			zap.String("dealer_id", e.DealerID.String()),
			zap.String("amount", e.Amount.StringFixed(ordering.MoneyScale)),
		)
		if e.PreviousAmount != nil {
			fields = append(fields, zap.String("previous_amount", e.PreviousAmount.StringFixed(ordering.MoneyScale)))
		}
		if e.PaymentReference != "" {
			fields = append(fields, zap.String("payment_reference", e.PaymentReference))
		}
	}

	h.logger.Info("workflow event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
