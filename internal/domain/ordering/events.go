package ordering

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

// AggregateTypeOrder is the aggregate type name of Order
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated           = "OrderCreated"
	EventTypeOrderPriced            = "OrderPriced"
	EventTypeOrderRepriced          = "OrderRepriced"
	EventTypeOrderConfirmed         = "OrderConfirmed"
	EventTypeOrderRejected          = "OrderRejected"
	EventTypeOrderCancelled         = "OrderCancelled"
	EventTypeOrderCompleted         = "OrderCompleted"
	EventTypeOrderItemRemoved       = "OrderItemRemoved"
	EventTypePaymentReceiptAdded    = "PaymentReceiptAdded"
	EventTypePaymentVerified        = "PaymentVerified"
	EventTypePaymentRejected        = "PaymentRejected"
	EventTypeDealerAssigned         = "DealerAssigned"
	EventTypeDealerUnassigned       = "DealerUnassigned"
	EventTypeInvoiceTypeChanged     = "InvoiceTypeChanged"
	EventTypeCommissionCreated      = "CommissionCreated"
	EventTypeCommissionPaid         = "CommissionPaid"
	EventTypeCommissionRecalculated = "CommissionRecalculated"
)

func newOrderEvent(eventType string, o *Order, actorID uuid.UUID) shared.BaseDomainEvent {
	base := shared.NewBaseDomainEvent(eventType, AggregateTypeOrder, o.ID, o.TenantID)
	base.ActorID = actorID
	return base
}

// OrderCreatedEvent is raised when a customer submits a new order
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID  uuid.UUID   `json:"customer_id"`
	InvoiceType InvoiceType `json:"invoice_type"`
	ItemCount   int         `json:"item_count"`
}

// OrderPricingEvent is raised on the first pricing submission and on every re-price
type OrderPricingEvent struct {
	shared.BaseDomainEvent
	Notified          bool             `json:"notified"`
	SelectionsCleared bool             `json:"selections_cleared"`
	QuotedTotal       *decimal.Decimal `json:"quoted_total,omitempty"`
}

// OrderStatusChangedEvent is raised for confirm, reject, cancel, complete and payment review outcomes
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	From        OrderStatus      `json:"from"`
	To          OrderStatus      `json:"to"`
	Reason      string           `json:"reason,omitempty"`
	QuotedTotal *decimal.Decimal `json:"quoted_total,omitempty"`
}

// OrderItemRemovedEvent is raised when an item is soft-deleted
type OrderItemRemovedEvent struct {
	shared.BaseDomainEvent
	ItemID uuid.UUID `json:"item_id"`
}

// PaymentReceiptAddedEvent is raised when payment evidence is attached
type PaymentReceiptAddedEvent struct {
	shared.BaseDomainEvent
	ReceiptID uuid.UUID       `json:"receipt_id"`
	FileKey   string          `json:"file_key"`
	FileType  ReceiptFileType `json:"file_type"`
}

// DealerAssignmentEvent is raised when a dealer is assigned or unassigned
type DealerAssignmentEvent struct {
	shared.BaseDomainEvent
	DealerID       uuid.UUID       `json:"dealer_id"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

// InvoiceTypeChangedEvent is raised when the invoice type is switched
type InvoiceTypeChangedEvent struct {
	shared.BaseDomainEvent
	From InvoiceType `json:"from"`
	To   InvoiceType `json:"to"`
}

// CommissionEvent is raised when a commission is created, recalculated or paid
type CommissionEvent struct {
	shared.BaseDomainEvent
	OrderID          uuid.UUID        `json:"order_id"`
	DealerID         uuid.UUID        `json:"dealer_id"`
	BaseAmount       decimal.Decimal  `json:"base_amount"`
	Amount           decimal.Decimal  `json:"amount"`
	PreviousAmount   *decimal.Decimal `json:"previous_amount,omitempty"`
	Rate             decimal.Decimal  `json:"rate"`
	PaymentReference string           `json:"payment_reference,omitempty"`
}

// NewCommissionCreatedEvent creates a CommissionCreated event
func NewCommissionCreatedEvent(c *Commission) *CommissionEvent {
	return &CommissionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCommissionCreated, AggregateTypeCommission, c.ID, c.TenantID),
		OrderID:         c.OrderID,
		DealerID:        c.DealerID,
		BaseAmount:      c.BaseAmount,
		Amount:          c.Amount,
		Rate:            c.Rate,
	}
}

// NewCommissionRecalculatedEvent creates a CommissionRecalculated event
func NewCommissionRecalculatedEvent(c *Commission, previous decimal.Decimal) *CommissionEvent {
	return &CommissionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCommissionRecalculated, AggregateTypeCommission, c.ID, c.TenantID),
		OrderID:         c.OrderID,
		DealerID:        c.DealerID,
		BaseAmount:      c.BaseAmount,
		Amount:          c.Amount,
		PreviousAmount:  &previous,
		Rate:            c.Rate,
	}
}

// NewCommissionPaidEvent creates a CommissionPaid event
func NewCommissionPaidEvent(c *Commission) *CommissionEvent {
	e := &CommissionEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCommissionPaid, AggregateTypeCommission, c.ID, c.TenantID),
		OrderID:          c.OrderID,
		DealerID:         c.DealerID,
		BaseAmount:       c.BaseAmount,
		Amount:           c.Amount,
		Rate:             c.Rate,
		PaymentReference: c.PaymentReference,
	}
	if c.PaidBy != nil {
		e.ActorID = *c.PaidBy
	}
	return e
}

// EventPrototypes maps every event type to an empty instance, for deserialization
func EventPrototypes() map[string]shared.DomainEvent {
	return map[string]shared.DomainEvent{
		EventTypeOrderCreated:           &OrderCreatedEvent{},
		EventTypeOrderPriced:            &OrderPricingEvent{},
		EventTypeOrderRepriced:          &OrderPricingEvent{},
		EventTypeOrderConfirmed:         &OrderStatusChangedEvent{},
		EventTypeOrderRejected:          &OrderStatusChangedEvent{},
		EventTypeOrderCancelled:         &OrderStatusChangedEvent{},
		EventTypeOrderCompleted:         &OrderStatusChangedEvent{},
		EventTypePaymentVerified:        &OrderStatusChangedEvent{},
		EventTypePaymentRejected:        &OrderStatusChangedEvent{},
		EventTypeOrderItemRemoved:       &OrderItemRemovedEvent{},
		EventTypePaymentReceiptAdded:    &PaymentReceiptAddedEvent{},
		EventTypeDealerAssigned:         &DealerAssignmentEvent{},
		EventTypeDealerUnassigned:       &DealerAssignmentEvent{},
		EventTypeInvoiceTypeChanged:     &InvoiceTypeChangedEvent{},
		EventTypeCommissionCreated:      &CommissionEvent{},
		EventTypeCommissionPaid:         &CommissionEvent{},
		EventTypeCommissionRecalculated: &CommissionEvent{},
	}
}
