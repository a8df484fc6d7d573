package ordering

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

// AggregateTypeCommission is the aggregate type name of Commission
const AggregateTypeCommission = "Commission"

// Commission is the dealer's earning on one order: the quoted total times the
// assignment's rate snapshot. The amount follows the quoted total until the commission
// becomes payable and is fixed from then on.
type Commission struct {
	shared.TenantAggregateRoot
	OrderID          uuid.UUID
	DealerID         uuid.UUID
	BaseAmount       decimal.Decimal
	Rate             decimal.Decimal
	Amount           decimal.Decimal
	IsPayable        bool
	PayableAt        *time.Time
	IsPaid           bool
	PaidAt           *time.Time
	PaidBy           *uuid.UUID
	PaymentReference string
}

// DeriveCommission creates the commission for an order that reached confirmation or completion.
// It returns created=false when a commission already exists, no dealer is assigned,
// or the order has no quoted total yet. Calling it repeatedly never yields a second record.
func DeriveCommission(order *Order, existing *Commission) (*Commission, bool) {
	if existing != nil {
		return existing, false
	}
	if order.DealerAssignment == nil || order.QuotedTotal == nil {
		return nil, false
	}
	if order.Status != StatusConfirmed && order.Status != StatusPaymentUploaded && order.Status != StatusCompleted {
		return nil, false
	}

	rate := order.DealerAssignment.CommissionRateSnapshot
	c := &Commission{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(order.TenantID),
		OrderID:             order.ID,
		DealerID:            order.DealerAssignment.DealerID,
		BaseAmount:          *order.QuotedTotal,
		Rate:                rate,
		Amount:              commissionAmount(*order.QuotedTotal, rate),
	}
	c.AddDomainEvent(NewCommissionCreatedEvent(c))
	return c, true
}

// Recalculate rebases an unsettled commission on the order's current quoted total.
// Payable or paid commissions keep their amount. It reports whether anything changed.
func (c *Commission) Recalculate(quotedTotal decimal.Decimal, at time.Time) bool {
	if c.IsPaid || c.IsPayable || quotedTotal.Equal(c.BaseAmount) {
		return false
	}

	previous := c.Amount
	c.BaseAmount = quotedTotal
	c.Amount = commissionAmount(quotedTotal, c.Rate)
	c.UpdatedAt = at

	c.AddDomainEvent(NewCommissionRecalculatedEvent(c, previous))
	return true
}

func commissionAmount(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred).Round(MoneyScale)
}

// MarkPayable flags the commission once its order completes
func (c *Commission) MarkPayable(at time.Time) bool {
	if c.IsPayable {
		return false
	}
	c.IsPayable = true
	c.PayableAt = &at
	c.UpdatedAt = at
	return true
}

// MarkPaid records the payout of the commission
func (c *Commission) MarkPaid(reference string, paidBy uuid.UUID) error {
	if reference == "" {
		return shared.NewValidationError("invalid payment",
			shared.FieldError{Field: "payment_reference", Message: "payment reference is required"})
	}
	if c.IsPaid {
		return shared.NewInvalidStateError("commission %s is already paid", c.ID)
	}
	if !c.IsPayable {
		return shared.NewInvalidStateError("commission %s is not payable until its order completes", c.ID)
	}

	now := time.Now()
	c.IsPaid = true
	c.PaidAt = &now
	c.PaidBy = &paidBy
	c.PaymentReference = reference
	c.UpdatedAt = now

	c.AddDomainEvent(NewCommissionPaidEvent(c))
	return nil
}
