package ordering

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

// OrderItem is a line of an order
type OrderItem struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	ProductID         uuid.UUID
	ProductName       string
	RequestedQuantity decimal.Decimal // customer-entered, immutable
	FinalQuantity     decimal.Decimal // admin-entered, mutable until completion
	TaxRate           decimal.Decimal // product tax rate captured at order creation
	IsActive          bool
	RemovedAt         *time.Time
	AdminNotes        string
	CustomerNotes     string
	Pricing           PricingOptionSet
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewOrderItem creates an active item for product with the customer's requested quantity
func NewOrderItem(orderID uuid.UUID, product Product, quantity decimal.Decimal, customerNotes string) (*OrderItem, error) {
	if product.ID == uuid.Nil {
		return nil, shared.NewValidationError("invalid item", shared.FieldError{Field: "product_id", Message: "product ID cannot be empty"})
	}
	if !quantity.IsPositive() {
		return nil, shared.NewValidationError("invalid item", shared.FieldError{Field: "quantity", Message: "quantity must be positive"})
	}

	now := time.Now()
	return &OrderItem{
		ID:                uuid.New(),
		OrderID:           orderID,
		ProductID:         product.ID,
		ProductName:       product.Name,
		RequestedQuantity: quantity,
		FinalQuantity:     quantity,
		TaxRate:           product.EffectiveTaxRate(),
		IsActive:          true,
		CustomerNotes:     customerNotes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Subtotal is the selected option's amount, or pending when nothing is selected
func (i *OrderItem) Subtotal() LineAmount {
	selected, ok := i.Pricing.Selected()
	if !ok {
		return PendingAmount
	}
	return ComputeOptionTotal(selected, i.FinalQuantity)
}

// HasSelection reports whether the customer picked an option for this item
func (i *OrderItem) HasSelection() bool {
	_, ok := i.Pricing.Selected()
	return ok
}

// ItemLedger is the collection of an order's items, including soft-deleted ones.
// Active is the single place where removed items are filtered out.
type ItemLedger []OrderItem

// Active returns pointers to the items still taking part in pricing and totals
func (l ItemLedger) Active() []*OrderItem {
	active := make([]*OrderItem, 0, len(l))
	for idx := range l {
		if l[idx].IsActive {
			active = append(active, &l[idx])
		}
	}
	return active
}

// ActiveCount returns the number of active items
func (l ItemLedger) ActiveCount() int {
	n := 0
	for idx := range l {
		if l[idx].IsActive {
			n++
		}
	}
	return n
}

// Find returns any item, active or removed
func (l ItemLedger) Find(itemID uuid.UUID) (*OrderItem, error) {
	for idx := range l {
		if l[idx].ID == itemID {
			return &l[idx], nil
		}
	}
	return nil, shared.NewNotFoundError("item %s does not belong to this order", itemID)
}

// FindActive returns an item only if it has not been removed
func (l ItemLedger) FindActive(itemID uuid.UUID) (*OrderItem, error) {
	item, err := l.Find(itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, shared.NewNotFoundError("item %s has been removed from this order", itemID)
	}
	return item, nil
}

// SoftRemove deactivates an item and keeps it, with its pricing, for audit
func (l ItemLedger) SoftRemove(itemID uuid.UUID, at time.Time) error {
	item, err := l.Find(itemID)
	if err != nil {
		return err
	}
	if !item.IsActive {
		return shared.NewInvalidStateError("item %s is already removed", itemID)
	}
	if l.ActiveCount() <= 1 {
		return shared.NewValidationError("cannot remove item",
			shared.FieldError{Field: "item_id", Message: "order must keep at least one active item"})
	}
	item.IsActive = false
	item.RemovedAt = &at
	item.UpdatedAt = at
	return nil
}

// ClearSelections unselects every active item's option
func (l ItemLedger) ClearSelections() {
	for _, item := range l.Active() {
		item.Pricing.ClearSelection()
	}
}

// Unselected returns the active items still lacking a selection
func (l ItemLedger) Unselected() []*OrderItem {
	var missing []*OrderItem
	for _, item := range l.Active() {
		if !item.HasSelection() {
			missing = append(missing, item)
		}
	}
	return missing
}
