package ordering

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

// Order is the aggregate root of the pricing negotiation workflow.
// It owns its items, their pricing options, the dealer assignment and the payment receipts.
type Order struct {
	shared.TenantAggregateRoot
	CustomerID          uuid.UUID
	CustomerName        string
	Status              OrderStatus
	InvoiceType         InvoiceType
	InvoiceTypeSwitched bool
	Items               ItemLedger
	DealerAssignment    *DealerAssignment
	Receipts            []PaymentReceipt
	AdminComment        string
	CustomerComment     string
	QuotedTotal         *decimal.Decimal // nil until every active item has a priced selection
	StatusReason        string
	ConfirmedAt         *time.Time
	CompletedAt         *time.Time
	RejectedAt          *time.Time
	CancelledAt         *time.Time
}

// NewItemInput is one requested line of a new order
type NewItemInput struct {
	Product       Product
	Quantity      decimal.Decimal
	CustomerNotes string
}

// PricingOptionInput is an unvalidated option as submitted by an admin
type PricingOptionInput struct {
	Term               PaymentTerm
	CustomLabel        string
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
}

// ItemPricing is the admin's pricing for one item
type ItemPricing struct {
	ItemID        uuid.UUID
	FinalQuantity decimal.Decimal
	Options       []PricingOptionInput
	AdminNotes    string
}

// NewOrder creates an order in pending_pricing from a customer submission
func NewOrder(actor shared.Actor, customerID uuid.UUID, customerName string, invoiceType InvoiceType, customerComment string, items []NewItemInput) (*Order, error) {
	var errs shared.FieldErrors
	if customerID == uuid.Nil {
		errs.Add("customer_id", "customer ID cannot be empty")
	}
	if customerName == "" {
		errs.Add("customer_name", "customer name cannot be empty")
	}
	if !invoiceType.IsValid() {
		errs.Add("business_invoice_type", "invoice type must be official or unofficial")
	}
	if len(items) == 0 {
		errs.Add("items", "order must contain at least one item")
	}

	order := &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(actor.TenantID),
		CustomerID:          customerID,
		CustomerName:        customerName,
		Status:              StatusPendingPricing,
		InvoiceType:         invoiceType,
		CustomerComment:     customerComment,
		Items:               make(ItemLedger, 0, len(items)),
	}
	order.SetCreatedBy(actor.UserID)

	for i, in := range items {
		item, err := NewOrderItem(order.ID, in.Product, in.Quantity, in.CustomerNotes)
		if err != nil {
			errs.Merge(fmt.Sprintf("items[%d]", i), err)
			continue
		}
		order.Items = append(order.Items, *item)
	}
	if err := errs.Err("invalid order"); err != nil {
		return nil, err
	}

	order.AddDomainEvent(&OrderCreatedEvent{
		BaseDomainEvent: newOrderEvent(EventTypeOrderCreated, order, actor.UserID),
		CustomerID:      customerID,
		InvoiceType:     invoiceType,
		ItemCount:       len(order.Items),
	})

	return order, nil
}

// Totals computes the invoice projection of the order
func (o *Order) Totals() Totals {
	return ComputeTotals(o.InvoiceType, o.Items)
}

// PendingReceipts returns the receipts awaiting review
func (o *Order) PendingReceipts() []*PaymentReceipt {
	var pending []*PaymentReceipt
	for idx := range o.Receipts {
		if o.Receipts[idx].IsPending() {
			pending = append(pending, &o.Receipts[idx])
		}
	}
	return pending
}

// SubmitPricing applies the first multi-option pricing and sends the order to the customer
func (o *Order) SubmitPricing(actor shared.Actor, pricing []ItemPricing, adminComment string) error {
	if err := o.ensureMutable("price"); err != nil {
		return err
	}
	if o.Status != StatusPendingPricing {
		return shared.NewInvalidStateError("pricing can only be submitted while %s, order is %s", StatusPendingPricing, o.Status)
	}

	priced, err := o.preparePricing(pricing)
	if err != nil {
		return err
	}
	if err := o.checkTransition(StatusWaitingCustomerApproval); err != nil {
		return err
	}

	now := time.Now()
	o.applyPricing(priced, now)
	o.AdminComment = adminComment
	o.Status = StatusWaitingCustomerApproval
	o.UpdatedAt = now
	o.recalculate()

	o.AddDomainEvent(&OrderPricingEvent{
		BaseDomainEvent: newOrderEvent(EventTypeOrderPriced, o, actor.UserID),
		QuotedTotal:     o.QuotedTotal,
	})
	return nil
}

// UpdatePricing replaces the pricing of an order already sent to the customer.
// With notify every selection is cleared and the order goes back to waiting_customer_approval.
// Without notify selections are kept when the same (term, label) is still offered; a confirmed
// order whose selected option disappears must be re-priced with notify instead.
func (o *Order) UpdatePricing(actor shared.Actor, pricing []ItemPricing, adminComment string, notify bool) error {
	if err := o.ensureMutable("re-price"); err != nil {
		return err
	}
	switch o.Status {
	case StatusWaitingCustomerApproval, StatusConfirmed, StatusPaymentUploaded:
	default:
		return shared.NewInvalidStateError("pricing cannot be updated while order is %s", o.Status)
	}

	priced, err := o.preparePricing(pricing)
	if err != nil {
		return err
	}

	if notify {
		if err := o.checkTransition(StatusWaitingCustomerApproval); err != nil {
			return err
		}
	} else {
		var errs shared.FieldErrors
		for _, item := range o.Items.Active() {
			p := priced[item.ID]
			if !p.set.CarrySelectionFrom(item.Pricing) && o.Status != StatusWaitingCustomerApproval {
				errs.Add("items", "selected option for item %s was removed; re-price with notify_customer to request a new selection", item.ID)
			}
			priced[item.ID] = p
		}
		if err := errs.Err("pricing rejected"); err != nil {
			return err
		}
	}

	now := time.Now()
	from := o.Status
	o.applyPricing(priced, now)
	o.AdminComment = adminComment
	if notify {
		o.Items.ClearSelections()
		if from != StatusWaitingCustomerApproval {
			for _, r := range o.PendingReceipts() {
				r.review(ReceiptRejected, "superseded by re-pricing", actor.UserID, now)
			}
			o.ConfirmedAt = nil
		}
		o.Status = StatusWaitingCustomerApproval
	}
	o.UpdatedAt = now
	o.recalculate()

	o.AddDomainEvent(&OrderPricingEvent{
		BaseDomainEvent:   newOrderEvent(EventTypeOrderRepriced, o, actor.UserID),
		Notified:          notify,
		SelectionsCleared: notify,
		QuotedTotal:       o.QuotedTotal,
	})
	return nil
}

// SelectOption records the customer's choice for one item, replacing any earlier choice
func (o *Order) SelectOption(itemID uuid.UUID, key OptionKey) error {
	if o.Status != StatusWaitingCustomerApproval {
		return shared.NewInvalidStateError("options can only be selected while %s, order is %s", StatusWaitingCustomerApproval, o.Status)
	}
	item, err := o.Items.FindActive(itemID)
	if err != nil {
		return err
	}
	if err := item.Pricing.Select(key); err != nil {
		return err
	}

	now := time.Now()
	item.UpdatedAt = now
	o.UpdatedAt = now
	o.recalculate()
	return nil
}

// ApproveSelections confirms the order once every active item has exactly one selected option
func (o *Order) ApproveSelections(actor shared.Actor, customerComment string) error {
	if o.Status != StatusWaitingCustomerApproval {
		return shared.NewInvalidStateError("order can only be approved while %s, order is %s", StatusWaitingCustomerApproval, o.Status)
	}
	var errs shared.FieldErrors
	for _, item := range o.Items.Unselected() {
		errs.Add("selections", "no pricing option selected for item %s", item.ID)
	}
	if err := errs.Err("selection incomplete"); err != nil {
		return err
	}
	if err := o.checkTransition(StatusConfirmed); err != nil {
		return err
	}

	now := time.Now()
	from := o.Status
	if customerComment != "" {
		o.CustomerComment = customerComment
	}
	o.Status = StatusConfirmed
	o.ConfirmedAt = &now
	o.UpdatedAt = now
	o.recalculate()

	o.addStatusEvent(EventTypeOrderConfirmed, actor, from, "")
	return nil
}

// Reject records the customer's or admin's refusal of the quote
func (o *Order) Reject(actor shared.Actor, reason string) error {
	if err := o.checkTransition(StatusRejected); err != nil {
		return err
	}

	now := time.Now()
	from := o.Status
	o.Status = StatusRejected
	o.StatusReason = reason
	o.RejectedAt = &now
	o.UpdatedAt = now

	o.addStatusEvent(EventTypeOrderRejected, actor, from, reason)
	return nil
}

// Cancel withdraws an order that has not been confirmed
func (o *Order) Cancel(actor shared.Actor, reason string) error {
	if err := o.checkTransition(StatusCancelled); err != nil {
		return err
	}

	now := time.Now()
	from := o.Status
	o.Status = StatusCancelled
	o.StatusReason = reason
	o.CancelledAt = &now
	o.UpdatedAt = now
	o.recalculate()

	o.addStatusEvent(EventTypeOrderCancelled, actor, from, reason)
	return nil
}

// RemoveItem soft-deletes an item; its pricing stays readable for audit
func (o *Order) RemoveItem(actor shared.Actor, itemID uuid.UUID) error {
	if err := o.ensureMutable("remove items from"); err != nil {
		return err
	}

	now := time.Now()
	if err := o.Items.SoftRemove(itemID, now); err != nil {
		return err
	}
	o.UpdatedAt = now
	o.recalculate()

	o.AddDomainEvent(&OrderItemRemovedEvent{
		BaseDomainEvent: newOrderEvent(EventTypeOrderItemRemoved, o, actor.UserID),
		ItemID:          itemID,
	})
	return nil
}

// AssignDealer attaches a dealer and snapshots the dealer's current commission rate
func (o *Order) AssignDealer(actor shared.Actor, dealer Dealer, notes string) error {
	if err := o.ensureMutable("assign a dealer to"); err != nil {
		return err
	}
	if o.DealerAssignment != nil {
		return shared.NewConflictError("DEALER_ALREADY_ASSIGNED",
			fmt.Sprintf("order already has dealer %s assigned; remove it first", o.DealerAssignment.DealerID))
	}
	var errs shared.FieldErrors
	if !dealer.IsActive {
		errs.Add("dealer_id", "dealer %s is inactive", dealer.ID)
	}
	if dealer.CommissionRate.IsNegative() || dealer.CommissionRate.GreaterThan(hundred) {
		errs.Add("dealer_id", "dealer commission rate must be between 0 and 100")
	}
	if err := errs.Err("cannot assign dealer"); err != nil {
		return err
	}

	now := time.Now()
	o.DealerAssignment = newDealerAssignment(dealer, notes, actor.UserID, now)
	o.UpdatedAt = now

	o.AddDomainEvent(&DealerAssignmentEvent{
		BaseDomainEvent: newOrderEvent(EventTypeDealerAssigned, o, actor.UserID),
		DealerID:        dealer.ID,
		CommissionRate:  dealer.CommissionRate,
	})
	return nil
}

// UnassignDealer removes the dealer. An existing commission is left untouched.
func (o *Order) UnassignDealer(actor shared.Actor) error {
	if err := o.ensureMutable("remove the dealer of"); err != nil {
		return err
	}
	if o.DealerAssignment == nil {
		return shared.NewInvalidStateError("order has no dealer assigned")
	}

	prev := o.DealerAssignment
	o.DealerAssignment = nil
	o.UpdatedAt = time.Now()

	o.AddDomainEvent(&DealerAssignmentEvent{
		BaseDomainEvent: newOrderEvent(EventTypeDealerUnassigned, o, actor.UserID),
		DealerID:        prev.DealerID,
		CommissionRate:  prev.CommissionRateSnapshot,
	})
	return nil
}

// SetInvoiceType switches between official and unofficial invoicing.
// The type may be switched once; setting the current type again is a no-op.
func (o *Order) SetInvoiceType(actor shared.Actor, invoiceType InvoiceType) error {
	if err := o.ensureMutable("change the invoice type of"); err != nil {
		return err
	}
	if !invoiceType.IsValid() {
		return shared.NewValidationError("invalid invoice type",
			shared.FieldError{Field: "business_invoice_type", Message: "invoice type must be official or unofficial"})
	}
	if invoiceType == o.InvoiceType {
		return nil
	}
	if o.InvoiceTypeSwitched {
		return shared.NewConflictError("INVOICE_TYPE_ALREADY_SWITCHED", "invoice type can only be switched once")
	}

	from := o.InvoiceType
	o.InvoiceType = invoiceType
	o.InvoiceTypeSwitched = true
	o.UpdatedAt = time.Now()
	o.recalculate()

	o.AddDomainEvent(&InvoiceTypeChangedEvent{
		BaseDomainEvent: newOrderEvent(EventTypeInvoiceTypeChanged, o, actor.UserID),
		From:            from,
		To:              invoiceType,
	})
	return nil
}

// AddReceipt attaches payment evidence; the first receipt moves confirmed to payment_uploaded
func (o *Order) AddReceipt(actor shared.Actor, fileKey string, fileType ReceiptFileType) (*PaymentReceipt, error) {
	if err := o.ensureMutable("upload receipts to"); err != nil {
		return nil, err
	}
	if o.Status != StatusConfirmed && o.Status != StatusPaymentUploaded {
		return nil, shared.NewInvalidStateError("receipts can only be uploaded for confirmed orders, order is %s", o.Status)
	}
	var errs shared.FieldErrors
	if fileKey == "" {
		errs.Add("file_key", "file reference is required")
	}
	if !fileType.IsValid() {
		errs.Add("file_type", "file type must be image or pdf")
	}
	if err := errs.Err("invalid receipt"); err != nil {
		return nil, err
	}

	now := time.Now()
	o.Receipts = append(o.Receipts, PaymentReceipt{
		ID:         uuid.New(),
		OrderID:    o.ID,
		FileKey:    fileKey,
		FileType:   fileType,
		UploadedBy: actor.UserID,
		UploadedAt: now,
		Status:     ReceiptPending,
	})
	receipt := &o.Receipts[len(o.Receipts)-1]
	if o.Status == StatusConfirmed {
		o.Status = StatusPaymentUploaded
	}
	o.UpdatedAt = now

	o.AddDomainEvent(&PaymentReceiptAddedEvent{
		BaseDomainEvent: newOrderEvent(EventTypePaymentReceiptAdded, o, actor.UserID),
		ReceiptID:       receipt.ID,
		FileKey:         fileKey,
		FileType:        fileType,
	})
	return receipt, nil
}

// VerifyPayment records the admin review of the pending receipts.
// Accepting completes the order; refusing sends it back to confirmed for a new upload.
func (o *Order) VerifyPayment(actor shared.Actor, verified bool, notes string) error {
	if o.Status != StatusPaymentUploaded {
		return shared.NewInvalidStateError("payment can only be verified while %s, order is %s", StatusPaymentUploaded, o.Status)
	}
	pending := o.PendingReceipts()
	if len(pending) == 0 {
		return shared.NewInvalidStateError("order has no unreviewed payment receipt")
	}

	now := time.Now()
	from := o.Status
	if !verified {
		if err := o.checkTransition(StatusConfirmed); err != nil {
			return err
		}
		for _, r := range pending {
			r.review(ReceiptRejected, notes, actor.UserID, now)
		}
		o.Status = StatusConfirmed
		o.UpdatedAt = now
		o.addStatusEvent(EventTypePaymentRejected, actor, from, notes)
		return nil
	}

	if err := o.ensureFinalized(); err != nil {
		return err
	}
	if err := o.checkTransition(StatusCompleted); err != nil {
		return err
	}
	for _, r := range pending {
		r.review(ReceiptVerified, notes, actor.UserID, now)
	}
	o.complete(now)
	o.addStatusEvent(EventTypePaymentVerified, actor, from, notes)
	o.addStatusEvent(EventTypeOrderCompleted, actor, from, "")
	return nil
}

// Complete finishes a confirmed order without the receipt path
func (o *Order) Complete(actor shared.Actor) error {
	if o.Status != StatusConfirmed {
		return shared.NewInvalidStateError("only %s orders can be completed directly, order is %s", StatusConfirmed, o.Status)
	}
	if err := o.ensureFinalized(); err != nil {
		return err
	}
	if err := o.checkTransition(StatusCompleted); err != nil {
		return err
	}

	from := o.Status
	o.complete(time.Now())
	o.addStatusEvent(EventTypeOrderCompleted, actor, from, "")
	return nil
}

func (o *Order) complete(now time.Time) {
	o.Status = StatusCompleted
	o.CompletedAt = &now
	o.UpdatedAt = now
	o.recalculate()
}

// ensureMutable rejects mutations of finalized orders: completed orders are locked,
// rejected and cancelled orders are in a terminal state.
func (o *Order) ensureMutable(action string) error {
	switch o.Status {
	case StatusCompleted:
		return shared.NewLockedError(fmt.Sprintf("order %s is completed; cannot %s it", o.ID, action))
	case StatusRejected, StatusCancelled:
		return shared.NewInvalidStateError("cannot %s an order in %s status", action, o.Status)
	}
	return nil
}

func (o *Order) ensureFinalized() error {
	o.recalculate()
	if o.QuotedTotal == nil {
		return shared.NewInvalidStateError("quoted total is not finalized")
	}
	return nil
}

func (o *Order) checkTransition(to OrderStatus) error {
	if !o.Status.CanTransitionTo(to) {
		return shared.NewInvalidStateError("cannot move order from %s to %s", o.Status, to)
	}
	return nil
}

func (o *Order) recalculate() {
	totals := o.Totals()
	if o.Status == StatusPendingPricing || o.Status == StatusCancelled || totals.Pending {
		o.QuotedTotal = nil
		return
	}
	total := totals.Total
	o.QuotedTotal = &total
}

func (o *Order) addStatusEvent(eventType string, actor shared.Actor, from OrderStatus, reason string) {
	o.AddDomainEvent(&OrderStatusChangedEvent{
		BaseDomainEvent: newOrderEvent(eventType, o, actor.UserID),
		From:            from,
		To:              o.Status,
		Reason:          reason,
		QuotedTotal:     o.QuotedTotal,
	})
}

type pricedItem struct {
	quantity decimal.Decimal
	set      PricingOptionSet
	notes    string
}

// preparePricing validates a submission against the active items without touching the order
func (o *Order) preparePricing(pricing []ItemPricing) (map[uuid.UUID]pricedItem, error) {
	var errs shared.FieldErrors
	priced := make(map[uuid.UUID]pricedItem, len(pricing))

	for i, p := range pricing {
		field := fmt.Sprintf("items[%d]", i)
		item, err := o.Items.Find(p.ItemID)
		if err != nil {
			return nil, err
		}
		if !item.IsActive {
			errs.Add(field+".item_id", "item %s has been removed and cannot be priced", p.ItemID)
			continue
		}
		if _, dup := priced[p.ItemID]; dup {
			errs.Add(field+".item_id", "item %s is priced more than once", p.ItemID)
			continue
		}
		if !p.FinalQuantity.IsPositive() {
			errs.Add(field+".final_quantity", "final quantity must be positive for item %s", p.ItemID)
		}

		switch n := len(p.Options); {
		case n < MinPricingOptions:
			errs.Add(field+".pricing_options", "at least %d pricing options required for item %s", MinPricingOptions, p.ItemID)
		case n > MaxPricingOptions:
			errs.Add(field+".pricing_options", "at most %d pricing options allowed for item %s", MaxPricingOptions, p.ItemID)
		}

		options := make([]PricingOption, 0, len(p.Options))
		valid := true
		for j, in := range p.Options {
			opt, err := NewPricingOption(in.Term, in.CustomLabel, in.UnitPrice, in.DiscountPercentage)
			if err != nil {
				errs.Merge(fmt.Sprintf("%s.pricing_options[%d]", field, j), err)
				valid = false
				continue
			}
			options = append(options, opt)
		}
		if !valid || len(options) < MinPricingOptions || len(options) > MaxPricingOptions {
			priced[p.ItemID] = pricedItem{}
			continue
		}

		set, err := NewPricingOptionSet(options)
		if err != nil {
			errs.Merge(field, err)
			priced[p.ItemID] = pricedItem{}
			continue
		}
		priced[p.ItemID] = pricedItem{quantity: p.FinalQuantity, set: set, notes: p.AdminNotes}
	}

	for _, item := range o.Items.Active() {
		if _, ok := priced[item.ID]; !ok {
			errs.Add("items", "pricing missing for item %s", item.ID)
		}
	}

	if err := errs.Err("pricing rejected"); err != nil {
		return nil, err
	}
	return priced, nil
}

func (o *Order) applyPricing(priced map[uuid.UUID]pricedItem, now time.Time) {
	for _, item := range o.Items.Active() {
		p := priced[item.ID]
		item.FinalQuantity = p.quantity
		item.Pricing = p.set
		item.AdminNotes = p.notes
		item.UpdatedAt = now
	}
}
