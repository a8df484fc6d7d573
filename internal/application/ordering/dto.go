package ordering

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wholesale/orderflow/internal/domain/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

// ==================== Requests ====================

// CreateOrderRequest is a customer's order submission
type CreateOrderRequest struct {
	CustomerID          uuid.UUID              `json:"customer_id" binding:"required"`
	CustomerName        string                 `json:"customer_name" binding:"required,min=1,max=200"`
	BusinessInvoiceType string                 `json:"business_invoice_type" binding:"required,invoice_type"`
	CustomerComment     string                 `json:"customer_comment" binding:"max=2000"`
	Items               []CreateOrderItemInput `json:"items" binding:"required,min=1,dive"`
}

// CreateOrderItemInput is one requested line
type CreateOrderItemInput struct {
	ProductID     uuid.UUID       `json:"product_id" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
	CustomerNotes string          `json:"customer_notes" binding:"max=1000"`
}

// VersionedRequest carries the optimistic concurrency token. Zero skips the early check.
type VersionedRequest struct {
	Version int `json:"version" binding:"min=0"`
}

// PricingRequest submits multi-option pricing for every active item
type PricingRequest struct {
	VersionedRequest
	Items        []ItemPricingInput `json:"items" binding:"required,min=1,dive"`
	AdminComment string             `json:"admin_comment" binding:"max=2000"`
}

// UpdatePricingRequest re-prices an order already sent to the customer
type UpdatePricingRequest struct {
	PricingRequest
	NotifyCustomer bool `json:"notify_customer"`
}

// ItemPricingInput is the pricing of one item. A nil final quantity keeps the current one.
type ItemPricingInput struct {
	ItemID         uuid.UUID            `json:"item_id" binding:"required"`
	FinalQuantity  *decimal.Decimal     `json:"final_quantity"`
	PricingOptions []PricingOptionInput `json:"pricing_options" binding:"required,dive"`
	AdminNotes     string               `json:"admin_notes" binding:"max=1000"`
}

// PricingOptionInput is one quoted option
type PricingOptionInput struct {
	PaymentTerm        string          `json:"payment_term" binding:"required,payment_term"`
	CustomTermLabel    string          `json:"custom_term_label" binding:"max=100"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// OptionSelectionInput names the option chosen for an item
type OptionSelectionInput struct {
	ItemID          uuid.UUID `json:"item_id" binding:"required"`
	PaymentTerm     string    `json:"payment_term" binding:"required,payment_term"`
	CustomTermLabel string    `json:"custom_term_label" binding:"max=100"`
}

func (in OptionSelectionInput) key() ordering.OptionKey {
	return ordering.OptionKey{Term: ordering.PaymentTerm(in.PaymentTerm), Label: in.CustomTermLabel}
}

// SelectOptionRequest selects one option without confirming the order
type SelectOptionRequest struct {
	VersionedRequest
	OptionSelectionInput
}

// ApprovePricingRequest applies the given selections and confirms the order
type ApprovePricingRequest struct {
	VersionedRequest
	Selections      []OptionSelectionInput `json:"selections" binding:"dive"`
	CustomerComment string                 `json:"customer_comment" binding:"max=2000"`
}

// ReasonRequest carries the reason of a rejection or cancellation
type ReasonRequest struct {
	VersionedRequest
	Reason string `json:"reason" binding:"max=1000"`
}

// AssignDealerRequest attaches a dealer to an order
type AssignDealerRequest struct {
	VersionedRequest
	DealerID uuid.UUID `json:"dealer_id" binding:"required"`
	Notes    string    `json:"notes" binding:"max=1000"`
}

// SetInvoiceTypeRequest switches the invoice type
type SetInvoiceTypeRequest struct {
	VersionedRequest
	BusinessInvoiceType string `json:"business_invoice_type" binding:"required,invoice_type"`
}

// ReceiptUploadRequest asks for a presigned upload URL
type ReceiptUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,min=1,max=255"`
	ContentType string `json:"content_type" binding:"required,receipt_content_type"`
}

// AddReceiptRequest registers an uploaded receipt on the order
type AddReceiptRequest struct {
	VersionedRequest
	FileKey  string `json:"file_key" binding:"required,max=500"`
	FileType string `json:"file_type" binding:"required,oneof=image pdf"`
}

// VerifyPaymentRequest records the admin review of pending receipts
type VerifyPaymentRequest struct {
	VersionedRequest
	PaymentVerified *bool  `json:"payment_verified" binding:"required"`
	PaymentNotes    string `json:"payment_notes" binding:"max=1000"`
}

// PayCommissionsRequest marks commissions paid in bulk
type PayCommissionsRequest struct {
	CommissionIDs    []uuid.UUID `json:"commission_ids" binding:"required,min=1,max=500"`
	PaymentReference string      `json:"payment_reference" binding:"required,max=200"`
}

// ==================== Responses ====================

// OrderResponse is the full order projection
type OrderResponse struct {
	ID                  uuid.UUID                 `json:"id"`
	TenantID            uuid.UUID                 `json:"tenant_id"`
	CustomerID          uuid.UUID                 `json:"customer_id"`
	CustomerName        string                    `json:"customer_name"`
	Status              string                    `json:"status"`
	BusinessInvoiceType string                    `json:"business_invoice_type"`
	InvoiceTypeSwitched bool                      `json:"invoice_type_switched"`
	Items               []OrderItemResponse       `json:"items"`
	Dealer              *DealerAssignmentResponse `json:"dealer,omitempty"`
	Receipts            []ReceiptResponse         `json:"payment_receipts"`
	AdminComment        string                    `json:"admin_comment,omitempty"`
	CustomerComment     string                    `json:"customer_comment,omitempty"`
	QuotedTotal         *decimal.Decimal          `json:"quoted_total"`
	Totals              TotalsResponse            `json:"totals"`
	StatusReason        string                    `json:"status_reason,omitempty"`
	ConfirmedAt         *time.Time                `json:"confirmed_at,omitempty"`
	CompletedAt         *time.Time                `json:"completed_at,omitempty"`
	RejectedAt          *time.Time                `json:"rejected_at,omitempty"`
	CancelledAt         *time.Time                `json:"cancelled_at,omitempty"`
	Version             int                       `json:"version"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

// OrderItemResponse is one line, removed lines included
type OrderItemResponse struct {
	ID                uuid.UUID               `json:"id"`
	ProductID         uuid.UUID               `json:"product_id"`
	ProductName       string                  `json:"product_name"`
	RequestedQuantity decimal.Decimal         `json:"requested_quantity"`
	FinalQuantity     decimal.Decimal         `json:"final_quantity"`
	TaxRate           decimal.Decimal         `json:"tax_rate"`
	IsActive          bool                    `json:"is_active"`
	RemovedAt         *time.Time              `json:"removed_at,omitempty"`
	AdminNotes        string                  `json:"admin_notes,omitempty"`
	CustomerNotes     string                  `json:"customer_notes,omitempty"`
	PricingOptions    []PricingOptionResponse `json:"pricing_options"`
	SelectedOption    *PricingOptionResponse  `json:"selected_option,omitempty"`
}

// PricingOptionResponse is one quote with its line total at the final quantity
type PricingOptionResponse struct {
	ID                 uuid.UUID        `json:"id"`
	PaymentTerm        string           `json:"payment_term"`
	CustomTermLabel    string           `json:"custom_term_label,omitempty"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
	IsSelected         bool             `json:"is_selected"`
	LineTotal          *decimal.Decimal `json:"line_total"`
}

// DealerAssignmentResponse is the dealer attached to an order
type DealerAssignmentResponse struct {
	DealerID       uuid.UUID       `json:"dealer_id"`
	DealerName     string          `json:"dealer_name"`
	AssignedAt     time.Time       `json:"assigned_at"`
	AssignedBy     uuid.UUID       `json:"assigned_by"`
	Notes          string          `json:"notes,omitempty"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

// ReceiptResponse is one piece of payment evidence
type ReceiptResponse struct {
	ID         uuid.UUID  `json:"id"`
	FileKey    string     `json:"file_key"`
	FileType   string     `json:"file_type"`
	Status     string     `json:"status"`
	IsVerified bool       `json:"is_verified"`
	UploadedBy uuid.UUID  `json:"uploaded_by"`
	UploadedAt time.Time  `json:"uploaded_at"`
	AdminNotes string     `json:"admin_notes,omitempty"`
	ReviewedBy *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// PaymentReceiptsResponse lists an order's receipts
type PaymentReceiptsResponse struct {
	OrderID      uuid.UUID         `json:"order_id"`
	Status       string            `json:"status"`
	PendingCount int               `json:"pending_count"`
	Receipts     []ReceiptResponse `json:"receipts"`
}

// ReceiptUploadResponse is a presigned upload target
type ReceiptUploadResponse struct {
	UploadURL string    `json:"upload_url"`
	FileKey   string    `json:"file_key"`
	FileType  string    `json:"file_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TotalsResponse is the invoice projection
type TotalsResponse struct {
	Subtotal decimal.Decimal     `json:"subtotal"`
	Tax      decimal.Decimal     `json:"tax"`
	Total    decimal.Decimal     `json:"total"`
	Pending  bool                `json:"pending"`
	Lines    []LineTotalResponse `json:"lines"`
}

// LineTotalResponse is the invoice breakdown of one active item
type LineTotalResponse struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Pending  bool            `json:"pending"`
}

// InvoiceStatusResponse describes how the order will be invoiced
type InvoiceStatusResponse struct {
	OrderID             uuid.UUID      `json:"order_id"`
	Status              string         `json:"status"`
	BusinessInvoiceType string         `json:"business_invoice_type"`
	IsTaxed             bool           `json:"is_taxed"`
	CanSwitch           bool           `json:"can_switch"`
	Totals              TotalsResponse `json:"totals"`
}

// OrderEventResponse is one audit trail entry
type OrderEventResponse struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload" swaggertype:"object"`
}

// CommissionResponse is a dealer commission
type CommissionResponse struct {
	ID               uuid.UUID       `json:"id"`
	OrderID          uuid.UUID       `json:"order_id"`
	DealerID         uuid.UUID       `json:"dealer_id"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	Rate             decimal.Decimal `json:"rate"`
	Amount           decimal.Decimal `json:"amount"`
	IsPayable        bool            `json:"is_payable"`
	PayableAt        *time.Time      `json:"payable_at,omitempty"`
	IsPaid           bool            `json:"is_paid"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MarkPaidResult reports a bulk payout; ids fail independently.
// Aborted is set when an internal error stopped the batch early.
type MarkPaidResult struct {
	Succeeded []CommissionResponse `json:"succeeded"`
	Failed    []MarkPaidFailure    `json:"failed"`
	Aborted   bool                 `json:"aborted"`
}

// MarkPaidFailure explains why one commission was not paid
type MarkPaidFailure struct {
	ID      uuid.UUID `json:"id"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// ==================== Converters ====================

// ToOrderResponse converts an order aggregate into its projection
func ToOrderResponse(o *ordering.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:                  o.ID,
		TenantID:            o.TenantID,
		CustomerID:          o.CustomerID,
		CustomerName:        o.CustomerName,
		Status:              string(o.Status),
		BusinessInvoiceType: string(o.InvoiceType),
		InvoiceTypeSwitched: o.InvoiceTypeSwitched,
		Items:               make([]OrderItemResponse, len(o.Items)),
		Receipts:            toReceiptResponses(o.Receipts),
		AdminComment:        o.AdminComment,
		CustomerComment:     o.CustomerComment,
		QuotedTotal:         o.QuotedTotal,
		Totals:              toTotalsResponse(o.Totals()),
		StatusReason:        o.StatusReason,
		ConfirmedAt:         o.ConfirmedAt,
		CompletedAt:         o.CompletedAt,
		RejectedAt:          o.RejectedAt,
		CancelledAt:         o.CancelledAt,
		Version:             o.Version,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
	for i := range o.Items {
		resp.Items[i] = toOrderItemResponse(&o.Items[i])
	}
	if a := o.DealerAssignment; a != nil {
		resp.Dealer = &DealerAssignmentResponse{
			DealerID:       a.DealerID,
			DealerName:     a.DealerName,
			AssignedAt:     a.AssignedAt,
			AssignedBy:     a.AssignedBy,
			Notes:          a.Notes,
			CommissionRate: a.CommissionRateSnapshot,
		}
	}
	return resp
}

func toOrderItemResponse(item *ordering.OrderItem) OrderItemResponse {
	options := item.Pricing.Options()
	resp := OrderItemResponse{
		ID:                item.ID,
		ProductID:         item.ProductID,
		ProductName:       item.ProductName,
		RequestedQuantity: item.RequestedQuantity,
		FinalQuantity:     item.FinalQuantity,
		TaxRate:           item.TaxRate,
		IsActive:          item.IsActive,
		RemovedAt:         item.RemovedAt,
		AdminNotes:        item.AdminNotes,
		CustomerNotes:     item.CustomerNotes,
		PricingOptions:    make([]PricingOptionResponse, len(options)),
	}
	for i, opt := range options {
		r := PricingOptionResponse{
			ID:                 opt.ID,
			PaymentTerm:        string(opt.Term),
			CustomTermLabel:    opt.CustomLabel,
			UnitPrice:          opt.UnitPrice,
			DiscountPercentage: opt.DiscountPercentage,
			IsSelected:         opt.IsSelected,
		}
		if total := ordering.ComputeOptionTotal(opt, item.FinalQuantity); !total.Pending {
			amount := total.Amount
			r.LineTotal = &amount
		}
		resp.PricingOptions[i] = r
		if opt.IsSelected {
			selected := r
			resp.SelectedOption = &selected
		}
	}
	return resp
}

func toReceiptResponses(receipts []ordering.PaymentReceipt) []ReceiptResponse {
	out := make([]ReceiptResponse, len(receipts))
	for i := range receipts {
		r := &receipts[i]
		out[i] = ReceiptResponse{
			ID:         r.ID,
			FileKey:    r.FileKey,
			FileType:   string(r.FileType),
			Status:     string(r.Status),
			IsVerified: r.IsVerified(),
			UploadedBy: r.UploadedBy,
			UploadedAt: r.UploadedAt,
			AdminNotes: r.AdminNotes,
			ReviewedBy: r.ReviewedBy,
			ReviewedAt: r.ReviewedAt,
		}
	}
	return out
}

func toTotalsResponse(t ordering.Totals) TotalsResponse {
	resp := TotalsResponse{
		Subtotal: t.Subtotal,
		Tax:      t.Tax,
		Total:    t.Total,
		Pending:  t.Pending,
		Lines:    make([]LineTotalResponse, len(t.Lines)),
	}
	for i, l := range t.Lines {
		resp.Lines[i] = LineTotalResponse{
			ItemID:   l.ItemID,
			Subtotal: l.Subtotal,
			TaxRate:  l.TaxRate,
			Tax:      l.Tax,
			Total:    l.Total,
			Pending:  l.Pending,
		}
	}
	return resp
}

// ToInvoiceStatusResponse projects the invoice view of an order
func ToInvoiceStatusResponse(o *ordering.Order) *InvoiceStatusResponse {
	return &InvoiceStatusResponse{
		OrderID:             o.ID,
		Status:              string(o.Status),
		BusinessInvoiceType: string(o.InvoiceType),
		IsTaxed:             o.InvoiceType.IsTaxed(),
		CanSwitch:           !o.InvoiceTypeSwitched && !o.Status.IsTerminal(),
		Totals:              toTotalsResponse(o.Totals()),
	}
}

// ToCommissionResponse converts a commission aggregate
func ToCommissionResponse(c *ordering.Commission) CommissionResponse {
	return CommissionResponse{
		ID:               c.ID,
		OrderID:          c.OrderID,
		DealerID:         c.DealerID,
		BaseAmount:       c.BaseAmount,
		Rate:             c.Rate,
		Amount:           c.Amount,
		IsPayable:        c.IsPayable,
		PayableAt:        c.PayableAt,
		IsPaid:           c.IsPaid,
		PaidAt:           c.PaidAt,
		PaymentReference: c.PaymentReference,
		Version:          c.Version,
		CreatedAt:        c.CreatedAt,
	}
}

func toOrderEventResponses(entries []*shared.OutboxEntry) []OrderEventResponse {
	out := make([]OrderEventResponse, len(entries))
	for i, e := range entries {
		out[i] = OrderEventResponse{
			EventID:    e.EventID,
			EventType:  e.EventType,
			OccurredAt: e.CreatedAt,
			Payload:    json.RawMessage(e.Payload),
		}
	}
	return out
}
