package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wholesale/orderflow/internal/domain/ordering"
)

// OrderModel is the persistence model of the Order aggregate.
// The dealer assignment is stored inline; a nil DealerID means unassigned.
type OrderModel struct {
	TenantAggregateModel
	CustomerID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	CustomerName        string               `gorm:"type:varchar(200);not null"`
	Status              ordering.OrderStatus `gorm:"type:varchar(40);not null;index"`
	InvoiceType         ordering.InvoiceType `gorm:"type:varchar(20);not null"`
	InvoiceTypeSwitched bool                 `gorm:"not null"`
	AdminComment        string               `gorm:"type:text"`
	CustomerComment     string               `gorm:"type:text"`
	QuotedTotal         *decimal.Decimal     `gorm:"type:decimal(18,4)"`
	StatusReason        string               `gorm:"type:text"`
	ConfirmedAt         *time.Time
	CompletedAt         *time.Time
	RejectedAt          *time.Time
	CancelledAt         *time.Time

	DealerID             *uuid.UUID       `gorm:"type:uuid;index"`
	DealerName           string           `gorm:"type:varchar(200)"`
	DealerAssignedAt     *time.Time
	DealerAssignedBy     *uuid.UUID       `gorm:"type:uuid"`
	DealerNotes          string           `gorm:"type:text"`
	DealerCommissionRate *decimal.Decimal `gorm:"type:decimal(9,4)"`

	Items    []OrderItemModel      `gorm:"foreignKey:OrderID;references:ID"`
	Receipts []PaymentReceiptModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model, including loaded children, into an Order
func (m *OrderModel) ToDomain() *ordering.Order {
	o := &ordering.Order{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		CustomerID:          m.CustomerID,
		CustomerName:        m.CustomerName,
		Status:              m.Status,
		InvoiceType:         m.InvoiceType,
		InvoiceTypeSwitched: m.InvoiceTypeSwitched,
		AdminComment:        m.AdminComment,
		CustomerComment:     m.CustomerComment,
		QuotedTotal:         m.QuotedTotal,
		StatusReason:        m.StatusReason,
		ConfirmedAt:         m.ConfirmedAt,
		CompletedAt:         m.CompletedAt,
		RejectedAt:          m.RejectedAt,
		CancelledAt:         m.CancelledAt,
		Items:               make(ordering.ItemLedger, 0, len(m.Items)),
		Receipts:            make([]ordering.PaymentReceipt, 0, len(m.Receipts)),
	}

	if m.DealerID != nil {
		a := &ordering.DealerAssignment{
			DealerID:   *m.DealerID,
			DealerName: m.DealerName,
			Notes:      m.DealerNotes,
		}
		if m.DealerAssignedAt != nil {
			a.AssignedAt = *m.DealerAssignedAt
		}
		if m.DealerAssignedBy != nil {
			a.AssignedBy = *m.DealerAssignedBy
		}
		if m.DealerCommissionRate != nil {
			a.CommissionRateSnapshot = *m.DealerCommissionRate
		}
		o.DealerAssignment = a
	}

	for i := range m.Items {
		o.Items = append(o.Items, m.Items[i].ToDomain())
	}
	for i := range m.Receipts {
		o.Receipts = append(o.Receipts, m.Receipts[i].ToDomain())
	}
	return o
}

// OrderModelFromDomain creates a persistence model, children included, from an Order
func OrderModelFromDomain(o *ordering.Order) *OrderModel {
	m := &OrderModel{
		CustomerID:          o.CustomerID,
		CustomerName:        o.CustomerName,
		Status:              o.Status,
		InvoiceType:         o.InvoiceType,
		InvoiceTypeSwitched: o.InvoiceTypeSwitched,
		AdminComment:        o.AdminComment,
		CustomerComment:     o.CustomerComment,
		QuotedTotal:         o.QuotedTotal,
		StatusReason:        o.StatusReason,
		ConfirmedAt:         o.ConfirmedAt,
		CompletedAt:         o.CompletedAt,
		RejectedAt:          o.RejectedAt,
		CancelledAt:         o.CancelledAt,
	}
	m.FromTenantAggregateRoot(o.TenantAggregateRoot)

	if a := o.DealerAssignment; a != nil {
		dealerID, assignedBy, assignedAt, rate := a.DealerID, a.AssignedBy, a.AssignedAt, a.CommissionRateSnapshot
		m.DealerID = &dealerID
		m.DealerName = a.DealerName
		m.DealerAssignedAt = &assignedAt
		m.DealerAssignedBy = &assignedBy
		m.DealerNotes = a.Notes
		m.DealerCommissionRate = &rate
	}

	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i] = OrderItemModelFromDomain(&o.Items[i])
	}
	m.Receipts = make([]PaymentReceiptModel, len(o.Receipts))
	for i := range o.Receipts {
		m.Receipts[i] = PaymentReceiptModelFromDomain(&o.Receipts[i])
	}
	return m
}

// Columns returns the mutable order columns written by a versioned update
func (m *OrderModel) Columns() map[string]any {
	return map[string]any{
		"customer_name":          m.CustomerName,
		"status":                 m.Status,
		"invoice_type":           m.InvoiceType,
		"invoice_type_switched":  m.InvoiceTypeSwitched,
		"admin_comment":          m.AdminComment,
		"customer_comment":       m.CustomerComment,
		"quoted_total":           m.QuotedTotal,
		"status_reason":          m.StatusReason,
		"confirmed_at":           m.ConfirmedAt,
		"completed_at":           m.CompletedAt,
		"rejected_at":            m.RejectedAt,
		"cancelled_at":           m.CancelledAt,
		"dealer_id":              m.DealerID,
		"dealer_name":            m.DealerName,
		"dealer_assigned_at":     m.DealerAssignedAt,
		"dealer_assigned_by":     m.DealerAssignedBy,
		"dealer_notes":           m.DealerNotes,
		"dealer_commission_rate": m.DealerCommissionRate,
		"version":                m.Version,
		"updated_at":             m.UpdatedAt,
	}
}

// OrderItemModel is the persistence model of an order line. Removed lines keep their row.
type OrderItemModel struct {
	BaseModel
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName       string          `gorm:"type:varchar(200);not null"`
	RequestedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	FinalQuantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRate           decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	IsActive          bool            `gorm:"not null"`
	RemovedAt         *time.Time
	AdminNotes        string `gorm:"type:text"`
	CustomerNotes     string `gorm:"type:text"`

	Options []PricingOptionModel `gorm:"foreignKey:ItemID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the model into an OrderItem
func (m *OrderItemModel) ToDomain() ordering.OrderItem {
	options := make([]ordering.PricingOption, len(m.Options))
	for i := range m.Options {
		options[i] = m.Options[i].ToDomain()
	}
	return ordering.OrderItem{
		ID:                m.ID,
		OrderID:           m.OrderID,
		ProductID:         m.ProductID,
		ProductName:       m.ProductName,
		RequestedQuantity: m.RequestedQuantity,
		FinalQuantity:     m.FinalQuantity,
		TaxRate:           m.TaxRate,
		IsActive:          m.IsActive,
		RemovedAt:         m.RemovedAt,
		AdminNotes:        m.AdminNotes,
		CustomerNotes:     m.CustomerNotes,
		Pricing:           ordering.RestorePricingOptionSet(options),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// OrderItemModelFromDomain creates a persistence model from an OrderItem
func OrderItemModelFromDomain(i *ordering.OrderItem) OrderItemModel {
	m := OrderItemModel{
		BaseModel:         BaseModel{ID: i.ID, CreatedAt: i.CreatedAt, UpdatedAt: i.UpdatedAt},
		OrderID:           i.OrderID,
		ProductID:         i.ProductID,
		ProductName:       i.ProductName,
		RequestedQuantity: i.RequestedQuantity,
		FinalQuantity:     i.FinalQuantity,
		TaxRate:           i.TaxRate,
		IsActive:          i.IsActive,
		RemovedAt:         i.RemovedAt,
		AdminNotes:        i.AdminNotes,
		CustomerNotes:     i.CustomerNotes,
	}
	options := i.Pricing.Options()
	m.Options = make([]PricingOptionModel, len(options))
	for pos, opt := range options {
		m.Options[pos] = PricingOptionModelFromDomain(i.ID, pos, opt)
	}
	return m
}

// PricingOptionModel is one quoted option of an item. Position keeps the admin's ordering.
type PricingOptionModel struct {
	ID                 uuid.UUID            `gorm:"type:uuid;primaryKey"`
	ItemID             uuid.UUID            `gorm:"type:uuid;not null;index"`
	Position           int                  `gorm:"not null"`
	PaymentTerm        ordering.PaymentTerm `gorm:"type:varchar(20);not null"`
	CustomLabel        string               `gorm:"type:varchar(100)"`
	UnitPrice          decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	DiscountPercentage decimal.Decimal      `gorm:"type:decimal(9,4);not null"`
	IsSelected         bool                 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PricingOptionModel) TableName() string {
	return "order_pricing_options"
}

// ToDomain converts the model into a PricingOption
func (m *PricingOptionModel) ToDomain() ordering.PricingOption {
	return ordering.PricingOption{
		ID:                 m.ID,
		Term:               m.PaymentTerm,
		CustomLabel:        m.CustomLabel,
		UnitPrice:          m.UnitPrice,
		DiscountPercentage: m.DiscountPercentage,
		IsSelected:         m.IsSelected,
	}
}

// PricingOptionModelFromDomain creates a persistence model for the option at position
func PricingOptionModelFromDomain(itemID uuid.UUID, position int, o ordering.PricingOption) PricingOptionModel {
	return PricingOptionModel{
		ID:                 o.ID,
		ItemID:             itemID,
		Position:           position,
		PaymentTerm:        o.Term,
		CustomLabel:        o.CustomLabel,
		UnitPrice:          o.UnitPrice,
		DiscountPercentage: o.DiscountPercentage,
		IsSelected:         o.IsSelected,
	}
}

// PaymentReceiptModel is the persistence model of uploaded payment evidence
type PaymentReceiptModel struct {
	ID         uuid.UUID                `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	FileKey    string                   `gorm:"type:varchar(500);not null"`
	FileType   ordering.ReceiptFileType `gorm:"type:varchar(20);not null"`
	UploadedBy uuid.UUID                `gorm:"type:uuid;not null"`
	UploadedAt time.Time                `gorm:"not null"`
	Status     ordering.ReceiptStatus   `gorm:"type:varchar(20);not null"`
	AdminNotes string                   `gorm:"type:text"`
	ReviewedBy *uuid.UUID               `gorm:"type:uuid"`
	ReviewedAt *time.Time
}

// TableName returns the table name for GORM
func (PaymentReceiptModel) TableName() string {
	return "payment_receipts"
}

// ToDomain converts the model into a PaymentReceipt
func (m *PaymentReceiptModel) ToDomain() ordering.PaymentReceipt {
	return ordering.PaymentReceipt{
		ID:         m.ID,
		OrderID:    m.OrderID,
		FileKey:    m.FileKey,
		FileType:   m.FileType,
		UploadedBy: m.UploadedBy,
		UploadedAt: m.UploadedAt,
		Status:     m.Status,
		AdminNotes: m.AdminNotes,
		ReviewedBy: m.ReviewedBy,
		ReviewedAt: m.ReviewedAt,
	}
}

// PaymentReceiptModelFromDomain creates a persistence model from a PaymentReceipt
func PaymentReceiptModelFromDomain(r *ordering.PaymentReceipt) PaymentReceiptModel {
	return PaymentReceiptModel{
		ID:         r.ID,
		OrderID:    r.OrderID,
		FileKey:    r.FileKey,
		FileType:   r.FileType,
		UploadedBy: r.UploadedBy,
		UploadedAt: r.UploadedAt,
		Status:     r.Status,
		AdminNotes: r.AdminNotes,
		ReviewedBy: r.ReviewedBy,
		ReviewedAt: r.ReviewedAt,
	}
}
