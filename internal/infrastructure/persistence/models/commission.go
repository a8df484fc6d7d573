package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wholesale/orderflow/internal/domain/ordering"
)

// CommissionModel is the persistence model of a dealer commission.
// The unique order index backs the one-commission-per-order rule.
type CommissionModel struct {
	TenantAggregateModel
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	DealerID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	BaseAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Rate             decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsPayable        bool            `gorm:"not null"`
	PayableAt        *time.Time
	IsPaid           bool `gorm:"not null"`
	PaidAt           *time.Time
	PaidBy           *uuid.UUID `gorm:"type:uuid"`
	PaymentReference string     `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (CommissionModel) TableName() string {
	return "commissions"
}

// ToDomain converts the model into a Commission
func (m *CommissionModel) ToDomain() *ordering.Commission {
	return &ordering.Commission{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		OrderID:             m.OrderID,
		DealerID:            m.DealerID,
		BaseAmount:          m.BaseAmount,
		Rate:                m.Rate,
		Amount:              m.Amount,
		IsPayable:           m.IsPayable,
		PayableAt:           m.PayableAt,
		IsPaid:              m.IsPaid,
		PaidAt:              m.PaidAt,
		PaidBy:              m.PaidBy,
		PaymentReference:    m.PaymentReference,
	}
}

// CommissionModelFromDomain creates a persistence model from a Commission
func CommissionModelFromDomain(c *ordering.Commission) *CommissionModel {
	m := &CommissionModel{
		OrderID:          c.OrderID,
		DealerID:         c.DealerID,
		BaseAmount:       c.BaseAmount,
		Rate:             c.Rate,
		Amount:           c.Amount,
		IsPayable:        c.IsPayable,
		PayableAt:        c.PayableAt,
		IsPaid:           c.IsPaid,
		PaidAt:           c.PaidAt,
		PaidBy:           c.PaidBy,
		PaymentReference: c.PaymentReference,
	}
	m.FromTenantAggregateRoot(c.TenantAggregateRoot)
	return m
}

// Columns returns the mutable commission columns written by a versioned update
func (m *CommissionModel) Columns() map[string]any {
	return map[string]any{
		"base_amount":       m.BaseAmount,
		"amount":            m.Amount,
		"is_payable":        m.IsPayable,
		"payable_at":        m.PayableAt,
		"is_paid":           m.IsPaid,
		"paid_at":           m.PaidAt,
		"paid_by":           m.PaidBy,
		"payment_reference": m.PaymentReference,
		"version":           m.Version,
		"updated_at":        m.UpdatedAt,
	}
}

// DealerModel is the read model of the dealers table owned by the dealer directory
type DealerModel struct {
	BaseModel
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name           string          `gorm:"type:varchar(200);not null"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	IsActive       bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DealerModel) TableName() string {
	return "dealers"
}

// ToDomain converts the model into a Dealer
func (m *DealerModel) ToDomain() *ordering.Dealer {
	return &ordering.Dealer{
		ID:             m.ID,
		Name:           m.Name,
		CommissionRate: m.CommissionRate,
		IsActive:       m.IsActive,
	}
}

// ProductModel is the read model of the products table owned by the catalog
type ProductModel struct {
	BaseModel
	TenantID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Name     string           `gorm:"type:varchar(200);not null"`
	TaxRate  *decimal.Decimal `gorm:"type:decimal(9,4)"`
	IsActive bool             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the model into a Product
func (m *ProductModel) ToDomain() ordering.Product {
	return ordering.Product{
		ID:       m.ID,
		Name:     m.Name,
		TaxRate:  m.TaxRate,
		IsActive: m.IsActive,
	}
}
