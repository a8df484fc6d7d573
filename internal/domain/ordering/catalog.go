package ordering

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate applies when a product record carries no tax rate
var DefaultTaxRate = decimal.NewFromInt(10)

// Product is the read-only view of a catalog product used to snapshot item data
type Product struct {
	ID       uuid.UUID
	Name     string
	TaxRate  *decimal.Decimal
	IsActive bool
}

// EffectiveTaxRate returns the product tax rate, defaulting to DefaultTaxRate
func (p Product) EffectiveTaxRate() decimal.Decimal {
	if p.TaxRate == nil {
		return DefaultTaxRate
	}
	return *p.TaxRate
}

// Dealer is the read-only view of a sales agent
type Dealer struct {
	ID             uuid.UUID
	Name           string
	CommissionRate decimal.Decimal
	IsActive       bool
}
