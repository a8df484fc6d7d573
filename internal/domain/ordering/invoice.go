package ordering

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceType decides whether an order is taxed
type InvoiceType string

const (
	InvoiceTypeOfficial   InvoiceType = "official"
	InvoiceTypeUnofficial InvoiceType = "unofficial"
)

// IsValid checks if the invoice type is known
func (t InvoiceType) IsValid() bool {
	return t == InvoiceTypeOfficial || t == InvoiceTypeUnofficial
}

// IsTaxed reports whether per-item tax is added to totals
func (t InvoiceType) IsTaxed() bool {
	return t == InvoiceTypeOfficial
}

// LineTotals is the invoice breakdown of one active item
type LineTotals struct {
	ItemID   uuid.UUID
	Subtotal decimal.Decimal
	TaxRate  decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Pending  bool
}

// Totals is the invoice projection of an order
type Totals struct {
	InvoiceType InvoiceType
	Lines       []LineTotals
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	// Pending is true while any active item lacks a priced selection
	Pending bool
}

// ComputeTotals derives totals from the active items only.
// Official invoices add subtotal x item tax rate / 100 per line, so rates may differ across lines.
func ComputeTotals(invoiceType InvoiceType, items ItemLedger) Totals {
	totals := Totals{
		InvoiceType: invoiceType,
		Subtotal:    decimal.Zero,
		Tax:         decimal.Zero,
		Total:       decimal.Zero,
	}

	active := items.Active()
	if len(active) == 0 {
		totals.Pending = true
		return totals
	}

	for _, item := range active {
		sub := item.Subtotal()
		line := LineTotals{
			ItemID:   item.ID,
			Subtotal: sub.Amount,
			TaxRate:  decimal.Zero,
			Tax:      decimal.Zero,
			Pending:  sub.Pending,
		}
		if invoiceType.IsTaxed() {
			line.TaxRate = item.TaxRate
			line.Tax = sub.Amount.Mul(item.TaxRate).Div(hundred).Round(MoneyScale)
		}
		line.Total = line.Subtotal.Add(line.Tax)

		if sub.Pending {
			totals.Pending = true
		}
		totals.Subtotal = totals.Subtotal.Add(line.Subtotal)
		totals.Tax = totals.Tax.Add(line.Tax)
		totals.Lines = append(totals.Lines, line)
	}
	totals.Total = totals.Subtotal.Add(totals.Tax)

	return totals
}
