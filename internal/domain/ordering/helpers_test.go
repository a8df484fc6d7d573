package ordering

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testActor() shared.Actor {
	return shared.Actor{UserID: uuid.New(), TenantID: uuid.New(), Role: shared.RoleAdmin}
}

func newTestOrder(t *testing.T, invoiceType InvoiceType, quantities ...string) *Order {
	t.Helper()
	if len(quantities) == 0 {
		quantities = []string{"10"}
	}
	items := make([]NewItemInput, len(quantities))
	for i, q := range quantities {
		items[i] = NewItemInput{
			Product:  Product{ID: uuid.New(), Name: "Widget", IsActive: true},
			Quantity: dec(q),
		}
	}
	order, err := NewOrder(testActor(), uuid.New(), "Acme Wholesale", invoiceType, "", items)
	require.NoError(t, err)
	return order
}

func option(term PaymentTerm, price string) PricingOptionInput {
	return PricingOptionInput{Term: term, UnitPrice: dec(price), DiscountPercentage: decimal.Zero}
}

// standardPricing offers instant at 100 and 1_month at 110 for every active item, keeping quantities
func standardPricing(o *Order) []ItemPricing {
	pricing := make([]ItemPricing, 0)
	for _, item := range o.Items.Active() {
		pricing = append(pricing, ItemPricing{
			ItemID:        item.ID,
			FinalQuantity: item.FinalQuantity,
			Options:       []PricingOptionInput{option(TermInstant, "100"), option(Term1Month, "110")},
		})
	}
	return pricing
}

func pricedOrder(t *testing.T, invoiceType InvoiceType, quantities ...string) *Order {
	t.Helper()
	o := newTestOrder(t, invoiceType, quantities...)
	require.NoError(t, o.SubmitPricing(testActor(), standardPricing(o), "quoted"))
	return o
}

func confirmedOrder(t *testing.T, invoiceType InvoiceType, quantities ...string) *Order {
	t.Helper()
	o := pricedOrder(t, invoiceType, quantities...)
	for _, item := range o.Items.Active() {
		require.NoError(t, o.SelectOption(item.ID, OptionKey{Term: TermInstant}))
	}
	require.NoError(t, o.ApproveSelections(testActor(), ""))
	return o
}

func requireKind(t *testing.T, err error, kind shared.ErrorKind) *shared.DomainError {
	t.Helper()
	require.Error(t, err)
	de, ok := err.(*shared.DomainError)
	require.True(t, ok, "expected *shared.DomainError, got %T", err)
	require.Equal(t, kind, de.Kind, de.Error())
	return de
}
