package ordering

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

// ============================================
// Creation
// ============================================

func TestNewOrder(t *testing.T) {
	t.Run("creates pending order with tax rate snapshots", func(t *testing.T) {
		rate := dec("7")
		order, err := NewOrder(testActor(), uuid.New(), "Acme", InvoiceTypeOfficial, "asap", []NewItemInput{
			{Product: Product{ID: uuid.New(), Name: "A", TaxRate: &rate}, Quantity: dec("3")},
			{Product: Product{ID: uuid.New(), Name: "B"}, Quantity: dec("1")},
		})
		require.NoError(t, err)

		assert.Equal(t, StatusPendingPricing, order.Status)
		assert.Nil(t, order.QuotedTotal)
		assert.Equal(t, 1, order.Version)
		require.Len(t, order.Items, 2)
		assert.True(t, order.Items[0].TaxRate.Equal(dec("7")))
		assert.True(t, order.Items[1].TaxRate.Equal(DefaultTaxRate))
		assert.True(t, order.Items[0].RequestedQuantity.Equal(order.Items[0].FinalQuantity))
		require.Len(t, order.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeOrderCreated, order.GetDomainEvents()[0].EventType())
	})

	t.Run("collects field errors", func(t *testing.T) {
		_, err := NewOrder(testActor(), uuid.Nil, "", InvoiceType("receipt"), "", []NewItemInput{
			{Product: Product{ID: uuid.New()}, Quantity: dec("0")},
		})
		de := requireKind(t, err, shared.KindValidation)
		fields := make([]string, 0, len(de.Details))
		for _, d := range de.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"customer_id", "customer_name", "business_invoice_type", "items[0].quantity"}, fields)
	})
}

// ============================================
// Pricing submission
// ============================================

func TestOrder_SubmitPricing(t *testing.T) {
	t.Run("2 to 10 priced options move order to waiting approval", func(t *testing.T) {
		for _, n := range []int{2, 10} {
			o := newTestOrder(t, InvoiceTypeUnofficial, "5", "2")
			pricing := standardPricing(o)
			for i := range pricing {
				pricing[i].Options = nOptions(n)
			}
			require.NoError(t, o.SubmitPricing(testActor(), pricing, "see quote"))
			assert.Equal(t, StatusWaitingCustomerApproval, o.Status)
			assert.Equal(t, "see quote", o.AdminComment)
			assert.Nil(t, o.QuotedTotal, "totals stay pending until a selection exists")
			assert.True(t, o.Totals().Pending)
		}
	})

	t.Run("1 or 11 options fail and leave status unchanged", func(t *testing.T) {
		for _, n := range []int{1, 11} {
			o := newTestOrder(t, InvoiceTypeUnofficial, "5")
			pricing := standardPricing(o)
			pricing[0].Options = nOptions(n)

			err := o.SubmitPricing(testActor(), pricing, "")
			de := requireKind(t, err, shared.KindValidation)
			assert.Equal(t, StatusPendingPricing, o.Status)
			assert.True(t, o.Items[0].Pricing.IsEmpty())
			assert.Contains(t, de.Error(), o.Items[0].ID.String())
		}
	})

	t.Run("custom option needs a label", func(t *testing.T) {
		o := newTestOrder(t, InvoiceTypeUnofficial, "5")
		pricing := standardPricing(o)
		pricing[0].Options = append(pricing[0].Options, PricingOptionInput{Term: TermCustom, UnitPrice: dec("120")})

		err := o.SubmitPricing(testActor(), pricing, "")
		de := requireKind(t, err, shared.KindValidation)
		assert.Equal(t, "items[0].pricing_options[2].custom_term_label", de.Details[0].Field)
		assert.Equal(t, StatusPendingPricing, o.Status)

		pricing[0].Options[2].CustomLabel = "45 days"
		require.NoError(t, o.SubmitPricing(testActor(), pricing, ""))
		assert.Equal(t, StatusWaitingCustomerApproval, o.Status)
	})

	t.Run("every active item must be priced", func(t *testing.T) {
		o := newTestOrder(t, InvoiceTypeUnofficial, "5", "6")
		pricing := standardPricing(o)[:1]

		err := o.SubmitPricing(testActor(), pricing, "")
		de := requireKind(t, err, shared.KindValidation)
		assert.Equal(t, "items", de.Details[0].Field)
		assert.Contains(t, de.Details[0].Message, o.Items[1].ID.String())
	})

	t.Run("non-positive final quantity rejected", func(t *testing.T) {
		o := newTestOrder(t, InvoiceTypeUnofficial, "5")
		pricing := standardPricing(o)
		pricing[0].FinalQuantity = decimal.Zero

		err := o.SubmitPricing(testActor(), pricing, "")
		requireKind(t, err, shared.KindValidation)
	})

	t.Run("unknown item is not found", func(t *testing.T) {
		o := newTestOrder(t, InvoiceTypeUnofficial, "5")
		pricing := standardPricing(o)
		pricing[0].ItemID = uuid.New()

		err := o.SubmitPricing(testActor(), pricing, "")
		requireKind(t, err, shared.KindNotFound)
	})

	t.Run("second submission is an invalid state", func(t *testing.T) {
		o := pricedOrder(t, InvoiceTypeUnofficial)
		err := o.SubmitPricing(testActor(), standardPricing(o), "")
		requireKind(t, err, shared.KindInvalidState)
	})
}

func nOptions(n int) []PricingOptionInput {
	terms := []PaymentTerm{TermInstant, Term1Month, Term2Month, Term3Month}
	opts := make([]PricingOptionInput, 0, n)
	for i := 0; i < n; i++ {
		if i < len(terms) {
			opts = append(opts, option(terms[i], "100"))
			continue
		}
		opts = append(opts, PricingOptionInput{Term: TermCustom, CustomLabel: fmt.Sprintf("%d days", i*15), UnitPrice: dec("100")})
	}
	return opts
}

// ============================================
// Selection and confirmation
// ============================================

func TestOrder_SelectionAndTotals(t *testing.T) {
	o := newTestOrder(t, InvoiceTypeUnofficial, "10", "4")
	pricing := []ItemPricing{
		{
			ItemID:        o.Items[0].ID,
			FinalQuantity: dec("12"),
			Options: []PricingOptionInput{
				{Term: TermInstant, UnitPrice: dec("100"), DiscountPercentage: dec("10")},
				{Term: Term2Month, UnitPrice: dec("110"), DiscountPercentage: dec("0")},
			},
		},
		{
			ItemID:        o.Items[1].ID,
			FinalQuantity: dec("4"),
			Options: []PricingOptionInput{
				{Term: TermInstant, UnitPrice: dec("250"), DiscountPercentage: dec("0")},
				{Term: TermCustom, CustomLabel: "45 days", UnitPrice: dec("260"), DiscountPercentage: dec("5")},
			},
		},
	}
	require.NoError(t, o.SubmitPricing(testActor(), pricing, ""))

	require.NoError(t, o.SelectOption(o.Items[0].ID, OptionKey{Term: Term2Month}))
	require.NoError(t, o.SelectOption(o.Items[0].ID, OptionKey{Term: TermInstant}))
	assert.Nil(t, o.QuotedTotal, "second item still pending")

	require.NoError(t, o.SelectOption(o.Items[1].ID, OptionKey{Term: TermCustom, Label: "45 days"}))

	selected := 0
	for _, opt := range o.Items[0].Pricing.Options() {
		if opt.IsSelected {
			selected++
		}
	}
	assert.Equal(t, 1, selected, "re-selecting replaces instead of duplicating")

	// 100*12*0.9 + 260*4*0.95
	expected := dec("1080").Add(dec("988"))
	require.NotNil(t, o.QuotedTotal)
	assert.True(t, expected.Equal(*o.QuotedTotal), "got %s", o.QuotedTotal)

	require.NoError(t, o.ApproveSelections(testActor(), "thanks"))
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.NotNil(t, o.ConfirmedAt)
	assert.Equal(t, "thanks", o.CustomerComment)
}

func TestOrder_SelectOption_Guards(t *testing.T) {
	t.Run("not selectable while pending pricing", func(t *testing.T) {
		o := newTestOrder(t, InvoiceTypeUnofficial)
		err := o.SelectOption(o.Items[0].ID, OptionKey{Term: TermInstant})
		requireKind(t, err, shared.KindInvalidState)
	})

	t.Run("unknown term is not found", func(t *testing.T) {
		o := pricedOrder(t, InvoiceTypeUnofficial)
		err := o.SelectOption(o.Items[0].ID, OptionKey{Term: Term3Month})
		requireKind(t, err, shared.KindNotFound)
	})

	t.Run("approval requires a selection per active item", func(t *testing.T) {
		o := pricedOrder(t, InvoiceTypeUnofficial, "1", "2")
		require.NoError(t, o.SelectOption(o.Items[0].ID, OptionKey{Term: TermInstant}))

		err := o.ApproveSelections(testActor(), "")
		de := requireKind(t, err, shared.KindValidation)
		require.Len(t, de.Details, 1)
		assert.Contains(t, de.Details[0].Message, o.Items[1].ID.String())
		assert.Equal(t, StatusWaitingCustomerApproval, o.Status)
	})
}

// ============================================
// Soft deletion
// ============================================

func TestOrder_RemoveItem(t *testing.T) {
	o := pricedOrder(t, InvoiceTypeUnofficial, "10", "5")
	removed := o.Items[1].ID
	for _, item := range o.Items.Active() {
		require.NoError(t, o.SelectOption(item.ID, OptionKey{Term: TermInstant}))
	}
	require.NotNil(t, o.QuotedTotal)
	assert.True(t, dec("1500").Equal(*o.QuotedTotal))

	require.NoError(t, o.RemoveItem(testActor(), removed))

	require.NotNil(t, o.QuotedTotal)
	assert.True(t, dec("1000").Equal(*o.QuotedTotal), "removed item no longer counted")
	assert.Len(t, o.Items.Active(), 1)

	item, err := o.Items.Find(removed)
	require.NoError(t, err)
	assert.False(t, item.IsActive)
	assert.NotNil(t, item.RemovedAt)
	assert.Equal(t, 2, item.Pricing.Len(), "options remain for audit")

	_, err = o.Items.FindActive(removed)
	requireKind(t, err, shared.KindNotFound)

	err = o.RemoveItem(testActor(), o.Items[0].ID)
	requireKind(t, err, shared.KindValidation)

	err = o.RemoveItem(testActor(), removed)
	requireKind(t, err, shared.KindInvalidState)
}

// ============================================
// Re-pricing
// ============================================

func TestOrder_UpdatePricing(t *testing.T) {
	t.Run("notified re-price clears selections and returns confirmed order to approval", func(t *testing.T) {
		o := confirmedOrder(t, InvoiceTypeUnofficial, "10")
		_, err := o.AddReceipt(testActor(), "receipts/a.png", ReceiptFileImage)
		require.NoError(t, err)
		require.Equal(t, StatusPaymentUploaded, o.Status)

		require.NoError(t, o.UpdatePricing(testActor(), standardPricing(o), "new prices", true))

		assert.Equal(t, StatusWaitingCustomerApproval, o.Status)
		assert.False(t, o.Items[0].HasSelection())
		assert.Nil(t, o.QuotedTotal)
		assert.Nil(t, o.ConfirmedAt)
		assert.Empty(t, o.PendingReceipts(), "pending receipt superseded")
	})

	t.Run("silent re-price keeps selection when term survives", func(t *testing.T) {
		o := confirmedOrder(t, InvoiceTypeUnofficial, "10")
		pricing := standardPricing(o)
		pricing[0].Options[0].UnitPrice = dec("90")

		require.NoError(t, o.UpdatePricing(testActor(), pricing, "", false))

		assert.Equal(t, StatusConfirmed, o.Status)
		require.NotNil(t, o.QuotedTotal)
		assert.True(t, dec("900").Equal(*o.QuotedTotal))
	})

	t.Run("silent re-price dropping the selected term is rejected on confirmed orders", func(t *testing.T) {
		o := confirmedOrder(t, InvoiceTypeUnofficial, "10")
		pricing := standardPricing(o)
		pricing[0].Options = []PricingOptionInput{option(Term2Month, "120"), option(Term3Month, "130")}

		err := o.UpdatePricing(testActor(), pricing, "", false)
		requireKind(t, err, shared.KindValidation)
		assert.Equal(t, StatusConfirmed, o.Status)
		selected, ok := o.Items[0].Pricing.Selected()
		require.True(t, ok)
		assert.Equal(t, TermInstant, selected.Term)
	})

	t.Run("not allowed before first pricing", func(t *testing.T) {
		o := newTestOrder(t, InvoiceTypeUnofficial)
		err := o.UpdatePricing(testActor(), standardPricing(o), "", true)
		requireKind(t, err, shared.KindInvalidState)
	})

	t.Run("completed order is locked", func(t *testing.T) {
		o := confirmedOrder(t, InvoiceTypeUnofficial)
		require.NoError(t, o.Complete(testActor()))
		err := o.UpdatePricing(testActor(), standardPricing(o), "", true)
		requireKind(t, err, shared.KindLocked)
	})
}

// ============================================
// Invoice type
// ============================================

func TestOrder_SetInvoiceType(t *testing.T) {
	o := confirmedOrder(t, InvoiceTypeUnofficial, "10")
	require.NotNil(t, o.QuotedTotal)
	before := *o.QuotedTotal

	require.NoError(t, o.SetInvoiceType(testActor(), InvoiceTypeOfficial))
	require.NotNil(t, o.QuotedTotal)
	assert.True(t, dec("1100").Equal(*o.QuotedTotal), "10%% default tax added, got %s", o.QuotedTotal)
	assert.False(t, before.Equal(*o.QuotedTotal))

	require.NoError(t, o.SetInvoiceType(testActor(), InvoiceTypeOfficial), "same type is a no-op")

	err := o.SetInvoiceType(testActor(), InvoiceTypeUnofficial)
	requireKind(t, err, shared.KindConflict)

	err = o.SetInvoiceType(testActor(), InvoiceType("proforma"))
	requireKind(t, err, shared.KindValidation)
}

func TestOrder_SetInvoiceType_LockedWhenCompleted(t *testing.T) {
	o := confirmedOrder(t, InvoiceTypeUnofficial)
	require.NoError(t, o.Complete(testActor()))

	err := o.SetInvoiceType(testActor(), InvoiceTypeOfficial)
	requireKind(t, err, shared.KindLocked)
	assert.Equal(t, InvoiceTypeUnofficial, o.InvoiceType)
}

// ============================================
// Dealer assignment
// ============================================

func TestOrder_DealerAssignment(t *testing.T) {
	o := pricedOrder(t, InvoiceTypeUnofficial)
	dealer := Dealer{ID: uuid.New(), Name: "North", CommissionRate: dec("5"), IsActive: true}

	require.NoError(t, o.AssignDealer(testActor(), dealer, "regional"))
	require.NotNil(t, o.DealerAssignment)
	assert.True(t, o.DealerAssignment.CommissionRateSnapshot.Equal(dec("5")))

	dealer.CommissionRate = dec("8")
	assert.True(t, o.DealerAssignment.CommissionRateSnapshot.Equal(dec("5")), "snapshot independent of later rate changes")

	err := o.AssignDealer(testActor(), Dealer{ID: uuid.New(), CommissionRate: dec("3"), IsActive: true}, "")
	requireKind(t, err, shared.KindConflict)

	require.NoError(t, o.UnassignDealer(testActor()))
	assert.Nil(t, o.DealerAssignment)
	requireKind(t, o.UnassignDealer(testActor()), shared.KindInvalidState)

	err = o.AssignDealer(testActor(), Dealer{ID: uuid.New(), CommissionRate: dec("3"), IsActive: false}, "")
	requireKind(t, err, shared.KindValidation)
}

// ============================================
// Payment evidence
// ============================================

func TestOrder_PaymentEvidence(t *testing.T) {
	t.Run("receipt only accepted once confirmed", func(t *testing.T) {
		o := pricedOrder(t, InvoiceTypeUnofficial)
		_, err := o.AddReceipt(testActor(), "r.pdf", ReceiptFilePDF)
		requireKind(t, err, shared.KindInvalidState)
	})

	t.Run("invalid file type rejected", func(t *testing.T) {
		o := confirmedOrder(t, InvoiceTypeUnofficial)
		_, err := o.AddReceipt(testActor(), "r.doc", ReceiptFileType("doc"))
		requireKind(t, err, shared.KindValidation)
		assert.Equal(t, StatusConfirmed, o.Status)
	})

	t.Run("rejected payment reverts to confirmed", func(t *testing.T) {
		o := confirmedOrder(t, InvoiceTypeUnofficial)
		_, err := o.AddReceipt(testActor(), "r1.png", ReceiptFileImage)
		require.NoError(t, err)
		assert.Equal(t, StatusPaymentUploaded, o.Status)

		require.NoError(t, o.VerifyPayment(testActor(), false, "blurry"))
		assert.Equal(t, StatusConfirmed, o.Status)
		assert.Equal(t, ReceiptRejected, o.Receipts[0].Status)
		assert.Equal(t, "blurry", o.Receipts[0].AdminNotes)
		assert.Nil(t, o.CompletedAt)
	})

	t.Run("verified payment completes once", func(t *testing.T) {
		o := confirmedOrder(t, InvoiceTypeUnofficial)
		_, err := o.AddReceipt(testActor(), "r1.png", ReceiptFileImage)
		require.NoError(t, err)
		_, err = o.AddReceipt(testActor(), "r2.pdf", ReceiptFilePDF)
		require.NoError(t, err)

		require.NoError(t, o.VerifyPayment(testActor(), true, "ok"))
		assert.Equal(t, StatusCompleted, o.Status)
		assert.NotNil(t, o.CompletedAt)
		assert.True(t, o.Receipts[0].IsVerified())
		assert.True(t, o.Receipts[1].IsVerified())

		err = o.VerifyPayment(testActor(), true, "again")
		requireKind(t, err, shared.KindInvalidState)

		_, err = o.AddReceipt(testActor(), "r3.png", ReceiptFileImage)
		requireKind(t, err, shared.KindLocked)
	})

	t.Run("verification needs payment_uploaded", func(t *testing.T) {
		o := confirmedOrder(t, InvoiceTypeUnofficial)
		err := o.VerifyPayment(testActor(), true, "")
		requireKind(t, err, shared.KindInvalidState)
	})
}

func TestOrder_Complete(t *testing.T) {
	o := confirmedOrder(t, InvoiceTypeUnofficial)
	require.NoError(t, o.Complete(testActor()))
	assert.Equal(t, StatusCompleted, o.Status)
	assert.NotNil(t, o.CompletedAt)

	requireKind(t, o.Complete(testActor()), shared.KindInvalidState)
	requireKind(t, o.RemoveItem(testActor(), o.Items[0].ID), shared.KindLocked)
	requireKind(t, o.AssignDealer(testActor(), Dealer{ID: uuid.New(), IsActive: true}, ""), shared.KindLocked)
}

// ============================================
// Reject / cancel
// ============================================

func TestOrder_RejectAndCancel(t *testing.T) {
	t.Run("reject from waiting approval", func(t *testing.T) {
		o := pricedOrder(t, InvoiceTypeUnofficial)
		require.NoError(t, o.Reject(testActor(), "too expensive"))
		assert.Equal(t, StatusRejected, o.Status)
		assert.Equal(t, "too expensive", o.StatusReason)
		requireKind(t, o.Cancel(testActor(), ""), shared.KindInvalidState)
		requireKind(t, o.SetInvoiceType(testActor(), InvoiceTypeOfficial), shared.KindInvalidState)
	})

	t.Run("cannot reject before pricing", func(t *testing.T) {
		o := newTestOrder(t, InvoiceTypeUnofficial)
		requireKind(t, o.Reject(testActor(), ""), shared.KindInvalidState)
	})

	t.Run("cancel pending order", func(t *testing.T) {
		o := newTestOrder(t, InvoiceTypeUnofficial)
		require.NoError(t, o.Cancel(testActor(), "duplicate"))
		assert.Equal(t, StatusCancelled, o.Status)
		assert.NotNil(t, o.CancelledAt)
	})

	t.Run("cannot cancel confirmed order", func(t *testing.T) {
		o := confirmedOrder(t, InvoiceTypeUnofficial)
		requireKind(t, o.Cancel(testActor(), ""), shared.KindInvalidState)
		assert.Equal(t, StatusConfirmed, o.Status)
	})
}
