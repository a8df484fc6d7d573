package ordering

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

func mustOption(t *testing.T, term PaymentTerm, label, price, discount string) PricingOption {
	t.Helper()
	opt, err := NewPricingOption(term, label, dec(price), dec(discount))
	require.NoError(t, err)
	return opt
}

func TestNewPricingOption(t *testing.T) {
	tests := []struct {
		name     string
		term     PaymentTerm
		label    string
		price    string
		discount string
		field    string
	}{
		{"valid instant", TermInstant, "", "100", "0", ""},
		{"valid custom with label", TermCustom, "45 days", "120", "5", ""},
		{"custom without label", TermCustom, "", "120", "0", "custom_term_label"},
		{"label on non-custom term", Term2Month, "net 60", "120", "0", "custom_term_label"},
		{"zero price", TermInstant, "", "0", "0", "unit_price"},
		{"negative price", TermInstant, "", "-1", "0", "unit_price"},
		{"discount over 100", TermInstant, "", "10", "100.5", "discount_percentage"},
		{"negative discount", TermInstant, "", "10", "-1", "discount_percentage"},
		{"unknown term", PaymentTerm("weekly"), "", "10", "0", "payment_term"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := NewPricingOption(tt.term, tt.label, dec(tt.price), dec(tt.discount))
			if tt.field == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.term, opt.Term)
				assert.False(t, opt.IsSelected)
				return
			}
			de := requireKind(t, err, shared.KindValidation)
			require.NotEmpty(t, de.Details)
			assert.Equal(t, tt.field, de.Details[0].Field)
		})
	}
}

func TestNewPricingOptionSet_Bounds(t *testing.T) {
	terms := []PaymentTerm{TermInstant, Term1Month, Term2Month, Term3Month}
	build := func(n int) []PricingOption {
		opts := make([]PricingOption, 0, n)
		for i := 0; i < n; i++ {
			if i < len(terms) {
				opts = append(opts, mustOption(t, terms[i], "", "100", "0"))
				continue
			}
			opts = append(opts, mustOption(t, TermCustom, string(rune('a'+i)), "100", "0"))
		}
		return opts
	}

	for _, n := range []int{0, 1, 11} {
		_, err := NewPricingOptionSet(build(n))
		requireKind(t, err, shared.KindValidation)
	}
	for _, n := range []int{2, 5, 10} {
		set, err := NewPricingOptionSet(build(n))
		require.NoError(t, err)
		assert.Equal(t, n, set.Len())
	}
}

func TestNewPricingOptionSet_Uniqueness(t *testing.T) {
	t.Run("duplicate term rejected", func(t *testing.T) {
		_, err := NewPricingOptionSet([]PricingOption{
			mustOption(t, TermInstant, "", "100", "0"),
			mustOption(t, TermInstant, "", "90", "0"),
		})
		requireKind(t, err, shared.KindValidation)
	})

	t.Run("custom may repeat with distinct labels", func(t *testing.T) {
		set, err := NewPricingOptionSet([]PricingOption{
			mustOption(t, TermCustom, "45 days", "100", "0"),
			mustOption(t, TermCustom, "90 days", "110", "0"),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, set.Len())
	})

	t.Run("custom with same label rejected", func(t *testing.T) {
		_, err := NewPricingOptionSet([]PricingOption{
			mustOption(t, TermCustom, "45 days", "100", "0"),
			mustOption(t, TermCustom, "45 days", "110", "0"),
		})
		requireKind(t, err, shared.KindValidation)
	})
}

func TestPricingOptionSet_Select(t *testing.T) {
	set, err := NewPricingOptionSet([]PricingOption{
		mustOption(t, TermInstant, "", "100", "0"),
		mustOption(t, Term1Month, "", "110", "0"),
	})
	require.NoError(t, err)

	require.NoError(t, set.Select(OptionKey{Term: TermInstant}))
	require.NoError(t, set.Select(OptionKey{Term: Term1Month}))

	selectedCount := 0
	for _, opt := range set.Options() {
		if opt.IsSelected {
			selectedCount++
		}
	}
	assert.Equal(t, 1, selectedCount)
	selected, ok := set.Selected()
	require.True(t, ok)
	assert.Equal(t, Term1Month, selected.Term)

	err = set.Select(OptionKey{Term: Term3Month})
	requireKind(t, err, shared.KindNotFound)
	selected, _ = set.Selected()
	assert.Equal(t, Term1Month, selected.Term, "failed select keeps the previous choice")
}

func TestPricingOptionSet_CarrySelectionFrom(t *testing.T) {
	prev, err := NewPricingOptionSet([]PricingOption{
		mustOption(t, TermInstant, "", "100", "0"),
		mustOption(t, TermCustom, "45 days", "110", "0"),
	})
	require.NoError(t, err)
	require.NoError(t, prev.Select(OptionKey{Term: TermCustom, Label: "45 days"}))

	kept, err := NewPricingOptionSet([]PricingOption{
		mustOption(t, TermInstant, "", "95", "0"),
		mustOption(t, TermCustom, "45 days", "105", "0"),
	})
	require.NoError(t, err)
	assert.True(t, kept.CarrySelectionFrom(prev))
	selected, ok := kept.Selected()
	require.True(t, ok)
	assert.True(t, selected.UnitPrice.Equal(dec("105")))

	dropped, err := NewPricingOptionSet([]PricingOption{
		mustOption(t, TermInstant, "", "95", "0"),
		mustOption(t, TermCustom, "60 days", "105", "0"),
	})
	require.NoError(t, err)
	assert.False(t, dropped.CarrySelectionFrom(prev))
	_, ok = dropped.Selected()
	assert.False(t, ok)
}

func TestComputeOptionTotal(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		discount string
		qty      string
		expected string
		pending  bool
	}{
		{"no discount", "100", "0", "10", "1000", false},
		{"ten percent", "100", "10", "10", "900", false},
		{"full discount is free, not pending", "100", "100", "10", "0", false},
		{"fractional", "19.99", "12.5", "3", "52.47", false},
		{"zero quantity is pending", "100", "0", "0", "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := PricingOption{Term: TermInstant, UnitPrice: dec(tt.price), DiscountPercentage: dec(tt.discount)}
			got := ComputeOptionTotal(opt, dec(tt.qty))
			assert.Equal(t, tt.pending, got.Pending)
			assert.True(t, dec(tt.expected).Equal(got.Amount), "got %s", got.Amount)
		})
	}

	t.Run("unset price is pending", func(t *testing.T) {
		got := ComputeOptionTotal(PricingOption{Term: TermInstant, DiscountPercentage: decimal.Zero}, dec("5"))
		assert.True(t, got.Pending)
	})
}
