package ordering

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

// PaymentTerm is the installment/timing option a price is quoted under
type PaymentTerm string

const (
	TermInstant PaymentTerm = "instant"
	Term1Month  PaymentTerm = "1_month"
	Term2Month  PaymentTerm = "2_month"
	Term3Month  PaymentTerm = "3_month"
	TermCustom  PaymentTerm = "custom"
)

// Option count bounds per item
const (
	MinPricingOptions = 2
	MaxPricingOptions = 10
)

// MoneyScale is the number of decimal places kept on computed amounts
const MoneyScale = 2

var hundred = decimal.NewFromInt(100)

// IsValid checks if the term is known
func (t PaymentTerm) IsValid() bool {
	switch t {
	case TermInstant, Term1Month, Term2Month, Term3Month, TermCustom:
		return true
	}
	return false
}

// OptionKey identifies an option within an item's set
type OptionKey struct {
	Term  PaymentTerm
	Label string
}

// String returns a human readable form of the key
func (k OptionKey) String() string {
	if k.Term == TermCustom {
		return fmt.Sprintf("%s(%s)", k.Term, k.Label)
	}
	return string(k.Term)
}

// PricingOption is one (term, price, discount) quote offered for an item.
// Instances are only built through NewPricingOption, so a held value is always valid.
type PricingOption struct {
	ID                 uuid.UUID
	Term               PaymentTerm
	CustomLabel        string
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	IsSelected         bool
}

// NewPricingOption validates and creates a pricing option
func NewPricingOption(term PaymentTerm, customLabel string, unitPrice, discountPercentage decimal.Decimal) (PricingOption, error) {
	var errs shared.FieldErrors
	if !term.IsValid() {
		errs.Add("payment_term", "unknown payment term %q", term)
	}
	if term == TermCustom && customLabel == "" {
		errs.Add("custom_term_label", "custom payment term requires a label")
	}
	if term != TermCustom && term.IsValid() && customLabel != "" {
		errs.Add("custom_term_label", "label is only allowed for custom payment terms")
	}
	if !unitPrice.IsPositive() {
		errs.Add("unit_price", "unit price must be greater than 0")
	}
	if discountPercentage.IsNegative() || discountPercentage.GreaterThan(hundred) {
		errs.Add("discount_percentage", "discount must be between 0 and 100")
	}
	if err := errs.Err("invalid pricing option"); err != nil {
		return PricingOption{}, err
	}

	return PricingOption{
		ID:                 uuid.New(),
		Term:               term,
		CustomLabel:        customLabel,
		UnitPrice:          unitPrice,
		DiscountPercentage: discountPercentage,
	}, nil
}

// Key returns the (term, label) uniqueness key
func (o PricingOption) Key() OptionKey {
	return OptionKey{Term: o.Term, Label: o.CustomLabel}
}

// LineAmount is a computed amount that may still be pending
type LineAmount struct {
	Amount  decimal.Decimal
	Pending bool
}

// PendingAmount marks a line that cannot be priced yet
var PendingAmount = LineAmount{Amount: decimal.Zero, Pending: true}

// ComputeOptionTotal returns unit_price x quantity x (1 - discount/100).
// An unset price or quantity yields PendingAmount rather than zero, so "not priced" never reads as "free".
func ComputeOptionTotal(option PricingOption, quantity decimal.Decimal) LineAmount {
	if !option.UnitPrice.IsPositive() || !quantity.IsPositive() {
		return PendingAmount
	}
	factor := hundred.Sub(option.DiscountPercentage).Div(hundred)
	return LineAmount{
		Amount: option.UnitPrice.Mul(quantity).Mul(factor).Round(MoneyScale),
	}
}

// PricingOptionSet is the set of quotes for one item plus the customer's selection
type PricingOptionSet struct {
	options []PricingOption
}

// NewPricingOptionSet validates the option count and (term, label) uniqueness
func NewPricingOptionSet(options []PricingOption) (PricingOptionSet, error) {
	var errs shared.FieldErrors
	switch {
	case len(options) < MinPricingOptions:
		errs.Add("pricing_options", "at least %d pricing options required", MinPricingOptions)
	case len(options) > MaxPricingOptions:
		errs.Add("pricing_options", "at most %d pricing options allowed", MaxPricingOptions)
	}

	seen := make(map[OptionKey]bool, len(options))
	for i, opt := range options {
		if seen[opt.Key()] {
			errs.Add(fmt.Sprintf("pricing_options[%d]", i), "duplicate pricing option %s", opt.Key())
		}
		seen[opt.Key()] = true
	}
	if err := errs.Err("invalid pricing option set"); err != nil {
		return PricingOptionSet{}, err
	}

	cp := make([]PricingOption, len(options))
	copy(cp, options)
	for i := range cp {
		cp[i].IsSelected = false
	}
	return PricingOptionSet{options: cp}, nil
}

// RestorePricingOptionSet rebuilds a set from persisted options without re-validating it
func RestorePricingOptionSet(options []PricingOption) PricingOptionSet {
	cp := make([]PricingOption, len(options))
	copy(cp, options)
	return PricingOptionSet{options: cp}
}

// Options returns a copy of the options
func (s PricingOptionSet) Options() []PricingOption {
	cp := make([]PricingOption, len(s.options))
	copy(cp, s.options)
	return cp
}

// Len returns the number of options
func (s PricingOptionSet) Len() int {
	return len(s.options)
}

// IsEmpty reports whether the item has not been priced
func (s PricingOptionSet) IsEmpty() bool {
	return len(s.options) == 0
}

// Selected returns the selected option, if any
func (s PricingOptionSet) Selected() (PricingOption, bool) {
	for _, opt := range s.options {
		if opt.IsSelected {
			return opt, true
		}
	}
	return PricingOption{}, false
}

// Find returns the option with the given key
func (s PricingOptionSet) Find(key OptionKey) (PricingOption, bool) {
	for _, opt := range s.options {
		if opt.Key() == key {
			return opt, true
		}
	}
	return PricingOption{}, false
}

// Select marks exactly one option selected, clearing any previous selection
func (s *PricingOptionSet) Select(key OptionKey) error {
	idx := -1
	for i, opt := range s.options {
		if opt.Key() == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shared.NewNotFoundError("pricing option %s is not offered", key)
	}
	for i := range s.options {
		s.options[i].IsSelected = i == idx
	}
	return nil
}

// ClearSelection unselects every option
func (s *PricingOptionSet) ClearSelection() {
	for i := range s.options {
		s.options[i].IsSelected = false
	}
}

// CarrySelectionFrom re-applies prev's selection when the same key is still offered.
// Returns false when prev had a selection that no longer exists.
func (s *PricingOptionSet) CarrySelectionFrom(prev PricingOptionSet) bool {
	selected, ok := prev.Selected()
	if !ok {
		return true
	}
	if _, exists := s.Find(selected.Key()); !exists {
		return false
	}
	return s.Select(selected.Key()) == nil
}
