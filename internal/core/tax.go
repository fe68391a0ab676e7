package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// unitPricePlaces is the rounding applied to derived unit prices.
const unitPricePlaces = 8

var (
	hundred       = decimal.NewFromInt(100)
	taxCodeSuffix = regexp.MustCompile(`\s*\((.*)\)\s*$`)
)

// TaxRate is a parsed VAT rate label such as "20 (FR-NORM)" or "8.5*".
type TaxRate struct {
	Rate            decimal.Decimal `json:"rate"`
	Code            string          `json:"code,omitempty"`
	RecoverableOnly bool            `json:"recoverable_only,omitempty"`
	Label           string          `json:"label"`
}

// ParseTaxRate strips the "(CODE)" suffix and the "*" recoverable-only marker
// from a rate label. The original label is kept for display. An empty label is a zero rate.
func ParseTaxRate(label string) (TaxRate, error) {
	tr := TaxRate{Label: strings.TrimSpace(label)}
	s := tr.Label
	if m := taxCodeSuffix.FindStringSubmatch(s); m != nil {
		tr.Code = strings.TrimSpace(m[1])
		s = strings.TrimSpace(s[:len(s)-len(m[0])])
	}
	if strings.Contains(s, "*") {
		tr.RecoverableOnly = true
		s = strings.TrimSpace(strings.ReplaceAll(s, "*", ""))
	}
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		tr.Rate = decimal.Zero
		tr.RecoverableOnly = false
		return tr, nil
	}
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return TaxRate{}, fmt.Errorf("%w: tax rate %q: %v", ErrInvalidPriceInput, label, err)
	}
	if rate.IsNegative() {
		return TaxRate{}, fmt.Errorf("%w: tax rate must be >= 0, got %q", ErrInvalidPriceInput, label)
	}
	tr.Rate = rate
	// A zero rate has nothing to recover.
	if rate.IsZero() {
		tr.RecoverableOnly = false
	}
	return tr, nil
}

// InclTaxFromExcl derives the tax-inclusive amount: excl * (1 + rate/100).
func InclTaxFromExcl(excl, rate decimal.Decimal) decimal.Decimal {
	return excl.Mul(taxFactor(rate)).Round(unitPricePlaces)
}

// ExclTaxFromIncl derives the tax-exclusive amount: incl / (1 + rate/100).
func ExclTaxFromIncl(incl, rate decimal.Decimal) decimal.Decimal {
	return incl.Div(taxFactor(rate)).Round(unitPricePlaces)
}

func taxFactor(rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(rate.Div(hundred))
}
