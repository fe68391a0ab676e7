package core

import (
	"github.com/shopspring/decimal"
)

// PriceBasis names the authoritative side of a price pair.
type PriceBasis string

const (
	PriceBasisExclTax PriceBasis = "excl_tax"
	PriceBasisInclTax PriceBasis = "incl_tax"
)

// EntryMode distinguishes catalog lines from free-text lines.
type EntryMode string

const (
	EntryModePredefined EntryMode = "predefined"
	EntryModeFree       EntryMode = "free"
)

// PriceSource names the strategy that produced a resolution.
type PriceSource string

const (
	PriceSourceManual   PriceSource = "manual"
	PriceSourceCustomer PriceSource = "customer"
	PriceSourceSegment  PriceSource = "segment"
	PriceSourceQuantity PriceSource = "quantity"
	PriceSourceCatalog  PriceSource = "catalog"
)

// PriceQuery is the input for resolving one order line.
type PriceQuery struct {
	ProductID   *int            `json:"product_id,omitempty"` // nil = free-text line
	CustomerID  int             `json:"customer_id"`
	PriceLevel  int             `json:"price_level"` // 0 = no segment
	Quantity    decimal.Decimal `json:"quantity"`
	EntryMode   EntryMode       `json:"entry_mode,omitempty"`
	Description string          `json:"description,omitempty"`

	ManualUnitPriceExclTax        decimal.NullDecimal `json:"manual_unit_price_excl_tax"`
	ManualUnitPriceInclTax        decimal.NullDecimal `json:"manual_unit_price_incl_tax"`
	ManualForeignUnitPriceExclTax decimal.NullDecimal `json:"manual_foreign_unit_price_excl_tax"`
	ManualForeignUnitPriceInclTax decimal.NullDecimal `json:"manual_foreign_unit_price_incl_tax"`

	TaxRate         string          `json:"tax_rate,omitempty"` // empty = rate of the winning source
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	CurrencyRate    decimal.Decimal `json:"currency_rate"` // line currency -> base currency; zero = 1
	PriceBasis      PriceBasis      `json:"price_basis,omitempty"`
}

// HasManualPrice reports whether the caller supplied any price.
func (q PriceQuery) HasManualPrice() bool {
	return q.ManualUnitPriceExclTax.Valid || q.ManualUnitPriceInclTax.Valid ||
		q.ManualForeignUnitPriceExclTax.Valid || q.ManualForeignUnitPriceInclTax.Valid
}

func (q PriceQuery) isFreeLine() bool {
	return q.ProductID == nil || q.EntryMode == EntryModeFree
}

func (q PriceQuery) currencyRate() decimal.Decimal {
	if q.CurrencyRate.IsZero() {
		return decimal.NewFromInt(1)
	}
	return q.CurrencyRate
}

// PriceEntry is one price record held by the catalog.
// Either side of the pair may be unknown; the floor defaults to zero (no floor).
type PriceEntry struct {
	ExclTax    decimal.NullDecimal `json:"excl_tax"`
	InclTax    decimal.NullDecimal `json:"incl_tax"`
	MinExclTax decimal.Decimal     `json:"min_excl_tax"`
	MinInclTax decimal.Decimal     `json:"min_incl_tax"`
	TaxRate    string              `json:"tax_rate"`
	Basis      PriceBasis          `json:"basis"`
}

// PricingSourceSet holds the pre-fetched sources for one query. Nil means "no entry".
type PricingSourceSet struct {
	Customer *PriceEntry
	Segment  *PriceEntry
	Quantity *PriceEntry
	Catalog  *PriceEntry
}

// PriceResolution is the outcome of resolving one line.
// Unit prices are in base currency and stay zero when only a foreign price is known.
type PriceResolution struct {
	Source     PriceSource `json:"source"`
	PriceBasis PriceBasis  `json:"price_basis"`
	Overridden bool        `json:"overridden,omitempty"`

	UnitPriceExclTax        decimal.Decimal     `json:"unit_price_excl_tax"`
	UnitPriceInclTax        decimal.Decimal     `json:"unit_price_incl_tax"`
	ForeignUnitPriceExclTax decimal.NullDecimal `json:"foreign_unit_price_excl_tax"`
	ForeignUnitPriceInclTax decimal.NullDecimal `json:"foreign_unit_price_incl_tax"`

	// Base-currency equivalents, only used for the floor check.
	EquivalentExclTax decimal.Decimal `json:"equivalent_excl_tax"`
	EquivalentInclTax decimal.Decimal `json:"equivalent_incl_tax"`

	MinimumPriceExclTax decimal.Decimal `json:"minimum_price_excl_tax"`
	MinimumPriceInclTax decimal.Decimal `json:"minimum_price_incl_tax"`

	TaxRate         decimal.Decimal `json:"tax_rate"`
	TaxRateLabel    string          `json:"tax_rate_label"`
	TaxCode         string          `json:"tax_code,omitempty"`
	RecoverableOnly bool            `json:"recoverable_only,omitempty"`

	DiscountPercent decimal.Decimal `json:"discount_percent"`
	EffectivePrice  decimal.Decimal `json:"effective_price"`
	ViolatesMinimum bool            `json:"violates_minimum"`
}

// Floor returns the minimum price on the basis side.
func (r *PriceResolution) Floor() decimal.Decimal {
	if r.PriceBasis == PriceBasisInclTax {
		return r.MinimumPriceInclTax
	}
	return r.MinimumPriceExclTax
}

// LineTotals holds the rounded amounts of a priced line.
type LineTotals struct {
	TotalExclTax decimal.Decimal `json:"total_excl_tax"`
	TotalTax     decimal.Decimal `json:"total_tax"`
	TotalInclTax decimal.Decimal `json:"total_incl_tax"`
}
