package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PricingCatalog is the read-only price store. Each lookup returns a nil entry
// and a nil error when no price is recorded.
type PricingCatalog interface {
	LookupCustomerPrice(ctx context.Context, productID, customerID int) (*PriceEntry, error)
	LookupSegmentPrice(ctx context.Context, productID, level int) (*PriceEntry, error)
	LookupQuantityPrice(ctx context.Context, productID, level int, qty decimal.Decimal) (*PriceEntry, error)
	LookupCatalogPrice(ctx context.Context, productID int) (*PriceEntry, error)
}

// PriceResolver loads pricing sources from a catalog and resolves order lines.
type PriceResolver struct {
	catalog    PricingCatalog
	policy     PricingPolicy
	logger     *zap.Logger
	processors []PricePostProcessor
}

// NewPriceResolver constructs a PriceResolver. Processors run in order after every resolution.
func NewPriceResolver(catalog PricingCatalog, policy PricingPolicy, logger *zap.Logger, processors ...PricePostProcessor) *PriceResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceResolver{catalog: catalog, policy: policy, logger: logger, processors: processors}
}

// Policy returns the pricing policy the resolver applies.
func (r *PriceResolver) Policy() PricingPolicy {
	return r.policy
}

// Resolve prices one order line.
func (r *PriceResolver) Resolve(ctx context.Context, q PriceQuery) (*PriceResolution, error) {
	sources, err := r.LoadSources(ctx, q)
	if err != nil {
		return nil, err
	}

	res, err := ResolvePrice(q, sources, r.policy)
	if err != nil {
		return nil, err
	}

	for i, p := range r.processors {
		if err := p(ctx, q, res); err != nil {
			return nil, fmt.Errorf("%w: price processor %d: %v", ErrHookAborted, i, err)
		}
	}

	if res.ViolatesMinimum {
		r.logger.Warn("resolved price below minimum",
			zap.String("source", string(res.Source)),
			zap.String("basis", string(res.PriceBasis)),
			zap.String("effective", res.EffectivePrice.String()),
			zap.String("minimum", res.Floor().String()),
		)
	}
	return res, nil
}

// LoadSources fetches pricing sources in priority order and stops at the first hit.
// Free-text lines and manually priced free lines need no lookup.
func (r *PriceResolver) LoadSources(ctx context.Context, q PriceQuery) (PricingSourceSet, error) {
	var set PricingSourceSet
	if q.ProductID == nil || (q.EntryMode == EntryModeFree && q.HasManualPrice()) {
		return set, nil
	}
	productID := *q.ProductID

	entry, err := r.catalog.LookupCustomerPrice(ctx, productID, q.CustomerID)
	if err != nil {
		return set, fmt.Errorf("failed to look up customer price: %w", err)
	}
	if entry != nil {
		set.Customer = entry
		return set, nil
	}

	if q.PriceLevel > 0 {
		entry, err = r.catalog.LookupSegmentPrice(ctx, productID, q.PriceLevel)
		if err != nil {
			return set, fmt.Errorf("failed to look up segment price: %w", err)
		}
		if entry != nil {
			set.Segment = entry
			return set, nil
		}
	}

	entry, err = r.catalog.LookupQuantityPrice(ctx, productID, q.PriceLevel, q.Quantity)
	if err != nil {
		return set, fmt.Errorf("failed to look up quantity price: %w", err)
	}
	if entry != nil {
		set.Quantity = entry
		return set, nil
	}

	entry, err = r.catalog.LookupCatalogPrice(ctx, productID)
	if err != nil {
		return set, fmt.Errorf("failed to look up catalog price: %w", err)
	}
	if entry == nil {
		return set, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	set.Catalog = entry
	return set, nil
}

// ── Pure resolution ──────────────────────────────────────────────────────────

// ResolvePrice resolves one line against pre-fetched sources. Priority:
//
//	manual (free line) → customer → segment (level > 0) → quantity break → catalog
//
// The winning source sets unit price and floor together. The floor check is
// advisory: a violation is reported on the result, never returned as an error.
func ResolvePrice(q PriceQuery, sources PricingSourceSet, policy PricingPolicy) (*PriceResolution, error) {
	if q.DiscountPercent.IsNegative() || q.DiscountPercent.GreaterThan(hundred) {
		return nil, fmt.Errorf("%w: discount must be between 0 and 100, got %s", ErrInvalidPriceInput, q.DiscountPercent)
	}

	var lineRate *TaxRate
	if q.TaxRate != "" {
		tr, err := ParseTaxRate(q.TaxRate)
		if err != nil {
			return nil, err
		}
		lineRate = &tr
	}

	if q.isFreeLine() && q.HasManualPrice() {
		return resolveManual(q, lineRate, policy)
	}

	source, entry := pickSource(q, sources)
	if entry == nil {
		if q.HasManualPrice() || q.Description != "" {
			return resolveManual(q, lineRate, policy)
		}
		return nil, ErrMissingPriceInput
	}

	sourceRate, err := ParseTaxRate(entry.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("%s price: %w", source, err)
	}
	rate := sourceRate
	if lineRate != nil {
		rate = *lineRate
	}
	sameRate := rate.Rate.Equal(sourceRate.Rate)

	res := &PriceResolution{
		Source:              source,
		MinimumPriceExclTax: entry.MinExclTax,
		MinimumPriceInclTax: entry.MinInclTax,
	}

	excl, incl := entry.ExclTax, entry.InclTax
	basis := firstBasis(q.PriceBasis, entry.Basis)
	var foreignExcl, foreignIncl decimal.NullDecimal

	if policy.OverrideProductPrice && q.HasManualPrice() {
		res.Overridden = true
		excl, incl = q.ManualUnitPriceExclTax, q.ManualUnitPriceInclTax
		foreignExcl, foreignIncl = q.ManualForeignUnitPriceExclTax, q.ManualForeignUnitPriceInclTax
		basis = firstBasis(q.PriceBasis, manualBasis(q), entry.Basis)
		sameRate = true
	}

	finish(res, q, rate, basis, sameRate, excl, incl, foreignExcl, foreignIncl, policy)
	return res, nil
}

func pickSource(q PriceQuery, s PricingSourceSet) (PriceSource, *PriceEntry) {
	if q.ProductID == nil {
		return "", nil
	}
	switch {
	case s.Customer != nil:
		return PriceSourceCustomer, s.Customer
	case q.PriceLevel > 0 && s.Segment != nil:
		return PriceSourceSegment, s.Segment
	case s.Quantity != nil:
		return PriceSourceQuantity, s.Quantity
	case s.Catalog != nil:
		return PriceSourceCatalog, s.Catalog
	}
	return "", nil
}

// resolveManual prices a line from caller input only. Free-text lines carry no floor;
// a description without a price resolves to zero.
func resolveManual(q PriceQuery, lineRate *TaxRate, policy PricingPolicy) (*PriceResolution, error) {
	if !q.HasManualPrice() && q.Description == "" {
		return nil, ErrMissingPriceInput
	}
	rate := TaxRate{Rate: decimal.Zero}
	if lineRate != nil {
		rate = *lineRate
	}

	excl, incl := q.ManualUnitPriceExclTax, q.ManualUnitPriceInclTax
	if !q.HasManualPrice() {
		excl = decimal.NewNullDecimal(decimal.Zero)
	}

	res := &PriceResolution{Source: PriceSourceManual}
	finish(res, q, rate, firstBasis(q.PriceBasis, manualBasis(q)), true,
		excl, incl, q.ManualForeignUnitPriceExclTax, q.ManualForeignUnitPriceInclTax, policy)
	return res, nil
}

// finish completes both price pairs, the base-currency equivalent and the floor check.
func finish(res *PriceResolution, q PriceQuery, rate TaxRate, basis PriceBasis, sameRate bool,
	excl, incl, foreignExcl, foreignIncl decimal.NullDecimal, policy PricingPolicy) {

	res.PriceBasis = basis
	res.TaxRate = rate.Rate
	res.TaxRateLabel = rate.Label
	res.TaxCode = rate.Code
	res.RecoverableOnly = rate.RecoverableOnly
	res.DiscountPercent = q.DiscountPercent

	excl, incl = completePair(excl, incl, basis, rate.Rate, sameRate)
	foreignExcl, foreignIncl = completePair(foreignExcl, foreignIncl, basis, rate.Rate, true)
	res.ForeignUnitPriceExclTax = foreignExcl
	res.ForeignUnitPriceInclTax = foreignIncl

	switch {
	case excl.Valid:
		res.UnitPriceExclTax = excl.Decimal
		res.UnitPriceInclTax = incl.Decimal
		res.EquivalentExclTax = excl.Decimal
		res.EquivalentInclTax = incl.Decimal
	case foreignExcl.Valid:
		fx := q.currencyRate()
		res.EquivalentExclTax = foreignExcl.Decimal.Mul(fx).Round(unitPricePlaces)
		res.EquivalentInclTax = foreignIncl.Decimal.Mul(fx).Round(unitPricePlaces)
	}

	equivalent := res.EquivalentExclTax
	if basis == PriceBasisInclTax {
		equivalent = res.EquivalentInclTax
	}
	res.EffectivePrice = equivalent.Mul(decimal.NewFromInt(1).Sub(q.DiscountPercent.Div(hundred))).Round(unitPricePlaces)

	floor := res.Floor()
	res.ViolatesMinimum = policy.EnforceMinimumPrice && floor.IsPositive() && res.EffectivePrice.LessThan(floor)
}

// completePair fills the unknown side of a price pair. When both sides are known
// and the rate changed, the non-basis side is re-derived from the basis side.
func completePair(excl, incl decimal.NullDecimal, basis PriceBasis, rate decimal.Decimal, sameRate bool) (decimal.NullDecimal, decimal.NullDecimal) {
	switch {
	case excl.Valid && incl.Valid:
		if sameRate {
			return excl, incl
		}
		if basis == PriceBasisInclTax {
			return decimal.NewNullDecimal(ExclTaxFromIncl(incl.Decimal, rate)), incl
		}
		return excl, decimal.NewNullDecimal(InclTaxFromExcl(excl.Decimal, rate))
	case excl.Valid:
		return excl, decimal.NewNullDecimal(InclTaxFromExcl(excl.Decimal, rate))
	case incl.Valid:
		return decimal.NewNullDecimal(ExclTaxFromIncl(incl.Decimal, rate)), incl
	}
	return excl, incl
}

// manualBasis is incl_tax when the caller only gave tax-inclusive prices.
func manualBasis(q PriceQuery) PriceBasis {
	exclGiven := q.ManualUnitPriceExclTax.Valid || q.ManualForeignUnitPriceExclTax.Valid
	inclGiven := q.ManualUnitPriceInclTax.Valid || q.ManualForeignUnitPriceInclTax.Valid
	if inclGiven && !exclGiven {
		return PriceBasisInclTax
	}
	return ""
}

func firstBasis(candidates ...PriceBasis) PriceBasis {
	for _, b := range candidates {
		if b == PriceBasisExclTax || b == PriceBasisInclTax {
			return b
		}
	}
	return PriceBasisExclTax
}

// ── Enforcement helpers ──────────────────────────────────────────────────────

// CheckMinimumPrice turns a reported violation into an error unless the caller may waive it.
func CheckMinimumPrice(res *PriceResolution, canWaive bool) error {
	if res == nil || !res.ViolatesMinimum || canWaive {
		return nil
	}
	return &MinimumPriceError{Basis: res.PriceBasis, Effective: res.EffectivePrice, Minimum: res.Floor()}
}

// ComputeLineTotals returns base-currency totals for qty units after discount, rounded to 2 decimals.
func ComputeLineTotals(res *PriceResolution, qty decimal.Decimal) (LineTotals, error) {
	if res == nil {
		return LineTotals{}, errors.New("resolution is required")
	}
	remaining := decimal.NewFromInt(1).Sub(res.DiscountPercent.Div(hundred))

	var t LineTotals
	if res.PriceBasis == PriceBasisInclTax {
		t.TotalInclTax = res.EquivalentInclTax.Mul(qty).Mul(remaining).Round(2)
		t.TotalExclTax = ExclTaxFromIncl(t.TotalInclTax, res.TaxRate).Round(2)
		t.TotalTax = t.TotalInclTax.Sub(t.TotalExclTax)
		return t, nil
	}
	t.TotalExclTax = res.EquivalentExclTax.Mul(qty).Mul(remaining).Round(2)
	t.TotalTax = t.TotalExclTax.Mul(res.TaxRate).Div(hundred).Round(2)
	t.TotalInclTax = t.TotalExclTax.Add(t.TotalTax)
	return t, nil
}
