package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is a catalog item with its flat price and floor.
type Product struct {
	ID    int        `json:"id"`
	Ref   string     `json:"ref"`
	Label string     `json:"label"`
	Price PriceEntry `json:"price"`
}

// QuantityBreak prices a product from MinQuantity units upward within one price level.
// Floor and tax rate come from the product.
type QuantityBreak struct {
	ProductID   int             `json:"product_id"`
	Level       int             `json:"level"`
	MinQuantity decimal.Decimal `json:"min_quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Basis       PriceBasis      `json:"basis"`
}

// BookkeepingEntry is a general-ledger row written by the accounting export.
// DocType "bank" with DocID = bank line id marks a bank line as exported.
type BookkeepingEntry struct {
	ID          int             `json:"id"`
	DocType     string          `json:"doc_type"`
	DocID       int             `json:"doc_id"`
	AccountCode string          `json:"account_code"`
	Label       string          `json:"label"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// BookkeepingDocTypeBank is the doc type of entries exported from bank lines.
const BookkeepingDocTypeBank = "bank"

// ReferenceDataStore maintains the data the resolver and the posting service read:
// catalog prices, bank accounts, payment methods, reconciliation and export markers.
type ReferenceDataStore interface {
	CreateProduct(ctx context.Context, p Product) (int, error)
	SetCustomerPrice(ctx context.Context, productID, customerID int, e PriceEntry) error
	SetLevelPrice(ctx context.Context, productID, level int, e PriceEntry) error
	AddQuantityBreak(ctx context.Context, b QuantityBreak) error

	CreateAccount(ctx context.Context, a Account) (int, error)
	CreatePaymentMethod(ctx context.Context, code, label string) error

	// ReconcileLine marks a bank line as matched against a statement.
	ReconcileLine(ctx context.Context, lineID int, statementRef string) error
	RecordBookkeepingEntry(ctx context.Context, e BookkeepingEntry) (int, error)
}

// SelectQuantityBreak returns the break with the largest MinQuantity not above qty, or nil.
func SelectQuantityBreak(breaks []QuantityBreak, qty decimal.Decimal) *QuantityBreak {
	var best *QuantityBreak
	for i := range breaks {
		b := &breaks[i]
		if b.MinQuantity.GreaterThan(qty) {
			continue
		}
		if best == nil || b.MinQuantity.GreaterThan(best.MinQuantity) {
			best = b
		}
	}
	return best
}

// Entry converts a break into a PriceEntry carrying the product's floor and tax rate.
func (b *QuantityBreak) Entry(product PriceEntry) *PriceEntry {
	e := &PriceEntry{
		MinExclTax: product.MinExclTax,
		MinInclTax: product.MinInclTax,
		TaxRate:    product.TaxRate,
		Basis:      b.Basis,
	}
	if b.Basis == PriceBasisInclTax {
		e.InclTax = decimal.NewNullDecimal(b.UnitPrice)
	} else {
		e.Basis = PriceBasisExclTax
		e.ExclTax = decimal.NewNullDecimal(b.UnitPrice)
	}
	return e
}
