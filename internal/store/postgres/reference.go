package postgres

import (
	"context"
	"fmt"

	"github.com/SediraYasser20/DOLX/internal/core"
)

func basisOrDefault(b core.PriceBasis) string {
	if b == core.PriceBasisInclTax {
		return string(core.PriceBasisInclTax)
	}
	return string(core.PriceBasisExclTax)
}

// CreateProduct saves a product and its flat price.
func (s *Store) CreateProduct(ctx context.Context, p core.Product) (int, error) {
	var id int
	err := s.pool.QueryRow(ctx,
		"INSERT INTO products (ref, label, "+priceColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id",
		p.Ref, p.Label, p.Price.ExclTax, p.Price.InclTax, p.Price.MinExclTax, p.Price.MinInclTax,
		basisOrDefault(p.Price.Basis), p.Price.TaxRate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create product %s: %w", p.Ref, err)
	}
	return id, nil
}

// SetCustomerPrice creates or replaces a customer's negotiated price.
func (s *Store) SetCustomerPrice(ctx context.Context, productID, customerID int, e core.PriceEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO product_customer_prices (product_id, customer_id, `+priceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, customer_id) DO UPDATE SET
			price = EXCLUDED.price, price_ttc = EXCLUDED.price_ttc,
			price_min = EXCLUDED.price_min, price_min_ttc = EXCLUDED.price_min_ttc,
			price_base_type = EXCLUDED.price_base_type, tax_rate = EXCLUDED.tax_rate
	`, productID, customerID, e.ExclTax, e.InclTax, e.MinExclTax, e.MinInclTax, basisOrDefault(e.Basis), e.TaxRate)
	if err != nil {
		return fmt.Errorf("failed to set customer price: %w", err)
	}
	return nil
}

// SetLevelPrice creates or replaces the price of a product at a level (> 0).
func (s *Store) SetLevelPrice(ctx context.Context, productID, level int, e core.PriceEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO product_level_prices (product_id, level, `+priceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, level) DO UPDATE SET
			price = EXCLUDED.price, price_ttc = EXCLUDED.price_ttc,
			price_min = EXCLUDED.price_min, price_min_ttc = EXCLUDED.price_min_ttc,
			price_base_type = EXCLUDED.price_base_type, tax_rate = EXCLUDED.tax_rate
	`, productID, level, e.ExclTax, e.InclTax, e.MinExclTax, e.MinInclTax, basisOrDefault(e.Basis), e.TaxRate)
	if err != nil {
		return fmt.Errorf("failed to set level price: %w", err)
	}
	return nil
}

// AddQuantityBreak adds a quantity price break.
func (s *Store) AddQuantityBreak(ctx context.Context, b core.QuantityBreak) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO product_quantity_prices (product_id, level, min_quantity, unit_price, price_base_type) VALUES ($1, $2, $3, $4, $5)",
		b.ProductID, b.Level, b.MinQuantity, b.UnitPrice, basisOrDefault(b.Basis))
	if err != nil {
		return fmt.Errorf("failed to add quantity break: %w", err)
	}
	return nil
}

// CreateAccount saves a bank account.
func (s *Store) CreateAccount(ctx context.Context, a core.Account) (int, error) {
	var id int
	err := s.pool.QueryRow(ctx,
		"INSERT INTO bank_accounts (ref, label, currency_code) VALUES ($1, $2, $3) RETURNING id",
		a.Ref, a.Label, a.CurrencyCode,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create bank account %s: %w", a.Ref, err)
	}
	return id, nil
}

// CreatePaymentMethod saves an active payment method. Existing codes are left untouched.
func (s *Store) CreatePaymentMethod(ctx context.Context, code, label string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO payment_methods (code, label) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING", code, label)
	if err != nil {
		return fmt.Errorf("failed to create payment method %s: %w", code, err)
	}
	return nil
}

// ReconcileLine marks a bank line as reconciled against a statement.
func (s *Store) ReconcileLine(ctx context.Context, lineID int, statementRef string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE bank_lines SET reconciled = true, statement_ref = $1 WHERE id = $2", statementRef, lineID)
	if err := expectOneRow(tag, err); err != nil {
		return fmt.Errorf("failed to reconcile bank line %d: %w", lineID, err)
	}
	return nil
}

// RecordBookkeepingEntry stores one general-ledger row.
func (s *Store) RecordBookkeepingEntry(ctx context.Context, e core.BookkeepingEntry) (int, error) {
	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO bookkeeping_entries (doc_type, doc_id, account_code, label, debit, credit)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, e.DocType, e.DocID, e.AccountCode, e.Label, e.Debit, e.Credit).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to record bookkeeping entry: %w", err)
	}
	return id, nil
}
