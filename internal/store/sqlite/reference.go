package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/SediraYasser20/DOLX/internal/core"
)

// ── Reference data ───────────────────────────────────────────────────────────

func basisOrDefault(b core.PriceBasis) string {
	if b == core.PriceBasisInclTax {
		return string(core.PriceBasisInclTax)
	}
	return string(core.PriceBasisExclTax)
}

// CreateProduct saves a product and its flat price.
func (s *Store) CreateProduct(ctx context.Context, p core.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO products (ref, label, "+priceColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		p.Ref, p.Label, p.Price.ExclTax, p.Price.InclTax, p.Price.MinExclTax, p.Price.MinInclTax,
		basisOrDefault(p.Price.Basis), p.Price.TaxRate,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create product %s: %w", p.Ref, err)
	}
	id, err := res.LastInsertId()
	return int(id), err
}

// SetCustomerPrice creates or replaces a customer's negotiated price.
func (s *Store) SetCustomerPrice(ctx context.Context, productID, customerID int, e core.PriceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO product_customer_prices (product_id, customer_id, "+priceColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		productID, customerID, e.ExclTax, e.InclTax, e.MinExclTax, e.MinInclTax, basisOrDefault(e.Basis), e.TaxRate,
	)
	if err != nil {
		return fmt.Errorf("failed to set customer price: %w", err)
	}
	return nil
}

// SetLevelPrice creates or replaces the price of a product at a level (> 0).
func (s *Store) SetLevelPrice(ctx context.Context, productID, level int, e core.PriceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO product_level_prices (product_id, level, "+priceColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		productID, level, e.ExclTax, e.InclTax, e.MinExclTax, e.MinInclTax, basisOrDefault(e.Basis), e.TaxRate,
	)
	if err != nil {
		return fmt.Errorf("failed to set level price: %w", err)
	}
	return nil
}

// AddQuantityBreak adds a quantity price break.
func (s *Store) AddQuantityBreak(ctx context.Context, b core.QuantityBreak) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO product_quantity_prices (product_id, level, min_quantity, unit_price, price_base_type) VALUES (?, ?, ?, ?, ?)",
		b.ProductID, b.Level, b.MinQuantity, b.UnitPrice, basisOrDefault(b.Basis),
	)
	if err != nil {
		return fmt.Errorf("failed to add quantity break: %w", err)
	}
	return nil
}

// CreateAccount saves a bank account.
func (s *Store) CreateAccount(ctx context.Context, a core.Account) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO bank_accounts (ref, label, currency_code) VALUES (?, ?, ?)",
		a.Ref, a.Label, a.CurrencyCode,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create bank account %s: %w", a.Ref, err)
	}
	id, err := res.LastInsertId()
	return int(id), err
}

// CreatePaymentMethod saves an active payment method. Existing codes are left untouched.
func (s *Store) CreatePaymentMethod(ctx context.Context, code, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO payment_methods (code, label) VALUES (?, ?)", code, label)
	if err != nil {
		return fmt.Errorf("failed to create payment method %s: %w", code, err)
	}
	return nil
}

// ReconcileLine marks a bank line as reconciled against a statement.
func (s *Store) ReconcileLine(ctx context.Context, lineID int, statementRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE bank_lines SET reconciled = 1, statement_ref = ? WHERE id = ?", statementRef, lineID)
	if err := expectOneRow(res, err); err != nil {
		return fmt.Errorf("failed to reconcile bank line %d: %w", lineID, err)
	}
	return nil
}

// RecordBookkeepingEntry stores one general-ledger row.
func (s *Store) RecordBookkeepingEntry(ctx context.Context, e core.BookkeepingEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bookkeeping_entries (doc_type, doc_id, account_code, label, debit, credit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.DocType, e.DocID, e.AccountCode, e.Label, e.Debit, e.Credit, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to record bookkeeping entry: %w", err)
	}
	id, err := res.LastInsertId()
	return int(id), err
}
