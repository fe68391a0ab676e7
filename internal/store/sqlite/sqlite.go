// Package sqlite implements the pricing catalog, the ledger store and the
// reference data store on SQLite. It backs local runs and the service tests.
//
// Money, rates and quantities are stored as TEXT and compared in Go.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/SediraYasser20/DOLX/internal/core"
)

// Store implements core.PricingCatalog, core.LedgerStore and core.ReferenceDataStore.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ core.PricingCatalog     = (*Store)(nil)
	_ core.LedgerStore        = (*Store)(nil)
	_ core.ReferenceDataStore = (*Store)(nil)
	_ core.LedgerTx           = (*txStore)(nil)
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Catalog
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ref TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL,
		price TEXT,
		price_ttc TEXT,
		price_min TEXT NOT NULL DEFAULT '0',
		price_min_ttc TEXT NOT NULL DEFAULT '0',
		price_base_type TEXT NOT NULL DEFAULT 'excl_tax',
		tax_rate TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS product_customer_prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		customer_id INTEGER NOT NULL,
		price TEXT,
		price_ttc TEXT,
		price_min TEXT NOT NULL DEFAULT '0',
		price_min_ttc TEXT NOT NULL DEFAULT '0',
		price_base_type TEXT NOT NULL DEFAULT 'excl_tax',
		tax_rate TEXT NOT NULL DEFAULT '',
		UNIQUE (product_id, customer_id)
	);

	CREATE TABLE IF NOT EXISTS product_level_prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		level INTEGER NOT NULL CHECK (level > 0),
		price TEXT,
		price_ttc TEXT,
		price_min TEXT NOT NULL DEFAULT '0',
		price_min_ttc TEXT NOT NULL DEFAULT '0',
		price_base_type TEXT NOT NULL DEFAULT 'excl_tax',
		tax_rate TEXT NOT NULL DEFAULT '',
		UNIQUE (product_id, level)
	);

	CREATE TABLE IF NOT EXISTS product_quantity_prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		level INTEGER NOT NULL DEFAULT 0,
		min_quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		price_base_type TEXT NOT NULL DEFAULT 'excl_tax'
	);

	CREATE INDEX IF NOT EXISTS idx_quantity_prices_product_level
		ON product_quantity_prices(product_id, level);

	-- Bank
	CREATE TABLE IF NOT EXISTS payment_methods (
		code TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS bank_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ref TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL,
		currency_code TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bank_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES bank_accounts(id),
		operation_date TEXT NOT NULL,
		value_date TEXT NOT NULL,
		label TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_reference TEXT NOT NULL DEFAULT '',
		cheque_issuer TEXT NOT NULL DEFAULT '',
		cheque_bank TEXT NOT NULL DEFAULT '',
		author_id INTEGER NOT NULL DEFAULT 0,
		reconciled INTEGER NOT NULL DEFAULT 0,
		statement_ref TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bank_line_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bank_line_id INTEGER NOT NULL REFERENCES bank_lines(id) ON DELETE CASCADE,
		object_id INTEGER NOT NULL,
		link_type TEXT NOT NULL,
		label TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bank_line_links_line
		ON bank_line_links(bank_line_id);

	-- Various payments. bank_line_id is a weak reference: the line may be gone.
	CREATE TABLE IF NOT EXISTS various_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL,
		direction TEXT NOT NULL CHECK (direction IN ('debit', 'credit')),
		amount TEXT NOT NULL CHECK (CAST(amount AS REAL) > 0),
		currency TEXT NOT NULL DEFAULT '',
		payment_method TEXT NOT NULL DEFAULT '',
		payment_reference TEXT NOT NULL DEFAULT '',
		cheque_issuer TEXT NOT NULL DEFAULT '',
		cheque_bank TEXT NOT NULL DEFAULT '',
		account_id INTEGER NOT NULL DEFAULT 0,
		bank_line_id INTEGER,
		accounting_code TEXT NOT NULL DEFAULT '',
		subledger_account TEXT NOT NULL DEFAULT '',
		project_id INTEGER,
		note TEXT NOT NULL DEFAULT '',
		payment_date TEXT NOT NULL,
		value_date TEXT NOT NULL,
		author_id INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_various_payments_date
		ON various_payments(payment_date DESC);

	-- Bookkeeping rows written by the accounting export
	CREATE TABLE IF NOT EXISTS bookkeeping_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		doc_type TEXT NOT NULL,
		doc_id INTEGER NOT NULL,
		account_code TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL DEFAULT '',
		debit TEXT NOT NULL DEFAULT '0',
		credit TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookkeeping_doc
		ON bookkeeping_entries(doc_type, doc_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ── Pricing catalog ──────────────────────────────────────────────────────────

const priceColumns = "price, price_ttc, price_min, price_min_ttc, price_base_type, tax_rate"

func scanPriceEntry(row *sql.Row) (*core.PriceEntry, error) {
	var e core.PriceEntry
	var basis string
	err := row.Scan(&e.ExclTax, &e.InclTax, &e.MinExclTax, &e.MinInclTax, &basis, &e.TaxRate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Basis = core.PriceBasis(basis)
	return &e, nil
}

// LookupCustomerPrice returns the negotiated price of a product for one customer.
func (s *Store) LookupCustomerPrice(ctx context.Context, productID, customerID int) (*core.PriceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanPriceEntry(s.db.QueryRowContext(ctx,
		"SELECT "+priceColumns+" FROM product_customer_prices WHERE product_id = ? AND customer_id = ?",
		productID, customerID))
}

// LookupSegmentPrice returns the price of a product at a price level.
func (s *Store) LookupSegmentPrice(ctx context.Context, productID, level int) (*core.PriceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanPriceEntry(s.db.QueryRowContext(ctx,
		"SELECT "+priceColumns+" FROM product_level_prices WHERE product_id = ? AND level = ?",
		productID, level))
}

// LookupQuantityPrice returns the quantity break matching qty at a price level.
func (s *Store) LookupQuantityPrice(ctx context.Context, productID, level int, qty decimal.Decimal) (*core.PriceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT min_quantity, unit_price, price_base_type FROM product_quantity_prices WHERE product_id = ? AND level = ?",
		productID, level)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breaks []core.QuantityBreak
	for rows.Next() {
		b := core.QuantityBreak{ProductID: productID, Level: level}
		var basis string
		if err := rows.Scan(&b.MinQuantity, &b.UnitPrice, &basis); err != nil {
			return nil, err
		}
		b.Basis = core.PriceBasis(basis)
		breaks = append(breaks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	best := core.SelectQuantityBreak(breaks, qty)
	if best == nil {
		return nil, nil
	}
	product, err := scanPriceEntry(s.db.QueryRowContext(ctx,
		"SELECT "+priceColumns+" FROM products WHERE id = ?", productID))
	if err != nil || product == nil {
		return nil, err
	}
	return best.Entry(*product), nil
}

// LookupCatalogPrice returns the flat price of a product.
func (s *Store) LookupCatalogPrice(ctx context.Context, productID int) (*core.PriceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanPriceEntry(s.db.QueryRowContext(ctx,
		"SELECT "+priceColumns+" FROM products WHERE id = ?", productID))
}

// ── Ledger store ─────────────────────────────────────────────────────────────

// WithTx runs fn inside one transaction and holds the write lock until it ends.
// fn's error rolls back. Queries through the LedgerTx never take the lock.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetMovement retrieves a movement by ID.
func (s *Store) GetMovement(ctx context.Context, id int) (*core.LedgerMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getMovement(ctx, s.db, id)
}

// ListMovements returns movements newest first.
func (s *Store) ListMovements(ctx context.Context, f core.MovementFilter) ([]core.LedgerMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listMovements(ctx, s.db, f)
}

// CountExportReferences counts bookkeeping rows referencing a bank line.
func (s *Store) CountExportReferences(ctx context.Context, bankLineID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countExportReferences(ctx, s.db, bankLineID)
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetMovement(ctx context.Context, id int) (*core.LedgerMovement, error) {
	return getMovement(ctx, ts.tx, id)
}

func (ts *txStore) ListMovements(ctx context.Context, f core.MovementFilter) ([]core.LedgerMovement, error) {
	return listMovements(ctx, ts.tx, f)
}

func (ts *txStore) CountExportReferences(ctx context.Context, bankLineID int) (int, error) {
	return countExportReferences(ctx, ts.tx, bankLineID)
}

func (ts *txStore) GetAccount(ctx context.Context, id int) (*core.Account, error) {
	var a core.Account
	err := ts.tx.QueryRowContext(ctx,
		"SELECT id, ref, label, currency_code FROM bank_accounts WHERE id = ?", id,
	).Scan(&a.ID, &a.Ref, &a.Label, &a.CurrencyCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (ts *txStore) PaymentMethodExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := ts.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payment_methods WHERE code = ? AND active = 1", code,
	).Scan(&n)
	return n > 0, err
}

func (ts *txStore) InsertMovement(ctx context.Context, m *core.LedgerMovement) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := ts.tx.ExecContext(ctx, `
		INSERT INTO various_payments
		(label, direction, amount, currency, payment_method, payment_reference, cheque_issuer, cheque_bank,
		 account_id, bank_line_id, accounting_code, subledger_account, project_id, note,
		 payment_date, value_date, author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.Label, string(m.Direction), m.Amount, m.Currency, m.PaymentMethod, m.PaymentReference,
		m.ChequeIssuer, m.ChequeBank, m.AccountID, m.AccountingCode, m.SubledgerAccount,
		m.ProjectID, m.Note, m.PaymentDate, m.ValueDate, m.AuthorID, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert movement: %w", err)
	}
	id, err := res.LastInsertId()
	return int(id), err
}

func (ts *txStore) SetMovementBankLine(ctx context.Context, movementID, bankLineID int) error {
	res, err := ts.tx.ExecContext(ctx,
		"UPDATE various_payments SET bank_line_id = ?, updated_at = ? WHERE id = ? AND bank_line_id IS NULL",
		bankLineID, time.Now().UTC().Format(time.RFC3339), movementID)
	return expectOneRow(res, err)
}

func (ts *txStore) UpdateMovementAccounting(ctx context.Context, movementID int, accountingCode, subledger string) error {
	res, err := ts.tx.ExecContext(ctx,
		"UPDATE various_payments SET accounting_code = ?, subledger_account = ?, updated_at = ? WHERE id = ?",
		accountingCode, subledger, time.Now().UTC().Format(time.RFC3339), movementID)
	return expectOneRow(res, err)
}

func (ts *txStore) UpdateMovementProject(ctx context.Context, movementID int, projectID *int) error {
	res, err := ts.tx.ExecContext(ctx,
		"UPDATE various_payments SET project_id = ?, updated_at = ? WHERE id = ?",
		projectID, time.Now().UTC().Format(time.RFC3339), movementID)
	return expectOneRow(res, err)
}

func (ts *txStore) DeleteMovement(ctx context.Context, id int) error {
	res, err := ts.tx.ExecContext(ctx, "DELETE FROM various_payments WHERE id = ?", id)
	return expectOneRow(res, err)
}

func (ts *txStore) CreateLedgerLine(ctx context.Context, line *core.LedgerLine) (int, error) {
	res, err := ts.tx.ExecContext(ctx, `
		INSERT INTO bank_lines
		(account_id, operation_date, value_date, label, amount, payment_method,
		 payment_reference, cheque_issuer, cheque_bank, author_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		line.AccountID, line.OperationDate, line.ValueDate, line.Label, line.Amount, line.PaymentMethod,
		line.PaymentReference, line.ChequeIssuer, line.ChequeBank, line.AuthorID,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert bank line: %w", err)
	}
	id, err := res.LastInsertId()
	return int(id), err
}

func (ts *txStore) GetLedgerLine(ctx context.Context, id int) (*core.LedgerLine, error) {
	var l core.LedgerLine
	err := ts.tx.QueryRowContext(ctx, `
		SELECT id, account_id, operation_date, value_date, label, amount, payment_method,
		       payment_reference, cheque_issuer, cheque_bank, author_id, reconciled, statement_ref
		FROM bank_lines WHERE id = ?
	`, id).Scan(&l.ID, &l.AccountID, &l.OperationDate, &l.ValueDate, &l.Label, &l.Amount, &l.PaymentMethod,
		&l.PaymentReference, &l.ChequeIssuer, &l.ChequeBank, &l.AuthorID, &l.Reconciled, &l.StatementRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (ts *txStore) DeleteLedgerLine(ctx context.Context, id int) error {
	res, err := ts.tx.ExecContext(ctx, "DELETE FROM bank_lines WHERE id = ?", id)
	return expectOneRow(res, err)
}

func (ts *txStore) AddCrossReference(ctx context.Context, ref core.CrossReference) error {
	_, err := ts.tx.ExecContext(ctx,
		"INSERT INTO bank_line_links (bank_line_id, object_id, link_type, label) VALUES (?, ?, ?, ?)",
		ref.LineID, ref.ObjectID, ref.Type, ref.Label)
	if err != nil {
		return fmt.Errorf("failed to insert bank line link: %w", err)
	}
	return nil
}

// ── Shared queries ───────────────────────────────────────────────────────────

const movementSelect = `
	SELECT vp.id, vp.label, vp.direction, vp.amount, vp.currency, vp.payment_method, vp.payment_reference,
	       vp.cheque_issuer, vp.cheque_bank, vp.account_id, vp.bank_line_id, vp.accounting_code,
	       vp.subledger_account, vp.project_id, vp.note, vp.payment_date, vp.value_date, vp.author_id,
	       vp.created_at, vp.updated_at,
	       COALESCE(bl.reconciled, 0), COALESCE(bl.statement_ref, '')
	FROM various_payments vp
	LEFT JOIN bank_lines bl ON bl.id = vp.bank_line_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovement(row rowScanner) (*core.LedgerMovement, error) {
	var m core.LedgerMovement
	var direction, createdAt, updatedAt string
	var bankLineID, projectID sql.NullInt64
	err := row.Scan(&m.ID, &m.Label, &direction, &m.Amount, &m.Currency, &m.PaymentMethod, &m.PaymentReference,
		&m.ChequeIssuer, &m.ChequeBank, &m.AccountID, &bankLineID, &m.AccountingCode,
		&m.SubledgerAccount, &projectID, &m.Note, &m.PaymentDate, &m.ValueDate, &m.AuthorID,
		&createdAt, &updatedAt, &m.BankLineReconciled, &m.StatementRef)
	if err != nil {
		return nil, err
	}
	m.Direction = core.Direction(direction)
	if bankLineID.Valid {
		v := int(bankLineID.Int64)
		m.BankLineID = &v
	}
	if projectID.Valid {
		v := int(projectID.Int64)
		m.ProjectID = &v
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &m, nil
}

func getMovement(ctx context.Context, q querier, id int) (*core.LedgerMovement, error) {
	m, err := scanMovement(q.QueryRowContext(ctx, movementSelect+" WHERE vp.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movement %d: %w", id, err)
	}
	return m, nil
}

func listMovements(ctx context.Context, q querier, f core.MovementFilter) ([]core.LedgerMovement, error) {
	var where []string
	var args []any
	if f.AccountID > 0 {
		where = append(where, "vp.account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.Direction != "" {
		where = append(where, "vp.direction = ?")
		args = append(args, string(f.Direction))
	}
	if f.From != "" {
		where = append(where, "vp.payment_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "vp.payment_date <= ?")
		args = append(args, f.To)
	}
	if f.Reconciled != nil {
		where = append(where, "COALESCE(bl.reconciled, 0) = ?")
		args = append(args, *f.Reconciled)
	}

	query := movementSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY vp.payment_date DESC, vp.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func countExportReferences(ctx context.Context, q querier, bankLineID int) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookkeeping_entries WHERE doc_type = ? AND doc_id = ?",
		core.BookkeepingDocTypeBank, bankLineID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookkeeping entries: %w", err)
	}
	return n, nil
}

// expectOneRow maps "no row affected" to core.ErrNotFound.
func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
