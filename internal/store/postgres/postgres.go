// Package postgres implements the pricing catalog, the ledger store and the
// reference data store on PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/SediraYasser20/DOLX/internal/core"
)

// Store implements core.PricingCatalog, core.LedgerStore and core.ReferenceDataStore.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ core.PricingCatalog     = (*Store)(nil)
	_ core.LedgerStore        = (*Store)(nil)
	_ core.ReferenceDataStore = (*Store)(nil)
	_ core.LedgerTx           = (*txStore)(nil)
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// New wraps an open pool. The schema is managed by cmd/migrate.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ── Pricing catalog ──────────────────────────────────────────────────────────

const priceColumns = "price, price_ttc, price_min, price_min_ttc, price_base_type, tax_rate"

func scanPriceEntry(row pgx.Row) (*core.PriceEntry, error) {
	var e core.PriceEntry
	var basis string
	err := row.Scan(&e.ExclTax, &e.InclTax, &e.MinExclTax, &e.MinInclTax, &basis, &e.TaxRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Basis = core.PriceBasis(basis)
	return &e, nil
}

func (s *Store) LookupCustomerPrice(ctx context.Context, productID, customerID int) (*core.PriceEntry, error) {
	return scanPriceEntry(s.pool.QueryRow(ctx,
		"SELECT "+priceColumns+" FROM product_customer_prices WHERE product_id = $1 AND customer_id = $2",
		productID, customerID))
}

func (s *Store) LookupSegmentPrice(ctx context.Context, productID, level int) (*core.PriceEntry, error) {
	return scanPriceEntry(s.pool.QueryRow(ctx,
		"SELECT "+priceColumns+" FROM product_level_prices WHERE product_id = $1 AND level = $2",
		productID, level))
}

// LookupQuantityPrice picks the break with the largest min_quantity not above qty.
// Floor and tax rate are taken from the product.
func (s *Store) LookupQuantityPrice(ctx context.Context, productID, level int, qty decimal.Decimal) (*core.PriceEntry, error) {
	b := core.QuantityBreak{ProductID: productID, Level: level}
	var basis string
	var product core.PriceEntry
	var productBasis string
	err := s.pool.QueryRow(ctx, `
		SELECT q.min_quantity, q.unit_price, q.price_base_type,
		       p.price, p.price_ttc, p.price_min, p.price_min_ttc, p.price_base_type, p.tax_rate
		FROM product_quantity_prices q
		JOIN products p ON p.id = q.product_id
		WHERE q.product_id = $1 AND q.level = $2 AND q.min_quantity <= $3
		ORDER BY q.min_quantity DESC
		LIMIT 1
	`, productID, level, qty).Scan(&b.MinQuantity, &b.UnitPrice, &basis,
		&product.ExclTax, &product.InclTax, &product.MinExclTax, &product.MinInclTax, &productBasis, &product.TaxRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.Basis = core.PriceBasis(basis)
	product.Basis = core.PriceBasis(productBasis)
	return b.Entry(product), nil
}

func (s *Store) LookupCatalogPrice(ctx context.Context, productID int) (*core.PriceEntry, error) {
	return scanPriceEntry(s.pool.QueryRow(ctx,
		"SELECT "+priceColumns+" FROM products WHERE id = $1", productID))
}

// ── Ledger store ─────────────────────────────────────────────────────────────

// WithTx runs fn inside one transaction. fn's error rolls back.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.LedgerTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) GetMovement(ctx context.Context, id int) (*core.LedgerMovement, error) {
	return getMovement(ctx, s.pool, id)
}

func (s *Store) ListMovements(ctx context.Context, f core.MovementFilter) ([]core.LedgerMovement, error) {
	return listMovements(ctx, s.pool, f)
}

func (s *Store) CountExportReferences(ctx context.Context, bankLineID int) (int, error) {
	return countExportReferences(ctx, s.pool, bankLineID)
}

type txStore struct {
	tx pgx.Tx
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
	err := ts.tx.QueryRow(ctx,
		"SELECT id, ref, label, currency_code FROM bank_accounts WHERE id = $1", id,
	).Scan(&a.ID, &a.Ref, &a.Label, &a.CurrencyCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bank account: %w", err)
	}
	return &a, nil
}

func (ts *txStore) PaymentMethodExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := ts.tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM payment_methods WHERE code = $1 AND active)", code,
	).Scan(&exists)
	return exists, err
}

func (ts *txStore) InsertMovement(ctx context.Context, m *core.LedgerMovement) (int, error) {
	var id int
	err := ts.tx.QueryRow(ctx, `
		INSERT INTO various_payments
		(label, direction, amount, currency, payment_method, payment_reference, cheque_issuer, cheque_bank,
		 account_id, bank_line_id, accounting_code, subledger_account, project_id, note,
		 payment_date, value_date, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`,
		m.Label, string(m.Direction), m.Amount, m.Currency, m.PaymentMethod, m.PaymentReference,
		m.ChequeIssuer, m.ChequeBank, m.AccountID, m.AccountingCode, m.SubledgerAccount,
		m.ProjectID, m.Note, m.PaymentDate, m.ValueDate, m.AuthorID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert movement: %w", err)
	}
	return id, nil
}

func (ts *txStore) SetMovementBankLine(ctx context.Context, movementID, bankLineID int) error {
	tag, err := ts.tx.Exec(ctx,
		"UPDATE various_payments SET bank_line_id = $1, updated_at = NOW() WHERE id = $2 AND bank_line_id IS NULL",
		bankLineID, movementID)
	return expectOneRow(tag, err)
}

func (ts *txStore) UpdateMovementAccounting(ctx context.Context, movementID int, accountingCode, subledger string) error {
	tag, err := ts.tx.Exec(ctx,
		"UPDATE various_payments SET accounting_code = $1, subledger_account = $2, updated_at = NOW() WHERE id = $3",
		accountingCode, subledger, movementID)
	return expectOneRow(tag, err)
}

func (ts *txStore) UpdateMovementProject(ctx context.Context, movementID int, projectID *int) error {
	tag, err := ts.tx.Exec(ctx,
		"UPDATE various_payments SET project_id = $1, updated_at = NOW() WHERE id = $2",
		projectID, movementID)
	return expectOneRow(tag, err)
}

func (ts *txStore) DeleteMovement(ctx context.Context, id int) error {
	tag, err := ts.tx.Exec(ctx, "DELETE FROM various_payments WHERE id = $1", id)
	return expectOneRow(tag, err)
}

func (ts *txStore) CreateLedgerLine(ctx context.Context, line *core.LedgerLine) (int, error) {
	var id int
	err := ts.tx.QueryRow(ctx, `
		INSERT INTO bank_lines
		(account_id, operation_date, value_date, label, amount, payment_method,
		 payment_reference, cheque_issuer, cheque_bank, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		line.AccountID, line.OperationDate, line.ValueDate, line.Label, line.Amount, line.PaymentMethod,
		line.PaymentReference, line.ChequeIssuer, line.ChequeBank, line.AuthorID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert bank line: %w", err)
	}
	return id, nil
}

func (ts *txStore) GetLedgerLine(ctx context.Context, id int) (*core.LedgerLine, error) {
	var l core.LedgerLine
	err := ts.tx.QueryRow(ctx, `
		SELECT id, account_id, operation_date::text, value_date::text, label, amount, payment_method,
		       payment_reference, cheque_issuer, cheque_bank, author_id, reconciled, statement_ref
		FROM bank_lines WHERE id = $1
	`, id).Scan(&l.ID, &l.AccountID, &l.OperationDate, &l.ValueDate, &l.Label, &l.Amount, &l.PaymentMethod,
		&l.PaymentReference, &l.ChequeIssuer, &l.ChequeBank, &l.AuthorID, &l.Reconciled, &l.StatementRef)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bank line: %w", err)
	}
	return &l, nil
}

func (ts *txStore) DeleteLedgerLine(ctx context.Context, id int) error {
	tag, err := ts.tx.Exec(ctx, "DELETE FROM bank_lines WHERE id = $1", id)
	return expectOneRow(tag, err)
}

func (ts *txStore) AddCrossReference(ctx context.Context, ref core.CrossReference) error {
	_, err := ts.tx.Exec(ctx,
		"INSERT INTO bank_line_links (bank_line_id, object_id, link_type, label) VALUES ($1, $2, $3, $4)",
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
	       vp.subledger_account, vp.project_id, vp.note, vp.payment_date::text, vp.value_date::text, vp.author_id,
	       vp.created_at, vp.updated_at,
	       COALESCE(bl.reconciled, false), COALESCE(bl.statement_ref, '')
	FROM various_payments vp
	LEFT JOIN bank_lines bl ON bl.id = vp.bank_line_id`

func scanMovement(row pgx.Row) (*core.LedgerMovement, error) {
	var m core.LedgerMovement
	var direction string
	err := row.Scan(&m.ID, &m.Label, &direction, &m.Amount, &m.Currency, &m.PaymentMethod, &m.PaymentReference,
		&m.ChequeIssuer, &m.ChequeBank, &m.AccountID, &m.BankLineID, &m.AccountingCode,
		&m.SubledgerAccount, &m.ProjectID, &m.Note, &m.PaymentDate, &m.ValueDate, &m.AuthorID,
		&m.CreatedAt, &m.UpdatedAt, &m.BankLineReconciled, &m.StatementRef)
	if err != nil {
		return nil, err
	}
	m.Direction = core.Direction(direction)
	return &m, nil
}

func getMovement(ctx context.Context, q dbtx, id int) (*core.LedgerMovement, error) {
	m, err := scanMovement(q.QueryRow(ctx, movementSelect+" WHERE vp.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movement %d: %w", id, err)
	}
	return m, nil
}

func listMovements(ctx context.Context, q dbtx, f core.MovementFilter) ([]core.LedgerMovement, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.AccountID > 0 {
		add("vp.account_id = $%d", f.AccountID)
	}
	if f.Direction != "" {
		add("vp.direction = $%d", string(f.Direction))
	}
	if f.From != "" {
		add("vp.payment_date >= $%d", f.From)
	}
	if f.To != "" {
		add("vp.payment_date <= $%d", f.To)
	}
	if f.Reconciled != nil {
		add("COALESCE(bl.reconciled, false) = $%d", *f.Reconciled)
	}

	query := movementSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY vp.payment_date DESC, vp.id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := q.Query(ctx, query, args...)
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

func countExportReferences(ctx context.Context, q dbtx, bankLineID int) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		"SELECT COUNT(*) FROM bookkeeping_entries WHERE doc_type = $1 AND doc_id = $2",
		core.BookkeepingDocTypeBank, bankLineID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookkeeping entries: %w", err)
	}
	return n, nil
}

func expectOneRow(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
