package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SediraYasser20/DOLX/internal/core"
	"github.com/SediraYasser20/DOLX/internal/store/postgres"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../../migrations/001_pricing_ledger.sql")
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE bookkeeping_entries, various_payments, bank_line_links, bank_lines, bank_accounts,
			product_quantity_prices, product_level_prices, product_customer_prices, products CASCADE;
	`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}
	return pool
}

func TestPostgres_QuantityBreakInSQL(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.New(pool)
	ctx := context.Background()

	productID, err := store.CreateProduct(ctx, core.Product{
		Ref:   "P-" + uuid.NewString()[:8],
		Label: "Widget",
		Price: core.PriceEntry{
			ExclTax:    decimal.NewNullDecimal(decimal.NewFromInt(90)),
			MinExclTax: decimal.NewFromInt(80),
			TaxRate:    "20 (FR-NORM)",
		},
	})
	require.NoError(t, err)

	for _, b := range []struct{ min, price int64 }{{10, 88}, {50, 84}} {
		require.NoError(t, store.AddQuantityBreak(ctx, core.QuantityBreak{
			ProductID:   productID,
			MinQuantity: decimal.NewFromInt(b.min),
			UnitPrice:   decimal.NewFromInt(b.price),
		}))
	}

	e, err := store.LookupQuantityPrice(ctx, productID, 0, decimal.RequireFromString("49.5"))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.True(t, e.ExclTax.Decimal.Equal(decimal.NewFromInt(88)), "got %s", e.ExclTax.Decimal)
	assert.True(t, e.MinExclTax.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "20 (FR-NORM)", e.TaxRate)

	none, err := store.LookupQuantityPrice(ctx, productID, 0, decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Nil(t, none)

	resolver := core.NewPriceResolver(store, core.DefaultPricingPolicy(), nil)
	res, err := resolver.Resolve(ctx, core.PriceQuery{
		ProductID:       &productID,
		Quantity:        decimal.NewFromInt(60),
		DiscountPercent: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.Equal(t, core.PriceSourceQuantity, res.Source)
	assert.True(t, res.EffectivePrice.Equal(decimal.RequireFromString("79.8")), "got %s", res.EffectivePrice)
	assert.True(t, res.ViolatesMinimum)
}

func TestPostgres_PostingLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.New(pool)
	ctx := context.Background()

	accountID, err := store.CreateAccount(ctx, core.Account{
		Ref:          "BANK-" + uuid.NewString()[:8],
		Label:        "Current account",
		CurrencyCode: "EUR",
	})
	require.NoError(t, err)

	svc := core.NewLedgerPostingService(store, core.DefaultPostingPolicy(), nil)
	posted, err := svc.PostMovement(ctx, core.LedgerMovement{
		Label:         "Supplier refund",
		Direction:     core.Credit,
		Amount:        decimal.RequireFromString("321.09"),
		PaymentMethod: "VIR",
		AccountID:     accountID,
		PaymentDate:   "2026-06-30",
	}, true)
	require.NoError(t, err)
	require.NotNil(t, posted.BankLineID)
	assert.Equal(t, "2026-06-30", posted.ValueDate)

	err = store.WithTx(ctx, func(tx core.LedgerTx) error {
		line, err := tx.GetLedgerLine(ctx, *posted.BankLineID)
		if err != nil {
			return err
		}
		assert.True(t, line.Amount.Equal(decimal.RequireFromString("321.09")))
		assert.Equal(t, "2026-06-30", line.OperationDate)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, store.ReconcileLine(ctx, *posted.BankLineID, "STMT-06"))
	assert.ErrorIs(t, svc.DeleteMovement(ctx, posted.ID), core.ErrReconciled)

	_, err = store.RecordBookkeepingEntry(ctx, core.BookkeepingEntry{
		DocType: core.BookkeepingDocTypeBank,
		DocID:   *posted.BankLineID,
		Credit:  decimal.RequireFromString("321.09"),
	})
	require.NoError(t, err)

	exported, err := svc.AlreadyExported(ctx, posted.ID)
	require.NoError(t, err)
	assert.True(t, exported)

	list, err := svc.ListMovements(ctx, core.MovementFilter{AccountID: accountID, From: "2026-06-01", To: "2026-06-30"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].BankLineReconciled)

	project := 4
	linked, err := svc.UpdateProject(ctx, posted.ID, &project)
	require.NoError(t, err)
	require.NotNil(t, linked.ProjectID)
	assert.Equal(t, 4, *linked.ProjectID)

	clone, err := svc.CloneMovement(ctx, posted.ID, core.CloneOptions{PaymentDate: "2026-07-31"}, true)
	require.NoError(t, err)
	assert.Equal(t, "Copy of Supplier refund", clone.Label)
	assert.Equal(t, "2026-07-31", clone.ValueDate)
	require.NotNil(t, clone.BankLineID)
	assert.NotEqual(t, *posted.BankLineID, *clone.BankLineID)
	assert.False(t, clone.BankLineReconciled)
}

func TestPostgres_RollbackOnMissingAccount(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.New(pool)
	ctx := context.Background()

	svc := core.NewLedgerPostingService(store, core.DefaultPostingPolicy(), nil)
	_, err := svc.PostMovement(ctx, core.LedgerMovement{
		Label:         "Ghost",
		Direction:     core.Debit,
		Amount:        decimal.NewFromInt(5),
		PaymentMethod: "VIR",
		AccountID:     999999,
		PaymentDate:   "2026-06-30",
	}, true)
	assert.ErrorIs(t, err, core.ErrInvalidAccount)

	list, err := store.ListMovements(ctx, core.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
