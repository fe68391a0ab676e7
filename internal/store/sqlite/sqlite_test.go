package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SediraYasser20/DOLX/internal/core"
	"github.com/SediraYasser20/DOLX/internal/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedProduct(t *testing.T, store *sqlite.Store) int {
	t.Helper()
	id, err := store.CreateProduct(context.Background(), core.Product{
		Ref:   "SVC-CONSULT",
		Label: "Consulting day",
		Price: core.PriceEntry{
			ExclTax:    decimal.NewNullDecimal(decimal.RequireFromString("90.00")),
			MinExclTax: decimal.RequireFromString("80"),
			MinInclTax: decimal.RequireFromString("96"),
			TaxRate:    "20 (FR-NORM)",
		},
	})
	require.NoError(t, err)
	return id
}

func TestCatalogLookups(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	productID := seedProduct(t, store)

	t.Run("catalog", func(t *testing.T) {
		e, err := store.LookupCatalogPrice(ctx, productID)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.ExclTax.Valid)
		assert.True(t, e.ExclTax.Decimal.Equal(decimal.NewFromInt(90)))
		assert.False(t, e.InclTax.Valid, "unset side must stay null")
		assert.Equal(t, "20 (FR-NORM)", e.TaxRate)
		assert.Equal(t, core.PriceBasisExclTax, e.Basis)
	})

	t.Run("unknown product", func(t *testing.T) {
		e, err := store.LookupCatalogPrice(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, e)
	})

	t.Run("customer price", func(t *testing.T) {
		require.NoError(t, store.SetCustomerPrice(ctx, productID, 7, core.PriceEntry{
			InclTax:    decimal.NewNullDecimal(decimal.NewFromInt(84)),
			MinInclTax: decimal.NewFromInt(78),
			TaxRate:    "20",
			Basis:      core.PriceBasisInclTax,
		}))

		e, err := store.LookupCustomerPrice(ctx, productID, 7)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, core.PriceBasisInclTax, e.Basis)
		assert.True(t, e.MinInclTax.Equal(decimal.NewFromInt(78)))

		other, err := store.LookupCustomerPrice(ctx, productID, 8)
		require.NoError(t, err)
		assert.Nil(t, other)
	})

	t.Run("level price replaces", func(t *testing.T) {
		for _, price := range []int64{85, 86} {
			require.NoError(t, store.SetLevelPrice(ctx, productID, 2, core.PriceEntry{
				ExclTax: decimal.NewNullDecimal(decimal.NewFromInt(price)),
				TaxRate: "20",
			}))
		}
		e, err := store.LookupSegmentPrice(ctx, productID, 2)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.ExclTax.Decimal.Equal(decimal.NewFromInt(86)))
	})
}

func TestLookupQuantityPrice(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	productID := seedProduct(t, store)

	for _, b := range []struct{ min, price string }{{"10", "88"}, {"50", "84"}, {"100.5", "80"}} {
		require.NoError(t, store.AddQuantityBreak(ctx, core.QuantityBreak{
			ProductID:   productID,
			MinQuantity: decimal.RequireFromString(b.min),
			UnitPrice:   decimal.RequireFromString(b.price),
		}))
	}

	tests := []struct {
		qty   string
		price string // empty: no break applies
	}{
		{"1", ""},
		{"10", "88"},
		{"49.99", "88"},
		{"50", "84"},
		{"100", "84"},
		{"100.5", "80"},
	}

	for _, tt := range tests {
		t.Run(tt.qty, func(t *testing.T) {
			e, err := store.LookupQuantityPrice(ctx, productID, 0, decimal.RequireFromString(tt.qty))
			require.NoError(t, err)
			if tt.price == "" {
				assert.Nil(t, e)
				return
			}
			require.NotNil(t, e)
			assert.True(t, e.ExclTax.Decimal.Equal(decimal.RequireFromString(tt.price)), "got %s", e.ExclTax.Decimal)
			assert.True(t, e.MinExclTax.Equal(decimal.NewFromInt(80)), "floor comes from the product")
			assert.Equal(t, "20 (FR-NORM)", e.TaxRate)
		})
	}

	t.Run("other level has no breaks", func(t *testing.T) {
		e, err := store.LookupQuantityPrice(ctx, productID, 3, decimal.NewFromInt(500))
		require.NoError(t, err)
		assert.Nil(t, e)
	})
}

func TestLedgerTx_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreatePaymentMethod(ctx, "VIR", "Bank transfer"))
	require.NoError(t, store.CreatePaymentMethod(ctx, "VIR", "duplicate is ignored"))
	accountID, err := store.CreateAccount(ctx, core.Account{Ref: "BANK", Label: "Bank", CurrencyCode: "EUR"})
	require.NoError(t, err)

	projectID := 12
	var movementID, lineID int
	err = store.WithTx(ctx, func(tx core.LedgerTx) error {
		ok, err := tx.PaymentMethodExists(ctx, "VIR")
		require.NoError(t, err)
		assert.True(t, ok)

		account, err := tx.GetAccount(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, "EUR", account.CurrencyCode)

		movementID, err = tx.InsertMovement(ctx, &core.LedgerMovement{
			Label:         "Insurance",
			Direction:     core.Debit,
			Amount:        decimal.RequireFromString("1234.56"),
			PaymentMethod: "VIR",
			AccountID:     accountID,
			ProjectID:     &projectID,
			PaymentDate:   "2026-05-02",
			ValueDate:     "2026-05-03",
		})
		if err != nil {
			return err
		}
		lineID, err = tx.CreateLedgerLine(ctx, &core.LedgerLine{
			AccountID:     accountID,
			OperationDate: "2026-05-02",
			ValueDate:     "2026-05-03",
			Label:         "Insurance",
			Amount:        decimal.RequireFromString("-1234.56"),
			PaymentMethod: "VIR",
		})
		if err != nil {
			return err
		}
		if err := tx.SetMovementBankLine(ctx, movementID, lineID); err != nil {
			return err
		}
		// the bank line id is set once
		assert.ErrorIs(t, tx.SetMovementBankLine(ctx, movementID, lineID+1), core.ErrNotFound)
		return tx.AddCrossReference(ctx, core.CrossReference{
			LineID: lineID, ObjectID: movementID, Type: core.CrossReferenceVariousPayment, Label: "(VariousPayment)",
		})
	})
	require.NoError(t, err)

	m, err := store.GetMovement(ctx, movementID)
	require.NoError(t, err)
	assert.Equal(t, core.Debit, m.Direction)
	assert.Equal(t, "1234.56", m.Amount.StringFixed(2))
	require.NotNil(t, m.BankLineID)
	assert.Equal(t, lineID, *m.BankLineID)
	require.NotNil(t, m.ProjectID)
	assert.Equal(t, 12, *m.ProjectID)
	assert.Equal(t, "2026-05-03", m.ValueDate)
	assert.False(t, m.CreatedAt.IsZero())

	_, err = store.GetMovement(ctx, movementID+1)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedgerTx_Rollback(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.WithTx(ctx, func(tx core.LedgerTx) error {
		_, err := tx.InsertMovement(ctx, &core.LedgerMovement{
			Label: "Temp", Direction: core.Credit, Amount: decimal.NewFromInt(1),
			PaymentDate: "2026-05-02", ValueDate: "2026-05-02",
		})
		require.NoError(t, err)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	list, err := store.ListMovements(ctx, core.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLedgerTx_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.WithTx(ctx, func(tx core.LedgerTx) error {
		_, err := tx.GetAccount(ctx, 1)
		assert.ErrorIs(t, err, core.ErrNotFound)
		_, err = tx.GetLedgerLine(ctx, 1)
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.ErrorIs(t, tx.DeleteLedgerLine(ctx, 1), core.ErrNotFound)
		assert.ErrorIs(t, tx.DeleteMovement(ctx, 1), core.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	assert.ErrorIs(t, store.ReconcileLine(ctx, 1, "STMT"), core.ErrNotFound)
}

func TestNonPositiveAmountRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.WithTx(ctx, func(tx core.LedgerTx) error {
		_, err := tx.InsertMovement(ctx, &core.LedgerMovement{
			Label: "Bad", Direction: core.Credit, Amount: decimal.NewFromInt(-3),
			PaymentDate: "2026-05-02", ValueDate: "2026-05-02",
		})
		return err
	})
	assert.Error(t, err)
}

func TestNew_FileDatabasePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dolx.db")

	store, err := sqlite.New(path)
	require.NoError(t, err)
	_, err = store.CreateAccount(ctx, core.Account{Ref: "BANK", Label: "Bank", CurrencyCode: "EUR"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.CreateAccount(ctx, core.Account{Ref: "BANK", Label: "Again", CurrencyCode: "EUR"})
	assert.Error(t, err, "ref is unique across reopen")
}
