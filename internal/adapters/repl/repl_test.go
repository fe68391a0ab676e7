package repl_test

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SediraYasser20/DOLX/internal/adapters/repl"
	"github.com/SediraYasser20/DOLX/internal/app"
	"github.com/SediraYasser20/DOLX/internal/core"
	"github.com/SediraYasser20/DOLX/internal/store/sqlite"
)

func newService(t *testing.T) (app.ApplicationService, int, int) {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.CreatePaymentMethod(ctx, "VIR", "Bank transfer"))
	accountID, err := store.CreateAccount(ctx, core.Account{Ref: "BANK", Label: "Bank", CurrencyCode: "EUR"})
	require.NoError(t, err)
	productID, err := store.CreateProduct(ctx, core.Product{
		Ref:   "SVC",
		Label: "Service",
		Price: core.PriceEntry{
			ExclTax:    decimal.NewNullDecimal(decimal.NewFromInt(90)),
			MinExclTax: decimal.NewFromInt(80),
			TaxRate:    "20",
		},
	})
	require.NoError(t, err)

	resolver := core.NewPriceResolver(store, core.DefaultPricingPolicy(), nil)
	posting := core.NewLedgerPostingService(store, core.DefaultPostingPolicy(), nil)
	return app.NewAppService(resolver, posting, true, nil), accountID, productID
}

func session(t *testing.T, svc app.ApplicationService, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	input := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	repl.Run(context.Background(), svc, input, &out, "EUR")
	return out.String()
}

func TestRun_PaymentWizard(t *testing.T) {
	svc, accountID, _ := newService(t)

	out := session(t, svc,
		"/pay",
		"Bank charges",
		"x", // invalid direction, asked again
		"d",
		"-4",
		"12.30",
		"2026-09-01",
		fmt.Sprint(accountID),
		"vir",
		"",
		"627000",
		"y",
		"/list",
		"/exit",
	)

	assert.Contains(t, out, "Enter d or c.")
	assert.Contains(t, out, "Invalid amount.")
	assert.Contains(t, out, "Payment POSTED (ID: 1)")
	assert.Contains(t, out, "-12.30 (debit)")
	assert.Contains(t, out, "Bank charges")
	assert.Contains(t, out, "Goodbye!")

	list, err := svc.ListPayments(context.Background(), core.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, list.Payments, 1)
	assert.Equal(t, "627000", list.Payments[0].AccountingCode)
}

func TestRun_PaymentWizardCancel(t *testing.T) {
	svc, _, _ := newService(t)

	out := session(t, svc, "/pay", "Rent", "cancel", "/exit")
	assert.Contains(t, out, "Payment cancelled.")

	list, err := svc.ListPayments(context.Background(), core.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Payments)
}

func TestRun_Clone(t *testing.T) {
	svc, accountID, _ := newService(t)
	ctx := context.Background()

	src, err := svc.PostPayment(ctx, app.PostPaymentRequest{
		Label:         "Bank charges",
		Direction:     core.Debit,
		Amount:        decimal.RequireFromString("12.30"),
		PaymentDate:   "2026-09-01",
		AccountID:     accountID,
		PaymentMethod: "VIR",
	})
	require.NoError(t, err)

	out := session(t, svc,
		fmt.Sprintf("/clone %d", src.Payment.ID),
		"",
		"2026-10-01",
		"",
		"0",
		"",
		"y",
		"/exit",
	)
	assert.Contains(t, out, "Label [Copy of Bank charges]")
	assert.Contains(t, out, "Invalid amount.")
	assert.Contains(t, out, "Payment CLONED (ID: 2)")
	assert.Contains(t, out, "Copy of Bank charges")
	assert.Contains(t, out, "2026-10-01 / 2026-10-01")

	clone, err := svc.GetPayment(ctx, 2)
	require.NoError(t, err)
	assert.True(t, clone.Payment.Amount.Equal(decimal.RequireFromString("12.30")))
	assert.NotEqual(t, *src.Payment.BankLineID, *clone.Payment.BankLineID)
}

func TestRun_Price(t *testing.T) {
	svc, _, productID := newService(t)

	out := session(t, svc,
		fmt.Sprintf("/price %d 2", productID),
		fmt.Sprintf("/price %d 1 20%%", productID),
		"/price abc 1",
		"/exit",
	)
	assert.Contains(t, out, "Source: catalog")
	assert.Contains(t, out, "180.00 excl.")
	assert.Contains(t, out, "REJECTED: price 72.00 cannot be less than minimum price 80.00")
	assert.Contains(t, out, `Error: invalid product id "abc"`)
}

func TestRun_UnknownInput(t *testing.T) {
	svc, _, _ := newService(t)

	out := session(t, svc, "post something", "/frob", "/show 99")
	assert.Contains(t, out, "Commands start with '/'")
	assert.Contains(t, out, "Unknown command: /frob")
	assert.Contains(t, out, "Error:")
}
