package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SediraYasser20/DOLX/internal/adapters/cli"
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

	require.NoError(t, store.CreatePaymentMethod(ctx, "CHQ", "Cheque"))
	accountID, err := store.CreateAccount(ctx, core.Account{Ref: "BANK", Label: "Bank", CurrencyCode: "EUR"})
	require.NoError(t, err)
	productID, err := store.CreateProduct(ctx, core.Product{
		Ref:   "BOOK",
		Label: "Book",
		Price: core.PriceEntry{
			InclTax:    decimal.NewNullDecimal(decimal.RequireFromString("21.10")),
			MinInclTax: decimal.NewFromInt(15),
			TaxRate:    "5.5",
			Basis:      core.PriceBasisInclTax,
		},
	})
	require.NoError(t, err)

	resolver := core.NewPriceResolver(store, core.DefaultPricingPolicy(), nil)
	posting := core.NewLedgerPostingService(store, core.DefaultPostingPolicy(), nil)
	return app.NewAppService(resolver, posting, true, nil), accountID, productID
}

func run(t *testing.T, svc app.ApplicationService, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := cli.Execute(context.Background(), svc, args, strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestExecute_Price(t *testing.T) {
	svc, _, productID := newService(t)

	out, err := run(t, svc, fmt.Sprintf(`{"product_id": %d, "quantity": "3"}`, productID), "price")
	require.NoError(t, err)
	assert.Contains(t, out, "LINE PRICE")
	assert.Contains(t, out, "catalog (incl_tax basis)")
	assert.Contains(t, out, "63.30")
	assert.NotContains(t, out, "REJECTED")

	out, err = run(t, svc, fmt.Sprintf(`{"product_id": %d, "quantity": "1", "discount_percent": "50"}`, productID), "pr")
	require.NoError(t, err)
	assert.Contains(t, out, "REJECTED")
	assert.Contains(t, out, "(incl. tax)")

	_, err = run(t, svc, "{not json", "price")
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestExecute_PaymentCommands(t *testing.T) {
	svc, accountID, _ := newService(t)

	payload := fmt.Sprintf(`{
		"label": "Deposit refund",
		"direction": "credit",
		"amount": "250.00",
		"payment_date": "2026-08-12",
		"account_id": %d,
		"payment_method": "chq",
		"cheque_issuer": "ACME"
	}`, accountID)
	out, err := run(t, svc, payload, "post")
	require.NoError(t, err)

	var posted app.PaymentResult
	require.NoError(t, json.Unmarshal([]byte(out), &posted))
	assert.Equal(t, core.MovementPosted, posted.State)
	id := posted.Payment.ID

	out, err = run(t, svc, "", "show", fmt.Sprint(id))
	require.NoError(t, err)
	assert.Contains(t, out, `"cheque_issuer": "ACME"`)

	out, err = run(t, svc, "", "ls", "-direction", "CREDIT", "-from", "2026-08-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Deposit refund")
	assert.Contains(t, out, "250.00")

	out, err = run(t, svc, "", "exported", fmt.Sprint(id))
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	out, err = run(t, svc, "", "acc", fmt.Sprint(id), "758000")
	require.NoError(t, err)
	assert.Contains(t, out, `"accounting_code": "758000"`)

	out, err = run(t, svc, "", "delete", fmt.Sprint(id))
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = run(t, svc, "", "show", fmt.Sprint(id))
	assert.ErrorIs(t, err, core.ErrMovementNotFound)
}

func TestExecute_CloneAndProject(t *testing.T) {
	svc, accountID, _ := newService(t)
	ctx := context.Background()

	src, err := svc.PostPayment(ctx, app.PostPaymentRequest{
		Label:         "Insurance",
		Direction:     core.Debit,
		Amount:        decimal.NewFromInt(300),
		PaymentDate:   "2026-01-05",
		AccountID:     accountID,
		PaymentMethod: "CHQ",
	})
	require.NoError(t, err)
	id := fmt.Sprint(src.Payment.ID)

	out, err := run(t, svc, "", "clone", id, "-date", "2026-02-05", "-amount", "310")
	require.NoError(t, err)
	var cloned app.PaymentResult
	require.NoError(t, json.Unmarshal([]byte(out), &cloned))
	assert.Equal(t, "Copy of Insurance", cloned.Payment.Label)
	assert.Equal(t, "2026-02-05", cloned.Payment.ValueDate)
	assert.True(t, cloned.Payment.Amount.Equal(decimal.NewFromInt(310)))
	assert.NotEqual(t, *src.Payment.BankLineID, *cloned.Payment.BankLineID)

	out, err = run(t, svc, "", "set-project", id, "12")
	require.NoError(t, err)
	assert.Contains(t, out, `"project_id": 12`)
}

func TestExecute_ListTruncatesLabelsOnCharacters(t *testing.T) {
	svc, accountID, _ := newService(t)

	_, err := svc.PostPayment(context.Background(), app.PostPaymentRequest{
		Label:         "Frais de dossier été éé",
		Direction:     core.Debit,
		Amount:        decimal.NewFromInt(15),
		PaymentDate:   "2026-06-01",
		AccountID:     accountID,
		PaymentMethod: "CHQ",
	})
	require.NoError(t, err)

	out, err := run(t, svc, "", "list")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "Frais de dossier été …")
}

func TestExecute_Errors(t *testing.T) {
	svc, _, _ := newService(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no command", nil, "missing command"},
		{"unknown command", []string{"frobnicate"}, "unknown command"},
		{"missing id", []string{"show"}, "usage"},
		{"bad id", []string{"delete", "abc"}, "invalid payment id"},
		{"bad reconciled flag", []string{"list", "-reconciled", "maybe"}, "invalid -reconciled"},
		{"unknown flag", []string{"list", "-colour", "red"}, "invalid list flags"},
		{"set-accounting without code", []string{"set-accounting", "1"}, "usage"},
		{"schema without target", []string{"schema"}, "usage"},
		{"set-project without project", []string{"set-project", "1"}, "usage"},
		{"negative project", []string{"set-project", "1", "-2"}, "invalid project id"},
		{"bad clone direction", []string{"clone", "1", "-direction", "up"}, "invalid -direction"},
		{"bad clone amount", []string{"clone", "1", "-amount", "lots"}, "invalid -amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, svc, "", tt.args...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestExecute_Schema(t *testing.T) {
	svc, _, _ := newService(t)

	out, err := run(t, svc, "", "schema", "post")
	require.NoError(t, err)
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "payment_date")
	assert.Contains(t, props, "direction")

	out, err = run(t, svc, "", "schema", "price")
	require.NoError(t, err)
	assert.Contains(t, out, "can_waive_minimum")
	assert.Contains(t, out, "discount_percent")
}
