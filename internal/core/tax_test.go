package core_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SediraYasser20/DOLX/internal/core"
)

func TestParseTaxRate(t *testing.T) {
	tests := []struct {
		label       string
		rate        string
		code        string
		recoverable bool
	}{
		{label: "20", rate: "20"},
		{label: "20 (FR-NORM)", rate: "20", code: "FR-NORM"},
		{label: "8.5*", rate: "8.5", recoverable: true},
		{label: "8.5* (NPR)", rate: "8.5", code: "NPR", recoverable: true},
		{label: "5,5", rate: "5.5"},
		{label: "", rate: "0"},
		{label: "  10% ", rate: "10"},
		{label: "*", rate: "0"},
		{label: "0*", rate: "0"},
		{label: "* (EXO)", rate: "0", code: "EXO"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			tr, err := core.ParseTaxRate(tt.label)
			require.NoError(t, err)
			assert.True(t, tr.Rate.Equal(decimal.RequireFromString(tt.rate)), "rate %s", tr.Rate)
			assert.Equal(t, tt.code, tr.Code)
			assert.Equal(t, tt.recoverable, tr.RecoverableOnly)
		})
	}
}

func TestParseTaxRate_KeepsLabel(t *testing.T) {
	tr, err := core.ParseTaxRate("20 (FR-NORM)")
	require.NoError(t, err)
	assert.Equal(t, "20 (FR-NORM)", tr.Label)
}

func TestParseTaxRate_Invalid(t *testing.T) {
	for _, label := range []string{"abc", "-5", "(X)x"} {
		_, err := core.ParseTaxRate(label)
		require.Error(t, err, label)
		assert.True(t, errors.Is(err, core.ErrInvalidPriceInput), label)
	}
}

func TestTaxRoundTrip(t *testing.T) {
	rates := []string{"0", "5.5", "8.5", "10", "20", "21"}
	prices := []string{"0.01", "1", "9.99", "90", "123.45", "1000000"}

	for _, r := range rates {
		rate := decimal.RequireFromString(r)
		for _, p := range prices {
			excl := decimal.RequireFromString(p)
			back := core.ExclTaxFromIncl(core.InclTaxFromExcl(excl, rate), rate)
			assert.True(t, back.Round(2).Equal(excl.Round(2)), "rate %s price %s -> %s", r, p, back)
		}
	}
}

func TestInclTaxFromExcl(t *testing.T) {
	got := core.InclTaxFromExcl(decimal.NewFromInt(100), decimal.NewFromInt(20))
	assert.True(t, got.Equal(decimal.NewFromInt(120)), "got %s", got)

	got = core.ExclTaxFromIncl(decimal.NewFromInt(120), decimal.NewFromInt(20))
	assert.True(t, got.Equal(decimal.NewFromInt(100)), "got %s", got)
}
