package core

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Normalize cleans up caller input before validation.
func (m *LedgerMovement) Normalize() {
	m.Label = strings.TrimSpace(m.Label)
	m.Note = strings.TrimSpace(m.Note)
	m.Currency = strings.ToUpper(strings.TrimSpace(m.Currency))
	m.PaymentMethod = strings.ToUpper(strings.TrimSpace(m.PaymentMethod))
	m.PaymentReference = strings.TrimSpace(m.PaymentReference)
	m.ChequeIssuer = strings.TrimSpace(m.ChequeIssuer)
	m.ChequeBank = strings.TrimSpace(m.ChequeBank)
	m.AccountingCode = strings.TrimSpace(m.AccountingCode)
	m.SubledgerAccount = strings.TrimSpace(m.SubledgerAccount)
	m.Direction = Direction(strings.ToLower(strings.TrimSpace(string(m.Direction))))
	m.PaymentDate = strings.TrimSpace(m.PaymentDate)
	m.ValueDate = strings.TrimSpace(m.ValueDate)

	if m.ValueDate == "" {
		m.ValueDate = m.PaymentDate
	}
}

// Validate checks the movement before posting. All missing fields are reported
// together in one ValidationError.
func (m *LedgerMovement) Validate(bankEnabled bool, policy PostingPolicy) error {
	var missing []string

	if m.Label == "" {
		missing = append(missing, "label")
	}
	if !m.Amount.IsPositive() {
		missing = append(missing, "amount")
	}
	if !m.Direction.Valid() {
		missing = append(missing, "direction")
	}
	if m.PaymentDate == "" {
		missing = append(missing, "payment_date")
	}
	if bankEnabled {
		if m.AccountID <= 0 {
			missing = append(missing, "account_id")
		}
		if m.PaymentMethod == "" {
			missing = append(missing, "payment_method")
		}
	}
	if policy.RequireAccountingCode && m.AccountingCode == "" {
		missing = append(missing, "accounting_code")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}

	if _, err := time.Parse(dateLayout, m.PaymentDate); err != nil {
		return fmt.Errorf("%w: payment date %q: %v", ErrInvalidField, m.PaymentDate, err)
	}
	if _, err := time.Parse(dateLayout, m.ValueDate); err != nil {
		return fmt.Errorf("%w: value date %q: %v", ErrInvalidField, m.ValueDate, err)
	}
	return nil
}

// effectiveCurrency is the movement currency, defaulting to the base currency.
func (m *LedgerMovement) effectiveCurrency(policy PostingPolicy) string {
	if m.Currency != "" {
		return m.Currency
	}
	return strings.ToUpper(policy.BaseCurrency)
}
