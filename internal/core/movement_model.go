package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a various payment as seen from the bank account.
type Direction string

const (
	Debit  Direction = "debit"  // money leaves the account
	Credit Direction = "credit" // money enters the account
)

func (d Direction) Valid() bool {
	return d == Debit || d == Credit
}

// MovementState is derived, never stored.
//
//	PENDING (no bank line) → POSTED (bank line linked) → EXPORTED (bookkeeping rows exist)
type MovementState string

const (
	MovementPending  MovementState = "PENDING"
	MovementPosted   MovementState = "POSTED"
	MovementExported MovementState = "EXPORTED"
)

// CrossReferenceVariousPayment tags the link from a bank line to its movement.
const CrossReferenceVariousPayment = "various_payment"

// Account is a bank account able to receive ledger lines.
type Account struct {
	ID           int    `json:"id"`
	Ref          string `json:"ref"`
	Label        string `json:"label"`
	CurrencyCode string `json:"currency_code"`
}

// LedgerMovement is a standalone various payment. Amount is unsigned; the sign
// of its bank line comes from Direction. BankLineID is set once and never changes.
type LedgerMovement struct {
	ID               int             `json:"id"`
	Label            string          `json:"label"`
	Direction        Direction       `json:"direction"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency,omitempty"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	ChequeIssuer     string          `json:"cheque_issuer,omitempty"`
	ChequeBank       string          `json:"cheque_bank,omitempty"`
	AccountID        int             `json:"account_id,omitempty"`
	BankLineID       *int            `json:"bank_line_id,omitempty"`
	AccountingCode   string          `json:"accounting_code,omitempty"`
	SubledgerAccount string          `json:"subledger_account,omitempty"`
	ProjectID        *int            `json:"project_id,omitempty"`
	Note             string          `json:"note,omitempty"`
	PaymentDate      string          `json:"payment_date"` // YYYY-MM-DD
	ValueDate        string          `json:"value_date"`   // YYYY-MM-DD, defaults to PaymentDate
	AuthorID         int             `json:"author_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	BankLineReconciled bool   `json:"bank_line_reconciled"` // joined from bank_lines
	StatementRef       string `json:"statement_ref,omitempty"`
}

// SignedAmount is the amount written to the bank line: negative for Debit, positive for Credit.
func (m *LedgerMovement) SignedAmount() decimal.Decimal {
	if m.Direction == Debit {
		return m.Amount.Neg()
	}
	return m.Amount
}

// State reports PENDING or POSTED. EXPORTED needs a bookkeeping lookup, see AlreadyExported.
func (m *LedgerMovement) State() MovementState {
	if m.BankLineID == nil {
		return MovementPending
	}
	return MovementPosted
}

// LedgerLine is one row of a bank account register. Amount is signed.
type LedgerLine struct {
	ID               int             `json:"id"`
	AccountID        int             `json:"account_id"`
	OperationDate    string          `json:"operation_date"`
	ValueDate        string          `json:"value_date"`
	Label            string          `json:"label"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	ChequeIssuer     string          `json:"cheque_issuer,omitempty"`
	ChequeBank       string          `json:"cheque_bank,omitempty"`
	AuthorID         int             `json:"author_id,omitempty"`
	Reconciled       bool            `json:"reconciled"`
	StatementRef     string          `json:"statement_ref,omitempty"`
}

// CrossReference links a ledger line back to the object that produced it.
type CrossReference struct {
	LineID   int    `json:"line_id"`
	ObjectID int    `json:"object_id"`
	Type     string `json:"type"`
	Label    string `json:"label"`
}

// CloneOptions overrides fields of a cloned movement. Empty fields keep the
// source value, except ValueDate which follows the copy's payment date.
type CloneOptions struct {
	Label       string              `json:"label,omitempty"`
	PaymentDate string              `json:"payment_date,omitempty"`
	ValueDate   string              `json:"value_date,omitempty"`
	Direction   Direction           `json:"direction,omitempty"`
	Amount      decimal.NullDecimal `json:"amount,omitempty"`
}

// MovementFilter narrows ListMovements. Zero values mean "no filter".
type MovementFilter struct {
	AccountID  int       `json:"account_id,omitempty"`
	Direction  Direction `json:"direction,omitempty"`
	From       string    `json:"from,omitempty"` // YYYY-MM-DD, inclusive
	To         string    `json:"to,omitempty"`   // YYYY-MM-DD, inclusive
	Reconciled *bool     `json:"reconciled,omitempty"`
	Limit      int       `json:"limit,omitempty"`
}
