package app

import (
	"github.com/shopspring/decimal"

	"github.com/SediraYasser20/DOLX/internal/core"
)

// PriceLineRequest is the input for pricing one order line.
type PriceLineRequest struct {
	core.PriceQuery

	// CanWaiveMinimum lets a privileged caller accept a price under the floor.
	CanWaiveMinimum bool `json:"can_waive_minimum,omitempty" jsonschema_description:"Accept a price below the product minimum price"`
}

// PostPaymentRequest is the input for recording a various payment.
type PostPaymentRequest struct {
	Label            string          `json:"label" jsonschema_description:"Free-text label of the payment"`
	Direction        core.Direction  `json:"direction" jsonschema:"enum=debit,enum=credit" jsonschema_description:"debit: money leaves the account, credit: money enters it"`
	Amount           decimal.Decimal `json:"amount" jsonschema_description:"Unsigned amount, strictly positive"`
	Currency         string          `json:"currency,omitempty" jsonschema_description:"ISO code, empty means the base currency"`
	PaymentDate      string          `json:"payment_date" jsonschema_description:"YYYY-MM-DD"`
	ValueDate        string          `json:"value_date,omitempty" jsonschema_description:"YYYY-MM-DD, defaults to payment_date"`
	AccountID        int             `json:"account_id,omitempty" jsonschema_description:"Bank account receiving the ledger line"`
	PaymentMethod    string          `json:"payment_method,omitempty" jsonschema_description:"Payment method code, e.g. VIR or CHQ"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	ChequeIssuer     string          `json:"cheque_issuer,omitempty"`
	ChequeBank       string          `json:"cheque_bank,omitempty"`
	AccountingCode   string          `json:"accounting_code,omitempty"`
	SubledgerAccount string          `json:"subledger_account,omitempty"`
	ProjectID        *int            `json:"project_id,omitempty"`
	Note             string          `json:"note,omitempty"`
	AuthorID         int             `json:"author_id,omitempty"`
}

// Movement converts the request into an unsaved movement.
func (r PostPaymentRequest) Movement() core.LedgerMovement {
	return core.LedgerMovement{
		Label:            r.Label,
		Direction:        r.Direction,
		Amount:           r.Amount,
		Currency:         r.Currency,
		PaymentDate:      r.PaymentDate,
		ValueDate:        r.ValueDate,
		AccountID:        r.AccountID,
		PaymentMethod:    r.PaymentMethod,
		PaymentReference: r.PaymentReference,
		ChequeIssuer:     r.ChequeIssuer,
		ChequeBank:       r.ChequeBank,
		AccountingCode:   r.AccountingCode,
		SubledgerAccount: r.SubledgerAccount,
		ProjectID:        r.ProjectID,
		Note:             r.Note,
		AuthorID:         r.AuthorID,
	}
}

// SetAccountingRequest is the input for SetAccountingCode.
type SetAccountingRequest struct {
	PaymentID        int    `json:"payment_id"`
	AccountingCode   string `json:"accounting_code"`
	SubledgerAccount string `json:"subledger_account,omitempty"`
}

// SetProjectRequest is the input for SetProject.
type SetProjectRequest struct {
	PaymentID int `json:"payment_id"`
	ProjectID int `json:"project_id" jsonschema_description:"Project to link, 0 unlinks"`
}

// ClonePaymentRequest is the input for ClonePayment. Empty fields keep the source values.
type ClonePaymentRequest struct {
	PaymentID int `json:"payment_id"`
	core.CloneOptions
}
