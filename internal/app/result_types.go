package app

import "github.com/SediraYasser20/DOLX/internal/core"

// PriceLineResult is returned by PriceLine.
type PriceLineResult struct {
	Resolution      *core.PriceResolution `json:"resolution"`
	Totals          core.LineTotals       `json:"totals"`
	Rejected        bool                  `json:"rejected"`
	RejectionReason string                `json:"rejection_reason,omitempty"`
}

// PaymentResult is returned by payment operations.
type PaymentResult struct {
	Payment  *core.LedgerMovement `json:"payment"`
	State    core.MovementState   `json:"state"`
	Exported bool                 `json:"exported"`
}

// PaymentListResult is returned by ListPayments.
type PaymentListResult struct {
	Payments []core.LedgerMovement `json:"payments"`
}
