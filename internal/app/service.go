package app

import (
	"context"

	"github.com/SediraYasser20/DOLX/internal/core"
)

// ApplicationService is the single interface all adapters call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// PriceLine resolves the unit price of one order line and computes its totals.
	// A line under its minimum price is returned with Rejected set unless the caller may waive it.
	PriceLine(ctx context.Context, req PriceLineRequest) (*PriceLineResult, error)

	// PostPayment records a various payment and, when bank integration is on, its bank line.
	PostPayment(ctx context.Context, req PostPaymentRequest) (*PaymentResult, error)

	// GetPayment returns one payment with its derived state.
	GetPayment(ctx context.Context, id int) (*PaymentResult, error)

	// ListPayments returns payments newest first.
	ListPayments(ctx context.Context, filter core.MovementFilter) (*PaymentListResult, error)

	// DeletePayment removes a payment and its bank line.
	// Reconciled or exported payments are refused.
	DeletePayment(ctx context.Context, id int) error

	// SetAccountingCode changes the accounting code and subledger account of a payment
	// not yet exported to bookkeeping.
	SetAccountingCode(ctx context.Context, req SetAccountingRequest) (*PaymentResult, error)

	// SetProject links a payment to a project. A zero project id unlinks it.
	SetProject(ctx context.Context, req SetProjectRequest) (*PaymentResult, error)

	// ClonePayment posts a copy of a payment with its own bank line.
	ClonePayment(ctx context.Context, req ClonePaymentRequest) (*PaymentResult, error)

	// IsPaymentExported reports whether the payment's bank line reached bookkeeping.
	IsPaymentExported(ctx context.Context, id int) (bool, error)
}
