package core

import "context"

// LedgerReader is the read side of the movement store.
type LedgerReader interface {
	// GetMovement returns ErrNotFound when id does not exist.
	GetMovement(ctx context.Context, id int) (*LedgerMovement, error)
	ListMovements(ctx context.Context, f MovementFilter) ([]LedgerMovement, error)
	// CountExportReferences counts bookkeeping rows referencing a bank line.
	CountExportReferences(ctx context.Context, bankLineID int) (int, error)
}

// LedgerTx is the store as seen from inside one transaction.
type LedgerTx interface {
	LedgerReader

	// GetAccount returns ErrNotFound when the bank account does not exist.
	GetAccount(ctx context.Context, id int) (*Account, error)
	PaymentMethodExists(ctx context.Context, code string) (bool, error)

	// InsertMovement stores the header with a null bank line id and returns its id.
	InsertMovement(ctx context.Context, m *LedgerMovement) (int, error)
	SetMovementBankLine(ctx context.Context, movementID, bankLineID int) error
	UpdateMovementAccounting(ctx context.Context, movementID int, accountingCode, subledger string) error
	// UpdateMovementProject links the movement to a project; nil unlinks it.
	UpdateMovementProject(ctx context.Context, movementID int, projectID *int) error
	DeleteMovement(ctx context.Context, id int) error

	CreateLedgerLine(ctx context.Context, line *LedgerLine) (int, error)
	// GetLedgerLine returns ErrNotFound when the line does not exist.
	GetLedgerLine(ctx context.Context, id int) (*LedgerLine, error)
	// DeleteLedgerLine returns ErrNotFound when nothing was deleted.
	DeleteLedgerLine(ctx context.Context, id int) error
	AddCrossReference(ctx context.Context, ref CrossReference) error
}

// LedgerStore opens transactions. fn's error rolls back; nil commits.
type LedgerStore interface {
	LedgerReader
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error
}
