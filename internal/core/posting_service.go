package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// variousPaymentLinkLabel is the label stored on the bank line cross-reference.
	variousPaymentLinkLabel = "(VariousPayment)"
	cloneLabelPrefix        = "Copy of "
)

// PostingService records various payments and keeps their bank lines in step.
type PostingService interface {
	PostMovement(ctx context.Context, m LedgerMovement, bankEnabled bool) (*LedgerMovement, error)
	DeleteMovement(ctx context.Context, id int) error
	AlreadyExported(ctx context.Context, id int) (bool, error)
	GetMovement(ctx context.Context, id int) (*LedgerMovement, error)
	ListMovements(ctx context.Context, f MovementFilter) ([]LedgerMovement, error)
	UpdateAccounting(ctx context.Context, id int, accountingCode, subledger string) (*LedgerMovement, error)
	UpdateProject(ctx context.Context, id int, projectID *int) (*LedgerMovement, error)
	CloneMovement(ctx context.Context, id int, o CloneOptions, bankEnabled bool) (*LedgerMovement, error)
}

// LedgerPostingService implements PostingService over a LedgerStore.
type LedgerPostingService struct {
	store  LedgerStore
	policy PostingPolicy
	logger *zap.Logger
	hooks  []MovementHook
}

// NewLedgerPostingService constructs a LedgerPostingService. Hooks run in the order given.
func NewLedgerPostingService(store LedgerStore, policy PostingPolicy, logger *zap.Logger, hooks ...MovementHook) *LedgerPostingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerPostingService{store: store, policy: policy, logger: logger, hooks: hooks}
}

// Policy returns the posting policy the service applies.
func (s *LedgerPostingService) Policy() PostingPolicy {
	return s.policy
}

// PostMovement stores m and, when bankEnabled, its bank line and cross-reference,
// all in one transaction. On any failure nothing is persisted.
func (s *LedgerPostingService) PostMovement(ctx context.Context, m LedgerMovement, bankEnabled bool) (*LedgerMovement, error) {
	// 1. Structural validation
	m.Normalize()
	if err := m.Validate(bankEnabled, s.policy); err != nil {
		return nil, fmt.Errorf("movement validation failed: %w", err)
	}
	m.BankLineID = nil

	var movementID int
	err := s.store.WithTx(ctx, func(tx LedgerTx) error {
		// 2. Bank account, currency and payment method
		if bankEnabled {
			if err := s.checkBankSide(ctx, tx, &m); err != nil {
				return err
			}
		}

		// 3. Header with a null bank line
		id, err := tx.InsertMovement(ctx, &m)
		if err != nil {
			return storageErr("insert movement", err)
		}
		movementID = id
		m.ID = id

		// 4. Bank line, back-reference and cross-reference
		if bankEnabled && !m.Amount.IsZero() {
			lineID, err := tx.CreateLedgerLine(ctx, &LedgerLine{
				AccountID:        m.AccountID,
				OperationDate:    m.PaymentDate,
				ValueDate:        m.ValueDate,
				Label:            m.Label,
				Amount:           m.SignedAmount(),
				PaymentMethod:    m.PaymentMethod,
				PaymentReference: m.PaymentReference,
				ChequeIssuer:     m.ChequeIssuer,
				ChequeBank:       m.ChequeBank,
				AuthorID:         m.AuthorID,
			})
			if err != nil {
				return storageErr("create ledger line", err)
			}
			if err := tx.SetMovementBankLine(ctx, id, lineID); err != nil {
				return storageErr("link ledger line", err)
			}
			if err := tx.AddCrossReference(ctx, CrossReference{
				LineID:   lineID,
				ObjectID: id,
				Type:     CrossReferenceVariousPayment,
				Label:    variousPaymentLinkLabel,
			}); err != nil {
				return storageErr("add cross-reference", err)
			}
			m.BankLineID = &lineID
		}

		// 5. Extension hooks see the committed-to-be state
		return runMovementHooks(ctx, s.hooks, MovementCreated, &m, tx)
	})
	if err != nil {
		s.logger.Warn("movement posting rolled back",
			zap.String("label", m.Label),
			zap.String("amount", m.Amount.String()),
			zap.Error(err),
		)
		return nil, storageErr("post movement", err)
	}

	posted, err := s.GetMovement(ctx, movementID)
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{
		zap.Int("movement_id", posted.ID),
		zap.String("direction", string(posted.Direction)),
		zap.String("amount", posted.Amount.String()),
	}
	if posted.BankLineID != nil {
		fields = append(fields, zap.Int("bank_line_id", *posted.BankLineID))
	}
	s.logger.Info("movement posted", fields...)
	return posted, nil
}

func (s *LedgerPostingService) checkBankSide(ctx context.Context, tx LedgerTx, m *LedgerMovement) error {
	account, err := tx.GetAccount(ctx, m.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: account %d not found", ErrInvalidAccount, m.AccountID)
		}
		return storageErr("get account", err)
	}

	if !s.policy.AllowCrossCurrencyLedger {
		movementCurrency := m.effectiveCurrency(s.policy)
		accountCurrency := strings.ToUpper(account.CurrencyCode)
		if accountCurrency == "" {
			accountCurrency = strings.ToUpper(s.policy.BaseCurrency)
		}
		if movementCurrency != "" && accountCurrency != "" && movementCurrency != accountCurrency {
			return &CurrencyMismatchError{MovementCurrency: movementCurrency, AccountCurrency: accountCurrency}
		}
	}

	ok, err := tx.PaymentMethodExists(ctx, m.PaymentMethod)
	if err != nil {
		return storageErr("look up payment method", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPaymentMethod, m.PaymentMethod)
	}
	return nil
}

// DeleteMovement removes a movement and its bank line. A reconciled bank line
// blocks deletion. A bank line that is already gone is not an error.
func (s *LedgerPostingService) DeleteMovement(ctx context.Context, id int) error {
	err := s.store.WithTx(ctx, func(tx LedgerTx) error {
		m, err := tx.GetMovement(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: %d", ErrMovementNotFound, id)
			}
			return storageErr("get movement", err)
		}

		if m.BankLineID != nil {
			line, err := tx.GetLedgerLine(ctx, *m.BankLineID)
			switch {
			case err == nil && line.Reconciled:
				return fmt.Errorf("%w: movement %d, bank line %d", ErrReconciled, id, line.ID)
			case err != nil && !errors.Is(err, ErrNotFound):
				return storageErr("get ledger line", err)
			}
		}

		if err := runMovementHooks(ctx, s.hooks, MovementDeleted, m, tx); err != nil {
			return err
		}

		if m.BankLineID != nil {
			err := tx.DeleteLedgerLine(ctx, *m.BankLineID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return storageErr("delete ledger line", err)
			}
		}
		if err := tx.DeleteMovement(ctx, id); err != nil {
			return storageErr("delete movement", err)
		}
		return nil
	})
	if err != nil {
		return storageErr("delete movement", err)
	}

	s.logger.Info("movement deleted", zap.Int("movement_id", id))
	return nil
}

// AlreadyExported reports whether the movement's bank line has bookkeeping rows.
// It never writes.
func (s *LedgerPostingService) AlreadyExported(ctx context.Context, id int) (bool, error) {
	m, err := s.GetMovement(ctx, id)
	if err != nil {
		return false, err
	}
	if m.BankLineID == nil {
		return false, nil
	}
	n, err := s.store.CountExportReferences(ctx, *m.BankLineID)
	if err != nil {
		return false, storageErr("count export references", err)
	}
	return n > 0, nil
}

// GetMovement returns one movement with its bank line reconciliation data.
func (s *LedgerPostingService) GetMovement(ctx context.Context, id int) (*LedgerMovement, error) {
	m, err := s.store.GetMovement(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrMovementNotFound, id)
		}
		return nil, storageErr("get movement", err)
	}
	return m, nil
}

// ListMovements returns movements newest first.
func (s *LedgerPostingService) ListMovements(ctx context.Context, f MovementFilter) ([]LedgerMovement, error) {
	if f.Direction != "" && !f.Direction.Valid() {
		return nil, fmt.Errorf("%w: direction %q", ErrInvalidField, f.Direction)
	}
	movements, err := s.store.ListMovements(ctx, f)
	if err != nil {
		return nil, storageErr("list movements", err)
	}
	return movements, nil
}

// UpdateAccounting changes the accounting code and subledger account.
// Movements already exported to bookkeeping are refused.
func (s *LedgerPostingService) UpdateAccounting(ctx context.Context, id int, accountingCode, subledger string) (*LedgerMovement, error) {
	accountingCode = strings.TrimSpace(accountingCode)
	subledger = strings.TrimSpace(subledger)
	if s.policy.RequireAccountingCode && accountingCode == "" {
		return nil, &ValidationError{Fields: []string{"accounting_code"}}
	}

	err := s.store.WithTx(ctx, func(tx LedgerTx) error {
		m, err := tx.GetMovement(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: %d", ErrMovementNotFound, id)
			}
			return storageErr("get movement", err)
		}
		if m.BankLineID != nil {
			n, err := tx.CountExportReferences(ctx, *m.BankLineID)
			if err != nil {
				return storageErr("count export references", err)
			}
			if n > 0 {
				return fmt.Errorf("%w: movement %d", ErrExported, id)
			}
		}
		if err := tx.UpdateMovementAccounting(ctx, id, accountingCode, subledger); err != nil {
			return storageErr("update accounting", err)
		}
		m.AccountingCode = accountingCode
		m.SubledgerAccount = subledger
		return runMovementHooks(ctx, s.hooks, MovementModified, m, tx)
	})
	if err != nil {
		return nil, storageErr("update accounting", err)
	}
	return s.GetMovement(ctx, id)
}

// UpdateProject links a movement to a project. A nil or non-positive id unlinks it.
func (s *LedgerPostingService) UpdateProject(ctx context.Context, id int, projectID *int) (*LedgerMovement, error) {
	if projectID != nil && *projectID <= 0 {
		projectID = nil
	}

	err := s.store.WithTx(ctx, func(tx LedgerTx) error {
		m, err := tx.GetMovement(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: %d", ErrMovementNotFound, id)
			}
			return storageErr("get movement", err)
		}
		if err := tx.UpdateMovementProject(ctx, id, projectID); err != nil {
			return storageErr("update project", err)
		}
		m.ProjectID = projectID
		return runMovementHooks(ctx, s.hooks, MovementModified, m, tx)
	})
	if err != nil {
		return nil, storageErr("update project", err)
	}
	return s.GetMovement(ctx, id)
}

// CloneMovement posts a copy of movement id with its own bank line and
// cross-reference. The copy is labelled "Copy of <label>" unless o.Label is set.
func (s *LedgerPostingService) CloneMovement(ctx context.Context, id int, o CloneOptions, bankEnabled bool) (*LedgerMovement, error) {
	src, err := s.GetMovement(ctx, id)
	if err != nil {
		return nil, err
	}

	clone := *src
	clone.ID = 0
	clone.BankLineID = nil
	clone.BankLineReconciled = false
	clone.StatementRef = ""
	clone.CreatedAt = time.Time{}
	clone.UpdatedAt = time.Time{}

	clone.Label = cloneLabelPrefix + src.Label
	if label := strings.TrimSpace(o.Label); label != "" {
		clone.Label = label
	}
	if o.PaymentDate != "" {
		clone.PaymentDate = o.PaymentDate
	}
	// Empty means the copy's payment date, see Normalize.
	clone.ValueDate = o.ValueDate
	if o.Direction != "" {
		clone.Direction = o.Direction
	}
	if o.Amount.Valid {
		clone.Amount = o.Amount.Decimal
	}

	posted, err := s.PostMovement(ctx, clone, bankEnabled)
	if err != nil {
		return nil, err
	}
	s.logger.Info("movement cloned", zap.Int("source_id", id), zap.Int("movement_id", posted.ID))
	return posted, nil
}
