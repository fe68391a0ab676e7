package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SediraYasser20/DOLX/internal/core"
)

type appService struct {
	resolver    *core.PriceResolver
	posting     core.PostingService
	bankEnabled bool
	logger      *zap.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	resolver *core.PriceResolver,
	posting core.PostingService,
	bankEnabled bool,
	logger *zap.Logger,
) ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &appService{
		resolver:    resolver,
		posting:     posting,
		bankEnabled: bankEnabled,
		logger:      logger,
	}
}

// PriceLine resolves one order line and computes its totals.
func (s *appService) PriceLine(ctx context.Context, req PriceLineRequest) (*PriceLineResult, error) {
	res, err := s.resolver.Resolve(ctx, req.PriceQuery)
	if err != nil {
		return nil, err
	}

	totals, err := core.ComputeLineTotals(res, req.Quantity)
	if err != nil {
		return nil, err
	}

	result := &PriceLineResult{Resolution: res, Totals: totals}
	if err := core.CheckMinimumPrice(res, req.CanWaiveMinimum); err != nil {
		result.Rejected = true
		result.RejectionReason = err.Error()
	} else if res.ViolatesMinimum {
		s.logger.Info("minimum price waived",
			zap.String("effective", res.EffectivePrice.String()),
			zap.String("minimum", res.Floor().String()),
		)
	}
	return result, nil
}

// PostPayment records a various payment.
func (s *appService) PostPayment(ctx context.Context, req PostPaymentRequest) (*PaymentResult, error) {
	log := s.operationLogger("post_payment")
	m, err := s.posting.PostMovement(ctx, req.Movement(), s.bankEnabled)
	if err != nil {
		log.Info("payment refused", zap.String("label", req.Label), zap.Error(err))
		return nil, err
	}
	log.Debug("payment recorded", zap.Int("payment_id", m.ID), zap.String("state", string(m.State())))
	return &PaymentResult{Payment: m, State: m.State()}, nil
}

// GetPayment returns one payment with its derived state.
func (s *appService) GetPayment(ctx context.Context, id int) (*PaymentResult, error) {
	m, err := s.posting.GetMovement(ctx, id)
	if err != nil {
		return nil, err
	}
	exported, err := s.posting.AlreadyExported(ctx, id)
	if err != nil {
		return nil, err
	}
	state := m.State()
	if exported {
		state = core.MovementExported
	}
	return &PaymentResult{Payment: m, State: state, Exported: exported}, nil
}

// ListPayments returns payments newest first.
func (s *appService) ListPayments(ctx context.Context, filter core.MovementFilter) (*PaymentListResult, error) {
	payments, err := s.posting.ListMovements(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &PaymentListResult{Payments: payments}, nil
}

// DeletePayment refuses exported payments, then delegates to the posting service
// which refuses reconciled ones.
func (s *appService) DeletePayment(ctx context.Context, id int) error {
	exported, err := s.posting.AlreadyExported(ctx, id)
	if err != nil {
		return err
	}
	log := s.operationLogger("delete_payment").With(zap.Int("payment_id", id))
	if exported {
		log.Info("delete refused, payment already exported")
		return fmt.Errorf("cannot delete payment %d: %w", id, core.ErrExported)
	}
	if err := s.posting.DeleteMovement(ctx, id); err != nil {
		log.Info("delete refused", zap.Error(err))
		return err
	}
	return nil
}

// SetAccountingCode changes the accounting code and subledger account of a payment.
func (s *appService) SetAccountingCode(ctx context.Context, req SetAccountingRequest) (*PaymentResult, error) {
	if req.PaymentID <= 0 {
		return nil, errors.New("payment_id is required")
	}
	m, err := s.posting.UpdateAccounting(ctx, req.PaymentID, req.AccountingCode, req.SubledgerAccount)
	if err != nil {
		s.operationLogger("set_accounting").Info("accounting update refused",
			zap.Int("payment_id", req.PaymentID), zap.Error(err))
		return nil, err
	}
	return &PaymentResult{Payment: m, State: m.State()}, nil
}

// SetProject links a payment to a project.
func (s *appService) SetProject(ctx context.Context, req SetProjectRequest) (*PaymentResult, error) {
	if req.PaymentID <= 0 {
		return nil, errors.New("payment_id is required")
	}
	m, err := s.posting.UpdateProject(ctx, req.PaymentID, &req.ProjectID)
	if err != nil {
		s.operationLogger("set_project").Info("project update refused",
			zap.Int("payment_id", req.PaymentID), zap.Error(err))
		return nil, err
	}
	return &PaymentResult{Payment: m, State: m.State()}, nil
}

// ClonePayment posts a copy of a payment.
func (s *appService) ClonePayment(ctx context.Context, req ClonePaymentRequest) (*PaymentResult, error) {
	if req.PaymentID <= 0 {
		return nil, errors.New("payment_id is required")
	}
	log := s.operationLogger("clone_payment").With(zap.Int("source_id", req.PaymentID))
	m, err := s.posting.CloneMovement(ctx, req.PaymentID, req.CloneOptions, s.bankEnabled)
	if err != nil {
		log.Info("clone refused", zap.Error(err))
		return nil, err
	}
	log.Debug("payment cloned", zap.Int("payment_id", m.ID))
	return &PaymentResult{Payment: m, State: m.State()}, nil
}

// IsPaymentExported reports whether the payment's bank line reached bookkeeping.
func (s *appService) IsPaymentExported(ctx context.Context, id int) (bool, error) {
	return s.posting.AlreadyExported(ctx, id)
}

// operationLogger tags every log line of one operation with a fresh operation id.
func (s *appService) operationLogger(op string) *zap.Logger {
	return s.logger.With(zap.String("op", op), zap.String("operation_id", uuid.NewString()))
}
