package core

import (
	"context"
	"fmt"
)

// MovementEvent names the lifecycle point a hook is called at.
type MovementEvent string

const (
	MovementCreated  MovementEvent = "movement_created"
	MovementModified MovementEvent = "movement_modified"
	MovementDeleted  MovementEvent = "movement_deleted"
)

// MovementHook is called at each lifecycle event. Returning an error aborts the
// operation: on create and modify the transaction is rolled back, on delete nothing is removed.
// Created and modified hooks run inside the transaction and receive it.
type MovementHook interface {
	OnMovement(ctx context.Context, event MovementEvent, m *LedgerMovement, tx LedgerTx) error
}

// MovementHookFunc adapts a function to MovementHook.
type MovementHookFunc func(ctx context.Context, event MovementEvent, m *LedgerMovement, tx LedgerTx) error

func (f MovementHookFunc) OnMovement(ctx context.Context, event MovementEvent, m *LedgerMovement, tx LedgerTx) error {
	return f(ctx, event, m, tx)
}

// PricePostProcessor may adjust or veto a resolution. A non-nil error aborts resolution.
type PricePostProcessor func(ctx context.Context, q PriceQuery, res *PriceResolution) error

func runMovementHooks(ctx context.Context, hooks []MovementHook, event MovementEvent, m *LedgerMovement, tx LedgerTx) error {
	for i, h := range hooks {
		if err := h.OnMovement(ctx, event, m, tx); err != nil {
			return fmt.Errorf("%w: %s hook %d: %v", ErrHookAborted, event, i, err)
		}
	}
	return nil
}
