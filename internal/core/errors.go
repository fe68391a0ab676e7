package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ── Sentinel errors ──────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMissingPriceInput is returned when a line has no product, no manual price and no description.
	ErrMissingPriceInput = errors.New("missing price input: line needs a product, a price or a description")

	// ErrInvalidPriceInput is returned for malformed rates and out-of-range discounts.
	ErrInvalidPriceInput = errors.New("invalid price input")

	// ErrMissingField is returned when a required movement field is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidField is returned when a movement field is present but malformed.
	ErrInvalidField = errors.New("invalid field")

	ErrInvalidAccount                = errors.New("invalid bank account")
	ErrUnknownPaymentMethod          = errors.New("unknown payment method")
	ErrUnsupportedCurrencyConversion = errors.New("currency conversion between movement and bank account is not supported")

	// ErrStorageFailure wraps any persistence failure. The transaction is always rolled back.
	ErrStorageFailure = errors.New("storage failure")

	// ErrReconciled is returned when deleting a movement whose bank line is already reconciled.
	ErrReconciled = errors.New("bank line is reconciled")

	// ErrExported is returned when modifying a movement already transferred to bookkeeping.
	ErrExported = errors.New("movement already exported to bookkeeping")

	ErrMovementNotFound = errors.New("movement not found")

	// ErrHookAborted is returned when an extension hook vetoes an operation.
	ErrHookAborted = errors.New("aborted by hook")

	ErrBelowMinimumPrice = errors.New("price is below minimum price")
)

// ── Structured errors ────────────────────────────────────────────────────────

// ValidationError lists every missing field of a movement.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field(s): %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrMissingField
}

// StorageError carries the failing operation and its cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageFailure, e.Err}
}

// CurrencyMismatchError reports a movement and an account in different currencies.
type CurrencyMismatchError struct {
	MovementCurrency string
	AccountCurrency  string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("movement currency %s differs from bank account currency %s: conversion not supported",
		e.MovementCurrency, e.AccountCurrency)
}

func (e *CurrencyMismatchError) Unwrap() error {
	return ErrUnsupportedCurrencyConversion
}

// MinimumPriceError reports a resolved line priced under its floor.
type MinimumPriceError struct {
	Basis     PriceBasis
	Effective decimal.Decimal
	Minimum   decimal.Decimal
}

func (e *MinimumPriceError) Error() string {
	suffix := ""
	if e.Basis == PriceBasisInclTax {
		suffix = " (incl. tax)"
	}
	return fmt.Sprintf("price %s cannot be less than minimum price %s%s",
		e.Effective.StringFixed(2), e.Minimum.StringFixed(2), suffix)
}

func (e *MinimumPriceError) Unwrap() error {
	return ErrBelowMinimumPrice
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// storageErr wraps err as a StorageError unless it already is one
// or it is a business error that must surface unchanged.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || IsClientError(err) || errors.Is(err, ErrHookAborted) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsClientError returns true if the error is caused by invalid caller input or state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingPriceInput) ||
		errors.Is(err, ErrInvalidPriceInput) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrInvalidAccount) ||
		errors.Is(err, ErrUnknownPaymentMethod) ||
		errors.Is(err, ErrUnsupportedCurrencyConversion) ||
		errors.Is(err, ErrReconciled) ||
		errors.Is(err, ErrExported) ||
		errors.Is(err, ErrBelowMinimumPrice) ||
		errors.Is(err, ErrMovementNotFound)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMovementNotFound)
}
