/*
errors.go - Centralized error types for the bookkeeping engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Rejected before any collection is written
  2. Lookup-miss errors - A referenced id does not exist
  3. Persistence errors - The record store failed to load or save

  None of these are retried. Each one ends the operation that raised it;
  the caller decides whether to try again.

USAGE:
  if errors.Is(err, generic.ErrNotFound) {
      // 404
  }

SEE ALSO:
  - store.go: Wraps store failures with PersistenceError
  - books/service.go: Raises validation and lookup errors
  - audit/auditor.go: Isolates per-discrepancy failures
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when input is rejected before any write.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock is returned when a sale, production batch or stock
	// removal needs more units than the item holds.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrPersistence is returned when the record store fails.
	ErrPersistence = errors.New("persistence failure")

	// ErrReadOnly is returned for any write while the profile is read-only.
	ErrReadOnly = errors.New("profile is read-only")

	// ErrUnknownCollection is returned for a collection name the engine does not manage.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrInvalidPeriod is returned when a range ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Collection Collection
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Collection, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound is shorthand for &NotFoundError{...}.
func NotFound(c Collection, id string) error {
	return &NotFoundError{Collection: c, ID: id}
}

// InsufficientStockError provides details about a stock shortage.
type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %s, requested %s",
		e.ItemName, e.Available, e.Requested)
}

// Unwrap matches both ErrInsufficientStock and ErrValidation.
func (e *InsufficientStockError) Unwrap() []error {
	return []error{ErrInsufficientStock, ErrValidation}
}

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string
	Message string
	Err     error // underlying validator error, if any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

// Invalid is shorthand for a field-level ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StoreError wraps a record-store failure.
type StoreError struct {
	Op         string
	Collection Collection
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// PersistenceError tags err as a store failure. nil stays nil.
func PersistenceError(op string, c Collection, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Collection: c, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrUnknownCollection)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
