/*
errors.go - Centralized error types for the coin engine core

PURPOSE:
  All domain error values in one place. Handlers map these to HTTP status
  codes; coordinators wrap them with context via fmt.Errorf("...: %w", err).

ERROR CATEGORIES:
  1. Precondition failures - insufficient balance/stock, already done
  2. Not-found errors - missing user, product, event, session
  3. Ledger errors - duplicate idempotency key, persistence failure
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a debit exceeds the current
	// balance. The wallet and history are left untouched.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientStock is returned when requested quantity exceeds
	// a product's available stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrAlreadyCompleted is returned on submission to a completed game
	// session. Completed is a terminal state.
	ErrAlreadyCompleted = errors.New("already completed")

	// ErrAlreadySpunToday is returned on a second spin-wheel attempt
	// within the same local calendar day.
	ErrAlreadySpunToday = errors.New("already spun today")

	// ErrDuplicateEntry is returned when an entry with the same
	// idempotency key already exists. Expected on retries.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")

	// ErrUserNotFound is returned when no wallet exists for a user.
	// Wallets are provisioned once at signup, never lazily.
	ErrUserNotFound = errors.New("user not found")

	// ErrProductNotFound is returned when a referenced product doesn't exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrEventNotFound is returned when a referenced event doesn't exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrSessionNotFound is returned when a referenced game session doesn't exist.
	ErrSessionNotFound = errors.New("game session not found")

	// ErrPuzzleNotFound is returned when a sudoku level or guess puzzle doesn't exist.
	ErrPuzzleNotFound = errors.New("puzzle not found")

	// ErrOrderNotFound is returned when a referenced order doesn't exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrBookingNotFound is returned when a referenced booking doesn't exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSoldOut is returned when a booking would exceed an event's capacity.
	ErrSoldOut = errors.New("event sold out")

	// ErrBadSignature is returned when a payment signature fails verification.
	ErrBadSignature = errors.New("invalid payment signature")

	// ErrValidation is wrapped around missing/malformed input failures so
	// handlers can map them to 400 without string matching.
	ErrValidation = errors.New("validation error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports how short a debit fell.
type InsufficientBalanceError struct {
	UserID    UserID
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d coins, need %d", e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InsufficientStockError reports a stock shortage for a product.
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: have %d, need %d", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsPreconditionFailure returns true for domain precondition failures that
// map to HTTP 400.
func IsPreconditionFailure(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrAlreadySpunToday) ||
		errors.Is(err, ErrSoldOut) ||
		errors.Is(err, ErrBadSignature) ||
		errors.Is(err, ErrDuplicateEntry)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrPuzzleNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrBookingNotFound)
}
