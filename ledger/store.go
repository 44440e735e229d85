/*
store.go - Persistence interfaces for wallets and history

PURPOSE:
  Defines the interface between the ledger and the database. History is
  append-only; the stored wallet balance is updated only together with an
  appended entry, inside the same store transaction.

KEY INTERFACES:
  Store:   Wallet + history persistence
  TxStore: Atomic multi-write operations (the coordinators' contract)

APPEND-ONLY CONTRACT:
  wallet history has Append and Load. NO Update() or Delete() methods
  exist. Corrections are new adjustment entries.

IDEMPOTENCY:
  Append rejects an entry whose idempotency key already exists, so a
  retried checkout or game submit cannot double-credit.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - ledger/store: In-memory store for tests
*/
package ledger

import "context"

// =============================================================================
// STORE - Wallet and history persistence
// =============================================================================

// Store persists wallets and their append-only history.
type Store interface {
	// CreateWallet provisions a zero-balance wallet. Fails if one exists.
	CreateWallet(ctx context.Context, userID UserID) error

	// GetWallet returns the stored wallet, or ErrUserNotFound.
	GetWallet(ctx context.Context, userID UserID) (*Wallet, error)

	// UpdateWallet writes new coins/coinsRedeemed values.
	// Only the Ledger calls this, and only alongside AppendEntry.
	UpdateWallet(ctx context.Context, w Wallet) error

	// AppendEntry persists a history entry. Returns ErrDuplicateEntry if
	// the idempotency key exists. This is the only history write.
	AppendEntry(ctx context.Context, e Entry) error

	// Entries returns a user's history in insertion (chronological) order.
	Entries(ctx context.Context, userID UserID) ([]Entry, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic unit for coordinators
// =============================================================================

// TxStore wraps Store with transaction support. Every coordinator action
// (checkout, booking, game submit, spin) runs inside one WithTx call so a
// balance change, its history entry, and any paired stock/seat/session
// mutation commit or roll back together.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
