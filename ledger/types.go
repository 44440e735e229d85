/*
Package ledger provides the coin wallet core.

PURPOSE:
  This package contains the types and the single authoritative entry point
  for every coin-affecting operation on the platform. Whether a user books
  an event, checks out a cart, or wins a mini-game, the balance change goes
  through Ledger.ApplyDelta and is recorded as an immutable Entry.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: An immutable history record of one balance change
  - Action: What caused the change (purchase, game reward, redemption, ...)
  - Wallet: The stored aggregate (coins, coinsRedeemed)
  - UserID/EntryID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified or deleted
  2. Single write path: ApplyDelta is the only way coins change
  3. Auditability: stored balance is reconcilable by replaying entries
  4. Non-negativity: a debit that would take coins below zero is rejected

SEE ALSO:
  - ledger.go: The Ledger service (ApplyDelta, Balance, Audit)
  - store.go: Persistence interfaces
  - errors.go: Sentinel and structured errors
*/
package ledger

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type EntryID string

// =============================================================================
// ACTION - What caused a balance change
// =============================================================================

type Action string

const (
	ActionPurchase        Action = "purchase"          // Checkout cashback credit
	ActionRedeemed        Action = "redeemed"          // Coins spent at checkout or booking
	ActionEventBooked     Action = "event_booked"      // Booking reward credit
	ActionEventAttended   Action = "event_attended"    // Attendance credit (imported history only)
	ActionGameReward      Action = "game_reward"       // Sudoku/riddle/movie/2048 credit
	ActionSpinWheelReward Action = "spin_wheel_reward" // Daily spin credit
	ActionAdjustment      Action = "adjustment"        // Manual admin correction
	ActionSignupBonus     Action = "signup_bonus"      // Wallet provisioning grant
)

// =============================================================================
// ENTRY - Immutable record of one balance change
// =============================================================================

// Entry is one line of a user's coin history. Positive Coins is a credit,
// negative is a debit. Entries are append-only; corrections are made with
// an ActionAdjustment entry of the opposite sign, never by editing.
type Entry struct {
	ID          EntryID
	UserID      UserID
	Action      Action
	Coins       int64
	Description string

	// ReferenceID links the entry to the order, booking, or game session
	// that produced it.
	ReferenceID string

	// IdempotencyKey prevents double-application on retries. Optional,
	// but every coordinator in this module sets one.
	IdempotencyKey string

	CreatedAt time.Time
}

// IsCredit reports whether the entry adds coins.
func (e Entry) IsCredit() bool { return e.Coins > 0 }

// IsDebit reports whether the entry removes coins.
func (e Entry) IsDebit() bool { return e.Coins < 0 }

// =============================================================================
// WALLET - Stored aggregate
// =============================================================================

// Wallet is the stored per-user balance. Coins and CoinsRedeemed are
// mutated only by ApplyDelta, in the same store transaction that appends
// the matching Entry.
type Wallet struct {
	UserID        UserID
	Coins         int64
	CoinsRedeemed int64
	UpdatedAt     time.Time
}

// AuditReport is the result of replaying a user's history against the
// stored balance. Drift should always be zero; a non-zero drift means a
// write path bypassed the ledger.
type AuditReport struct {
	UserID   UserID
	Stored   int64
	Replayed int64
	Drift    int64
	Entries  int
}

// Consistent reports whether the stored balance matches the replayed one.
func (r AuditReport) Consistent() bool { return r.Drift == 0 }
