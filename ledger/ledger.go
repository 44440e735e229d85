/*
ledger.go - The authoritative coin write path

PURPOSE:
  Ledger is the single entry point for every balance change. ApplyDelta
  enforces non-negativity, updates the stored balance, tracks lifetime
  redemption, and appends the matching history entry.

CRITICAL INVARIANTS:
  1. coins >= 0 after every call; violating calls change nothing
  2. coinsRedeemed is monotonically non-decreasing (debits only)
  3. Every balance change has exactly one history entry
  4. Same idempotency key = one applied change, ever

WHY ONE WRITE PATH?
  The platform this replaces mutated the balance from a dozen handlers,
  some inside a store transaction and some not, which is how ledgers
  drift. Here every caller goes through ApplyDelta, and coordinators run
  it inside TxStore.WithTx together with any paired stock/seat/session
  write. Audit replays the history to prove the two stayed in sync.

EXAMPLE FLOW:
  1. Signup grant:        ApplyDelta +50  (signup_bonus)
  2. Checkout spends 50:  ApplyDelta -50  (redeemed)      coinsRedeemed += 50
  3. Cashback on order:   ApplyDelta +45  (purchase)
  4. Overspend attempt:   ApplyDelta -100 -> InsufficientBalanceError

SEE ALSO:
  - store.go: Persistence interfaces
  - commerce/: Coordinators that pair ApplyDelta with stock/seat writes
  - games/: Coordinators that pair ApplyDelta with session writes
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ledger applies balance deltas against a Store. Construct one over the
// transaction-scoped Store inside TxStore.WithTx to make the delta atomic
// with other writes.
type Ledger struct {
	Store Store
}

func New(store Store) *Ledger {
	return &Ledger{Store: store}
}

// Provision creates a zero-balance wallet for a new user. This is the only
// place wallets come from; every other operation fails with ErrUserNotFound
// on a missing wallet.
func (l *Ledger) Provision(ctx context.Context, userID UserID) error {
	return l.Store.CreateWallet(ctx, userID)
}

// ApplyDelta changes a user's balance by delta and appends entry.
//
// Preconditions:
//   - the wallet exists (ErrUserNotFound otherwise)
//   - delta != 0
//   - if delta < 0, balance + delta >= 0 (InsufficientBalanceError otherwise)
//
// On success returns the new balance. If delta < 0, coinsRedeemed is
// incremented by -delta. The entry's UserID, Coins, and CreatedAt are
// filled in here; callers set Action, Description, ReferenceID, and
// IdempotencyKey.
func (l *Ledger) ApplyDelta(ctx context.Context, userID UserID, delta int64, entry Entry) (int64, error) {
	if delta == 0 {
		return 0, fmt.Errorf("%w: zero delta for %s", ErrValidation, userID)
	}

	w, err := l.Store.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}

	if delta < 0 && w.Coins+delta < 0 {
		return 0, &InsufficientBalanceError{
			UserID:    userID,
			Available: w.Coins,
			Requested: -delta,
		}
	}

	entry.UserID = userID
	entry.Coins = delta
	if entry.ID == "" {
		entry.ID = EntryID(uuid.NewString())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	// Append first: the UNIQUE idempotency key makes the entry the
	// duplicate guard for the whole delta.
	if err := l.Store.AppendEntry(ctx, entry); err != nil {
		return 0, err
	}

	w.Coins += delta
	if delta < 0 {
		w.CoinsRedeemed += -delta
	}
	w.UpdatedAt = entry.CreatedAt

	if err := l.Store.UpdateWallet(ctx, *w); err != nil {
		return 0, fmt.Errorf("apply delta: update wallet: %w", err)
	}

	return w.Coins, nil
}

// Balance returns the stored balance.
func (l *Ledger) Balance(ctx context.Context, userID UserID) (int64, error) {
	w, err := l.Store.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return w.Coins, nil
}

// History returns the user's entries in chronological order.
func (l *Ledger) History(ctx context.Context, userID UserID) ([]Entry, error) {
	if _, err := l.Store.GetWallet(ctx, userID); err != nil {
		return nil, err
	}
	return l.Store.Entries(ctx, userID)
}

// Audit replays the user's history and compares it to the stored balance.
// Drift is always zero unless a write bypassed ApplyDelta.
func (l *Ledger) Audit(ctx context.Context, userID UserID) (AuditReport, error) {
	w, err := l.Store.GetWallet(ctx, userID)
	if err != nil {
		return AuditReport{}, err
	}

	entries, err := l.Store.Entries(ctx, userID)
	if err != nil {
		return AuditReport{}, err
	}

	var replayed int64
	for _, e := range entries {
		replayed += e.Coins
	}

	return AuditReport{
		UserID:   userID,
		Stored:   w.Coins,
		Replayed: replayed,
		Drift:    w.Coins - replayed,
		Entries:  len(entries),
	}, nil
}
