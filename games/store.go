/*
store.go - Persistence contract for the game coordinators

PURPOSE:
  Same pattern as commerce: the game flows depend on this interface and
  commit through WithGamesTx, which store/sqlite implements. A reward
  credit and its session update always land in the same transaction.
*/
package games

import (
	"context"
	"math/rand"
	"time"

	"plaza/coin-engine/ledger"
)

// Store is everything the game coordinators need to persist.
type Store interface {
	ledger.Store

	GetSudokuLevel(ctx context.Context, id string) (*SudokuLevel, error)
	GetGuessPuzzle(ctx context.Context, kind Kind, id string) (*GuessPuzzle, error)

	SaveSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	GetSessionByPuzzle(ctx context.Context, userID ledger.UserID, kind Kind, puzzleID string) (*Session, error)

	// RecordSpin enforces the once-per-calendar-day rule via a unique
	// (user, day) key, returning ledger.ErrAlreadySpunToday on conflict.
	RecordSpin(ctx context.Context, userID ledger.UserID, dayKey string, reward int64) error
}

// TxStore adds the atomic unit the game flows commit through.
type TxStore interface {
	Store

	// WithGamesTx executes fn within one store transaction.
	WithGamesTx(ctx context.Context, fn func(Store) error) error
}

// Service runs the mini-game flows.
type Service struct {
	Store TxStore

	// Rand drives the spin wheel and hint cell selection. Tests inject a
	// seeded source.
	Rand *rand.Rand

	// Loc is the local timezone for the calendar-day spin rule.
	Loc *time.Location

	// Clock override for tests. Nil means time.Now.
	Clock func() time.Time
}

func NewService(store TxStore, r *rand.Rand, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Store: store, Rand: r, Loc: loc}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
