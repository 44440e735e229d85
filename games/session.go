/*
Package games coordinates the mini-games that pay coin rewards.

PURPOSE:
  Sudoku, riddle/movie guessing, 2048 score rewards, and the daily spin
  wheel. Each game commits its reward through the ledger inside one store
  transaction with the session update, so a session can never be marked
  completed without its coins (or vice versa).

SESSION STATE MACHINE (session.go):
  NOT_STARTED -> IN_PROGRESS -> COMPLETED (terminal)

  - attempts and hints only increment while the session is not completed
  - an incorrect submission stays IN_PROGRESS and increments attempts
  - there is no FAILED state
  - once COMPLETED, further submissions are rejected with AlreadyCompleted

SEE ALSO:
  - sudoku.go: Grid validation and hints
  - guess.go: Riddle/movie answer matching
  - arcade.go: 2048 rewards and the spin wheel
*/
package games

import (
	"strings"
	"time"

	"plaza/coin-engine/ledger"
)

// =============================================================================
// SESSION - Per-user, per-puzzle attempt record
// =============================================================================

type Kind string

const (
	KindSudoku Kind = "sudoku"
	KindRiddle Kind = "riddle"
	KindMovie  Kind = "movie"
	Kind2048   Kind = "2048"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Session is a per-user, per-puzzle attempt record. For sudoku it holds a
// snapshot of the level's grid and solution so a later level edit cannot
// change a game in flight. For 2048 it is a singleton per user carrying
// the high score.
type Session struct {
	ID       string
	UserID   ledger.UserID
	Kind     Kind
	PuzzleID string

	// Sudoku snapshot (81-char strings, '0' = empty cell).
	Grid     string
	Solution string

	Attempts    int64
	HintsUsed   int64
	Status      Status
	CoinsEarned int64
	HighScore   int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Completed reports whether the session reached its terminal state.
func (s *Session) Completed() bool { return s.Status == StatusCompleted }

// RecordAttempt moves the session into IN_PROGRESS and counts the attempt.
// Fails once the session is completed.
func (s *Session) RecordAttempt(now time.Time) error {
	if s.Completed() {
		return ledger.ErrAlreadyCompleted
	}
	s.Status = StatusInProgress
	s.Attempts++
	s.UpdatedAt = now
	return nil
}

// RecordHint counts a hint. Fails once the session is completed.
func (s *Session) RecordHint(now time.Time) error {
	if s.Completed() {
		return ledger.ErrAlreadyCompleted
	}
	if s.Status == StatusNotStarted {
		s.Status = StatusInProgress
	}
	s.HintsUsed++
	s.UpdatedAt = now
	return nil
}

// Complete marks the terminal state and records the payout.
func (s *Session) Complete(coins int64, now time.Time) {
	s.Status = StatusCompleted
	s.CoinsEarned = coins
	s.UpdatedAt = now
}

// =============================================================================
// PUZZLES
// =============================================================================

// SudokuLevel is an admin-authored puzzle. Grid and Solution are 81-char
// digit strings; '0' marks an empty cell in Grid.
type SudokuLevel struct {
	ID       string
	Grid     string
	Solution string
	Coins    int64
}

// GuessPuzzle is a riddle or movie-guess puzzle.
type GuessPuzzle struct {
	ID     string
	Kind   Kind // KindRiddle or KindMovie
	Prompt string
	Answer string
	Coins  int64
}

// MatchAnswer performs the case-insensitive, whitespace-trimmed comparison
// used by riddle and movie submissions.
func MatchAnswer(expected, got string) bool {
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(got))
}
