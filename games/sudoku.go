/*
sudoku.go - Sudoku sessions: start, submit, hint

PURPOSE:
  A session snapshots the level's grid and solution at start time. Submit
  is a full-grid comparison against the snapshot; the level's fixed coins
  are credited exactly once, in the same transaction that marks the
  session completed. Hints reveal one random empty cell's correct value
  and write it into the session grid so later hints pick other cells.
*/
package games

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"plaza/coin-engine/ledger"
)

// GridSize is the cell count of a standard 9x9 sudoku grid.
const GridSize = 81

// ValidGrid reports whether g is a well-formed grid string: exactly 81
// digit characters ('0' marks an empty cell).
func ValidGrid(g string) bool {
	if len(g) != GridSize {
		return false
	}
	for _, ch := range g {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// StartSudoku returns the user's session for a level, creating one from a
// level snapshot if none exists. Starting an already-started level is
// idempotent and returns the existing session, completed or not.
func (s *Service) StartSudoku(ctx context.Context, userID ledger.UserID, levelID string) (*Session, error) {
	if _, err := s.Store.GetWallet(ctx, userID); err != nil {
		return nil, err
	}

	level, err := s.Store.GetSudokuLevel(ctx, levelID)
	if err != nil {
		return nil, err
	}

	existing, err := s.Store.GetSessionByPuzzle(ctx, userID, KindSudoku, levelID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      KindSudoku,
		PuzzleID:  level.ID,
		Grid:      level.Grid,
		Solution:  level.Solution,
		Status:    StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SubmitSudoku validates a full grid against the session's solution.
//
// Correct: the level's coins are credited and the session completes, both
// in one transaction. Incorrect: attempts increments, the session stays
// in progress, and the call reports correct=false without error.
// A submission after completion fails with ErrAlreadyCompleted.
func (s *Service) SubmitSudoku(ctx context.Context, userID ledger.UserID, gameID, userGrid string) (*SubmitResult, error) {
	if !ValidGrid(userGrid) {
		return nil, fmt.Errorf("%w: malformed sudoku grid", ledger.ErrValidation)
	}

	var result SubmitResult
	err := s.Store.WithGamesTx(ctx, func(tx Store) error {
		sess, err := tx.GetSession(ctx, gameID)
		if err != nil {
			return err
		}
		if sess.UserID != userID {
			return ledger.ErrSessionNotFound
		}

		now := s.now()
		if err := sess.RecordAttempt(now); err != nil {
			return err
		}

		if userGrid != sess.Solution {
			result = SubmitResult{Correct: false}
			return tx.SaveSession(ctx, *sess)
		}

		level, err := tx.GetSudokuLevel(ctx, sess.PuzzleID)
		if err != nil {
			return err
		}

		// Levels may carry no reward; a zero delta is not a ledger entry.
		var total int64
		if level.Coins > 0 {
			total, err = ledger.New(tx).ApplyDelta(ctx, userID, level.Coins, ledger.Entry{
				Action:         ledger.ActionGameReward,
				Description:    fmt.Sprintf("Sudoku level %s solved", level.ID),
				ReferenceID:    sess.ID,
				IdempotencyKey: "sudoku-" + sess.ID,
			})
		} else {
			total, err = ledger.New(tx).Balance(ctx, userID)
		}
		if err != nil {
			return err
		}

		sess.Complete(level.Coins, now)
		if err := tx.SaveSession(ctx, *sess); err != nil {
			return err
		}

		result = SubmitResult{Correct: true, Coins: level.Coins, TotalCoins: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Hint holds one revealed cell.
type Hint struct {
	Index int
	Value byte
}

// SudokuHint reveals one random empty cell's correct value and writes it
// into the session grid. Fails on completed sessions and on grids with no
// empty cells left.
func (s *Service) SudokuHint(ctx context.Context, userID ledger.UserID, gameID string) (*Hint, error) {
	var hint Hint
	err := s.Store.WithGamesTx(ctx, func(tx Store) error {
		sess, err := tx.GetSession(ctx, gameID)
		if err != nil {
			return err
		}
		if sess.UserID != userID || sess.Kind != KindSudoku {
			return ledger.ErrSessionNotFound
		}

		now := s.now()
		if err := sess.RecordHint(now); err != nil {
			return err
		}

		var empty []int
		for i := 0; i < len(sess.Grid); i++ {
			if sess.Grid[i] == '0' {
				empty = append(empty, i)
			}
		}
		if len(empty) == 0 {
			return fmt.Errorf("%w: no empty cells left", ledger.ErrValidation)
		}

		idx := empty[s.Rand.Intn(len(empty))]
		value := sess.Solution[idx]

		grid := []byte(sess.Grid)
		grid[idx] = value
		sess.Grid = string(grid)

		if err := tx.SaveSession(ctx, *sess); err != nil {
			return err
		}

		hint = Hint{Index: idx, Value: value}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &hint, nil
}

// SubmitResult reports the outcome of a puzzle submission.
type SubmitResult struct {
	Correct    bool
	Coins      int64
	TotalCoins int64
}
