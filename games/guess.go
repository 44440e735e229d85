/*
guess.go - Riddle and movie-guess submissions

PURPOSE:
  One-shot puzzles: the first correct answer (case-insensitive, trimmed)
  pays the puzzle's coins and completes the user's session. Re-submitting
  a solved puzzle reports correct with zero coins and appends nothing to
  the ledger. Wrong answers just count an attempt.
*/
package games

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"plaza/coin-engine/ledger"
	"plaza/coin-engine/rewards"
)

// SubmitGuess checks an answer for a riddle (KindRiddle) or movie
// (KindMovie) puzzle. The session is created lazily on first submission.
func (s *Service) SubmitGuess(ctx context.Context, userID ledger.UserID, kind Kind, puzzleID, answer string) (*SubmitResult, error) {
	if kind != KindRiddle && kind != KindMovie {
		return nil, fmt.Errorf("%w: unsupported kind %q", ledger.ErrValidation, kind)
	}
	if _, err := s.Store.GetWallet(ctx, userID); err != nil {
		return nil, err
	}

	puzzle, err := s.Store.GetGuessPuzzle(ctx, kind, puzzleID)
	if err != nil {
		return nil, err
	}

	var result SubmitResult
	err = s.Store.WithGamesTx(ctx, func(tx Store) error {
		sess, err := tx.GetSessionByPuzzle(ctx, userID, kind, puzzleID)
		if err != nil {
			return err
		}

		now := s.now()
		if sess == nil {
			sess = &Session{
				ID:        uuid.NewString(),
				UserID:    userID,
				Kind:      kind,
				PuzzleID:  puzzleID,
				Status:    StatusNotStarted,
				CreatedAt: now,
			}
		}

		// Already solved: no coins, no new ledger entry.
		if sess.Completed() {
			total, err := ledger.New(tx).Balance(ctx, userID)
			if err != nil {
				return err
			}
			result = SubmitResult{Correct: true, Coins: 0, TotalCoins: total}
			return nil
		}

		if err := sess.RecordAttempt(now); err != nil {
			return err
		}

		if !MatchAnswer(puzzle.Answer, answer) {
			result = SubmitResult{Correct: false}
			return tx.SaveSession(ctx, *sess)
		}

		coins := rewards.GuessReward(puzzle.Coins)
		total, err := ledger.New(tx).ApplyDelta(ctx, userID, coins, ledger.Entry{
			Action:         ledger.ActionGameReward,
			Description:    fmt.Sprintf("Solved %s %s", kind, puzzle.ID),
			ReferenceID:    sess.ID,
			IdempotencyKey: fmt.Sprintf("%s-%s-%s", kind, userID, puzzle.ID),
		})
		if err != nil {
			return err
		}

		sess.Complete(coins, now)
		if err := tx.SaveSession(ctx, *sess); err != nil {
			return err
		}

		result = SubmitResult{Correct: true, Coins: coins, TotalCoins: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
