/*
arcade.go - 2048 score rewards and the daily spin wheel

PURPOSE:
  2048: every submitted score converts to coins (floor(score/20), clamped
  to [1, 2000]) and updates a per-user high score. The session never
  completes; it is a running scoreboard, not a one-shot puzzle.

  Spin wheel: one spin per local calendar day. The (user, day) primary
  key in the spins table enforces the limit at commit time, so two
  concurrent spins cannot both win.
*/
package games

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"plaza/coin-engine/ledger"
	"plaza/coin-engine/rewards"
)

// game2048PuzzleID keys the singleton per-user 2048 session.
const game2048PuzzleID = "2048"

// Reward2048Result reports one score conversion.
type Reward2048Result struct {
	CoinsEarned int64
	TotalCoins  int64
	HighScore   int64
	NewHighest  bool
}

// Reward2048 converts a finished game's score into coins and tracks the
// user's high score.
func (s *Service) Reward2048(ctx context.Context, userID ledger.UserID, score int64) (*Reward2048Result, error) {
	if score <= 0 {
		return nil, fmt.Errorf("%w: score must be positive", ledger.ErrValidation)
	}

	var result Reward2048Result
	err := s.Store.WithGamesTx(ctx, func(tx Store) error {
		sess, err := tx.GetSessionByPuzzle(ctx, userID, Kind2048, game2048PuzzleID)
		if err != nil {
			return err
		}

		now := s.now()
		if sess == nil {
			sess = &Session{
				ID:        uuid.NewString(),
				UserID:    userID,
				Kind:      Kind2048,
				PuzzleID:  game2048PuzzleID,
				Status:    StatusInProgress,
				CreatedAt: now,
			}
		}

		sess.Attempts++
		sess.UpdatedAt = now
		newHighest := score > sess.HighScore
		if newHighest {
			sess.HighScore = score
		}

		coins := rewards.Game2048(score)
		total, err := ledger.New(tx).ApplyDelta(ctx, userID, coins, ledger.Entry{
			Action:         ledger.ActionGameReward,
			Description:    fmt.Sprintf("2048 score %d", score),
			ReferenceID:    sess.ID,
			IdempotencyKey: fmt.Sprintf("2048-%s-%s", userID, uuid.NewString()),
		})
		if err != nil {
			return err
		}

		sess.CoinsEarned += coins
		if err := tx.SaveSession(ctx, *sess); err != nil {
			return err
		}

		result = Reward2048Result{
			CoinsEarned: coins,
			TotalCoins:  total,
			HighScore:   sess.HighScore,
			NewHighest:  newHighest,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SpinResult reports a spin payout.
type SpinResult struct {
	RewardAmount int64
	TotalCoins   int64
}

// SpinWheel runs the once-daily wheel. The spin record and the coin
// credit commit together; a same-day retry fails with ErrAlreadySpunToday
// and credits nothing.
func (s *Service) SpinWheel(ctx context.Context, userID ledger.UserID) (*SpinResult, error) {
	reward := rewards.Spin(s.Rand)
	dayKey := rewards.DayKey(s.now(), s.Loc)

	var result SpinResult
	err := s.Store.WithGamesTx(ctx, func(tx Store) error {
		if err := tx.RecordSpin(ctx, userID, dayKey, reward); err != nil {
			return err
		}

		total, err := ledger.New(tx).ApplyDelta(ctx, userID, reward, ledger.Entry{
			Action:         ledger.ActionSpinWheelReward,
			Description:    fmt.Sprintf("Spin wheel reward (%s)", dayKey),
			IdempotencyKey: fmt.Sprintf("spin-%s-%s", userID, dayKey),
		})
		if err != nil {
			return err
		}

		result = SpinResult{RewardAmount: reward, TotalCoins: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
