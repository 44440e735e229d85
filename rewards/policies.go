/*
Package rewards holds the coin reward policies.

PURPOSE:
  Every formula that turns a user action into a coin amount lives here as
  a pure function. Coordinators call these, then commit the result through
  the ledger; nothing in this package reads or writes state.

AVAILABLE POLICIES:
  Cashback:
    - 10% of the final amount paid at checkout, floored to whole coins

  Booking:
    - Fixed CoinsReward per event, independent of seats booked.
      (The platform previously had a second per-seat formula; this is the
      canonical one.)

  Sudoku / Guess:
    - Fixed coins from the level or puzzle, paid once on first correct
      submission. DefaultGuessReward applies when a puzzle sets none.

  Game2048:
    - floor(score/20), clamped to [1, 2000]

  SpinWheel:
    - Uniform choice from {50, 100, 200, 500, 1000}, once per local
      calendar day (day/month/year comparison, not a rolling 24h window)

SEE ALSO:
  - games/: Session coordinators that pay these rewards
  - commerce/: Checkout and booking coordinators
*/
package rewards

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CHECKOUT CASHBACK
// =============================================================================

// CashbackRate is the fraction of the final paid amount returned as coins.
var CashbackRate = decimal.NewFromFloat(0.10)

// Cashback returns the coins earned on a checkout of finalAmount.
// Coins are whole: the product is floored.
func Cashback(finalAmount decimal.Decimal) int64 {
	if finalAmount.Sign() <= 0 {
		return 0
	}
	return finalAmount.Mul(CashbackRate).Floor().IntPart()
}

// =============================================================================
// EVENT BOOKING
// =============================================================================

// BookingReward returns the coins earned for booking an event.
// The reward is fixed per event, not per seat.
func BookingReward(eventCoinsReward int64) int64 {
	if eventCoinsReward < 0 {
		return 0
	}
	return eventCoinsReward
}

// =============================================================================
// PUZZLE REWARDS
// =============================================================================

// DefaultGuessReward is paid for riddle/movie puzzles that don't set coins.
const DefaultGuessReward int64 = 20

// GuessReward returns the coins for a first correct riddle/movie answer.
func GuessReward(puzzleCoins int64) int64 {
	if puzzleCoins <= 0 {
		return DefaultGuessReward
	}
	return puzzleCoins
}

// =============================================================================
// 2048 MINI-GAME
// =============================================================================

const (
	game2048Divisor int64 = 20
	game2048Min     int64 = 1
	game2048Max     int64 = 2000
)

// Game2048 converts a 2048 score into coins: floor(score/20) clamped to
// [1, 2000]. Non-positive scores earn nothing.
func Game2048(score int64) int64 {
	if score <= 0 {
		return 0
	}
	coins := score / game2048Divisor
	if coins < game2048Min {
		coins = game2048Min
	}
	if coins > game2048Max {
		coins = game2048Max
	}
	return coins
}

// =============================================================================
// SPIN WHEEL
// =============================================================================

// SpinOutcomes are the wheel segments, each equally likely.
var SpinOutcomes = []int64{50, 100, 200, 500, 1000}

// Spin picks a wheel outcome using r. Callers inject the source so tests
// are deterministic.
func Spin(r *rand.Rand) int64 {
	return SpinOutcomes[r.Intn(len(SpinOutcomes))]
}

// SameCalendarDay reports whether a and b fall on the same day/month/year
// in loc. This is the daily-spin comparison: two spins at 23:59 and 00:01
// are different days even though they are two minutes apart.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DayKey formats t as the spin-day key (YYYY-MM-DD in loc). The store
// keeps (user, day key) unique so the once-daily rule holds even under
// concurrent spins.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
