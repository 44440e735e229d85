package rewards_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaza/coin-engine/rewards"
)

// =============================================================================
// CASHBACK
// =============================================================================

func TestCashback_FloorsFractionalCoins(t *testing.T) {
	// GIVEN: Final amounts whose 10% is not a whole number
	// WHEN: Computing cashback
	// THEN: The result is floored, never rounded up

	cases := []struct {
		amount string
		coins  int64
	}{
		{"450", 45},
		{"449.99", 44},
		{"9.99", 0},
		{"10", 1},
		{"0", 0},
		{"123.45", 12},
	}
	for _, tc := range cases {
		amount, err := decimal.NewFromString(tc.amount)
		require.NoError(t, err)
		assert.Equal(t, tc.coins, rewards.Cashback(amount), "amount %s", tc.amount)
	}
}

func TestCashback_NegativeAmount_NoCoins(t *testing.T) {
	assert.Equal(t, int64(0), rewards.Cashback(decimal.NewFromInt(-50)))
}

// =============================================================================
// BOOKING AND GUESS REWARDS
// =============================================================================

func TestBookingReward_PassesThroughEventValue(t *testing.T) {
	assert.Equal(t, int64(150), rewards.BookingReward(150))
	assert.Equal(t, int64(0), rewards.BookingReward(0))
	assert.Equal(t, int64(0), rewards.BookingReward(-10))
}

func TestGuessReward_DefaultsWhenUnset(t *testing.T) {
	assert.Equal(t, rewards.DefaultGuessReward, rewards.GuessReward(0))
	assert.Equal(t, int64(35), rewards.GuessReward(35))
}

// =============================================================================
// 2048
// =============================================================================

func TestGame2048_ScoreConversion(t *testing.T) {
	// GIVEN: Scores across the whole range
	// WHEN: Converting score/20 to coins
	// THEN: Results clamp to [1, 2000]; non-positive scores earn nothing

	cases := []struct {
		score int64
		coins int64
	}{
		{0, 0},
		{-5, 0},
		{1, 1},     // floor(1/20)=0, clamped up to 1
		{19, 1},    // still below one coin
		{20, 1},
		{100, 5},
		{39999, 1999},
		{40000, 2000},
		{1000000, 2000}, // clamped at the cap
	}
	for _, tc := range cases {
		assert.Equal(t, tc.coins, rewards.Game2048(tc.score), "score %d", tc.score)
	}
}

// =============================================================================
// SPIN WHEEL
// =============================================================================

func TestSpin_AlwaysLandsOnAWheelSegment(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	allowed := map[int64]bool{}
	for _, v := range rewards.SpinOutcomes {
		allowed[v] = true
	}
	for i := 0; i < 200; i++ {
		assert.True(t, allowed[rewards.Spin(r)])
	}
}

func TestSameCalendarDay_LocalZoneBoundaries(t *testing.T) {
	// GIVEN: Two instants that straddle midnight in IST but not in UTC
	// WHEN: Comparing calendar days in IST
	// THEN: They land on different days

	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 18:00 UTC = 23:30 IST; 19:00 UTC = 00:30 IST next day.
	a := time.Date(2026, time.March, 1, 18, 0, 0, 0, time.UTC)
	b := time.Date(2026, time.March, 1, 19, 0, 0, 0, time.UTC)

	assert.True(t, rewards.SameCalendarDay(a, b, time.UTC))
	assert.False(t, rewards.SameCalendarDay(a, b, ist))
}

func TestDayKey_FormatsLocalDate(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	at := time.Date(2026, time.March, 1, 19, 0, 0, 0, time.UTC) // 00:30 IST March 2
	assert.Equal(t, "2026-03-01", rewards.DayKey(at, time.UTC))
	assert.Equal(t, "2026-03-02", rewards.DayKey(at, ist))
}
