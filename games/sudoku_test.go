package games_test

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaza/coin-engine/games"
	"plaza/coin-engine/ledger"
	"plaza/coin-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// The engine compares grids as strings, so a repeating pattern works fine
// as a test solution.
var (
	testSolution = strings.Repeat("123456789", 9)
	testGrid     = "00" + testSolution[2:]
)

func newTestService(t *testing.T) (*games.Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return games.NewService(store, rand.New(rand.NewSource(1)), time.UTC), store
}

func seedPlayer(t *testing.T, store *sqlite.Store, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveUser(ctx, sqlite.User{
		ID: id, Name: "Player", Email: id + "@example.com", Role: "user",
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.CreateWallet(ctx, ledger.UserID(id)))
}

func seedLevel(t *testing.T, store *sqlite.Store, id string, coins int64) {
	t.Helper()
	require.NoError(t, store.SaveSudokuLevel(context.Background(), games.SudokuLevel{
		ID: id, Grid: testGrid, Solution: testSolution, Coins: coins,
	}))
}

func playerBalance(t *testing.T, store *sqlite.Store, id string) int64 {
	t.Helper()
	b, err := ledger.New(store).Balance(context.Background(), ledger.UserID(id))
	require.NoError(t, err)
	return b
}

// =============================================================================
// START
// =============================================================================

func TestStartSudoku_CreatesSessionFromLevelSnapshot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedPlayer(t, store, "u1")
	seedLevel(t, store, "lvl-1", 100)

	sess, err := svc.StartSudoku(ctx, "u1", "lvl-1")
	require.NoError(t, err)
	assert.Equal(t, testGrid, sess.Grid)
	assert.Equal(t, games.StatusNotStarted, sess.Status)
}

func TestStartSudoku_Idempotent(t *testing.T) {
	// GIVEN: A started level
	// WHEN: Starting it again
	// THEN: The same session comes back, no duplicate is created

	svc, store := newTestService(t)
	ctx := context.Background()
	seedPlayer(t, store, "u1")
	seedLevel(t, store, "lvl-1", 100)

	first, err := svc.StartSudoku(ctx, "u1", "lvl-1")
	require.NoError(t, err)
	second, err := svc.StartSudoku(ctx, "u1", "lvl-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestStartSudoku_UnknownLevel_NotFound(t *testing.T) {
	svc, store := newTestService(t)
	seedPlayer(t, store, "u1")

	_, err := svc.StartSudoku(context.Background(), "u1", "nope")
	require.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmitSudoku_CorrectGrid_PaysOnce(t *testing.T) {
	// GIVEN: A started 100-coin level
	// WHEN: Submitting the exact solution
	// THEN: 100 coins land and the session completes; a re-submit is
	//       rejected and pays nothing

	svc, store := newTestService(t)
	ctx := context.Background()
	seedPlayer(t, store, "u1")
	seedLevel(t, store, "lvl-1", 100)

	sess, err := svc.StartSudoku(ctx, "u1", "lvl-1")
	require.NoError(t, err)

	result, err := svc.SubmitSudoku(ctx, "u1", sess.ID, testSolution)
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, int64(100), result.Coins)
	assert.Equal(t, int64(100), result.TotalCoins)

	saved, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, games.StatusCompleted, saved.Status)
	assert.Equal(t, int64(100), saved.CoinsEarned)

	// Terminal state: a second submission is rejected, not re-paid.
	_, err = svc.SubmitSudoku(ctx, "u1", sess.ID, testSolution)
	require.ErrorIs(t, err, ledger.ErrAlreadyCompleted)
	assert.Equal(t, int64(100), playerBalance(t, store, "u1"))
}

func TestSubmitSudoku_ZeroCoinLevel_StillCompletes(t *testing.T) {
	// GIVEN: A started level with no reward attached
	// WHEN: Submitting the exact solution
	// THEN: The session completes, nothing is credited, no history entry

	svc, store := newTestService(t)
	ctx := context.Background()
	seedPlayer(t, store, "u1")
	seedLevel(t, store, "lvl-1", 0)

	sess, err := svc.StartSudoku(ctx, "u1", "lvl-1")
	require.NoError(t, err)

	result, err := svc.SubmitSudoku(ctx, "u1", sess.ID, testSolution)
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, int64(0), result.Coins)
	assert.Equal(t, int64(0), result.TotalCoins)

	saved, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, games.StatusCompleted, saved.Status)

	entries, err := store.Entries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmitSudoku_WrongGrid_CountsAttempt(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedPlayer(t, store, "u1")
	seedLevel(t, store, "lvl-1", 100)

	sess, err := svc.StartSudoku(ctx, "u1", "lvl-1")
	require.NoError(t, err)

	wrong := "9" + testSolution[1:]
	result, err := svc.SubmitSudoku(ctx, "u1", sess.ID, wrong)
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.Equal(t, int64(0), playerBalance(t, store, "u1"))

	saved, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, games.StatusInProgress, saved.Status)
	assert.Equal(t, int64(1), saved.Attempts)
}

func TestSubmitSudoku_MalformedGrid_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	seedPlayer(t, store, "u1")

	_, err := svc.SubmitSudoku(context.Background(), "u1", "game-1", "12345")
	require.ErrorIs(t, err, ledger.ErrValidation)
}

func TestSubmitSudoku_OtherUsersSession_NotFound(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedPlayer(t, store, "u1")
	seedPlayer(t, store, "u2")
	seedLevel(t, store, "lvl-1", 100)

	sess, err := svc.StartSudoku(ctx, "u1", "lvl-1")
	require.NoError(t, err)

	_, err = svc.SubmitSudoku(ctx, "u2", sess.ID, testSolution)
	require.ErrorIs(t, err, ledger.ErrSessionNotFound)
}

// =============================================================================
// HINTS
// =============================================================================

func TestSudokuHint_RevealsAnEmptyCell(t *testing.T) {
	// GIVEN: A grid with two empty cells
	// WHEN: Taking two hints
	// THEN: Each reveals a distinct empty cell with the solution's value,
	//       and a third fails because nothing is left to reveal

	svc, store := newTestService(t)
	ctx := context.Background()
	seedPlayer(t, store, "u1")
	seedLevel(t, store, "lvl-1", 100)

	sess, err := svc.StartSudoku(ctx, "u1", "lvl-1")
	require.NoError(t, err)

	seen := map[int]bool{}
	for i := 0; i < 2; i++ {
		hint, err := svc.SudokuHint(ctx, "u1", sess.ID)
		require.NoError(t, err)
		assert.Less(t, hint.Index, 2) // only cells 0 and 1 start empty
		assert.Equal(t, testSolution[hint.Index], hint.Value)
		assert.False(t, seen[hint.Index])
		seen[hint.Index] = true
	}

	_, err = svc.SudokuHint(ctx, "u1", sess.ID)
	require.ErrorIs(t, err, ledger.ErrValidation)

	saved, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.HintsUsed)
	assert.Equal(t, testSolution, saved.Grid)
}

func TestSudokuHint_AfterCompletion_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedPlayer(t, store, "u1")
	seedLevel(t, store, "lvl-1", 100)

	sess, err := svc.StartSudoku(ctx, "u1", "lvl-1")
	require.NoError(t, err)
	_, err = svc.SubmitSudoku(ctx, "u1", sess.ID, testSolution)
	require.NoError(t, err)

	_, err = svc.SudokuHint(ctx, "u1", sess.ID)
	require.ErrorIs(t, err, ledger.ErrAlreadyCompleted)
}
