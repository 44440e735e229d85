package factory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaza/coin-engine/factory"
	"plaza/coin-engine/games"
	"plaza/coin-engine/ledger"
	"plaza/coin-engine/store/sqlite"
)

func testCatalogJSON() string {
	solution := strings.Repeat("123456789", 9)
	grid := "00" + solution[2:]
	return `{
		"users": [
			{"id": "demo", "name": "Demo User", "email": "demo@example.com"}
		],
		"products": [
			{"id": "p1", "title": "Widget", "category": "tools", "price": "499.00", "stock": 25}
		],
		"events": [
			{"id": "e1", "title": "Launch Night", "price": "300", "coins_reward": 150, "total_seats": 200}
		],
		"sudoku_levels": [
			{"id": "easy-1", "grid": "` + grid + `", "solution": "` + solution + `", "coins": 100}
		],
		"puzzles": [
			{"id": "r1", "kind": "riddle", "prompt": "Speaks without a mouth", "answer": "echo", "coins": 20}
		]
	}`
}

func TestParse_ValidCatalog(t *testing.T) {
	catalog, err := factory.Parse([]byte(testCatalogJSON()))
	require.NoError(t, err)

	require.Len(t, catalog.Users, 1)
	assert.Equal(t, "user", catalog.Users[0].Role) // defaulted
	require.Len(t, catalog.Products, 1)
	assert.True(t, catalog.Products[0].Price.Equal(decimal.NewFromInt(499)))
	require.Len(t, catalog.Events, 1)
	require.Len(t, catalog.SudokuLevels, 1)
	require.Len(t, catalog.Puzzles, 1)
}

func TestParse_RejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"missing product price": `{"products": [{"id": "p1", "title": "Widget"}]}`,
		"negative price":        `{"products": [{"id": "p1", "title": "W", "price": "-5"}]}`,
		"short sudoku grid":     `{"sudoku_levels": [{"id": "l1", "grid": "123", "solution": "456"}]}`,
		"unknown puzzle kind":   `{"puzzles": [{"id": "x", "kind": "sudoku", "prompt": "p", "answer": "a"}]}`,
		"zero event seats":      `{"events": [{"id": "e1", "title": "E", "price": "10", "total_seats": 0}]}`,
	}
	for name, body := range cases {
		_, err := factory.Parse([]byte(body))
		assert.Error(t, err, name)
	}
}

func TestLoad_WritesEverything_AndIsIdempotent(t *testing.T) {
	// GIVEN: A parsed catalog
	// WHEN: Loading it twice
	// THEN: Catalog rows upsert cleanly and the demo user's wallet survives

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	catalog, err := factory.Parse([]byte(testCatalogJSON()))
	require.NoError(t, err)
	require.NoError(t, catalog.Load(ctx, store))

	// Give the demo user some coins, then reload the catalog.
	_, err = ledger.New(store).ApplyDelta(ctx, "demo", 100, ledger.Entry{
		Action: ledger.ActionAdjustment, Description: "test",
	})
	require.NoError(t, err)
	require.NoError(t, catalog.Load(ctx, store))

	balance, err := ledger.New(store).Balance(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	product, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(25), product.StockAvailable)

	level, err := store.GetSudokuLevel(ctx, "easy-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), level.Coins)

	puzzle, err := store.GetGuessPuzzle(ctx, games.KindRiddle, "r1")
	require.NoError(t, err)
	assert.Equal(t, "echo", puzzle.Answer)
}
