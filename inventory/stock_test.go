package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaza/coin-engine/inventory"
	"plaza/coin-engine/ledger"
	"plaza/coin-engine/store/sqlite"
)

func newTestGate(t *testing.T) (*inventory.Gate, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return inventory.NewGate(store), store
}

func saveProduct(t *testing.T, store *sqlite.Store, id string, stock int64) {
	t.Helper()
	require.NoError(t, store.SaveProduct(context.Background(), inventory.Product{
		ID: id, Title: "Product " + id, Price: decimal.NewFromInt(100),
		StockAvailable: stock, CreatedAt: time.Now().UTC(),
	}))
}

func TestCheck_WithinStock_Passes(t *testing.T) {
	gate, store := newTestGate(t)
	saveProduct(t, store, "p1", 3)

	require.NoError(t, gate.Check(context.Background(), "p1", 3))
}

func TestCheck_BeyondStock_ReportsShortfall(t *testing.T) {
	// GIVEN: 3 units in stock
	// WHEN: Checking 4
	// THEN: The error carries the shortfall; stock is untouched

	gate, store := newTestGate(t)
	ctx := context.Background()
	saveProduct(t, store, "p1", 3)

	err := gate.Check(ctx, "p1", 4)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(3), stockErr.Available)
	assert.Equal(t, int64(4), stockErr.Requested)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.StockAvailable)
}

func TestCheck_UnknownProduct(t *testing.T) {
	gate, _ := newTestGate(t)

	err := gate.Check(context.Background(), "nope", 1)
	require.ErrorIs(t, err, ledger.ErrProductNotFound)
}

func TestReserve_DecrementsStock_NeverBelowZero(t *testing.T) {
	// GIVEN: 2 units in stock
	// WHEN: Reserving 2, then 1 more
	// THEN: The second reserve fails and stock stays at 0

	gate, store := newTestGate(t)
	ctx := context.Background()
	saveProduct(t, store, "p1", 2)

	require.NoError(t, gate.Reserve(ctx, "p1", 2))

	err := gate.Reserve(ctx, "p1", 1)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.StockAvailable)
}
