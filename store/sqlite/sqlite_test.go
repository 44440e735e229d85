package sqlite_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaza/coin-engine/commerce"
	"plaza/coin-engine/games"
	"plaza/coin-engine/inventory"
	"plaza/coin-engine/ledger"
	"plaza/coin-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func saveTestProduct(t *testing.T, store *sqlite.Store, id string, stock int64) {
	t.Helper()
	require.NoError(t, store.SaveProduct(context.Background(), inventory.Product{
		ID: id, Title: "Product " + id, Price: decimal.NewFromInt(100),
		StockAvailable: stock, CreatedAt: time.Now().UTC(),
	}))
}

// =============================================================================
// STOCK DECREMENT (CONDITIONAL UPDATE)
// =============================================================================

func TestDecrementStock_StopsAtZero(t *testing.T) {
	// GIVEN: 2 units in stock
	// WHEN: Taking 2, then 1 more
	// THEN: The second call fails with the current availability; stock
	//       never goes negative

	store := newTestStore(t)
	ctx := context.Background()
	saveTestProduct(t, store, "p1", 2)

	require.NoError(t, store.DecrementStock(ctx, "p1", 2))

	err := store.DecrementStock(ctx, "p1", 1)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(0), stockErr.Available)
	assert.Equal(t, int64(1), stockErr.Requested)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.StockAvailable)
}

func TestDecrementStock_UnknownProduct_NotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.DecrementStock(context.Background(), "nope", 1)
	require.ErrorIs(t, err, ledger.ErrProductNotFound)
}

// =============================================================================
// SEAT CAPACITY (CONDITIONAL UPDATE)
// =============================================================================

func TestIncrementBookedSeats_CapacityGate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveEvent(ctx, commerce.Event{
		ID: "e1", Title: "Show", Price: decimal.NewFromInt(300),
		TotalSeats: 3, CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, store.IncrementBookedSeats(ctx, "e1", 2))
	require.ErrorIs(t, store.IncrementBookedSeats(ctx, "e1", 2), ledger.ErrSoldOut)
	require.NoError(t, store.IncrementBookedSeats(ctx, "e1", 1))

	event, err := store.GetEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), event.BookedSeats)
	assert.Equal(t, int64(0), event.SeatsLeft())
}

// =============================================================================
// LEDGER CONSTRAINTS
// =============================================================================

func TestAppendEntry_IdempotencyKeyUnique(t *testing.T) {
	// The UNIQUE column is the duplicate guard: a second entry under the
	// same key fails at the database, whatever the caller intended.

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1"))

	entry := ledger.Entry{
		ID: "ent-1", UserID: "u1", Action: ledger.ActionPurchase,
		Coins: 10, IdempotencyKey: "order-1", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.AppendEntry(ctx, entry))

	entry.ID = "ent-2"
	require.ErrorIs(t, store.AppendEntry(ctx, entry), ledger.ErrDuplicateEntry)
}

func TestAppendEntry_EmptyKeys_DoNotCollide(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1"))

	for i, id := range []ledger.EntryID{"ent-1", "ent-2"} {
		require.NoError(t, store.AppendEntry(ctx, ledger.Entry{
			ID: id, UserID: "u1", Action: ledger.ActionAdjustment,
			Coins: int64(i + 1), CreatedAt: time.Now().UTC(),
		}))
	}

	entries, err := store.Entries(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCreateWallet_Duplicate_Rejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1"))
	require.Error(t, store.CreateWallet(ctx, "u1"))
}

// =============================================================================
// SPINS
// =============================================================================

func TestRecordSpin_OnePerDay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1"))

	require.NoError(t, store.RecordSpin(ctx, "u1", "2026-03-01", 100))
	require.ErrorIs(t, store.RecordSpin(ctx, "u1", "2026-03-01", 200), ledger.ErrAlreadySpunToday)
	require.NoError(t, store.RecordSpin(ctx, "u1", "2026-03-02", 200))
	require.NoError(t, store.RecordSpin(ctx, "u2", "2026-03-01", 50))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A committed wallet
	// WHEN: A transaction writes a product and then fails
	// THEN: The product write is rolled back

	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx *sqlite.Store) error {
		saveTestProduct(t, tx, "p1", 5)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = store.GetProduct(ctx, "p1")
	require.ErrorIs(t, err, ledger.ErrProductNotFound)
}

func TestWithTx_CommitOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx *sqlite.Store) error {
		saveTestProduct(t, tx, "p1", 5)
		return tx.CreateWallet(ctx, "u1")
	})
	require.NoError(t, err)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.StockAvailable)

	w, err := store.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Coins)
}

// =============================================================================
// ROUND TRIPS
// =============================================================================

func TestProductRoundTrip_PreservesDecimalPrice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	price, err := decimal.NewFromString("123.45")
	require.NoError(t, err)

	require.NoError(t, store.SaveProduct(ctx, inventory.Product{
		ID: "p1", Title: "Widget", Category: "tools", Price: price,
		StockAvailable: 7, CreatedAt: time.Now().UTC(),
	}))

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(price))
	assert.Equal(t, "tools", p.Category)
}

func TestOrderRoundTrip_WithItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	order := commerce.Order{
		OrderID: "o1", PaymentID: "pay1", UserID: "u1",
		Items: []commerce.OrderItem{
			{ProductID: "p1", Title: "Widget", Price: decimal.NewFromInt(100), Quantity: 2},
		},
		Subtotal: decimal.NewFromInt(200), Tax: decimal.NewFromInt(18),
		Shipping: decimal.NewFromInt(40), CoinsUsed: 50, CoinsEarned: 20,
		FinalAmount: decimal.NewFromInt(208), Status: commerce.OrderPlaced,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveOrder(ctx, order))

	got, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.FinalAmount.Equal(order.FinalAmount))
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(2), got.Items[0].Quantity)
}

func TestGetOrder_Unknown_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetOrder(context.Background(), "nope")
	require.ErrorIs(t, err, ledger.ErrOrderNotFound)
}

func TestSaveSession_UpsertPersistsGrid(t *testing.T) {
	// GIVEN: A saved session
	// WHEN: Saving it again with a cell filled in
	// THEN: The stored grid reflects the change

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sess := games.Session{
		ID: "s1", UserID: "u1", Kind: games.KindSudoku, PuzzleID: "l1",
		Grid: "0" + strings.Repeat("1", 80), Solution: strings.Repeat("1", 81),
		Status: games.StatusInProgress, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.SaveSession(ctx, sess))

	sess.Grid = strings.Repeat("1", 81)
	sess.HintsUsed = 1
	require.NoError(t, store.SaveSession(ctx, sess))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("1", 81), got.Grid)
	assert.Equal(t, int64(1), got.HintsUsed)
}
