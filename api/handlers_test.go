package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaza/coin-engine/api"
	"plaza/coin-engine/commerce"
	"plaza/coin-engine/games"
	"plaza/coin-engine/inventory"
	"plaza/coin-engine/ledger"
	"plaza/coin-engine/store/sqlite"
)

const (
	testPaymentSecret = "test-payment-secret"
	testAuthSecret    = "test-auth-secret"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	router   http.Handler
	store    *sqlite.Store
	verifier *api.HMACVerifier
	commerce *commerce.Coordinator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	verifier := &api.HMACVerifier{Secret: testAuthSecret}
	coord := commerce.NewCoordinator(store, testPaymentSecret)
	handler := &api.Handler{
		Store:      store,
		Commerce:   coord,
		Games:      games.NewService(store, rand.New(rand.NewSource(1)), time.UTC),
		Verifier:   verifier,
		Log:        log,
		IssueToken: verifier.IssueToken,
	}

	return &testServer{
		router:   api.NewRouter(handler, []string{"*"}),
		store:    store,
		verifier: verifier,
		commerce: coord,
	}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// signup creates a user through the API and returns its bearer token.
func (ts *testServer) signup(t *testing.T, id, role string) string {
	t.Helper()
	rec := ts.request(t, http.MethodPost, "/api/users", "", map[string]string{
		"id": id, "name": "User " + id, "email": id + "@example.com", "role": role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &user)
	require.NotEmpty(t, user.Token)
	return user.Token
}

func (ts *testServer) grantCoins(t *testing.T, userID string, coins int64) {
	t.Helper()
	_, err := ts.commerce.Adjust(context.Background(), userID, coins, "test grant")
	require.NoError(t, err)
}

func (ts *testServer) seedProduct(t *testing.T, id, price string, stock int64) {
	t.Helper()
	p, err := decimal.NewFromString(price)
	require.NoError(t, err)
	require.NoError(t, ts.store.SaveProduct(context.Background(), inventory.Product{
		ID: id, Title: "Product " + id, Price: p, StockAvailable: stock,
		CreatedAt: time.Now().UTC(),
	}))
}

// =============================================================================
// AUTH
// =============================================================================

func TestAPI_Signup_ThenWallet(t *testing.T) {
	// GIVEN: A fresh signup
	// WHEN: Reading the wallet with the returned token
	// THEN: A zero-coin wallet exists

	ts := newTestServer(t)
	token := ts.signup(t, "u1", "user")

	rec := ts.request(t, http.MethodGet, "/api/wallet", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var wallet struct {
		UserID string `json:"user_id"`
		Coins  int64  `json:"coins"`
	}
	decodeBody(t, rec, &wallet)
	assert.Equal(t, "u1", wallet.UserID)
	assert.Equal(t, int64(0), wallet.Coins)
}

func TestAPI_MissingOrBadToken_Unauthorized(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "u1", "user")

	rec := ts.request(t, http.MethodGet, "/api/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.request(t, http.MethodGet, "/api/wallet", "u1.forged-signature", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_AdminRoute_RequiresAdminRole(t *testing.T) {
	ts := newTestServer(t)
	userToken := ts.signup(t, "u1", "user")
	adminToken := ts.signup(t, "a1", "admin")

	body := map[string]any{"title": "Widget", "price": "100", "stock_available": 5}

	rec := ts.request(t, http.MethodPost, "/api/admin/products", userToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.request(t, http.MethodPost, "/api/admin/products", adminToken, body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// CART
// =============================================================================

func TestAPI_CartAdd_OutOfStock_ExplicitMessage(t *testing.T) {
	// GIVEN: A product with no stock left
	// WHEN: Adding it to the cart
	// THEN: 400 with the out-of-stock message, not a generic failure

	ts := newTestServer(t)
	token := ts.signup(t, "u1", "user")
	ts.seedProduct(t, "p1", "100", 0)

	rec := ts.request(t, http.MethodPost, "/api/cart", token, map[string]any{
		"action": "add", "productId": "p1", "quantity": 1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Product is out of stock", resp.Error)
	assert.Equal(t, "insufficient_stock", resp.Code)
}

func TestAPI_CartAddAndGet(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "u1", "user")
	ts.seedProduct(t, "p1", "100", 5)

	rec := ts.request(t, http.MethodPost, "/api/cart", token, map[string]any{
		"action": "add", "productId": "p1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.request(t, http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cart []struct {
		ProductID string `json:"product_id"`
		Quantity  int64  `json:"quantity"`
	}
	decodeBody(t, rec, &cart)
	require.Len(t, cart, 1)
	assert.Equal(t, "p1", cart[0].ProductID)
	assert.Equal(t, int64(1), cart[0].Quantity)
}

// =============================================================================
// CHECKOUT
// =============================================================================

func TestAPI_VerifyPayment_EndToEnd(t *testing.T) {
	// GIVEN: 100 coins and a 500-unit product in the cart
	// WHEN: Verifying a signed payment with 50 coins applied
	// THEN: newCoins is 95 (100 - 50 + 45 cashback) and the order returns

	ts := newTestServer(t)
	token := ts.signup(t, "u1", "user")
	ts.grantCoins(t, "u1", 100)
	ts.seedProduct(t, "p1", "500", 3)

	rec := ts.request(t, http.MethodPost, "/api/cart", token, map[string]any{
		"action": "add", "productId": "p1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.request(t, http.MethodPost, "/api/payments/verify", token, map[string]any{
		"orderId":   "order-1",
		"paymentId": "pay-1",
		"signature": commerce.SignPayment("order-1", "pay-1", testPaymentSecret),
		"coinsUsed": 50,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success     bool  `json:"success"`
		NewCoins    int64 `json:"newCoins"`
		CoinsEarned int64 `json:"coinsEarned"`
		Order       struct {
			FinalAmount string `json:"final_amount"`
		} `json:"order"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(95), resp.NewCoins)
	assert.Equal(t, int64(45), resp.CoinsEarned)
	assert.Equal(t, "450", resp.Order.FinalAmount)

	// The committed order is readable by its owner.
	rec = ts.request(t, http.MethodGet, "/api/orders/order-1", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_VerifyPayment_ForgedSignature_Rejected(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "u1", "user")
	ts.seedProduct(t, "p1", "500", 3)
	ts.request(t, http.MethodPost, "/api/cart", token, map[string]any{
		"action": "add", "productId": "p1",
	})

	rec := ts.request(t, http.MethodPost, "/api/payments/verify", token, map[string]any{
		"orderId": "order-1", "paymentId": "pay-1", "signature": "forged",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Code string `json:"code"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "bad_signature", resp.Code)
}

// =============================================================================
// GAMES
// =============================================================================

func TestAPI_SpinWheel_OncePerDay(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "u1", "user")

	rec := ts.request(t, http.MethodPost, "/api/games/spin-wheel", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var spin struct {
		Success      bool  `json:"success"`
		RewardAmount int64 `json:"rewardAmount"`
		TotalCoins   int64 `json:"totalCoins"`
	}
	decodeBody(t, rec, &spin)
	assert.True(t, spin.Success)
	assert.Equal(t, spin.RewardAmount, spin.TotalCoins)

	rec = ts.request(t, http.MethodPost, "/api/games/spin-wheel", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Code string `json:"code"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "already_spun", resp.Code)
}

func TestAPI_Reward2048(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "u1", "user")

	rec := ts.request(t, http.MethodPost, "/api/games/2048/reward", token, map[string]any{
		"score": 400,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		CoinsEarned int64 `json:"coinsEarned"`
		HighScore   int64 `json:"highScore"`
		NewHighest  bool  `json:"newHighest"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, int64(20), resp.CoinsEarned)
	assert.Equal(t, int64(400), resp.HighScore)
	assert.True(t, resp.NewHighest)
}

func TestAPI_SudokuFlow(t *testing.T) {
	// Full flow through HTTP: admin authors a level, the player starts
	// it, submits the solution, and sees the coins in the wallet history.

	ts := newTestServer(t)
	adminToken := ts.signup(t, "a1", "admin")
	token := ts.signup(t, "u1", "user")

	solution := ""
	for i := 0; i < 9; i++ {
		solution += "123456789"
	}
	grid := "00" + solution[2:]

	rec := ts.request(t, http.MethodPost, "/api/admin/sudoku-levels", adminToken, map[string]any{
		"id": "lvl-1", "grid": grid, "solution": solution, "coins": 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.request(t, http.MethodPost, "/api/games/sudoku/start", token, map[string]any{
		"levelId": "lvl-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var start struct {
		GameID string `json:"gameId"`
		Grid   string `json:"grid"`
	}
	decodeBody(t, rec, &start)
	assert.Equal(t, grid, start.Grid)

	rec = ts.request(t, http.MethodPost, "/api/games/sudoku/submit", token, map[string]any{
		"gameId": start.GameID, "userGrid": solution,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var submit struct {
		Correct    bool  `json:"correct"`
		Coins      int64 `json:"coins"`
		TotalCoins int64 `json:"totalCoins"`
	}
	decodeBody(t, rec, &submit)
	assert.True(t, submit.Correct)
	assert.Equal(t, int64(100), submit.Coins)

	rec = ts.request(t, http.MethodGet, "/api/wallet/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []struct {
		Action string `json:"action"`
		Coins  int64  `json:"coins"`
	}
	decodeBody(t, rec, &history)
	require.Len(t, history, 1)
	assert.Equal(t, string(ledger.ActionGameReward), history[0].Action)
	assert.Equal(t, int64(100), history[0].Coins)
}

// =============================================================================
// EVENTS & BOOKINGS
// =============================================================================

func TestAPI_BookEvent_ThenAdminAttendance(t *testing.T) {
	// GIVEN: An admin-created event with a 150-coin reward
	// WHEN: A user books a seat and an admin checks the booking in
	// THEN: The reward lands once and the booking reads back attended

	ts := newTestServer(t)
	adminToken := ts.signup(t, "a1", "admin")
	userToken := ts.signup(t, "u1", "user")

	rec := ts.request(t, http.MethodPost, "/api/admin/events", adminToken, map[string]any{
		"title": "Launch Night", "price": "300", "coins_reward": 150, "total_seats": 20,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var event struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &event)

	rec = ts.request(t, http.MethodPost, "/api/events/book", userToken, map[string]any{
		"eventId": event.ID, "seats": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var booked struct {
		BookingID string `json:"bookingId"`
		NewCoins  int64  `json:"newCoins"`
	}
	decodeBody(t, rec, &booked)
	assert.Equal(t, int64(150), booked.NewCoins)

	// Check-in is admin-only.
	rec = ts.request(t, http.MethodPost, "/api/admin/bookings/"+booked.BookingID+"/attended", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.request(t, http.MethodPost, "/api/admin/bookings/"+booked.BookingID+"/attended", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var checkedIn struct {
		Attended bool `json:"attended"`
	}
	decodeBody(t, rec, &checkedIn)
	assert.True(t, checkedIn.Attended)

	// Check-in never moves coins.
	rec = ts.request(t, http.MethodGet, "/api/wallet", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var wallet struct {
		Coins int64 `json:"coins"`
	}
	decodeBody(t, rec, &wallet)
	assert.Equal(t, int64(150), wallet.Coins)

	rec = ts.request(t, http.MethodGet, "/api/bookings", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bookings []struct {
		BookingID string `json:"booking_id"`
		Attended  bool   `json:"attended"`
	}
	decodeBody(t, rec, &bookings)
	require.Len(t, bookings, 1)
	assert.True(t, bookings[0].Attended)
}

func TestAPI_SaveEvent_CannotShrinkBelowBookedSeats(t *testing.T) {
	// GIVEN: An event with 2 of its 3 seats booked
	// WHEN: An admin upserts it with total_seats below the booked count
	// THEN: 400; raising capacity still works

	ts := newTestServer(t)
	adminToken := ts.signup(t, "a1", "admin")
	userToken := ts.signup(t, "u1", "user")

	rec := ts.request(t, http.MethodPost, "/api/admin/events", adminToken, map[string]any{
		"id": "e1", "title": "Launch Night", "price": "300", "total_seats": 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.request(t, http.MethodPost, "/api/events/book", userToken, map[string]any{
		"eventId": "e1", "seats": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.request(t, http.MethodPost, "/api/admin/events", adminToken, map[string]any{
		"id": "e1", "title": "Launch Night", "price": "300", "total_seats": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = ts.request(t, http.MethodPost, "/api/admin/events", adminToken, map[string]any{
		"id": "e1", "title": "Launch Night", "price": "300", "total_seats": 5,
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAPI_MarkAttended_UnknownBooking_NotFound(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.signup(t, "a1", "admin")

	rec := ts.request(t, http.MethodPost, "/api/admin/bookings/nope/attended", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// AUDIT
// =============================================================================

func TestAPI_WalletAudit_ConsistentAfterActivity(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "u1", "user")
	ts.grantCoins(t, "u1", 250)

	rec := ts.request(t, http.MethodGet, "/api/wallet/audit", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var audit struct {
		Stored     int64 `json:"stored"`
		Replayed   int64 `json:"replayed"`
		Drift      int64 `json:"drift"`
		Consistent bool  `json:"consistent"`
	}
	decodeBody(t, rec, &audit)
	assert.Equal(t, int64(250), audit.Stored)
	assert.Equal(t, int64(250), audit.Replayed)
	assert.Equal(t, int64(0), audit.Drift)
	assert.True(t, audit.Consistent)
}

// =============================================================================
// ERROR SHAPE
// =============================================================================

func TestAPI_UnknownProduct_NotFound(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "u1", "user")

	rec := ts.request(t, http.MethodPost, "/api/cart", token, map[string]any{
		"action": "add", "productId": "nope",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ValidationError_BadRequest(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "u1", "user")

	rec := ts.request(t, http.MethodPost, "/api/cart", token, map[string]any{
		"action": "teleport", "productId": "p1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.request(t, http.MethodPost, "/api/games/2048/reward", token, map[string]any{
		"score": -1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
