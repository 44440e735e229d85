/*
handlers.go - HTTP handlers for wallet, commerce, and game endpoints

PURPOSE:
  Thin HTTP layer over the coordinators. Handlers decode and validate the
  request shape, resolve the caller from the request context, call exactly
  one coordinator or store operation, and translate domain errors into
  status codes. No business rules live here.

ERROR MAPPING:
  - not-found sentinels                -> 404
  - precondition/validation sentinels  -> 400
  - anything else                      -> 500 (logged, body stays generic)
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"plaza/coin-engine/commerce"
	"plaza/coin-engine/games"
	"plaza/coin-engine/inventory"
	"plaza/coin-engine/ledger"
	"plaza/coin-engine/store/sqlite"
)

// Handler carries the dependencies shared by all routes.
type Handler struct {
	Store    *sqlite.Store
	Commerce *commerce.Coordinator
	Games    *games.Service
	Verifier TokenVerifier
	Log      *logrus.Logger

	// IssueToken mints the bearer token returned at signup.
	IssueToken func(userID string) string

	// SignupBonus is credited to every new wallet. Zero disables it.
	SignupBonus int64
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// domainError maps a coordinator or store error onto an HTTP response.
func (h *Handler) domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, "Product is out of stock", "insufficient_stock")
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, "Insufficient coin balance", "insufficient_balance")
	case errors.Is(err, ledger.ErrBadSignature):
		writeError(w, http.StatusBadRequest, "Invalid payment signature", "bad_signature")
	case errors.Is(err, ledger.ErrAlreadySpunToday):
		writeError(w, http.StatusBadRequest, "Already spun today", "already_spun")
	case errors.Is(err, ledger.ErrAlreadyCompleted):
		writeError(w, http.StatusBadRequest, "Game already completed", "already_completed")
	case errors.Is(err, ledger.ErrSoldOut):
		writeError(w, http.StatusBadRequest, "Not enough seats left", "sold_out")
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), "validation")
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), "not_found")
	case ledger.IsPreconditionFailure(err):
		// Remaining precondition failures, e.g. an idempotency-key replay.
		writeError(w, http.StatusBadRequest, err.Error(), "precondition_failed")
	default:
		h.Log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error", "internal")
	}
}

// parseAmount reads an optional decimal string field. Empty means zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, errors.New("invalid amount")
	}
	return d, nil
}

// =============================================================================
// USERS & WALLET
// =============================================================================

// POST /api/users
//
// Signup: user record, wallet, optional signup bonus, all in one
// transaction. Returns the bearer token for subsequent calls.
func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required", "validation")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Role == "" {
		req.Role = "user"
	}

	err := h.Store.WithTx(r.Context(), func(tx *sqlite.Store) error {
		if err := tx.SaveUser(r.Context(), sqlite.User{
			ID:        req.ID,
			Name:      req.Name,
			Email:     req.Email,
			Role:      req.Role,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		if err := tx.CreateWallet(r.Context(), ledger.UserID(req.ID)); err != nil {
			return err
		}
		if h.SignupBonus > 0 {
			_, err := ledger.New(tx).ApplyDelta(r.Context(), ledger.UserID(req.ID), h.SignupBonus, ledger.Entry{
				Action:         ledger.ActionSignupBonus,
				Description:    "Welcome bonus",
				IdempotencyKey: "signup-" + req.ID,
			})
			return err
		}
		return nil
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, UserDTO{
		ID:    req.ID,
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
		Token: h.IssueToken(req.ID),
	})
}

// GET /api/wallet
func (h *Handler) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(UserIDFrom(r.Context()))
	wallet, err := h.Store.GetWallet(r.Context(), userID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WalletDTO{
		UserID:        string(wallet.UserID),
		Coins:         wallet.Coins,
		CoinsRedeemed: wallet.CoinsRedeemed,
	})
}

// GET /api/wallet/history
func (h *Handler) handleWalletHistory(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(UserIDFrom(r.Context()))
	entries, err := ledger.New(h.Store).History(r.Context(), userID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	out := make([]EntryDTO, len(entries))
	for i, e := range entries {
		out[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/wallet/audit
//
// Replays the caller's ledger and reports any drift against the stored
// balance. Diagnostic endpoint; it never mutates anything.
func (h *Handler) handleWalletAudit(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(UserIDFrom(r.Context()))
	report, err := ledger.New(h.Store).Audit(r.Context(), userID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuditDTO{
		UserID:     string(report.UserID),
		Stored:     report.Stored,
		Replayed:   report.Replayed,
		Drift:      report.Drift,
		Entries:    report.Entries,
		Consistent: report.Consistent(),
	})
}

// =============================================================================
// PRODUCTS, CART & CHECKOUT
// =============================================================================

// GET /api/products
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	out := make([]ProductDTO, len(products))
	for i, p := range products {
		out[i] = ProductDTO{
			ID:             p.ID,
			Title:          p.Title,
			Category:       p.Category,
			Price:          p.Price.String(),
			StockAvailable: p.StockAvailable,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, r, http.StatusOK)
}

// POST /api/cart
func (h *Handler) handleUpdateCart(w http.ResponseWriter, r *http.Request) {
	var req CartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	userID := UserIDFrom(r.Context())
	err := h.Commerce.UpdateCart(r.Context(), userID, commerce.CartAction(req.Action), req.ProductID, req.Quantity)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, status int) {
	cart, err := h.Commerce.Cart(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	out := make([]CartItemDTO, len(cart))
	for i, line := range cart {
		out[i] = CartItemDTO{
			ProductID: line.ProductID,
			Title:     line.Title,
			Category:  line.Category,
			Price:     line.Price.String(),
			Quantity:  line.Quantity,
		}
	}
	writeJSON(w, status, out)
}

// POST /api/payments/verify
//
// The client sends the gateway's order/payment IDs and signature plus
// how many coins to apply. Everything downstream of the signature check
// commits atomically or not at all.
func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	tax, err := parseAmount(req.Tax)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tax amount", "validation")
		return
	}
	shipping, err := parseAmount(req.Shipping)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shipping amount", "validation")
		return
	}

	result, err := h.Commerce.Checkout(r.Context(), commerce.CheckoutInput{
		UserID:    UserIDFrom(r.Context()),
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		CoinsUsed: req.CoinsUsed,
		Tax:       tax,
		Shipping:  shipping,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{
		Success:     true,
		Order:       toOrderDTO(result.Order),
		NewCoins:    result.NewCoins,
		CoinsEarned: result.CoinsEarned,
	})
}

// GET /api/orders/{orderID}
func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Store.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	if order.UserID != UserIDFrom(r.Context()) {
		writeError(w, http.StatusNotFound, "order not found", "not_found")
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// =============================================================================
// EVENTS & BOOKINGS
// =============================================================================

// GET /api/events/{eventID}
func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.Store.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(*event))
}

// POST /api/events/book
func (h *Handler) handleBookEvent(w http.ResponseWriter, r *http.Request) {
	var req BookEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	if req.Seats == 0 {
		req.Seats = 1
	}

	result, err := h.Commerce.BookEvent(r.Context(), commerce.BookingInput{
		UserID:    UserIDFrom(r.Context()),
		EventID:   req.EventID,
		Seats:     req.Seats,
		CoinsUsed: req.CoinsUsed,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, BookEventResponse{
		Success:   true,
		BookingID: result.Booking.BookingID,
		Booking:   toBookingDTO(result.Booking),
		NewCoins:  result.NewCoins,
	})
}

// GET /api/bookings
func (h *Handler) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Store.ListBookings(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	out := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		out[i] = toBookingDTO(b)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// GAMES
// =============================================================================

// POST /api/games/sudoku/start
func (h *Handler) handleSudokuStart(w http.ResponseWriter, r *http.Request) {
	var req SudokuStartRequest
	if err := decodeJSON(r, &req); err != nil || req.LevelID == "" {
		writeError(w, http.StatusBadRequest, "levelId is required", "validation")
		return
	}
	sess, err := h.Games.StartSudoku(r.Context(), ledger.UserID(UserIDFrom(r.Context())), req.LevelID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SudokuStartResponse{
		GameID: sess.ID,
		Grid:   sess.Grid,
		Status: string(sess.Status),
	})
}

// POST /api/games/sudoku/submit
func (h *Handler) handleSudokuSubmit(w http.ResponseWriter, r *http.Request) {
	var req SudokuSubmitRequest
	if err := decodeJSON(r, &req); err != nil || req.GameID == "" {
		writeError(w, http.StatusBadRequest, "gameId is required", "validation")
		return
	}
	result, err := h.Games.SubmitSudoku(r.Context(), ledger.UserID(UserIDFrom(r.Context())), req.GameID, req.UserGrid)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GuessSubmitResponse{
		Correct:    result.Correct,
		Coins:      result.Coins,
		TotalCoins: result.TotalCoins,
	})
}

// POST /api/games/sudoku/hint
func (h *Handler) handleSudokuHint(w http.ResponseWriter, r *http.Request) {
	var req SudokuHintRequest
	if err := decodeJSON(r, &req); err != nil || req.GameID == "" {
		writeError(w, http.StatusBadRequest, "gameId is required", "validation")
		return
	}
	hint, err := h.Games.SudokuHint(r.Context(), ledger.UserID(UserIDFrom(r.Context())), req.GameID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SudokuHintResponse{
		Index: hint.Index,
		Value: string(hint.Value),
	})
}

// POST /api/games/riddles/submit and /api/games/movies/submit
func (h *Handler) handleGuessSubmit(kind games.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GuessSubmitRequest
		if err := decodeJSON(r, &req); err != nil || req.PuzzleID == "" {
			writeError(w, http.StatusBadRequest, "puzzleId is required", "validation")
			return
		}
		result, err := h.Games.SubmitGuess(r.Context(), ledger.UserID(UserIDFrom(r.Context())), kind, req.PuzzleID, req.Answer)
		if err != nil {
			h.domainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, GuessSubmitResponse{
			Correct:    result.Correct,
			Coins:      result.Coins,
			TotalCoins: result.TotalCoins,
		})
	}
}

// POST /api/games/spin-wheel
func (h *Handler) handleSpinWheel(w http.ResponseWriter, r *http.Request) {
	result, err := h.Games.SpinWheel(r.Context(), ledger.UserID(UserIDFrom(r.Context())))
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SpinWheelResponse{
		Success:      true,
		RewardAmount: result.RewardAmount,
		TotalCoins:   result.TotalCoins,
	})
}

// POST /api/games/2048/reward
func (h *Handler) handleReward2048(w http.ResponseWriter, r *http.Request) {
	var req Reward2048Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	result, err := h.Games.Reward2048(r.Context(), ledger.UserID(UserIDFrom(r.Context())), req.Score)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Reward2048Response{
		Success:     true,
		CoinsEarned: result.CoinsEarned,
		TotalCoins:  result.TotalCoins,
		HighScore:   result.HighScore,
		NewHighest:  result.NewHighest,
	})
}

// =============================================================================
// ADMIN
// =============================================================================

// POST /api/admin/products
func (h *Handler) handleSaveProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := decodeJSON(r, &req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required", "validation")
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid price", "validation")
		return
	}
	if req.StockAvailable < 0 {
		writeError(w, http.StatusBadRequest, "stock_available must not be negative", "validation")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	p := inventory.Product{
		ID:             req.ID,
		Title:          req.Title,
		Category:       req.Category,
		Price:          price,
		StockAvailable: req.StockAvailable,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.Store.SaveProduct(r.Context(), p); err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ProductDTO{
		ID:             p.ID,
		Title:          p.Title,
		Category:       p.Category,
		Price:          p.Price.String(),
		StockAvailable: p.StockAvailable,
	})
}

// POST /api/admin/events
func (h *Handler) handleSaveEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := decodeJSON(r, &req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required", "validation")
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid price", "validation")
		return
	}
	if req.TotalSeats < 1 {
		writeError(w, http.StatusBadRequest, "total_seats must be at least 1", "validation")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	} else if existing, err := h.Store.GetEvent(r.Context(), req.ID); err == nil {
		// Upserts keep booked_seats; capacity can't shrink below them.
		if req.TotalSeats < existing.BookedSeats {
			writeError(w, http.StatusBadRequest, "total_seats is below seats already booked", "validation")
			return
		}
	} else if !errors.Is(err, ledger.ErrEventNotFound) {
		h.domainError(w, r, err)
		return
	}
	startsAt := time.Time{}
	if req.StartsAt != "" {
		startsAt, err = time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "starts_at must be RFC3339", "validation")
			return
		}
	}
	event := commerce.Event{
		ID:          req.ID,
		Title:       req.Title,
		Price:       price,
		CoinsReward: req.CoinsReward,
		TotalSeats:  req.TotalSeats,
		StartsAt:    startsAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.SaveEvent(r.Context(), event); err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(event))
}

// POST /api/admin/sudoku-levels
func (h *Handler) handleSaveSudokuLevel(w http.ResponseWriter, r *http.Request) {
	var req SudokuLevelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	if !games.ValidGrid(req.Grid) || !games.ValidGrid(req.Solution) {
		writeError(w, http.StatusBadRequest, "grid and solution must be 81 digits", "validation")
		return
	}
	if req.Coins < 0 {
		writeError(w, http.StatusBadRequest, "coins must not be negative", "validation")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	level := games.SudokuLevel{ID: req.ID, Grid: req.Grid, Solution: req.Solution, Coins: req.Coins}
	if err := h.Store.SaveSudokuLevel(r.Context(), level); err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, level)
}

// POST /api/admin/puzzles
func (h *Handler) handleSaveGuessPuzzle(w http.ResponseWriter, r *http.Request) {
	var req GuessPuzzleRequest
	if err := decodeJSON(r, &req); err != nil || req.Prompt == "" || req.Answer == "" {
		writeError(w, http.StatusBadRequest, "prompt and answer are required", "validation")
		return
	}
	kind := games.Kind(req.Kind)
	if kind != games.KindRiddle && kind != games.KindMovie {
		writeError(w, http.StatusBadRequest, "kind must be riddle or movie", "validation")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	puzzle := games.GuessPuzzle{
		ID:     req.ID,
		Kind:   kind,
		Prompt: req.Prompt,
		Answer: req.Answer,
		Coins:  req.Coins,
	}
	if err := h.Store.SaveGuessPuzzle(r.Context(), puzzle); err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, puzzle)
}

// POST /api/admin/bookings/{bookingID}/attended
func (h *Handler) handleMarkAttended(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	booking, err := h.Commerce.MarkAttended(r.Context(), bookingID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(*booking))
}

// POST /api/admin/adjustments
func (h *Handler) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := decodeJSON(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", "validation")
		return
	}
	newCoins, err := h.Commerce.Adjust(r.Context(), req.UserID, req.Delta, req.Reason)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WalletDTO{UserID: req.UserID, Coins: newCoins})
}
