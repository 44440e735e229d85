/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request bodies are
  explicit typed schemas validated in the handlers before any mutation is
  attempted; there is no dynamic field defaulting at the storage layer.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO / *Response: Types returned to clients
*/
package api

import (
	"time"

	"plaza/coin-engine/commerce"
	"plaza/coin-engine/ledger"
)

// =============================================================================
// USERS & WALLET
// =============================================================================

type CreateUserRequest struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type UserDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token,omitempty"`
}

type WalletDTO struct {
	UserID        string `json:"user_id"`
	Coins         int64  `json:"coins"`
	CoinsRedeemed int64  `json:"coins_redeemed"`
}

type EntryDTO struct {
	ID          string `json:"id"`
	Action      string `json:"action"`
	Coins       int64  `json:"coins"`
	Description string `json:"description,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type AuditDTO struct {
	UserID     string `json:"user_id"`
	Stored     int64  `json:"stored"`
	Replayed   int64  `json:"replayed"`
	Drift      int64  `json:"drift"`
	Entries    int    `json:"entries"`
	Consistent bool   `json:"consistent"`
}

// =============================================================================
// CART & CHECKOUT
// =============================================================================

type CartRequest struct {
	Action    string `json:"action"` // add | update | remove
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type CartItemDTO struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Category  string `json:"category,omitempty"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
	CoinsUsed int64  `json:"coinsUsed"`
	Tax       string `json:"tax,omitempty"`
	Shipping  string `json:"shipping,omitempty"`
}

type OrderDTO struct {
	OrderID     string         `json:"order_id"`
	PaymentID   string         `json:"payment_id"`
	Items       []OrderItemDTO `json:"items"`
	Subtotal    string         `json:"subtotal"`
	Tax         string         `json:"tax"`
	Shipping    string         `json:"shipping"`
	CoinsUsed   int64          `json:"coins_used"`
	CoinsEarned int64          `json:"coins_earned"`
	FinalAmount string         `json:"final_amount"`
	Status      string         `json:"status"`
	CreatedAt   string         `json:"created_at"`
}

type OrderItemDTO struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type CheckoutResponse struct {
	Success     bool     `json:"success"`
	Order       OrderDTO `json:"order"`
	NewCoins    int64    `json:"newCoins"`
	CoinsEarned int64    `json:"coinsEarned"`
}

// =============================================================================
// EVENTS & BOOKINGS
// =============================================================================

type BookEventRequest struct {
	EventID   string `json:"eventId"`
	Seats     int64  `json:"seats"`
	CoinsUsed int64  `json:"coinsUsed"`
}

type BookingDTO struct {
	BookingID   string `json:"booking_id"`
	EventID     string `json:"event_id"`
	SeatsBooked int64  `json:"seats_booked"`
	AmountPaid  string `json:"amount_paid"`
	CoinsUsed   int64  `json:"coins_used"`
	CoinsEarned int64  `json:"coins_earned"`
	Attended    bool   `json:"attended"`
}

type BookEventResponse struct {
	Success   bool       `json:"success"`
	BookingID string     `json:"bookingId"`
	Booking   BookingDTO `json:"booking"`
	NewCoins  int64      `json:"newCoins"`
}

// =============================================================================
// GAMES
// =============================================================================

type SudokuStartRequest struct {
	LevelID string `json:"levelId"`
}

type SudokuStartResponse struct {
	GameID string `json:"gameId"`
	Grid   string `json:"grid"`
	Status string `json:"status"`
}

type SudokuSubmitRequest struct {
	GameID   string `json:"gameId"`
	UserGrid string `json:"userGrid"`
}

type SudokuHintRequest struct {
	GameID string `json:"gameId"`
}

type SudokuHintResponse struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

type GuessSubmitRequest struct {
	PuzzleID string `json:"puzzleId"`
	Answer   string `json:"answer"`
}

type GuessSubmitResponse struct {
	Correct    bool  `json:"correct"`
	Coins      int64 `json:"coins"`
	TotalCoins int64 `json:"totalCoins"`
}

type SpinWheelResponse struct {
	Success      bool  `json:"success"`
	RewardAmount int64 `json:"rewardAmount"`
	TotalCoins   int64 `json:"totalCoins"`
}

type Reward2048Request struct {
	Score int64 `json:"score"`
}

type Reward2048Response struct {
	Success     bool  `json:"success"`
	CoinsEarned int64 `json:"coinsEarned"`
	TotalCoins  int64 `json:"totalCoins"`
	HighScore   int64 `json:"highScore"`
	NewHighest  bool  `json:"newHighest"`
}

// =============================================================================
// ADMIN
// =============================================================================

type ProductRequest struct {
	ID             string `json:"id,omitempty"`
	Title          string `json:"title"`
	Category       string `json:"category,omitempty"`
	Price          string `json:"price"`
	StockAvailable int64  `json:"stock_available"`
}

type ProductDTO struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Category       string `json:"category,omitempty"`
	Price          string `json:"price"`
	StockAvailable int64  `json:"stock_available"`
}

type EventRequest struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Price       string `json:"price"`
	CoinsReward int64  `json:"coins_reward"`
	TotalSeats  int64  `json:"total_seats"`
	StartsAt    string `json:"starts_at,omitempty"`
}

type EventDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Price       string `json:"price"`
	CoinsReward int64  `json:"coins_reward"`
	TotalSeats  int64  `json:"total_seats"`
	BookedSeats int64  `json:"booked_seats"`
	SeatsLeft   int64  `json:"seats_left"`
}

type SudokuLevelRequest struct {
	ID       string `json:"id,omitempty"`
	Grid     string `json:"grid"`
	Solution string `json:"solution"`
	Coins    int64  `json:"coins"`
}

type GuessPuzzleRequest struct {
	ID     string `json:"id,omitempty"`
	Kind   string `json:"kind"` // riddle | movie
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
	Coins  int64  `json:"coins,omitempty"`
}

type AdjustmentRequest struct {
	UserID string `json:"user_id"`
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		ID:          string(e.ID),
		Action:      string(e.Action),
		Coins:       e.Coins,
		Description: e.Description,
		ReferenceID: e.ReferenceID,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}

func toOrderDTO(o commerce.Order) OrderDTO {
	items := make([]OrderItemDTO, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     item.Price.String(),
			Quantity:  item.Quantity,
		}
	}
	return OrderDTO{
		OrderID:     o.OrderID,
		PaymentID:   o.PaymentID,
		Items:       items,
		Subtotal:    o.Subtotal.String(),
		Tax:         o.Tax.String(),
		Shipping:    o.Shipping.String(),
		CoinsUsed:   o.CoinsUsed,
		CoinsEarned: o.CoinsEarned,
		FinalAmount: o.FinalAmount.String(),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
	}
}

func toEventDTO(e commerce.Event) EventDTO {
	return EventDTO{
		ID:          e.ID,
		Title:       e.Title,
		Price:       e.Price.String(),
		CoinsReward: e.CoinsReward,
		TotalSeats:  e.TotalSeats,
		BookedSeats: e.BookedSeats,
		SeatsLeft:   e.SeatsLeft(),
	}
}

func toBookingDTO(b commerce.Booking) BookingDTO {
	return BookingDTO{
		BookingID:   b.BookingID,
		EventID:     b.EventID,
		SeatsBooked: b.SeatsBooked,
		AmountPaid:  b.AmountPaid.String(),
		CoinsUsed:   b.CoinsUsed,
		CoinsEarned: b.CoinsEarned,
		Attended:    b.Attended,
	}
}
