/*
Package commerce coordinates cart, checkout, and event booking.

PURPOSE:
  Implements the transaction coordinators for money-shaped actions. Each
  coordinator has the same shape: read balance/stock, validate
  preconditions, compute deltas via the rewards policies, and commit
  everything (order/booking + stock/seat change + wallet delta + ledger
  entry) inside one store transaction.

KEY CONCEPTS IN THIS FILE (types.go):
  - CartItem: A cart line with an add-time price snapshot
  - Order:    Immutable record of one verified checkout
  - Event:    Bookable event with a seat counter and fixed coin reward
  - Booking:  A confirmed seat reservation

SEE ALSO:
  - cart.go: Advisory-checked cart mutations
  - checkout.go: Payment verification and order commit
  - booking.go: Seat booking with coin debit/credit
*/
package commerce

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CART
// =============================================================================

// CartItem is one line of a user's cart, keyed by (user, product). The
// title/category/price are snapshots taken when the line was added; the
// quantity is live. A line is deleted when its quantity would drop to 0.
type CartItem struct {
	UserID    string
	ProductID string
	Title     string
	Category  string
	Price     decimal.Decimal
	Quantity  int64
	AddedAt   time.Time
}

// Subtotal returns price * quantity for this line.
func (c CartItem) Subtotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(c.Quantity))
}

// =============================================================================
// ORDER
// =============================================================================

type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Order records one verified checkout. Created exactly once per verified
// payment; immutable afterwards except for Status.
type Order struct {
	OrderID     string
	PaymentID   string
	UserID      string
	Items       []OrderItem
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Shipping    decimal.Decimal
	CoinsUsed   int64
	CoinsEarned int64
	FinalAmount decimal.Decimal
	Status      OrderStatus
	CreatedAt   time.Time
}

// OrderItem is a purchased line, copied from the cart at commit time.
type OrderItem struct {
	ProductID string
	Title     string
	Category  string
	Price     decimal.Decimal
	Quantity  int64
}

// =============================================================================
// EVENTS & BOOKINGS
// =============================================================================

// Event is a bookable event. BookedSeats only ever increments; there is
// no cancellation path.
type Event struct {
	ID          string
	Title       string
	Price       decimal.Decimal
	CoinsReward int64
	TotalSeats  int64
	BookedSeats int64
	StartsAt    time.Time
	CreatedAt   time.Time
}

// SeatsLeft returns remaining capacity.
func (e Event) SeatsLeft() int64 { return e.TotalSeats - e.BookedSeats }

// Booking is a confirmed seat reservation.
type Booking struct {
	BookingID   string
	EventID     string
	UserID      string
	SeatsBooked int64
	AmountPaid  decimal.Decimal
	CoinsUsed   int64
	CoinsEarned int64
	Attended    bool
	CreatedAt   time.Time
}
