/*
store.go - Persistence contract for the commerce coordinators

PURPOSE:
  The coordinators don't talk to a database directly; they depend on this
  interface, which store/sqlite implements. TxStore is the important part:
  every checkout and booking runs entirely inside one WithCommerceTx call.
*/
package commerce

import (
	"context"

	"plaza/coin-engine/inventory"
	"plaza/coin-engine/ledger"
)

// Store is everything cart, checkout, and booking need to persist.
type Store interface {
	ledger.Store
	inventory.Store

	GetCart(ctx context.Context, userID string) ([]CartItem, error)
	GetCartItem(ctx context.Context, userID, productID string) (*CartItem, error)
	UpsertCartItem(ctx context.Context, item CartItem) error
	DeleteCartItem(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string) error

	SaveOrder(ctx context.Context, o Order) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	GetEvent(ctx context.Context, id string) (*Event, error)
	IncrementBookedSeats(ctx context.Context, eventID string, seats int64) error
	SaveBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, bookingID string) (*Booking, error)
	MarkBookingAttended(ctx context.Context, bookingID string) error
}

// TxStore adds the atomic unit the coordinators commit through.
type TxStore interface {
	Store

	// WithCommerceTx executes fn within one store transaction.
	WithCommerceTx(ctx context.Context, fn func(Store) error) error
}
