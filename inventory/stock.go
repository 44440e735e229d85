/*
Package inventory provides the product stock gate.

PURPOSE:
  Guards purchasable quantity. The gate is used in two modes:

  Advisory (cart add/update):
    Check compares the requested quantity against stockAvailable without
    reserving anything. Two concurrent carts can both pass for the last
    unit; that race is inherent to the design and resolved at checkout.

  Authoritative (checkout commit):
    Reserve decrements stockAvailable inside the checkout's store
    transaction via a conditional update, so stock never goes below zero
    no matter how many checkouts race.

SEE ALSO:
  - store/sqlite: Conditional-update DecrementStock implementation
  - commerce/: Cart (advisory) and checkout (authoritative) callers
*/
package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"plaza/coin-engine/ledger"
)

// Product is a purchasable marketplace item.
type Product struct {
	ID             string
	Title          string
	Category       string
	Price          decimal.Decimal
	StockAvailable int64
	CreatedAt      time.Time
}

// Store is the persistence the gate needs.
type Store interface {
	// GetProduct returns the product or ledger.ErrProductNotFound.
	GetProduct(ctx context.Context, id string) (*Product, error)

	// DecrementStock atomically runs stock_available -= qty, failing with
	// an InsufficientStockError instead of going below zero.
	DecrementStock(ctx context.Context, id string, qty int64) error
}

// Gate checks and reserves product stock.
type Gate struct {
	Store Store
}

func NewGate(store Store) *Gate {
	return &Gate{Store: store}
}

// Check is the advisory mode: it compares qty against current stock and
// does not reserve anything.
func (g *Gate) Check(ctx context.Context, productID string, qty int64) error {
	p, err := g.Store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if qty > p.StockAvailable {
		return &ledger.InsufficientStockError{
			ProductID: productID,
			Available: p.StockAvailable,
			Requested: qty,
		}
	}
	return nil
}

// Reserve is the authoritative mode: it decrements stock, never below
// zero. Run it inside the same store transaction as the order write.
func (g *Gate) Reserve(ctx context.Context, productID string, qty int64) error {
	return g.Store.DecrementStock(ctx, productID, qty)
}
