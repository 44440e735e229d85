/*
cart.go - Cart mutations with the advisory stock check

PURPOSE:
  Add, update, and remove cart lines. The stock check here is advisory:
  it compares the requested quantity against stockAvailable but reserves
  nothing, so two concurrent carts can both pass for the last unit. The
  authoritative gate is the checkout-time decrement in checkout.go.
*/
package commerce

import (
	"context"
	"fmt"

	"plaza/coin-engine/inventory"
	"plaza/coin-engine/ledger"
)

// CartAction is the requested cart mutation.
type CartAction string

const (
	CartAdd    CartAction = "add"
	CartUpdate CartAction = "update"
	CartRemove CartAction = "remove"
)

// UpdateCart applies one cart mutation for a user.
//
//   - add:    increases the line quantity by qty (creating the line with a
//             title/category/price snapshot from the product)
//   - update: sets the line quantity to qty; a quantity of 0 deletes the line
//   - remove: deletes the line
//
// add/update check the resulting quantity against available stock and fail
// with an InsufficientStockError, without writing, if it doesn't fit.
func (c *Coordinator) UpdateCart(ctx context.Context, userID string, action CartAction, productID string, qty int64) error {
	if productID == "" {
		return fmt.Errorf("%w: missing product id", ledger.ErrValidation)
	}

	switch action {
	case CartRemove:
		return c.Store.DeleteCartItem(ctx, userID, productID)
	case CartAdd, CartUpdate:
	default:
		return fmt.Errorf("%w: unknown cart action %q", ledger.ErrValidation, action)
	}

	if qty < 0 {
		return fmt.Errorf("%w: negative quantity", ledger.ErrValidation)
	}

	product, err := c.Store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	existing, err := c.Store.GetCartItem(ctx, userID, productID)
	if err != nil {
		return err
	}

	newQty := qty
	if action == CartAdd {
		if qty == 0 {
			qty = 1
		}
		newQty = qty
		if existing != nil {
			newQty = existing.Quantity + qty
		}
	}

	if newQty == 0 {
		return c.Store.DeleteCartItem(ctx, userID, productID)
	}

	// Advisory check only. No reservation happens here.
	gate := inventory.NewGate(c.Store)
	if err := gate.Check(ctx, productID, newQty); err != nil {
		return err
	}

	item := CartItem{
		UserID:    userID,
		ProductID: productID,
		Title:     product.Title,
		Category:  product.Category,
		Price:     product.Price,
		Quantity:  newQty,
		AddedAt:   c.now(),
	}
	if existing != nil {
		// Keep the original add-time snapshot.
		item.Title = existing.Title
		item.Category = existing.Category
		item.Price = existing.Price
		item.AddedAt = existing.AddedAt
	}

	return c.Store.UpsertCartItem(ctx, item)
}

// Cart returns the user's current cart lines.
func (c *Coordinator) Cart(ctx context.Context, userID string) ([]CartItem, error) {
	return c.Store.GetCart(ctx, userID)
}
