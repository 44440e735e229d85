/*
checkout.go - Payment verification and order commit

PURPOSE:
  The checkout coordinator. Verifies the payment gateway signature, then
  commits the whole checkout as one atomic unit: stock decrement for every
  cart line, coin debit for redemption, cashback credit, the order record,
  and the cart wipe. Either everything lands or nothing does - the old
  platform's "order recorded but balance not updated" failure mode cannot
  happen here.

SIGNATURE CHECK:
  The gateway signs "orderID|paymentID" with HMAC-SHA256 over a shared
  secret and sends the hex digest. Verification is constant-time.
*/
package commerce

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"plaza/coin-engine/inventory"
	"plaza/coin-engine/ledger"
	"plaza/coin-engine/rewards"
)

// Coordinator runs cart, checkout, and booking flows against a TxStore.
type Coordinator struct {
	Store         TxStore
	PaymentSecret string

	// Clock override for tests. Nil means time.Now.
	Clock func() time.Time
}

func NewCoordinator(store TxStore, paymentSecret string) *Coordinator {
	return &Coordinator{Store: store, PaymentSecret: paymentSecret}
}

func (c *Coordinator) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

// =============================================================================
// PAYMENT SIGNATURE
// =============================================================================

// SignPayment computes the expected signature for orderID+paymentID.
// Exposed so tests (and the demo seeder) can produce valid signatures.
func SignPayment(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the gateway signature in constant time.
func VerifySignature(orderID, paymentID, signature, secret string) error {
	expected := SignPayment(orderID, paymentID, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ledger.ErrBadSignature
	}
	return nil
}

// =============================================================================
// CHECKOUT
// =============================================================================

// CheckoutInput is the verified-payment checkout request.
type CheckoutInput struct {
	UserID    string
	OrderID   string
	PaymentID string
	Signature string
	CoinsUsed int64
	Tax       decimal.Decimal
	Shipping  decimal.Decimal
}

// CheckoutResult reports the committed order and the wallet after it.
type CheckoutResult struct {
	Order       Order
	NewCoins    int64
	CoinsEarned int64
}

// Checkout verifies the payment and commits the order.
//
// Inside one store transaction:
//  1. every cart line's stock is decremented (authoritative gate)
//  2. CoinsUsed is debited (redeemed, 1 coin = 1 currency unit)
//  3. cashback of floor(finalAmount * 10%) is credited
//  4. the order is recorded and the cart cleared
//
// Preconditions: valid signature, non-empty cart, CoinsUsed within both
// the wallet balance and the order total.
func (c *Coordinator) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if in.OrderID == "" || in.PaymentID == "" {
		return nil, fmt.Errorf("%w: missing order or payment id", ledger.ErrValidation)
	}
	if in.CoinsUsed < 0 {
		return nil, fmt.Errorf("%w: negative coinsUsed", ledger.ErrValidation)
	}
	if err := VerifySignature(in.OrderID, in.PaymentID, in.Signature, c.PaymentSecret); err != nil {
		return nil, err
	}

	var result CheckoutResult
	err := c.Store.WithCommerceTx(ctx, func(tx Store) error {
		cart, err := tx.GetCart(ctx, in.UserID)
		if err != nil {
			return err
		}
		if len(cart) == 0 {
			return fmt.Errorf("%w: cart is empty", ledger.ErrValidation)
		}

		// Authoritative stock gate: conditional decrement per line.
		gate := inventory.NewGate(tx)
		subtotal := decimal.Zero
		items := make([]OrderItem, 0, len(cart))
		for _, line := range cart {
			if err := gate.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
			subtotal = subtotal.Add(line.Subtotal())
			items = append(items, OrderItem{
				ProductID: line.ProductID,
				Title:     line.Title,
				Category:  line.Category,
				Price:     line.Price,
				Quantity:  line.Quantity,
			})
		}

		total := subtotal.Add(in.Tax).Add(in.Shipping)
		coinsUsedDec := decimal.NewFromInt(in.CoinsUsed)
		if coinsUsedDec.GreaterThan(total) {
			return fmt.Errorf("%w: coinsUsed exceeds order total", ledger.ErrValidation)
		}
		finalAmount := total.Sub(coinsUsedDec)

		led := ledger.New(tx)
		if in.CoinsUsed > 0 {
			_, err := led.ApplyDelta(ctx, ledger.UserID(in.UserID), -in.CoinsUsed, ledger.Entry{
				Action:         ledger.ActionRedeemed,
				Description:    fmt.Sprintf("Redeemed on order %s", in.OrderID),
				ReferenceID:    in.OrderID,
				IdempotencyKey: "redeem-" + in.OrderID,
			})
			if err != nil {
				return err
			}
		}

		// Cashback floors to zero on small or fully coin-covered orders;
		// a zero delta is not a ledger entry.
		var newCoins int64
		coinsEarned := rewards.Cashback(finalAmount)
		if coinsEarned > 0 {
			newCoins, err = led.ApplyDelta(ctx, ledger.UserID(in.UserID), coinsEarned, ledger.Entry{
				Action:         ledger.ActionPurchase,
				Description:    fmt.Sprintf("Cashback on order %s", in.OrderID),
				ReferenceID:    in.OrderID,
				IdempotencyKey: "cashback-" + in.OrderID,
			})
		} else {
			newCoins, err = led.Balance(ctx, ledger.UserID(in.UserID))
		}
		if err != nil {
			return err
		}

		order := Order{
			OrderID:     in.OrderID,
			PaymentID:   in.PaymentID,
			UserID:      in.UserID,
			Items:       items,
			Subtotal:    subtotal,
			Tax:         in.Tax,
			Shipping:    in.Shipping,
			CoinsUsed:   in.CoinsUsed,
			CoinsEarned: coinsEarned,
			FinalAmount: finalAmount,
			Status:      OrderPlaced,
			CreatedAt:   c.now(),
		}
		if err := tx.SaveOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.ClearCart(ctx, in.UserID); err != nil {
			return err
		}

		result = CheckoutResult{Order: order, NewCoins: newCoins, CoinsEarned: coinsEarned}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// MANUAL ADJUSTMENTS
// =============================================================================

// Adjust applies an admin wallet correction through the same ledger path
// as everything else.
func (c *Coordinator) Adjust(ctx context.Context, userID string, delta int64, reason string) (int64, error) {
	if reason == "" {
		return 0, fmt.Errorf("%w: adjustment reason is required", ledger.ErrValidation)
	}
	var newCoins int64
	err := c.Store.WithCommerceTx(ctx, func(tx Store) error {
		var err error
		newCoins, err = ledger.New(tx).ApplyDelta(ctx, ledger.UserID(userID), delta, ledger.Entry{
			ID:          ledger.EntryID(uuid.NewString()),
			Action:      ledger.ActionAdjustment,
			Description: reason,
		})
		return err
	})
	return newCoins, err
}
