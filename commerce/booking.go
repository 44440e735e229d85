/*
booking.go - Event seat booking

PURPOSE:
  Books seats on an event as one atomic unit: the seat-counter increment
  (capacity gated), the coin debit for any coins applied to the price,
  the fixed per-event reward credit, and the booking record.

  bookedSeats only ever increments. There is no cancellation path.

  Attendance is a separate, admin-driven check-in: it flips the
  booking's attended flag and never moves coins, because the event
  reward is settled when the booking is made.
*/
package commerce

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"plaza/coin-engine/ledger"
	"plaza/coin-engine/rewards"
)

// BookingInput is a seat booking request.
type BookingInput struct {
	UserID    string
	EventID   string
	Seats     int64
	CoinsUsed int64
}

// BookingResult reports the committed booking and the wallet after it.
type BookingResult struct {
	Booking  Booking
	NewCoins int64
}

// BookEvent books seats and settles coins.
//
// Inside one store transaction:
//  1. bookedSeats += seats, rejected with ErrSoldOut past capacity
//  2. CoinsUsed is debited (redeemed against the ticket price)
//  3. the event's fixed CoinsReward is credited
//  4. the booking is recorded
func (c *Coordinator) BookEvent(ctx context.Context, in BookingInput) (*BookingResult, error) {
	if in.EventID == "" {
		return nil, fmt.Errorf("%w: missing event id", ledger.ErrValidation)
	}
	if in.Seats < 1 {
		return nil, fmt.Errorf("%w: seats must be at least 1", ledger.ErrValidation)
	}
	if in.CoinsUsed < 0 {
		return nil, fmt.Errorf("%w: negative coinsUsed", ledger.ErrValidation)
	}

	var result BookingResult
	err := c.Store.WithCommerceTx(ctx, func(tx Store) error {
		event, err := tx.GetEvent(ctx, in.EventID)
		if err != nil {
			return err
		}

		price := event.Price.Mul(decimal.NewFromInt(in.Seats))
		coinsUsedDec := decimal.NewFromInt(in.CoinsUsed)
		if coinsUsedDec.GreaterThan(price) {
			return fmt.Errorf("%w: coinsUsed exceeds ticket price", ledger.ErrValidation)
		}
		amountPaid := price.Sub(coinsUsedDec)

		if err := tx.IncrementBookedSeats(ctx, in.EventID, in.Seats); err != nil {
			return err
		}

		bookingID := uuid.NewString()
		led := ledger.New(tx)
		newCoins := int64(0)

		if in.CoinsUsed > 0 {
			newCoins, err = led.ApplyDelta(ctx, ledger.UserID(in.UserID), -in.CoinsUsed, ledger.Entry{
				Action:         ledger.ActionRedeemed,
				Description:    fmt.Sprintf("Redeemed on booking for %s", event.Title),
				ReferenceID:    bookingID,
				IdempotencyKey: "redeem-" + bookingID,
			})
			if err != nil {
				return err
			}
		}

		coinsEarned := rewards.BookingReward(event.CoinsReward)
		if coinsEarned > 0 {
			newCoins, err = led.ApplyDelta(ctx, ledger.UserID(in.UserID), coinsEarned, ledger.Entry{
				Action:         ledger.ActionEventBooked,
				Description:    fmt.Sprintf("Booked %s", event.Title),
				ReferenceID:    bookingID,
				IdempotencyKey: "booking-" + bookingID,
			})
			if err != nil {
				return err
			}
		} else if in.CoinsUsed == 0 {
			// No coin movement at all; still need the current balance
			// for the response.
			newCoins, err = led.Balance(ctx, ledger.UserID(in.UserID))
			if err != nil {
				return err
			}
		}

		booking := Booking{
			BookingID:   bookingID,
			EventID:     in.EventID,
			UserID:      in.UserID,
			SeatsBooked: in.Seats,
			AmountPaid:  amountPaid,
			CoinsUsed:   in.CoinsUsed,
			CoinsEarned: coinsEarned,
			CreatedAt:   c.now(),
		}
		if err := tx.SaveBooking(ctx, booking); err != nil {
			return err
		}

		result = BookingResult{Booking: booking, NewCoins: newCoins}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MarkAttended records that the booked seats were actually used. Calling
// it again for the same booking is a no-op.
func (c *Coordinator) MarkAttended(ctx context.Context, bookingID string) (*Booking, error) {
	if bookingID == "" {
		return nil, fmt.Errorf("%w: missing booking id", ledger.ErrValidation)
	}

	var booking *Booking
	err := c.Store.WithCommerceTx(ctx, func(tx Store) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !b.Attended {
			if err := tx.MarkBookingAttended(ctx, bookingID); err != nil {
				return err
			}
			b.Attended = true
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}
