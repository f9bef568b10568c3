package queue

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-checkout/internal/model"
)

const (
	// BookingCreatedQueue receives an event for every booking made through
	// the gateway.
	BookingCreatedQueue = "booking.created"
	// BookingStatusQueue is fed by the booking backend when a payment
	// confirms or cancels a booking.
	BookingStatusQueue = "booking.status"
)

// BookingCreatedEvent is published right after the backend accepted a
// booking and before the viewer is sent to the payment provider.
type BookingCreatedEvent struct {
	BookingID   string          `json:"booking_id"`
	BookingCode string          `json:"booking_code"`
	UserID      string          `json:"user_id"`
	ShowtimeID  string          `json:"showtime_id"`
	Seats       []string        `json:"seats"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      string          `json:"status"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BookingStatusEvent reports a booking's move to confirmed or cancelled.
type BookingStatusEvent struct {
	BookingID  string              `json:"booking_id"`
	ShowtimeID string              `json:"showtime_id"`
	Status     model.BookingStatus `json:"status"`
	Seats      []string            `json:"seats"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func newBookingCreatedEvent(userID string, b model.Booking, now time.Time) BookingCreatedEvent {
	ev := BookingCreatedEvent{
		BookingID:   b.ID,
		BookingCode: b.BookingCode,
		UserID:      userID,
		ShowtimeID:  b.ShowtimeID,
		Seats:       b.Seats,
		TotalPrice:  b.TotalPrice,
		Status:      string(b.Status),
		CreatedAt:   now.UTC(),
	}
	if !b.ExpiresAt.IsZero() {
		exp := b.ExpiresAt.UTC()
		ev.ExpiresAt = &exp
	}
	return ev
}
