package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking on the backend.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking records a user's reservation of seats for one showtime.  It is
// created by the backend when a checkout is submitted, moves to confirmed
// when the payment provider reports success and to cancelled on failure or
// timeout.  The gateway only reads it.
//
// Fields:
//
//	ID          – backend identifier.
//	ShowtimeID  – showtime the seats belong to.
//	Seats       – seat ids (e.g. "A1").
//	TotalPrice  – price computed by the backend; authoritative.
//	Status      – pending, confirmed or cancelled.
//	BookingCode – short code printed on the ticket.
//	ExpiresAt   – when a pending booking is released by the backend.
type Booking struct {
	ID          string          `json:"id"`
	ShowtimeID  string          `json:"showtimeId"`
	Seats       []string        `json:"seats"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Status      BookingStatus   `json:"status"`
	BookingCode string          `json:"bookingCode"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}

// PaymentSession is the provider redirect issued for a booking.  It only
// lives for the duration of one redirect round-trip.
type PaymentSession struct {
	BookingID     string `json:"bookingId"`
	PayURL        string `json:"payUrl"`
	TransactionID string `json:"transactionId"`
}
