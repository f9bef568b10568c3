package checkout

import (
	"errors"

	"github.com/iliyamo/cinema-checkout/internal/backend"
)

// Validation errors.  None of them sends a request.
var (
	ErrNotAuthenticated = errors.New("checkout: not authenticated")
	ErrEmptySelection   = errors.New("checkout: no seats selected")
	ErrInvalidShowtime  = errors.New("checkout: malformed showtime id")
	ErrInvalidPrice     = errors.New("checkout: total price is not positive")
	ErrMethodComingSoon = errors.New("checkout: payment method not available yet")
)

var (
	// ErrInProgress is returned when Submit is called while an attempt is
	// running or after the viewer was sent to the provider.
	ErrInProgress = errors.New("checkout: already in progress")
	// ErrNoPaymentURL is returned when the backend answers without a
	// redirect URL.
	ErrNoPaymentURL = errors.New("checkout: payment provider returned no url")
	// ErrNoBookingID is returned when the backend accepts a booking but
	// does not say which one it created.
	ErrNoBookingID = errors.New("checkout: backend returned no booking id")
)

// Validation reports whether err is a local validation failure.
func Validation(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrEmptySelection) ||
		errors.Is(err, ErrInvalidShowtime) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrMethodComingSoon)
}

// Notice is the message shown to the viewer for a failed attempt.
func (r Result) Notice() string {
	if r.Err == nil {
		return ""
	}
	switch {
	case errors.Is(r.Err, ErrNotAuthenticated):
		return "Please sign in to book tickets."
	case errors.Is(r.Err, ErrEmptySelection):
		return "Please select at least one seat."
	case errors.Is(r.Err, ErrInvalidShowtime):
		return "This showtime is not valid."
	case errors.Is(r.Err, ErrInvalidPrice):
		return "The ticket price for this showtime is not valid."
	case errors.Is(r.Err, ErrMethodComingSoon):
		return "This payment method is coming soon. Please pay with MoMo."
	case errors.Is(r.Err, ErrInProgress):
		return "Your booking is already being processed."
	}
	if msg, ok := backend.ServerMessage(r.Err); ok {
		return msg
	}
	if r.State == PaymentInitFailed {
		return "We could not start the payment. Please try again."
	}
	return "We could not create your booking. Please try again."
}
