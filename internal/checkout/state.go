package checkout

import "errors"

// State is a step of one checkout attempt.
type State string

const (
	Idle                  State = "idle"
	Validating            State = "validating"
	CreatingBooking       State = "creating_booking"
	InitiatingPayment     State = "initiating_payment"
	RedirectingToProvider State = "redirecting_to_provider"

	// exits; each one returns to Idle
	ValidationFailed  State = "validation_failed"
	BookingFailed     State = "booking_failed"
	PaymentInitFailed State = "payment_init_failed"
)

// ErrInvalidTransition is returned when a step is attempted out of order.
var ErrInvalidTransition = errors.New("checkout: invalid state transition")

// transition is a single allowed edge of the checkout state machine.
type transition struct {
	From State
	To   State
}

var transitionsTable = []transition{
	// happy path
	{From: Idle, To: Validating},
	{From: Validating, To: CreatingBooking},
	{From: CreatingBooking, To: InitiatingPayment},
	{From: InitiatingPayment, To: RedirectingToProvider},

	// failures
	{From: Validating, To: ValidationFailed},
	{From: CreatingBooking, To: BookingFailed},
	// the booking exists (pending) when this exit is taken; the backend expires it
	{From: CreatingBooking, To: PaymentInitFailed},
	{From: InitiatingPayment, To: PaymentInitFailed},

	// recovery
	{From: ValidationFailed, To: Idle},
	{From: BookingFailed, To: Idle},
	{From: PaymentInitFailed, To: Idle},
}

func allowed(from, to State) bool {
	for _, t := range transitionsTable {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// Failed reports whether s is one of the failure exits.
func (s State) Failed() bool {
	return s == ValidationFailed || s == BookingFailed || s == PaymentInitFailed
}
