package checkout

import (
	"regexp"

	"github.com/shopspring/decimal"
)

var showtimeIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ValidShowtimeID reports whether id is a 24 character hex identifier.
func ValidShowtimeID(id string) bool { return showtimeIDPattern.MatchString(id) }

// TotalPrice is seatPrice × seats.
func TotalPrice(seatPrice decimal.Decimal, seats int) decimal.Decimal {
	return seatPrice.Mul(decimal.NewFromInt(int64(seats)))
}

// validate checks a request before anything is sent and returns the total
// to charge.
func validate(req Request, enabled func(Method) bool) (decimal.Decimal, error) {
	if !req.Identity.Authenticated() {
		return decimal.Zero, ErrNotAuthenticated
	}
	if !enabled(req.Method) {
		return decimal.Zero, ErrMethodComingSoon
	}
	if len(req.Seats) == 0 {
		return decimal.Zero, ErrEmptySelection
	}
	if !ValidShowtimeID(req.ShowtimeID) {
		return decimal.Zero, ErrInvalidShowtime
	}
	total := TotalPrice(req.SeatPrice, len(req.Seats))
	if !total.IsPositive() {
		return decimal.Zero, ErrInvalidPrice
	}
	return total, nil
}
