package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Showtime represents a scheduled screening of a movie in a particular
// room of a theater.  Showtimes are owned by the booking backend and are
// read-only for the gateway; the checkout flow only uses the base seat
// price and the labels shown on the checkout page.
//
// Fields:
//
//	ID          – 24 character hex identifier assigned by the backend.
//	MovieID     – movie reference.
//	MovieTitle  – title shown on the checkout page.
//	TheaterID   – theater reference.
//	TheaterName – theater label.
//	Room        – room/screen label (e.g. "Room 3").
//	StartTime   – when the screening begins.
//	EndTime     – when the screening ends.
//	Price       – base price of one seat.
//	Format      – 2D, 3D, IMAX...
type Showtime struct {
	ID          string          `json:"id"`
	MovieID     string          `json:"movieId"`
	MovieTitle  string          `json:"movieTitle"`
	TheaterID   string          `json:"theaterId"`
	TheaterName string          `json:"theaterName"`
	Room        string          `json:"room"`
	StartTime   time.Time       `json:"startTime"`
	EndTime     time.Time       `json:"endTime"`
	Price       decimal.Decimal `json:"price"`
	Format      string          `json:"format"`
}

// Identity is the authenticated viewer of a checkout page.  It is passed
// explicitly to every component that needs it instead of being read from
// request-global state.  Token is the raw bearer token forwarded to the
// booking backend on behalf of the user.
type Identity struct {
	UserID string
	Token  string
}

// Authenticated reports whether the identity carries a user.
func (i *Identity) Authenticated() bool {
	return i != nil && i.UserID != ""
}
