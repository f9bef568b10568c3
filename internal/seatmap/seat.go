// Package seatmap derives the display state of every seat of a showtime
// from the server-reported bookings and holds and the viewer's own
// selection.  Everything in this package is pure; callers own the inputs.
package seatmap

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidSeat is returned by ParseSeatID for tokens that are not a row
// label followed by a positive seat number.
var ErrInvalidSeat = errors.New("seatmap: invalid seat id")

// SeatID identifies a physical seat within a showtime layout: a row label
// (A, B, ... Z, AA, ...) followed by a 1-based seat number, e.g. "A1".
type SeatID string

// Seat builds the SeatID for a zero-based row index and a 1-based number.
func Seat(row, number int) SeatID {
	return SeatID(rowLabel(row) + strconv.Itoa(number))
}

// ParseSeatID normalizes raw ("a01", " B2 ") into a canonical SeatID.
func ParseSeatID(raw string) (SeatID, error) {
	row, number, ok := split(strings.ToUpper(strings.TrimSpace(raw)))
	if !ok {
		return "", ErrInvalidSeat
	}
	return Seat(row, number), nil
}

// Row returns the zero-based row index of the seat.
func (id SeatID) Row() int {
	row, _, ok := split(string(id))
	if !ok {
		return -1
	}
	return row
}

// Number returns the 1-based seat number within its row.
func (id SeatID) Number() int {
	_, n, ok := split(string(id))
	if !ok {
		return 0
	}
	return n
}

// RowLabel returns the letter part of the seat id.
func (id SeatID) RowLabel() string {
	row := id.Row()
	if row < 0 {
		return ""
	}
	return rowLabel(row)
}

func (id SeatID) String() string { return string(id) }

// split separates "AB12" into row index 27 and number 12.
func split(s string) (row, number int, ok bool) {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return 0, 0, false
	}
	row, ok = rowIndex(s[:i])
	if !ok {
		return 0, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil || n <= 0 {
		return 0, 0, false
	}
	return row, n, true
}

// rowLabel converts a zero-based index to an alphabetical row label like A, B, AA.
func rowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []byte{}
	for {
		res = append(res, byte('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// rowIndex converts a row label like A or AA into its zero-based index.
func rowIndex(label string) (int, bool) {
	if label == "" {
		return -1, false
	}
	n := 0
	for i := 0; i < len(label); i++ {
		ch := label[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}

// Layout describes the seat grid of a room.  The grid is a display
// convention shared by the gateway and the page; the backend does not
// enforce it.
type Layout struct {
	Rows        int
	SeatsPerRow int
}

// DefaultLayout is the reference room: rows A–H with ten seats each.
var DefaultLayout = Layout{Rows: 8, SeatsPerRow: 10}

// Size is the number of seats in the layout.
func (l Layout) Size() int {
	if l.Rows <= 0 || l.SeatsPerRow <= 0 {
		return 0
	}
	return l.Rows * l.SeatsPerRow
}

// Seats lists every seat in row-major order.
func (l Layout) Seats() []SeatID {
	out := make([]SeatID, 0, l.Size())
	for r := 0; r < l.Rows; r++ {
		for n := 1; n <= l.SeatsPerRow; n++ {
			out = append(out, Seat(r, n))
		}
	}
	return out
}

// Contains reports whether id falls inside the grid.
func (l Layout) Contains(id SeatID) bool {
	row, n, ok := split(string(id))
	if !ok {
		return false
	}
	return row < l.Rows && n <= l.SeatsPerRow && Seat(row, n) == id
}
