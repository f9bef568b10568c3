package seatmap

import (
	"cmp"
	"slices"
)

// Set is an unordered collection of seat ids.  The zero value (nil) is a
// valid empty set for reads.
type Set map[SeatID]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...SeatID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id SeatID) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(id SeatID)    { s[id] = struct{}{} }
func (s Set) Remove(id SeatID) { delete(s, id) }
func (s Set) Len() int         { return len(s) }

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same ids.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Sorted lists the ids by row, then by seat number.
func (s Set) Sorted() []SeatID {
	out := make([]SeatID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	SortSeats(out)
	return out
}

// SortSeats orders ids in place by row and number, so A2 precedes A10.
func SortSeats(ids []SeatID) {
	slices.SortFunc(ids, func(a, b SeatID) int {
		if c := cmp.Compare(a.Row(), b.Row()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Number(), b.Number()); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}
