package seatmap

import "encoding/json"

// Snapshot is the server-reported availability of one showtime.  Booked
// seats are final (paid or pending payment); locked seats are transient
// holds by any viewer, possibly including the local user.  A snapshot is
// always replaced as a whole, never merged with a previous one.
type Snapshot struct {
	Booked         Set
	Locked         Set
	TotalSeats     int
	AvailableSeats int
}

// NewSnapshot builds a snapshot and derives the number of available seats.
func NewSnapshot(booked, locked []SeatID, total int) Snapshot {
	s := Snapshot{
		Booked:     NewSet(booked...),
		Locked:     NewSet(locked...),
		TotalSeats: total,
	}
	taken := s.Booked.Clone()
	for id := range s.Locked {
		taken.Add(id)
	}
	s.AvailableSeats = max(total-taken.Len(), 0)
	return s
}

type snapshotWire struct {
	BookedSeats    []SeatID `json:"bookedSeats"`
	LockedSeats    []SeatID `json:"lockedSeats"`
	TotalSeats     int      `json:"totalSeats"`
	AvailableSeats int      `json:"availableSeats"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotWire{
		BookedSeats:    s.Booked.Sorted(),
		LockedSeats:    s.Locked.Sorted(),
		TotalSeats:     s.TotalSeats,
		AvailableSeats: s.AvailableSeats,
	})
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var w snapshotWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = Snapshot{
		Booked:         NewSet(w.BookedSeats...),
		Locked:         NewSet(w.LockedSeats...),
		TotalSeats:     w.TotalSeats,
		AvailableSeats: w.AvailableSeats,
	}
	return nil
}
