package seatmap

// State is the display state of one seat.
type State string

const (
	Free        State = "free"
	Selected    State = "selected"
	HeldByOther State = "held-by-other"
	Booked      State = "booked"
	// Loading is used before the first snapshot arrives: the seat is
	// shown as free but cannot be picked yet.
	Loading State = "loading"
)

// Resolve returns the state of id.  Priority is booked > selected >
// locked > free: a seat the viewer selected stays selected when the
// server echoes the viewer's own hold back in Locked.
func Resolve(id SeatID, snap *Snapshot, selection Set) State {
	switch {
	case snap == nil:
		return Loading
	case snap.Booked.Has(id):
		return Booked
	case selection.Has(id):
		return Selected
	case snap.Locked.Has(id):
		return HeldByOther
	default:
		return Free
	}
}

// SeatView is one cell of the rendered seat map.
type SeatView struct {
	ID         SeatID `json:"id"`
	Row        string `json:"row"`
	Number     int    `json:"number"`
	State      State  `json:"state"`
	Selectable bool   `json:"selectable"`
}

// View is the full seat map as shown on the checkout page.  Seat counts
// are only filled in while the realtime channel is connected.
type View struct {
	Seats          []SeatView `json:"seats"`
	Selected       []SeatID   `json:"selected"`
	Loading        bool       `json:"loading"`
	Connected      bool       `json:"connected"`
	TotalSeats     int        `json:"totalSeats,omitempty"`
	AvailableSeats int        `json:"availableSeats,omitempty"`
}

// Render resolves every seat of layout.
func Render(layout Layout, snap *Snapshot, selection Set, connected bool) View {
	v := View{
		Seats:     make([]SeatView, 0, layout.Size()),
		Selected:  selection.Sorted(),
		Loading:   snap == nil,
		Connected: connected,
	}
	for _, id := range layout.Seats() {
		st := Resolve(id, snap, selection)
		v.Seats = append(v.Seats, SeatView{
			ID:         id,
			Row:        id.RowLabel(),
			Number:     id.Number(),
			State:      st,
			Selectable: st == Free || st == Selected,
		})
	}
	if snap != nil && connected {
		v.TotalSeats = snap.TotalSeats
		v.AvailableSeats = snap.AvailableSeats
	}
	return v
}
