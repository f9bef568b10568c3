// Package selection owns the seats a viewer has picked on the checkout
// page.  The controller never talks to the network: it returns commands
// that the caller executes, so the effect of a sequence of clicks can be
// asserted directly.
package selection

import "github.com/iliyamo/cinema-checkout/internal/seatmap"

// Outcome describes what a toggle did.
type Outcome string

const (
	Added          Outcome = "added"
	Removed        Outcome = "removed"
	RejectedBooked Outcome = "rejected_booked"
	RejectedHeld   Outcome = "rejected_held"
	RejectedLimit  Outcome = "rejected_limit"
	RejectedNoData Outcome = "rejected_loading"
	RejectedSeat   Outcome = "rejected_unknown_seat"
)

// Changed reports whether the selection was modified.
func (o Outcome) Changed() bool { return o == Added || o == Removed }

// Command is an effect requested by the controller.
type Command interface{ command() }

// PublishSelection asks for the full selection to be broadcast to the
// other viewers of the showtime.  An empty Seats releases every hold.
type PublishSelection struct {
	Seats []seatmap.SeatID
}

func (PublishSelection) command() {}

// Controller holds LocalSelection for one checkout page visit.  It is not
// safe for concurrent use; the session loop is its only caller.
type Controller struct {
	layout   seatmap.Layout
	maxSeats int
	selected seatmap.Set
}

// New returns an empty controller.  maxSeats <= 0 disables the cap.
func New(layout seatmap.Layout, maxSeats int) *Controller {
	return &Controller{
		layout:   layout,
		maxSeats: maxSeats,
		selected: seatmap.Set{},
	}
}

// Toggle adds id to the selection or removes it.  Seats that are booked
// or held by someone else, seats outside the layout and any seat while no
// snapshot has arrived are rejected without commands.
func (c *Controller) Toggle(id seatmap.SeatID, snap *seatmap.Snapshot) (Outcome, []Command) {
	if !c.layout.Contains(id) {
		return RejectedSeat, nil
	}
	switch seatmap.Resolve(id, snap, c.selected) {
	case seatmap.Loading:
		return RejectedNoData, nil
	case seatmap.Booked:
		return RejectedBooked, nil
	case seatmap.HeldByOther:
		return RejectedHeld, nil
	case seatmap.Selected:
		c.selected.Remove(id)
		return Removed, c.publish()
	}
	if c.maxSeats > 0 && c.selected.Len() >= c.maxSeats {
		return RejectedLimit, nil
	}
	c.selected.Add(id)
	return Added, c.publish()
}

// Clear empties the selection.  A release is only published when there
// was something to release.
func (c *Controller) Clear() []Command {
	if c.selected.Len() == 0 {
		return nil
	}
	c.selected = seatmap.Set{}
	return c.publish()
}

// Drop removes ids that are selected, e.g. seats another viewer booked in
// the meantime.  Commands are only returned when something was removed.
func (c *Controller) Drop(ids ...seatmap.SeatID) []Command {
	removed := false
	for _, id := range ids {
		if c.selected.Has(id) {
			c.selected.Remove(id)
			removed = true
		}
	}
	if !removed {
		return nil
	}
	return c.publish()
}

// Seats returns the selection in seat order.
func (c *Controller) Seats() []seatmap.SeatID { return c.selected.Sorted() }

// Selection returns a copy of the selection.
func (c *Controller) Selection() seatmap.Set { return c.selected.Clone() }

// Len is the number of selected seats.
func (c *Controller) Len() int { return c.selected.Len() }

func (c *Controller) publish() []Command {
	return []Command{PublishSelection{Seats: c.selected.Sorted()}}
}
