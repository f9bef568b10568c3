package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-checkout/internal/seatmap"
)

func snapshot(booked, locked []seatmap.SeatID) *seatmap.Snapshot {
	s := seatmap.NewSnapshot(booked, locked, seatmap.DefaultLayout.Size())
	return &s
}

func TestToggleTwiceRestoresSelection(t *testing.T) {
	c := New(seatmap.DefaultLayout, 0)
	snap := snapshot(nil, nil)

	_, _ = c.Toggle("C3", snap)
	before := c.Selection()

	out, cmds := c.Toggle("D4", snap)
	assert.Equal(t, Added, out)
	require.Len(t, cmds, 1)
	assert.Equal(t, PublishSelection{Seats: []seatmap.SeatID{"C3", "D4"}}, cmds[0])

	out, cmds = c.Toggle("D4", snap)
	assert.Equal(t, Removed, out)
	assert.Equal(t, []Command{PublishSelection{Seats: []seatmap.SeatID{"C3"}}}, cmds)
	assert.True(t, before.Equal(c.Selection()))
}

func TestToggleRejectsBookedAndHeld(t *testing.T) {
	c := New(seatmap.DefaultLayout, 0)
	snap := snapshot([]seatmap.SeatID{"A1", "A2"}, []seatmap.SeatID{"B1"})

	out, cmds := c.Toggle("B2", snap)
	assert.Equal(t, Added, out)
	assert.Len(t, cmds, 1)

	out, cmds = c.Toggle("A1", snap)
	assert.Equal(t, RejectedBooked, out)
	assert.Empty(t, cmds)

	out, cmds = c.Toggle("B1", snap)
	assert.Equal(t, RejectedHeld, out)
	assert.Empty(t, cmds)

	assert.Equal(t, []seatmap.SeatID{"B2"}, c.Seats())
}

func TestToggleOwnEchoedHoldDeselects(t *testing.T) {
	c := New(seatmap.DefaultLayout, 0)
	_, _ = c.Toggle("E5", snapshot(nil, nil))

	// the server now reports E5 as locked: the viewer's own hold
	out, cmds := c.Toggle("E5", snapshot(nil, []seatmap.SeatID{"E5"}))
	assert.Equal(t, Removed, out)
	assert.Equal(t, []Command{PublishSelection{Seats: []seatmap.SeatID{}}}, cmds)
	assert.Zero(t, c.Len())
}

func TestToggleWithoutSnapshot(t *testing.T) {
	c := New(seatmap.DefaultLayout, 0)
	out, cmds := c.Toggle("A1", nil)
	assert.Equal(t, RejectedNoData, out)
	assert.Nil(t, cmds)
	assert.Zero(t, c.Len())
}

func TestToggleUnknownSeat(t *testing.T) {
	c := New(seatmap.DefaultLayout, 0)
	out, _ := c.Toggle("Z99", snapshot(nil, nil))
	assert.Equal(t, RejectedSeat, out)
	assert.False(t, out.Changed())
}

func TestToggleCap(t *testing.T) {
	c := New(seatmap.DefaultLayout, 2)
	snap := snapshot(nil, nil)
	_, _ = c.Toggle("A1", snap)
	_, _ = c.Toggle("A2", snap)

	out, cmds := c.Toggle("A3", snap)
	assert.Equal(t, RejectedLimit, out)
	assert.Nil(t, cmds)

	// removing is always allowed
	out, _ = c.Toggle("A2", snap)
	assert.Equal(t, Removed, out)
}

func TestClear(t *testing.T) {
	c := New(seatmap.DefaultLayout, 0)
	assert.Nil(t, c.Clear())

	_, _ = c.Toggle("F6", snapshot(nil, nil))
	cmds := c.Clear()
	assert.Equal(t, []Command{PublishSelection{Seats: []seatmap.SeatID{}}}, cmds)
	assert.Zero(t, c.Len())
}

func TestDrop(t *testing.T) {
	c := New(seatmap.DefaultLayout, 0)
	snap := snapshot(nil, nil)
	_, _ = c.Toggle("C1", snap)
	_, _ = c.Toggle("C2", snap)

	assert.Nil(t, c.Drop("D1"))
	cmds := c.Drop("C1", "D1")
	assert.Equal(t, []Command{PublishSelection{Seats: []seatmap.SeatID{"C2"}}}, cmds)
	assert.Equal(t, []seatmap.SeatID{"C2"}, c.Seats())
}
