// Package presence shares seat holds between the viewers of a showtime.
// A viewer publishes its full selection; every subscriber of the showtime
// receives a complete availability snapshot whenever anything changes.
// Two transports are provided: Redis pub/sub for multi-node deployments and
// an in-process hub for a single node and for tests.
package presence

import (
	"context"

	"github.com/iliyamo/cinema-checkout/internal/backend"
	"github.com/iliyamo/cinema-checkout/internal/seatmap"
)

// Hub hands out per-showtime channels.
type Hub interface {
	Channel(showtimeID string) Channel
	// Snapshot builds the current availability of a showtime.
	Snapshot(ctx context.Context, showtimeID string) (seatmap.Snapshot, error)
	// Refresh rebuilds the snapshot and pushes it to every subscriber,
	// e.g. after the backend confirmed or cancelled a booking.
	Refresh(ctx context.Context, showtimeID string) error
}

// Channel is the realtime channel of one showtime.
type Channel interface {
	// Publish replaces userID's holds with seats.  An empty list releases them.
	Publish(ctx context.Context, userID string, seats []seatmap.SeatID) error
	// BookingCreated drops userID's holds after its seats moved into a
	// booking, so other viewers stop seeing them as held.
	BookingCreated(ctx context.Context, userID string) error
	// Subscribe delivers snapshots and connectivity changes until the
	// returned function is called or ctx ends.  Every snapshot is complete
	// and supersedes the previous one.
	Subscribe(ctx context.Context, onSnapshot func(seatmap.Snapshot), onConnectivity func(bool)) (unsubscribe func(), err error)
}

// SeatSource reports the booked seats of a showtime.
type SeatSource interface {
	SeatStatus(ctx context.Context, showtimeID string) (backend.SeatStatus, error)
}

// builder combines backend bookings with the current holds.
type builder struct {
	seats  SeatSource
	layout seatmap.Layout
}

func (b builder) build(ctx context.Context, showtimeID string, locked []seatmap.SeatID) (seatmap.Snapshot, error) {
	st, err := b.seats.SeatStatus(ctx, showtimeID)
	if err != nil {
		return seatmap.Snapshot{}, err
	}
	booked := make([]seatmap.SeatID, 0, len(st.BookedSeats))
	for _, raw := range st.BookedSeats {
		if id, err := seatmap.ParseSeatID(raw); err == nil {
			booked = append(booked, id)
		}
	}
	total := st.TotalSeats
	if total <= 0 {
		total = b.layout.Size()
	}
	return seatmap.NewSnapshot(booked, locked, total), nil
}
