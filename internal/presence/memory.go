package presence

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/cinema-checkout/internal/seatmap"
)

type memoryHold struct {
	seats   seatmap.Set
	expires time.Time
}

type memorySub struct {
	onSnapshot func(seatmap.Snapshot)
}

// MemoryHub is an in-process Hub.  It only shares holds between viewers
// connected to the same gateway process.
type MemoryHub struct {
	build builder
	ttl   time.Duration
	now   func() time.Time

	mu     sync.Mutex
	holds  map[string]map[string]memoryHold
	subs   map[string]map[int]memorySub
	nextID int
}

// NewMemoryHub returns a hub whose holds expire after ttl.
func NewMemoryHub(seats SeatSource, layout seatmap.Layout, ttl time.Duration) *MemoryHub {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryHub{
		build: builder{seats: seats, layout: layout},
		ttl:   ttl,
		now:   time.Now,
		holds: map[string]map[string]memoryHold{},
		subs:  map[string]map[int]memorySub{},
	}
}

func (h *MemoryHub) Channel(showtimeID string) Channel {
	return &memoryChannel{hub: h, showtimeID: showtimeID}
}

func (h *MemoryHub) locked(showtimeID string) []seatmap.SeatID {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	out := seatmap.Set{}
	for user, hold := range h.holds[showtimeID] {
		if !hold.expires.After(now) {
			delete(h.holds[showtimeID], user)
			continue
		}
		for id := range hold.seats {
			out.Add(id)
		}
	}
	return out.Sorted()
}

func (h *MemoryHub) Snapshot(ctx context.Context, showtimeID string) (seatmap.Snapshot, error) {
	return h.build.build(ctx, showtimeID, h.locked(showtimeID))
}

func (h *MemoryHub) Refresh(ctx context.Context, showtimeID string) error {
	snap, err := h.Snapshot(ctx, showtimeID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	subs := make([]memorySub, 0, len(h.subs[showtimeID]))
	for _, s := range h.subs[showtimeID] {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.onSnapshot(snap)
	}
	return nil
}

func (h *MemoryHub) setHolds(showtimeID, userID string, seats []seatmap.SeatID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(seats) == 0 {
		delete(h.holds[showtimeID], userID)
		return
	}
	if h.holds[showtimeID] == nil {
		h.holds[showtimeID] = map[string]memoryHold{}
	}
	h.holds[showtimeID][userID] = memoryHold{seats: seatmap.NewSet(seats...), expires: h.now().Add(h.ttl)}
}

type memoryChannel struct {
	hub        *MemoryHub
	showtimeID string
}

func (c *memoryChannel) Publish(ctx context.Context, userID string, seats []seatmap.SeatID) error {
	c.hub.setHolds(c.showtimeID, userID, seats)
	return c.hub.Refresh(ctx, c.showtimeID)
}

func (c *memoryChannel) BookingCreated(ctx context.Context, userID string) error {
	c.hub.setHolds(c.showtimeID, userID, nil)
	return c.hub.Refresh(ctx, c.showtimeID)
}

func (c *memoryChannel) Subscribe(ctx context.Context, onSnapshot func(seatmap.Snapshot), onConnectivity func(bool)) (func(), error) {
	h := c.hub
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[c.showtimeID] == nil {
		h.subs[c.showtimeID] = map[int]memorySub{}
	}
	h.subs[c.showtimeID][id] = memorySub{onSnapshot: onSnapshot}
	h.mu.Unlock()

	onConnectivity(true)
	if snap, err := h.Snapshot(ctx, c.showtimeID); err == nil {
		onSnapshot(snap)
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[c.showtimeID], id)
			h.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return unsubscribe, nil
}
