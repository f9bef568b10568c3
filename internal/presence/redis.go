package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-checkout/internal/seatmap"
)

// RedisHub publishes snapshots on the pub/sub topic "showtime:<id>" so
// every gateway node serving a showtime fans them out to its viewers.
type RedisHub struct {
	rdb       *redis.Client
	locks     *LockStore
	build     builder
	pingEvery time.Duration
	log       *slog.Logger
}

// NewRedisHub returns a hub backed by rdb.  pingEvery controls how often a
// subscriber re-checks the connection to report connectivity.
func NewRedisHub(rdb *redis.Client, locks *LockStore, seats SeatSource, layout seatmap.Layout, pingEvery time.Duration, log *slog.Logger) *RedisHub {
	if pingEvery <= 0 {
		pingEvery = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisHub{
		rdb:       rdb,
		locks:     locks,
		build:     builder{seats: seats, layout: layout},
		pingEvery: pingEvery,
		log:       log,
	}
}

func topic(showtimeID string) string { return "showtime:" + showtimeID }

func (h *RedisHub) Channel(showtimeID string) Channel {
	return &redisChannel{hub: h, showtimeID: showtimeID}
}

func (h *RedisHub) Snapshot(ctx context.Context, showtimeID string) (seatmap.Snapshot, error) {
	locked, err := h.locks.Locked(ctx, showtimeID)
	if err != nil {
		return seatmap.Snapshot{}, err
	}
	return h.build.build(ctx, showtimeID, locked)
}

func (h *RedisHub) Refresh(ctx context.Context, showtimeID string) error {
	snap, err := h.Snapshot(ctx, showtimeID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := h.rdb.Publish(ctx, topic(showtimeID), payload).Err(); err != nil {
		return fmt.Errorf("presence: publish snapshot: %w", err)
	}
	return nil
}

type redisChannel struct {
	hub        *RedisHub
	showtimeID string
}

func (c *redisChannel) Publish(ctx context.Context, userID string, seats []seatmap.SeatID) error {
	if err := c.hub.locks.Set(ctx, c.showtimeID, userID, seats); err != nil {
		return err
	}
	return c.hub.Refresh(ctx, c.showtimeID)
}

func (c *redisChannel) BookingCreated(ctx context.Context, userID string) error {
	if err := c.hub.locks.Release(ctx, c.showtimeID, userID); err != nil {
		return err
	}
	return c.hub.Refresh(ctx, c.showtimeID)
}

func (c *redisChannel) Subscribe(ctx context.Context, onSnapshot func(seatmap.Snapshot), onConnectivity func(bool)) (func(), error) {
	sctx, cancel := context.WithCancel(ctx)
	ps := c.hub.rdb.Subscribe(sctx, topic(c.showtimeID))
	if _, err := ps.Receive(sctx); err != nil {
		_ = ps.Close()
		cancel()
		return nil, fmt.Errorf("presence: subscribe: %w", err)
	}
	onConnectivity(true)

	if snap, err := c.hub.Snapshot(sctx, c.showtimeID); err == nil {
		onSnapshot(snap)
	} else {
		c.hub.log.WarnContext(ctx, "initial snapshot failed", slog.String("showtime_id", c.showtimeID), slog.String("error", err.Error()))
	}

	go c.listen(sctx, ps, onSnapshot, onConnectivity)
	return cancel, nil
}

func (c *redisChannel) listen(ctx context.Context, ps *redis.PubSub, onSnapshot func(seatmap.Snapshot), onConnectivity func(bool)) {
	defer ps.Close()
	ticker := time.NewTicker(c.hub.pingEvery)
	defer ticker.Stop()

	connected := true
	set := func(v bool) {
		if v != connected {
			connected = v
			onConnectivity(v)
		}
	}

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				set(false)
				return
			}
			var snap seatmap.Snapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				c.hub.log.Warn("dropping malformed snapshot", slog.String("showtime_id", c.showtimeID), slog.String("error", err.Error()))
				continue
			}
			set(true)
			onSnapshot(snap)
		case <-ticker.C:
			set(c.hub.rdb.Ping(ctx).Err() == nil)
		}
	}
}
