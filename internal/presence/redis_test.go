package presence

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-checkout/internal/seatmap"
)

func (r *recorder) snapCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) connectivity() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.connected...)
}

func newMiniHub(t *testing.T) (*RedisHub, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	hub := NewRedisHub(rdb, NewLockStore(rdb, time.Minute, ""), fakeSeats{booked: []string{"A1"}},
		seatmap.DefaultLayout, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return hub, mr, rdb
}

func publishSnapshot(t *testing.T, rdb *redis.Client, showtimeID string, snap seatmap.Snapshot) {
	t.Helper()
	payload, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, rdb.Publish(context.Background(), topic(showtimeID), payload).Err())
}

func TestRedisSubscribeConnectsWithSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub, _, _ := newMiniHub(t)

	var rec recorder
	unsubscribe, err := hub.Channel("s1").Subscribe(ctx, rec.onSnapshot, rec.onConnectivity)
	require.NoError(t, err)
	defer unsubscribe()

	assert.Equal(t, []bool{true}, rec.connectivity())
	require.Equal(t, 1, rec.snapCount())
	assert.True(t, rec.last().Booked.Equal(seatmap.NewSet("A1")))
	assert.Zero(t, rec.last().Locked.Len())
}

func TestRedisSnapshotReplacesPrevious(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub, _, rdb := newMiniHub(t)

	var rec recorder
	unsubscribe, err := hub.Channel("s1").Subscribe(ctx, rec.onSnapshot, rec.onConnectivity)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, hub.Channel("s1").Publish(ctx, "u2", []seatmap.SeatID{"B1", "B2"}))
	require.Eventually(t, func() bool { return rec.last().Locked.Equal(seatmap.NewSet("B1", "B2")) },
		2*time.Second, 10*time.Millisecond)

	publishSnapshot(t, rdb, "s1", seatmap.NewSnapshot([]seatmap.SeatID{"C1"}, nil, 80))
	require.Eventually(t, func() bool { return rec.last().Booked.Equal(seatmap.NewSet("C1")) },
		2*time.Second, 10*time.Millisecond)

	last := rec.last()
	assert.Zero(t, last.Locked.Len())
	assert.False(t, last.Booked.Has("A1"))
	assert.Equal(t, 79, last.AvailableSeats)
}

func TestRedisMalformedPayloadIsSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub, _, rdb := newMiniHub(t)

	var rec recorder
	unsubscribe, err := hub.Channel("s1").Subscribe(ctx, rec.onSnapshot, rec.onConnectivity)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, rdb.Publish(ctx, topic("s1"), "not a snapshot").Err())
	publishSnapshot(t, rdb, "s1", seatmap.NewSnapshot([]seatmap.SeatID{"D4"}, nil, 80))
	require.Eventually(t, func() bool { return rec.snapCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	assert.True(t, rec.last().Booked.Equal(seatmap.NewSet("D4")))
	assert.Equal(t, []bool{true}, rec.connectivity())
}

func TestRedisUnsubscribeStopsDelivery(t *testing.T) {
	hub, mr, rdb := newMiniHub(t)

	var rec recorder
	unsubscribe, err := hub.Channel("s1").Subscribe(context.Background(), rec.onSnapshot, rec.onConnectivity)
	require.NoError(t, err)
	require.Equal(t, 1, rec.snapCount())

	unsubscribe()
	require.Eventually(t, func() bool { return mr.PubSubNumSub(topic("s1"))[topic("s1")] == 0 },
		2*time.Second, 10*time.Millisecond)

	publishSnapshot(t, rdb, "s1", seatmap.NewSnapshot(nil, nil, 80))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.snapCount())
}

func TestRedisConnectivityLostOnFailedPing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub, mr, _ := newMiniHub(t)

	var rec recorder
	unsubscribe, err := hub.Channel("s1").Subscribe(ctx, rec.onSnapshot, rec.onConnectivity)
	require.NoError(t, err)
	defer unsubscribe()

	mr.Close()
	require.Eventually(t, func() bool {
		c := rec.connectivity()
		return len(c) >= 2 && !c[len(c)-1]
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, rec.connectivity()[0])
}
