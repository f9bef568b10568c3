package backend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-checkout/internal/model"
)

// ShowtimeFetcher loads showtime records.
type ShowtimeFetcher interface {
	FetchShowtime(ctx context.Context, id string) (model.Showtime, error)
}

// CachedShowtimes is a read-through Redis cache in front of a
// ShowtimeFetcher.  Redis failures never fail a request: the cache is
// skipped and the backend is asked directly.  A nil client disables it.
type CachedShowtimes struct {
	next   ShowtimeFetcher
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

// NewCachedShowtimes wraps next.  ttl <= 0 falls back to one minute.
func NewCachedShowtimes(next ShowtimeFetcher, rdb *redis.Client, ttl time.Duration, prefix string, log *slog.Logger) *CachedShowtimes {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if prefix == "" {
		prefix = "cache"
	}
	return &CachedShowtimes{next: next, rdb: rdb, ttl: ttl, prefix: prefix, log: log}
}

func (c *CachedShowtimes) key(id string) string { return c.prefix + ":showtime:" + id }

func (c *CachedShowtimes) FetchShowtime(ctx context.Context, id string) (model.Showtime, error) {
	if c.rdb == nil {
		return c.next.FetchShowtime(ctx, id)
	}
	key := c.key(id)
	bs, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var st model.Showtime
		if jsonErr := json.Unmarshal(bs, &st); jsonErr == nil {
			return st, nil
		}
	case !errors.Is(err, redis.Nil):
		c.log.WarnContext(ctx, "showtime cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	st, err := c.next.FetchShowtime(ctx, id)
	if err != nil {
		return st, err
	}
	if payload, err := json.Marshal(st); err == nil {
		if err := c.rdb.SetEx(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.WarnContext(ctx, "showtime cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return st, nil
}
