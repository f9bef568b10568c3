package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-checkout/internal/seatmap"
)

// LockStore keeps seat holds in Redis.  Each viewer's holds live in one
// set per showtime that expires after the hold TTL unless it is written
// again; a holder index per showtime lists the viewers to look at.
//
// Keys:
//
//	<prefix>:<showtime>:holders      set of user ids
//	<prefix>:<showtime>:user:<user>  set of seat ids, TTL = hold TTL
type LockStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewLockStore returns a store whose holds expire after ttl.
func NewLockStore(rdb *redis.Client, ttl time.Duration, prefix string) *LockStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if prefix == "" {
		prefix = "seatlock"
	}
	return &LockStore{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (s *LockStore) holdersKey(showtimeID string) string {
	return fmt.Sprintf("%s:%s:holders", s.prefix, showtimeID)
}

func (s *LockStore) userKey(showtimeID, userID string) string {
	return fmt.Sprintf("%s:%s:user:%s", s.prefix, showtimeID, userID)
}

// Set replaces the holds of userID with seats in one transaction.
func (s *LockStore) Set(ctx context.Context, showtimeID, userID string, seats []seatmap.SeatID) error {
	hk, uk := s.holdersKey(showtimeID), s.userKey(showtimeID, userID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, uk)
		if len(seats) == 0 {
			pipe.SRem(ctx, hk, userID)
			return nil
		}
		members := make([]interface{}, 0, len(seats))
		for _, id := range seats {
			members = append(members, string(id))
		}
		pipe.SAdd(ctx, uk, members...)
		pipe.Expire(ctx, uk, s.ttl)
		pipe.SAdd(ctx, hk, userID)
		pipe.Expire(ctx, hk, 2*s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence: set holds: %w", err)
	}
	return nil
}

// Release removes every hold of userID.
func (s *LockStore) Release(ctx context.Context, showtimeID, userID string) error {
	return s.Set(ctx, showtimeID, userID, nil)
}

// Locked returns every held seat of the showtime.  Holders whose set has
// expired are pruned from the index on the way.
func (s *LockStore) Locked(ctx context.Context, showtimeID string) ([]seatmap.SeatID, error) {
	hk := s.holdersKey(showtimeID)
	users, err := s.rdb.SMembers(ctx, hk).Result()
	if err != nil {
		return nil, fmt.Errorf("presence: list holders: %w", err)
	}
	locked := seatmap.Set{}
	for _, u := range users {
		seats, err := s.rdb.SMembers(ctx, s.userKey(showtimeID, u)).Result()
		if err != nil {
			return nil, fmt.Errorf("presence: list holds: %w", err)
		}
		if len(seats) == 0 {
			_ = s.rdb.SRem(ctx, hk, u).Err()
			continue
		}
		for _, raw := range seats {
			locked.Add(seatmap.SeatID(raw))
		}
	}
	return locked.Sorted(), nil
}
