// Package jobs holds the gateway's periodic background work.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Purger deletes records older than a cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention prunes checkout attempts past their keep window.
type Retention struct {
	purger Purger
	keep   time.Duration
	clock  clockwork.Clock
	log    *slog.Logger
}

func NewRetention(p Purger, keep time.Duration, clock clockwork.Clock, log *slog.Logger) *Retention {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retention{purger: p, keep: keep, clock: clock, log: log}
}

// Purge runs one pass and returns the number of deleted rows.
func (r *Retention) Purge(ctx context.Context) (int64, error) {
	cutoff := r.clock.Now().Add(-r.keep)
	n, err := r.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		r.log.Error("purge checkout attempts", "cutoff", cutoff, "err", err)
		return 0, err
	}
	if n > 0 {
		r.log.Info("purged checkout attempts", "rows", n, "cutoff", cutoff)
	}
	return n, nil
}

// Start schedules Purge every interval and returns the running scheduler.
// The caller owns Shutdown.
func (r *Retention) Start(ctx context.Context, every time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithClock(r.clock),
		gocron.WithLogger(r.log),
	)
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			_, _ = r.Purge(jobCtx)
		}),
		gocron.WithName("checkout-attempt-retention"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	s.Start()
	return s, nil
}
