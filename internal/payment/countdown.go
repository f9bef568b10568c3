package payment

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown counts down once per second and then navigates.  Navigation
// fires at most once, and never if the context ends first.
type Countdown struct {
	clock    clockwork.Clock
	seconds  int
	onTick   func(remaining int)
	navigate func()
	once     sync.Once
}

// NewCountdown builds a countdown of seconds ticks.  onTick may be nil.
func NewCountdown(clock clockwork.Clock, seconds int, onTick func(int), navigate func()) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if onTick == nil {
		onTick = func(int) {}
	}
	return &Countdown{clock: clock, seconds: seconds, onTick: onTick, navigate: navigate}
}

// Run blocks until navigation or until ctx is done, in which case it
// returns ctx.Err().
func (c *Countdown) Run(ctx context.Context) error {
	for remaining := c.seconds; remaining > 0; remaining-- {
		c.onTick(remaining)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(time.Second):
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.once.Do(c.navigate)
	return nil
}
