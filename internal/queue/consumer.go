// Package queue exchanges booking events with the rest of the platform over
// RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-checkout/internal/model"
)

var errInvalidEvent = errors.New("invalid booking status event")

// Refresher pushes a fresh availability snapshot to a showtime's viewers.
type Refresher interface {
	Refresh(ctx context.Context, showtimeID string) error
}

// Consumer listens on booking.status and refreshes the seat maps of the
// affected showtimes, so seats flip to booked or back to free without a
// reload.
type Consumer struct {
	url     string
	hub     Refresher
	log     *slog.Logger
	onEvent func(model.BookingStatus)
}

// NewConsumer builds a consumer.  onEvent observes every handled event and
// may be nil.
func NewConsumer(url string, hub Refresher, onEvent func(model.BookingStatus), log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	if onEvent == nil {
		onEvent = func(model.BookingStatus) {}
	}
	return &Consumer{url: url, hub: hub, log: log.With("component", "booking-consumer"), onEvent: onEvent}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("dial broker failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended; reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(BookingStatusQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(BookingStatusQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.log.Warn("handle message failed", "err", err)
				// do not requeue; a bad message would loop forever
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev BookingStatusEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ShowtimeID == "" {
		return fmt.Errorf("%w: missing showtime_id", errInvalidEvent)
	}
	switch ev.Status {
	case model.BookingConfirmed, model.BookingCancelled, model.BookingPending:
	default:
		return fmt.Errorf("%w: status %q", errInvalidEvent, ev.Status)
	}
	c.onEvent(ev.Status)
	if err := c.hub.Refresh(ctx, ev.ShowtimeID); err != nil {
		return fmt.Errorf("refresh showtime %s: %w", ev.ShowtimeID, err)
	}
	c.log.Info("booking status applied", "booking_id", ev.BookingID, "showtime_id", ev.ShowtimeID, "status", ev.Status)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
