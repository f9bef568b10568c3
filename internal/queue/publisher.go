package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-checkout/internal/model"
)

const (
	defaultDialTimeout    = 2 * time.Second
	defaultPublishTimeout = 10 * time.Second
)

// Publisher sends gateway events to RabbitMQ.  It dials per publish; the
// volume is one message per booking.
type Publisher struct {
	url            string
	log            *slog.Logger
	now            func() time.Time
	dialTimeout    time.Duration
	publishTimeout time.Duration

	inflight sync.WaitGroup
}

func NewPublisher(url string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		url:            url,
		log:            log.With("component", "publisher"),
		now:            time.Now,
		dialTimeout:    defaultDialTimeout,
		publishTimeout: defaultPublishTimeout,
	}
}

// BookingCreated queues a BookingCreatedEvent for the viewer's new booking
// and returns at once, so a slow or absent broker never delays the payment
// redirect.  Failures are logged.
func (p *Publisher) BookingCreated(ctx context.Context, id *model.Identity, b model.Booking) error {
	userID := ""
	if id != nil {
		userID = id.UserID
	}
	ev := newBookingCreatedEvent(userID, b, p.now())
	ctx = context.WithoutCancel(ctx)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		_ = p.PublishBookingCreated(ctx, ev)
	}()
	return nil
}

// Wait blocks until every queued event has been published or given up on.
func (p *Publisher) Wait() { p.inflight.Wait() }

// PublishBookingCreated publishes ev on the booking.created queue as a
// persistent message.
func (p *Publisher) PublishBookingCreated(ctx context.Context, ev BookingCreatedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.publish(ctx, BookingCreatedQueue, body); err != nil {
		p.log.Warn("publish booking created", "booking_id", ev.BookingID, "err", err)
		return err
	}
	p.log.Debug("booking created published", "booking_id", ev.BookingID)
	return nil
}

func (p *Publisher) publish(ctx context.Context, queue string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
}
