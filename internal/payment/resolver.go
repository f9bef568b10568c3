package payment

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/iliyamo/cinema-checkout/internal/backend"
	"github.com/iliyamo/cinema-checkout/internal/model"
)

// BookingFetcher reads a booking's persisted status.
type BookingFetcher interface {
	FetchBooking(ctx context.Context, token, id string) (model.Booking, error)
}

// Resolution is the final outcome plus where the viewer goes next.
type Resolution struct {
	Outcome     Outcome        `json:"outcome"`
	BookingID   string         `json:"bookingId,omitempty"`
	Booking     *model.Booking `json:"booking,omitempty"`
	Reasons     []string       `json:"reasons,omitempty"`
	Destination string         `json:"destination"`
	Countdown   int            `json:"countdown"`
}

// Options configures where and when a resolved page navigates.
type Options struct {
	SuccessPath  string
	SuccessAfter time.Duration
	FailurePath  string
	FailureAfter time.Duration
}

// DefaultOptions sends successful payments to the ticket list after five
// seconds and failures home after ten.
var DefaultOptions = Options{
	SuccessPath:  "/my-tickets",
	SuccessAfter: 5 * time.Second,
	FailurePath:  "/",
	FailureAfter: 10 * time.Second,
}

const (
	reasonPending   = "The payment was not completed in time. Your seats have been released."
	reasonCancelled = "The booking was cancelled."
	reasonNotFound  = "We could not find this booking."
	reasonLookup    = "We could not confirm the payment status. Please check your tickets."
)

type Resolver struct {
	bookings BookingFetcher
	opts     Options
	log      *slog.Logger
}

func NewResolver(bookings BookingFetcher, opts Options, log *slog.Logger) *Resolver {
	if opts.SuccessPath == "" {
		opts.SuccessPath = DefaultOptions.SuccessPath
	}
	if opts.SuccessAfter <= 0 {
		opts.SuccessAfter = DefaultOptions.SuccessAfter
	}
	if opts.FailurePath == "" {
		opts.FailurePath = DefaultOptions.FailurePath
	}
	if opts.FailureAfter <= 0 {
		opts.FailureAfter = DefaultOptions.FailureAfter
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{bookings: bookings, opts: opts, log: log.With("component", "payment")}
}

// Resolve classifies the return and, when the URL is not conclusive, asks
// the backend for the booking's status.
func (r *Resolver) Resolve(ctx context.Context, id *model.Identity, q url.Values) Resolution {
	c := Classify(q)
	res := Resolution{Outcome: c.Outcome, BookingID: c.BookingID, Reasons: c.Reasons}

	if c.Outcome == Indeterminate {
		r.fromBooking(ctx, id, &res)
	}

	if res.Outcome == Success {
		res.Destination = r.opts.SuccessPath
		res.Countdown = seconds(r.opts.SuccessAfter)
	} else {
		res.Destination = r.opts.FailurePath
		res.Countdown = seconds(r.opts.FailureAfter)
	}
	r.log.Info("payment resolved", "booking_id", res.BookingID, "classified", c.Outcome, "outcome", res.Outcome)
	return res
}

func (r *Resolver) fromBooking(ctx context.Context, id *model.Identity, res *Resolution) {
	token := ""
	if id != nil {
		token = id.Token
	}
	b, err := r.bookings.FetchBooking(ctx, token, res.BookingID)
	if err != nil {
		r.log.Warn("fetch booking for payment result", "booking_id", res.BookingID, "err", err)
		res.Outcome = Failure
		switch {
		case errors.Is(err, backend.ErrNotFound):
			res.Reasons = append(res.Reasons, reasonNotFound)
		default:
			if msg, ok := backend.ServerMessage(err); ok {
				res.Reasons = append(res.Reasons, msg)
			} else {
				res.Reasons = append(res.Reasons, reasonLookup)
			}
		}
		return
	}
	res.Booking = &b
	switch b.Status {
	case model.BookingConfirmed:
		res.Outcome = Success
		res.Reasons = nil
	case model.BookingCancelled:
		res.Outcome = Failure
		res.Reasons = append(res.Reasons, reasonCancelled)
	default:
		res.Outcome = Failure
		res.Reasons = append(res.Reasons, reasonPending)
	}
}

func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
