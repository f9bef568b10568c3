// Package checkout turns a confirmed seat selection into a booking and a
// payment redirect.  One Orchestrator serves one checkout page; it walks a
// small state machine and never lets two submissions overlap.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-checkout/internal/backend"
	"github.com/iliyamo/cinema-checkout/internal/model"
	"github.com/iliyamo/cinema-checkout/internal/seatmap"
)

// BookingAPI creates bookings on behalf of a user.
type BookingAPI interface {
	CreateBooking(ctx context.Context, token string, req backend.BookingRequest) (model.Booking, error)
}

// Notifier is told about a created booking before the viewer leaves the page.
type Notifier interface {
	BookingCreated(ctx context.Context, id *model.Identity, booking model.Booking) error
}

// Notifiers fans a notification out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) BookingCreated(ctx context.Context, id *model.Identity, booking model.Booking) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.BookingCreated(ctx, id, booking); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Navigator sends the viewer's browser to another page.
type Navigator interface {
	Redirect(ctx context.Context, url string) error
}

// Loader shows a busy indicator while a step runs.  The returned function
// clears it and is always called, whatever the outcome.
type Loader interface {
	Begin(step State) (done func())
}

// Attempt is the audit record of one submission.
type Attempt struct {
	ID         string
	UserID     string
	ShowtimeID string
	Seats      []string
	Method     Method
	Total      decimal.Decimal
	State      State
	BookingID  string
	Error      string
	CreatedAt  time.Time
}

// Recorder stores attempts.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// Request is one press of the pay button.
type Request struct {
	Identity   *model.Identity
	ShowtimeID string
	Seats      []seatmap.SeatID
	SeatPrice  decimal.Decimal
	Method     Method
}

// Result is where a submission ended.  State is RedirectingToProvider on
// success and one of the failure exits otherwise.
type Result struct {
	State   State
	Total   decimal.Decimal
	Booking *model.Booking
	Payment *model.PaymentSession
	Err     error
}

// OK reports whether the viewer was sent to the payment provider.
func (r Result) OK() bool { return r.Err == nil && r.State == RedirectingToProvider }

// Deps are the collaborators of an Orchestrator.  Bookings, Navigator and
// at least one initiator are required.
type Deps struct {
	Bookings   BookingAPI
	Initiators map[Method]PaymentInitiator
	Notifier   Notifier
	Navigator  Navigator
	Loader     Loader
	Recorder   Recorder
	Log        *slog.Logger
	// OnTransition observes every state change.
	OnTransition func(from, to State)
}

type Orchestrator struct {
	deps Deps
	log  *slog.Logger

	mu    sync.Mutex
	state State
}

func New(deps Deps) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{deps: deps, log: log.With("component", "checkout"), state: Idle}
}

// Enabled reports whether m can be paid with.
func (o *Orchestrator) Enabled(m Method) bool {
	return o.deps.Initiators[m] != nil
}

// State returns the current step.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Submit runs one checkout attempt to completion.  It returns ErrInProgress
// without doing anything if an attempt is already running or the viewer
// was already redirected.
func (o *Orchestrator) Submit(ctx context.Context, req Request) Result {
	if err := o.move(Idle, Validating); err != nil {
		return Result{State: o.State(), Err: ErrInProgress}
	}
	res := o.run(ctx, req)
	o.record(ctx, req, res)
	return res
}

func (o *Orchestrator) run(ctx context.Context, req Request) Result {
	total, err := validate(req, o.Enabled)
	if err != nil {
		return o.fail(Validating, ValidationFailed, Result{Err: err})
	}

	o.mustMove(Validating, CreatingBooking)
	booking, err := o.createBooking(ctx, req)
	if err == nil && booking.ID == "" {
		err = ErrNoBookingID
	}
	if err != nil {
		return o.fail(CreatingBooking, BookingFailed, Result{Total: total, Err: err})
	}
	res := Result{Total: total, Booking: &booking}
	o.log.Info("booking created", "booking_id", booking.ID, "showtime_id", req.ShowtimeID, "seats", len(req.Seats))

	if o.deps.Notifier != nil {
		if err := o.deps.Notifier.BookingCreated(ctx, req.Identity, booking); err != nil {
			o.log.Warn("booking notification failed", "booking_id", booking.ID, "err", err)
		}
	}

	initiator := o.deps.Initiators[req.Method]
	if initiator == nil {
		res.Err = ErrMethodComingSoon
		return o.fail(CreatingBooking, PaymentInitFailed, res)
	}

	o.mustMove(CreatingBooking, InitiatingPayment)
	pay, err := o.initiatePayment(ctx, initiator, req.Identity, booking, total)
	if err == nil && pay.PayURL == "" {
		err = ErrNoPaymentURL
	}
	if err != nil {
		res.Err = err
		return o.fail(InitiatingPayment, PaymentInitFailed, res)
	}
	res.Payment = &pay

	o.mustMove(InitiatingPayment, RedirectingToProvider)
	res.State = RedirectingToProvider
	if err := o.deps.Navigator.Redirect(ctx, pay.PayURL); err != nil {
		o.log.Warn("redirect not delivered", "booking_id", booking.ID, "err", err)
	}
	return res
}

func (o *Orchestrator) createBooking(ctx context.Context, req Request) (model.Booking, error) {
	defer o.begin(CreatingBooking)()
	seats := make([]string, len(req.Seats))
	for i, s := range req.Seats {
		seats[i] = s.String()
	}
	return o.deps.Bookings.CreateBooking(ctx, req.Identity.Token, backend.BookingRequest{
		ShowtimeID: req.ShowtimeID,
		Seats:      seats,
	})
}

func (o *Orchestrator) initiatePayment(ctx context.Context, p PaymentInitiator, id *model.Identity, booking model.Booking, total decimal.Decimal) (model.PaymentSession, error) {
	defer o.begin(InitiatingPayment)()
	return p.Initiate(ctx, id, booking, total)
}

func (o *Orchestrator) begin(step State) func() {
	if o.deps.Loader == nil {
		return func() {}
	}
	return o.deps.Loader.Begin(step)
}

// fail takes the failure exit and returns to Idle.
func (o *Orchestrator) fail(from, exit State, res Result) Result {
	o.mustMove(from, exit)
	o.mustMove(exit, Idle)
	res.State = exit
	if Validation(res.Err) {
		o.log.Debug("checkout rejected", "state", exit, "err", res.Err)
	} else {
		o.log.Warn("checkout failed", "state", exit, "err", res.Err)
	}
	return res
}

func (o *Orchestrator) move(from, to State) error {
	o.mu.Lock()
	if o.state != from || !allowed(from, to) {
		cur := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s (at %s)", ErrInvalidTransition, from, to, cur)
	}
	o.state = to
	o.mu.Unlock()
	if o.deps.OnTransition != nil {
		o.deps.OnTransition(from, to)
	}
	return nil
}

func (o *Orchestrator) mustMove(from, to State) {
	if err := o.move(from, to); err != nil {
		panic(err)
	}
}

func (o *Orchestrator) record(ctx context.Context, req Request, res Result) {
	if o.deps.Recorder == nil {
		return
	}
	a := Attempt{
		ID:         uuid.NewString(),
		ShowtimeID: req.ShowtimeID,
		Method:     req.Method,
		Total:      res.Total,
		State:      res.State,
		CreatedAt:  time.Now().UTC(),
	}
	if req.Identity != nil {
		a.UserID = req.Identity.UserID
	}
	for _, s := range req.Seats {
		a.Seats = append(a.Seats, s.String())
	}
	if res.Booking != nil {
		a.BookingID = res.Booking.ID
	}
	if res.Err != nil {
		a.Error = res.Err.Error()
	}
	if err := o.deps.Recorder.Record(ctx, a); err != nil {
		o.log.Warn("record checkout attempt", "err", err)
	}
}
