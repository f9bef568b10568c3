// Package session runs one checkout page.  A session owns the viewer's
// selection and the latest availability snapshot; everything that touches
// them happens on a single event loop goroutine.  Network effects (hold
// broadcasts, the checkout itself) run beside the loop and report back to
// it as events.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/cinema-checkout/internal/checkout"
	"github.com/iliyamo/cinema-checkout/internal/model"
	"github.com/iliyamo/cinema-checkout/internal/presence"
	"github.com/iliyamo/cinema-checkout/internal/seatmap"
	"github.com/iliyamo/cinema-checkout/internal/selection"
)

const releaseTimeout = 5 * time.Second

// Params are everything a session needs.  Checkout.Loader and
// Checkout.Navigator are provided by the session itself; Checkout.Notifier
// is called after the presence channel has been told about the booking.
type Params struct {
	Identity *model.Identity
	Showtime model.Showtime
	Channel  presence.Channel
	Layout   seatmap.Layout
	MaxSeats int
	Sink     Sink
	Checkout checkout.Deps
	// HoldRefresh republishes a non-empty selection so holds outlive their
	// TTL while the page stays open.  Zero disables it.
	HoldRefresh time.Duration
	// OnToggle observes every toggle outcome.
	OnToggle func(selection.Outcome)
	Log      *slog.Logger
}

type Session struct {
	p    Params
	log  *slog.Logger
	out  *lockedSink
	sel  *selection.Controller
	orch *checkout.Orchestrator

	snap       *seatmap.Snapshot
	connected  bool
	method     checkout.Method
	submitting bool

	snaps   latest[seatmap.Snapshot]
	conn    latest[bool]
	holds   latest[[]seatmap.SeatID]
	results chan checkout.Result
}

func New(p Params) *Session {
	if p.Layout.Size() == 0 {
		p.Layout = seatmap.DefaultLayout
	}
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	userID := ""
	if p.Identity != nil {
		userID = p.Identity.UserID
	}
	log = log.With("showtime_id", p.Showtime.ID, "user_id", userID)
	out := &lockedSink{sink: p.Sink, log: log}

	deps := p.Checkout
	deps.Loader = out
	deps.Navigator = out
	deps.Notifier = checkout.Notifiers{channelNotifier{p.Channel}, p.Checkout.Notifier}
	if deps.Log == nil {
		deps.Log = log
	}

	return &Session{
		p:       p,
		log:     log,
		out:     out,
		sel:     selection.New(p.Layout, p.MaxSeats),
		orch:    checkout.New(deps),
		method:  checkout.DefaultMethod,
		snaps:   newLatest[seatmap.Snapshot](),
		conn:    newLatest[bool](),
		holds:   newLatest[[]seatmap.SeatID](),
		results: make(chan checkout.Result, 1),
	}
}

// Run serves the page until frames is closed or ctx ends.  The viewer's
// holds are released on the way out; a checkout already submitted keeps
// running to completion.
func (s *Session) Run(ctx context.Context, frames <-chan []byte) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe, err := s.p.Channel.Subscribe(ctx, s.snaps.put, s.conn.put)
	if err != nil {
		s.log.Warn("subscribe to seat channel", "err", err)
		s.out.send(notice(LevelError, "Live seat updates are unavailable right now."))
	} else {
		defer unsubscribe()
	}

	stop := make(chan struct{})
	published := make(chan struct{})
	go s.publishLoop(context.WithoutCancel(ctx), stop, published)
	defer func() {
		if s.sel.Len() > 0 {
			s.execute(s.sel.Clear())
		}
		close(stop)
		<-published
	}()

	s.drain()
	s.sendMethod()
	s.render()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-frames:
			if !ok {
				return nil
			}
			s.handle(ctx, data)
		case snap := <-s.snaps.ch:
			s.snap = &snap
			s.render()
		case c := <-s.conn.ch:
			s.connected = c
			s.render()
		case res := <-s.results:
			s.finish(res)
		}
	}
}

// drain applies state delivered while subscribing.
func (s *Session) drain() {
	select {
	case c := <-s.conn.ch:
		s.connected = c
	default:
	}
	select {
	case snap := <-s.snaps.ch:
		s.snap = &snap
	default:
	}
}

func (s *Session) handle(ctx context.Context, data []byte) {
	in, err := DecodeInbound(data)
	if err != nil {
		s.log.Debug("bad client message", "err", err)
		s.out.send(notice(LevelError, "Unsupported request."))
		return
	}
	if s.submitting && in.Type != MsgSubmit {
		// the selection belongs to the booking request until it settles
		s.out.send(notice(LevelInfo, checkout.Result{Err: checkout.ErrInProgress}.Notice()))
		return
	}
	switch in.Type {
	case MsgToggle:
		s.toggle(in.Seat)
	case MsgClear:
		s.execute(s.sel.Clear())
		s.render()
	case MsgMethod:
		s.selectMethod(in.Method)
	case MsgSubmit:
		s.submit(ctx)
	}
}

func (s *Session) toggle(raw string) {
	id, err := seatmap.ParseSeatID(raw)
	if err != nil {
		s.out.send(notice(LevelError, "Unknown seat."))
		return
	}
	outcome, cmds := s.sel.Toggle(id, s.snap)
	if s.p.OnToggle != nil {
		s.p.OnToggle(outcome)
	}
	switch outcome {
	case selection.RejectedLimit:
		s.out.send(notice(LevelInfo, fmt.Sprintf("You can select up to %d seats per booking.", s.p.MaxSeats)))
	case selection.RejectedSeat:
		s.out.send(notice(LevelError, "Unknown seat."))
	}
	if !outcome.Changed() {
		return
	}
	s.execute(cmds)
	s.render()
}

func (s *Session) selectMethod(raw string) {
	m, ok := checkout.ParseMethod(raw)
	switch {
	case !ok:
		s.out.send(notice(LevelError, "Unknown payment method."))
	case !s.orch.Enabled(m):
		s.out.send(notice(LevelInfo, checkout.Result{Err: checkout.ErrMethodComingSoon}.Notice()))
		s.method = checkout.DefaultMethod
	default:
		s.method = m
	}
	s.sendMethod()
	s.render()
}

func (s *Session) submit(ctx context.Context) {
	if s.submitting {
		s.out.send(notice(LevelInfo, checkout.Result{Err: checkout.ErrInProgress}.Notice()))
		return
	}
	if stale := s.staleSeats(); len(stale) > 0 {
		s.execute(s.sel.Drop(stale...))
		s.out.send(notice(LevelError, fmt.Sprintf("%s %s just booked by someone else. Please choose again.",
			joinSeats(stale), pluralVerb(len(stale)))))
		s.render()
		return
	}

	req := checkout.Request{
		Identity:   s.p.Identity,
		ShowtimeID: s.p.Showtime.ID,
		Seats:      s.sel.Seats(),
		SeatPrice:  s.p.Showtime.Price,
		Method:     s.method,
	}
	s.submitting = true
	ctx = context.WithoutCancel(ctx)
	go func() { s.results <- s.orch.Submit(ctx, req) }()
}

// staleSeats are selected seats the latest snapshot reports as booked.
func (s *Session) staleSeats() []seatmap.SeatID {
	if s.snap == nil {
		return nil
	}
	var stale []seatmap.SeatID
	for _, id := range s.sel.Seats() {
		if s.snap.Booked.Has(id) {
			stale = append(stale, id)
		}
	}
	return stale
}

func (s *Session) finish(res checkout.Result) {
	s.submitting = false
	if res.Booking != nil {
		// the seats now belong to the booking
		s.execute(s.sel.Clear())
	}
	if res.Err != nil {
		s.out.send(notice(LevelError, res.Notice()))
	}
	s.render()
}

func (s *Session) execute(cmds []selection.Command) {
	for _, c := range cmds {
		switch c := c.(type) {
		case selection.PublishSelection:
			s.holds.put(c.Seats)
		}
	}
}

func (s *Session) render() {
	s.out.send(SeatsMessage{
		Type:      MsgSeats,
		View:      seatmap.Render(s.p.Layout, s.snap, s.sel.Selection(), s.connected),
		SeatPrice: s.p.Showtime.Price,
		Total:     checkout.TotalPrice(s.p.Showtime.Price, s.sel.Len()),
		Method:    s.method,
	})
}

func (s *Session) sendMethod() {
	opts := make([]MethodOption, 0, len(checkout.Offered))
	for _, m := range checkout.Offered {
		opts = append(opts, MethodOption{Method: m, Enabled: s.orch.Enabled(m)})
	}
	s.out.send(MethodMessage{Type: MsgMethod, Method: s.method, Options: opts})
}

// publishLoop broadcasts the latest selection.  After stop it publishes
// whatever is still pending, which is how holds get released on exit.
func (s *Session) publishLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	var (
		current []seatmap.SeatID
		refresh <-chan time.Time
	)
	if s.p.HoldRefresh > 0 {
		t := time.NewTicker(s.p.HoldRefresh)
		defer t.Stop()
		refresh = t.C
	}
	for {
		select {
		case seats := <-s.holds.ch:
			current = seats
			s.publish(ctx, seats)
		case <-refresh:
			if len(current) > 0 {
				s.publish(ctx, current)
			}
		case <-stop:
			select {
			case seats := <-s.holds.ch:
				s.publish(ctx, seats)
			default:
			}
			return
		}
	}
}

func (s *Session) publish(ctx context.Context, seats []seatmap.SeatID) {
	if !s.p.Identity.Authenticated() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, releaseTimeout)
	defer cancel()
	if err := s.p.Channel.Publish(ctx, s.p.Identity.UserID, seats); err != nil {
		s.log.Warn("publish selection", "seats", len(seats), "err", err)
	}
}

// channelNotifier drops the viewer's holds once the booking exists.
type channelNotifier struct {
	ch presence.Channel
}

func (n channelNotifier) BookingCreated(ctx context.Context, id *model.Identity, _ model.Booking) error {
	return n.ch.BookingCreated(ctx, id.UserID)
}

func joinSeats(ids []seatmap.SeatID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}

func pluralVerb(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}
