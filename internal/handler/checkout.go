package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"

	"github.com/iliyamo/cinema-checkout/internal/backend"
	"github.com/iliyamo/cinema-checkout/internal/checkout"
	"github.com/iliyamo/cinema-checkout/internal/metrics"
	"github.com/iliyamo/cinema-checkout/internal/middleware"
	"github.com/iliyamo/cinema-checkout/internal/presence"
	"github.com/iliyamo/cinema-checkout/internal/seatmap"
	"github.com/iliyamo/cinema-checkout/internal/selection"
	"github.com/iliyamo/cinema-checkout/internal/session"
)

// CheckoutHandler upgrades the checkout page to a websocket and runs a
// session for it.  Notifier and Recorder are optional.
type CheckoutHandler struct {
	Showtimes   backend.ShowtimeFetcher
	Hub         presence.Hub
	Layout      seatmap.Layout
	MaxSeats    int
	HoldRefresh time.Duration

	Bookings checkout.BookingAPI
	Payments checkout.PaymentAPI
	Notifier checkout.Notifier
	Recorder checkout.Recorder

	Metrics *metrics.Metrics
	Log     *slog.Logger
}

// Serve handles GET /v1/showtimes/:id/checkout.  The showtime is loaded
// before the upgrade so a bad id is still a plain HTTP error.
func (h *CheckoutHandler) Serve(c echo.Context) error {
	id := c.Param("id")
	if !checkout.ValidShowtimeID(id) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	st, err := h.Showtimes.FetchShowtime(c.Request().Context(), id)
	if err != nil {
		h.Log.WarnContext(c.Request().Context(), "fetch showtime", "showtime_id", id, "err", err)
		return backendError(c, err)
	}
	identity := middleware.Identity(c)

	websocket.Handler(func(ws *websocket.Conn) {
		ctx, cancel := context.WithCancel(ws.Request().Context())
		defer cancel()

		h.Metrics.SessionOpened()
		defer h.Metrics.SessionClosed()

		s := session.New(session.Params{
			Identity:    identity,
			Showtime:    st,
			Channel:     h.Hub.Channel(st.ID),
			Layout:      h.Layout,
			MaxSeats:    h.MaxSeats,
			Sink:        jsonSink{ws},
			HoldRefresh: h.HoldRefresh,
			OnToggle:    func(o selection.Outcome) { h.Metrics.Toggle(string(o)) },
			Log:         h.Log,
			Checkout: checkout.Deps{
				Bookings: h.Bookings,
				Initiators: map[checkout.Method]checkout.PaymentInitiator{
					checkout.MethodMomo: checkout.MomoInitiator{API: h.Payments},
				},
				Notifier: h.Notifier,
				Recorder: h.Recorder,
				OnTransition: func(from, to checkout.State) {
					h.Metrics.Transition(string(from), string(to))
				},
			},
		})
		if err := s.Run(ctx, readFrames(ctx, ws)); err != nil && ctx.Err() == nil {
			h.Log.Warn("checkout session", "showtime_id", st.ID, "err", err)
		}
	}).ServeHTTP(c.Response(), c.Request())
	return nil
}

// jsonSink writes one JSON text frame per message.
type jsonSink struct {
	ws *websocket.Conn
}

func (s jsonSink) Send(msg any) error { return websocket.JSON.Send(s.ws, msg) }

// readFrames pumps client frames until the connection fails or ctx ends.
func readFrames(ctx context.Context, ws *websocket.Conn) <-chan []byte {
	frames := make(chan []byte)
	go func() {
		defer close(frames)
		for {
			var data []byte
			if err := websocket.Message.Receive(ws, &data); err != nil {
				return
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	}()
	return frames
}
