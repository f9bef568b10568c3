package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"

	"github.com/iliyamo/cinema-checkout/internal/metrics"
	"github.com/iliyamo/cinema-checkout/internal/middleware"
	"github.com/iliyamo/cinema-checkout/internal/payment"
)

// Payment result page message types.
const (
	msgResolution = "resolution"
	msgCountdown  = "countdown"
	msgRedirect   = "redirect"
)

// PaymentHandler resolves the provider's return URL.
type PaymentHandler struct {
	Resolver *payment.Resolver
	Clock    clockwork.Clock
	Metrics  *metrics.Metrics
	Log      *slog.Logger
}

type resolutionMessage struct {
	Type string `json:"type"`
	payment.Resolution
}

type countdownMessage struct {
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
}

type redirectMessage struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

func (h *PaymentHandler) resolve(c echo.Context) payment.Resolution {
	res := h.Resolver.Resolve(c.Request().Context(), middleware.Identity(c), c.QueryParams())
	h.Metrics.Resolution(string(res.Outcome))
	h.Log.InfoContext(c.Request().Context(), "payment resolved",
		"booking_id", res.BookingID, "outcome", res.Outcome, "reasons", len(res.Reasons))
	return res
}

// Result handles GET /v1/payments/result.  The page runs its own countdown
// from the returned destination and seconds.
func (h *PaymentHandler) Result(c echo.Context) error {
	return c.JSON(http.StatusOK, h.resolve(c))
}

// ResultWS handles GET /v1/payments/result/ws.  It sends the resolution,
// one countdown frame per second and finally a redirect.  Closing the page
// stops the countdown without a redirect.
func (h *PaymentHandler) ResultWS(c echo.Context) error {
	res := h.resolve(c)

	websocket.Handler(func(ws *websocket.Conn) {
		ctx, cancel := context.WithCancel(ws.Request().Context())
		defer cancel()
		go func() {
			// the page never talks; a failed read means it went away
			for {
				var discard []byte
				if err := websocket.Message.Receive(ws, &discard); err != nil {
					cancel()
					return
				}
			}
		}()

		send := func(msg any) {
			if err := websocket.JSON.Send(ws, msg); err != nil {
				cancel()
			}
		}
		send(resolutionMessage{Type: msgResolution, Resolution: res})
		cd := payment.NewCountdown(h.Clock, res.Countdown,
			func(n int) { send(countdownMessage{Type: msgCountdown, Remaining: n}) },
			func() { send(redirectMessage{Type: msgRedirect, URL: res.Destination}) },
		)
		_ = cd.Run(ctx)
	}).ServeHTTP(c.Response(), c.Request())
	return nil
}
