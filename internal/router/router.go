// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cinema-checkout/internal/handler"
	"github.com/iliyamo/cinema-checkout/internal/metrics"
	"github.com/iliyamo/cinema-checkout/internal/middleware"
)

// Deps are the handlers and shared services the routes need.  Attempts is
// nil when the audit database is disabled.
type Deps struct {
	JWTSecret   string
	Log         *slog.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	RateLimiter *middleware.RateLimiter

	Health    *handler.HealthHandler
	Showtimes *handler.ShowtimeHandler
	Checkout  *handler.CheckoutHandler
	Payments  *handler.PaymentHandler
	Attempts  *handler.AttemptHandler
}

// RegisterRoutes installs the global middleware and every route.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.Use(middleware.RequestLog(d.Log, d.Metrics))

	// Probes and scrapes bypass the rate limit.
	e.GET("/healthz", d.Health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	v1 := e.Group("/v1")
	if d.RateLimiter != nil {
		v1.Use(d.RateLimiter.Middleware())
	}
	RegisterPublic(v1, d)
	RegisterCheckout(v1, d)
}

// RegisterPublic registers endpoints guests may call.  The payment result
// accepts an optional token so the booking lookup can be made as the user.
func RegisterPublic(g *echo.Group, d Deps) {
	g.GET("/showtimes/:id", d.Showtimes.GetShowtime)
	g.GET("/showtimes/:id/seats", d.Showtimes.GetSeats)

	pay := g.Group("/payments", middleware.OptionalJWT(d.JWTSecret))
	pay.GET("/result", d.Payments.Result)
	pay.GET("/result/ws", d.Payments.ResultWS)
}

// RegisterCheckout registers endpoints that require a signed-in user.
// Browsers cannot set headers on a websocket handshake, so the token may
// also arrive as ?access_token=.
func RegisterCheckout(g *echo.Group, d Deps) {
	auth := middleware.JWTAuth(d.JWTSecret)
	g.GET("/showtimes/:id/checkout", d.Checkout.Serve, auth)
	if d.Attempts != nil {
		g.GET("/checkout/attempts", d.Attempts.List, auth)
	}
}
