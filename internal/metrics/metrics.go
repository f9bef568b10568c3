// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector.  A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	sessions        prometheus.Gauge
	transitions     *prometheus.CounterVec
	toggles         *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	bookingEvents   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "checkout_sessions_active",
			Help: "Checkout pages currently connected",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_transitions_total",
			Help: "Checkout state machine transitions",
		}, []string{"from", "to"}),
		toggles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seat_toggles_total",
			Help: "Seat toggles by outcome",
		}, []string{"outcome"}),
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_resolutions_total",
			Help: "Resolved payment returns by outcome",
		}, []string{"outcome"}),
		bookingEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_status_events_total",
			Help: "Booking status events consumed from the broker",
		}, []string{"status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

func (m *Metrics) Transition(from, to string) {
	if m != nil {
		m.transitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) Toggle(outcome string) {
	if m != nil {
		m.toggles.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Resolution(outcome string) {
	if m != nil {
		m.resolutions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) BookingEvent(status string) {
	if m != nil {
		m.bookingEvents.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m != nil {
		m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
