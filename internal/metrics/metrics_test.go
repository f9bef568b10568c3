package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.Transition("idle", "validating")
	m.Transition("idle", "validating")
	m.Toggle("added")
	m.Resolution("success")
	m.BookingEvent("confirmed")
	m.ObserveRequest("GET", "/healthz", 200, 3*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("idle", "validating")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toggles.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingEvents.WithLabelValues("confirmed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionOpened()
		m.Transition("a", "b")
		m.ObserveRequest("GET", "/", 200, time.Second)
	})
}
