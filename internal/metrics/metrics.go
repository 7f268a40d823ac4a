// Package metrics exposes the Prometheus collectors for checkout sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "checkout"

// SessionMetrics groups the collectors for one controller/bridge pair.
// All record methods are nil-safe so components can run unmetered.
type SessionMetrics struct {
	SessionsOpened   prometheus.Counter
	OpensThrottled   prometheus.Counter
	SessionsResolved *prometheus.CounterVec
	WidgetMessages   *prometheus.CounterVec
	NavDecisions     *prometheus.CounterVec
	SessionDuration  prometheus.Histogram
}

// New registers the session collectors with reg. A nil reg selects the
// default registerer.
func New(reg prometheus.Registerer) *SessionMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &SessionMetrics{
		SessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Total number of checkout sessions opened.",
		}),
		OpensThrottled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opens_throttled_total",
			Help:      "Open calls ignored because a session was already active.",
		}),
		SessionsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_resolved_total",
			Help:      "Checkout sessions resolved, by outcome.",
		}, []string{"outcome"}),
		WidgetMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widget_messages_total",
			Help:      "Inbound widget messages, by type.",
		}, []string{"type"}),
		NavDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_decisions_total",
			Help:      "Surface navigation requests, by decision.",
		}, []string{"decision"}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Time from session open to resolution.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
}

// SessionOpened records one opened session.
func (m *SessionMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsOpened.Inc()
}

// OpenThrottled records one ignored open call.
func (m *SessionMetrics) OpenThrottled() {
	if m == nil {
		return
	}
	m.OpensThrottled.Inc()
}

// SessionResolved records one resolved session with its open-to-resolution
// duration.
func (m *SessionMetrics) SessionResolved(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SessionsResolved.WithLabelValues(outcome).Inc()
	m.SessionDuration.Observe(d.Seconds())
}

// WidgetMessage records one inbound widget message.
func (m *SessionMetrics) WidgetMessage(typ string) {
	if m == nil {
		return
	}
	m.WidgetMessages.WithLabelValues(typ).Inc()
}

// NavDecision records one navigation decision.
func (m *SessionMetrics) NavDecision(decision string) {
	if m == nil {
		return
	}
	m.NavDecisions.WithLabelValues(decision).Inc()
}
