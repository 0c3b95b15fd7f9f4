// Package metrics exports the retry policy's activity as Prometheus collectors.
package metrics

import (
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/aretw0/nkas/pkg/retry"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of one session.
type Metrics struct {
	AttemptsFailed *prometheus.CounterVec
	Reconnects     *prometheus.CounterVec
	Takeovers      *prometheus.CounterVec
	Attempts       *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg skips registration.
func New(reg prometheus.Registerer, profile string) *Metrics {
	labels := prometheus.Labels{"profile": profile}
	m := &Metrics{
		AttemptsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "nkas_command_attempts_failed_total",
			Help:        "Failed device command attempts by operation and failure class.",
			ConstLabels: labels,
		}, []string{"op", "class"}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "nkas_reconnects_total",
			Help:        "Transport reconnections run before a retry.",
			ConstLabels: labels,
		}, []string{"op"}),
		Takeovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "nkas_takeovers_total",
			Help:        "Operations that ended in a human takeover.",
			ConstLabels: labels,
		}, []string{"op", "class"}),
		Attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "nkas_command_attempts",
			Help:        "Attempts needed by successful device commands.",
			ConstLabels: labels,
			Buckets:     []float64{1, 2, 3, 4, 5},
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.AttemptsFailed, m.Reconnects, m.Takeovers, m.Attempts)
	}
	return m
}

// Hooks returns retry hooks feeding the collectors.
func (m *Metrics) Hooks() retry.Hooks {
	return retry.Hooks{
		OnAttemptFailed: func(op string, class domain.FailureClass, attempt int) {
			m.AttemptsFailed.WithLabelValues(op, class.String()).Inc()
		},
		OnReconnect: func(op string) {
			m.Reconnects.WithLabelValues(op).Inc()
		},
		OnTakeover: func(op string, class domain.FailureClass) {
			m.Takeovers.WithLabelValues(op, class.String()).Inc()
		},
		OnSuccess: func(op string, attempts int) {
			m.Attempts.WithLabelValues(op).Observe(float64(attempts))
		},
	}
}
