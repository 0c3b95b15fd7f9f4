// Package status exposes the session's health and metrics to the supervisor over HTTP.
package status

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/nkas/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health is the body of GET /healthz.
type Health struct {
	Status    string    `json:"status"`
	Profile   string    `json:"profile"`
	Serial    string    `json:"serial"`
	Session   string    `json:"session"`
	Started   time.Time `json:"started"`
	LastCheck time.Time `json:"last_check,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Takeover  bool      `json:"takeover"`
}

// Status values.
const (
	StatusStarting = "starting"
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusTakeover = "takeover"
)

// Tracker holds the health of one session. It is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	health Health
}

// NewTracker creates a tracker in the starting state.
func NewTracker(profile, serial, session string) *Tracker {
	return &Tracker{health: Health{
		Status:  StatusStarting,
		Profile: profile,
		Serial:  serial,
		Session: session,
		Started: time.Now().UTC(),
	}}
}

// Report records the outcome of a health check. A takeover is sticky.
func (t *Tracker) Report(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.health.LastCheck = time.Now().UTC()
	if t.health.Takeover {
		return
	}
	switch {
	case err == nil:
		t.health.Status = StatusOK
		t.health.LastError = ""
	case errors.Is(err, domain.ErrHumanTakeover):
		t.health.Status = StatusTakeover
		t.health.Takeover = true
		t.health.LastError = err.Error()
	default:
		t.health.Status = StatusDegraded
		t.health.LastError = err.Error()
	}
}

// Snapshot returns the current health.
func (t *Tracker) Snapshot() Health {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.health
}

// NewHandler creates the router serving /healthz and /metrics.
func NewHandler(tracker *Tracker, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h := tracker.Snapshot()
		code := http.StatusOK
		if h.Status == StatusTakeover {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(h); err != nil {
			logger.Error("failed to encode health", "error", err)
		}
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
