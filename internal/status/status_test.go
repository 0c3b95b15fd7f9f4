package status_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/nkas/internal/logging"
	"github.com/aretw0/nkas/internal/metrics"
	"github.com/aretw0/nkas/internal/status"
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	tracker := status.NewTracker("nkas", "127.0.0.1:16384", "run-1")
	h := status.NewHandler(tracker, prometheus.NewRegistry(), logging.NewNop())

	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var body status.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, status.StatusStarting, body.Status)
	assert.Equal(t, "127.0.0.1:16384", body.Serial)

	tracker.Report(errors.New("screencap timeout"))
	rec = get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)

	tracker.Report(&domain.TakeoverError{Op: "tap", Attempts: 5, Last: domain.Transient, Err: errors.New("closed")})
	rec = get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Takeover stays until the session is restarted.
	tracker.Report(nil)
	assert.Equal(t, status.StatusTakeover, tracker.Snapshot().Status)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "nkas")
	m.Reconnects.WithLabelValues("tap").Inc()
	h := status.NewHandler(status.NewTracker("nkas", "", ""), reg, logging.NewNop())

	rec := get(t, h, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `nkas_reconnects_total{op="tap",profile="nkas"} 1`)
}
