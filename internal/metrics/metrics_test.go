package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/chatguard/internal/availability"
)

func TestObserveAttempt(t *testing.T) {
	m := New()

	m.ObserveAttempt("/api/detect", http.StatusOK, 20*time.Millisecond)
	m.ObserveAttempt("/api/detect", http.StatusInternalServerError, time.Second)
	m.ObserveAttempt("/api/detect", 0, time.Millisecond)
	m.ObserveAttempt("/api/detect", http.StatusRequestTimeout, 30*time.Second)
	m.ObserveAttempt("/api/detect", http.StatusBadRequest, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("/api/detect", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("/api/detect", "server")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("/api/detect", "network")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("/api/detect", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("/api/detect", "client")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AttemptDuration))
}

func TestObserveRetry(t *testing.T) {
	m := New()
	m.ObserveRetry("/", 503)
	m.ObserveRetry("/", 503)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RetriesTotal.WithLabelValues("/", "503")))
}

func TestObserveAvailability(t *testing.T) {
	m := New()

	m.ObserveAvailability(availability.Snapshot{State: availability.StateChecking})
	assert.Equal(t, -1.0, testutil.ToFloat64(m.BackendUp))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastCheck))

	checked := time.Unix(1_700_000_000, 0)
	m.ObserveAvailability(availability.Snapshot{State: availability.StateOnline, LastCheckedAt: checked})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendUp))
	assert.Equal(t, 1_700_000_000.0, testutil.ToFloat64(m.LastCheck))

	m.ObserveAvailability(availability.Snapshot{State: availability.StateOffline, LastCheckedAt: checked})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BackendUp))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRetry("/api/stats", 500)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chatguard_api_retries_total")
}
