package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingSleeper replaces the backoff clock and records every requested delay.
type recordingSleeper struct {
	delays []time.Duration
	mu     sync.Mutex
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient creates a client for baseURL with a recording sleeper.
func newTestClient(t *testing.T, baseURL string, mutate func(*Config), opts ...Option) (*Client, *recordingSleeper) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	sleeper := &recordingSleeper{}
	allOpts := append([]Option{WithSleeper(sleeper.sleep), WithLogger(discardLogger())}, opts...)
	client, err := New(cfg, allOpts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, sleeper
}

// writeSuccess writes a successful envelope around data.
func writeSuccess(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	writeJSON(t, w, http.StatusOK, map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": "2025-01-01T00:00:00Z",
	})
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func decodeBody(t *testing.T, r *http.Request, into any) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		t.Errorf("failed to decode request body: %v", err)
	}
}
