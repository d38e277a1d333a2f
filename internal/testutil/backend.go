package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Backend is a fake detection service. Unregistered paths answer 404.
type Backend struct {
	t        *testing.T
	server   *httptest.Server
	handlers map[string]http.HandlerFunc
	hits     map[string]int
	mu       sync.Mutex
}

// NewBackend starts a fake backend that is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		t:        t,
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

// URL is the base URL to configure the client with.
func (b *Backend) URL() string {
	return b.server.URL
}

// Handle registers handler for path.
func (b *Backend) Handle(path string, handler http.HandlerFunc) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[path] = handler
	return b
}

// Succeed registers a handler answering path with a successful envelope
// around data.
func (b *Backend) Succeed(path string, data any) *Backend {
	return b.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		b.WriteEnvelope(w, http.StatusOK, data, "")
	})
}

// Hits reports how many requests reached path.
func (b *Backend) Hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

// WriteEnvelope writes a response envelope. A non-empty errMsg marks it as
// unsuccessful.
func (b *Backend) WriteEnvelope(w http.ResponseWriter, status int, data any, errMsg string) {
	body := map[string]any{
		"success":   errMsg == "",
		"timestamp": "2025-01-01T00:00:00Z",
	}
	if data != nil {
		body["data"] = data
	}
	if errMsg != "" {
		body["error"] = errMsg
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		b.t.Errorf("failed to encode response: %v", err)
	}
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.hits[r.URL.Path]++
	handler, ok := b.handlers[r.URL.Path]
	b.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}
