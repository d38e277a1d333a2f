package api

import (
	"bytes"
	"encoding/json"
)

// Backend endpoints.
const (
	EndpointHealth      = "/"
	EndpointDetect      = "/api/detect"
	EndpointBatchDetect = "/api/batch-detect"
	EndpointStats       = "/api/stats"
	EndpointAddWords    = "/api/add-words"
)

// Response is the envelope wrapped around every backend payload.
type Response[T any] struct {
	Data      T      `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
	Success   bool   `json:"success"`
	// StatusCode is the HTTP status of the response that carried the envelope.
	StatusCode int `json:"-"`
}

// hasData reports whether a raw payload is present and not JSON null.
func hasData(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
