// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Common application errors.
var (
	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Input errors.
	ErrInvalidInput = errors.New("invalid input")
)

// Status values with a meaning beyond the HTTP status code they mirror.
const (
	// StatusNetworkError marks a failure where no HTTP response was received.
	StatusNetworkError = 0
	// StatusTimeout marks a request abandoned by the client-side deadline.
	StatusTimeout = http.StatusRequestTimeout
)

// Kind classifies an APIError by its status.
type Kind int

// Error kinds.
const (
	KindNetwork Kind = iota
	KindTimeout
	KindUnexpected
	KindClient
	KindServer
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindUnexpected:
		return "unexpected"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Classify maps a status onto its failure kind.
func Classify(status int) Kind {
	switch {
	case status == StatusNetworkError:
		return KindNetwork
	case status == StatusTimeout:
		return KindTimeout
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindClient
	default:
		return KindUnexpected
	}
}

// IsRetryable reports whether a failure with the given status may be retried.
func IsRetryable(status int) bool {
	switch Classify(status) {
	case KindNetwork, KindTimeout, KindServer:
		return true
	default:
		return false
	}
}

// APIError is the single failure type surfaced by the detection client.
// Status 0 means no response was received, 408 means the client deadline
// fired, anything else is the HTTP status returned by the server.
type APIError struct {
	Err       error
	Message   string
	Timestamp string
	Status    int
	Attempts  int
	// Final marks a failure caused by the caller, such as a canceled or
	// too-short context, which no retry can cure.
	Final bool
}

// NewAPIError creates an APIError stamped with the current time.
func NewAPIError(status int, message string) *APIError {
	return &APIError{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Kind returns the failure kind of the error.
func (e *APIError) Kind() Kind {
	return Classify(e.Status)
}

// Retryable reports whether the error belongs to a retryable kind and was
// not marked Final.
func (e *APIError) Retryable() bool {
	return !e.Final && IsRetryable(e.Status)
}

// Exhausted reports whether the error is the terminal form of a retryable
// failure after more than one attempt.
func (e *APIError) Exhausted() bool {
	return e.Attempts > 1 && e.Retryable()
}

// AsAPIError extracts an APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// InvalidInput creates a non-retryable 400 APIError for a rejected argument.
func InvalidInput(format string, args ...any) *APIError {
	apiErr := NewAPIError(http.StatusBadRequest, fmt.Sprintf(format, args...))
	apiErr.Err = ErrInvalidInput
	return apiErr
}

// UserError pairs a message fit for the terminal with the cause behind it.
// Commands return it where a raw driver or validation error would confuse.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
