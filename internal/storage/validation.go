package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/chatguard/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidMessage = errors.New("invalid message")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateMessage validates a chat message before it is stored.
func validateMessage(msg *model.ChatMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: message", ErrNilParameter)
	}
	if msg.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidMessage)
	}
	if msg.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidMessage)
	}
	if msg.Text == "" {
		return fmt.Errorf("%w: missing text", ErrInvalidMessage)
	}
	if msg.Analysis.Confidence < 0 || msg.Analysis.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0, 1]", ErrInvalidMessage, msg.Analysis.Confidence)
	}
	return nil
}
