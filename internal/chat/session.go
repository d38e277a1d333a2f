// Package chat runs a moderated conversation: every user message is screened
// by the detection backend and answered with a safety verdict.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/chatguard/internal/api"
	"github.com/Veraticus/chatguard/internal/common"
	"github.com/Veraticus/chatguard/internal/model"
)

// Display names attached to each side of the conversation.
const (
	UserName      = "You"
	AssistantName = "AI Safety Assistant"
)

// Detector screens a single message. *api.Client satisfies it.
type Detector interface {
	QuickDetect(ctx context.Context, text string, threshold float64) api.QuickResult
}

// Store records messages. *storage.SQLiteStorage satisfies it.
type Store interface {
	SaveMessage(ctx context.Context, msg *model.ChatMessage) error
}

// Config configures a Session.
type Config struct {
	Store     Store
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
	Threshold float64
	// Disabled starts the session with detection switched off.
	Disabled bool
}

// Exchange is one user message and the assistant's answer to it.
type Exchange struct {
	User  model.ChatMessage
	Reply model.ChatMessage
}

// Session holds the transcript and the detection toggle.
type Session struct {
	detector  Detector
	store     Store
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	messages  []model.ChatMessage
	threshold float64
	enabled   bool
	mu        sync.Mutex
}

// NewSession creates a session backed by detector.
func NewSession(detector Detector, cfg Config) (*Session, error) {
	if detector == nil {
		return nil, fmt.Errorf("%w: detector is required", common.ErrMissingConfig)
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = model.DefaultConfidenceThreshold
	}
	if threshold < 0 || threshold > 1 || math.IsNaN(threshold) {
		return nil, fmt.Errorf("%w: threshold %v outside [0, 1]", common.ErrInvalidConfig, threshold)
	}

	s := &Session{
		detector:  detector,
		store:     cfg.Store,
		logger:    common.LoggerOrDefault(cfg.Logger),
		now:       cfg.Now,
		newID:     cfg.NewID,
		threshold: threshold,
		enabled:   !cfg.Disabled,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	return s, nil
}

// DetectionEnabled reports whether messages are being screened.
func (s *Session) DetectionEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetDetection switches screening on or off.
func (s *Session) SetDetection(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// ToggleDetection flips screening and returns the new setting.
func (s *Session) ToggleDetection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = !s.enabled
	return s.enabled
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Send screens text and answers it. Blank text is ignored and yields
// (nil, nil). Detection failures never surface as errors: they are reported
// in the reply. A storage failure is logged and does not fail the exchange.
func (s *Session) Send(ctx context.Context, text string) (*Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	s.mu.Lock()
	enabled := s.enabled
	threshold := s.threshold
	s.mu.Unlock()

	user := model.ChatMessage{
		ID:        s.newID(),
		Text:      text,
		IsUser:    true,
		Timestamp: s.now(),
		Username:  UserName,
	}
	s.record(ctx, user)

	var analysis model.Analysis
	if enabled {
		analysis = s.detector.QuickDetect(ctx, text, threshold).Analysis()
		if analysis.Failed() {
			s.logger.Error("Detection API error", "error", analysis.Error)
		}
	}

	reply := model.ChatMessage{
		ID:        s.newID(),
		Text:      ReplyText(analysis, enabled),
		Timestamp: s.now(),
		Username:  AssistantName,
		Analysis:  analysis,
	}
	s.record(ctx, reply)

	return &Exchange{User: user, Reply: reply}, nil
}

func (s *Session) record(ctx context.Context, msg model.ChatMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.SaveMessage(ctx, &msg); err != nil {
		s.logger.Warn("Failed to save message", "id", msg.ID, "error", err)
	}
}

// ReplyText builds the assistant's verdict for an analysis. A failed
// analysis is reported even when detection has since been disabled.
func ReplyText(a model.Analysis, enabled bool) string {
	switch {
	case a.Failed():
		return fmt.Sprintf("🔧 Service temporarily unavailable: %s. Your message has been received but not analyzed for safety.", a.Error)
	case enabled && a.IsFlagged:
		return fmt.Sprintf("⚠️ Warning: This message was flagged as potentially harmful (%d%% confidence). Please be respectful in your communication.",
			int(math.Round(a.Confidence*100)))
	case enabled:
		return "✅ Message analyzed and cleared. No harmful content detected."
	default:
		return "💬 Message received. Content analysis is currently disabled."
	}
}
