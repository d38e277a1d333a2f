package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/chatguard/internal/api"
	"github.com/Veraticus/chatguard/internal/common"
	"github.com/Veraticus/chatguard/internal/model"
)

type fakeDetector struct {
	result     api.QuickResult
	texts      []string
	thresholds []float64
	mu         sync.Mutex
}

func (f *fakeDetector) QuickDetect(_ context.Context, text string, threshold float64) api.QuickResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.thresholds = append(f.thresholds, threshold)
	return f.result
}

func (f *fakeDetector) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type fakeStore struct {
	err   error
	saved []model.ChatMessage
}

func (f *fakeStore) SaveMessage(_ context.Context, msg *model.ChatMessage) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, *msg)
	return nil
}

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, detector Detector, cfg Config) *Session {
	t.Helper()
	next := 0
	cfg.Now = func() time.Time { return fixedNow }
	cfg.NewID = func() string {
		next++
		return fmt.Sprintf("msg-%d", next)
	}
	session, err := NewSession(detector, cfg)
	require.NoError(t, err)
	return session
}

func TestSend_FlaggedMessage(t *testing.T) {
	detector := &fakeDetector{result: api.QuickResult{Result: &model.DetectionResult{
		IsBullying:     true,
		Confidence:     0.876,
		Severity:       model.SeverityHigh,
		RiskIndicators: []string{"insult"},
	}}}
	store := &fakeStore{}
	session := newTestSession(t, detector, Config{Store: store})

	exchange, err := session.Send(context.Background(), "you are worthless")
	require.NoError(t, err)
	require.NotNil(t, exchange)

	assert.Equal(t, "msg-1", exchange.User.ID)
	assert.True(t, exchange.User.IsUser)
	assert.Equal(t, UserName, exchange.User.Username)
	assert.Equal(t, fixedNow, exchange.User.Timestamp)

	reply := exchange.Reply
	assert.Equal(t, "msg-2", reply.ID)
	assert.False(t, reply.IsUser)
	assert.Equal(t, AssistantName, reply.Username)
	assert.Equal(t, "⚠️ Warning: This message was flagged as potentially harmful (88% confidence). Please be respectful in your communication.", reply.Text)
	assert.True(t, reply.Analysis.IsFlagged)
	assert.InDelta(t, 0.876, reply.Analysis.Confidence, 1e-9)
	assert.Equal(t, model.SeverityHigh, reply.Analysis.Severity)
	assert.Equal(t, []string{"insult"}, reply.Analysis.RiskIndicators)

	assert.Equal(t, []float64{model.DefaultConfidenceThreshold}, detector.thresholds)
	require.Len(t, store.saved, 2)
	assert.Equal(t, "msg-1", store.saved[0].ID)
	assert.Equal(t, "msg-2", store.saved[1].ID)
	assert.Len(t, session.Messages(), 2)
}

func TestSend_CleanMessage(t *testing.T) {
	detector := &fakeDetector{result: api.QuickResult{Result: &model.DetectionResult{Confidence: 0.05}}}
	session := newTestSession(t, detector, Config{Threshold: 0.5})

	exchange, err := session.Send(context.Background(), "have a nice day")
	require.NoError(t, err)

	assert.Equal(t, "✅ Message analyzed and cleared. No harmful content detected.", exchange.Reply.Text)
	assert.False(t, exchange.Reply.Analysis.IsFlagged)
	assert.Equal(t, []float64{0.5}, detector.thresholds)
}

func TestSend_NoPayloadTreatedAsClean(t *testing.T) {
	session := newTestSession(t, &fakeDetector{}, Config{})

	exchange, err := session.Send(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "✅ Message analyzed and cleared. No harmful content detected.", exchange.Reply.Text)
	assert.Zero(t, exchange.Reply.Analysis.Confidence)
}

func TestSend_DetectionFailure(t *testing.T) {
	detector := &fakeDetector{result: api.QuickResult{Error: "Request timeout"}}
	session := newTestSession(t, detector, Config{})

	exchange, err := session.Send(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "🔧 Service temporarily unavailable: Request timeout. Your message has been received but not analyzed for safety.", exchange.Reply.Text)
	assert.True(t, exchange.Reply.HasError())
	assert.False(t, exchange.Reply.Analysis.IsFlagged)
	assert.Zero(t, exchange.Reply.Analysis.Confidence)
}

func TestSend_DetectionDisabled(t *testing.T) {
	detector := &fakeDetector{result: api.QuickResult{Result: &model.DetectionResult{IsBullying: true, Confidence: 0.99}}}
	session := newTestSession(t, detector, Config{Disabled: true})
	assert.False(t, session.DetectionEnabled())

	exchange, err := session.Send(context.Background(), "anything")
	require.NoError(t, err)

	assert.Equal(t, "💬 Message received. Content analysis is currently disabled.", exchange.Reply.Text)
	assert.False(t, exchange.Reply.Analysis.IsFlagged)
	assert.Zero(t, detector.calls())
}

func TestSend_BlankIgnored(t *testing.T) {
	detector := &fakeDetector{}
	store := &fakeStore{}
	session := newTestSession(t, detector, Config{Store: store})

	exchange, err := session.Send(context.Background(), "  \n\t")
	require.NoError(t, err)
	assert.Nil(t, exchange)
	assert.Zero(t, detector.calls())
	assert.Empty(t, store.saved)
	assert.Empty(t, session.Messages())
}

func TestSend_StoreFailureDoesNotFailExchange(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	session := newTestSession(t, &fakeDetector{}, Config{Store: store})

	exchange, err := session.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.NotNil(t, exchange)
	assert.Len(t, session.Messages(), 2)
}

func TestToggleDetection(t *testing.T) {
	detector := &fakeDetector{}
	session := newTestSession(t, detector, Config{})
	assert.True(t, session.DetectionEnabled())

	assert.False(t, session.ToggleDetection())
	_, err := session.Send(context.Background(), "one")
	require.NoError(t, err)
	assert.Zero(t, detector.calls())

	session.SetDetection(true)
	_, err = session.Send(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, detector.texts)
}

func TestNewSession_Validation(t *testing.T) {
	_, err := NewSession(nil, Config{})
	require.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewSession(&fakeDetector{}, Config{Threshold: 1.5})
	require.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestReplyText(t *testing.T) {
	tests := []struct {
		name     string
		want     string
		analysis model.Analysis
		enabled  bool
	}{
		{
			name:     "rounds half up",
			analysis: model.Analysis{IsFlagged: true, Confidence: 0.875},
			enabled:  true,
			want:     "⚠️ Warning: This message was flagged as potentially harmful (88% confidence). Please be respectful in your communication.",
		},
		{
			name:     "full confidence",
			analysis: model.Analysis{IsFlagged: true, Confidence: 1},
			enabled:  true,
			want:     "⚠️ Warning: This message was flagged as potentially harmful (100% confidence). Please be respectful in your communication.",
		},
		{
			name:     "error wins over disabled",
			analysis: model.Analysis{Error: "Detection failed"},
			enabled:  false,
			want:     "🔧 Service temporarily unavailable: Detection failed. Your message has been received but not analyzed for safety.",
		},
		{
			name:     "flag ignored when disabled",
			analysis: model.Analysis{IsFlagged: true, Confidence: 0.9},
			enabled:  false,
			want:     "💬 Message received. Content analysis is currently disabled.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplyText(tt.analysis, tt.enabled))
		})
	}
}
