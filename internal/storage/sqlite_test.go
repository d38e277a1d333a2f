package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/chatguard/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func testMessage(id string, at time.Time) *model.ChatMessage {
	return &model.ChatMessage{
		ID:        id,
		Text:      "message " + id,
		Username:  "You",
		IsUser:    true,
		Timestamp: at,
	}
}

func TestNewSQLiteStorage_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "history.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	if store.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", store.Path(), dbPath)
	}
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStorage("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSaveMessage_RoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	msg := testMessage("m1", at)
	msg.Analysis = model.Analysis{
		IsFlagged:      true,
		Confidence:     0.91,
		Severity:       model.SeverityHigh,
		RiskIndicators: []string{"insult", "threat"},
	}

	if err := store.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}

	got, err := store.GetRecentMessages(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecentMessages() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}

	stored := got[0]
	if stored.ID != "m1" || stored.Text != msg.Text || stored.Username != "You" || !stored.IsUser {
		t.Errorf("unexpected message fields: %+v", stored)
	}
	if !stored.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v", stored.Timestamp, at)
	}
	if !stored.Analysis.IsFlagged || stored.Analysis.Confidence != 0.91 || stored.Analysis.Severity != model.SeverityHigh {
		t.Errorf("unexpected analysis: %+v", stored.Analysis)
	}
	if len(stored.Analysis.RiskIndicators) != 2 || stored.Analysis.RiskIndicators[1] != "threat" {
		t.Errorf("RiskIndicators = %v", stored.Analysis.RiskIndicators)
	}
	if stored.HasError() {
		t.Error("stored message should not carry an error")
	}
}

func TestSaveMessage_PreservesAnalysisError(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	msg := testMessage("m1", time.Now())
	msg.Analysis.Error = "Network error: connection refused"
	if err := store.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}

	got, err := store.GetRecentMessages(ctx, 1)
	if err != nil {
		t.Fatalf("GetRecentMessages() error = %v", err)
	}
	if !got[0].HasError() || got[0].Analysis.Error != msg.Analysis.Error {
		t.Errorf("Analysis.Error = %q, want %q", got[0].Analysis.Error, msg.Analysis.Error)
	}
	if got[0].Analysis.RiskIndicators != nil {
		t.Errorf("RiskIndicators = %v, want nil", got[0].Analysis.RiskIndicators)
	}
}

func TestSaveMessage_ReplacesExistingID(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	msg := testMessage("m1", time.Now())
	if err := store.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}
	msg.Text = "edited"
	if err := store.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}

	got, err := store.GetRecentMessages(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecentMessages() error = %v", err)
	}
	if len(got) != 1 || got[0].Text != "edited" {
		t.Errorf("got %+v, want one edited message", got)
	}
}

func TestSaveMessage_Invalid(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SaveMessage(ctx, nil); err == nil {
		t.Error("expected error for nil message")
	}
	msg := testMessage("", time.Now())
	if err := store.SaveMessage(ctx, msg); err == nil {
		t.Error("expected error for missing ID")
	}
}

func TestGetRecentMessages_NewestInChronologicalOrder(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of order to make sure ordering comes from timestamps.
	for _, i := range []int{3, 0, 4, 1, 2} {
		id := string(rune('a' + i))
		if err := store.SaveMessage(ctx, testMessage(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveMessage(%s) error = %v", id, err)
		}
	}

	got, err := store.GetRecentMessages(ctx, 3)
	if err != nil {
		t.Fatalf("GetRecentMessages() error = %v", err)
	}

	want := []string{"c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("message %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestGetRecentMessages_Empty(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	got, err := store.GetRecentMessages(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetRecentMessages() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d messages, want 0", len(got))
	}
}

func TestGetFlaggedCount(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now()
	for i, flagged := range []bool{true, false, true} {
		msg := testMessage(string(rune('a'+i)), now.Add(time.Duration(i)*time.Second))
		msg.Analysis.IsFlagged = flagged
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage() error = %v", err)
		}
	}

	count, err := store.GetFlaggedCount(ctx)
	if err != nil {
		t.Fatalf("GetFlaggedCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("GetFlaggedCount() = %d, want 2", count)
	}
}
