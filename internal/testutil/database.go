// Package testutil provides shared fixtures for chatguard tests: a migrated
// history database and a fake detection backend.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/chatguard/internal/model"
	"github.com/Veraticus/chatguard/internal/storage"
)

// SetupHistoryDB creates a migrated history database under t.TempDir and
// seeds it with messages. It is closed automatically when the test ends.
func SetupHistoryDB(t *testing.T, messages ...model.ChatMessage) *storage.SQLiteStorage {
	t.Helper()
	return SetupHistoryDBAt(t, filepath.Join(t.TempDir(), "history.db"), messages...)
}

// SetupHistoryDBAt is SetupHistoryDB at an explicit path, for tests that
// need another component to open the same file.
func SetupHistoryDBAt(t *testing.T, path string, messages ...model.ChatMessage) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	for i := range messages {
		if err := store.SaveMessage(ctx, &messages[i]); err != nil {
			t.Fatalf("failed to seed message %q: %v", messages[i].ID, err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// Conversation builds alternating user and assistant messages, one minute
// apart starting at start. Assistant replies are flagged where flagged[i]
// is true for the i-th exchange.
func Conversation(start time.Time, texts []string, flagged ...bool) []model.ChatMessage {
	messages := make([]model.ChatMessage, 0, len(texts)*2)
	for i, text := range texts {
		at := start.Add(time.Duration(i) * time.Minute)
		messages = append(messages, model.ChatMessage{
			ID:        fmt.Sprintf("user-%d", i+1),
			Text:      text,
			IsUser:    true,
			Username:  "You",
			Timestamp: at,
		})

		reply := model.ChatMessage{
			ID:        fmt.Sprintf("reply-%d", i+1),
			Text:      "reply to " + text,
			Username:  "AI Safety Assistant",
			Timestamp: at.Add(time.Second),
		}
		if i < len(flagged) && flagged[i] {
			reply.Analysis = model.Analysis{IsFlagged: true, Confidence: 0.9, Severity: model.SeverityHigh}
		}
		messages = append(messages, reply)
	}
	return messages
}
