package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/chatguard/internal/model"
)

// DefaultHistoryLimit bounds GetRecentMessages when no limit is given.
const DefaultHistoryLimit = 50

// SaveMessage stores a chat message together with its analysis.
// Saving a message with an existing ID replaces it.
func (s *SQLiteStorage) SaveMessage(ctx context.Context, msg *model.ChatMessage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMessage(msg); err != nil {
		return err
	}

	var indicators sql.NullString
	if len(msg.Analysis.RiskIndicators) > 0 {
		data, err := json.Marshal(msg.Analysis.RiskIndicators)
		if err != nil {
			return fmt.Errorf("failed to marshal risk indicators: %w", err)
		}
		indicators = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO messages (
			id, text, is_user, username, created_at,
			is_flagged, confidence, severity, risk_indicators, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.Text,
		msg.IsUser,
		nullString(msg.Username),
		msg.Timestamp.UTC(),
		msg.Analysis.IsFlagged,
		msg.Analysis.Confidence,
		nullString(msg.Analysis.Severity),
		indicators,
		nullString(msg.Analysis.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to save message %s: %w", msg.ID, err)
	}
	return nil
}

// GetRecentMessages returns up to limit of the newest messages in
// chronological order. A non-positive limit uses DefaultHistoryLimit.
func (s *SQLiteStorage) GetRecentMessages(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, is_user, username, created_at,
			is_flagged, confidence, severity, risk_indicators, error_message
		FROM (
			SELECT rowid AS seq, * FROM messages
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, seq ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// GetFlaggedCount returns how many stored messages were flagged as harmful.
func (s *SQLiteStorage) GetFlaggedCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE is_flagged = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count flagged messages: %w", err)
	}
	return count, nil
}

func scanMessages(rows *sql.Rows) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		var username, severity, indicators, errMsg sql.NullString
		var createdAt time.Time
		err := rows.Scan(
			&msg.ID,
			&msg.Text,
			&msg.IsUser,
			&username,
			&createdAt,
			&msg.Analysis.IsFlagged,
			&msg.Analysis.Confidence,
			&severity,
			&indicators,
			&errMsg,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Timestamp = createdAt
		msg.Username = username.String
		msg.Analysis.Severity = severity.String
		msg.Analysis.Error = errMsg.String
		if indicators.Valid && indicators.String != "" {
			if err := json.Unmarshal([]byte(indicators.String), &msg.Analysis.RiskIndicators); err != nil {
				return nil, fmt.Errorf("failed to unmarshal risk indicators for %s: %w", msg.ID, err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
