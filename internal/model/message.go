package model

import "time"

// ChatMessage is a single entry of a chat conversation together with the
// outcome of analysing it.
type ChatMessage struct {
	Timestamp time.Time
	ID        string
	Text      string
	Username  string
	Analysis  Analysis
	IsUser    bool
}

// HasError reports whether detection failed for this message.
func (m ChatMessage) HasError() bool {
	return m.Analysis.Failed()
}
