package models

import "time"

// ChatMessage lives only in memory for the lifetime of a conversation.
type ChatMessage struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	IsFromUser bool      `json:"is_user"`
	Timestamp  time.Time `json:"timestamp"`
}

// Conversation is a chat transcript keyed by the relay session identifier.
type Conversation struct {
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
	StartedAt time.Time     `json:"started_at"`
}
