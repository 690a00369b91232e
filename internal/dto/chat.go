package dto

import "github.com/noah-isme/estudaia-api/internal/models"

// SendChatMessageRequest carries one user turn.
type SendChatMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// ChatTurnResponse lists the messages a turn appended to the transcript.
type ChatTurnResponse struct {
	SessionID string               `json:"session_id"`
	Messages  []models.ChatMessage `json:"messages"`
}
