package api

import (
	"time"

	"github.com/satriahrh/wicara/domain/entities"
)

// SessionResponse represents the response payload for session creation
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID string    `json:"session_id"`
}

// VoicesResponse represents the voice catalog payload
type VoicesResponse struct {
	Voices   []entities.Voice `json:"voices"`
	Selected string           `json:"selected,omitempty"`
}

// ExportRequest represents the request payload for the text download
type ExportRequest struct {
	Text string `json:"text"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
