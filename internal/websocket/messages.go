package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/satriahrh/wicara/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	// Console commands (inbound)
	MessageTypePlay        MessageType = "play"
	MessageTypePauseToggle MessageType = "pause_toggle"
	MessageTypeStop        MessageType = "stop"
	MessageTypeSelectVoice MessageType = "select_voice"
	MessageTypePing        MessageType = "ping"

	// Server events (outbound)
	MessageTypeVoices        MessageType = "voices"
	MessageTypeSpeakingStart MessageType = "speaking_start"
	MessageTypeSpeakingEnd   MessageType = "speaking_end"
	MessageTypeSpeakingError MessageType = "speaking_error"
	MessageTypeState         MessageType = "state"
	MessageTypePong          MessageType = "pong"
	MessageTypeError         MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// PlayMessage is the console's play command, carrying the full UI state the
// utterance is built from.
type PlayMessage struct {
	BaseMessage
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id,omitempty"`
	Rate    float64 `json:"rate,omitempty"`
	Pitch   float64 `json:"pitch,omitempty"`
}

// PauseToggleMessage flips between pause and resume.
type PauseToggleMessage struct {
	BaseMessage
}

// StopMessage cancels any active utterance.
type StopMessage struct {
	BaseMessage
}

// SelectVoiceMessage changes the catalog's selected voice.
type SelectVoiceMessage struct {
	BaseMessage
	VoiceID string `json:"voice_id"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// VoicesMessage carries the voice catalog and the selected voice ID.
type VoicesMessage struct {
	BaseMessage
	Voices   []entities.Voice `json:"voices"`
	Selected string           `json:"selected,omitempty"`
}

// SpeechMessage reports a playback lifecycle transition.
type SpeechMessage struct {
	BaseMessage
	UtteranceID string                  `json:"utterance_id,omitempty"`
	Status      entities.PlaybackStatus `json:"status"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// MessageValidator provides validation for inbound WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage validates an incoming message and returns its typed form.
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypePlay:
		var msg PlayMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid play message: %w", err)
		}
		if err := v.validatePlay(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypePauseToggle:
		var msg PauseToggleMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid pause_toggle message: %w", err)
		}
		return &msg, nil

	case MessageTypeStop:
		var msg StopMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid stop message: %w", err)
		}
		return &msg, nil

	case MessageTypeSelectVoice:
		var msg SelectVoiceMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid select_voice message: %w", err)
		}
		if msg.VoiceID == "" {
			return nil, fmt.Errorf("voice_id is required")
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// validatePlay checks the play command's structure. Rate and pitch are only
// rejected when negative; out-of-range positives are clamped downstream to
// match the slider bounds.
func (v *MessageValidator) validatePlay(msg *PlayMessage) error {
	if msg.Text == "" {
		return fmt.Errorf("text is required")
	}
	if msg.Rate < 0 {
		return fmt.Errorf("rate must be positive")
	}
	if msg.Pitch < 0 {
		return fmt.Errorf("pitch must be positive")
	}
	return nil
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeError,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Code:    code,
		Message: message,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePong,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Data: data,
	}
}

// CreateVoicesMessage creates a voice catalog message
func CreateVoicesMessage(voices []entities.Voice, selected string) *VoicesMessage {
	return &VoicesMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeVoices,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Voices:   voices,
		Selected: selected,
	}
}

// CreateSpeechMessage creates a playback lifecycle message of the given type.
func CreateSpeechMessage(messageType MessageType, utteranceID string, status entities.PlaybackStatus) *SpeechMessage {
	return &SpeechMessage{
		BaseMessage: BaseMessage{
			Type:      messageType,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		UtteranceID: utteranceID,
		Status:      status,
	}
}
