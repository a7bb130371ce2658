package websocket

import (
	"encoding/json"
	"testing"

	"github.com/satriahrh/wicara/domain/entities"
)

func TestMessageValidator_ValidatePlay(t *testing.T) {
	validator := NewMessageValidator()

	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{
			name: "valid play",
			message: `{
				"type": "play",
				"text": "Hello world",
				"voice_id": "voice-1",
				"rate": 1.0,
				"pitch": 1.0
			}`,
			wantErr: false,
		},
		{
			name: "play without voice or sliders",
			message: `{
				"type": "play",
				"text": "Hello world"
			}`,
			wantErr: false,
		},
		{
			name: "missing text",
			message: `{
				"type": "play",
				"voice_id": "voice-1"
			}`,
			wantErr: true,
		},
		{
			name: "negative rate",
			message: `{
				"type": "play",
				"text": "Hello",
				"rate": -1
			}`,
			wantErr: true,
		},
		{
			name: "negative pitch",
			message: `{
				"type": "play",
				"text": "Hello",
				"pitch": -0.5
			}`,
			wantErr: true,
		},
		{
			name: "out of range rate is accepted for downstream clamping",
			message: `{
				"type": "play",
				"text": "Hello",
				"rate": 9.5
			}`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageValidator_PlayFields(t *testing.T) {
	validator := NewMessageValidator()

	message := `{
		"type": "play",
		"text": "Hello world",
		"voice_id": "voice-1",
		"rate": 1.5,
		"pitch": 0.8
	}`

	result, err := validator.ValidateMessage([]byte(message))
	if err != nil {
		t.Fatalf("ValidateMessage failed: %v", err)
	}

	play, ok := result.(*PlayMessage)
	if !ok {
		t.Fatalf("Expected *PlayMessage, got %T", result)
	}
	if play.Text != "Hello world" {
		t.Errorf("Expected text 'Hello world', got %q", play.Text)
	}
	if play.VoiceID != "voice-1" {
		t.Errorf("Expected voice 'voice-1', got %q", play.VoiceID)
	}
	if play.Rate != 1.5 {
		t.Errorf("Expected rate 1.5, got %v", play.Rate)
	}
	if play.Pitch != 0.8 {
		t.Errorf("Expected pitch 0.8, got %v", play.Pitch)
	}
}

func TestMessageValidator_ControlMessages(t *testing.T) {
	validator := NewMessageValidator()

	if _, err := validator.ValidateMessage([]byte(`{"type": "pause_toggle"}`)); err != nil {
		t.Errorf("pause_toggle should validate: %v", err)
	}
	if _, err := validator.ValidateMessage([]byte(`{"type": "stop"}`)); err != nil {
		t.Errorf("stop should validate: %v", err)
	}

	result, err := validator.ValidateMessage([]byte(`{"type": "ping", "data": "test-ping"}`))
	if err != nil {
		t.Fatalf("ping should validate: %v", err)
	}
	ping, ok := result.(*PingMessage)
	if !ok {
		t.Fatalf("Expected *PingMessage, got %T", result)
	}
	if ping.Data != "test-ping" {
		t.Errorf("Expected data 'test-ping', got %q", ping.Data)
	}
}

func TestMessageValidator_SelectVoice(t *testing.T) {
	validator := NewMessageValidator()

	if _, err := validator.ValidateMessage([]byte(`{"type": "select_voice", "voice_id": "v"}`)); err != nil {
		t.Errorf("select_voice should validate: %v", err)
	}
	if _, err := validator.ValidateMessage([]byte(`{"type": "select_voice"}`)); err == nil {
		t.Error("select_voice without voice_id should be rejected")
	}
}

func TestMessageValidator_Rejections(t *testing.T) {
	validator := NewMessageValidator()

	if _, err := validator.ValidateMessage([]byte(`{invalid json}`)); err == nil {
		t.Error("invalid JSON should be rejected")
	}
	if _, err := validator.ValidateMessage([]byte(`{"type": "teleport"}`)); err == nil {
		t.Error("unknown type should be rejected")
	}
}

func TestCreateSpeechMessage(t *testing.T) {
	msg := CreateSpeechMessage(MessageTypeSpeakingStart, "utt-1", entities.StatusSpeaking)

	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["type"] != "speaking_start" {
		t.Errorf("Expected type 'speaking_start', got %v", decoded["type"])
	}
	if decoded["utterance_id"] != "utt-1" {
		t.Errorf("Expected utterance_id 'utt-1', got %v", decoded["utterance_id"])
	}
	if decoded["status"] != "speaking" {
		t.Errorf("Expected status 'speaking', got %v", decoded["status"])
	}
}

func BenchmarkMessageValidation(b *testing.B) {
	validator := NewMessageValidator()

	playJSON := `{
		"type": "play",
		"text": "Hello world",
		"voice_id": "voice-1",
		"rate": 1.0,
		"pitch": 1.0
	}`

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := validator.ValidateMessage([]byte(playJSON)); err != nil {
			b.Errorf("Validation failed: %v", err)
		}
	}
}
