package entities

// Voice represents a synthetic speaker profile exposed by a synthesizer backend.
// Voices are supplied entirely by the backend and immutable from the app's side.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Rate and pitch bounds for an utterance. Values outside the range are clamped,
// matching the slider bounds on the console page.
const (
	MinRate  = 0.5
	MaxRate  = 2.0
	MinPitch = 0.5
	MaxPitch = 2.0

	DefaultRate  = 1.0
	DefaultPitch = 1.0
)

// Utterance is one discrete request to synthesize speech. It is constructed
// fresh on every play command and never persisted.
type Utterance struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id,omitempty"` // empty lets the backend pick its default
	Rate    float64 `json:"rate"`
	Pitch   float64 `json:"pitch"`
}

// NewUtterance builds an utterance with rate and pitch clamped into bounds.
func NewUtterance(id, text, voiceID string, rate, pitch float64) Utterance {
	return Utterance{
		ID:      id,
		Text:    text,
		VoiceID: voiceID,
		Rate:    clamp(rate, MinRate, MaxRate),
		Pitch:   clamp(pitch, MinPitch, MaxPitch),
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// PlaybackStatus is the playback state machine's state.
type PlaybackStatus string

const (
	StatusIdle     PlaybackStatus = "idle"
	StatusSpeaking PlaybackStatus = "speaking"
	StatusPaused   PlaybackStatus = "paused"
)

// SpeechEventKind identifies a synthesizer lifecycle callback.
type SpeechEventKind string

const (
	// SpeechStarted is emitted once the backend actually begins producing
	// speech. Playback must not assume a synchronous start on submission.
	SpeechStarted SpeechEventKind = "started"
	// SpeechAudio carries a chunk of synthesized audio for backends that
	// stream bytes to the client instead of playing locally.
	SpeechAudio SpeechEventKind = "audio"
	// SpeechEnded is emitted after the utterance finished naturally or was
	// cancelled.
	SpeechEnded SpeechEventKind = "ended"
	// SpeechErrored is emitted when synthesis fails mid-utterance.
	SpeechErrored SpeechEventKind = "errored"
)

// SpeechEvent is a lifecycle callback produced by a synthesizer while an
// utterance is in flight. The event channel is closed after a terminal event
// (ended or errored).
type SpeechEvent struct {
	Kind        SpeechEventKind
	UtteranceID string
	Chunk       []byte // set for SpeechAudio only
	Err         error  // set for SpeechErrored only
}
