package synth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/entities"
	"github.com/satriahrh/wicara/domain/repositories"
)

// MockSynthesizer is a scripted synthesizer for tests and local development.
// In autoplay mode every utterance immediately produces a started event, a few
// pattern audio chunks and an ended event; otherwise the caller drives the
// lifecycle through the Emit methods.
type MockSynthesizer struct {
	logger   *zap.Logger
	autoplay bool

	mu        sync.Mutex
	voices    []entities.Voice
	changed   []func()
	events    chan entities.SpeechEvent
	utterance entities.Utterance
	active    bool
	commands  []string
	speakErr  error
}

var _ repositories.Synthesizer = (*MockSynthesizer)(nil)

// NewMockSynthesizer creates a mock. autoplay controls whether utterances
// complete on their own.
func NewMockSynthesizer(logger *zap.Logger, autoplay bool) *MockSynthesizer {
	return &MockSynthesizer{
		logger:   logger,
		autoplay: autoplay,
		voices: []entities.Voice{
			{ID: "mock-id", Name: "Nusantara", Language: "id-ID"},
			{ID: "mock-en", Name: "Meridian", Language: "en-US"},
		},
	}
}

// SetVoices replaces the voice list and fires the voices-changed callbacks.
func (m *MockSynthesizer) SetVoices(voices []entities.Voice) {
	m.mu.Lock()
	m.voices = voices
	callbacks := make([]func(), len(m.changed))
	copy(callbacks, m.changed)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// FailNextSpeak makes the next Speak call return err.
func (m *MockSynthesizer) FailNextSpeak(err error) {
	m.mu.Lock()
	m.speakErr = err
	m.mu.Unlock()
}

func (m *MockSynthesizer) Voices(ctx context.Context) ([]entities.Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entities.Voice, len(m.voices))
	copy(out, m.voices)
	return out, nil
}

func (m *MockSynthesizer) OnVoicesChanged(fn func()) {
	m.mu.Lock()
	m.changed = append(m.changed, fn)
	m.mu.Unlock()
}

func (m *MockSynthesizer) Speak(ctx context.Context, utterance entities.Utterance) (<-chan entities.SpeechEvent, error) {
	m.mu.Lock()
	if m.speakErr != nil {
		err := m.speakErr
		m.speakErr = nil
		m.mu.Unlock()
		return nil, err
	}

	events := make(chan entities.SpeechEvent, 16)
	m.events = events
	m.utterance = utterance
	m.active = true
	m.commands = append(m.commands, "speak")
	m.mu.Unlock()

	m.logger.Debug("Mock utterance submitted",
		zap.String("utteranceID", utterance.ID),
		zap.String("voiceID", utterance.VoiceID))

	if m.autoplay {
		go m.script(utterance, events)
	}
	return events, nil
}

// script plays out a full lifecycle with a synthetic audio chunk sized off
// the text.
func (m *MockSynthesizer) script(utterance entities.Utterance, events chan entities.SpeechEvent) {
	events <- entities.SpeechEvent{Kind: entities.SpeechStarted, UtteranceID: utterance.ID}

	chunk := make([]byte, len(utterance.Text)*10)
	for i := range chunk {
		chunk[i] = byte(i % 256)
	}
	events <- entities.SpeechEvent{Kind: entities.SpeechAudio, UtteranceID: utterance.ID, Chunk: chunk}

	m.mu.Lock()
	if m.events != events {
		// Replaced or cancelled while scripting.
		m.mu.Unlock()
		return
	}
	m.active = false
	m.events = nil
	m.mu.Unlock()

	events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
	close(events)
}

func (m *MockSynthesizer) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, "pause")
	return nil
}

func (m *MockSynthesizer) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, "resume")
	return nil
}

func (m *MockSynthesizer) Cancel() error {
	m.mu.Lock()
	m.commands = append(m.commands, "cancel")
	events := m.events
	utteranceID := m.utterance.ID
	m.events = nil
	m.active = false
	m.mu.Unlock()

	if events != nil {
		events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utteranceID}
		close(events)
	}
	return nil
}

func (m *MockSynthesizer) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// EmitStarted fires the started event for the in-flight utterance.
func (m *MockSynthesizer) EmitStarted() {
	m.emit(entities.SpeechEvent{Kind: entities.SpeechStarted}, false)
}

// EmitAudio fires an audio chunk event.
func (m *MockSynthesizer) EmitAudio(chunk []byte) {
	m.emit(entities.SpeechEvent{Kind: entities.SpeechAudio, Chunk: chunk}, false)
}

// EmitEnded fires the terminal ended event and closes the event channel.
func (m *MockSynthesizer) EmitEnded() {
	m.emit(entities.SpeechEvent{Kind: entities.SpeechEnded}, true)
}

// EmitErrored fires the terminal errored event and closes the event channel.
func (m *MockSynthesizer) EmitErrored(err error) {
	m.emit(entities.SpeechEvent{Kind: entities.SpeechErrored, Err: err}, true)
}

func (m *MockSynthesizer) emit(event entities.SpeechEvent, terminal bool) {
	m.mu.Lock()
	events := m.events
	event.UtteranceID = m.utterance.ID
	if terminal {
		m.events = nil
		m.active = false
	}
	m.mu.Unlock()

	if events == nil {
		return
	}
	events <- event
	if terminal {
		close(events)
	}
}

// LastUtterance returns the most recently submitted utterance.
func (m *MockSynthesizer) LastUtterance() entities.Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.utterance
}

// Commands returns the platform commands received so far, in order.
func (m *MockSynthesizer) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.commands))
	copy(out, m.commands)
	return out
}
