package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/entities"
	"github.com/satriahrh/wicara/domain/repositories"
)

// Playback errors surfaced to callers.
var (
	ErrEmptyText = errors.New("text is empty")
	ErrNotActive = errors.New("no utterance is active")
)

// PlaybackEvent is a notification pushed to the UI layer whenever playback
// state changes or a streamed audio chunk arrives.
type PlaybackEvent struct {
	Kind        entities.SpeechEventKind
	Status      entities.PlaybackStatus
	UtteranceID string
	Chunk       []byte
	Err         error
}

// PlaybackService drives the Idle/Speaking/Paused state machine on top of a
// synthesizer. User commands are optimistic; synthesizer lifecycle events are
// the authoritative transitions and may correct the locally tracked state.
type PlaybackService struct {
	synth   repositories.Synthesizer
	catalog *Catalog
	logger  *zap.Logger
	notify  func(PlaybackEvent)

	mu      sync.Mutex
	status  entities.PlaybackStatus
	playing bool // local playback flag, trusted by the pause/resume toggle
	current string
	cancel  context.CancelFunc
	gen     int // invalidates event loops of replaced utterances
}

// NewPlaybackService creates a playback service. notify may be nil.
func NewPlaybackService(
	synth repositories.Synthesizer,
	catalog *Catalog,
	logger *zap.Logger,
	notify func(PlaybackEvent),
) *PlaybackService {
	if notify == nil {
		notify = func(PlaybackEvent) {}
	}
	return &PlaybackService{
		synth:   synth,
		catalog: catalog,
		logger:  logger,
		notify:  notify,
		status:  entities.StatusIdle,
	}
}

// Status returns the current state and the local playback flag.
func (s *PlaybackService) Status() (entities.PlaybackStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.playing
}

// Play submits a fresh utterance built from the given console state. Any
// utterance already in flight is cancelled first, so no two utterances are
// ever active at once. The transition to Speaking happens on the backend's
// started event, not here.
func (s *PlaybackService) Play(ctx context.Context, text, voiceID string, rate, pitch float64) (entities.Utterance, error) {
	if strings.TrimSpace(text) == "" {
		return entities.Utterance{}, ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.synth.Speaking() {
		if err := s.synth.Cancel(); err != nil {
			s.logger.Warn("Failed to cancel active utterance", zap.Error(err))
		}
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++

	// Resolve the voice against the catalog; a miss falls back to the
	// backend's own default.
	resolved := ""
	if voiceID != "" {
		if v, ok := s.catalog.Resolve(voiceID); ok {
			resolved = v.ID
		} else {
			s.logger.Warn("Requested voice not in catalog, using backend default",
				zap.String("voiceID", voiceID))
		}
	}

	utterance := entities.NewUtterance(uuid.NewString(), text, resolved, rate, pitch)

	speakCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, err := s.synth.Speak(speakCtx, utterance)
	if err != nil {
		cancel()
		s.status = entities.StatusIdle
		s.playing = false
		return entities.Utterance{}, err
	}

	s.cancel = cancel
	s.current = utterance.ID
	gen := s.gen

	s.logger.Info("Utterance submitted",
		zap.String("utteranceID", utterance.ID),
		zap.String("voiceID", utterance.VoiceID),
		zap.Float64("rate", utterance.Rate),
		zap.Float64("pitch", utterance.Pitch))

	go s.consume(gen, utterance.ID, events)

	return utterance, nil
}

// PauseToggle flips the local playback flag and issues exactly one pause or
// resume command matching the flag's prior value. It is only meaningful while
// an utterance is active.
func (s *PlaybackService) PauseToggle() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.playing:
		if err := s.synth.Pause(); err != nil {
			// Trust the local flag anyway; the next terminal event
			// resynchronizes state.
			s.logger.Warn("Pause command failed", zap.Error(err))
		}
		s.playing = false
		s.status = entities.StatusPaused
	case s.status == entities.StatusPaused:
		if err := s.synth.Resume(); err != nil {
			s.logger.Warn("Resume command failed", zap.Error(err))
		}
		s.playing = true
		s.status = entities.StatusSpeaking
	default:
		return ErrNotActive
	}

	s.notify(PlaybackEvent{Status: s.status, UtteranceID: s.current})
	return nil
}

// Stop unconditionally cancels any active utterance and forces Idle.
func (s *PlaybackService) Stop() {
	s.mu.Lock()
	if err := s.synth.Cancel(); err != nil {
		s.logger.Warn("Cancel command failed", zap.Error(err))
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.status = entities.StatusIdle
	s.playing = false
	s.current = ""
	s.mu.Unlock()

	s.notify(PlaybackEvent{Status: entities.StatusIdle})
}

// consume applies the synthesizer's lifecycle events to the state machine.
// Events from a superseded utterance (stale gen) are dropped.
func (s *PlaybackService) consume(gen int, utteranceID string, events <-chan entities.SpeechEvent) {
	terminal := false
	for event := range events {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}

		switch event.Kind {
		case entities.SpeechStarted:
			s.status = entities.StatusSpeaking
			s.playing = true
		case entities.SpeechEnded:
			s.status = entities.StatusIdle
			s.playing = false
			s.current = ""
			s.cancel = nil
			terminal = true
		case entities.SpeechErrored:
			// An error mid-utterance is treated like a natural end.
			s.logger.Warn("Utterance errored",
				zap.String("utteranceID", utteranceID),
				zap.Error(event.Err))
			s.status = entities.StatusIdle
			s.playing = false
			s.current = ""
			s.cancel = nil
			terminal = true
		}
		status := s.status
		s.mu.Unlock()

		s.notify(PlaybackEvent{
			Kind:        event.Kind,
			Status:      status,
			UtteranceID: utteranceID,
			Chunk:       event.Chunk,
			Err:         event.Err,
		})
	}

	if terminal {
		return
	}

	// The backend closed the channel without a terminal event; force Idle so
	// the console does not hang in Speaking.
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.status = entities.StatusIdle
	s.playing = false
	s.current = ""
	s.cancel = nil
	s.mu.Unlock()

	s.notify(PlaybackEvent{
		Kind:        entities.SpeechEnded,
		Status:      entities.StatusIdle,
		UtteranceID: utteranceID,
	})
}
