package repositories

import (
	"context"

	"github.com/satriahrh/wicara/domain/entities"
)

// Synthesizer is the platform speech capability the console delegates to.
// Implementations wrap a system command, a remote API, or a mock; the console
// never generates audio itself.
type Synthesizer interface {
	// Voices enumerates the available voices. An empty result is valid and
	// simply means the backend has not finished loading its catalog yet.
	Voices(ctx context.Context) ([]entities.Voice, error)

	// OnVoicesChanged registers a callback invoked whenever the backend's
	// voice list changes after startup. Backends with a static catalog may
	// never invoke it.
	OnVoicesChanged(fn func())

	// Speak submits an utterance. The returned channel carries lifecycle
	// events (started, optional audio chunks, then ended or errored) and is
	// closed after the terminal event. Submission does not imply the speech
	// has started.
	Speak(ctx context.Context, utterance entities.Utterance) (<-chan entities.SpeechEvent, error)

	// Pause suspends the active utterance, Resume continues it. Support is
	// backend-dependent; unsupported backends return an error and playback
	// state may desynchronize until the next terminal event.
	Pause() error
	Resume() error

	// Cancel aborts the active utterance, if any. Cancelling when nothing is
	// active is a no-op.
	Cancel() error

	// Speaking reports whether an utterance is currently active (speaking or
	// paused).
	Speaking() bool
}
