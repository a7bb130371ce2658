//go:build linux || darwin

package synth

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/repositories"
)

// Backend names a synthesizer implementation.
type Backend string

const (
	BackendCommand    Backend = "command"
	BackendElevenLabs Backend = "elevenlabs"
	BackendGTranslate Backend = "gtranslate"
	BackendMock       Backend = "mock"
)

// BackendFromEnv reads the configured backend from WICARA_SYNTH, defaulting
// to the system speech command.
func BackendFromEnv() Backend {
	if v := os.Getenv("WICARA_SYNTH"); v != "" {
		return Backend(v)
	}
	return BackendCommand
}

// New constructs the named synthesizer backend. Construction fails fast when
// the backend is unavailable (missing binary, missing API key) rather than
// degrading silently at playback time.
func New(backend Backend, logger *zap.Logger) (repositories.Synthesizer, error) {
	switch backend {
	case BackendCommand:
		return NewCommandSynthesizer(logger)
	case BackendElevenLabs:
		return NewElevenLabsSynthesizer(NewElevenLabsConfigFromEnv(), logger)
	case BackendGTranslate:
		return NewGTranslateSynthesizer(os.Getenv("WICARA_AUDIO_DIR"), logger), nil
	case BackendMock:
		return NewMockSynthesizer(logger, true), nil
	default:
		return nil, fmt.Errorf("unsupported synthesizer backend %q", backend)
	}
}
