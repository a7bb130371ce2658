//go:build linux || darwin

package synth

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/entities"
	"github.com/satriahrh/wicara/domain/repositories"
)

// CommandSynthesizer speaks through the operating system's TTS command:
// espeak-ng/espeak on Linux, say on macOS. Audio goes straight to the host's
// sound device, so no audio chunks are streamed to the client. Pause and
// resume are implemented with SIGSTOP/SIGCONT on the speaking process.
type CommandSynthesizer struct {
	binary string
	logger *zap.Logger

	mu      sync.Mutex
	process *exec.Cmd
	cancel  context.CancelFunc
}

var _ repositories.Synthesizer = (*CommandSynthesizer)(nil)

// NewCommandSynthesizer locates the platform TTS binary. A missing binary is
// reported at construction time so the server fails fast instead of degrading
// silently.
func NewCommandSynthesizer(logger *zap.Logger) (*CommandSynthesizer, error) {
	binary, err := lookupSpeechBinary()
	if err != nil {
		return nil, err
	}
	logger.Info("Using system speech command", zap.String("binary", binary))
	return &CommandSynthesizer{binary: binary, logger: logger}, nil
}

// Voices lists the voices the system command knows about.
func (s *CommandSynthesizer) Voices(ctx context.Context) ([]entities.Voice, error) {
	cmd := exec.CommandContext(ctx, s.binary, listVoicesArgs()...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	return parseVoiceList(string(output)), nil
}

// OnVoicesChanged is a no-op: the system voice catalog is static for the
// lifetime of the process.
func (s *CommandSynthesizer) OnVoicesChanged(fn func()) {}

// Speak starts the speech command and reports lifecycle events as the process
// starts and exits. A cancelled context ends the utterance without an error
// event.
func (s *CommandSynthesizer) Speak(ctx context.Context, utterance entities.Utterance) (<-chan entities.SpeechEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.process != nil {
		s.cancelLocked()
	}

	speakCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(speakCtx, s.binary, speakArgs(utterance)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start %s: %w", s.binary, err)
	}

	s.process = cmd
	s.cancel = cancel

	events := make(chan entities.SpeechEvent, 4)
	events <- entities.SpeechEvent{Kind: entities.SpeechStarted, UtteranceID: utterance.ID}

	go func() {
		err := cmd.Wait()

		s.mu.Lock()
		if s.process == cmd {
			s.process = nil
			s.cancel = nil
		}
		s.mu.Unlock()

		switch {
		case speakCtx.Err() != nil:
			// Cancelled on purpose, an ordinary end.
			events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
		case err != nil:
			events <- entities.SpeechEvent{
				Kind:        entities.SpeechErrored,
				UtteranceID: utterance.ID,
				Err:         fmt.Errorf("%s failed: %w", s.binary, err),
			}
		default:
			events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
		}
		close(events)
	}()

	return events, nil
}

func (s *CommandSynthesizer) Pause() error {
	return s.signal(syscall.SIGSTOP)
}

func (s *CommandSynthesizer) Resume() error {
	return s.signal(syscall.SIGCONT)
}

func (s *CommandSynthesizer) signal(sig syscall.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.process == nil || s.process.Process == nil {
		return fmt.Errorf("no speech process to signal")
	}
	if err := s.process.Process.Signal(sig); err != nil {
		return fmt.Errorf("failed to signal speech process: %w", err)
	}
	return nil
}

func (s *CommandSynthesizer) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	return nil
}

// cancelLocked requires s.mu to be held. A stopped process cannot react to
// the context's SIGKILL, so it is continued first.
func (s *CommandSynthesizer) cancelLocked() {
	if s.process != nil && s.process.Process != nil {
		_ = s.process.Process.Signal(syscall.SIGCONT)
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *CommandSynthesizer) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.process != nil
}
