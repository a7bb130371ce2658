package synth

import (
	"context"
	"fmt"
	"os"
	"sync"

	htgotts "github.com/hegedustibor/htgo-tts"
	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/entities"
	"github.com/satriahrh/wicara/domain/repositories"
)

// Google Translate's MP3 endpoint answers a tiny placeholder file when the
// line is too long to synthesize.
const gtranslateBadFileSize = 1685

const gtranslateChunkSize = 1024

// gtranslateVoices is the static catalog: one voice per supported language.
// The IDs are the language codes the translate endpoint accepts.
var gtranslateVoices = []entities.Voice{
	{ID: "en", Name: "English", Language: "en"},
	{ID: "en-uk", Name: "English (UK)", Language: "en-uk"},
	{ID: "id", Name: "Indonesian", Language: "id"},
	{ID: "ja", Name: "Japanese", Language: "ja"},
	{ID: "de", Name: "German", Language: "de"},
	{ID: "fr", Name: "French", Language: "fr"},
	{ID: "es", Name: "Spanish", Language: "es"},
}

// GTranslateSynthesizer synthesizes through the free Google Translate TTS
// endpoint via htgo-tts and streams the resulting MP3 to the caller. The
// service has no rate or pitch controls, so both are ignored.
type GTranslateSynthesizer struct {
	folder string
	logger *zap.Logger

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	gate   *streamGate
}

var _ repositories.Synthesizer = (*GTranslateSynthesizer)(nil)

// NewGTranslateSynthesizer creates a Google Translate synthesizer writing its
// temporary MP3 files under folder.
func NewGTranslateSynthesizer(folder string, logger *zap.Logger) *GTranslateSynthesizer {
	if folder == "" {
		folder = os.TempDir()
	}
	return &GTranslateSynthesizer{folder: folder, logger: logger}
}

func (g *GTranslateSynthesizer) Voices(ctx context.Context) ([]entities.Voice, error) {
	out := make([]entities.Voice, len(gtranslateVoices))
	copy(out, gtranslateVoices)
	return out, nil
}

// OnVoicesChanged is a no-op: the language list is fixed.
func (g *GTranslateSynthesizer) OnVoicesChanged(fn func()) {}

func (g *GTranslateSynthesizer) Speak(ctx context.Context, utterance entities.Utterance) (<-chan entities.SpeechEvent, error) {
	language := utterance.VoiceID
	if language == "" {
		language = "en"
	}

	if utterance.Rate != entities.DefaultRate || utterance.Pitch != entities.DefaultPitch {
		g.logger.Debug("Rate and pitch are not supported by Google Translate TTS, ignoring",
			zap.Float64("rate", utterance.Rate),
			zap.Float64("pitch", utterance.Pitch))
	}

	speakCtx, cancel := context.WithCancel(ctx)
	gate := newStreamGate()

	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	g.active = true
	g.cancel = cancel
	g.gate = gate
	g.mu.Unlock()

	events := make(chan entities.SpeechEvent, 10)

	go func() {
		defer close(events)
		defer func() {
			g.mu.Lock()
			if g.gate == gate {
				g.active = false
				g.cancel = nil
				g.gate = nil
			}
			g.mu.Unlock()
		}()

		speech := htgotts.Speech{Folder: g.folder, Language: language}
		path, err := speech.CreateSpeechFile(utterance.Text, utterance.ID)
		if err != nil {
			events <- entities.SpeechEvent{
				Kind:        entities.SpeechErrored,
				UtteranceID: utterance.ID,
				Err:         fmt.Errorf("failed to synthesize speech: %w", err),
			}
			return
		}
		defer os.Remove(path)

		info, err := os.Stat(path)
		if err != nil {
			events <- entities.SpeechEvent{
				Kind:        entities.SpeechErrored,
				UtteranceID: utterance.ID,
				Err:         fmt.Errorf("failed to stat speech file: %w", err),
			}
			return
		}
		if info.Size() == gtranslateBadFileSize {
			events <- entities.SpeechEvent{
				Kind:        entities.SpeechErrored,
				UtteranceID: utterance.ID,
				Err:         fmt.Errorf("failed to synthesize speech: line too long"),
			}
			return
		}

		if speakCtx.Err() != nil {
			events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
			return
		}

		data, err := os.ReadFile(path)
		if err != nil {
			events <- entities.SpeechEvent{
				Kind:        entities.SpeechErrored,
				UtteranceID: utterance.ID,
				Err:         fmt.Errorf("failed to read speech file: %w", err),
			}
			return
		}

		events <- entities.SpeechEvent{Kind: entities.SpeechStarted, UtteranceID: utterance.ID}

		for start := 0; start < len(data); start += gtranslateChunkSize {
			if err := gate.wait(speakCtx); err != nil {
				events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
				return
			}

			end := start + gtranslateChunkSize
			if end > len(data) {
				end = len(data)
			}
			select {
			case events <- entities.SpeechEvent{Kind: entities.SpeechAudio, UtteranceID: utterance.ID, Chunk: data[start:end]}:
			case <-speakCtx.Done():
				events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
				return
			}
		}

		events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
	}()

	return events, nil
}

func (g *GTranslateSynthesizer) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gate == nil {
		return fmt.Errorf("no utterance to pause")
	}
	g.gate.pause()
	return nil
}

func (g *GTranslateSynthesizer) Resume() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gate == nil {
		return fmt.Errorf("no utterance to resume")
	}
	g.gate.resume()
	return nil
}

func (g *GTranslateSynthesizer) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gate != nil {
		g.gate.resume()
	}
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	return nil
}

func (g *GTranslateSynthesizer) Speaking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
