package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/entities"
	"github.com/satriahrh/wicara/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultChunkSize    = 1024
	defaultOutputFormat = "mp3_44100_128"
	defaultModelID      = "eleven_multilingual_v2"
	defaultStability    = 0.5
	defaultClarity      = 0.75

	// The API accepts speaking speed between 0.7 and 1.2; console rates
	// outside that window are clamped on the way in.
	elevenLabsMinSpeed = 0.7
	elevenLabsMaxSpeed = 1.2
)

// ElevenLabsConfig holds configuration for the ElevenLabs synthesizer.
// APIKey is required; everything else has a sensible default.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string // fallback voice when an utterance names none
	ModelID      string
	OutputFormat string
	ChunkSize    int
	Stability    float64
	Clarity      float64
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig.
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}
	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}
	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}
	if config.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	return nil
}

// NewElevenLabsConfigFromEnv reads ELEVEN_LABS_* environment variables into a
// config.
func NewElevenLabsConfigFromEnv() ElevenLabsConfig {
	config := ElevenLabsConfig{
		APIKey:       os.Getenv("ELEVEN_LABS_API_KEY"),
		APIBaseURL:   os.Getenv("ELEVEN_LABS_API_BASE_URL"),
		VoiceID:      os.Getenv("ELEVEN_LABS_VOICE_ID"),
		ModelID:      os.Getenv("ELEVEN_LABS_MODEL_ID"),
		OutputFormat: os.Getenv("ELEVEN_LABS_OUTPUT_FORMAT"),
	}

	if chunkSizeStr := os.Getenv("ELEVEN_LABS_CHUNK_SIZE"); chunkSizeStr != "" {
		if chunkSize, err := strconv.Atoi(chunkSizeStr); err == nil && chunkSize > 0 {
			config.ChunkSize = chunkSize
		}
	}
	if stabilityStr := os.Getenv("ELEVEN_LABS_STABILITY"); stabilityStr != "" {
		if stability, err := strconv.ParseFloat(stabilityStr, 64); err == nil && stability >= 0 && stability <= 1 {
			config.Stability = stability
		}
	}
	if clarityStr := os.Getenv("ELEVEN_LABS_CLARITY"); clarityStr != "" {
		if clarity, err := strconv.ParseFloat(clarityStr, 64); err == nil && clarity >= 0 && clarity <= 1 {
			config.Clarity = clarity
		}
	}

	return config
}

// ElevenLabsSynthesizer implements Synthesizer against the ElevenLabs
// streaming API. Synthesized audio is streamed to the caller as audio events;
// pause and resume gate the chunk stream rather than the remote synthesis,
// which keeps running underneath. Pitch is not supported by the API and is
// ignored.
type ElevenLabsSynthesizer struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	outputFormat string
	chunkSize    int
	stability    float64
	clarity      float64
	logger       *zap.Logger

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	gate   *streamGate
}

var _ repositories.Synthesizer = (*ElevenLabsSynthesizer)(nil)

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

// NewElevenLabsSynthesizer creates an ElevenLabs synthesizer.
func NewElevenLabsSynthesizer(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsSynthesizer, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
	}
	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
	}
	chunkSize := config.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}
	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
	}
	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
	}

	logger.Info("ElevenLabs synthesizer configured",
		zap.String("apiBaseURL", apiBaseURL),
		zap.String("modelID", modelID),
		zap.String("outputFormat", outputFormat))

	return &ElevenLabsSynthesizer{
		apiKey:       config.APIKey,
		apiBaseURL:   apiBaseURL,
		voiceID:      voiceID,
		modelID:      modelID,
		outputFormat: outputFormat,
		chunkSize:    chunkSize,
		stability:    stability,
		clarity:      clarity,
		logger:       logger,
	}, nil
}

// Voices retrieves the account's voices from the ElevenLabs voices API.
func (e *ElevenLabsSynthesizer) Voices(ctx context.Context) ([]entities.Voice, error) {
	url := fmt.Sprintf("%s/voices", e.apiBaseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", e.apiKey)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned error %d: %s", resp.StatusCode, string(errorBody))
	}

	var voicesResponse struct {
		Voices []struct {
			VoiceID string            `json:"voice_id"`
			Name    string            `json:"name"`
			Labels  map[string]string `json:"labels"`
		} `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&voicesResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	voices := make([]entities.Voice, 0, len(voicesResponse.Voices))
	for _, v := range voicesResponse.Voices {
		language := v.Labels["language"]
		if language == "" {
			language = "en"
		}
		voices = append(voices, entities.Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Language: language,
		})
	}

	e.logger.Info("Retrieved available voices", zap.Int("count", len(voices)))
	return voices, nil
}

// OnVoicesChanged is a no-op: the account's voice list does not change while
// the server runs.
func (e *ElevenLabsSynthesizer) OnVoicesChanged(fn func()) {}

// Speak streams synthesized audio for the utterance. The started event fires
// once the API answers 200, chunks follow as they arrive, and the channel
// closes after the terminal event.
func (e *ElevenLabsSynthesizer) Speak(ctx context.Context, utterance entities.Utterance) (<-chan entities.SpeechEvent, error) {
	voiceID := utterance.VoiceID
	if voiceID == "" {
		voiceID = e.voiceID
	}

	speed := utterance.Rate
	if speed < elevenLabsMinSpeed {
		speed = elevenLabsMinSpeed
	}
	if speed > elevenLabsMaxSpeed {
		speed = elevenLabsMaxSpeed
	}

	request := elevenLabsRequest{
		Text:    utterance.Text,
		ModelID: e.modelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
			Speed:           speed,
		},
	}
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s&enable_logging=false",
		e.apiBaseURL, voiceID, e.outputFormat)
	speakCtx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(speakCtx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	gate := newStreamGate()

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.active = true
	e.cancel = cancel
	e.gate = gate
	e.mu.Unlock()

	client := &http.Client{Timeout: 60 * time.Second}
	events := make(chan entities.SpeechEvent, 10)

	go func() {
		defer close(events)
		defer func() {
			e.mu.Lock()
			if e.gate == gate {
				e.active = false
				e.cancel = nil
				e.gate = nil
			}
			e.mu.Unlock()
		}()

		resp, err := client.Do(httpReq)
		if err != nil {
			if speakCtx.Err() != nil {
				events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
				return
			}
			events <- entities.SpeechEvent{
				Kind:        entities.SpeechErrored,
				UtteranceID: utterance.ID,
				Err:         fmt.Errorf("failed to execute HTTP request: %w", err),
			}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errorBody, _ := io.ReadAll(resp.Body)
			events <- entities.SpeechEvent{
				Kind:        entities.SpeechErrored,
				UtteranceID: utterance.ID,
				Err:         fmt.Errorf("API returned error %d: %s", resp.StatusCode, string(errorBody)),
			}
			return
		}

		events <- entities.SpeechEvent{Kind: entities.SpeechStarted, UtteranceID: utterance.ID}

		buffer := make([]byte, e.chunkSize)
		for {
			if err := gate.wait(speakCtx); err != nil {
				events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
				return
			}

			n, err := resp.Body.Read(buffer)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buffer[:n])
				select {
				case events <- entities.SpeechEvent{Kind: entities.SpeechAudio, UtteranceID: utterance.ID, Chunk: chunk}:
				case <-speakCtx.Done():
					events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
					return
				}
			}
			if err == io.EOF {
				events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
				return
			}
			if err != nil {
				if speakCtx.Err() != nil {
					events <- entities.SpeechEvent{Kind: entities.SpeechEnded, UtteranceID: utterance.ID}
					return
				}
				events <- entities.SpeechEvent{
					Kind:        entities.SpeechErrored,
					UtteranceID: utterance.ID,
					Err:         fmt.Errorf("error reading response body: %w", err),
				}
				return
			}
		}
	}()

	return events, nil
}

func (e *ElevenLabsSynthesizer) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gate == nil {
		return fmt.Errorf("no utterance to pause")
	}
	e.gate.pause()
	return nil
}

func (e *ElevenLabsSynthesizer) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gate == nil {
		return fmt.Errorf("no utterance to resume")
	}
	e.gate.resume()
	return nil
}

func (e *ElevenLabsSynthesizer) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gate != nil {
		e.gate.resume() // unblock a paused stream so it can observe the cancel
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	return nil
}

func (e *ElevenLabsSynthesizer) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// streamGate blocks a streaming loop while paused.
type streamGate struct {
	mu     sync.Mutex
	paused chan struct{} // non-nil while paused, closed on resume
}

func newStreamGate() *streamGate {
	return &streamGate{}
}

func (g *streamGate) pause() {
	g.mu.Lock()
	if g.paused == nil {
		g.paused = make(chan struct{})
	}
	g.mu.Unlock()
}

func (g *streamGate) resume() {
	g.mu.Lock()
	if g.paused != nil {
		close(g.paused)
		g.paused = nil
	}
	g.mu.Unlock()
}

// wait blocks while the gate is paused. It returns the context error if the
// context ends first.
func (g *streamGate) wait(ctx context.Context) error {
	g.mu.Lock()
	paused := g.paused
	g.mu.Unlock()

	if paused == nil {
		return ctx.Err()
	}
	select {
	case <-paused:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
