// Package elevenlabs provides a client for the ElevenLabs text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/falapai/internal/domain/speech"
)

const (
	DefaultBaseURL         = "https://api.elevenlabs.io"
	DefaultVoiceID         = "oNn9BiqiwwzLKvft8EmY"
	DefaultModelID         = "eleven_multilingual_v2"
	DefaultStability       = 0.75
	DefaultSimilarityBoost = 0.75

	audioMimeType = "audio/mpeg"
	maxErrorBody  = 512
)

// Client is an ElevenLabs API client. It implements speech.Synthesizer.
type Client struct {
	apiKey          string
	baseURL         string
	voiceID         string
	modelID         string
	stability       float64
	similarityBoost float64
	httpClient      *http.Client
}

// Config represents ElevenLabs client configuration.
// Empty strings and nil voice settings fall back to the package defaults.
type Config struct {
	APIKey          string
	BaseURL         string
	VoiceID         string
	ModelID         string
	Stability       *float64
	SimilarityBoost *float64
	Timeout         time.Duration
}

// TextToSpeechRequest is the body of POST /v1/text-to-speech/{voice_id}.
type TextToSpeechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// VoiceSettings tunes the synthesized voice.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// New creates a new ElevenLabs client.
// An empty API key is accepted: requests are still sent and the service
// answers 401, which surfaces as an authentication failure.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		zlog.Warn().Msg("elevenlabs: API key is not set, synthesis requests will be rejected")
	}

	c := &Client{
		apiKey:          cfg.APIKey,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		voiceID:         cfg.VoiceID,
		modelID:         cfg.ModelID,
		stability:       DefaultStability,
		similarityBoost: DefaultSimilarityBoost,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.Stability != nil {
		c.stability = *cfg.Stability
	}
	if cfg.SimilarityBoost != nil {
		c.similarityBoost = *cfg.SimilarityBoost
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.voiceID == "" {
		c.voiceID = DefaultVoiceID
	}
	if c.modelID == "" {
		c.modelID = DefaultModelID
	}
	if cfg.Timeout <= 0 {
		c.httpClient.Timeout = 30 * time.Second
	}

	return c, nil
}

// Synthesize converts text to MP3 audio.
// Failures are speech.Failure values: 401 is an authentication failure,
// any other non-2xx status a service failure, and anything that prevents
// a response a transport failure.
// Reference: https://elevenlabs.io/docs/api-reference/text-to-speech/convert
func (c *Client) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return speech.Audio{}, errors.New("text is required")
	}

	payload, err := json.Marshal(TextToSpeechRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: VoiceSettings{
			Stability:       c.stability,
			SimilarityBoost: c.similarityBoost,
		},
	})
	if err != nil {
		return speech.Audio{}, errors.Wrap(err, "failed to encode request")
	}

	reqURL := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return speech.Audio{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", audioMimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return speech.Audio{}, speech.NewFailure(speech.FailureTransport, 0, errors.Wrap(err, "failed to send request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		zlog.Error().Msgf("elevenlabs: API error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(excerpt)))

		kind := speech.FailureService
		if resp.StatusCode == http.StatusUnauthorized {
			kind = speech.FailureAuthentication
		}
		return speech.Audio{}, speech.NewFailure(kind, resp.StatusCode,
			errors.Newf("elevenlabs API returned %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, speech.NewFailure(speech.FailureTransport, 0, errors.Wrap(err, "failed to read response body"))
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = audioMimeType
	}

	zlog.Debug().Msgf("elevenlabs: synthesized %d bytes for %d chars (voice=%s model=%s)",
		len(data), len(text), c.voiceID, c.modelID)

	return speech.Audio{Data: data, MimeType: mimeType}, nil
}
