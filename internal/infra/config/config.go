// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Storage    StorageConfig    `yaml:"storage"`
	Output     OutputConfig     `yaml:"output"`
	Playback   PlaybackConfig   `yaml:"playback"`
	Phrases    PhrasesConfig    `yaml:"phrases"`
	Messages   MessagesConfig   `yaml:"messages"`
}

// ElevenLabsConfig represents ElevenLabs API configuration.
// The API key may be empty; synthesis then fails with an authentication error
// while phrase management keeps working.
type ElevenLabsConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url" default:"https://api.elevenlabs.io" validate:"url"`
	VoiceID    string `yaml:"voice_id" default:"oNn9BiqiwwzLKvft8EmY" validate:"required"`
	ModelID    string `yaml:"model_id" default:"eleven_multilingual_v2" validate:"required"`
	TimeoutSec int    `yaml:"timeout_sec" default:"30" validate:"gte=1,lte=300"`

	// Voice settings are pointers so an explicit 0 is kept; nil means 0.75.
	Stability       *float64 `yaml:"stability" validate:"omitempty,gte=0,lte=1"`
	SimilarityBoost *float64 `yaml:"similarity_boost" validate:"omitempty,gte=0,lte=1"`
}

// StorageConfig represents on-device storage configuration.
type StorageConfig struct {
	Path     string `yaml:"path" default:"data" validate:"required_without=InMemory"`
	InMemory bool   `yaml:"in_memory"`
}

// OutputConfig selects and configures the audio output.
type OutputConfig struct {
	Type     string         `yaml:"type" default:"speaker" validate:"oneof=speaker file"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	SynthesisTimeoutMs int `yaml:"synthesis_timeout_ms" default:"30000" validate:"gte=0,lte=300000"`
}

// PhrasesConfig represents phrase collection configuration.
type PhrasesConfig struct {
	// Seed replaces the built-in quick phrases on first run.
	Seed []string `yaml:"seed"`
}

// MessagesConfig represents user-facing failure messages.
// Empty entries fall back to the built-in messages.
type MessagesConfig struct {
	AuthenticationFailure string `yaml:"authentication_failure"`
	ServiceFailure        string `yaml:"service_failure"`
	TransportFailure      string `yaml:"transport_failure"`
	PlaybackFailure       string `yaml:"playback_failure"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, applies environment
// overrides and defaults, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		c.ElevenLabs.APIKey = v
	}
	if v := os.Getenv("ELEVENLABS_VOICE_ID"); v != "" {
		c.ElevenLabs.VoiceID = v
	}
	if v := os.Getenv("FALAPAI_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	for i, p := range c.Phrases.Seed {
		if p == "" {
			return errors.Newf("phrases.seed[%d] must not be empty", i)
		}
	}
	return nil
}

// Timeout returns the HTTP timeout for synthesis requests.
func (c *ElevenLabsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// SynthesisTimeout returns the upper bound for one synthesis call.
func (c *PlaybackConfig) SynthesisTimeout() time.Duration {
	return time.Duration(c.SynthesisTimeoutMs) * time.Millisecond
}
