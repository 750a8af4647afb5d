package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/falapai/internal/domain/speech"
)

// FileConfig configures the file output.
type FileConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir" default:"utterances" validate:"required"`
}

// FilePlayer writes every utterance to a directory instead of playing it.
// Used on hosts without an audio device.
type FilePlayer struct {
	config FileConfig
}

// NewFilePlayer creates a file player from a settings map.
func NewFilePlayer(settings map[string]any) (*FilePlayer, error) {
	var config FileConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &FilePlayer{config: config}, nil
}

// Open prepares a stream that writes a to a new file when started.
func (p *FilePlayer) Open(a speech.Audio) (speech.Stream, error) {
	if len(a.Data) == 0 {
		return nil, errors.New("empty audio")
	}
	name := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102-150405"), uuid.New().String()[:8], extension(a.MimeType))
	return &fileStream{
		path: filepath.Join(p.config.Dir, name),
		data: a.Data,
	}, nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "audio/mpeg", "audio/mp3", "":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	default:
		return ".bin"
	}
}

type fileStream struct {
	mu   sync.Mutex
	path string
	data []byte
}

func (s *fileStream) Start(onDone func(err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return errors.New("stream released")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	if err := os.WriteFile(s.path, s.data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write audio file")
	}
	zlog.Info().Msgf("utterance written: path=%s bytes=%d", s.path, len(s.data))

	go onDone(nil)
	return nil
}

// Pause and Resume have nothing to do: the file is complete once started.
func (s *fileStream) Pause() error  { return nil }
func (s *fileStream) Resume() error { return nil }

func (s *fileStream) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}
