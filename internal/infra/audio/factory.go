package audio

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/falapai/internal/domain/speech"
	"github.com/osa030/falapai/internal/infra/config"
)

// Output types.
const (
	TypeSpeaker = "speaker"
	TypeFile    = "file"
)

// NewPlayerFromConfig creates the configured audio output.
func NewPlayerFromConfig(cfg config.OutputConfig) (speech.Player, error) {
	zlog.Debug().Msgf("creating audio output: type=%s settings=%+v", cfg.Type, cfg.Settings)

	var (
		player speech.Player
		err    error
	)
	switch cfg.Type {
	case TypeSpeaker:
		player, err = NewSpeakerPlayer(cfg.Settings)
	case TypeFile:
		player, err = NewFilePlayer(cfg.Settings)
	default:
		return nil, errors.Newf("unsupported output type: %s", cfg.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s output", cfg.Type)
	}

	zlog.Info().Msgf("audio output ready: type=%s", cfg.Type)
	return player, nil
}
