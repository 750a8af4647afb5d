// Package audio provides playable audio outputs for synthesized speech.
package audio

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/falapai/internal/domain/speech"
)

// SpeakerConfig configures the local speaker output.
type SpeakerConfig struct {
	SampleRate      int `yaml:"sample_rate" mapstructure:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs        int `yaml:"buffer_ms" mapstructure:"buffer_ms" default:"100" validate:"gte=10,lte=1000"`
	ResampleQuality int `yaml:"resample_quality" mapstructure:"resample_quality" default:"4" validate:"gte=1,lte=64"`
}

// SpeakerPlayer plays MP3 audio on the default output device.
// The device is initialised on first use at the configured sample rate;
// audio at other rates is resampled.
type SpeakerPlayer struct {
	config SpeakerConfig

	initOnce sync.Once
	initErr  error
}

// NewSpeakerPlayer creates a speaker player from a settings map.
func NewSpeakerPlayer(settings map[string]any) (*SpeakerPlayer, error) {
	var config SpeakerConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("speaker output config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &SpeakerPlayer{config: config}, nil
}

// Open decodes audio into a paused-ready stream.
func (p *SpeakerPlayer) Open(a speech.Audio) (speech.Stream, error) {
	source, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(a.Data)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode mp3")
	}

	if err := p.init(); err != nil {
		_ = source.Close()
		return nil, err
	}

	rate := beep.SampleRate(p.config.SampleRate)
	var streamer beep.Streamer = source
	if format.SampleRate != rate {
		streamer = beep.Resample(p.config.ResampleQuality, format.SampleRate, rate, source)
	}

	return &speakerStream{
		source: source,
		ctrl:   &beep.Ctrl{Streamer: streamer},
	}, nil
}

func (p *SpeakerPlayer) init() error {
	p.initOnce.Do(func() {
		rate := beep.SampleRate(p.config.SampleRate)
		buffer := rate.N(time.Duration(p.config.BufferMs) * time.Millisecond)
		if err := speaker.Init(rate, buffer); err != nil {
			p.initErr = errors.Wrap(err, "failed to initialise speaker")
			return
		}
		zlog.Info().Msgf("speaker initialised: sample_rate=%d buffer=%d", p.config.SampleRate, buffer)
	})
	return p.initErr
}

type speakerStream struct {
	mu       sync.Mutex
	source   beep.StreamSeekCloser
	ctrl     *beep.Ctrl
	released bool
}

func (s *speakerStream) Start(onDone func(err error)) error {
	// The callback runs on the speaker goroutine with the speaker lock held.
	speaker.Play(beep.Seq(s.ctrl, beep.Callback(func() {
		err := s.source.Err()
		go onDone(err)
	})))
	return nil
}

func (s *speakerStream) Pause() error {
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (s *speakerStream) Resume() error {
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Release detaches the stream from the mixer and closes the decoder.
func (s *speakerStream) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil
	}
	s.released = true

	speaker.Lock()
	s.ctrl.Streamer = nil
	speaker.Unlock()

	return s.source.Close()
}
