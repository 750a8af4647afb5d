package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/falapai/internal/domain/speech"
	"github.com/osa030/falapai/internal/infra/config"
)

func TestNewPlayerFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.OutputConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "speaker with defaults",
			cfg:  config.OutputConfig{Type: TypeSpeaker},
		},
		{
			name: "speaker with invalid sample rate",
			cfg: config.OutputConfig{
				Type:     TypeSpeaker,
				Settings: map[string]any{"sample_rate": 100},
			},
			wantErr: true,
			errMsg:  "SampleRate",
		},
		{
			name: "file with dir",
			cfg: config.OutputConfig{
				Type:     TypeFile,
				Settings: map[string]any{"dir": "/tmp/falapai"},
			},
		},
		{
			name: "file with wrong setting type",
			cfg: config.OutputConfig{
				Type:     TypeFile,
				Settings: map[string]any{"dir": []string{"a"}},
			},
			wantErr: true,
		},
		{
			name:    "unsupported type",
			cfg:     config.OutputConfig{Type: "bluetooth"},
			wantErr: true,
			errMsg:  "unsupported output type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player, err := NewPlayerFromConfig(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, player)
		})
	}
}

func TestNewSpeakerPlayer_Defaults(t *testing.T) {
	p, err := NewSpeakerPlayer(nil)
	require.NoError(t, err)
	assert.Equal(t, 44100, p.config.SampleRate)
	assert.Equal(t, 100, p.config.BufferMs)
	assert.Equal(t, 4, p.config.ResampleQuality)
}

func TestSpeakerPlayer_RejectsNonMP3(t *testing.T) {
	p, err := NewSpeakerPlayer(nil)
	require.NoError(t, err)

	_, err = p.Open(speech.Audio{Data: []byte("definitely not audio"), MimeType: "audio/mpeg"})
	assert.Error(t, err)
}

func TestFilePlayer_WritesUtterance(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	p, err := NewFilePlayer(map[string]any{"dir": dir})
	require.NoError(t, err)

	stream, err := p.Open(speech.Audio{Data: []byte("ID3-fake"), MimeType: "audio/mpeg"})
	require.NoError(t, err)

	done := make(chan error, 1)
	require.NoError(t, stream.Start(func(err error) { done <- err }))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("onDone was not called")
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".mp3", filepath.Ext(entries[0].Name()))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-fake"), data)

	assert.NoError(t, stream.Pause())
	assert.NoError(t, stream.Resume())
	assert.NoError(t, stream.Release())
	assert.NoError(t, stream.Release())
}

func TestFilePlayer_ReleasedStreamCannotStart(t *testing.T) {
	p, err := NewFilePlayer(map[string]any{"dir": t.TempDir()})
	require.NoError(t, err)

	stream, err := p.Open(speech.Audio{Data: []byte("x")})
	require.NoError(t, err)
	require.NoError(t, stream.Release())

	assert.Error(t, stream.Start(func(error) {}))
}

func TestFilePlayer_RejectsEmptyAudio(t *testing.T) {
	p, err := NewFilePlayer(nil)
	require.NoError(t, err)

	_, err = p.Open(speech.Audio{})
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".mp3", extension("audio/mpeg"))
	assert.Equal(t, ".mp3", extension(""))
	assert.Equal(t, ".wav", extension("audio/wav"))
	assert.Equal(t, ".bin", extension("application/octet-stream"))
}
