package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InMemory(t *testing.T) {
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get("quickPhrases")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("quickPhrases", []byte(`["Sim","Não"]`)))
	got, err := s.Get("quickPhrases")
	require.NoError(t, err)
	assert.Equal(t, `["Sim","Não"]`, string(got))

	require.NoError(t, s.Set("quickPhrases", []byte(`[]`)))
	got, err = s.Get("quickPhrases")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Set("savedTexts", []byte(`[{"title":"A","content":"x"}]`)))
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("savedTexts")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":"A","content":"x"}]`, string(got))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
