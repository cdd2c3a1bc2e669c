package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoEntry struct {
	Source string `yaml:"source"`
	Kind   string `yaml:"kind"`
}

func TestFileStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "core.yaml")

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("repos", map[string]repoEntry{
		"err-hello": {Source: "https://example.com/err-hello.git", Kind: "git"},
	}))
	require.NoError(t, s.Set("bl_plugins", []string{"Spam", "Eggs"}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	var repos map[string]repoEntry
	ok, err := reopened.Get("repos", &repos)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "git", repos["err-hello"].Kind)

	var bl []string
	ok, err = reopened.Get("bl_plugins", &bl)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Spam", "Eggs"}, bl)
}

func TestFileStore_MissingKey(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "core.yaml"))
	require.NoError(t, err)

	out := []string{"untouched"}
	ok, err := s.Get("configs", &out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"untouched"}, out)

	has, err := s.Has("configs")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestFileStore_DeleteAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("k", 1))
	require.NoError(t, s.Delete("k"))
	require.NoError(t, s.Delete("never-set"))

	has, err := s.Has("k")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.Close())
	assert.True(t, errors.Is(s.Set("k", 2), ErrClosed))
	_, err = s.Get("k", new(int))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "core.yaml"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Set("counter", i))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "core.yaml", entries[0].Name())
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repos: [unclosed"), 0o600))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestMemoryStore_CopySemantics(t *testing.T) {
	m := NewMemory()
	list := []string{"a"}
	require.NoError(t, m.Set("bl_plugins", list))
	list[0] = "mutated"

	var got []string
	ok, err := m.Get("bl_plugins", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, got)
}
