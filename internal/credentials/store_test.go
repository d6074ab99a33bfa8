package credentials

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	cred, err := s.Key(ctx, "groq")
	require.NoError(t, err)
	assert.Equal(t, "groq", cred.Backend)
	assert.False(t, cred.Present())

	_, ok, err := s.SelectedBackend(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetKey(ctx, "groq", "gsk-1"))
	require.NoError(t, s.SetKey(ctx, "groq", "gsk-2"))
	require.NoError(t, s.SetKey(ctx, "gemini", "AIza"))
	require.NoError(t, s.SetSelectedBackend(ctx, "gemini"))

	cred, err = s.Key(ctx, "groq")
	require.NoError(t, err)
	assert.Equal(t, "gsk-2", cred.APIKey)
	assert.True(t, cred.Present())

	cred, err = s.Key(ctx, "gemini")
	require.NoError(t, err)
	assert.Equal(t, "AIza", cred.APIKey)

	backend, ok, err := s.SelectedBackend(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gemini", backend)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStoreInMemory(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "navguide.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SetKey(ctx, "openai", "sk-test"))
	require.NoError(t, s.SetSelectedBackend(ctx, "openai"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	cred, err := s.Key(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cred.APIKey)

	backend, ok, err := s.SelectedBackend(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "openai", backend)
}
