package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateKey_PersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.key")

	first, err := LoadOrCreateKey(path)
	require.NoError(t, err)

	second, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSealOpenRoundtrip(t *testing.T) {
	key, err := LoadOrCreateKey(filepath.Join(t.TempDir(), "test.key"))
	require.NoError(t, err)

	box, err := Seal(key, []byte("bearer-token"))
	require.NoError(t, err)
	assert.NotContains(t, string(box), "bearer-token")

	plaintext, err := Open(key, box)
	require.NoError(t, err)
	assert.Equal(t, "bearer-token", string(plaintext))
}

func TestOpen_WrongKeyFails(t *testing.T) {
	dir := t.TempDir()
	key, err := LoadOrCreateKey(filepath.Join(dir, "a.key"))
	require.NoError(t, err)
	other, err := LoadOrCreateKey(filepath.Join(dir, "b.key"))
	require.NoError(t, err)

	box, err := Seal(key, []byte("bearer-token"))
	require.NoError(t, err)

	_, err = Open(other, box)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestOpen_TruncatedBoxFails(t *testing.T) {
	key, err := LoadOrCreateKey(filepath.Join(t.TempDir(), "test.key"))
	require.NoError(t, err)

	_, err = Open(key, []byte("short"))
	assert.ErrorIs(t, err, ErrOpenFailed)
}
