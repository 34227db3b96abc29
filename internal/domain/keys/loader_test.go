package keys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Anvoria/authgate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndLoad_HS256(t *testing.T) {
	dir := t.TempDir()

	gen, err := GenerateKey(dir, HS256, "2026-10", 0)
	require.NoError(t, err)
	require.Len(t, gen.Files, 1)

	info, err := os.Stat(gen.Files[0])
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	k, err := LoadKey(dir, HS256, "2026-10")
	require.NoError(t, err)
	assert.Equal(t, "2026-10", k.ID())
	assert.Equal(t, HS256, k.Algorithm())
	assert.True(t, k.CanSign())

	_, err = GenerateKey(dir, HS256, "2026-10", 0)
	assert.ErrorIs(t, err, ErrKeyExists)
}

func TestGenerateAndLoad_RS256(t *testing.T) {
	dir := t.TempDir()

	_, err := GenerateKey(dir, RS256, "r1", 1024)
	assert.Error(t, err)

	gen, err := GenerateKey(dir, RS256, "r1", 2048)
	require.NoError(t, err)
	require.Len(t, gen.Files, 2)

	k, err := LoadKey(dir, RS256, "r1")
	require.NoError(t, err)
	assert.True(t, k.CanSign())
	assert.NotNil(t, k.PublicRSA())

	t.Run("public key only", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(dir, PrivateFileName("r1"))))

		k, err := LoadKey(dir, RS256, "r1")
		require.NoError(t, err)
		assert.False(t, k.CanSign())
		assert.NotNil(t, k.PublicRSA())
	})
}

func TestLoadKey_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadKey(filepath.Join(dir, "missing"), HS256, "k1")
		var target *ErrKeysDirectoryNotAccessible
		assert.ErrorAs(t, err, &target)
	})

	t.Run("path is a file", func(t *testing.T) {
		file := filepath.Join(dir, "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0600))
		_, err := LoadKey(file, HS256, "k1")
		var target *ErrKeysPathNotDirectory
		assert.ErrorAs(t, err, &target)
	})

	t.Run("unknown kid", func(t *testing.T) {
		_, err := LoadKey(dir, HS256, "nope")
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("path traversal", func(t *testing.T) {
		_, err := LoadKey(dir, HS256, "../etc")
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("short secret", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, SecretFileName("short")), []byte("abc\n"), 0600))
		_, err := LoadKey(dir, HS256, "short")
		assert.ErrorIs(t, err, ErrSecretTooShort)
	})

	t.Run("garbage pem", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, PrivateFileName("bad")), []byte("not pem"), 0600))
		_, err := LoadKey(dir, RS256, "bad")
		var target *ErrFailedToDecodePEM
		assert.ErrorAs(t, err, &target)
	})
}

func TestLoadKeyStore(t *testing.T) {
	dir := t.TempDir()
	_, err := GenerateKey(dir, HS256, "k1", 0)
	require.NoError(t, err)
	_, err = GenerateKey(dir, HS256, "k2", 0)
	require.NoError(t, err)

	t.Run("from files", func(t *testing.T) {
		ks, err := LoadKeyStore(config.AuthConfig{
			Algorithm:   "HS256",
			KeysPath:    dir,
			CurrentKID:  "k2",
			PreviousKID: "k1",
		})
		require.NoError(t, err)
		assert.Equal(t, Status{Algorithm: HS256, CurrentKID: "k2", PreviousKID: "k1"}, ks.Status())
	})

	t.Run("environment secrets win", func(t *testing.T) {
		ks, err := LoadKeyStore(config.AuthConfig{
			Algorithm:     "HS256",
			KeysPath:      filepath.Join(dir, "unused"),
			CurrentKID:    "env",
			CurrentSecret: strings.Repeat("s", 40),
		})
		require.NoError(t, err)
		assert.Equal(t, "env", ks.Current().ID())
		assert.Nil(t, ks.Previous())
	})

	t.Run("missing previous fails", func(t *testing.T) {
		_, err := LoadKeyStore(config.AuthConfig{
			Algorithm:   "HS256",
			KeysPath:    dir,
			CurrentKID:  "k2",
			PreviousKID: "k0",
		})
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		_, err := LoadKeyStore(config.AuthConfig{Algorithm: "ES256", KeysPath: dir, CurrentKID: "k2"})
		assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})
}

func TestListKeys(t *testing.T) {
	dir := t.TempDir()
	_, err := GenerateKey(dir, HS256, "b", 0)
	require.NoError(t, err)
	_, err = GenerateKey(dir, RS256, "a", 2048)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0600))

	list, err := ListKeys(dir)
	require.NoError(t, err)
	assert.Equal(t, []KeyFile{
		{KID: "a", Algorithm: RS256, HasPrivate: true},
		{KID: "b", Algorithm: HS256, HasPrivate: true},
	}, list)
}
