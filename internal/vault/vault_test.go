package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	v, err := Open(dir)
	require.NoError(t, err)

	creds := map[string]string{
		"platform_bearer_token": "bearer-abc",
		"genai_api_key":         "xai-def",
	}
	require.NoError(t, v.Store(creds))

	loaded, err := v.Load()
	require.NoError(t, err)
	require.Equal(t, creds, loaded)

	// Sealed file must not contain plaintext.
	sealed, err := os.ReadFile(filepath.Join(dir, dataFileName))
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "bearer-abc")
}

func TestLoadEmptyVault(t *testing.T) {
	v, err := Open(t.TempDir())
	require.NoError(t, err)

	creds, err := v.Load()
	require.NoError(t, err)
	require.Empty(t, creds)
}

func TestSetPreservesOthers(t *testing.T) {
	v, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, v.Set("first", "1"))
	require.NoError(t, v.Set("second", "2"))
	require.Error(t, v.Set("  ", "blank name"))

	creds, err := v.Load()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"first": "1", "second": "2"}, creds)
}

func TestRotateKeepsCredentials(t *testing.T) {
	dir := t.TempDir()

	v, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, v.Set("token", "secret"))

	oldKey, err := os.ReadFile(filepath.Join(dir, keyFileName))
	require.NoError(t, err)

	require.NoError(t, v.Rotate())

	newKey, err := os.ReadFile(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	require.NotEqual(t, oldKey, newKey)

	creds, err := v.Load()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"token": "secret"}, creds)
}

func TestReopenExistingVault(t *testing.T) {
	dir := t.TempDir()

	v1, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, v1.Set("token", "secret"))

	v2, err := Open(dir)
	require.NoError(t, err)

	creds, err := v2.Load()
	require.NoError(t, err)
	require.Equal(t, "secret", creds["token"])
}

func TestTamperedVaultRejected(t *testing.T) {
	dir := t.TempDir()

	v, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, v.Set("token", "secret"))

	dataPath := filepath.Join(dir, dataFileName)
	sealed, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	require.NoError(t, os.WriteFile(dataPath, sealed, 0o600))

	_, err = v.Load()
	require.Error(t, err)
}
