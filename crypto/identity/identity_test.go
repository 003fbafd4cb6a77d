package identity

import (
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGeneratesOnFirstUse(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "identity")

	id, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, id.PrivateKey, 64)
	assert.Len(t, id.PublicKey, 32)
}

func TestLoadIsStableAcrossCalls(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "identity")

	first, err := Load(dir)
	require.NoError(t, err)

	second, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, first.PublicKey, second.PublicKey)
	assert.Equal(t, first.PrivateKey, second.PrivateKey)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "identity")
	id, err := Load(dir)
	require.NoError(t, err)

	msg := []byte("ritual ownership certificate payload")
	sig := id.Sign(msg)

	assert.True(t, Verify(msg, sig, id.PublicKey))
	assert.False(t, Verify([]byte("tampered"), sig, id.PublicKey))
}

func TestResetInvalidatesOldKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "identity")
	original, err := Load(dir)
	require.NoError(t, err)

	fresh, err := Reset(dir)
	require.NoError(t, err)

	assert.NotEqual(t, original.PublicKey, fresh.PublicKey)

	reloaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, fresh.PublicKey, reloaded.PublicKey)
}

func TestFingerprintIsStable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "identity")
	id, err := Load(dir)
	require.NoError(t, err)

	fp1 := Fingerprint(id.PublicKey)
	fp2 := Fingerprint(id.PublicKey)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 16)
	assert.Equal(t, strings.ToUpper(hex.EncodeToString(id.PublicKey[:8])), fp1)
}

func TestExportImportPublicBase64(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "identity")
	id, err := Load(dir)
	require.NoError(t, err)

	encoded := ExportPublicBase64(id.PublicKey)
	decoded, err := ImportPublicBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, id.PublicKey, decoded)
}

func TestImportPublicBase64RejectsWrongLength(t *testing.T) {
	_, err := ImportPublicBase64("dG9vc2hvcnQ=")
	assert.Error(t, err)
}
