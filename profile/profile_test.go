package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByAlias(t *testing.T) {
	cases := []string{"quick", "Quick Lock", "QUICKLOCK", "q"}
	for _, name := range cases {
		p, ok := Get(name)
		require.True(t, ok, "expected alias %q to resolve", name)
		assert.Equal(t, "Quick Lock", p.Name)
	}
}

func TestGetUnknownProfile(t *testing.T) {
	_, ok := Get("nonexistent")
	assert.False(t, ok)
}

func TestBlackVaultInvariants(t *testing.T) {
	p, ok := Get("black vault")
	require.True(t, ok)

	assert.True(t, p.Deniable)
	assert.True(t, p.RequiresMic)
	assert.True(t, p.RequiresTiming)
	assert.Equal(t, 1.0, p.AudioWeight)
	assert.False(t, p.AllowPlaintextDisk)
	assert.False(t, p.AllowsVisualRitual)
	assert.True(t, p.SecureDelete)
}

func TestQuickLockHasNoSecureDelete(t *testing.T) {
	p, ok := Get("quick lock")
	require.True(t, ok)
	assert.False(t, p.SecureDelete)
}

func TestListReturnsThreeProfiles(t *testing.T) {
	profiles := List()
	assert.Len(t, profiles, 3)
}

func TestValidateRitualMode(t *testing.T) {
	quick, _ := Get("quick")
	vault, _ := Get("black vault")

	assert.True(t, ValidateRitualMode(quick, "mic"))
	assert.True(t, ValidateRitualMode(quick, "file"))
	assert.True(t, ValidateRitualMode(quick, "visual"))

	assert.True(t, ValidateRitualMode(vault, "mic"))
	assert.False(t, ValidateRitualMode(vault, "file"))
	assert.False(t, ValidateRitualMode(vault, "visual"))

	assert.False(t, ValidateRitualMode(quick, "nonsense"))
}

func TestInfoMentionsAllProfiles(t *testing.T) {
	out := Info()
	assert.Contains(t, out, "Quick Lock")
	assert.Contains(t, out, "Ritual Lock")
	assert.Contains(t, out, "Black Vault")
}
