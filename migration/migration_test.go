package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCompatibleSameMajor(t *testing.T) {
	assert.True(t, IsCompatible("3.0.0", "3.1.0"))
	assert.True(t, IsCompatible("3.1.0", "3.1.0"))
}

func TestIsCompatibleDifferentMajor(t *testing.T) {
	assert.False(t, IsCompatible("2.9.0", "3.1.0"))
}

func TestNeedsMigrationOlderMinor(t *testing.T) {
	assert.True(t, NeedsMigration("3.0.0", "3.1.0"))
	assert.False(t, NeedsMigration("3.1.0", "3.1.0"))
	assert.False(t, NeedsMigration("3.2.0", "3.1.0"))
}

func TestNeedsMigrationRejectsIncompatibleMajor(t *testing.T) {
	assert.False(t, NeedsMigration("2.0.0", "3.1.0"))
}

func TestMigrateVaultRejectsIncompatibleMajor(t *testing.T) {
	_, err := MigrateVault(map[string]interface{}{}, "2.0.0", "3.1.0")
	require.Error(t, err)
}

func TestMigrateVaultAddsRecoveryBlock(t *testing.T) {
	vault := map[string]interface{}{"profile": "Black Vault"}

	out, err := MigrateVault(vault, "3.0.0", "3.1.0")
	require.NoError(t, err)

	recovery, ok := out["recovery"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, recovery["enabled"])
	assert.Equal(t, 0, recovery["use_count"])
}

func TestMigrateVaultSetsUnrecoverableForBlackVault(t *testing.T) {
	vault := map[string]interface{}{"profile": "Black Vault"}

	out, err := MigrateVault(vault, "3.0.0", "3.1.0")
	require.NoError(t, err)

	assert.Equal(t, true, out["unrecoverable"])
}

func TestMigrateVaultLeavesNonBlackVaultRecoverable(t *testing.T) {
	vault := map[string]interface{}{"profile": "Quick Lock"}

	out, err := MigrateVault(vault, "3.0.0", "3.1.0")
	require.NoError(t, err)

	assert.Equal(t, false, out["unrecoverable"])
}

func TestMigrateVaultPreservesExistingUnrecoverable(t *testing.T) {
	vault := map[string]interface{}{"profile": "Black Vault", "unrecoverable": false}

	out, err := MigrateVault(vault, "3.0.0", "3.1.0")
	require.NoError(t, err)

	assert.Equal(t, false, out["unrecoverable"])
}

func TestMigrateVaultWrapsLegacyROCIntoTracks(t *testing.T) {
	vault := map[string]interface{}{
		"profile": "Ritual Lock",
		"roc": map[string]interface{}{
			"audio_hash":   "deadbeef",
			"active_start": 1.0,
			"active_end":   2.5,
			"riv":          "cafebabe",
		},
	}

	out, err := MigrateVault(vault, "3.0.0", "3.1.0")
	require.NoError(t, err)

	roc := out["roc"].(map[string]interface{})
	tracks, ok := roc["tracks"].([]interface{})
	require.True(t, ok)
	require.Len(t, tracks, 1)

	track := tracks[0].(map[string]interface{})
	assert.Equal(t, "deadbeef", track["audio_hash"])
	assert.Equal(t, "cafebabe", track["riv"])

	assert.Equal(t, "deadbeef", roc["audio_hash"], "legacy fields must remain in place")
}

func TestMigrateVaultStampsVersionInfo(t *testing.T) {
	vault := map[string]interface{}{"profile": "Quick Lock"}

	out, err := MigrateVault(vault, "3.0.0", "3.1.0")
	require.NoError(t, err)

	vi := out["version_info"].(map[string]interface{})
	assert.Equal(t, "3.1.0", vi["echotome_version"])
}

func TestMigrateVaultSameVersionIsNoop(t *testing.T) {
	vault := map[string]interface{}{"profile": "Quick Lock"}

	out, err := MigrateVault(vault, "3.1.0", "3.1.0")
	require.NoError(t, err)
	_, hasRecovery := out["recovery"]
	assert.False(t, hasRecovery)
}

func TestSummaryDescribesV30ToV31(t *testing.T) {
	summary := Summary("3.0.0", "3.1.0")
	assert.Contains(t, summary, "recovery code support")
	assert.Contains(t, summary, "unrecoverable flag")
}

func TestSummarySameVersion(t *testing.T) {
	assert.Equal(t, "No migration needed (same version)", Summary("3.1.0", "3.1.0"))
}

func TestSummaryCrossMajorIsError(t *testing.T) {
	summary := Summary("2.0.0", "3.1.0")
	assert.Contains(t, summary, "ERROR")
}

func TestValidateVersionCompatibilityDefaultsToV300(t *testing.T) {
	compatible, msg := ValidateVersionCompatibility(map[string]interface{}{})
	assert.True(t, compatible)
	assert.Contains(t, msg, "requires migration")
}

func TestValidateVersionCompatibilityUpToDate(t *testing.T) {
	vault := map[string]interface{}{
		"version_info": map[string]interface{}{"echotome_version": "3.1.0"},
	}
	compatible, msg := ValidateVersionCompatibility(vault)
	assert.True(t, compatible)
	assert.Contains(t, msg, "compatible")
}

func TestValidateVersionCompatibilityRejectsOtherMajor(t *testing.T) {
	vault := map[string]interface{}{
		"version_info": map[string]interface{}{"echotome_version": "4.0.0"},
	}
	compatible, _ := ValidateVersionCompatibility(vault)
	assert.False(t, compatible)
}

func TestCurrentMatchesConstants(t *testing.T) {
	v := Current()
	assert.Equal(t, EchotomeVersion, v.EchotomeVersion)
	assert.Equal(t, KDFVersion, v.KDFVersion)
}
