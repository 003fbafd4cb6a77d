// Package migration tracks Echotome's own artifact version and
// rewrites vault/ROC documents produced by an older minor version
// forward to the current one. Only one rewrite exists: v3.0 to v3.1.
package migration

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
)

const (
	EchotomeVersion   = "3.1.0"
	KDFVersion        = "argon2id-v1"
	TSCVersion        = "tsc-v1"
	RitualModeVersion = "ritual-v1"
)

// VersionInfo stamps an artifact with the component versions that
// produced it.
type VersionInfo struct {
	EchotomeVersion   string `json:"echotome_version"`
	KDFVersion        string `json:"kdf_version"`
	TSCVersion        string `json:"tsc_version"`
	RitualModeVersion string `json:"ritual_mode_version"`
}

// Current returns the version stamp for this build.
func Current() VersionInfo {
	return VersionInfo{
		EchotomeVersion:   EchotomeVersion,
		KDFVersion:        KDFVersion,
		TSCVersion:        TSCVersion,
		RitualModeVersion: RitualModeVersion,
	}
}

// canonical prefixes a bare "3.1.0" with "v" so golang.org/x/mod/semver
// (which requires the leading v) can parse it.
func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

func major(v string) string {
	return semver.Major(canonical(v))
}

func minor(v string) string {
	// semver.MajorMinor returns "vX.Y"; strip the minor component out.
	mm := semver.MajorMinor(canonical(v))
	parts := strings.SplitN(strings.TrimPrefix(mm, "v"), ".", 2)
	if len(parts) < 2 {
		return "0"
	}
	return parts[1]
}

func minorInt(v string) int {
	n, err := strconv.Atoi(minor(v))
	if err != nil {
		return 0
	}
	return n
}

// IsCompatible reports whether artifactVersion shares a major version
// with currentVersion. Differing majors are never compatible, with or
// without migration.
func IsCompatible(artifactVersion, currentVersion string) bool {
	if !semver.IsValid(canonical(artifactVersion)) || !semver.IsValid(canonical(currentVersion)) {
		return false
	}
	return major(artifactVersion) == major(currentVersion)
}

// NeedsMigration reports whether artifactVersion is an older minor
// version within the same compatible major as currentVersion.
func NeedsMigration(artifactVersion, currentVersion string) bool {
	if !IsCompatible(artifactVersion, currentVersion) {
		return false
	}
	return minorInt(artifactVersion) < minorInt(currentVersion)
}

// MigrateVault returns a rewritten shallow copy of a vault metadata
// document migrated from fromVersion to toVersion; the top-level map of
// vault is not modified, but nested maps (roc, version_info) are shared
// with it and updated in place. When the versions are equal, vault itself
// is returned. Only v3.0 -> v3.1 is implemented; any other
// compatible-but-differing pair is returned unchanged aside from the
// version stamp.
func MigrateVault(vault map[string]interface{}, fromVersion, toVersion string) (map[string]interface{}, error) {
	if !IsCompatible(fromVersion, toVersion) {
		return nil, errs.New(errs.ErrMigrationIncompatible,
			"cannot migrate from "+fromVersion+" to "+toVersion+": incompatible major versions")
	}

	if fromVersion == toVersion {
		return vault, nil
	}

	out := cloneMap(vault)

	if major(fromVersion) == "v3" && minorInt(fromVersion) == 0 && minorInt(toVersion) >= 1 {
		out = migrateV30ToV31(out)
	}

	versionInfo, _ := out["version_info"].(map[string]interface{})
	if versionInfo == nil {
		versionInfo = make(map[string]interface{})
	}
	versionInfo["echotome_version"] = toVersion
	out["version_info"] = versionInfo

	return out, nil
}

func migrateV30ToV31(vault map[string]interface{}) map[string]interface{} {
	if _, ok := vault["recovery"]; !ok {
		vault["recovery"] = map[string]interface{}{
			"enabled":              false,
			"codes_hashes":         []interface{}{},
			"use_count":            0,
			"last_used_timestamp":  nil,
		}
	}

	if _, ok := vault["unrecoverable"]; !ok {
		profileName, _ := vault["profile"].(string)
		vault["unrecoverable"] = profileName == "Black Vault"
	}

	if _, ok := vault["version_info"]; !ok {
		vault["version_info"] = map[string]interface{}{
			"echotome_version":    "3.1.0",
			"kdf_version":         KDFVersion,
			"tsc_version":         TSCVersion,
			"ritual_mode_version": RitualModeVersion,
		}
	}

	if rocRaw, ok := vault["roc"]; ok {
		if roc, ok := rocRaw.(map[string]interface{}); ok {
			if _, hasTracks := roc["tracks"]; !hasTracks {
				singleTrack := map[string]interface{}{
					"audio_hash":   getOr(roc, "audio_hash", ""),
					"active_start": getOr(roc, "active_start", 0),
					"active_end":   getOr(roc, "active_end", 0),
					"riv":          getOr(roc, "riv", ""),
				}
				roc["tracks"] = []interface{}{singleTrack}
				vault["roc"] = roc
			}
		}
	}

	return vault
}

func getOr(m map[string]interface{}, key string, fallback interface{}) interface{} {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Summary renders the same bullet-point changelog text the original
// package's get_migration_summary produced.
func Summary(fromVersion, toVersion string) string {
	if fromVersion == toVersion {
		return "No migration needed (same version)"
	}

	if major(fromVersion) != major(toVersion) {
		return "ERROR: Cannot migrate across major versions (" + fromVersion + " -> " + toVersion + ")"
	}

	var changes []string
	if minorInt(fromVersion) == 0 && minorInt(toVersion) >= 1 {
		changes = []string{
			"- Added recovery code support (disabled by default)",
			"- Added unrecoverable flag for vaults",
			"- Converted ritual metadata to multi-part format",
			"- Added comprehensive version tracking",
		}
	}

	if len(changes) == 0 {
		return "Migration from " + fromVersion + " to " + toVersion + ": no structural changes"
	}

	return "Migration from " + fromVersion + " to " + toVersion + ":\n" + strings.Join(changes, "\n")
}

// ValidateVersionCompatibility checks whether a loaded vault document
// can be used with the current build, defaulting absent version info
// to v3.0.0 as the original package does.
func ValidateVersionCompatibility(vault map[string]interface{}) (bool, string) {
	artifactVersion := "3.0.0"
	if vi, ok := vault["version_info"].(map[string]interface{}); ok {
		if v, ok := vi["echotome_version"].(string); ok && v != "" {
			artifactVersion = v
		}
	}

	if !IsCompatible(artifactVersion, EchotomeVersion) {
		return false, "vault version " + artifactVersion + " is incompatible with Echotome " + EchotomeVersion
	}

	if NeedsMigration(artifactVersion, EchotomeVersion) {
		return true, "vault can be loaded but requires migration from " + artifactVersion + " to " + EchotomeVersion
	}

	return true, "vault version " + artifactVersion + " is compatible"
}
