package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ".echotome/identity", cfg.Storage.IdentityDir)
	assert.Equal(t, ".echotome/roc", cfg.Storage.ROCDir)
	assert.Equal(t, "Ritual Lock", cfg.DefaultProfile)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
storage:
  identity_dir: /var/lib/echotome/identity
default_profile: "Black Vault"
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/echotome/identity", cfg.Storage.IdentityDir)
	assert.Equal(t, "Black Vault", cfg.DefaultProfile)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched fields still get their defaults
	assert.Equal(t, ".echotome/roc", cfg.Storage.ROCDir)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ECHOTOME_IDENTITY_DIR", "/tmp/override-identity")
	t.Setenv("ECHOTOME_DEFAULT_PROFILE", "Quick Lock")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override-identity", cfg.Storage.IdentityDir)
	assert.Equal(t, "Quick Lock", cfg.DefaultProfile)
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out.yaml")

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.DefaultProfile = "Black Vault"

	require.NoError(t, Save(cfg, path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Black Vault", reloaded.DefaultProfile)
}
