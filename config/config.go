// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config holds the engine's own filesystem layout and ambient
// toggles. It deliberately carries no cryptographic parameters: KDF
// costs, AEAD choice, and session TTLs live in the profile package and
// are fixed per privacy profile, never operator-configurable.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the engine's on-disk configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// DefaultProfile names the privacy profile used when a caller does
	// not specify one explicitly.
	DefaultProfile string `yaml:"default_profile" json:"default_profile"`
}

// StorageConfig names the filesystem roots the engine reads and writes.
// None of these paths are created with world- or group-readable
// permissions; see identity and session for the exact modes used.
type StorageConfig struct {
	IdentityDir string `yaml:"identity_dir" json:"identity_dir"`
	ROCDir      string `yaml:"roc_dir" json:"roc_dir"`
	SessionsDir string `yaml:"sessions_dir" json:"sessions_dir"`
	RecoveryDir string `yaml:"recovery_dir" json:"recovery_dir"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	PrettyPrint bool   `yaml:"pretty_print" json:"pretty_print"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// Load reads configuration from path and applies defaults for anything
// left unset, then applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	setDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Storage.IdentityDir == "" {
		cfg.Storage.IdentityDir = ".echotome/identity"
	}
	if cfg.Storage.ROCDir == "" {
		cfg.Storage.ROCDir = ".echotome/roc"
	}
	if cfg.Storage.SessionsDir == "" {
		cfg.Storage.SessionsDir = ".echotome/sessions"
	}
	if cfg.Storage.RecoveryDir == "" {
		cfg.Storage.RecoveryDir = ".echotome/recovery"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = "Ritual Lock"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
}

// applyEnvOverrides mirrors the logger's ECHOTOME_LOG_LEVEL convention:
// a handful of directory and level overrides are readable straight from
// the environment without a config file at all.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ECHOTOME_IDENTITY_DIR"); v != "" {
		cfg.Storage.IdentityDir = v
	}
	if v := os.Getenv("ECHOTOME_ROC_DIR"); v != "" {
		cfg.Storage.ROCDir = v
	}
	if v := os.Getenv("ECHOTOME_SESSIONS_DIR"); v != "" {
		cfg.Storage.SessionsDir = v
	}
	if v := os.Getenv("ECHOTOME_RECOVERY_DIR"); v != "" {
		cfg.Storage.RecoveryDir = v
	}
	if v := os.Getenv("ECHOTOME_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ECHOTOME_DEFAULT_PROFILE"); v != "" {
		cfg.DefaultProfile = v
	}
}
