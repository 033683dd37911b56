// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "animation", cfg.Workload)
	assert.Equal(t, 50, cfg.FrameIntervalMS)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.toml")

	cfg := Default()
	cfg.Workload = "download"
	cfg.URL = "https://example.com/file.tar.gz"
	cfg.Dest = "file.tar.gz"
	cfg.RateLimitBytes = 1 << 20
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.toml")
	writeFile(t, path, "workload = \"animation\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.FrameIntervalMS, "unset values keep defaults")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mut    func(*Config)
		errMsg string
	}{
		{"bad workload", func(c *Config) { c.Workload = "dance" }, "invalid workload"},
		{"bad url scheme", func(c *Config) { c.Workload = "download"; c.URL = "ftp://x" }, "scheme"},
		{"empty dest", func(c *Config) { c.Workload = "download"; c.Dest = "" }, "dest"},
		{"negative rate", func(c *Config) { c.RateLimitBytes = -1 }, "rate_limit_bytes"},
		{"zero interval", func(c *Config) { c.FrameIntervalMS = 0 }, "frame_interval_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.toml")
	writeFile(t, path, "workload = \"dance\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}
