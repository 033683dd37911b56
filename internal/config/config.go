// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for the interrupt-demo app.
//
// Supports TOML configuration with sensible defaults and validation. The
// config file location defaults to ~/.interruptible/demo.toml.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/interruptible/internal/util"
)

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

// Config holds the demo application settings.
type Config struct {
	// Workload selects what the demo runs: "animation" or "download".
	Workload string `toml:"workload"`

	// URL is the file fetched by the download workload.
	URL string `toml:"url"`

	// Dest is where the download workload stores the file.
	Dest string `toml:"dest"`

	// RateLimitBytes throttles the download in bytes per second.
	// Zero means unlimited.
	RateLimitBytes int `toml:"rate_limit_bytes"`

	// FrameIntervalMS is the delay between animation steps, in milliseconds.
	FrameIntervalMS int `toml:"frame_interval_ms"`
}

// FrameInterval returns the animation step delay as a duration.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workload:        "animation",
		URL:             "https://dlcdn.apache.org/httpd/CHANGES_2.4",
		Dest:            "download.dat",
		FrameIntervalMS: 50,
	}
}

// =============================================================================
// LOADING AND SAVING
// =============================================================================

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".interruptible", "demo.toml"), nil
}

// Load reads the config at path, falling back to defaults when the file does
// not exist. Values absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to path atomically.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	buf.WriteString("# interrupt-demo configuration file\n\n")

	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for values the demo cannot work with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Workload) {
	case "animation", "download":
	default:
		return fmt.Errorf("invalid workload %q, must be one of: animation, download", c.Workload)
	}

	if c.Workload == "download" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid url scheme %q, must be http or https", u.Scheme)
		}
		if c.Dest == "" {
			return fmt.Errorf("dest must not be empty")
		}
	}

	if c.RateLimitBytes < 0 {
		return fmt.Errorf("rate_limit_bytes cannot be negative")
	}
	if c.FrameIntervalMS <= 0 {
		return fmt.Errorf("frame_interval_ms must be positive")
	}
	return nil
}
