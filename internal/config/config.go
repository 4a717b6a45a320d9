// Package config provides configuration management for simrun.
package config

import (
	"sort"
	"strings"
)

// Config holds all configuration options.
type Config struct {
	// Executables maps code id to the executable path. Resolved from the
	// settings file, the environment and --exe flags, in that order.
	Executables map[string]string `json:"executables"`

	// ResourceDir holds <id>Docs.json and <id>Keywords.json. Empty means
	// the embedded tables.
	ResourceDir string `json:"resource_dir"`

	// SettingsPath is a JSON file with editor-style flat keys.
	SettingsPath string `json:"settings_path"`

	// Exit reporting
	LegacyExitReport bool `json:"legacy_exit_report"`

	// Observability
	MetricsAddr string `json:"metrics_addr"`
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text
	LogLevel    string `json:"log_level"`

	// run command
	CodeID        string `json:"code"`
	NoTUI         bool   `json:"no_tui"`
	PrintCmd      bool   `json:"print_cmd"`
	SkipPreflight bool   `json:"skip_preflight"`

	// flagExecutables holds --exe values until Resolve applies them last.
	flagExecutables map[string]string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Executables:     make(map[string]string),
		MetricsAddr:     "", // disabled; e.g. 127.0.0.1:17092
		LogFormat:       "text",
		LogLevel:        "info",
		flagExecutables: make(map[string]string),
	}
}

// Executable returns the configured executable path for codeID, trimmed.
// Blank means not configured.
func (c *Config) Executable(codeID string) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Executables[codeID])
}

// Configured returns the code ids that have a non-blank executable, sorted.
func (c *Config) Configured() []string {
	var ids []string
	for id := range c.Executables {
		if c.Executable(id) != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SetExecutable records an executable path for codeID.
func (c *Config) SetExecutable(codeID, path string) {
	if c.Executables == nil {
		c.Executables = make(map[string]string)
	}
	c.Executables[codeID] = path
}
