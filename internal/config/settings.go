package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
)

// Settings keys outside the per-code namespace.
const (
	KeyResourceDir      = "simrun.resourceDir"
	KeyLegacyExitReport = "simrun.legacyExitReport"
	KeyMetricsAddr      = "simrun.metricsAddr"

	executableSuffix = ".executablePath"
)

// LoadSettings reads an editor-style settings file: one JSON object with
// flat dotted keys. Unknown keys are ignored.
func LoadSettings(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return settings, nil
}

// ApplySettings copies recognised keys into cfg. Executable paths are only
// taken for the code ids in ids; other tools' *.executablePath keys are
// skipped. Values already set on cfg for the non-executable keys are kept.
func ApplySettings(cfg *Config, settings map[string]any, ids []string) error {
	var errs []string
	for key, raw := range settings {
		switch {
		case strings.HasSuffix(key, executableSuffix):
			id := strings.TrimSuffix(key, executableSuffix)
			if !slices.Contains(ids, id) {
				continue
			}
			s, ok := raw.(string)
			if !ok {
				errs = append(errs, fmt.Sprintf("%s: want string, got %T", key, raw))
				continue
			}
			cfg.SetExecutable(id, s)
		case key == KeyResourceDir:
			if s, ok := raw.(string); ok && cfg.ResourceDir == "" {
				cfg.ResourceDir = s
			}
		case key == KeyLegacyExitReport:
			if b, ok := raw.(bool); ok && b {
				cfg.LegacyExitReport = true
			}
		case key == KeyMetricsAddr:
			if s, ok := raw.(string); ok && cfg.MetricsAddr == "" {
				cfg.MetricsAddr = s
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

// EnvKey returns the environment variable that overrides the executable of
// codeID, e.g. SIMRUN_FRAPCON_EXECUTABLE.
func EnvKey(codeID string) string {
	return "SIMRUN_" + strings.ToUpper(codeID) + "_EXECUTABLE"
}

// Resolve merges the executable sources for ids: settings file, then
// environment, then --exe flags. lookupEnv is usually os.LookupEnv.
func Resolve(cfg *Config, ids []string, lookupEnv func(string) (string, bool)) error {
	if cfg.SettingsPath != "" {
		settings, err := LoadSettings(cfg.SettingsPath)
		if err != nil {
			return err
		}
		if err := ApplySettings(cfg, settings, ids); err != nil {
			return err
		}
	}

	if lookupEnv != nil {
		for _, id := range ids {
			if v, ok := lookupEnv(EnvKey(id)); ok {
				cfg.SetExecutable(id, v)
			}
		}
	}

	for id, path := range cfg.flagExecutables {
		cfg.SetExecutable(id, path)
	}
	return nil
}
