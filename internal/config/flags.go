package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

// executableList is a repeatable "--exe id=path" flag.
type executableList struct {
	m map[string]string
}

func (e *executableList) String() string {
	keys := make([]string, 0, len(e.m))
	for k := range e.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.m[k])
	}
	return strings.Join(parts, ", ")
}

func (e *executableList) Set(value string) error {
	id, path, ok := strings.Cut(value, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return fmt.Errorf("expected id=path, got %q", value)
	}
	e.m[id] = path
	return nil
}

func (e *executableList) Type() string { return "id=path" }

// BindPersistentFlags registers the flags shared by every command.
func BindPersistentFlags(fs *pflag.FlagSet, cfg *Config) {
	if cfg.flagExecutables == nil {
		cfg.flagExecutables = make(map[string]string)
	}

	fs.VarP(&executableList{m: cfg.flagExecutables}, "exe", "e",
		"Executable for a code, e.g. frapcon=/opt/frapcon/bin/frapcon (can repeat)")
	fs.StringVar(&cfg.SettingsPath, "settings", cfg.SettingsPath,
		`Settings JSON with keys like "frapcon.executablePath"`)
	fs.StringVar(&cfg.ResourceDir, "resources", cfg.ResourceDir,
		"Directory with <code>Docs.json and <code>Keywords.json (default: embedded)")
	fs.BoolVar(&cfg.LegacyExitReport, "legacy-exit-report", cfg.LegacyExitReport,
		`Report every exit as "<NAME> finished." regardless of exit code`)

	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, `Log level: "debug", "info", "warn" or "error"`)
}

// BindRunFlags registers the flags of the run command.
func BindRunFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.CodeID, "code", cfg.CodeID, "Code to run (default: detected from the file)")
	fs.BoolVar(&cfg.NoTUI, "no-tui", cfg.NoTUI, "Stream notifications as plain lines instead of the dashboard")
	fs.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the command that would run and exit")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")
}
