package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration against the known code ids.
// Returns nil if valid, or every problem joined.
func Validate(cfg *Config, ids []string) error {
	var errs []error

	for id := range cfg.Executables {
		if !slices.Contains(ids, id) {
			errs = append(errs, ValidationError{
				Field:   id + executableSuffix,
				Message: fmt.Sprintf("unknown code %q (known: %s)", id, strings.Join(ids, ", ")),
			})
		}
	}

	if cfg.CodeID != "" && !slices.Contains(ids, cfg.CodeID) {
		errs = append(errs, ValidationError{
			Field:   "code",
			Message: fmt.Sprintf("unknown code %q", cfg.CodeID),
		})
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: `must be "json" or "text"`,
		})
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: `must be "debug", "info", "warn" or "error"`,
		})
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics_addr",
				Message: err.Error(),
			})
		}
	}

	if cfg.ResourceDir != "" {
		fi, err := os.Stat(cfg.ResourceDir)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{Field: "resource_dir", Message: err.Error()})
		case !fi.IsDir():
			errs = append(errs, ValidationError{Field: "resource_dir", Message: "not a directory"})
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
