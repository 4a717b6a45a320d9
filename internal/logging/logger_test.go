package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"trace", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := parseLevel(tc.input); got != tc.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tc.input, got, tc.expected)
			}
		})
	}
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", "JSON", "", "invalid"} {
		t.Run(format, func(t *testing.T) {
			if NewLogger(format, "info", false) == nil {
				t.Error("NewLogger returned nil")
			}
		})
	}
}

func TestNewLoggerWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "json", "info")
	logger.Info("run_started", "code", "frapcon")

	out := buf.String()
	if !strings.Contains(out, `"msg":"run_started"`) {
		t.Errorf("expected JSON msg, got: %s", out)
	}
	if !strings.Contains(out, `"code":"frapcon"`) {
		t.Errorf("expected code attr, got: %s", out)
	}
}

func TestNewLoggerWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "whatever", "info")
	logger.Info("run_started", "code", "serpent")

	if !strings.Contains(buf.String(), "code=serpent") {
		t.Errorf("expected text format, got: %s", buf.String())
	}
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "text", "warn")

	logger.Info("info msg")
	logger.Warn("warn msg")

	if strings.Contains(buf.String(), "info msg") {
		t.Error("warn level should drop info")
	}
	if !strings.Contains(buf.String(), "warn msg") {
		t.Error("warn level should keep warn")
	}
}

func TestNewLoggerWithWriter_NilWriter(t *testing.T) {
	logger := NewLoggerWithWriter(nil, "text", "info")
	logger.Info("no panic")
}
