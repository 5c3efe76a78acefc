package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLogLevel(tt.input), "ParseLogLevel(%q)", tt.input)
	}
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerConfig{Level: slog.LevelWarn, Output: &buf, Component: "test"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", slog.Int("n", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "component=test")
	assert.Contains(t, out, "n=3")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerConfig{Level: slog.LevelDebug, Format: "JSON", Output: &buf})
	require.NoError(t, err)

	logger.Debug("event", slog.String("k", "v"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "event", record["msg"])
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "v", record["k"])
	assert.NotContains(t, record, "component")
}

func TestNewLogger_BadFormat(t *testing.T) {
	_, err := NewLogger(LoggerConfig{Format: "xml"})
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestDefaultLoggerConfig(t *testing.T) {
	cfg := DefaultLoggerConfig()
	assert.Equal(t, slog.LevelInfo, cfg.Level)
	assert.Equal(t, LogFormatText, cfg.Format)
	assert.NotNil(t, cfg.Output)
}
