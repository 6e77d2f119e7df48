package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretlens/secretlens/internal/config"
	"github.com/secretlens/secretlens/internal/logger"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"bogus", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		level, err := logger.ParseLevel(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
		} else {
			assert.NoError(t, err, "input %q", tt.input)
		}
		assert.Equal(t, tt.expected, level, "input %q", tt.input)
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, logger.FormatJSON, logger.ParseFormat("json"))
	assert.Equal(t, logger.FormatText, logger.ParseFormat("text"))
	assert.Equal(t, logger.FormatConsole, logger.ParseFormat("console"))
	assert.Equal(t, logger.FormatConsole, logger.ParseFormat(""))
	assert.Equal(t, logger.FormatConsole, logger.ParseFormat("unknown"))
}

func TestNew_ConsoleOnly(t *testing.T) {
	cfg := config.NewDefaultLogConfig()
	log, err := logger.New(cfg)
	require.NoError(t, err)

	// Smoke check that the logger is usable.
	log.Info().Str("component", "test").Msg("logger initialized")
}

func TestNew_FileWriter(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logger-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	logPath := filepath.Join(tempDir, "logs", "secretlens.log")
	cfg := config.LogConfig{
		LogFile:   logPath,
		LogFormat: "json",
		LogLevel:  "debug",
	}

	log, err := logger.New(cfg)
	require.NoError(t, err)

	log.Debug().Msg("file writer smoke test")

	_, err = os.Stat(logPath)
	assert.NoError(t, err, "log file should be created on first write")
}
