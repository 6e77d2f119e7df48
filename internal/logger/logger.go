package logger

import (
	"github.com/rs/zerolog"

	"github.com/secretlens/secretlens/internal/config"
)

// New creates a new logger instance from application configuration.
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	return NewLoggerBuilder().WithConfig(cfg).Build()
}
