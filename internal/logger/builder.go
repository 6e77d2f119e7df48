package logger

import (
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/secretlens/secretlens/internal/common"
	"github.com/secretlens/secretlens/internal/config"
)

// LoggerBuilder provides fluent interface for building loggers
type LoggerBuilder struct {
	config LoggerConfig
}

// NewLoggerBuilder creates a new logger builder
func NewLoggerBuilder() *LoggerBuilder {
	return &LoggerBuilder{
		config: DefaultLoggerConfig(),
	}
}

// WithConfig converts application LogConfig into the builder's configuration
func (lb *LoggerBuilder) WithConfig(cfg config.LogConfig) *LoggerBuilder {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	lb.config = LoggerConfig{
		Level:         level,
		Format:        ParseFormat(cfg.LogFormat),
		EnableConsole: true,
		EnableFile:    cfg.LogFile != "",
		FilePath:      cfg.LogFile,
		MaxSizeMB:     cfg.MaxLogSizeMB,
		MaxBackups:    cfg.MaxLogBackups,
	}
	if lb.config.MaxSizeMB <= 0 {
		lb.config.MaxSizeMB = 100
	}
	if lb.config.MaxBackups < 0 {
		lb.config.MaxBackups = 3
	}
	return lb
}

// WithLevel overrides the log level
func (lb *LoggerBuilder) WithLevel(level zerolog.Level) *LoggerBuilder {
	lb.config.Level = level
	return lb
}

// Build creates the logger instance
func (lb *LoggerBuilder) Build() (zerolog.Logger, error) {
	if lb.config.EnableFile && lb.config.FilePath == "" {
		return zerolog.Logger{}, common.NewValidationError("file_path", lb.config.FilePath, "file path required when file logging enabled")
	}

	writers := lb.createWriters()
	if len(writers) == 0 {
		return zerolog.Logger{}, common.NewError("no output writers configured")
	}

	multiWriter := zerolog.MultiLevelWriter(writers...)
	instance := zerolog.New(multiWriter).
		Level(lb.config.Level).
		With().
		Timestamp().
		Logger()

	zerolog.SetGlobalLevel(lb.config.Level)
	stdlog.SetOutput(instance)
	stdlog.SetFlags(0)

	return instance, nil
}

// createWriters creates the appropriate writers based on configuration
func (lb *LoggerBuilder) createWriters() []io.Writer {
	var writers []io.Writer

	if lb.config.EnableConsole {
		writers = append(writers, consoleWriter(os.Stderr, lb.config.Format, false))
	}

	if lb.config.EnableFile {
		writers = append(writers, lb.createFileWriter())
	}

	return writers
}

// createFileWriter creates a rotating file writer
func (lb *LoggerBuilder) createFileWriter() io.Writer {
	finalPath := lb.config.FilePath

	// Ensure directory exists; lumberjack surfaces the error on first
	// write if this fails.
	_ = os.MkdirAll(filepath.Dir(finalPath), 0755)

	rotated := &lumberjack.Logger{
		Filename:   finalPath,
		MaxSize:    lb.config.MaxSizeMB,
		LocalTime:  true,
		MaxBackups: lb.config.MaxBackups,
	}

	// File output in console format still needs colors stripped.
	if lb.config.Format == FormatConsole || lb.config.Format == FormatText {
		return consoleWriter(rotated, lb.config.Format, true)
	}
	return rotated
}

// consoleWriter wraps out with the format-appropriate writer
func consoleWriter(out io.Writer, format LogFormat, noColor bool) io.Writer {
	if format == FormatJSON {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:     out,
		NoColor: noColor || format == FormatText,
	}
}
