// Package logger configures the process-wide zerolog logger from the
// module's logging configuration and hands out component-scoped child
// loggers.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/identra/engine/internal/config"
)

// Init wires the global logger to the configured level, format, and
// destination. Unknown levels degrade to info rather than failing the
// process.
func Init(cfg config.LoggingConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	writer, err := destination(cfg)
	if err != nil {
		return err
	}
	if strings.EqualFold(cfg.Format, "text") {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(writer).With().
		Timestamp().
		Str("service", "identra").
		Logger()
	return nil
}

// destination resolves the configured output: stdout, a rotated file,
// or a plain append-only file.
func destination(cfg config.LoggingConfig) (io.Writer, error) {
	switch {
	case cfg.Output == "" || cfg.Output == "stdout":
		return os.Stdout, nil
	case cfg.Rotation:
		return &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   true,
		}, nil
	default:
		return os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	}
}

// Logger returns the global logger instance
func Logger() zerolog.Logger {
	return log.Logger
}

// WithComponent returns a logger with a component name
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
