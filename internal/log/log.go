// Package log builds the zerolog logger used by the service, the ingest
// pipeline and the CLI.
package log

import (
	"brickcore/internal/config"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Component names attached to log events.
const (
	CompService = "service"
	CompIngest  = "ingest"
	CompStorage = "storage"
	CompReport  = "report"
	CompCLI     = "cli"
)

// New returns a logger writing to w with the configured level and format.
func New(w io.Writer, cfg config.Log) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	out := w
	switch cfg.Format {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: want console or json", cfg.Format)
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// For returns a child logger tagged with component.
func For(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}
