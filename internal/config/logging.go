package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// InitLogger builds the root logger from the logging section. Format
// "json" writes raw zerolog JSON to stderr; anything else gets the
// human-readable console writer. An unparseable level falls back to info.
func InitLogger(cfg LoggingConfig) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
