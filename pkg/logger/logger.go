package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Service string
	Level   string
	Pretty  bool
}

// Init builds the process logger and installs it as the zerolog global so
// packages can log through github.com/rs/zerolog/log.
func Init(cfg Config) zerolog.Logger {
	l := New(os.Stdout, cfg)
	log.Logger = l
	return l
}

func New(out io.Writer, cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	service := cfg.Service
	if service == "" {
		service = "velaris"
	}
	return zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Logger()
}
