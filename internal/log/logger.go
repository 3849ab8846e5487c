// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger. Empty fields
// fall back to UMMS_LOG_LEVEL, UMMS_LOG_SERVICE and VERSION.
type Config struct {
	Level   string
	Output  io.Writer // defaults to os.Stdout
	Service string
	Version string
}

var (
	mu   sync.RWMutex
	base = zerolog.Nop()
)

// Configure (re)initialises the global zerolog logger. init installs the
// environment defaults; the daemon calls it again once config is loaded.
func Configure(cfg Config) {
	level, err := zerolog.ParseLevel(orEnv(cfg.Level, "UMMS_LOG_LEVEL", "info"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	l := zerolog.New(out).With().
		Timestamp().
		Str("service", orEnv(cfg.Service, "UMMS_LOG_SERVICE", "ummsd")).
		Str("version", orEnv(cfg.Version, "VERSION", "")).
		Logger()

	mu.Lock()
	base = l
	mu.Unlock()
}

func orEnv(v, key, def string) string {
	if v != "" {
		return v
	}
	if env := os.Getenv(key); env != "" {
		return env
	}
	return def
}

// SetLevel changes the global level without rebuilding the base logger.
// Used by config hot reload.
func SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str(FieldComponent, component).Logger()
}

func init() {
	Configure(Config{})
}
