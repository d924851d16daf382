// Package logging configures the process-wide structured logger. Every
// subsystem pulls its logger from here rather than constructing its own,
// so log shape (service, version, timestamp) stays consistent.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu          sync.RWMutex
	base        zerolog.Logger
	initialized bool
)

// Config configures the global logger.
type Config struct {
	Level   string
	Output  io.Writer
	Service string
	Version string
}

// Configure initializes the global zerolog logger.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}

	service := cfg.Service
	if service == "" {
		service = "cablecast"
	}

	base = zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Str("version", cfg.Version).
		Logger()

	initialized = true
}

func ensureInitialized() {
	mu.RLock()
	if initialized {
		mu.RUnlock()
		return
	}
	mu.RUnlock()
	Configure(Config{})
}

// L returns the base logger.
func L() zerolog.Logger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Component returns a child logger tagged with a component name, the
// teacher's convention for scoping log lines to a subsystem.
func Component(name string) zerolog.Logger {
	return L().With().Str("component", name).Logger()
}
