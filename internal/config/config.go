// Package config loads cablecast's runtime configuration from environment
// variables, with an optional YAML file overlay that can be hot-reloaded.
// This mirrors the teacher's file-over-env layering, trimmed to the much
// smaller set of knobs this spec names.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/cablecast/cablecast/internal/logging"
)

// Config holds every CLI/env-configurable value from spec.md §6.
type Config struct {
	Port                  int    `yaml:"port,omitempty"`
	DataEncryptionKey     string `yaml:"-"` // never serialized
	APIKey                string `yaml:"apiKey,omitempty"`
	AllowPrivateURLs       bool   `yaml:"allowPrivateUrls,omitempty"`
	ScheduleBlockHours     int    `yaml:"scheduleBlockHours,omitempty"`
	ScheduleDayStartHour   int    `yaml:"scheduleDayStartHour,omitempty"`
	DataDir               string `yaml:"dataDir,omitempty"`
}

// Default returns the documented defaults from spec.md §6.
func Default() Config {
	return Config{
		Port:                 3080,
		AllowPrivateURLs:      true,
		ScheduleBlockHours:    24,
		ScheduleDayStartHour:  4,
		DataDir:               "./data",
	}
}

// Load builds a Config from environment variables, then overlays an
// optional YAML file at path if it exists.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Port = n
	}
	c.DataEncryptionKey = os.Getenv("DATA_ENCRYPTION_KEY")
	c.APIKey = os.Getenv("PREVUE_API_KEY")

	if v := os.Getenv("PREVUE_ALLOW_PRIVATE_URLS"); v != "" {
		c.AllowPrivateURLs = !isFalsey(v)
	}
	if v := os.Getenv("SCHEDULE_BLOCK_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid SCHEDULE_BLOCK_HOURS %q: %w", v, err)
		}
		c.ScheduleBlockHours = n
	}
	if v := os.Getenv("SCHEDULE_DAY_START_HOUR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid SCHEDULE_DAY_START_HOUR %q: %w", v, err)
		}
		c.ScheduleDayStartHour = n
	}
	if v := os.Getenv("CABLECAST_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	return nil
}

func isFalsey(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "off":
		return true
	default:
		return false
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc Config
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if fc.Port != 0 {
		c.Port = fc.Port
	}
	if fc.APIKey != "" {
		c.APIKey = fc.APIKey
	}
	if fc.ScheduleBlockHours != 0 {
		c.ScheduleBlockHours = fc.ScheduleBlockHours
	}
	if fc.DataDir != "" {
		c.DataDir = fc.DataDir
	}
	return nil
}

// Validate rejects structurally invalid configuration at boot.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.ScheduleDayStartHour < 0 || c.ScheduleDayStartHour > 23 {
		return fmt.Errorf("config: day_start_hour must be 0-23, got %d", c.ScheduleDayStartHour)
	}
	if c.ScheduleBlockHours <= 0 {
		return fmt.Errorf("config: block_hours must be positive, got %d", c.ScheduleBlockHours)
	}
	return nil
}

// Holder guards a live Config behind a mutex and supports hot-reload of the
// non-fatal fields (those which don't require a restart) via fsnotify,
// mirroring the teacher's ConfigHolder/StartWatcher pattern.
type Holder struct {
	mu        sync.RWMutex
	cfg       Config
	filePath  string
	watcher   *fsnotify.Watcher
	listeners []chan Config
}

func NewHolder(cfg Config, filePath string) *Holder {
	return &Holder{cfg: cfg, filePath: filePath}
}

func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// RegisterListener returns a channel that receives every successfully
// reloaded Config.
func (h *Holder) RegisterListener() <-chan Config {
	ch := make(chan Config, 1)
	h.mu.Lock()
	h.listeners = append(h.listeners, ch)
	h.mu.Unlock()
	return ch
}

// StartWatcher watches the config file for changes and reloads on write
// events. Best-effort: a watcher that fails to start does not fail boot.
func (h *Holder) StartWatcher() error {
	if h.filePath == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watcher init: %w", err)
	}
	if err := w.Add(h.filePath); err != nil {
		_ = w.Close()
		return fmt.Errorf("config: watch %s: %w", h.filePath, err)
	}
	h.watcher = w

	log := logging.Component("config")
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				h.mu.Lock()
				next := h.cfg
				if err := next.applyFile(h.filePath); err != nil {
					log.Warn().Err(err).Msg("config reload failed, keeping previous config")
					h.mu.Unlock()
					continue
				}
				h.cfg = next
				listeners := append([]chan Config(nil), h.listeners...)
				h.mu.Unlock()
				for _, l := range listeners {
					select {
					case l <- next:
					default:
					}
				}
				log.Info().Msg("config reloaded")
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}

func (h *Holder) Close() error {
	if h.watcher != nil {
		return h.watcher.Close()
	}
	return nil
}
