// Package config holds run settings: defaults, an optional JSON5 file, and validation.
//
// A config file may sit next to a "<name>.local.<ext>" file whose non-zero values take
// precedence, so machine-specific overrides stay out of the shared file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"github.com/pfrederiksen/collegenav/internal/logger"
	"github.com/pfrederiksen/collegenav/internal/matcher"
	"github.com/pfrederiksen/collegenav/internal/output"
	"github.com/pfrederiksen/collegenav/internal/runner"
	"github.com/pfrederiksen/collegenav/internal/session"
)

// Duration is a time.Duration written as "5s" or "1m30s" in config files
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the full set of run settings
type Config struct {
	Input             string   `json:"input"`
	IDsFile           string   `json:"ids_file"`
	OutputDir         string   `json:"output_dir"`
	Format            string   `json:"format"`
	BaseURL           string   `json:"base_url"`
	UserAgent         string   `json:"user_agent"`
	MaxAttempts       int      `json:"max_attempts"`
	MaxPages          int      `json:"max_pages"`
	RetryDelay        Duration `json:"retry_delay"`
	WaitTimeout       Duration `json:"wait_timeout"`
	RequestTimeout    Duration `json:"request_timeout"`
	RequestsPerSecond float64  `json:"requests_per_second"`
	LogLevel          string   `json:"log_level"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Input:             "input.csv",
		IDsFile:           "ids.json",
		OutputDir:         ".",
		Format:            string(output.FormatXLSX),
		BaseURL:           matcher.DefaultBaseURL,
		UserAgent:         session.DefaultUserAgent,
		MaxAttempts:       runner.DefaultMaxAttempts,
		MaxPages:          matcher.DefaultMaxPages,
		RetryDelay:        Duration(2 * time.Second),
		WaitTimeout:       Duration(matcher.DefaultWaitTimeout),
		RequestTimeout:    Duration(session.DefaultRequestTimeout),
		RequestsPerSecond: 2,
		LogLevel:          string(logger.LevelInfo),
	}
}

// Load overlays the file at path, then its .local sibling if present, onto the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := overlay(cfg, path); err != nil {
		return nil, err
	}

	local := localPath(path)
	if err := overlay(cfg, local); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	} else if err == nil {
		logger.Debug("Merged local config overrides", logger.Fields{"path": local})
	}

	return cfg, nil
}

func overlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	var file Config
	if err := json5.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := mergo.Merge(cfg, file, mergo.WithOverride); err != nil {
		return fmt.Errorf("merging config %s: %w", path, err)
	}
	return nil
}

// localPath maps "dir/name.ext" to "dir/name.local.ext"
func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// Validate checks the settings are usable
func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("input file is required")
	}
	if c.IDsFile == "" {
		return errors.New("ids file is required")
	}
	if _, err := output.ParseFormat(c.Format); err != nil {
		return err
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("base url %q must be an absolute http(s) URL", c.BaseURL)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max pages must be at least 1, got %d", c.MaxPages)
	}
	if c.RetryDelay < 0 {
		return errors.New("retry delay must not be negative")
	}
	if c.WaitTimeout <= 0 || c.RequestTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("requests per second must not be negative")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
