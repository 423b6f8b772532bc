package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "input.csv", cfg.Input)
	assert.Equal(t, "ids.json", cfg.IDsFile)
	assert.Equal(t, "xlsx", cfg.Format)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 100, cfg.MaxPages)
	assert.Equal(t, Duration(5*time.Second), cfg.WaitTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collegenav.json5")
	writeFile(t, path, `{
  // JSON5 allows comments, unquoted keys and trailing commas
  input: 'schools.xlsx',
  format: "sqlite",
  max_attempts: 5,
  wait_timeout: '10s',
  requests_per_second: 0.5,
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "schools.xlsx", cfg.Input)
	assert.Equal(t, "sqlite", cfg.Format)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, Duration(10*time.Second), cfg.WaitTimeout)
	assert.Equal(t, 0.5, cfg.RequestsPerSecond)
	assert.Equal(t, "ids.json", cfg.IDsFile, "unset keys keep their defaults")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_LocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collegenav.json5")
	writeFile(t, path, `{input: "shared.csv", max_attempts: 4}`)
	writeFile(t, filepath.Join(dir, "collegenav.local.json5"), `{input: "mine.csv"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mine.csv", cfg.Input)
	assert.Equal(t, 4, cfg.MaxAttempts)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "absent.json5"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json5")
	writeFile(t, bad, `{input: `)
	_, err = Load(bad)
	assert.Error(t, err)

	badDuration := filepath.Join(dir, "duration.json5")
	writeFile(t, badDuration, `{retry_delay: "soon"}`)
	_, err = Load(badDuration)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"format", func(c *Config) { c.Format = "csv" }},
		{"relative base url", func(c *Config) { c.BaseURL = "/collegenavigator/" }},
		{"attempts", func(c *Config) { c.MaxAttempts = 0 }},
		{"pages", func(c *Config) { c.MaxPages = 0 }},
		{"negative delay", func(c *Config) { c.RetryDelay = Duration(-time.Second) }},
		{"wait timeout", func(c *Config) { c.WaitTimeout = 0 }},
		{"rate", func(c *Config) { c.RequestsPerSecond = -1 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"input", func(c *Config) { c.Input = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
