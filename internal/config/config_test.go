package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "textual", cfg.Format)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 10221, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.False(t, cfg.Admin.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
format: binary
workers: 8
port: 19000
logging:
  level: DEBUG
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "binary", cfg.Format)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 19000, cfg.Port)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, "text", cfg.Logging.Format)

	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown format": func(c *Config) { c.Format = "protobuf" },
		"zero workers":   func(c *Config) { c.Workers = 0 },
		"negative port":  func(c *Config) { c.Port = -1 },
		"port overflow":  func(c *Config) { c.Port = 70000 },
		"bad log level":  func(c *Config) { c.Logging.Level = "TRACE" },
		"bad log format": func(c *Config) { c.Logging.Format = "xml" },
		"zero timeout":   func(c *Config) { c.ShutdownTimeout = 0 },
		"sample rate >1": func(c *Config) { c.Telemetry.SampleRate = 1.5 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
