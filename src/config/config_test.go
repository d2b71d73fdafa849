package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
name: live-stats
host: 127.0.0.1
port: 8090
api:
  base_url: http://localhost:8010/api/v1/stats
storage:
  db_path: prefs.db
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "sse", cfg.Stream.Transport)
	assert.Equal(t, "/live", cfg.API.LivePath)
	assert.Equal(t, "/live-stream", cfg.API.StreamPath)
	assert.Equal(t, "/mood", cfg.API.MoodPath)
	assert.Equal(t, "sqlite", cfg.Storage.DBType)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.HiddenPollInterval())
	assert.Equal(t, 10*time.Second, cfg.HandshakeTimeout())
	assert.Equal(t, "live/stats", cfg.Stream.MQTTTopicPrefix)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"bad port":          func(c *Config) { c.Port = 80 },
		"bad base url":      func(c *Config) { c.API.BaseURL = "localhost" },
		"unknown transport": func(c *Config) { c.Stream.Transport = "carrier-pigeon" },
		"mqtt needs broker": func(c *Config) { c.Stream.Transport = "mqtt" },
		"token and file":    func(c *Config) { c.Auth.Token, c.Auth.TokenFile = "a", "/tmp/t" },
		"postgres dsn":      func(c *Config) { c.Storage.DBType = "postgres" },
		"unknown db":        func(c *Config) { c.Storage.DBType = "redis" },
		"negative retries":  func(c *Config) { c.Network.MaxRetries = -1 },
		"empty name":        func(c *Config) { c.Name = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Parse([]byte(minimalYAML))
			require.NoError(t, err)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	_, err := Parse([]byte("port: [1, 2"))
	assert.Error(t, err)
}

func TestNewConfigAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	cfg.API.DefaultCountry = "UZ"

	out := filepath.Join(dir, "saved.yaml")
	require.NoError(t, cfg.Save(out))

	again, err := NewConfig(out)
	require.NoError(t, err)
	assert.Equal(t, "UZ", again.API.DefaultCountry)

	_, err = NewConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultConfigFileIsValid(t *testing.T) {
	_, err := NewConfig("../../config/default.yaml")
	assert.NoError(t, err)
}
