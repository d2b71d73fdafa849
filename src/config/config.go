package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"live-stats/src/models"

	"gopkg.in/yaml.v3"
)

// Defaults applied to empty fields before validation.
const (
	DefaultPollIntervalSeconds       = 5
	DefaultHiddenPollIntervalSeconds = 10
	DefaultHandshakeTimeoutSeconds   = 10
	DefaultLivePath                  = "/live"
	DefaultStreamPath                = "/live-stream"
	DefaultMoodPath                  = "/mood"
	DefaultMQTTTopicPrefix           = "live/stats"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from YAML bytes
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills optional fields
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.API.LivePath == "" {
		c.API.LivePath = DefaultLivePath
	}
	if c.API.StreamPath == "" {
		c.API.StreamPath = DefaultStreamPath
	}
	if c.API.MoodPath == "" {
		c.API.MoodPath = DefaultMoodPath
	}
	if c.Stream.Transport == "" {
		c.Stream.Transport = "sse"
	}
	if c.Stream.PollIntervalSeconds == 0 {
		c.Stream.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
	if c.Stream.HiddenPollIntervalSeconds == 0 {
		c.Stream.HiddenPollIntervalSeconds = DefaultHiddenPollIntervalSeconds
	}
	if c.Stream.HandshakeTimeoutSeconds == 0 {
		c.Stream.HandshakeTimeoutSeconds = DefaultHandshakeTimeoutSeconds
	}
	if c.Stream.MQTTTopicPrefix == "" {
		c.Stream.MQTTTopicPrefix = DefaultMQTTTopicPrefix
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = "live-stats/1.0"
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate API configuration
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url cannot be empty")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api base url: %q", c.API.BaseURL)
	}

	// Validate Stream configuration
	switch c.Stream.Transport {
	case "sse", "websocket", "none":
	case "mqtt":
		if c.Stream.MQTTBroker == "" {
			return fmt.Errorf("mqtt transport requires mqtt_broker")
		}
	default:
		return fmt.Errorf("unknown stream transport: %s", c.Stream.Transport)
	}
	if c.Stream.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}
	if c.Stream.HiddenPollIntervalSeconds <= 0 {
		return fmt.Errorf("hidden poll interval must be greater than 0")
	}

	// Validate Auth configuration
	if c.Auth.Token != "" && c.Auth.TokenFile != "" {
		return fmt.Errorf("auth token and token_file are mutually exclusive")
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unknown database type: %s", c.Storage.DBType)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// PollInterval is the foreground polling fallback interval
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Stream.PollIntervalSeconds) * time.Second
}

// HiddenPollInterval is the configured background polling interval
func (c *Config) HiddenPollInterval() time.Duration {
	return time.Duration(c.Stream.HiddenPollIntervalSeconds) * time.Second
}

// HandshakeTimeout bounds how long a stream may take to open
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Stream.HandshakeTimeoutSeconds) * time.Second
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
