// Package config provides configuration loading and management for Termeric.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Termeric configuration
type Config struct {
	Server Server `yaml:"server"`
	NATS   NATS   `yaml:"nats"`
	Boot   Boot   `yaml:"boot"`
	Log    Log    `yaml:"log"`
}

// Server configures the HTTP resolver
type Server struct {
	// Listen is the address the HTTP server binds to
	Listen string `yaml:"listen"`
	// Host is the public base URL used when rendering minted identifiers
	// and resolver documents (e.g. "https://n2t.net")
	Host string `yaml:"host"`
	// ShutdownTimeout bounds graceful shutdown on SIGTERM
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// NATS configures the JetStream connection backing the key-value store
type NATS struct {
	// URL is the NATS server URL (empty = in-memory store, for development)
	URL string `yaml:"url"`
}

// Boot configures the CSV files reconciled into the store at startup
type Boot struct {
	// ArkMap is the path to the legacy ark→URL CSV (empty = skip)
	ArkMap string `yaml:"ark_map"`
	// ShoulderMap is the path to the naan→shoulder CSV (empty = skip)
	ShoulderMap string `yaml:"shoulder_map"`
	// Watch reloads the CSVs when they change on disk
	Watch bool `yaml:"watch"`
}

// Log configures structured logging
type Log struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is "text" or "json"
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			Listen:          ":8000",
			Host:            "http://localhost:8000",
			ShutdownTimeout: 10 * time.Second,
		},
		NATS: NATS{
			URL: "",
		},
		Boot: Boot{
			ArkMap:      "",
			ShoulderMap: "",
			Watch:       false,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Listen != "" {
		c.Server.Listen = other.Server.Listen
	}
	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// Boot
	if other.Boot.ArkMap != "" {
		c.Boot.ArkMap = other.Boot.ArkMap
	}
	if other.Boot.ShoulderMap != "" {
		c.Boot.ShoulderMap = other.Boot.ShoulderMap
	}
	if other.Boot.Watch {
		c.Boot.Watch = true
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}
