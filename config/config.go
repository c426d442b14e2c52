// Package config defines the tasktide application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "15s" or
// "2m" rather than nanosecond counts.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level tasktide configuration.
type Config struct {
	Server   ServerConfig `json:"server" yaml:"server"`
	Remote   RemoteConfig `json:"remote" yaml:"remote"`
	Cache    CacheConfig  `json:"cache" yaml:"cache"`
	DataDir  string       `json:"data_dir" yaml:"data_dir"`
	LogLevel string       `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":9280"
}

// RemoteConfig points at the remote row store. An empty BaseURL runs the
// store fully local, with no remote persistence.
type RemoteConfig struct {
	BaseURL      string   `json:"base_url" yaml:"base_url"`
	APIKey       string   `json:"api_key,omitempty" yaml:"api_key"`
	PingInterval Duration `json:"ping_interval" yaml:"ping_interval"`
}

// CacheConfig bounds the mediator's list-read cache.
type CacheConfig struct {
	Capacity int      `json:"capacity" yaml:"capacity"`
	TTL      Duration `json:"ttl" yaml:"ttl"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":9280",
		},
		Remote: RemoteConfig{
			PingInterval: Duration(15 * time.Second),
		},
		Cache: CacheConfig{
			Capacity: 64,
			TTL:      Duration(time.Minute),
		},
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads a YAML config file and returns the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
