package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dyluth/micra/pkg/store"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "micra.yml"

// DefaultRedisURL is used when neither flag, environment nor config names a server.
const DefaultRedisURL = "redis://localhost:6379/0"

// RedisURLEnv overrides the config's redis.url.
const RedisURLEnv = "MICRA_REDIS_URL"

// MicraConfig represents the top-level micra.yml configuration
type MicraConfig struct {
	Version      string               `yaml:"version"`
	Redis        *RedisConfig         `yaml:"redis,omitempty"`
	CommandsKey  string               `yaml:"commands_key,omitempty"`
	Retry        *RetryConfig         `yaml:"retry,omitempty"`
	Forwards     map[string]string    `yaml:"forwards,omitempty"` // coordinator command name -> list key
	ContentTypes []*store.ContentType `yaml:"content_types,omitempty"`
	Structures   []*store.Structure   `yaml:"structures,omitempty"`
}

// RedisConfig names the backing store.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// RetryConfig bounds the optimistic update retry loop.
type RetryConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval,omitempty"`
	MaxInterval     time.Duration `yaml:"max_interval,omitempty"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time,omitempty"`
}

// Default returns the configuration used when no micra.yml exists.
func Default() *MicraConfig {
	c := &MicraConfig{Version: "1.0"}
	c.applyDefaults()
	return c
}

func (c *MicraConfig) applyDefaults() {
	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.CommandsKey == "" {
		c.CommandsKey = store.CommandsKey
	}
	if c.Retry == nil {
		c.Retry = &RetryConfig{}
	}
	if c.Retry.InitialInterval == 0 {
		c.Retry.InitialInterval = 50 * time.Millisecond
	}
	if c.Retry.MaxInterval == 0 {
		c.Retry.MaxInterval = time.Second
	}
	if c.Retry.MaxElapsedTime == 0 {
		c.Retry.MaxElapsedTime = 10 * time.Second
	}
}

// Validate performs strict validation on the configuration and fills in defaults.
func (c *MicraConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}
	c.applyDefaults()

	if c.Redis.URL != "" {
		if _, err := redis.ParseURL(c.Redis.URL); err != nil {
			return fmt.Errorf("redis.url: %w", err)
		}
	}

	if err := c.Retry.Validate(); err != nil {
		return err
	}

	for name, key := range c.Forwards {
		if name == "" || key == "" {
			return fmt.Errorf("forwards: command name and key must both be set (got %q -> %q)", name, key)
		}
	}

	// Identifiers must be unique per registry, and never shadow a built-in.
	seen := make(map[string]bool)
	for _, ct := range store.BuiltinContentTypes() {
		seen[ct.Identifier] = true
	}
	for i, ct := range c.ContentTypes {
		if ct == nil {
			return fmt.Errorf("content_types[%d]: empty definition", i)
		}
		if err := ct.Validate(); err != nil {
			return fmt.Errorf("content_types[%d]: %w", i, err)
		}
		if seen[ct.Identifier] {
			return fmt.Errorf("content_types[%d]: duplicate identifier '%s'", i, ct.Identifier)
		}
		seen[ct.Identifier] = true
	}

	seen = make(map[string]bool)
	for _, s := range store.BuiltinStructures() {
		seen[s.Identifier] = true
	}
	for i, s := range c.Structures {
		if s == nil {
			return fmt.Errorf("structures[%d]: empty definition", i)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("structures[%d]: %w", i, err)
		}
		if seen[s.Identifier] {
			return fmt.Errorf("structures[%d]: duplicate identifier '%s'", i, s.Identifier)
		}
		seen[s.Identifier] = true
	}

	return nil
}

// Validate checks the retry bounds.
func (r *RetryConfig) Validate() error {
	if r.InitialInterval < 0 || r.MaxInterval < 0 || r.MaxElapsedTime < 0 {
		return fmt.Errorf("retry intervals must be >= 0")
	}
	if r.InitialInterval > r.MaxInterval {
		return fmt.Errorf("retry.initial_interval (%s) exceeds retry.max_interval (%s)", r.InitialInterval, r.MaxInterval)
	}
	return nil
}

// RedisURL picks the server address: flag first, then MICRA_REDIS_URL, then
// redis.url, then the local default.
func (c *MicraConfig) RedisURL(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(RedisURLEnv); env != "" {
		return env
	}
	if c.Redis != nil && c.Redis.URL != "" {
		return c.Redis.URL
	}
	return DefaultRedisURL
}

// Load reads and validates micra.yml from the specified path
func Load(path string) (*MicraConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config MicraConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault behaves like Load but returns Default when path does not exist.
func LoadOrDefault(path string) (*MicraConfig, error) {
	config, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}
