// Package config provides unified configuration loading for cohort.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/persistence/middleware"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when present and no explicit file is given.
const DefaultFile = "cohort.yaml"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config contains all cohort configuration settings.
type Config struct {
	// Simulation overrides the settings stored in model files.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	HTTP    HTTPConfig    `json:"http" yaml:"http"`
}

// SimulationConfig holds optional run settings. Unset fields keep the model's value.
type SimulationConfig struct {
	Cycles       *int     `json:"cycles,omitempty" yaml:"cycles,omitempty"`
	CountMethod  *string  `json:"count_method,omitempty" yaml:"count_method,omitempty"`
	DiscountRate *float64 `json:"discount_rate,omitempty" yaml:"discount_rate,omitempty"`
}

// Apply returns s with every set field replaced.
func (c SimulationConfig) Apply(s domain.Settings) domain.Settings {
	if c.Cycles != nil {
		s.Cycles = *c.Cycles
	}
	if c.CountMethod != nil {
		s.CountMethod = domain.CountMethod(*c.CountMethod)
	}
	if c.DiscountRate != nil {
		s.DiscountRate = *c.DiscountRate
	}
	return s
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn" or "error".
	Level string `json:"level" yaml:"level"`
}

// StoreConfig selects where run records are kept.
type StoreConfig struct {
	// Backend is "memory", "file" or "redis".
	Backend string `json:"backend" yaml:"backend"`
	// Dir is the directory of the file backend.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// RedisAddr is the address of the redis backend.
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`

	// EncryptionKey is a base64 AES-256 key. When set, records are sealed at rest.
	EncryptionKey string `json:"encryption_key,omitempty" yaml:"encryption_key,omitempty"`
	// FallbackKeys are older keys still accepted when reading records.
	FallbackKeys []string `json:"fallback_keys,omitempty" yaml:"fallback_keys,omitempty"`
}

// Encryption decodes the configured keys. It returns nil when encryption is off.
func (s StoreConfig) Encryption() (*middleware.EncryptionConfig, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	active, err := middleware.ParseKey(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store encryption key: %w", err)
	}
	cfg := &middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range s.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("store fallback key %d: %w", i, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return cfg, nil
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging:    LoggingConfig{Level: "info"},
		Store: StoreConfig{
			Backend:   StoreMemory,
			Dir:       ".cohort/runs",
			RedisAddr: "localhost:6379",
		},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// Load reads path, or DefaultFile when path is empty and the file exists,
// then applies environment overrides.
// Order: defaults -> file -> environment variables
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Store.RedisPassword = os.ExpandEnv(cfg.Store.RedisPassword)
	cfg.Store.EncryptionKey = os.ExpandEnv(cfg.Store.EncryptionKey)
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	settings := c.Simulation.Apply(domain.DefaultSettings())
	if err := settings.Validate(); err != nil {
		return err
	}

	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreFile:
		if c.Store.Dir == "" {
			return errors.New("file store needs a directory")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("redis store needs an address")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (valid: memory, file, redis)", c.Store.Backend)
	}

	if c.Store.EncryptionKey == "" && len(c.Store.FallbackKeys) > 0 {
		return errors.New("fallback keys need an encryption key")
	}
	if _, err := c.Store.Encryption(); err != nil {
		return err
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Malformed numbers are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("COHORT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("COHORT_CYCLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COHORT_CYCLES: %w", err)
		}
		cfg.Simulation.Cycles = &n
	}

	if v := os.Getenv("COHORT_COUNT_METHOD"); v != "" {
		cfg.Simulation.CountMethod = &v
	}

	if v := os.Getenv("COHORT_DISCOUNT_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("COHORT_DISCOUNT_RATE: %w", err)
		}
		cfg.Simulation.DiscountRate = &f
	}

	if v := os.Getenv("COHORT_STORE"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("COHORT_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv("COHORT_REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("COHORT_STORE_KEY"); v != "" {
		cfg.Store.EncryptionKey = v
	}
	if v := os.Getenv("COHORT_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	return nil
}
