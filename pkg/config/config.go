package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Dieugene/agentic-doc-processing/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all gateway configuration.
type Config struct {
	DBPath string             `yaml:"db_path"`
	Audit  models.AuditConfig `yaml:"audit"`
	Retry  RetryConfig        `yaml:"retry"`
	Models []ModelConfig      `yaml:"models"`
}

// RetryConfig controls the backoff policy applied to transient remote errors.
type RetryConfig struct {
	MaxRetries        int           `yaml:"max_retries"`
	InitialDelay      time.Duration `yaml:"initial_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	Jitter            time.Duration `yaml:"jitter"`
}

// ModelConfig defines one schedulable model: its upstream provider plus
// batching and rate-limit settings. Limits of zero mean "unlimited".
type ModelConfig struct {
	ID        string `yaml:"id"`
	Provider  string `yaml:"provider"` // "openai" (default)
	ModelName string `yaml:"model_name"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`

	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	QueueDepth   int           `yaml:"queue_depth"`

	MaxRequestsPerWindow int           `yaml:"max_requests_per_window"`
	MaxTokensPerWindow   int           `yaml:"max_tokens_per_window"`
	Window               time.Duration `yaml:"window"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DBPath: "gateway.db",
		Audit: models.AuditConfig{
			Enabled:       true,
			DBPath:        "gateway_audit.db",
			RetentionDays: 30,
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			InitialDelay:      time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            500 * time.Millisecond,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalize fills in per-model defaults for zero-valued fields.
func (c *Config) normalize() {
	for i := range c.Models {
		m := &c.Models[i]
		if m.Provider == "" {
			m.Provider = "openai"
		}
		if m.ModelName == "" {
			m.ModelName = m.ID
		}
		if m.BatchSize <= 0 {
			m.BatchSize = 10
		}
		if m.BatchTimeout <= 0 {
			m.BatchTimeout = 100 * time.Millisecond
		}
		if m.QueueDepth <= 0 {
			m.QueueDepth = 1024
		}
		if m.Window <= 0 {
			m.Window = time.Minute
		}
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("no models configured")
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("model with empty id")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate model id %q", m.ID)
		}
		seen[m.ID] = true
		if m.MaxRequestsPerWindow < 0 || m.MaxTokensPerWindow < 0 {
			return fmt.Errorf("model %q: negative rate limit", m.ID)
		}
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry: negative max_retries")
	}
	return nil
}

// Model returns the configuration for a model id, or false if unknown.
func (c *Config) Model(id string) (ModelConfig, bool) {
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelConfig{}, false
}
