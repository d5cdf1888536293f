// Package config defines the explicit configuration object consumed
// by the gate. Policy knobs are passed into components at
// construction, never read from ambient state.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seclab/promptgate/internal/generate"
)

// Config is the top-level configuration loaded from YAML.
type Config struct {
	Listen                 string            `yaml:"listen"`
	MaxPromptLength        int               `yaml:"max_prompt_length"`
	RulesFile              string            `yaml:"rules_file"`
	AuditLog               string            `yaml:"audit_log"`
	AuditDB                string            `yaml:"audit_db"`
	GenerateTimeoutSeconds int               `yaml:"generate_timeout_seconds"`
	Generator              generate.Settings `yaml:"generator"`
	Metrics                MetricsConfig     `yaml:"metrics"`
}

// MetricsConfig configures the Prometheus surface.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		Listen:                 ":8080",
		MaxPromptLength:        5000,
		GenerateTimeoutSeconds: 60,
		Generator:              generate.Settings{}.Normalize(),
		Metrics:                MetricsConfig{Enabled: true, Namespace: "promptgate"},
	}
}

// Load reads a YAML config file, applying defaults for anything not
// set. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg.Normalize()
}

// Normalize fills gaps with defaults and validates what remains.
func (c Config) Normalize() (Config, error) {
	c.Listen = strings.TrimSpace(c.Listen)
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.MaxPromptLength == 0 {
		c.MaxPromptLength = 5000
	}
	if c.MaxPromptLength < 0 {
		return c, fmt.Errorf("max_prompt_length must be positive, got %d", c.MaxPromptLength)
	}
	if c.GenerateTimeoutSeconds == 0 {
		c.GenerateTimeoutSeconds = 60
	}
	if c.GenerateTimeoutSeconds < 0 {
		return c, fmt.Errorf("generate_timeout_seconds must be positive, got %d", c.GenerateTimeoutSeconds)
	}
	c.Generator = c.Generator.Normalize()
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "promptgate"
	}
	return c, nil
}

// GenerateTimeout returns the generation timeout as a duration.
func (c Config) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSeconds) * time.Second
}
