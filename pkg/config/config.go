// Package config loads and validates the tool configuration.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Log   LogConfig   `yaml:"log"`
	Incus IncusConfig `yaml:"incus"`
	Azure AzureConfig `yaml:"azure"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	// Level is the minimum log level.
	Level string `yaml:"level" validate:"oneof=trace debug info warn error fatal"`

	// Format is the log output format.
	Format string `yaml:"format" validate:"oneof=console json"`
}

// IncusConfig configures the instance connector.
type IncusConfig struct {
	// Binary selects the hypervisor CLI front-end.
	Binary string `yaml:"binary" validate:"oneof=incus lxc"`

	// Shell is the interpreter used inside instances.
	Shell string `yaml:"shell" validate:"oneof=ash bash dash posh sh zsh"`
}

// AzureConfig configures the cloud inventory connector.
type AzureConfig struct {
	// Endpoint is the management endpoint base URL.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`

	// Subscriptions optionally scopes queries to these subscription ids.
	Subscriptions []string `yaml:"subscriptions"`

	// CacheSize bounds the inventory fetch cache.
	CacheSize int `yaml:"cache_size" validate:"min=1,max=64"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Incus: IncusConfig{
			Binary: "incus",
			Shell:  "sh",
		},
		Azure: AzureConfig{
			CacheSize: 8,
		},
	}
}

// Load reads the configuration file at path, layered over the defaults,
// and validates the result. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against the struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
