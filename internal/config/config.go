// Package config loads gateway configuration from an optional YAML file
// layered under OTAMOCK_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hoststack/otamock/internal/simulate"
	"github.com/hoststack/otamock/internal/store"
	"github.com/hoststack/otamock/internal/webhook"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Simulation simulate.Config  `koanf:"simulation"`
	Webhook    webhook.Config   `koanf:"webhook"`
	Storage    StorageConfig    `koanf:"storage"`
	Seed       store.SeedCounts `koanf:"seed"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// RequestTimeoutSeconds bounds every request at the transport level,
	// including hung timeout simulations.
	RequestTimeoutSeconds int `koanf:"request_timeout_seconds"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // memory, sqlite
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:                  3001,
			RequestTimeoutSeconds: 30,
		},
		Simulation: simulate.DefaultConfig(),
		Webhook:    webhook.DefaultConfig(),
		Storage: StorageConfig{
			Type:   "memory",
			SQLite: SQLiteConfig{Path: "./data/otamock.db"},
		},
		Seed: store.DefaultSeedCounts(),
	}
}

// Load reads path (when it exists) and the environment. Env keys map
// OTAMOCK_SIMULATION__ERROR_RATE -> simulation.error_rate.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("OTAMOCK_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "OTAMOCK_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
