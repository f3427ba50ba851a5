// Package config loads econsim daemon configuration from TOML.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full simulation configuration.
type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Database   DatabaseConfig   `toml:"database"`
	API        APIConfig        `toml:"api"`
	Logging    LoggingConfig    `toml:"logging"`
}

// SimulationConfig controls the world and the turn loop.
type SimulationConfig struct {
	Seed     int64 `toml:"seed"`
	Turns    int   `toml:"turns"`
	Entities int   `toml:"entities"`
}

// DatabaseConfig controls snapshot storage.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// APIConfig controls the read-only observation API.
type APIConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Simulation: SimulationConfig{
			Seed:     42,
			Turns:    100,
			Entities: 8,
		},
		Database: DatabaseConfig{
			Path: "econsim.db",
		},
		API: APIConfig{
			Enabled: false,
			Port:    8880,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML config file, layering it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run.
func (c Config) Validate() error {
	if c.Simulation.Entities < 2 {
		return fmt.Errorf("simulation.entities must be at least 2, got %d", c.Simulation.Entities)
	}
	if c.Simulation.Turns < 0 {
		return fmt.Errorf("simulation.turns must be non-negative, got %d", c.Simulation.Turns)
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// SlogLevel maps the configured level name onto a slog level string form.
func (c Config) SlogLevel() string {
	if c.Logging.Level == "" {
		return "info"
	}
	return c.Logging.Level
}
