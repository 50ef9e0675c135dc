package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration. Values come from a YAML file plus
// environment variables; environment always wins for fields carrying
// both tags.
type Config struct {
	// Database is the path of the embedded SQLite file. Created on
	// first open if absent.
	Database string `yaml:"database" env:"CARBONTRACK_DB" env-default:"carbon_tracker.db"`

	Log LogConfig `yaml:"log"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"CARBONTRACK_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"CARBONTRACK_LOG_FORMAT" env-default:"console"`
}

// Load reads configuration from path, overlaid with environment
// variables. A missing or empty path yields defaults plus environment.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			return cfg, nil
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config from environment: %w", err)
	}
	return cfg, nil
}

// WriteDefault renders the default configuration to path as YAML, for
// `carbontrack init` to hand users a starting point.
func WriteDefault(path string) error {
	cfg := Config{
		Database: "carbon_tracker.db",
		Log:      LogConfig{Level: "info", Format: "console"},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
