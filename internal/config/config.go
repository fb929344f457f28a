package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		// Backend selects the persistence store: memory, file or postgres.
		Backend string `yaml:"backend"`
		// Path is the state directory for the file backend.
		Path string `yaml:"path"`
		// DatabaseURL is the DSN for the postgres backend. The
		// DERRITE_DATABASE_URL environment variable overrides it.
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"storage"`
	Alerts struct {
		DistanceMeters       float64 `yaml:"distance_meters"`
		SweepIntervalSeconds int64   `yaml:"sweep_interval_seconds"`
	} `yaml:"alerts"`
}

// Load reads configuration from the specified YAML file and applies
// defaults for anything unset.
func Load(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data"
	}
	if dsn := os.Getenv("DERRITE_DATABASE_URL"); dsn != "" {
		c.Storage.DatabaseURL = dsn
	}
}
