package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML file passed with --config. Flags given on
// the command line win over it.
type Config struct {
	Workers  int           `yaml:"workers"`
	LogLevel string        `yaml:"log_level"`
	Timeout  time.Duration `yaml:"timeout"`
	Memory   string        `yaml:"memory"`
}

func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		Memory:  "256mb",
	}
}

// LoadConfig reads path over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
