package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// Config holds the CLI configuration, shared by every subcommand.
type Config struct {
	DatabasePath     string `json:"database_path"`
	LogLevel         string `json:"log_level"`
	DefaultOrder     int    `json:"default_order"`
	DefaultMaxLength int    `json:"default_max_length"`
	OutputWidth      int    `json:"output_width"`
	ServeAddr        string `json:"serve_addr"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:     "./mimicry.db?_journal_mode=WAL&_busy_timeout=5000",
		LogLevel:         "info",
		DefaultOrder:     2,
		DefaultMaxLength: 100,
		OutputWidth:      80,
		ServeAddr:        ":7280",
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Warn instead of failing, the tool can still run with defaults.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
