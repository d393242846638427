// Package config loads daemon configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines tracker configuration.
type Config struct {
	DataDir              string `yaml:"data_dir"`
	PollIntervalSeconds  int    `yaml:"poll_interval_seconds"`
	IdleThresholdSeconds uint64 `yaml:"idle_threshold_seconds"`
	Notifications        bool   `yaml:"notifications"`
	Log                  Log    `yaml:"log"`
}

// Log defines logging configuration.
type Log struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment
// variables. File location: $TIMEWARDEN_CONFIG_PATH, else
// <data dir>/config.yaml if present.
func Load() (Config, error) {
	cfg := Config{
		DataDir:              defaultDataDir(),
		PollIntervalSeconds:  1,
		IdleThresholdSeconds: 300,
		Notifications:        true,
		Log:                  Log{Level: "info"},
	}

	if dir := os.Getenv("TIMEWARDEN_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}

	path := os.Getenv("TIMEWARDEN_CONFIG_PATH")
	if path == "" {
		candidate := filepath.Join(cfg.DataDir, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// The env data dir wins even when the file sets one.
	if dir := os.Getenv("TIMEWARDEN_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if v := os.Getenv("TIMEWARDEN_POLL_INTERVAL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TIMEWARDEN_POLL_INTERVAL_SECONDS: %w", err)
		}
		cfg.PollIntervalSeconds = secs
	}
	if v := os.Getenv("TIMEWARDEN_IDLE_THRESHOLD_SECONDS"); v != "" {
		secs, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TIMEWARDEN_IDLE_THRESHOLD_SECONDS: %w", err)
		}
		cfg.IdleThresholdSeconds = secs
	}
	if level := os.Getenv("TIMEWARDEN_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if cfg.PollIntervalSeconds < 1 {
		return Config{}, fmt.Errorf("poll interval must be at least 1 second, got %d", cfg.PollIntervalSeconds)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// defaultDataDir is ~/.timewarden, falling back to the working directory
// when the home directory cannot be resolved.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".timewarden"
	}
	return filepath.Join(home, ".timewarden")
}
