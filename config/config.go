// Package config holds the engine's tunable settings with YAML loading.
// Everything has a working default; a config file only overrides what it
// mentions.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config collects all engine settings.
type Config struct {
	Cache  CacheConfig  `yaml:"cache"`
	Limits LimitsConfig `yaml:"limits"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

// CacheConfig bounds the in-memory buffer cache.
type CacheConfig struct {
	// Capacity is the maximum number of cached buffers; 0 means
	// unbounded.
	Capacity int `yaml:"capacity"`
}

// LimitsConfig guards compilation against pathologically large
// expressions.
type LimitsConfig struct {
	MaxNodes int `yaml:"max_nodes"`
	MaxDepth int `yaml:"max_depth"`
}

// StoreConfig enables the persistent buffer tier when Path is set.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig sets the zerolog level ("debug", "info", "warn", ...).
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the settings used when no file overrides them.
func Default() Config {
	return Config{
		Cache:  CacheConfig{Capacity: 256},
		Limits: LimitsConfig{MaxNodes: 10000, MaxDepth: 64},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("config: cache capacity must be >= 0, got %d", c.Cache.Capacity)
	}
	if c.Limits.MaxNodes < 0 || c.Limits.MaxDepth < 0 {
		return fmt.Errorf("config: limits must be >= 0 (0 disables a limit)")
	}
	return nil
}
