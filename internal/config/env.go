package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds the settings that may come from the environment.
type EnvConfig struct {
	Gateway GatewayConfig
	Log     LogConfig
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the config file and overlays environment values on top of it.
func Load(path string) (FileConfig, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return FileConfig{}, err
	}
	var envCfg EnvConfig
	if err := ParseEnv(&envCfg); err != nil {
		return FileConfig{}, err
	}
	cfg.Overlay(envCfg)
	return cfg, nil
}

// Overlay replaces file values with any set environment values.
func (c *FileConfig) Overlay(e EnvConfig) {
	overlay(&c.Gateway.URL, e.Gateway.URL)
	overlay(&c.Gateway.TimeoutMs, e.Gateway.TimeoutMs)
	overlay(&c.Log.Level, e.Log.Level)
	overlay(&c.Log.Format, e.Log.Format)
	overlay(&c.Log.File, e.Log.File)
}

func overlay[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}
