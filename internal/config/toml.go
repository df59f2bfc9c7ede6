// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/tracepad/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Capture CaptureConfig `toml:"capture"`
	Pattern PatternConfig `toml:"pattern"`
	Gateway GatewayConfig `toml:"gateway"`
	Log     LogConfig     `toml:"log"`
}

// CaptureConfig maps capture-related settings.
type CaptureConfig struct {
	Mode          *string  `toml:"mode"`
	MaxBatch      *int     `toml:"max-batch"`
	MoveThreshold *float64 `toml:"move-threshold"`
	ToleranceMs   *float64 `toml:"tolerance-ms"`
	IdleTimeoutMs *int     `toml:"idle-timeout-ms"`
	CountdownMs   *int     `toml:"countdown-ms"`
	SettleMs      *int     `toml:"settle-ms"`
}

// PatternConfig maps trajectory tuning.
type PatternConfig struct {
	ArrivalRadius *float64 `toml:"arrival-radius"`
	MaxSize       *float64 `toml:"max-size"`
	Stiffness     *float64 `toml:"stiffness"`
	Damping       *float64 `toml:"damping"`
	Seed          *int64   `toml:"seed"`
}

// GatewayConfig maps transmission settings.
type GatewayConfig struct {
	URL       *string `toml:"url" env:"TRACEPAD_GATEWAY_URL"`
	TimeoutMs *int    `toml:"timeout-ms" env:"TRACEPAD_GATEWAY_TIMEOUT_MS"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level" env:"TRACEPAD_LOG_LEVEL"`
	Format *string `toml:"format" env:"TRACEPAD_LOG_FORMAT"`
	File   *string `toml:"file" env:"TRACEPAD_LOG_FILE"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Apply overlays the set capture fields onto dst.
func (c CaptureConfig) Apply(dst *model.CaptureConfig) {
	if c.MaxBatch != nil {
		dst.MaxBatchSize = *c.MaxBatch
	}
	if c.MoveThreshold != nil {
		dst.MoveThreshold = *c.MoveThreshold
	}
	if c.ToleranceMs != nil {
		dst.Tolerance = time.Duration(*c.ToleranceMs * float64(time.Millisecond))
	}
	if c.IdleTimeoutMs != nil {
		dst.IdleTimeout = time.Duration(*c.IdleTimeoutMs) * time.Millisecond
	}
	if c.CountdownMs != nil {
		dst.CountdownInterval = time.Duration(*c.CountdownMs) * time.Millisecond
	}
	if c.SettleMs != nil {
		dst.SettleWindow = time.Duration(*c.SettleMs) * time.Millisecond
	}
}

// Apply overlays the set pattern fields onto dst.
func (p PatternConfig) Apply(dst *model.PatternConfig) {
	if p.ArrivalRadius != nil {
		dst.ArrivalRadius = *p.ArrivalRadius
	}
	if p.MaxSize != nil {
		dst.MaxSize = *p.MaxSize
	}
	if p.Stiffness != nil {
		dst.Stiffness = *p.Stiffness
	}
	if p.Damping != nil {
		dst.Damping = *p.Damping
	}
}
