package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/tracepad/internal/config"
	"github.com/verte-zerg/tracepad/internal/model"
)

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var lines []string
	for _, line := range strings.Split(defaultConfigTemplate(), "\n") {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			line = strings.TrimPrefix(line, "# ")
		}
		lines = append(lines, line)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Capture.MaxBatch == nil || *cfg.Capture.MaxBatch != model.DefaultCaptureConfig().MaxBatchSize {
		t.Fatalf("unexpected max-batch %v", cfg.Capture.MaxBatch)
	}
	if cfg.Gateway.URL == nil || cfg.Pattern.Seed == nil {
		t.Fatalf("expected gateway url and seed to decode")
	}
}

func TestResolveSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("TRACEPAD_GATEWAY_URL", "ws://env.example")
	cfgPath := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	body := "[capture]\nmode = \"circular\"\nmax-batch = 50\nidle-timeout-ms = 3000\n\n[gateway]\nurl = \"http://file.example\"\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--max-batch", "10"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	s, err := resolveSettings(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.capture.MaxBatchSize != 10 {
		t.Fatalf("flag should win, got %d", s.capture.MaxBatchSize)
	}
	if s.capture.IdleTimeout != 3*time.Second || s.mode != model.ModeCircular {
		t.Fatalf("file values not applied: %+v %s", s.capture, s.mode)
	}
	if gatewayURL != "ws://env.example" {
		t.Fatalf("env should override file, got %q", gatewayURL)
	}
	if s.seeded {
		t.Fatalf("expected random picker without a seed")
	}
}

func TestResolveSettingsRejectsBadMode(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--mode", "spiral"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := resolveSettings(cmd); err == nil || !strings.Contains(err.Error(), "--mode") {
		t.Fatalf("expected --mode error, got %v", err)
	}
}

func TestHistoryFilter(t *testing.T) {
	historyMode, historySince, historyLast, historyWindow = "drawing", "2024-05-01", 3, 5
	t.Cleanup(func() {
		historyMode, historySince, historyLast, historyWindow = "", "", 0, defaultCurveWindow
	})
	filter, err := historyFilter()
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if filter.Mode != model.ModeDrawing || filter.Last != 3 || filter.Since == nil {
		t.Fatalf("unexpected filter %+v", filter)
	}
	historySince = "yesterday"
	if _, err := historyFilter(); err == nil {
		t.Fatalf("expected since error")
	}
}
