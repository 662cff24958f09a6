package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"order-lifecycle/order"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const sampleConfig = `
env: dev
log:
  level: debug
  format: console
metrics:
  addr: ":9100"
lifecycle:
  insertRejectReason: cancelled
  cancelRejectRestoresInserted: true
  insertTimeoutMs: 5000
  cancelTimeoutMs: 3000
  sweepIntervalMs: 250
  cancelPacingFills: 3
  cancelPacingWindowMs: 10000
alert:
  enabled: true
  throttleMs: 30000
symbols:
  ethusdc:
    tickSize: 0.01
    stepSize: 0.001
    minQty: 0.001
    maxQty: 1
    minNotional: 5
`

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env != "dev" || cfg.Log.Level != "debug" || cfg.Metrics.Addr != ":9100" {
		t.Fatalf("unexpected cfg values: %+v", cfg)
	}
	if !cfg.Lifecycle.ForgetFinalized {
		t.Fatalf("forgetFinalized should default to true when absent")
	}
	if n, w := cfg.Lifecycle.CancelPacing(); n != 3 || w != 10*time.Second {
		t.Fatalf("unexpected cancel pacing: %d %v", n, w)
	}
	if !cfg.Alert.Enabled || cfg.Alert.Throttle() != 30*time.Second {
		t.Fatalf("unexpected alert config: %+v", cfg.Alert)
	}
	ec, err := cfg.Lifecycle.EngineConfig()
	if err != nil {
		t.Fatalf("engine config: %v", err)
	}
	if ec.InsertRejectReason != order.Cancelled || !ec.CancelRejectRestoresInserted || ec.FillDuringCancelKeepsPending {
		t.Fatalf("unexpected engine config: %+v", ec)
	}
	sc := cfg.Lifecycle.SweeperConfig()
	if sc.Interval != 250*time.Millisecond || sc.InsertTimeout != 5*time.Second || sc.CancelTimeout != 3*time.Second {
		t.Fatalf("unexpected sweeper config: %+v", sc)
	}
	cons := cfg.SymbolConstraints()
	if c, ok := cons["ETHUSDC"]; !ok || c.TickSize != 0.01 || c.MinNotional != 5 {
		t.Fatalf("unexpected constraints: %+v", cons)
	}
}

func TestLoadDefaultsWhenSectionsMissing(t *testing.T) {
	path := writeTempConfig(t, "env: prod\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Lifecycle.SweepIntervalMs != 1000 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	t.Setenv("OLC_LOG_LEVEL", "warn")
	t.Setenv("OLC_METRICS_ADDR", "127.0.0.1:9200")
	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != "warn" || cfg.Metrics.Addr != "127.0.0.1:9200" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(AppConfig{}); err == nil {
		t.Fatalf("expected error for empty config")
	}
	bad := []AppConfig{
		func() AppConfig { c := Default(); c.Lifecycle.InsertRejectReason = "rejected"; return c }(),
		func() AppConfig { c := Default(); c.Lifecycle.InsertTimeoutMs = -1; return c }(),
		func() AppConfig { c := Default(); c.Lifecycle.CancelPacingFills = -1; return c }(),
		func() AppConfig { c := Default(); c.Lifecycle.CancelTimeoutMs = 100; return c }(),
		func() AppConfig {
			c := Default()
			c.Symbols = map[string]SymbolConfig{"BTCUSDT": {TickSize: 0.1, StepSize: 0.1, MinQty: 2, MaxQty: 1}}
			return c
		}(),
		func() AppConfig {
			c := Default()
			c.Symbols = map[string]SymbolConfig{"BTCUSDT": {StepSize: 0.1}}
			return c
		}(),
	}
	for i, c := range bad {
		if err := Validate(c); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "configs", "lifecycled.yaml"))
	if err != nil {
		t.Fatalf("shipped config invalid: %v", err)
	}
	if _, ok := cfg.SymbolConstraints()["ETHUSDC"]; !ok {
		t.Fatalf("expected ETHUSDC constraints")
	}
	if cfg.Lifecycle.SweeperConfig().CancelTimeout != 5*time.Second {
		t.Fatalf("unexpected sweeper config: %+v", cfg.Lifecycle.SweeperConfig())
	}
}
