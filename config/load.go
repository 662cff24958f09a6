package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"order-lifecycle/infrastructure/logger"
	"order-lifecycle/order"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env       string                  `yaml:"env"`
	Log       logger.Config           `yaml:"log"`
	Metrics   MetricsConfig           `yaml:"metrics"`
	Lifecycle LifecycleConfig         `yaml:"lifecycle"`
	Alert     AlertConfig             `yaml:"alert"`
	Symbols   map[string]SymbolConfig `yaml:"symbols"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the /metrics endpoint
}

// AlertConfig 无效转换告警；同一 (from, event) 在 throttleMs 内只告警一次。
type AlertConfig struct {
	Enabled    bool `yaml:"enabled"`
	ThrottleMs int  `yaml:"throttleMs"`
}

// Throttle returns the throttle window as a duration.
func (c AlertConfig) Throttle() time.Duration {
	return time.Duration(c.ThrottleMs) * time.Millisecond
}

// LifecycleConfig 可配置的转换边与超时。
type LifecycleConfig struct {
	InsertRejectReason           string `yaml:"insertRejectReason"`
	CancelRejectRestoresInserted bool   `yaml:"cancelRejectRestoresInserted"`
	FillDuringCancelKeepsPending bool   `yaml:"fillDuringCancelKeepsPending"`
	InsertTimeoutMs              int    `yaml:"insertTimeoutMs"`
	CancelTimeoutMs              int    `yaml:"cancelTimeoutMs"`
	SweepIntervalMs              int    `yaml:"sweepIntervalMs"`

	// ForgetFinalized 终态订单立即移出活跃集合，默认开启
	ForgetFinalized      bool `yaml:"forgetFinalized"`
	// CancelPacingFills 窗口内成交达到该次数时暂缓撤单，0 关闭
	CancelPacingFills    int  `yaml:"cancelPacingFills"`
	CancelPacingWindowMs int  `yaml:"cancelPacingWindowMs"`
}

// SymbolConfig 保存交易对的精度/名义限制（来自 exchangeInfo）。
type SymbolConfig struct {
	TickSize    float64 `yaml:"tickSize"`
	StepSize    float64 `yaml:"stepSize"`
	MinQty      float64 `yaml:"minQty"`
	MaxQty      float64 `yaml:"maxQty"`
	MinNotional float64 `yaml:"minNotional"`
}

// EngineConfig converts the lifecycle section into engine options.
func (c LifecycleConfig) EngineConfig() (order.EngineConfig, error) {
	cfg := order.DefaultEngineConfig()
	if c.InsertRejectReason != "" {
		r, err := order.ParseFinalizationReason(c.InsertRejectReason)
		if err != nil {
			return cfg, fmt.Errorf("lifecycle.insertRejectReason: %w", err)
		}
		cfg.InsertRejectReason = r
	}
	cfg.CancelRejectRestoresInserted = c.CancelRejectRestoresInserted
	cfg.FillDuringCancelKeepsPending = c.FillDuringCancelKeepsPending
	return cfg, nil
}

// SweeperConfig converts timeouts into sweeper options.
func (c LifecycleConfig) SweeperConfig() order.SweeperConfig {
	return order.SweeperConfig{
		Interval:      time.Duration(c.SweepIntervalMs) * time.Millisecond,
		InsertTimeout: time.Duration(c.InsertTimeoutMs) * time.Millisecond,
		CancelTimeout: time.Duration(c.CancelTimeoutMs) * time.Millisecond,
	}
}

// CancelPacing returns the fill threshold and window for cancel pacing.
func (c LifecycleConfig) CancelPacing() (int, time.Duration) {
	return c.CancelPacingFills, time.Duration(c.CancelPacingWindowMs) * time.Millisecond
}

// SymbolConstraints returns per-symbol constraints keyed by upper-case symbol.
func (cfg AppConfig) SymbolConstraints() map[string]order.SymbolConstraints {
	out := make(map[string]order.SymbolConstraints, len(cfg.Symbols))
	for sym, sc := range cfg.Symbols {
		out[strings.ToUpper(sym)] = order.SymbolConstraints{
			TickSize:    sc.TickSize,
			StepSize:    sc.StepSize,
			MinQty:      sc.MinQty,
			MaxQty:      sc.MaxQty,
			MinNotional: sc.MinNotional,
		}
	}
	return out
}

// Default returns a config usable without a file.
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Log: logger.DefaultConfig(),
		Lifecycle: LifecycleConfig{
			InsertRejectReason: "Cancelled",
			SweepIntervalMs:    1000,
			ForgetFinalized:    true,
		},
		Alert: AlertConfig{Enabled: true, ThrottleMs: 60000},
	}
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides operational fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("OLC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("OLC_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Log.Level == "" {
		return errors.New("log.level is required")
	}
	if _, err := cfg.Lifecycle.EngineConfig(); err != nil {
		return err
	}
	lc := cfg.Lifecycle
	if lc.CancelPacingFills < 0 || lc.CancelPacingWindowMs < 0 {
		return errors.New("lifecycle cancel pacing must be >= 0")
	}
	if lc.InsertTimeoutMs < 0 || lc.CancelTimeoutMs < 0 || lc.SweepIntervalMs < 0 {
		return errors.New("lifecycle timeouts must be >= 0")
	}
	if cfg.Alert.ThrottleMs < 0 {
		return errors.New("alert.throttleMs must be >= 0")
	}
	if lc.CancelTimeoutMs > 0 && !lc.CancelRejectRestoresInserted {
		return errors.New("lifecycle.cancelTimeoutMs requires cancelRejectRestoresInserted")
	}
	for sym, sc := range cfg.Symbols {
		if sc.TickSize <= 0 {
			return fmt.Errorf("symbol %s tickSize must be > 0", sym)
		}
		if sc.StepSize <= 0 {
			return fmt.Errorf("symbol %s stepSize must be > 0", sym)
		}
		if sc.MinQty < 0 || sc.MaxQty < 0 {
			return fmt.Errorf("symbol %s qty bounds must be >= 0", sym)
		}
		if sc.MaxQty > 0 && sc.MinQty > sc.MaxQty {
			return fmt.Errorf("symbol %s minQty > maxQty", sym)
		}
		if sc.MinNotional < 0 {
			return fmt.Errorf("symbol %s minNotional must be >= 0", sym)
		}
	}
	return nil
}
