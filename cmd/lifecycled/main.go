package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"order-lifecycle/clock"
	"order-lifecycle/config"
	"order-lifecycle/infrastructure/alert"
	"order-lifecycle/infrastructure/logger"
	"order-lifecycle/metrics"
	"order-lifecycle/order"
)

// lifecycled 从 stdin 逐行读取订单事件（JSON），驱动状态机并把最新状态记录写到 stdout。
func main() {
	cfgPath := flag.String("config", "", "配置文件路径，留空使用默认配置")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置")
	watch := flag.Bool("watch", true, "配置文件变化时热更新交易对约束")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.LoadWithEnvOverrides(*cfgPath)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()
	lg = lg.WithFields(map[string]interface{}{"service": "lifecycled", "env": cfg.Env})

	engineCfg, err := cfg.Lifecycle.EngineConfig()
	if err != nil {
		lg.Fatal("invalid lifecycle config", zap.Error(err))
	}
	engine, err := order.NewEngine(engineCfg)
	if err != nil {
		lg.Fatal("build engine", zap.Error(err))
	}

	mgr := order.NewManager(dryRunGateway{log: lg}, engine, clock.UTC)
	mgr.SetLogger(lg)
	mgr.SetConstraints(cfg.SymbolConstraints())
	mgr.SetForgetFinalized(cfg.Lifecycle.ForgetFinalized)
	mgr.SetCancelPacing(cfg.Lifecycle.CancelPacing())
	mgr.SetRecorder(metrics.NewLifecycle(nil))
	if cfg.Alert.Enabled {
		alerts := alert.NewManager([]alert.Channel{alert.NewLogChannel("log", lg)}, cfg.Alert.Throttle(), clock.UTC)
		mgr.SetRejectionHandler(func(id order.OrderID, from order.StateTag, event string, err error) {
			if aerr := alerts.NotifyRejection(string(id), string(from), event, err); aerr != nil {
				lg.Warn("alert failed", zap.Error(aerr))
			}
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		srv := metrics.StartMetricsServer(cfg.Metrics.Addr, nil, func(err error) {
			lg.Error("metrics server", zap.Error(err))
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sweeper := order.NewTimeoutSweeper(mgr, cfg.Lifecycle.SweeperConfig())
	sweeper.Start(ctx)
	defer sweeper.Stop()

	if *watch && *cfgPath != "" {
		w := config.Watcher{Path: *cfgPath}
		go func() {
			_ = w.Start(ctx, func(next config.AppConfig) {
				mgr.SetConstraints(next.SymbolConstraints())
				mgr.SetCancelPacing(next.Lifecycle.CancelPacing())
				lg.Info("config_reloaded", zap.Int("symbols", len(next.Symbols)))
			}, func(err error) {
				lg.Warn("config reload failed", zap.Error(err))
			})
		}()
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		lg.Warn("sd_notify failed", zap.Error(err))
	} else if ok {
		lg.Info("systemd notified ready")
	}
	lg.Info("lifecycled started",
		zap.String("env", cfg.Env),
		zap.String("metrics", cfg.Metrics.Addr),
		zap.Strings("cancelPendingEvents", engine.Allowed(order.TagCancelPending)),
	)

	p := newProcessor(mgr, os.Stdout, lg)
	done := make(chan error, 1)
	go func() { done <- p.run(ctx, os.Stdin) }()

	select {
	case <-ctx.Done():
	case err := <-done:
		if err != nil {
			lg.LogError(err, map[string]interface{}{"stage": "read_feed"})
		}
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	counts := mgr.Book().CountByState()
	sweeps := sweeper.Statistics()
	fills := mgr.Fills().Stats()
	lg.Info("lifecycled stopped",
		zap.Int("insertPending", counts[order.TagInsertPending]),
		zap.Int("inserted", counts[order.TagInserted]),
		zap.Int("cancelPending", counts[order.TagCancelPending]),
		zap.Int("finalized", counts[order.TagFinalized]),
		zap.Int64("sweeps", sweeps.TotalSweeps),
		zap.Int64("insertTimeouts", sweeps.InsertExpired),
		zap.Int64("cancelTimeouts", sweeps.CancelExpired),
		zap.Int("fills", fills.TotalFills),
		zap.Int("fullFills", fills.FullFills),
		zap.Float64("fillsPerMinute", mgr.Fills().RecentFillRate()),
	)
}

// dryRunGateway 不连接交易所，仅记录下单/撤单意图；真实回报由输入流提供。
type dryRunGateway struct {
	log *logger.Logger
}

func (g dryRunGateway) Place(_ context.Context, req order.Request) error {
	g.log.Debug("place", zap.String("order_id", string(req.ID)), zap.String("symbol", req.Symbol),
		zap.String("side", req.Side), zap.Float64("price", req.Price), zap.Float64("qty", req.Quantity))
	return nil
}

func (g dryRunGateway) Cancel(_ context.Context, id order.OrderID) error {
	g.log.Debug("cancel", zap.String("order_id", string(id)))
	return nil
}
