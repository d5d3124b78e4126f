// gtick-demo 按 YAML 配置注册若干逻辑定时器, 并通过 /metrics 暴露运行指标.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godyy/glog"
	"github.com/godyy/gtick"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "gtick-demo.yaml", "config file path")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	level, _ := parseLevel(cfg.LogLevel)
	logger := glog.NewLogger(&glog.Config{
		Level:        level,
		EnableCaller: true,
		CallerSkip:   0,
		Development:  false,
		Cores:        []glog.CoreConfig{glog.NewStdCoreConfig()},
	}).Named("demo")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if cfg.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.ErrorFields("run", zap.Error(err))
		os.Exit(1)
	}
}

// run 启动 Multiplexer 并阻塞到 ctx 结束.
func run(ctx context.Context, cfg *Config, logger glog.Logger) error {
	registry := prometheus.NewRegistry()

	mux, err := gtick.New(&gtick.Config{
		Name:       cfg.Name,
		TickPeriod: cfg.TickPeriod,
	}, gtick.WithLogger(logger), gtick.WithMetrics(registry))
	if err != nil {
		return err
	}

	if err := mux.Start(); err != nil {
		return err
	}
	defer mux.Kill()

	if err := registerTimers(mux, cfg.Timers, logger); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		server := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.ErrorFields("metrics server", zap.Error(err))
			}
		}()
		defer shutdownServer(server, time.Second, logger)
	}

	logger.InfoFields("running", zap.Int("timers", mux.Len()), zap.Duration("tickPeriod", mux.TickPeriod()))

	<-ctx.Done()

	logger.InfoFields("stopping", zap.Uint64("ticks", mux.Ticks()))

	return nil
}

// registerTimers 为每个配置项注册一个输出日志的逻辑定时器, 目标为配置项本身.
func registerTimers(mux *gtick.Multiplexer, timers []TimerConfig, logger glog.Logger) error {
	for i := range timers {
		tc := &timers[i]
		opts := []gtick.EntryOption{gtick.WithRepeat(tc.repeat())}
		if tc.Parameter != "" {
			opts = append(opts, gtick.WithParameter(tc.Parameter))
		}

		fn := gtick.ParamFunc(func(param any) {
			logger.InfoFields("timer fired",
				zap.String("timer", tc.Name),
				zap.Any("parameter", param),
				zap.Uint64("tick", mux.Ticks()))
		})

		if _, err := mux.AddTarget(tc, gtick.Action(tc.Name), fn, tc.Period, opts...); err != nil {
			return err
		}
	}
	return nil
}

// shutdownServer 在 timeout 内关闭 server, 失败时记录日志.
func shutdownServer(server *http.Server, timeout time.Duration, logger glog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.ErrorFields("metrics server shutdown", zap.Error(err))
		return err
	}
	return nil
}
