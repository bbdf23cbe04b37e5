// Command cron runs the pipeline on a fixed interval and serves Prometheus
// metrics. Runs never overlap: the next tick waits for the current run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoetl/internal/cli"
	"cryptoetl/internal/config"
	"cryptoetl/internal/pipeline"
	"cryptoetl/internal/svc"
	"cryptoetl/pkg/logging"
)

const shutdownTimeout = 10 * time.Second // Grace period for shutdown

var (
	configFile = flag.String("f", "etc/cryptoetl.yaml", "the config file")
	once       = flag.Bool("once", false, "run a single cycle and exit")
	verbose    = flag.Bool("v", false, "log at debug level")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logx.MustSetup(cfg.Log)
	defer logx.Close()
	if *verbose {
		logging.SetLevel("debug")
	}
	cli.LogConfigSummary(cfg)

	svcCtx := svc.MustNewServiceContext(*cfg)
	defer svcCtx.Close()
	runner, err := svcCtx.NewRunner()
	if err != nil {
		logx.Must(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if out := runner.Run(ctx); !out.Success {
			logx.Close()
			os.Exit(1)
		}
		return
	}

	var metricsServer *http.Server
	if cfg.MetricsListen != "" {
		metricsServer = startMetricsServer(cfg.MetricsListen, svcCtx)
	}

	logx.Infof("cron started: interval=%s", cfg.Pipeline.Interval)
	runSchedule(ctx, runner, cfg.Pipeline.Interval)
	logx.Info("shutdown signal received, stopping")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logx.Errorf("metrics server shutdown: %v", err)
		}
	}
	logx.Info("cron stopped")
}

// runSchedule runs once immediately and then on every tick until ctx ends.
func runSchedule(ctx context.Context, runner *pipeline.Runner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runCycle(ctx, runner)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCycle(ctx, runner)
		}
	}
}

func runCycle(ctx context.Context, runner *pipeline.Runner) {
	if ctx.Err() != nil {
		return
	}
	out := runner.Run(ctx)
	if !out.Success {
		logx.Errorf("run %s failed at %s after %s: %v", out.RunID, out.FailedStage, out.Duration, out.Err)
		return
	}
	logx.Infof("run %s committed %d records in %s", out.RunID, out.Committed, out.Duration)
}

func startMetricsServer(addr string, svcCtx *svc.ServiceContext) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", svcCtx.Metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Errorf("metrics server: %v", err)
		}
	}()
	logx.Infof("metrics listening on %s", addr)
	return srv
}
