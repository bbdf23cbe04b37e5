// Command etl performs a single pipeline run and exits 0 on success, 1 on
// failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoetl/internal/cli"
	"cryptoetl/internal/config"
	"cryptoetl/internal/svc"
	"cryptoetl/pkg/logging"
)

var (
	configFile = flag.String("f", "etc/cryptoetl.yaml", "the config file")
	verbose    = flag.Bool("v", false, "log at debug level")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	logx.MustSetup(cfg.Log)
	defer logx.Close()
	if *verbose {
		logging.SetLevel("debug")
	}
	cli.LogConfigSummary(cfg)

	svcCtx, err := svc.NewServiceContext(*cfg)
	if err != nil {
		logx.Errorf("build service context: %v", err)
		return 1
	}
	defer svcCtx.Close()
	runner, err := svcCtx.NewRunner()
	if err != nil {
		logx.Errorf("build pipeline: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := runner.Run(ctx)
	if !out.Success {
		return 1
	}
	return 0
}
