package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoetl/internal/config"
	"cryptoetl/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	p := cfg.Pipeline
	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Postgres: %s (driver %s, tx timeout %s)", presence(cfg.Postgres.DSN != ""), cfg.Postgres.Driver, cfg.Postgres.TxTimeout),
		fmt.Sprintf("Redis: %s", presence(strings.TrimSpace(cfg.Redis.Host) != "")),
		fmt.Sprintf("TTL (short/medium/long): %ds / %ds / %ds", cfg.TTL.Short, cfg.TTL.Medium, cfg.TTL.Long),
		fmt.Sprintf("Assets: %s", strings.Join(p.AssetIDs(), ", ")),
		fmt.Sprintf("Quote currency: %s, precision %d", p.VsCurrency, p.Precision),
		fmt.Sprintf("Tier thresholds (high/medium): %s / %s", p.HighTierThreshold, p.MediumTierThreshold),
		fmt.Sprintf("Batch size: %d, verify window %s", p.BatchSize, p.VerifyWindow),
		fmt.Sprintf("Extract timeout: %s, interval %s", p.ExtractTimeout, p.Interval),
		fmt.Sprintf("Journal dir: %s", cfg.JournalDir),
		fmt.Sprintf("Metrics listen: %s", orNone(cfg.MetricsListen)),
		sectionLine("Market config", cfg.Market),
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func orNone(v string) string {
	if strings.TrimSpace(v) == "" {
		return "none"
	}
	return v
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: default", name)
	}
}
