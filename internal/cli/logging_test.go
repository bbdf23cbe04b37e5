package cli

import (
	"strings"
	"testing"

	"cryptoetl/internal/config"
	"cryptoetl/pkg/confkit"
	marketpkg "cryptoetl/pkg/market"
)

func TestConfigSummaryLines(t *testing.T) {
	cfg := &config.Config{
		Env:        "dev",
		JournalDir: "logs/runs",
		Postgres:   config.PostgresConf{DSN: "postgres://x", Driver: "pgx"},
		Pipeline:   config.PipelineConf{Assets: "bitcoin,ethereum", VsCurrency: "inr"},
		Market:     confkit.Section[marketpkg.Config]{File: "market.yaml"},
	}
	joined := strings.Join(ConfigSummaryLines(cfg), "\n")
	for _, want := range []string{
		"Environment: dev",
		"Postgres: configured",
		"Redis: not configured",
		"Assets: bitcoin, ethereum",
		"Metrics listen: none",
		"Market config: market.yaml",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("summary missing %q:\n%s", want, joined)
		}
	}
}

func TestConfigSummaryNil(t *testing.T) {
	lines := ConfigSummaryLines(nil)
	if len(lines) != 1 || lines[0] != "Configuration: <nil>" {
		t.Fatalf("unexpected lines %v", lines)
	}
}
