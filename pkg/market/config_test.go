package market_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoetl/pkg/market"
)

type stubProvider struct {
	name string
	cfg  *market.ProviderConfig
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) FetchQuotes(context.Context, []string, string) (market.RawQuote, error) {
	return nil, nil
}

func init() {
	market.RegisterProvider("stub", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		return &stubProvider{name: name, cfg: cfg}, nil
	})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMarketConfig(t *testing.T) {
	path := writeConfig(t, `
default: primary
providers:
  primary:
    type: STUB
    base_url: https://example.test/api/v3
    timeout: 7s
    max_retries: 2
  backup:
    type: stub
`)

	cfg, err := market.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.DefaultName())

	primary := cfg.Providers["primary"]
	require.NotNil(t, primary)
	assert.Equal(t, 7*time.Second, primary.Timeout)
	assert.Equal(t, 2, primary.MaxRetries)

	providers, err := cfg.BuildProviders()
	require.NoError(t, err)
	assert.Len(t, providers, 2)

	p, err := cfg.BuildDefault()
	require.NoError(t, err)
	assert.Equal(t, "primary", p.Name())
}

func TestMarketConfigEnvExpansion(t *testing.T) {
	t.Setenv("MARKET_BASE", "https://mirror.test/api/v3")
	t.Setenv("MARKET_KEY", "demo-key")
	t.Setenv("MARKET_TIMEOUT", "3s")

	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
providers:
  only:
    type: stub
    base_url: ${MARKET_BASE}
    api_key: ${MARKET_KEY}
    timeout: ${MARKET_TIMEOUT}
`))
	require.NoError(t, err)
	p := cfg.Providers["only"]
	assert.Equal(t, "https://mirror.test/api/v3", p.BaseURL)
	assert.Equal(t, "demo-key", p.APIKey)
	assert.Equal(t, 3*time.Second, p.Timeout)
	assert.Equal(t, "only", cfg.DefaultName())
}

func TestMarketConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown type", body: "providers:\n  demo:\n    type: foobar\n", want: "unsupported"},
		{name: "no providers", body: "default: x\n", want: "providers cannot be empty"},
		{name: "missing default", body: "default: other\nproviders:\n  demo:\n    type: stub\n", want: "not defined"},
		{name: "missing type", body: "providers:\n  demo:\n    base_url: x\n", want: "must specify type"},
		{name: "bad timeout", body: "providers:\n  demo:\n    type: stub\n    timeout: soon\n", want: "invalid timeout"},
		{name: "negative timeout", body: "providers:\n  demo:\n    type: stub\n    timeout: -1s\n", want: "must be positive"},
		{name: "negative retries", body: "providers:\n  demo:\n    type: stub\n    max_retries: -1\n", want: "cannot be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := market.LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
