package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cryptoetl/pkg/market"
)

// ProviderType is the registry name used in etc/market.yaml.
const ProviderType = "coingecko"

// Provider adapts Client to market.Provider. Every failure it returns wraps
// market.ErrExtractionFailed.
type Provider struct {
	name    string
	client  *Client
	timeout time.Duration
}

// NewProvider wraps client. A positive timeout bounds each fetch.
func NewProvider(name string, client *Client, timeout time.Duration) *Provider {
	if client == nil {
		client = NewClient()
	}
	return &Provider{name: name, client: client, timeout: timeout}
}

func init() {
	market.RegisterProvider(ProviderType, func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []Option{
			WithBaseURL(cfg.BaseURL),
			WithAPIKey(cfg.APIKey),
			WithMaxRetries(cfg.MaxRetries),
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		return NewProvider(name, NewClient(opts...), cfg.Timeout), nil
	})
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) FetchQuotes(ctx context.Context, ids []string, vsCurrency string) (market.RawQuote, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	raw, err := p.client.SimplePrice(ctx, ids, vsCurrency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", market.ErrExtractionFailed, err)
	}
	return raw, nil
}
