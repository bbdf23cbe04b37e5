package coingecko

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptoetl/pkg/logging"
	"cryptoetl/pkg/market"
)

const (
	defaultBaseURL          = "https://api.coingecko.com/api/v3"
	defaultHTTPTimeout      = 10 * time.Second
	defaultRetryBackoffBase = 250 * time.Millisecond
	maxErrorBody            = 256

	apiKeyHeader = "x-cg-demo-api-key"
)

// Client calls the CoinGecko public REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	logger     logging.Logger
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the API root, e.g. for a pro or mirror endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sends the demo API key header on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithMaxRetries sets how many times a failed request is repeated. The
// default is zero.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithLogger injects the logger used for request diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a CoinGecko client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logging.NewLogger("coingecko"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// SimplePrice fetches /simple/price for ids in vsCurrency with market cap,
// 24h volume and 24h change included. The response keeps upstream order.
func (c *Client) SimplePrice(ctx context.Context, ids []string, vsCurrency string) (market.RawQuote, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("coingecko: no asset ids requested")
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", strings.ToLower(strings.TrimSpace(vsCurrency)))
	q.Set("include_market_cap", "true")
	q.Set("include_24hr_vol", "true")
	q.Set("include_24hr_change", "true")

	body, err := c.get(ctx, "/simple/price", q)
	if err != nil {
		return nil, err
	}
	raw, err := market.DecodeRawQuoteBytes(body)
	if err != nil {
		return nil, fmt.Errorf("coingecko: %w", err)
	}
	return raw, nil
}

// get issues a GET request with retry and returns the 2xx body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("coingecko: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set(apiKeyHeader, c.apiKey)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("coingecko: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("coingecko: request: %w", err)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			c.logger.Debug(ctx, "coingecko response", logging.Fields{
				"path":       path,
				"status":     resp.StatusCode,
				"attempt":    attempt + 1,
				"elapsed_ms": time.Since(start).Milliseconds(),
			})
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("coingecko: read response: %w", readErr)
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				lastErr = fmt.Errorf("coingecko: http status %d: %s", resp.StatusCode, truncate(body))
			default:
				return body, nil
			}
		}

		if attempt < c.maxRetries {
			c.logger.Warn(ctx, "coingecko request failed, retrying", logging.Fields{
				"path":    path,
				"attempt": attempt + 1,
				"error":   lastErr.Error(),
			})
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("coingecko: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	return nil, lastErr
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
