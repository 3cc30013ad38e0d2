package price

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/metrics"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

const (
	// DefaultBaseURL is the CoinGecko public API base URL.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	httpTimeout     = 15 * time.Second
	maxResponseBody = 64 << 10
)

// ErrUnknownAsset is returned when the response carries no quote for the asset.
var ErrUnknownAsset = &roierr.TrackerError{
	Code:     "PRICE_UNKNOWN_ASSET",
	Message:  "no price quoted for asset",
	ExitCode: roierr.ExitNetwork,
}

// CoinGeckoOptions configures the CoinGecko client.
type CoinGeckoOptions struct {
	// BaseURL overrides DefaultBaseURL (useful for testing).
	BaseURL string
	// APIKey is an optional demo API key sent as x-cg-demo-api-key.
	APIKey string
	// Currency overrides DefaultCurrency.
	Currency string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// RateLimiter overrides the default limiter (public tier, about 10 req/min).
	RateLimiter *chain.RateLimiter
}

// CoinGecko reads spot prices from the CoinGecko simple price endpoint.
type CoinGecko struct {
	baseURL     string
	apiKey      string
	currency    string
	httpClient  *http.Client
	rateLimiter *chain.RateLimiter
}

// NewCoinGecko creates a CoinGecko price feed.
func NewCoinGecko(opts *CoinGeckoOptions) *CoinGecko {
	c := &CoinGecko{
		baseURL:  DefaultBaseURL,
		currency: DefaultCurrency,
		httpClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		rateLimiter: chain.NewRateLimiter(1.0/6, 3),
	}
	if opts == nil {
		return c
	}
	if opts.BaseURL != "" {
		c.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	c.apiKey = opts.APIKey
	if opts.Currency != "" {
		c.currency = strings.ToLower(opts.Currency)
	}
	if opts.HTTPClient != nil {
		c.httpClient = opts.HTTPClient
	}
	if opts.RateLimiter != nil {
		c.rateLimiter = opts.RateLimiter
	}
	return c
}

// Currency returns the quote currency.
func (c *CoinGecko) Currency() string {
	return c.currency
}

// CurrentPrice implements Feed.
func (c *CoinGecko) CurrentPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	start := time.Now()
	p, err := c.fetch(ctx, asset)
	metrics.Global.RecordRPCCall(metrics.ProviderCoinGecko, time.Since(start), err)
	if err != nil {
		return decimal.Decimal{}, roierr.WithCause(roierr.ErrPriceUnavailable, err)
	}
	return p, nil
}

func (c *CoinGecko) fetch(ctx context.Context, asset string) (decimal.Decimal, error) {
	if err := c.rateLimiter.Wait(ctx, metrics.ProviderCoinGecko); err != nil {
		return decimal.Decimal{}, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("ids", asset)
	q.Set("vs_currencies", c.currency)
	reqURL := fmt.Sprintf("%s/simple/price?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL is built from config
	if err != nil {
		return decimal.Decimal{}, chain.WrapRetryable(fmt.Errorf("sending request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return decimal.Decimal{}, chain.Throttled(resp.Header.Get("Retry-After"))
	case resp.StatusCode != http.StatusOK:
		return decimal.Decimal{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var quotes map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &quotes); err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing response: %w", err)
	}
	p, ok := quotes[asset][c.currency]
	if !ok {
		return decimal.Decimal{}, roierr.WithDetails(ErrUnknownAsset, map[string]string{"asset": asset, "currency": c.currency})
	}
	return p, nil
}
