// Package etherscan provides an Etherscan API client for block lookups,
// transaction history and latest balances.
package etherscan

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/metrics"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

const (
	// DefaultBaseURL is the Etherscan API v2 base URL.
	DefaultBaseURL = "https://api.etherscan.io/v2"

	// DefaultChainID is the Ethereum mainnet chain ID for the Etherscan v2 API.
	DefaultChainID = "1"

	httpTimeout = 30 * time.Second

	// maxResponseBody is the maximum response body size to read (1 MB).
	maxResponseBody = 1 << 20
)

// Sentinel errors for Etherscan API.
var (
	// ErrAPIKeyRequired indicates the Etherscan API key was not provided.
	ErrAPIKeyRequired = &roierr.TrackerError{
		Code:       "ETHERSCAN_API_KEY_REQUIRED",
		Message:    "Etherscan API key is required",
		Suggestion: "set ROI_ETHERSCAN_API_KEY or networks.eth.etherscan_api_key in config.yaml",
		ExitCode:   roierr.ExitInput,
	}

	// ErrAPIError indicates the Etherscan API returned an error response.
	ErrAPIError = &roierr.TrackerError{
		Code:     "ETHERSCAN_API_ERROR",
		Message:  "Etherscan API returned an error",
		ExitCode: roierr.ExitNetwork,
	}

	// ErrRateLimited indicates the Etherscan API rate limit was exceeded.
	ErrRateLimited = &roierr.TrackerError{
		Code:     "ETHERSCAN_RATE_LIMITED",
		Message:  "Etherscan API rate limit exceeded",
		ExitCode: roierr.ExitNetwork,
	}
)

// noRecordsMessages are status "0" responses that mean an empty result, not a failure.
//
//nolint:gochecknoglobals // Lookup table
var noRecordsMessages = []string{
	"No transactions found",
	"No records found",
}

// apiResponse is the standard Etherscan envelope. Result is a string for most
// actions and an array for list actions.
type apiResponse struct {
	Status  string          `json:"status"`  // "1" for success, "0" for error
	Message string          `json:"message"` // "OK" or error message
	Result  json.RawMessage `json:"result"`
}

// Client is an Etherscan API client.
type Client struct {
	apiKey      string
	baseURL     string
	chainID     string
	httpClient  *http.Client
	rateLimiter *chain.RateLimiter
	retry       chain.RetryConfig
}

// ClientOptions configures the Etherscan client.
type ClientOptions struct {
	// BaseURL overrides the default Etherscan API URL (useful for testing).
	BaseURL string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// ChainID overrides the default chain ID (default "1" for Ethereum mainnet).
	ChainID string
	// RateLimiter overrides the default 5 req/s limiter.
	RateLimiter *chain.RateLimiter
	// Retry overrides chain.DefaultRetryConfig.
	Retry *chain.RetryConfig
}

// NewClient creates a new Etherscan API client.
func NewClient(apiKey string, opts *ClientOptions) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		chainID: DefaultChainID,
		httpClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		rateLimiter: chain.NewRateLimiter(5, 5), // Etherscan free tier
		retry:       chain.DefaultRetryConfig(),
	}

	if opts != nil {
		if opts.BaseURL != "" {
			c.baseURL = strings.TrimRight(opts.BaseURL, "/")
		}
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
		if opts.ChainID != "" {
			c.chainID = opts.ChainID
		}
		if opts.RateLimiter != nil {
			c.rateLimiter = opts.RateLimiter
		}
		if opts.Retry != nil {
			c.retry = *opts.Retry
		}
	}

	return c, nil
}

// call runs one API action with rate limiting, retry and metrics.
func (c *Client) call(ctx context.Context, params url.Values) (json.RawMessage, error) {
	return chain.RetryWithConfig(ctx, c.retry, func() (json.RawMessage, error) {
		start := time.Now()
		result, err := c.doRequest(ctx, params)
		metrics.Global.RecordRPCCall(metrics.ProviderEtherscan, time.Since(start), err)
		return result, err
	})
}

// doRequest performs an HTTP GET request to the Etherscan API and returns the raw result.
func (c *Client) doRequest(ctx context.Context, params url.Values) (json.RawMessage, error) {
	if err := c.rateLimiter.Wait(ctx, metrics.ProviderEtherscan); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	// Etherscan v2 API requires chainid on every request
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("chainid", c.chainID)

	reqURL := fmt.Sprintf("%s/api?%s", c.baseURL, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// API key goes in a header so it stays out of server, proxy and history logs.
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq) //nolint:gosec // G704: URL is constructed from validated config, not user input
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, chain.WrapRetryable(fmt.Errorf("sending request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, chain.WrapRetryable(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, roierr.WithCause(roierr.WithDetails(ErrRateLimited, map[string]string{
			"status": strconv.Itoa(resp.StatusCode),
		}), chain.Throttled(resp.Header.Get("Retry-After")))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, chain.WrapRetryable(roierr.WithDetails(ErrAPIError, map[string]string{
			"status": strconv.Itoa(resp.StatusCode),
		}))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, roierr.WithDetails(ErrAPIError, map[string]string{
			"status": strconv.Itoa(resp.StatusCode),
			"body":   truncateBody(string(body), 512),
		})
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, roierr.WithCause(ErrAPIError, fmt.Errorf("parsing response: %w", err))
	}

	if apiResp.Status != "1" {
		for _, m := range noRecordsMessages {
			if apiResp.Message == m {
				return json.RawMessage("[]"), nil
			}
		}

		detail := resultText(apiResp.Result)
		if strings.Contains(detail, "Max rate limit reached") || strings.Contains(apiResp.Message, "rate limit") {
			return nil, roierr.WithCause(ErrRateLimited, chain.ErrRateLimited)
		}
		return nil, roierr.WithDetails(ErrAPIError, map[string]string{
			"message": apiResp.Message,
			"result":  truncateBody(detail, 256),
		})
	}

	return apiResp.Result, nil
}

// callString runs an action whose result is a plain string.
func (c *Client) callString(ctx context.Context, params url.Values) (string, error) {
	raw, err := c.call(ctx, params)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", roierr.WithCause(ErrAPIError, err)
	}
	return s, nil
}

// resultText renders a result for error details whether it is a JSON string or not.
func resultText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// truncateBody truncates a string to maxLen characters.
func truncateBody(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
