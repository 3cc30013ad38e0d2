// Package eth provides the Ethereum JSON-RPC balance reader and block dater.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/chain/eth/rpc"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// erc20ABI is the slice of the ERC-20 interface the tracker calls.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

var (
	// ErrRPCURLRequired indicates the RPC URL was not provided.
	ErrRPCURLRequired = &roierr.TrackerError{
		Code:       "ETH_RPC_URL_REQUIRED",
		Message:    "RPC URL is required",
		Suggestion: "set ROI_ETH_RPC or networks.eth.rpc in config.yaml",
		ExitCode:   roierr.ExitInput,
	}

	// ErrInvalidTokenAddress indicates the token address format is invalid.
	ErrInvalidTokenAddress = &roierr.TrackerError{
		Code:     "ETH_INVALID_TOKEN_ADDRESS",
		Message:  "invalid token address format",
		ExitCode: roierr.ExitInput,
	}

	// ErrAllEndpointsFailed is returned when the primary and every fallback RPC failed.
	ErrAllEndpointsFailed = &roierr.TrackerError{
		Code:     "ETH_ALL_ENDPOINTS_FAILED",
		Message:  "all RPC endpoints failed",
		ExitCode: roierr.ExitNetwork,
	}
)

// ClientOptions contains optional configuration for the ETH client.
type ClientOptions struct {
	// FallbackURLs are tried in order when the primary endpoint fails.
	FallbackURLs []string
	// Transport overrides the HTTP transport shared by all endpoints.
	Transport http.RoundTripper
	// Retry controls per-endpoint retries. The zero value uses chain.DefaultRetryConfig.
	Retry chain.RetryConfig
}

// Client reads balances from an Ethereum node, summed over a set of addresses.
type Client struct {
	endpoints []*rpc.Client
	retry     chain.RetryConfig
	erc20     abi.ABI

	mu       sync.Mutex
	decimals map[string]int
}

// NewClient creates a new ETH client for rpcURL and any fallbacks in opts.
func NewClient(rpcURL string, opts *ClientOptions) (*Client, error) {
	if rpcURL == "" {
		return nil, ErrRPCURLRequired
	}
	if opts == nil {
		opts = &ClientOptions{}
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parsing ERC-20 ABI: %w", err)
	}

	transport := opts.Transport
	if transport == nil {
		transport = rpc.NewDefaultTransport()
	}

	c := &Client{
		erc20:    parsed,
		retry:    opts.Retry,
		decimals: map[string]int{strings.ToLower(WETHMainnet): chain.WETHDecimals},
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = chain.DefaultRetryConfig()
	}

	c.endpoints = append(c.endpoints, rpc.NewClientWithTransport(rpcURL, transport))
	for _, u := range opts.FallbackURLs {
		if u = strings.TrimSpace(u); u != "" && u != rpcURL {
			c.endpoints = append(c.endpoints, rpc.NewClientWithTransport(u, transport))
		}
	}

	return c, nil
}

// ID returns the chain identifier.
func (c *Client) ID() chain.ID {
	return chain.ETH
}

// Balance returns the combined balance of addresses at ref. An empty token reads
// native ETH; otherwise the ERC-20 balanceOf of that contract is summed.
func (c *Client) Balance(ctx context.Context, addresses []string, ref chain.BlockRef, token string) (chain.Amount, error) {
	decimals := chain.ETHDecimals
	if token != "" {
		if !IsValidAddress(token) {
			return chain.Amount{}, ErrInvalidTokenAddress
		}
		d, err := c.TokenDecimals(ctx, token)
		if err != nil {
			return chain.Amount{}, err
		}
		decimals = d
	}

	total := chain.ZeroAmount(decimals)
	for _, addr := range addresses {
		if !IsValidAddress(addr) {
			return chain.Amount{}, roierr.WithDetails(roierr.ErrInvalidAddress, map[string]string{"address": addr})
		}

		var (
			v   *big.Int
			err error
		)
		if token == "" {
			v, err = c.NativeBalance(ctx, addr, ref)
		} else {
			v, err = c.TokenBalance(ctx, addr, token, ref)
		}
		if err != nil {
			return chain.Amount{}, err
		}
		total = total.Add(chain.NewAmount(v, decimals))
	}
	return total, nil
}

// NativeBalance returns the wei balance of a single address at ref.
func (c *Client) NativeBalance(ctx context.Context, address string, ref chain.BlockRef) (*big.Int, error) {
	return withFallback(ctx, c, func(rc *rpc.Client) (*big.Int, error) {
		return rc.GetBalance(ctx, address, ref.Tag())
	})
}

// TokenBalance returns the ERC-20 balance of a single address at ref, in the token's smallest unit.
func (c *Client) TokenBalance(ctx context.Context, address, token string, ref chain.BlockRef) (*big.Int, error) {
	data, err := c.erc20.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, fmt.Errorf("packing balanceOf: %w", err)
	}

	out, err := withFallback(ctx, c, func(rc *rpc.Client) ([]byte, error) {
		return rc.EthCall(ctx, rpc.CallMsg{To: token, Data: data}, ref.Tag())
	})
	if err != nil {
		return nil, fmt.Errorf("calling balanceOf: %w", err)
	}

	// No code at the address (or not yet deployed at that block)
	if len(out) == 0 {
		return new(big.Int), nil
	}

	values, err := c.erc20.Unpack("balanceOf", out)
	if err != nil {
		return nil, roierr.WithCause(rpc.ErrRPCResponse, err)
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, rpc.ErrRPCResponse
	}
	return bal, nil
}

// TokenDecimals returns the ERC-20 decimals of token, reading them once per contract.
func (c *Client) TokenDecimals(ctx context.Context, token string) (int, error) {
	key := strings.ToLower(token)

	c.mu.Lock()
	d, ok := c.decimals[key]
	c.mu.Unlock()
	if ok {
		return d, nil
	}

	data, err := c.erc20.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("packing decimals: %w", err)
	}
	out, err := withFallback(ctx, c, func(rc *rpc.Client) ([]byte, error) {
		return rc.EthCall(ctx, rpc.CallMsg{To: token, Data: data}, chain.LatestBlock().Tag())
	})
	if err != nil {
		return 0, fmt.Errorf("calling decimals: %w", err)
	}
	values, err := c.erc20.Unpack("decimals", out)
	if err != nil {
		return 0, roierr.WithCause(rpc.ErrRPCResponse, err)
	}
	u, ok := values[0].(uint8)
	if !ok {
		return 0, rpc.ErrRPCResponse
	}

	c.mu.Lock()
	c.decimals[key] = int(u)
	c.mu.Unlock()
	return int(u), nil
}

// BlockNumber returns the latest block height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return withFallback(ctx, c, func(rc *rpc.Client) (uint64, error) {
		return rc.BlockNumber(ctx)
	})
}

// HeaderByNumber returns the header at the given height.
func (c *Client) HeaderByNumber(ctx context.Context, height uint64) (*rpc.Header, error) {
	return withFallback(ctx, c, func(rc *rpc.Client) (*rpc.Header, error) {
		return rc.HeaderByNumber(ctx, chain.BlockAt(height).Tag())
	})
}

// withFallback runs op against each endpoint in order, retrying transient errors
// on each, and returns the first success.
func withFallback[T any](ctx context.Context, c *Client, op func(*rpc.Client) (T, error)) (T, error) {
	var zero T
	var errs []error

	for _, rc := range c.endpoints {
		result, err := chain.RetryWithConfig(ctx, c.retry, func() (T, error) {
			return op(rc)
		})
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		// A JSON-RPC error is the node answering; another node would say the same.
		var rpcErr *rpc.Error
		if errors.As(err, &rpcErr) {
			return zero, err
		}
		errs = append(errs, fmt.Errorf("%s: %w", rc.URL(), err))
	}

	if len(errs) == 1 {
		return zero, errs[0]
	}
	return zero, roierr.WithCause(ErrAllEndpointsFailed, errors.Join(errs...))
}
