// Package rpc provides a minimal JSON-RPC 2.0 client for Ethereum nodes.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/metrics"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// maxResponseSize caps how much of a node response is read.
const maxResponseSize = 10 << 20

var (
	// ErrRPCRequest indicates an RPC request failed.
	ErrRPCRequest = &roierr.TrackerError{
		Code:     "RPC_REQUEST_FAILED",
		Message:  "RPC request failed",
		ExitCode: roierr.ExitNetwork,
	}

	// ErrRPCResponse indicates an invalid RPC response.
	ErrRPCResponse = &roierr.TrackerError{
		Code:     "RPC_INVALID_RESPONSE",
		Message:  "invalid RPC response",
		ExitCode: roierr.ExitNetwork,
	}

	// ErrNilResponse indicates a null result from the node, e.g. an unknown block.
	ErrNilResponse = &roierr.TrackerError{
		Code:     "RPC_NIL_RESPONSE",
		Message:  "nil RPC response",
		ExitCode: roierr.ExitNotFound,
	}
)

// NewDefaultTransport returns an HTTP transport tuned for repeated calls to a few hosts.
// Share one across the primary and fallback clients to pool connections.
func NewDefaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Client is a minimal Ethereum JSON-RPC client.
type Client struct {
	url        string
	httpClient *http.Client
	idCounter  atomic.Uint64
}

// NewClient creates a new RPC client with its own transport.
func NewClient(url string) *Client {
	return NewClientWithTransport(url, nil)
}

// NewClientWithTransport creates a new RPC client on a shared transport.
// A nil transport uses http.DefaultTransport.
func NewClientWithTransport(url string, transport http.RoundTripper) *Client {
	hc := &http.Client{}
	if transport != nil {
		hc.Transport = transport
	}
	return &Client{url: url, httpClient: hc}
}

// URL returns the node endpoint.
func (c *Client) URL() string {
	return c.url
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object returned by the node.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Call performs a JSON-RPC call and returns the raw result.
// Transport failures, HTTP 5xx and 429 responses are marked retryable.
func (c *Client) Call(ctx context.Context, method string, params ...any) (result json.RawMessage, err error) {
	start := time.Now()
	defer func() {
		metrics.Global.RecordRPCCall(metrics.ProviderRPC, time.Since(start), err)
	}()

	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.idCounter.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, chain.WrapRetryable(roierr.WithCause(ErrRPCRequest, err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return nil, chain.Throttled(httpResp.Header.Get("Retry-After"))
	case httpResp.StatusCode >= http.StatusInternalServerError:
		return nil, chain.WrapRetryable(roierr.WithDetails(ErrRPCRequest, map[string]string{
			"status": httpResp.Status,
		}))
	}

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, chain.WrapRetryable(fmt.Errorf("reading response body: %w", err))
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, roierr.WithCause(ErrRPCResponse, err)
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Result, nil
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := c.callInto(ctx, &id, "eth_chainId"); err != nil {
		return nil, err
	}
	return id.ToInt(), nil
}

// BlockNumber returns the height of the most recent block.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.callInto(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// Header is the subset of a block header the tracker reads.
type Header struct {
	Number    uint64
	Timestamp time.Time
}

type headerJSON struct {
	Number    hexutil.Uint64 `json:"number"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

// HeaderByNumber returns the header of the block referenced by tag ("latest" or a hex height).
func (c *Client) HeaderByNumber(ctx context.Context, tag string) (*Header, error) {
	if tag == "" {
		tag = "latest"
	}

	var h *headerJSON
	if err := c.callInto(ctx, &h, "eth_getBlockByNumber", tag, false); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, roierr.WithDetails(ErrNilResponse, map[string]string{"block": tag})
	}

	return &Header{
		Number:    uint64(h.Number),
		Timestamp: time.Unix(int64(h.Timestamp), 0), //nolint:gosec // G115: block timestamps fit in int64
	}, nil
}

// BlockTimestamp returns the timestamp of the block at the given height.
func (c *Client) BlockTimestamp(ctx context.Context, height uint64) (time.Time, error) {
	h, err := c.HeaderByNumber(ctx, hexutil.EncodeUint64(height))
	if err != nil {
		return time.Time{}, err
	}
	return h.Timestamp, nil
}

// GetBalance returns the balance of an address in wei at the given block tag.
func (c *Client) GetBalance(ctx context.Context, address, block string) (*big.Int, error) {
	if block == "" {
		block = "latest"
	}

	var bal hexutil.Big
	if err := c.callInto(ctx, &bal, "eth_getBalance", address, block); err != nil {
		return nil, err
	}
	return bal.ToInt(), nil
}

// CallMsg represents the parameters for eth_call.
type CallMsg struct {
	From string
	To   string
	Data []byte
}

// MarshalJSON encodes the call with hex data as the node expects.
func (m CallMsg) MarshalJSON() ([]byte, error) {
	type callMsgJSON struct {
		From string        `json:"from,omitempty"`
		To   string        `json:"to"`
		Data hexutil.Bytes `json:"data,omitempty"`
	}
	return json.Marshal(callMsgJSON{From: m.From, To: m.To, Data: m.Data})
}

// EthCall performs an eth_call at the given block tag.
func (c *Client) EthCall(ctx context.Context, msg CallMsg, block string) ([]byte, error) {
	if block == "" {
		block = "latest"
	}

	var out hexutil.Bytes
	if err := c.callInto(ctx, &out, "eth_call", msg, block); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) callInto(ctx context.Context, out any, method string, params ...any) error {
	raw, err := c.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return roierr.WithDetails(ErrNilResponse, map[string]string{"method": method})
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return roierr.WithCause(roierr.WithDetails(ErrRPCResponse, map[string]string{"method": method}), err)
	}
	return nil
}
