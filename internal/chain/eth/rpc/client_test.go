package rpc

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polar0/roi-tracker/internal/chain"
)

// newNode starts a fake node that answers each method with a canned result.
func newNode(t *testing.T, results map[string]any) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		method, _ := req["method"].(string)
		result, ok := results[method]
		resp := map[string]any{"jsonrpc": "2.0", "id": req["id"]}
		if ok {
			resp["result"] = result
		} else {
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return server
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestChainID(t *testing.T) {
	t.Parallel()

	server := newNode(t, map[string]any{"eth_chainId": "0x1"})
	id, err := NewClient(server.URL).ChainID(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), id)
}

func TestBlockNumber(t *testing.T) {
	t.Parallel()

	server := newNode(t, map[string]any{"eth_blockNumber": "0x112a880"})
	n, err := NewClient(server.URL).BlockNumber(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, uint64(18_000_000), n)
}

func TestHeaderByNumber(t *testing.T) {
	t.Parallel()

	server := newNode(t, map[string]any{
		"eth_getBlockByNumber": map[string]any{
			"number":    "0x10",
			"timestamp": "0x65920080", // 2024-01-01T00:00:00Z
			"hash":      "0xabc",
		},
	})
	client := NewClient(server.URL)

	h, err := client.HeaderByNumber(testCtx(t), "")
	require.NoError(t, err)
	assert.Equal(t, uint64(16), h.Number)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), h.Timestamp.UTC())

	ts, err := client.BlockTimestamp(testCtx(t), 16)
	require.NoError(t, err)
	assert.Equal(t, int64(1704067200), ts.Unix())
}

func TestHeaderByNumber_UnknownBlock(t *testing.T) {
	t.Parallel()

	server := newNode(t, map[string]any{"eth_getBlockByNumber": nil})
	_, err := NewClient(server.URL).HeaderByNumber(testCtx(t), "0xffffffff")
	require.ErrorIs(t, err, ErrNilResponse)
}

func TestGetBalance(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "eth_getBalance", req["method"])
		params, _ := req["params"].([]any)
		if assert.Len(t, params, 2) {
			assert.Equal(t, "0x10", params[1])
		}
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req["id"], "result": "0xde0b6b3a7640000",
		}))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	balance, err := client.GetBalance(testCtx(t), "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", "0x10")
	require.NoError(t, err)

	expected, _ := new(big.Int).SetString("1000000000000000000", 10)
	assert.Equal(t, 0, expected.Cmp(balance))
}

func TestEthCall(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Params []json.RawMessage `json:"params"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		var msg map[string]string
		assert.NoError(t, json.Unmarshal(req.Params[0], &msg))
		assert.Equal(t, "0x70a08231", msg["data"])
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID,
			"result": "0x0000000000000000000000000000000000000000000000000de0b6b3a7640000",
		}))
	}))
	defer server.Close()

	out, err := NewClient(server.URL).EthCall(testCtx(t), CallMsg{To: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Data: []byte{0x70, 0xa0, 0x82, 0x31}}, "latest")
	require.NoError(t, err)
	assert.Len(t, out, 32)
}

func TestRPCError(t *testing.T) {
	t.Parallel()

	server := newNode(t, map[string]any{})
	_, err := NewClient(server.URL).ChainID(testCtx(t))

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
	assert.False(t, chain.IsRetryable(err))
}

func TestCall_HTTPStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		target error
	}{
		{"rate limited", http.StatusTooManyRequests, chain.ErrRateLimited},
		{"server error", http.StatusBadGateway, chain.ErrRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewClient(server.URL).BlockNumber(testCtx(t))
			require.ErrorIs(t, err, tt.target)
			assert.True(t, chain.IsRetryable(err))
		})
	}
}

func TestCall_MalformedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>nope</html>"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).BlockNumber(testCtx(t))
	require.ErrorIs(t, err, ErrRPCResponse)
}

func TestCall_Unreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClientWithTransport(url, NewDefaultTransport()).BlockNumber(testCtx(t))
	require.ErrorIs(t, err, ErrRPCRequest)
	assert.True(t, chain.IsRetryable(err))
}

func TestCallMsgMarshalJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(CallMsg{To: "0xabc", Data: []byte{0x01, 0xff}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"to":"0xabc","data":"0x01ff"}`, string(b))

	b, err = json.Marshal(CallMsg{To: "0xabc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"to":"0xabc"}`, string(b))
}
