package eth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/chain/eth"
)

const (
	alice = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bob   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	dai   = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
)

// fakeNode answers eth_getBalance and eth_call from per-address tables.
type fakeNode struct {
	native        map[string]*big.Int
	token         map[string]*big.Int
	tokenDecimals uint8
	calls         atomic.Int64
	decimalsCalls atomic.Int64
	lastTag       atomic.Value
}

func ether(s string) *big.Int {
	return chain.MustParseAmount(s, 18).Value
}

func word(v *big.Int) string {
	return fmt.Sprintf("0x%064x", v)
}

func (f *fakeNode) serve(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}

		var result any
		switch req.Method {
		case "eth_getBalance":
			var addr, tag string
			assert.NoError(t, json.Unmarshal(req.Params[0], &addr))
			assert.NoError(t, json.Unmarshal(req.Params[1], &tag))
			f.lastTag.Store(tag)
			v := f.native[strings.ToLower(addr)]
			if v == nil {
				v = new(big.Int)
			}
			result = fmt.Sprintf("0x%x", v)
		case "eth_call":
			var msg map[string]string
			var tag string
			assert.NoError(t, json.Unmarshal(req.Params[0], &msg))
			assert.NoError(t, json.Unmarshal(req.Params[1], &tag))
			data := msg["data"]
			switch {
			case strings.HasPrefix(data, "0x313ce567"):
				f.decimalsCalls.Add(1)
				result = word(big.NewInt(int64(f.tokenDecimals)))
			case strings.HasPrefix(data, "0x70a08231"):
				f.lastTag.Store(tag)
				holder := "0x" + data[len(data)-40:]
				v := f.token[strings.ToLower(holder)]
				if v == nil {
					result = "0x"
				} else {
					result = word(v)
				}
			}
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID, "result": result,
		}))
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

func newTestClient(t *testing.T, url string, fallbacks ...string) *eth.Client {
	t.Helper()
	c, err := eth.NewClient(url, &eth.ClientOptions{
		FallbackURLs: fallbacks,
		Retry:        chain.NoRetry(),
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := eth.NewClient("", nil)
	require.ErrorIs(t, err, eth.ErrRPCURLRequired)
}

func TestClient_NativeBalanceSum(t *testing.T) {
	t.Parallel()

	node := &fakeNode{native: map[string]*big.Int{
		strings.ToLower(alice): ether("1.25"),
		strings.ToLower(bob):   ether("0.25"),
	}}
	c := newTestClient(t, node.serve(t).URL)

	got, err := c.Balance(testCtx(t), []string{alice, bob}, chain.BlockAt(16), "")
	require.NoError(t, err)
	assert.Equal(t, "1.5", got.String())
	assert.Equal(t, chain.ETHDecimals, got.Decimals)
	assert.Equal(t, "0x10", node.lastTag.Load())

	_, err = c.Balance(testCtx(t), []string{alice}, chain.LatestBlock(), "")
	require.NoError(t, err)
	assert.Equal(t, "latest", node.lastTag.Load())
}

func TestClient_TokenBalanceSum(t *testing.T) {
	t.Parallel()

	node := &fakeNode{token: map[string]*big.Int{
		strings.ToLower(alice): ether("2"),
	}}
	c := newTestClient(t, node.serve(t).URL)

	// bob has no entry, which the fake answers with empty return data
	got, err := c.Balance(testCtx(t), []string{alice, bob}, chain.BlockAt(100), eth.WETHMainnet)
	require.NoError(t, err)
	assert.Equal(t, "2.0", got.String())
	assert.Equal(t, int64(0), node.decimalsCalls.Load(), "WETH decimals are known")
}

func TestClient_TokenDecimalsReadOnce(t *testing.T) {
	t.Parallel()

	node := &fakeNode{
		tokenDecimals: 6,
		token:         map[string]*big.Int{strings.ToLower(alice): big.NewInt(1_500_000)},
	}
	c := newTestClient(t, node.serve(t).URL)

	for i := 0; i < 3; i++ {
		got, err := c.Balance(testCtx(t), []string{alice}, chain.LatestBlock(), dai)
		require.NoError(t, err)
		assert.Equal(t, "1.5", got.String())
		assert.Equal(t, 6, got.Decimals)
	}
	assert.Equal(t, int64(1), node.decimalsCalls.Load())
}

func TestClient_InvalidInput(t *testing.T) {
	t.Parallel()

	node := &fakeNode{}
	c := newTestClient(t, node.serve(t).URL)

	_, err := c.Balance(testCtx(t), []string{"0xbad"}, chain.LatestBlock(), "")
	require.Error(t, err)

	_, err = c.Balance(testCtx(t), []string{alice}, chain.LatestBlock(), "weth")
	require.ErrorIs(t, err, eth.ErrInvalidTokenAddress)
	assert.Equal(t, int64(0), node.calls.Load())
}

func TestClient_FallbackOnServerError(t *testing.T) {
	t.Parallel()

	var primaryHits atomic.Int64
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		primaryHits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	node := &fakeNode{native: map[string]*big.Int{strings.ToLower(alice): ether("3")}}
	c := newTestClient(t, primary.URL, node.serve(t).URL)

	got, err := c.Balance(testCtx(t), []string{alice}, chain.LatestBlock(), "")
	require.NoError(t, err)
	assert.Equal(t, "3.0", got.String())
	assert.Equal(t, int64(1), primaryHits.Load())
}

func TestClient_AllEndpointsFail(t *testing.T) {
	t.Parallel()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	c := newTestClient(t, down.URL, down.URL+"/backup")
	_, err := c.Balance(testCtx(t), []string{alice}, chain.LatestBlock(), "")
	require.ErrorIs(t, err, eth.ErrAllEndpointsFailed)
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	node := &fakeNode{native: map[string]*big.Int{strings.ToLower(alice): ether("1")}}
	backend := node.serve(t)
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		resp, err := http.Post(backend.URL, "application/json", r.Body) //nolint:noctx // test proxy
		if !assert.NoError(t, err) {
			return
		}
		defer func() { _ = resp.Body.Close() }()
		var body json.RawMessage
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_, _ = w.Write(body)
	}))
	defer flaky.Close()

	c, err := eth.NewClient(flaky.URL, &eth.ClientOptions{
		Retry: chain.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
	require.NoError(t, err)

	got, err := c.Balance(testCtx(t), []string{alice}, chain.LatestBlock(), "")
	require.NoError(t, err)
	assert.Equal(t, "1.0", got.String())
	assert.Equal(t, int64(2), hits.Load())
}
