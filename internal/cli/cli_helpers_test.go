package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/config"
)

const testAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

// chainHeight is the head of the fake chain; blocks are twelve seconds apart.
const chainHeight = 1000

// fakeNode is a JSON-RPC node whose native balance is 1.5 ETH at any
// historical block and 2 ETH at latest, with a constant 0.5 WETH.
func fakeNode(t *testing.T) *httptest.Server {
	t.Helper()
	genesis := time.Now().Add(-chainHeight * 12 * time.Second).Unix()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		tagAt := func(i int) string {
			var tag string
			assert.NoError(t, json.Unmarshal(req.Params[i], &tag))
			return tag
		}

		var result any
		switch req.Method {
		case "eth_blockNumber":
			result = fmt.Sprintf("0x%x", chainHeight)
		case "eth_getBlockByNumber":
			height := uint64(chainHeight)
			if tag := tagAt(0); tag != "latest" {
				h, err := strconv.ParseUint(strings.TrimPrefix(tag, "0x"), 16, 64)
				assert.NoError(t, err)
				height = h
			}
			result = map[string]any{
				"number":    fmt.Sprintf("0x%x", height),
				"timestamp": fmt.Sprintf("0x%x", genesis+int64(height)*12),
			}
		case "eth_getBalance":
			v := "1.5"
			if tagAt(1) == "latest" {
				v = "2"
			}
			result = fmt.Sprintf("0x%x", chain.MustParseAmount(v, 18).Value)
		case "eth_call":
			result = fmt.Sprintf("0x%064x", chain.MustParseAmount("0.5", 18).Value)
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result}))
	}))
	t.Cleanup(server.Close)
	return server
}

// writeConfig saves a quiet test configuration under home.
func writeConfig(t *testing.T, home string, mutate func(*config.Config)) {
	t.Helper()
	c := config.Defaults()
	c.Home = home
	c.Logging.Level = "off"
	c.Logging.File = ""
	c.Cache.Backend = "memory"
	if mutate != nil {
		mutate(c)
	}
	require.NoError(t, config.Save(c, config.Path(home)))
}

// isolateEnv blanks every variable that would override the test configuration
// and points HOME at a temporary directory so nothing is written to the real one.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{
		config.EnvHome, config.EnvETHRPC, config.EnvEtherscanAPIKey, config.EnvEtherscanLegacy,
		config.EnvBlockSource, config.EnvCoinGeckoAPIKey, config.EnvRedisAddr, config.EnvTrackDeposits,
		config.EnvOutputFormat, config.EnvVerbose,
	} {
		t.Setenv(k, "")
	}
	t.Setenv(config.EnvLogLevel, "off")
}

// resetFlags restores every flag to its default so runs do not leak into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// bindContext points every command at ctx. Cobra keeps the first context a
// subcommand ran with, which would otherwise be a canceled one from an earlier test.
func bindContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, sub := range cmd.Commands() {
		bindContext(sub, ctx)
	}
}

// execute runs the root command with --home and returns stdout and stderr.
// NOT parallel: mutates package-level globals.
func execute(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var outBuf, errBuf bytes.Buffer
	origStderr := stderr
	stderr = &errBuf
	t.Cleanup(func() { stderr = origStderr })

	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(append([]string{"--home", home}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	bindContext(rootCmd, ctx)
	err := ExecuteContext(ctx)
	return outBuf.String(), errBuf.String(), err
}
