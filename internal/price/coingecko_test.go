package price_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/price"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

func newCoinGecko(t *testing.T, handler http.HandlerFunc, opts price.CoinGeckoOptions) *price.CoinGecko {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts.BaseURL = server.URL
	opts.RateLimiter = chain.Unlimited()
	return price.NewCoinGecko(&opts)
}

func TestCoinGecko_CurrentPrice(t *testing.T) {
	t.Parallel()

	feed := newCoinGecko(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3456.78}}`))
	}, price.CoinGeckoOptions{APIKey: "demo-key"})

	p, err := feed.CurrentPrice(context.Background(), price.Ether)
	require.NoError(t, err)
	assert.Equal(t, "3456.78", p.String())
	assert.Equal(t, "usd", feed.Currency())
}

func TestCoinGecko_Currency(t *testing.T) {
	t.Parallel()

	feed := newCoinGecko(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eur", r.URL.Query().Get("vs_currencies"))
		assert.Empty(t, r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`{"ethereum":{"eur":3000}}`))
	}, price.CoinGeckoOptions{Currency: "EUR"})

	p, err := feed.CurrentPrice(context.Background(), price.Ether)
	require.NoError(t, err)
	assert.Equal(t, "3000", p.String())
}

func TestCoinGecko_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  error
	}{
		{"rate limited", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}, chain.ErrRateLimited},
		{"missing asset", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}, price.ErrUnknownAsset},
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, roierr.ErrPriceUnavailable},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"ethereum":`))
		}, roierr.ErrPriceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			feed := newCoinGecko(t, tt.handler, price.CoinGeckoOptions{})
			_, err := feed.CurrentPrice(context.Background(), price.Ether)
			require.ErrorIs(t, err, tt.target)
			require.ErrorIs(t, err, roierr.ErrPriceUnavailable)
			assert.Equal(t, "Failed to fetch Ether price.", roierr.UserMessage(err))
		})
	}
}
