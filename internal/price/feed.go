// Package price provides the fiat price feed and its periodic poller.
package price

import (
	"context"

	"github.com/shopspring/decimal"
)

// Assets the feed knows how to price, as CoinGecko coin IDs.
const (
	Ether = "ethereum"
)

// DefaultCurrency is the fiat currency prices are quoted in.
const DefaultCurrency = "usd"

// Feed returns the current fiat price of an asset.
type Feed interface {
	CurrentPrice(ctx context.Context, asset string) (decimal.Decimal, error)
}
