package etherscan

import (
	"context"
	"math/big"
	"net/url"

	"github.com/polar0/roi-tracker/internal/chain"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

var (
	// ErrInvalidBalance indicates a balance result could not be parsed.
	ErrInvalidBalance = &roierr.TrackerError{
		Code:     "ETHERSCAN_INVALID_BALANCE",
		Message:  "invalid balance value in Etherscan response",
		ExitCode: roierr.ExitNetwork,
	}

	// ErrHistoricalBalance is returned for balance queries at a past block,
	// which the free Etherscan API does not serve.
	ErrHistoricalBalance = &roierr.TrackerError{
		Code:       "ETHERSCAN_HISTORICAL_BALANCE",
		Message:    "Etherscan only serves latest balances",
		Suggestion: "configure an archive RPC endpoint with ROI_ETH_RPC",
		ExitCode:   roierr.ExitInput,
	}
)

// NativeBalance retrieves the latest wei balance of an address.
func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	return c.balance(ctx, url.Values{
		"module":  {"account"},
		"action":  {"balance"},
		"address": {address},
		"tag":     {"latest"},
	})
}

// TokenBalance retrieves the latest ERC-20 balance of an address, in the token's smallest unit.
func (c *Client) TokenBalance(ctx context.Context, address, token string) (*big.Int, error) {
	return c.balance(ctx, url.Values{
		"module":          {"account"},
		"action":          {"tokenbalance"},
		"contractaddress": {token},
		"address":         {address},
		"tag":             {"latest"},
	})
}

// Balance sums latest balances over addresses. Only chain.LatestBlock is supported.
// Token amounts assume 18 decimals, which holds for WETH.
func (c *Client) Balance(ctx context.Context, addresses []string, ref chain.BlockRef, token string) (chain.Amount, error) {
	if !ref.Latest {
		return chain.Amount{}, ErrHistoricalBalance
	}

	total := chain.ZeroAmount(chain.ETHDecimals)
	for _, addr := range addresses {
		var (
			v   *big.Int
			err error
		)
		if token == "" {
			v, err = c.NativeBalance(ctx, addr)
		} else {
			v, err = c.TokenBalance(ctx, addr, token)
		}
		if err != nil {
			return chain.Amount{}, err
		}
		total = total.Add(chain.NewAmount(v, chain.ETHDecimals))
	}
	return total, nil
}

func (c *Client) balance(ctx context.Context, params url.Values) (*big.Int, error) {
	result, err := c.callString(ctx, params)
	if err != nil {
		return nil, err
	}

	amount, ok := new(big.Int).SetString(result, 10)
	if !ok {
		return nil, roierr.WithDetails(ErrInvalidBalance, map[string]string{
			"result": truncateBody(result, 64),
		})
	}
	return amount, nil
}
