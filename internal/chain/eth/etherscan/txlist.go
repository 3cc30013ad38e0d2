package etherscan

import (
	"context"
	"encoding/json"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/polar0/roi-tracker/internal/chain"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

const (
	// DefaultPageSize is the number of transactions requested per txlist page.
	DefaultPageSize = 1000

	// resultWindow is the most records Etherscan returns for one query (page × offset).
	resultWindow = 10000
)

// ErrResultWindow is returned when a transaction listing exceeds what Etherscan can page through.
var ErrResultWindow = &roierr.TrackerError{
	Code:       "ETHERSCAN_RESULT_WINDOW",
	Message:    "too many transactions in the selected period",
	Suggestion: "select a shorter period",
	ExitCode:   roierr.ExitInput,
}

// Transaction is a normal (external) transaction as listed by Etherscan.
type Transaction struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	IsError         string `json:"isError"`
	TxReceiptStatus string `json:"txreceipt_status"`
}

// Succeeded reports whether the transaction executed without error.
func (tx Transaction) Succeeded() bool {
	return tx.IsError == "0" && tx.TxReceiptStatus != "0"
}

// Wei returns the transferred value in wei; malformed values read as zero.
func (tx Transaction) Wei() *big.Int {
	v, ok := new(big.Int).SetString(tx.Value, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

// Time returns the block timestamp of the transaction.
func (tx Transaction) Time() time.Time {
	sec, _ := strconv.ParseInt(tx.TimeStamp, 10, 64)
	return time.Unix(sec, 0)
}

// NormalTransactions lists the normal transactions of address in the inclusive block
// range [start, end], oldest first, following pagination.
func (c *Client) NormalTransactions(ctx context.Context, address string, start, end chain.BlockRef) ([]Transaction, error) {
	return c.normalTransactions(ctx, address, start, end, DefaultPageSize)
}

func (c *Client) normalTransactions(ctx context.Context, address string, start, end chain.BlockRef, pageSize int) ([]Transaction, error) {
	var all []Transaction

	for page := 1; ; page++ {
		if page*pageSize > resultWindow {
			return nil, roierr.WithDetails(ErrResultWindow, map[string]string{"address": address})
		}

		params := url.Values{
			"module":     {"account"},
			"action":     {"txlist"},
			"address":    {address},
			"startblock": {start.Param()},
			"endblock":   {end.Param()},
			"page":       {strconv.Itoa(page)},
			"offset":     {strconv.Itoa(pageSize)},
			"sort":       {"asc"},
		}

		raw, err := c.call(ctx, params)
		if err != nil {
			return nil, err
		}

		var txs []Transaction
		if err := json.Unmarshal(raw, &txs); err != nil {
			return nil, roierr.WithCause(ErrAPIError, err)
		}
		all = append(all, txs...)

		if len(txs) < pageSize {
			return all, nil
		}
	}
}
