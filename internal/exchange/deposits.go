package exchange

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/chain/eth/etherscan"
)

// TransactionLister lists normal transactions of an address in a block range.
// *etherscan.Client satisfies it.
type TransactionLister interface {
	NormalTransactions(ctx context.Context, address string, start, end chain.BlockRef) ([]etherscan.Transaction, error)
}

// Deposit is one inbound transfer from an exchange wallet.
type Deposit struct {
	Exchange string    `json:"exchange" csv:"exchange"`
	From     string    `json:"from" csv:"from"`
	To       string    `json:"to" csv:"to"`
	Hash     string    `json:"hash" csv:"hash"`
	Value    *big.Int  `json:"value" csv:"-"`
	Time     time.Time `json:"time" csv:"time"`
}

// DepositReader sums ETH sent from known exchange wallets to tracked addresses.
type DepositReader struct {
	txs      TransactionLister
	registry *Registry
}

// NewDepositReader creates a deposit reader. A nil registry uses DefaultRegistry.
func NewDepositReader(txs TransactionLister, registry *Registry) *DepositReader {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &DepositReader{txs: txs, registry: registry}
}

// Deposits returns the total ETH deposited from exchanges to addresses in [start, end].
func (r *DepositReader) Deposits(ctx context.Context, addresses []string, start, end chain.BlockRef) (chain.Amount, error) {
	list, err := r.List(ctx, addresses, start, end)
	if err != nil {
		return chain.Amount{}, err
	}

	total := chain.ZeroAmount(chain.ETHDecimals)
	for _, d := range list {
		total = total.Add(chain.NewAmount(d.Value, chain.ETHDecimals))
	}
	return total, nil
}

// List returns the individual exchange deposits to addresses in [start, end], oldest first
// per address. Failed transactions, zero-value transfers and transfers between two
// tracked addresses are excluded.
func (r *DepositReader) List(ctx context.Context, addresses []string, start, end chain.BlockRef) ([]Deposit, error) {
	tracked := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		tracked[strings.ToLower(a)] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []Deposit

	for _, addr := range addresses {
		txs, err := r.txs.NormalTransactions(ctx, addr, start, end)
		if err != nil {
			return nil, err
		}

		for _, tx := range txs {
			if _, dup := seen[tx.Hash]; dup {
				continue
			}
			if !strings.EqualFold(tx.To, addr) || !tx.Succeeded() {
				continue
			}
			if _, internal := tracked[strings.ToLower(tx.From)]; internal {
				continue
			}
			name, ok := r.registry.Lookup(tx.From)
			if !ok {
				continue
			}
			v := tx.Wei()
			if v.Sign() <= 0 {
				continue
			}

			seen[tx.Hash] = struct{}{}
			out = append(out, Deposit{
				Exchange: name,
				From:     tx.From,
				To:       tx.To,
				Hash:     tx.Hash,
				Value:    v,
				Time:     tx.Time(),
			})
		}
	}
	return out, nil
}
