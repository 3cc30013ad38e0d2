package tracker

import (
	"context"
	"time"

	"github.com/polar0/roi-tracker/internal/chain"
)

// BlockResolver maps a timestamp to the highest block mined at or before it.
// Satisfied by eth.BlockDater, etherscan.Client and cache.CachedResolver.
type BlockResolver interface {
	BlockAt(ctx context.Context, t time.Time) (uint64, error)
}

// BalanceReader returns the combined balance of addresses at a block.
// An empty token means the native coin. Satisfied by eth.Client.
type BalanceReader interface {
	Balance(ctx context.Context, addresses []string, ref chain.BlockRef, token string) (chain.Amount, error)
}

// DepositReader returns the total deposited from known exchanges into addresses
// between two blocks. Satisfied by exchange.DepositReader.
type DepositReader interface {
	Deposits(ctx context.Context, addresses []string, start, end chain.BlockRef) (chain.Amount, error)
}

// Logger receives workflow diagnostics. Satisfied by config.Logger.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
