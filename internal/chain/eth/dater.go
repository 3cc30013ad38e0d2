package eth

import (
	"context"
	"time"

	"github.com/polar0/roi-tracker/internal/chain/eth/rpc"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// HeaderSource is the node access the block dater needs. *Client satisfies it.
type HeaderSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, height uint64) (*rpc.Header, error)
}

// BlockDater maps a timestamp to the highest block mined at or before it,
// using only plain JSON-RPC calls.
type BlockDater struct {
	src HeaderSource
}

// NewBlockDater creates a block dater over src.
func NewBlockDater(src HeaderSource) *BlockDater {
	return &BlockDater{src: src}
}

// BlockAt returns the height of the highest block whose timestamp is <= t.
// Timestamps before genesis resolve to block 0.
func (d *BlockDater) BlockAt(ctx context.Context, t time.Time) (uint64, error) {
	latest, err := d.src.BlockNumber(ctx)
	if err != nil {
		return 0, roierr.WithCause(roierr.ErrBlockLookup, err)
	}

	head, err := d.src.HeaderByNumber(ctx, latest)
	if err != nil {
		return 0, roierr.WithCause(roierr.ErrBlockLookup, err)
	}
	if !head.Timestamp.After(t) {
		return latest, nil
	}

	// Invariant: timestamp(lo) <= t < timestamp(hi), with lo = 0 assumed.
	lo, hi := uint64(0), latest
	for hi-lo > 1 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		mid := lo + (hi-lo)/2
		h, err := d.src.HeaderByNumber(ctx, mid)
		if err != nil {
			return 0, roierr.WithCause(roierr.ErrBlockLookup, err)
		}
		if h.Timestamp.After(t) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo, nil
}
