// Package chain provides the chain-level primitives shared by the tracker:
// block references, precise amounts, retry and rate limiting.
package chain

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ID represents a supported blockchain.
type ID string

// ETH is the only chain the tracker reads from.
const ETH ID = "eth"

// String returns the chain identifier string.
func (id ID) String() string {
	return string(id)
}

// etherscanLatestBlock is the end-block placeholder Etherscan documents for "up to the tip".
const etherscanLatestBlock = "99999999"

// BlockRef points at a concrete block height or at the latest block at query time.
type BlockRef struct {
	Height uint64
	Latest bool
}

// LatestBlock returns the "latest" sentinel reference.
func LatestBlock() BlockRef {
	return BlockRef{Latest: true}
}

// BlockAt returns a reference to a concrete block height.
func BlockAt(height uint64) BlockRef {
	return BlockRef{Height: height}
}

// Tag returns the JSON-RPC block parameter ("latest" or a 0x-prefixed quantity).
func (b BlockRef) Tag() string {
	if b.Latest {
		return "latest"
	}
	return hexutil.EncodeUint64(b.Height)
}

// Param returns the block as an Etherscan query parameter.
func (b BlockRef) Param() string {
	if b.Latest {
		return etherscanLatestBlock
	}
	return strconv.FormatUint(b.Height, 10)
}

// String returns a human-readable form of the reference.
func (b BlockRef) String() string {
	if b.Latest {
		return "latest"
	}
	return strconv.FormatUint(b.Height, 10)
}
