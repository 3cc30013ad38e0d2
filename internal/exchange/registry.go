// Package exchange knows the hot wallets of centralized exchanges and sums
// the deposits they made to a set of tracked addresses.
package exchange

import (
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// Exchange is one known exchange wallet.
type Exchange struct {
	Name    string `json:"name" yaml:"name" csv:"name"`
	Address string `json:"address" yaml:"address" csv:"address"`
}

// defaultWallets are well-known mainnet hot wallets, keyed by exchange name.
//
//nolint:gochecknoglobals // Static lookup data
var defaultWallets = map[string][]string{
	"Binance": {
		"0x28c6c06298d514db089934071355e5743bf21d60",
		"0x21a31ee1afc51d94c2efccaa2092ad1028285549",
		"0xdfd5293d8e347dfe59e90efd55b2956a1343963d",
	},
	"Coinbase": {
		"0xa9d1e08c7793af67e9d92fe308d5697fb81d3e43",
	},
	"Kraken": {
		"0xda9dfa130df4de4673b89022ee50ff26f6ea73cf",
	},
	"OKX": {
		"0x6cc5f688a315f3dc28a7781717a9a798a59fda7b",
	},
	"Gemini": {
		"0x5f65f7b609678448494de4c87521cdf6cef1e932",
	},
	"KuCoin": {
		"0xd6216fc19db775df9774a6e33526131da7d19a2c",
	},
}

// Registry maps exchange wallet addresses to exchange names. Lookups ignore case.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byAddr map[common.Address]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byAddr: make(map[common.Address]string)}
}

// DefaultRegistry returns a registry preloaded with well-known exchange wallets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for name, addrs := range defaultWallets {
		for _, a := range addrs {
			r.byAddr[common.HexToAddress(a)] = name
		}
	}
	return r
}

// Add registers address as a wallet of the named exchange.
func (r *Registry) Add(name, address string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return roierr.WithDetails(roierr.ErrInvalidInput, map[string]string{"field": "exchange name"})
	}
	if !common.IsHexAddress(address) || !strings.HasPrefix(address, "0x") {
		return roierr.WithDetails(roierr.ErrInvalidAddress, map[string]string{"address": address})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAddr[common.HexToAddress(address)] = name
	return nil
}

// AddAll registers every wallet in wallets, keyed by exchange name.
func (r *Registry) AddAll(wallets map[string][]string) error {
	for name, addrs := range wallets {
		for _, a := range addrs {
			if err := r.Add(name, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// Lookup returns the exchange name owning address.
func (r *Registry) Lookup(address string) (string, bool) {
	if !common.IsHexAddress(address) {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byAddr[common.HexToAddress(address)]
	return name, ok
}

// Len returns the number of registered wallets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddr)
}

// All returns every wallet sorted by exchange name, then address.
// Addresses are in EIP-55 checksum form.
func (r *Registry) All() []Exchange {
	r.mu.RLock()
	out := make([]Exchange, 0, len(r.byAddr))
	for addr, name := range r.byAddr {
		out = append(out, Exchange{Name: name, Address: addr.Hex()})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Address < out[j].Address
	})
	return out
}
