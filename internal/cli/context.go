package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/polar0/roi-tracker/internal/cache"
	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/chain/eth"
	"github.com/polar0/roi-tracker/internal/chain/eth/etherscan"
	"github.com/polar0/roi-tracker/internal/config"
	"github.com/polar0/roi-tracker/internal/exchange"
	"github.com/polar0/roi-tracker/internal/notify"
	"github.com/polar0/roi-tracker/internal/output"
	"github.com/polar0/roi-tracker/internal/price"
	"github.com/polar0/roi-tracker/internal/service/tracker"
)

// blockCacheFile is the file cache name under the roi home directory.
const blockCacheFile = "blocks.json"

// redisDialTimeout bounds the initial PING to the cache server.
const redisDialTimeout = 3 * time.Second

// CommandContext holds the collaborators a command runs against.
type CommandContext struct {
	Cfg       *config.Config
	Log       *config.Logger
	Formatter *output.Formatter
	Sink      notify.Sink

	Node      *eth.Client
	Etherscan *etherscan.Client // nil without an API key
	Blocks    tracker.BlockResolver
	Deposits  *exchange.DepositReader // nil without an API key
	Registry  *exchange.Registry
	Price     price.Feed

	closers []func() error
}

// Close flushes caches and releases connections.
func (c *CommandContext) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// clientRetry is the per-request retry policy of the node and Etherscan clients.
func clientRetry(c *config.Config) chain.RetryConfig {
	retry := chain.DefaultRetryConfig()
	if n := c.Tracker.RetryAttempts; n > 0 {
		retry.MaxAttempts = n
	}
	return retry
}

// Workflow builds a tracking workflow from the configuration. The clients
// already retry each request, so the workflow runs every call once.
func (c *CommandContext) Workflow() *tracker.Workflow {
	opts := []tracker.Option{
		tracker.WithSink(c.Sink),
		tracker.WithLogger(c.Log.Named("tracker")),
		tracker.WithToken(c.Cfg.Tracker.Token),
		tracker.WithRetry(chain.NoRetry()),
		tracker.WithDepositTracking(c.Cfg.Tracker.TrackDeposits && c.Deposits != nil),
	}
	if s := c.Cfg.Tracker.CallTimeoutSeconds; s > 0 {
		opts = append(opts, tracker.WithCallTimeout(time.Duration(s)*time.Second))
	}
	if c.Deposits != nil {
		opts = append(opts, tracker.WithDepositReader(c.Deposits))
	}
	return tracker.NewWorkflow(c.Blocks, c.Node, opts...)
}

// newCommandContext validates the configuration and wires every collaborator.
func newCommandContext(ctx context.Context, c *config.Config, log *config.Logger, f *output.Formatter, w io.Writer) (*CommandContext, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cc := &CommandContext{
		Cfg:       c,
		Log:       log,
		Formatter: f,
		Sink:      notify.NewWriterSink(w),
	}

	retry := clientRetry(c)
	node, err := eth.NewClient(c.GetETHRPC(), &eth.ClientOptions{FallbackURLs: c.GetETHFallbackRPCs(), Retry: retry})
	if err != nil {
		return nil, err
	}
	cc.Node = node

	if key := c.GetEtherscanAPIKey(); key != "" {
		opts := &etherscan.ClientOptions{Retry: &retry}
		if c.Networks.ETH.ChainID > 0 {
			opts.ChainID = strconv.Itoa(c.Networks.ETH.ChainID)
		}
		if cc.Etherscan, err = etherscan.NewClient(key, opts); err != nil {
			return nil, err
		}
	}

	cc.Registry = exchange.DefaultRegistry()
	if err := cc.Registry.AddAll(c.Exchanges); err != nil {
		return nil, err
	}
	if cc.Etherscan != nil {
		cc.Deposits = exchange.NewDepositReader(cc.Etherscan, cc.Registry)
	} else {
		log.Debug("no etherscan API key, deposit tracking disabled")
	}

	var inner cache.Resolver = eth.NewBlockDater(node)
	if c.Networks.ETH.BlockSource == "etherscan" {
		if cc.Etherscan == nil {
			return nil, etherscan.ErrAPIKeyRequired
		}
		inner = cc.Etherscan
	}
	cc.Blocks = inner

	if store := cc.openBlockCache(ctx); store != nil {
		cc.Blocks = cache.NewCachedResolver(inner, store, cache.WithLogger(log.Named("cache")))
	}

	cc.Price = newPriceFeed(c)

	return cc, nil
}

// newPriceFeed returns the configured price feed. CoinGecko is the only provider.
func newPriceFeed(c *config.Config) *price.CoinGecko {
	return price.NewCoinGecko(&price.CoinGeckoOptions{
		APIKey:   c.Price.APIKey,
		Currency: c.Price.Currency,
	})
}

// openBlockCache opens the configured block cache backend. It returns nil when
// caching is off. An unreachable Redis falls back to an in-memory cache.
func (c *CommandContext) openBlockCache(ctx context.Context) cache.BlockCache {
	ttl := time.Duration(c.Cfg.Cache.TTLHours) * time.Hour
	log := c.Log.Named("cache")

	switch c.Cfg.Cache.Backend {
	case "off":
		return nil
	case "memory":
		return cache.NewMemoryBlockCache()
	case "redis":
		dialCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
		defer cancel()
		rc, err := cache.DialRedis(dialCtx, c.Cfg.Cache.RedisAddr, &cache.RedisOptions{
			Prefix:   fmt.Sprintf("roi:%d:block:", c.Cfg.Networks.ETH.ChainID),
			TTL:      ttl,
			Password: c.Cfg.Cache.RedisPassword,
			DB:       c.Cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Error("redis cache unavailable, using memory: %v", err)
			return cache.NewMemoryBlockCache()
		}
		c.closers = append(c.closers, rc.Close)
		return rc
	default:
		storage := cache.NewFileStorage(filepath.Join(c.Cfg.GetHome(), blockCacheFile), c.Cfg.Networks.ETH.ChainID)
		mem, err := storage.Load()
		if err != nil {
			log.Error("block cache reset: %v", err)
		}
		if mem == nil {
			mem = cache.NewMemoryBlockCache()
		}
		if ttl > 0 {
			if n := mem.Prune(ttl); n > 0 {
				log.Debug("pruned %d expired block cache entries", n)
			}
		}
		c.closers = append(c.closers, func() error { return storage.Save(mem) })
		return mem
	}
}

// latestBalances sums the latest native balance of addresses through Etherscan.
func (c *CommandContext) latestBalances(ctx context.Context, addresses []string) (chain.Amount, error) {
	if c.Etherscan == nil {
		return chain.Amount{}, etherscan.ErrAPIKeyRequired
	}
	return c.Etherscan.Balance(ctx, addresses, chain.LatestBlock(), "")
}
