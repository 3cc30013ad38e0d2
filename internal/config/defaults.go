package config

// DefaultETHRPCURL is the default Ethereum RPC endpoint.
// Uses PublicNode (Allnodes), a privacy-first provider that requires no API key.
const DefaultETHRPCURL = "https://ethereum-rpc.publicnode.com"

// DefaultETHFallbackRPCs are backup Ethereum RPC endpoints tried when the primary fails.
//
//nolint:gochecknoglobals // Configuration default constant, same pattern as DefaultETHRPCURL
var DefaultETHFallbackRPCs = []string{
	"https://rpc.ankr.com/eth", // Ankr
	"https://1rpc.io/eth",      // 1RPC
}

// DefaultTokenAddress is the tracked token, WETH on mainnet.
const DefaultTokenAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.roi",
		Networks: NetworksConfig{
			ETH: ETHNetworkConfig{
				RPC:          DefaultETHRPCURL,
				FallbackRPCs: DefaultETHFallbackRPCs,
				ChainID:      1,
				BlockSource:  "rpc",
			},
		},
		Tracker: TrackerConfig{
			Token:              DefaultTokenAddress,
			TrackDeposits:      true,
			DefaultPeriod:      "last-week",
			CallTimeoutSeconds: 30,
			RetryAttempts:      3,
		},
		Price: PriceConfig{
			Provider:        "coingecko",
			Currency:        "usd",
			IntervalSeconds: 30,
		},
		Cache: CacheConfig{
			Backend:  "file",
			TTLHours: 24 * 30,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.roi/roi.log",
		},
	}
}
