package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Environment variable names.
const (
	EnvHome            = "ROI_HOME"
	EnvETHRPC          = "ROI_ETH_RPC"
	EnvEtherscanAPIKey = "ROI_ETHERSCAN_API_KEY" // #nosec G101 -- false positive, this is a const name not a credential
	EnvEtherscanLegacy = "ETHERSCAN_API_KEY"     // #nosec G101 -- false positive
	EnvBlockSource     = "ROI_BLOCK_SOURCE"
	EnvCoinGeckoAPIKey = "ROI_COINGECKO_API_KEY" // #nosec G101 -- false positive
	EnvRedisAddr       = "ROI_REDIS_ADDR"
	EnvTrackDeposits   = "ROI_TRACK_DEPOSITS"
	EnvOutputFormat    = "ROI_OUTPUT_FORMAT"
	EnvVerbose         = "ROI_VERBOSE"
	EnvLogLevel        = "ROI_LOG_LEVEL"
	EnvNoColor         = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvETHRPC); v != "" {
		cfg.Networks.ETH.RPC = SanitizeURL(v)
	}

	// The unprefixed name is the one Etherscan's own docs use; ours wins.
	if v := os.Getenv(EnvEtherscanLegacy); v != "" {
		cfg.Networks.ETH.EtherscanAPIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvEtherscanAPIKey); v != "" {
		cfg.Networks.ETH.EtherscanAPIKey = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvBlockSource); v != "" {
		cfg.Networks.ETH.BlockSource = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvCoinGeckoAPIKey); v != "" {
		cfg.Price.APIKey = strings.TrimSpace(v)
	}

	// Setting a Redis address selects the Redis cache
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Cache.Backend = "redis"
		cfg.Cache.RedisAddr = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvTrackDeposits); v != "" {
		cfg.Tracker.TrackDeposits = parseBool(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing whitespace, control characters and
// surrounding quotes left over from copy-paste.
func SanitizeURL(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.Trim(cleaned, `"'<>`)

	u, err := url.Parse(cleaned)
	if err != nil {
		return cleaned
	}
	return u.String()
}
