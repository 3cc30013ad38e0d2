package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// Accepted values for enumerated settings.
//
//nolint:gochecknoglobals // Lookup tables
var (
	validBlockSources  = []string{"rpc", "etherscan"}
	validCacheBackends = []string{"memory", "file", "redis", "off"}
	validFormats       = []string{"auto", "text", "json", "csv"}
	validColors        = []string{"auto", "always", "never"}
	validLogLevels     = []string{"off", "none", "error", "debug"}
	validPriceSources  = []string{"coingecko", "off"}
)

// Validate checks the configuration and returns ErrConfigInvalid describing the
// first bad field.
//
//nolint:gocognit,gocyclo // One check per setting
func (c *Config) Validate() error {
	if err := validateRPCURL("networks.eth.rpc", c.Networks.ETH.RPC); err != nil {
		return err
	}
	for i, u := range c.Networks.ETH.FallbackRPCs {
		if err := validateRPCURL(fmt.Sprintf("networks.eth.fallback_rpcs[%d]", i), u); err != nil {
			return err
		}
	}
	if !oneOf(c.Networks.ETH.BlockSource, validBlockSources) {
		return invalid("networks.eth.block_source", c.Networks.ETH.BlockSource, validBlockSources...)
	}
	if c.Networks.ETH.BlockSource == "etherscan" && c.Networks.ETH.EtherscanAPIKey == "" {
		return roierr.WithSuggestion(
			invalid("networks.eth.etherscan_api_key", "", "a key when block_source is etherscan"),
			"set "+EnvEtherscanAPIKey+" or switch block_source to rpc",
		)
	}

	if !common.IsHexAddress(c.Tracker.Token) || !strings.HasPrefix(c.Tracker.Token, "0x") {
		return invalid("tracker.token", c.Tracker.Token, "a 0x-prefixed contract address")
	}
	for i, a := range c.Tracker.Addresses {
		if !common.IsHexAddress(a) {
			return invalid(fmt.Sprintf("tracker.addresses[%d]", i), a, "a 0x-prefixed address")
		}
	}
	if c.Tracker.CallTimeoutSeconds < 0 {
		return invalid("tracker.call_timeout_seconds", fmt.Sprint(c.Tracker.CallTimeoutSeconds), "zero or more")
	}
	if c.Tracker.RetryAttempts < 0 || c.Tracker.RetryAttempts > 10 {
		return invalid("tracker.retry_attempts", fmt.Sprint(c.Tracker.RetryAttempts), "0 to 10")
	}

	if !oneOf(c.Price.Provider, validPriceSources) {
		return invalid("price.provider", c.Price.Provider, validPriceSources...)
	}
	if c.Price.IntervalSeconds < 1 {
		return invalid("price.interval_seconds", fmt.Sprint(c.Price.IntervalSeconds), "1 or more")
	}

	if !oneOf(c.Cache.Backend, validCacheBackends) {
		return invalid("cache.backend", c.Cache.Backend, validCacheBackends...)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return invalid("cache.redis_addr", "", "host:port when backend is redis")
	}

	for name, wallets := range c.Exchanges {
		for _, w := range wallets {
			if !common.IsHexAddress(w) {
				return invalid("exchanges."+name, w, "0x-prefixed wallet addresses")
			}
		}
	}

	if !oneOf(c.Output.DefaultFormat, validFormats) {
		return invalid("output.default_format", c.Output.DefaultFormat, validFormats...)
	}
	if !oneOf(c.Output.Color, validColors) {
		return invalid("output.color", c.Output.Color, validColors...)
	}
	if !oneOf(strings.ToLower(c.Logging.Level), validLogLevels) {
		return invalid("logging.level", c.Logging.Level, validLogLevels...)
	}
	return nil
}

// ErrInsecureRPCURL is returned for plain-http RPC URLs pointing off the local machine.
var ErrInsecureRPCURL = &roierr.TrackerError{
	Code:       "CONFIG_INSECURE_RPC_URL",
	Message:    "RPC URL must use https unless it points at localhost",
	Suggestion: "use an https:// endpoint",
	ExitCode:   roierr.ExitInput,
}

// ValidateRPCURL accepts https URLs, and http URLs on a loopback host.
func ValidateRPCURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return roierr.WithDetails(roierr.ErrConfigInvalid, map[string]string{"value": raw, "expected": "an http(s) URL"})
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if isLoopback(u.Hostname()) {
			return nil
		}
		return roierr.WithDetails(ErrInsecureRPCURL, map[string]string{"value": raw})
	default:
		return roierr.WithDetails(roierr.ErrConfigInvalid, map[string]string{"value": raw, "expected": "an http(s) URL"})
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func validateRPCURL(field, raw string) error {
	if err := ValidateRPCURL(raw); err != nil {
		return roierr.WithDetails(roierr.WithCause(roierr.ErrConfigInvalid, err), map[string]string{
			"field":    field,
			"value":    raw,
			"expected": "an https URL, or http on localhost",
		})
	}
	return nil
}

func invalid(field, value string, expected ...string) error {
	return roierr.WithDetails(roierr.ErrConfigInvalid, map[string]string{
		"field":    field,
		"value":    value,
		"expected": strings.Join(expected, ", "),
	})
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
