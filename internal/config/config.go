// Package config provides configuration management for roi.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version   int                 `yaml:"version"`
	Home      string              `yaml:"home"`
	Networks  NetworksConfig      `yaml:"networks"`
	Tracker   TrackerConfig       `yaml:"tracker"`
	Price     PriceConfig         `yaml:"price"`
	Cache     CacheConfig         `yaml:"cache"`
	Exchanges map[string][]string `yaml:"exchanges,omitempty"`
	Output    OutputConfig        `yaml:"output"`
	Logging   LoggingConfig       `yaml:"logging"`
}

// NetworksConfig defines per-chain network settings.
type NetworksConfig struct {
	ETH ETHNetworkConfig `yaml:"eth"`
}

// ETHNetworkConfig defines Ethereum network settings.
type ETHNetworkConfig struct {
	RPC             string   `yaml:"rpc"`
	FallbackRPCs    []string `yaml:"fallback_rpcs,omitempty"`
	ChainID         int      `yaml:"chain_id"`
	EtherscanAPIKey string   `yaml:"etherscan_api_key,omitempty"`
	// BlockSource selects how timestamps map to blocks: "rpc" or "etherscan".
	BlockSource string `yaml:"block_source"`
}

// TrackerConfig defines tracking run settings.
type TrackerConfig struct {
	Token              string   `yaml:"token"`
	TrackDeposits      bool     `yaml:"track_deposits"`
	DefaultPeriod      string   `yaml:"default_period"`
	CallTimeoutSeconds int      `yaml:"call_timeout_seconds"`
	RetryAttempts      int      `yaml:"retry_attempts"`
	Addresses          []string `yaml:"addresses,omitempty"`
}

// PriceConfig defines the price feed.
type PriceConfig struct {
	Provider        string `yaml:"provider"`
	APIKey          string `yaml:"api_key,omitempty"`
	Currency        string `yaml:"currency"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

// CacheConfig defines the block lookup cache.
type CacheConfig struct {
	// Backend is one of "memory", "file", "redis" or "off".
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db"`
	TTLHours      int    `yaml:"ttl_hours"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
// A missing file returns ErrConfigNotFound; bad YAML returns ErrConfigInvalid.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, roierr.WithDetails(roierr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, roierr.WithCause(roierr.WithDetails(roierr.ErrConfigInvalid, map[string]string{"path": path}), err)
	}

	return cfg, nil
}

// LoadOrDefault reads path, falling back to Defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if roierr.Is(err, roierr.ErrConfigNotFound) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the roi home directory path with a leading ~ expanded.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// GetETHRPC returns the Ethereum RPC URL.
func (c *Config) GetETHRPC() string {
	return c.Networks.ETH.RPC
}

// GetETHFallbackRPCs returns the fallback Ethereum RPC URLs.
func (c *Config) GetETHFallbackRPCs() []string {
	return c.Networks.ETH.FallbackRPCs
}

// GetEtherscanAPIKey returns the Etherscan API key.
func (c *Config) GetEtherscanAPIKey() string {
	return c.Networks.ETH.EtherscanAPIKey
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default roi home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".roi"
	}
	return filepath.Join(home, ".roi")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") && path != "~" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
