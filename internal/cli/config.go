package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polar0/roi-tracker/internal/config"
	"github.com/polar0/roi-tracker/internal/output"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify roi configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.roi/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.

Example:
  roi config init
  roi config init --force`,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration after environment overrides.
Secrets are masked.

Example:
  roi config show
  roi config show -o json`,
	RunE: runConfigShow,
}

// configPathCmd prints the configuration file path.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, _ []string) error {
		outln(cmd.OutOrStdout(), config.Path(cfg.GetHome()))
		return nil
	},
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its dot-separated path.

Examples:
  roi config get networks.eth.rpc
  roi config get tracker.default_period
  roi config get cache.backend`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its dot-separated path.
The new value is validated before the file is written.

Examples:
  roi config set networks.eth.rpc https://mainnet.infura.io/v3/YOUR_KEY
  roi config set tracker.default_period today
  roi config set cache.backend redis`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
	configGetCmd.ValidArgsFunction = completeConfigKeys
	configSetCmd.ValidArgsFunction = completeConfigKeys
}

// configKey reads and writes one setting addressed by a dot path.
type configKey struct {
	get    func() string
	set    func(v string) error
	secret bool
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return roierr.WithDetails(roierr.ErrInvalidInput, map[string]string{"value": v, "expected": "true or false"})
		}
		*dst = b
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return roierr.WithDetails(roierr.ErrInvalidInput, map[string]string{"value": v, "expected": "an integer"})
		}
		*dst = n
		return nil
	}
}

// configKeys lists every settable key of c. Setters write into c.
//
//nolint:funlen // One entry per setting
func configKeys(c *config.Config) map[string]configKey {
	str := func(p *string) configKey {
		return configKey{
			get: func() string { return *p },
			set: func(v string) error { *p = v; return nil },
		}
	}
	secret := func(p *string) configKey {
		k := str(p)
		k.secret = true
		return k
	}
	boolean := func(p *bool) configKey {
		return configKey{get: func() string { return strconv.FormatBool(*p) }, set: setBool(p)}
	}
	integer := func(p *int) configKey {
		return configKey{get: func() string { return strconv.Itoa(*p) }, set: setInt(p)}
	}

	return map[string]configKey{
		"home":                           str(&c.Home),
		"networks.eth.rpc":               str(&c.Networks.ETH.RPC),
		"networks.eth.chain_id":          integer(&c.Networks.ETH.ChainID),
		"networks.eth.etherscan_api_key": secret(&c.Networks.ETH.EtherscanAPIKey),
		"networks.eth.block_source":      str(&c.Networks.ETH.BlockSource),
		"tracker.token":                  str(&c.Tracker.Token),
		"tracker.track_deposits":         boolean(&c.Tracker.TrackDeposits),
		"tracker.default_period":         str(&c.Tracker.DefaultPeriod),
		"tracker.call_timeout_seconds":   integer(&c.Tracker.CallTimeoutSeconds),
		"tracker.retry_attempts":         integer(&c.Tracker.RetryAttempts),
		"price.provider":                 str(&c.Price.Provider),
		"price.api_key":                  secret(&c.Price.APIKey),
		"price.currency":                 str(&c.Price.Currency),
		"price.interval_seconds":         integer(&c.Price.IntervalSeconds),
		"cache.backend":                  str(&c.Cache.Backend),
		"cache.redis_addr":               str(&c.Cache.RedisAddr),
		"cache.redis_password":           secret(&c.Cache.RedisPassword),
		"cache.redis_db":                 integer(&c.Cache.RedisDB),
		"cache.ttl_hours":                integer(&c.Cache.TTLHours),
		"output.default_format":          str(&c.Output.DefaultFormat),
		"output.color":                   str(&c.Output.Color),
		"output.verbose":                 boolean(&c.Output.Verbose),
		"logging.level":                  str(&c.Logging.Level),
		"logging.file":                   str(&c.Logging.File),
	}
}

func lookupKey(c *config.Config, path string) (configKey, error) {
	k, ok := configKeys(c)[path]
	if !ok {
		return configKey{}, roierr.WithDetails(roierr.ErrUnknownConfigKey, map[string]string{"path": path})
	}
	return k, nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.GetHome())

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return roierr.WithSuggestion(
			roierr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cfg.GetHome()
	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - tracker.addresses: Addresses tracked by default")
	outln(w, "  - networks.eth.rpc: Your Ethereum RPC endpoint")
	outln(w, "  - networks.eth.etherscan_api_key: Enables deposit tracking")
	outln(w, "  - cache.backend: Block lookup cache (memory/file/redis/off)")
	outln(w, "  - output.default_format: Output format (text/json/csv)")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	values := maskedValues(cfg)

	if formatter.Format() == output.FormatJSON {
		return writeJSON(w, values)
	}
	return displayConfigText(w, values)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	k, err := lookupKey(cfg, args[0])
	if err != nil {
		return err
	}
	outln(cmd.OutOrStdout(), k.get())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, value := args[0], args[1]

	// Edit the file, not the environment-adjusted view
	configPath := config.Path(cfg.GetHome())
	current, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	k, err := lookupKey(current, path)
	if err != nil {
		return err
	}
	if err := k.set(value); err != nil {
		return err
	}
	if err := current.Validate(); err != nil {
		return err
	}

	if err := config.Save(current, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	display := value
	if k.secret {
		display = maskSecret(value)
	}
	return output.FormatSuccess(cmd.OutOrStdout(), fmt.Sprintf("Set %s = %s", path, display), formatter.Format())
}

// maskedValues returns every setting by path with secrets masked.
func maskedValues(c *config.Config) map[string]string {
	keys := configKeys(c)
	values := make(map[string]string, len(keys))
	for path, k := range keys {
		v := k.get()
		if k.secret {
			v = maskSecret(v)
		}
		values[path] = v
	}
	return values
}

// maskSecret keeps the first four characters of a secret.
func maskSecret(v string) string {
	switch {
	case v == "":
		return "(not configured)"
	case len(v) >= 4:
		return v[:4] + "..."
	default:
		return "***..."
	}
}

// displayConfigText shows the settings grouped by section.
func displayConfigText(w io.Writer, values map[string]string) error {
	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	outln(w, "Configuration:")
	section := ""
	for _, p := range paths {
		head, _, found := strings.Cut(p, ".")
		if !found {
			head = "general"
		}
		if head != section {
			section = head
			outln(w)
			out(w, "  %s:\n", section)
		}
		out(w, "    %s: %s\n", p, values[p])
	}
	return nil
}
