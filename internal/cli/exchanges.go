package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/output"
)

// exchangeBalanceTimeout bounds each --balances lookup.
const exchangeBalanceTimeout = 30 * time.Second

// exchangesCmd lists the exchange wallets deposits are matched against.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var exchangesCmd = &cobra.Command{
	Use:   "exchanges",
	Short: "List known exchange wallets",
	Long: `List the exchange hot wallets whose transfers to tracked addresses count
as deposits. Built-in wallets can be extended under exchanges in config.yaml.

--balances adds each wallet's latest ETH balance and requires an Etherscan API key.

Example:
  roi exchanges
  roi exchanges --balances -o csv`,
	RunE: runExchanges,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var exchangesBalances bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(exchangesCmd)
	exchangesCmd.Flags().BoolVar(&exchangesBalances, "balances", false, "include each wallet's latest ETH balance")
}

// ExchangeRow is one exchange wallet in command output.
type ExchangeRow struct {
	Name    string `json:"name" csv:"name"`
	Address string `json:"address" csv:"address"`
	Balance string `json:"balance,omitempty" csv:"balance"`
}

func runExchanges(cmd *cobra.Command, _ []string) error {
	cc, err := newCommandContext(cmd.Context(), cfg, logger, formatter, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = cc.Close() }()

	wallets := cc.Registry.All()
	rows := make([]ExchangeRow, 0, len(wallets))
	for _, w := range wallets {
		row := ExchangeRow{Name: w.Name, Address: w.Address}
		if exchangesBalances {
			row.Balance = notAvailable
			ctx, cancel := contextWithTimeout(cmd, exchangeBalanceTimeout)
			bal, balErr := cc.latestBalances(ctx, []string{w.Address})
			cancel()
			if balErr != nil {
				// A missing API key fails every row the same way
				if cc.Etherscan == nil {
					return balErr
				}
				logger.Error("balance of %s: %v", w.Address, balErr)
			} else {
				row.Balance = chain.ExpandDecimals(bal.Decimal(), true)
			}
		}
		rows = append(rows, row)
	}

	switch formatter.Format() {
	case output.FormatJSON:
		return formatter.Print(rows)
	case output.FormatCSV:
		return formatter.PrintCSV(rows)
	default:
		headers := []string{"EXCHANGE", "ADDRESS"}
		if exchangesBalances {
			headers = append(headers, "ETH")
		}
		table := output.NewTable(headers...).AlignRight(2)
		for _, r := range rows {
			if exchangesBalances {
				table.AddRow(r.Name, r.Address, r.Balance)
			} else {
				table.AddRow(r.Name, r.Address)
			}
		}
		return table.Render(formatter.Writer())
	}
}

// notAvailable marks a value that could not be read.
const notAvailable = "n/a"
