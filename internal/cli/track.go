package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/polar0/roi-tracker/internal/address"
	"github.com/polar0/roi-tracker/internal/metrics"
	"github.com/polar0/roi-tracker/internal/notify"
	"github.com/polar0/roi-tracker/internal/output"
	"github.com/polar0/roi-tracker/internal/period"
	"github.com/polar0/roi-tracker/internal/price"
	"github.com/polar0/roi-tracker/internal/service/tracker"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// priceTimeout bounds the one-off price lookup after a run.
const priceTimeout = 15 * time.Second

// trackCmd runs one tracking workflow.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var trackCmd = &cobra.Command{
	Use:   "track [address...]",
	Short: "Measure ETH and WETH change over a period",
	Long: `Resolve the period to blocks, read the combined ETH and WETH balances of
the given addresses at both ends, subtract deposits received from known exchange
wallets and value the result at the current Ether price.

Addresses from tracker.addresses in config.yaml are always included.
Presets are last-hour, today and last-week. --from/--to select a custom range
and accept 2006-01-02, 2006-01-02T15:04 or RFC 3339 timestamps.

Example:
  roi track 0x742d35Cc6634C0532925a3b844Bc454e4438f44e
  roi track 0xAbc... 0xDef... --period today --detailed
  roi track 0xAbc... --from 2024-01-01 --to 2024-02-01 -o csv`,
	RunE: runTrack,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	trackPeriod     string
	trackFrom       string
	trackTo         string
	trackNoDeposits bool
	trackNoPrice    bool
	trackDetailed   bool
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().StringVarP(&trackPeriod, "period", "p", "", "preset period: last-hour, today, last-week (default from config)")
	trackCmd.Flags().StringVar(&trackFrom, "from", "", "custom period start")
	trackCmd.Flags().StringVar(&trackTo, "to", "", "custom period end")
	trackCmd.Flags().BoolVar(&trackNoDeposits, "no-deposits", false, "do not subtract exchange deposits")
	trackCmd.Flags().BoolVar(&trackNoPrice, "no-price", false, "skip the fiat valuation")
	trackCmd.Flags().BoolVar(&trackDetailed, "detailed", false, "show six decimal places instead of three")
	trackCmd.MarkFlagsMutuallyExclusive("period", "from")
	trackCmd.MarkFlagsMutuallyExclusive("period", "to")
	_ = trackCmd.RegisterFlagCompletionFunc("period", completePeriods)
}

// reportedError marks a failure the user has already been shown.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func runTrack(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc, err := newCommandContext(ctx, cfg, logger, formatter, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := cc.Close(); closeErr != nil {
			logger.Error("closing collaborators: %v", closeErr)
		}
	}()

	sel, err := trackSelector(cmd)
	if err != nil {
		return err
	}

	set, err := address.NewSet()
	if err != nil {
		return err
	}
	inputs := make([]string, 0, len(cfg.Tracker.Addresses)+len(args))
	inputs = append(inputs, cfg.Tracker.Addresses...)
	inputs = append(inputs, args...)
	for _, a := range inputs {
		if _, addErr := set.Add(a); addErr != nil {
			// Skipped; an empty set fails the run with "No address selected"
			cc.Sink.Show(notify.Error, fmt.Sprintf("%s: %s", address.ErrorMessage(addErr), a), notify.DefaultDuration)
		}
	}

	session := tracker.NewSession(cc.Workflow(), set)
	session.SetTrackDeposits(cfg.Tracker.TrackDeposits && !trackNoDeposits && cc.Deposits != nil)

	progress, done := progressPrinter(stderr, formatter.Format() == output.FormatText)
	res, runErr := session.Run(ctx, sel, time.Now(), progress)
	done()

	if runErr != nil {
		if roierr.Is(runErr, roierr.ErrRunCanceled) || res == nil {
			return runErr
		}
		// The sink already showed the failure; structured formats still get the result
		if !formatter.Structured() {
			return reportedError{runErr}
		}
		if err := output.RenderResult(formatter, res, nil, trackDetailed); err != nil {
			return err
		}
		return reportedError{runErr}
	}

	var val *output.Valuation
	if !trackNoPrice {
		val = valuation(ctx, cc)
	}
	if err := output.RenderResult(formatter, res, val, trackDetailed); err != nil {
		return err
	}

	if cfg.IsVerbose() {
		printMetrics(stderr, metrics.Global.Snapshot())
	}
	return nil
}

// trackSelector builds the period selector from flags, falling back to the configured preset.
func trackSelector(cmd *cobra.Command) (period.Selector, error) {
	if cmd.Flags().Changed("from") || cmd.Flags().Changed("to") {
		return period.Range(trackFrom, trackTo), nil
	}
	name := trackPeriod
	if name == "" {
		name = cfg.Tracker.DefaultPeriod
	}
	kind, err := period.ParseKind(name)
	if err != nil {
		return period.Selector{}, err
	}
	return period.Preset(kind), nil
}

// valuation fetches the current Ether price once. Failures are shown through
// the sink and leave the result unvalued.
func valuation(ctx context.Context, cc *CommandContext) *output.Valuation {
	ctx, cancel := context.WithTimeout(ctx, priceTimeout)
	defer cancel()

	poller := price.NewPoller(cc.Price, price.WithSink(cc.Sink))
	q, err := poller.Refresh(ctx)
	if err != nil {
		cc.Log.Error("price lookup: %v", err)
		return nil
	}
	return &output.Valuation{Price: q.Price, Currency: cfg.Price.Currency}
}

// progressPrinter returns a progress callback and a function that ends the
// progress line. Both are no-ops unless enabled.
func progressPrinter(w io.Writer, enabled bool) (tracker.ProgressFunc, func()) {
	if !enabled {
		return nil, func() {}
	}
	printed := false
	return func(pct int) {
			printed = true
			_, _ = fmt.Fprintf(w, "\rTracking... %3d%%", pct)
		}, func() {
			if printed {
				_, _ = fmt.Fprint(w, "\r\033[K")
			}
		}
}

// printMetrics writes a one-line upstream call summary.
func printMetrics(w io.Writer, s metrics.Snapshot) {
	avg := 0.0
	if s.RPCCallsTotal > 0 {
		avg = float64(s.RPCLatencyNanos) / float64(s.RPCCallsTotal) / 1e6
	}
	_, _ = fmt.Fprintf(w, "calls: %d (node %d, etherscan %d, coingecko %d), errors: %d, avg latency: %.1fms, block cache: %d hit / %d miss\n",
		s.RPCCallsTotal, s.NodeCalls, s.EtherscanCalls, s.CoinGeckoCalls, s.RPCErrorsTotal, avg, s.CacheHits, s.CacheMisses)
}

// isReported reports whether err was already shown to the user.
func isReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
