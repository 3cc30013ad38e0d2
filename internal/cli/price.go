package cli

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/polar0/roi-tracker/internal/notify"
	"github.com/polar0/roi-tracker/internal/output"
	"github.com/polar0/roi-tracker/internal/price"
)

// priceCmd shows the current Ether price.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Show the current Ether price",
	Long: `Fetch the current Ether price from CoinGecko in the configured currency.

With --watch the price is refreshed every price.interval_seconds until
interrupted. A failed refresh keeps the previous price on screen.

Example:
  roi price
  roi price --watch
  roi price -o json`,
	RunE: runPrice,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var priceWatch bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(priceCmd)
	priceCmd.Flags().BoolVarP(&priceWatch, "watch", "w", false, "keep refreshing until interrupted")
}

// PriceView is the JSON shape of a price quote.
type PriceView struct {
	Asset     string    `json:"asset" csv:"asset"`
	Currency  string    `json:"currency" csv:"currency"`
	Price     string    `json:"price" csv:"price"`
	UpdatedAt time.Time `json:"updated_at" csv:"updated_at"`
}

func runPrice(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	feed := newPriceFeed(cfg)

	if !priceWatch {
		ctx, cancel := contextWithTimeout(cmd, priceTimeout)
		defer cancel()
		q, err := price.NewPoller(feed).Refresh(ctx)
		if err != nil {
			return err
		}
		return printQuote(formatter, q, feed.Currency())
	}

	return watchPrice(cmd.Context(), feed, feed.Currency(), time.Duration(cfg.Price.IntervalSeconds)*time.Second, stderr)
}

// watchNotifyBuffer bounds the notifications queued between the poller and the screen.
const watchNotifyBuffer = 8

// watchPrice prints every refreshed quote until ctx is done. Refresh failures
// travel from the poller goroutine over a channel and are rendered here, on a
// display that keeps at most one message on screen.
func watchPrice(ctx context.Context, feed price.Feed, currency string, interval time.Duration, w io.Writer) error {
	errSink := notify.NewWriterSink(w)
	display := notify.NewDisplay(func(n *notify.Notification) {
		if n != nil {
			errSink.Show(n.Severity, n.Message, n.Duration)
		}
	})
	defer display.Close()

	events := notify.NewChannelSink(watchNotifyBuffer)
	poller := price.NewPoller(feed,
		price.WithInterval(interval),
		price.WithSink(events),
		price.OnUpdate(func(q price.Quote) {
			if err := printQuote(formatter, q, currency); err != nil {
				logger.Error("printing quote: %v", err)
			}
		}),
	)
	poller.Start(ctx)

	for {
		select {
		case n := <-events.C():
			display.Show(n.Severity, n.Message, n.Duration)
		case <-ctx.Done():
			poller.Stop()
			showPending(events, display)
			if d := events.Dropped(); d > 0 {
				logger.Debug("dropped %d price notifications", d)
			}
			return nil
		}
	}
}

// showPending renders every notification still queued on events.
func showPending(events *notify.ChannelSink, to notify.Sink) {
	for {
		select {
		case n := <-events.C():
			to.Show(n.Severity, n.Message, n.Duration)
		default:
			return
		}
	}
}

func printQuote(f *output.Formatter, q price.Quote, currency string) error {
	view := PriceView{
		Asset:     price.Ether,
		Currency:  strings.ToUpper(currency),
		Price:     q.Price.StringFixed(2),
		UpdatedAt: q.UpdatedAt,
	}
	switch f.Format() {
	case output.FormatJSON:
		return f.Print(view)
	case output.FormatCSV:
		return f.PrintCSV([]PriceView{view})
	default:
		return f.Printf("ETH %s %s (%s)\n", view.Price, view.Currency, q.UpdatedAt.Format("15:04:05"))
	}
}
