package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/service/tracker"
)

const notAvailable = "n/a"

// AssetView is one asset's balances in JSON output.
type AssetView struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Change    string `json:"change"`
	Available bool   `json:"available"`
}

// SummaryView is the fiat valuation in JSON output.
type SummaryView struct {
	Currency      string `json:"currency"`
	Price         string `json:"price"`
	NetChange     string `json:"net_change"`
	NetChangeFiat string `json:"net_change_fiat"`
	EndTotalFiat  string `json:"end_total_fiat"`
	ROIPercent    string `json:"roi_percent,omitempty"`
}

// ResultView is the JSON shape of a tracking result.
type ResultView struct {
	Status            string       `json:"status"`
	Reason            string       `json:"reason,omitempty"`
	Start             time.Time    `json:"start"`
	End               time.Time    `json:"end"`
	StartBlock        uint64       `json:"start_block"`
	EndBlock          string       `json:"end_block"`
	Token             string       `json:"token"`
	Native            AssetView    `json:"native"`
	TokenBalance      AssetView    `json:"token_balance"`
	Deposits          string       `json:"deposits"`
	DepositsTracked   bool         `json:"deposits_tracked"`
	DepositsAvailable bool         `json:"deposits_available"`
	Progress          int          `json:"progress"`
	Summary           *SummaryView `json:"summary,omitempty"`
}

// ResultRow is one CSV line of a tracking result.
type ResultRow struct {
	Asset     string `csv:"asset"`
	Start     string `csv:"start"`
	End       string `csv:"end"`
	Change    string `csv:"change"`
	Available bool   `csv:"available"`
	StartTime string `csv:"start_time"`
	EndTime   string `csv:"end_time"`
}

// Valuation is an optional price applied to a result.
type Valuation struct {
	Price    decimal.Decimal
	Currency string
}

// NewResultView builds the JSON view of res. val may be nil.
func NewResultView(res *tracker.Result, val *Valuation) ResultView {
	v := ResultView{
		Status:            res.Status.String(),
		Start:             res.Period.Start,
		End:               res.Period.End,
		StartBlock:        res.StartBlock,
		EndBlock:          res.EndBlock.String(),
		Token:             res.Token,
		Native:            assetView(res.Balances.Native),
		TokenBalance:      assetView(res.Balances.Token),
		Deposits:          res.Deposits.Decimal().String(),
		DepositsTracked:   res.DepositsTracked,
		DepositsAvailable: res.DepositsTracked && !res.DepositsUnavailable,
		Progress:          res.Progress,
	}
	if res.Reason != nil {
		v.Reason = res.Reason.Error()
	}
	if val != nil && res.Status == tracker.Complete {
		s := res.Summary(val.Price)
		sv := &SummaryView{
			Currency:      strings.ToUpper(val.Currency),
			Price:         val.Price.StringFixed(2),
			NetChange:     notAvailable,
			NetChangeFiat: notAvailable,
			EndTotalFiat:  notAvailable,
		}
		if s.EndAvailable {
			sv.EndTotalFiat = s.EndTotalFiat.StringFixed(2)
		}
		if s.Complete {
			sv.NetChange = s.NetChange.String()
			sv.NetChangeFiat = s.NetChangeFiat.StringFixed(2)
		} else {
			sv.ROIPercent = notAvailable
		}
		if s.HasROI {
			sv.ROIPercent = s.ROIPercent.StringFixed(2)
		}
		v.Summary = sv
	}
	return v
}

func assetView(s tracker.Snapshot) AssetView {
	return AssetView{
		Start:     s.Start.Decimal().String(),
		End:       s.End.Decimal().String(),
		Change:    s.Change().Decimal().String(),
		Available: s.Available(),
	}
}

// ResultRows builds the CSV rows of res: one per asset plus deposits.
func ResultRows(res *tracker.Result) []ResultRow {
	start := res.Period.Start.Format(time.RFC3339)
	end := res.Period.End.Format(time.RFC3339)
	row := func(asset string, s tracker.Snapshot) ResultRow {
		return ResultRow{
			Asset:     asset,
			Start:     s.Start.Decimal().String(),
			End:       s.End.Decimal().String(),
			Change:    s.Change().Decimal().String(),
			Available: s.Available(),
			StartTime: start,
			EndTime:   end,
		}
	}
	rows := []ResultRow{
		row("ETH", res.Balances.Native),
		row("WETH", res.Balances.Token),
	}
	if res.DepositsTracked {
		rows = append(rows, ResultRow{
			Asset:     "deposits",
			Change:    res.Deposits.Decimal().String(),
			Available: !res.DepositsUnavailable,
			StartTime: start,
			EndTime:   end,
		})
	}
	return rows
}

// RenderResult writes res in the formatter's format. val may be nil.
// Detailed text shows six decimal places instead of three.
func RenderResult(f *Formatter, res *tracker.Result, val *Valuation, detailed bool) error {
	switch f.Format() {
	case FormatJSON:
		return f.Print(NewResultView(res, val))
	case FormatCSV:
		return f.PrintCSV(ResultRows(res))
	default:
		return renderResultText(f, res, val, detailed)
	}
}

func renderResultText(f *Formatter, res *tracker.Result, val *Valuation, detailed bool) error {
	w := f.Writer()
	const layout = "2006-01-02 15:04"
	fmt.Fprintf(w, "Period: %s to %s (blocks %d to %s)\n\n",
		res.Period.Start.Format(layout), res.Period.End.Format(layout), res.StartBlock, res.EndBlock)

	table := NewTable("ASSET", "START", "END", "CHANGE").AlignRight(1, 2, 3)
	addSnapshot := func(name string, s tracker.Snapshot) {
		table.AddRow(name,
			amountCell(s.Start, s.StartUnavailable, detailed),
			amountCell(s.End, s.EndUnavailable, detailed),
			changeCell(s, detailed))
	}
	addSnapshot("ETH", res.Balances.Native)
	addSnapshot("WETH", res.Balances.Token)
	if res.DepositsTracked {
		table.AddRow("Deposits", "", "", amountCell(res.Deposits, res.DepositsUnavailable, detailed))
	}
	if err := table.Render(w); err != nil {
		return err
	}

	if val == nil {
		return nil
	}
	s := res.Summary(val.Price)
	cur := strings.ToUpper(val.Currency)
	if s.Complete {
		fmt.Fprintf(w, "\nNet change: %s ETH (%s %s)", signed(s.NetChange, detailed), s.NetChangeFiat.StringFixed(2), cur)
		if s.HasROI {
			fmt.Fprintf(w, ", ROI %s%%", s.ROIPercent.StringFixed(2))
		}
	} else {
		fmt.Fprintf(w, "\nNet change: %s, ROI %s (some values could not be read)", notAvailable, notAvailable)
	}
	holdings := notAvailable
	if s.EndAvailable {
		holdings = s.EndTotalFiat.StringFixed(2) + " " + cur
	}
	_, err := fmt.Fprintf(w, "\nHoldings: %s at %s %s/ETH\n", holdings, val.Price.StringFixed(2), cur)
	return err
}

func amountCell(a chain.Amount, unavailable, detailed bool) string {
	if unavailable {
		return notAvailable
	}
	return chain.ExpandDecimals(a.Decimal(), detailed)
}

func changeCell(s tracker.Snapshot, detailed bool) string {
	if !s.Available() {
		return notAvailable
	}
	return signed(s.Change().Decimal(), detailed)
}

func signed(d decimal.Decimal, detailed bool) string {
	out := chain.ExpandDecimals(d, detailed)
	if d.IsPositive() {
		return "+" + out
	}
	return out
}
