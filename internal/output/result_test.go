package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/output"
	"github.com/polar0/roi-tracker/internal/period"
	"github.com/polar0/roi-tracker/internal/service/tracker"
)

func eth(s string) chain.Amount {
	return chain.MustParseAmount(s, chain.ETHDecimals)
}

func sampleResult() *tracker.Result {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &tracker.Result{
		Period:     period.Resolved{Start: start, End: start.Add(7 * 24 * time.Hour)},
		StartBlock: 18908895,
		EndBlock:   chain.BlockAt(18958895),
		Token:      "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		Balances: tracker.Balances{
			Native: tracker.Snapshot{Start: eth("1"), End: eth("1.5")},
			Token:  tracker.Snapshot{Start: eth("0.5"), End: eth("0.5")},
		},
		Deposits:        eth("0.2"),
		DepositsTracked: true,
		Progress:        tracker.ProgressDone,
		Status:          tracker.Complete,
	}
}

func usd() *output.Valuation {
	return &output.Valuation{Price: decimal.NewFromInt(2000), Currency: "usd"}
}

func TestNewResultView(t *testing.T) {
	t.Parallel()

	v := output.NewResultView(sampleResult(), usd())
	assert.Equal(t, "complete", v.Status)
	assert.Equal(t, "18958895", v.EndBlock)
	assert.Equal(t, "0.5", v.Native.Change)
	assert.True(t, v.Native.Available)
	assert.Equal(t, "0", v.TokenBalance.Change)
	assert.Equal(t, "0.2", v.Deposits)
	assert.True(t, v.DepositsAvailable)

	require.NotNil(t, v.Summary)
	assert.Equal(t, "USD", v.Summary.Currency)
	assert.Equal(t, "0.3", v.Summary.NetChange)
	assert.Equal(t, "600.00", v.Summary.NetChangeFiat)
	assert.Equal(t, "4000.00", v.Summary.EndTotalFiat)
	assert.Equal(t, "20.00", v.Summary.ROIPercent)
}

func TestNewResultView_Failed(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	res.Status = tracker.Failed
	res.Reason = assert.AnError
	res.Progress = tracker.ProgressBlocks

	v := output.NewResultView(res, usd())
	assert.Equal(t, "failed", v.Status)
	assert.Equal(t, assert.AnError.Error(), v.Reason)
	assert.Nil(t, v.Summary, "no valuation for a failed run")
}

func TestNewResultView_UnavailableBalance(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	res.Balances.Native.StartUnavailable = true
	res.Balances.Native.Start = eth("0")

	v := output.NewResultView(res, usd())
	require.NotNil(t, v.Summary)
	assert.False(t, v.Native.Available)
	assert.Equal(t, "n/a", v.Summary.NetChange)
	assert.Equal(t, "n/a", v.Summary.NetChangeFiat)
	assert.Equal(t, "n/a", v.Summary.ROIPercent)
	assert.Equal(t, "4000.00", v.Summary.EndTotalFiat)

	res.DepositsUnavailable = true
	res.Balances.Native.StartUnavailable = false
	res.Balances.Native.Start = eth("1")
	res.Balances.Token.EndUnavailable = true
	v = output.NewResultView(res, usd())
	assert.False(t, v.DepositsAvailable)
	assert.Equal(t, "n/a", v.Summary.NetChange)
	assert.Equal(t, "n/a", v.Summary.EndTotalFiat)
}

func TestResultRows(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	res.Balances.Token.EndUnavailable = true

	rows := output.ResultRows(res)
	require.Len(t, rows, 3)
	assert.Equal(t, "ETH", rows[0].Asset)
	assert.Equal(t, "1.5", rows[0].End)
	assert.False(t, rows[1].Available)
	assert.Equal(t, "deposits", rows[2].Asset)
	assert.Equal(t, "2024-01-01T00:00:00Z", rows[2].StartTime)

	res.DepositsTracked = false
	assert.Len(t, output.ResultRows(res), 2)
}

func TestRenderResult_Text(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	res.Balances.Token.StartUnavailable = true

	var buf bytes.Buffer
	require.NoError(t, output.RenderResult(output.NewFormatter(output.FormatText, &buf), res, usd(), false))
	out := buf.String()

	assert.Contains(t, out, "Period: 2024-01-01 00:00 to 2024-01-08 00:00 (blocks 18908895 to 18958895)")
	assert.Contains(t, out, "ASSET")
	assert.Contains(t, out, "+0.5")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "Net change: n/a, ROI n/a")
	assert.NotContains(t, out, "ROI 0")
	assert.Contains(t, out, "Holdings: 4000.00 USD at 2000.00 USD/ETH")

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "WETH") {
			assert.Contains(t, line, "n/a")
		}
	}
}

func TestRenderResult_TextWithoutPrice(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.RenderResult(output.NewFormatter(output.FormatText, &buf), sampleResult(), nil, true))
	assert.NotContains(t, buf.String(), "Net change")
	assert.Contains(t, buf.String(), "Deposits")
}

func TestRenderResult_JSONAndCSV(t *testing.T) {
	t.Parallel()

	var js bytes.Buffer
	require.NoError(t, output.RenderResult(output.NewFormatter(output.FormatJSON, &js), sampleResult(), nil, false))
	var view map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &view))
	assert.Equal(t, "complete", view["status"])
	assert.NotContains(t, view, "summary")

	var csv bytes.Buffer
	require.NoError(t, output.RenderResult(output.NewFormatter(output.FormatCSV, &csv), sampleResult(), nil, false))
	lines := strings.Split(strings.TrimSpace(csv.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "asset,start,end,change,available,start_time,end_time", lines[0])
}
