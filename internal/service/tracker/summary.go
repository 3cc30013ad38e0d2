package tracker

import (
	"github.com/shopspring/decimal"
)

//nolint:gochecknoglobals // Constant
var hundred = decimal.NewFromInt(100)

// Summary is the valuation of a completed run at a given ETH price.
// WETH is valued one to one with ETH.
type Summary struct {
	NativeChange decimal.Decimal `json:"native_change"`
	TokenChange  decimal.Decimal `json:"token_change"`
	StartTotal   decimal.Decimal `json:"start_total"`
	EndTotal     decimal.Decimal `json:"end_total"`
	Deposits     decimal.Decimal `json:"deposits"`
	// NetChange is EndTotal - StartTotal - Deposits.
	NetChange decimal.Decimal `json:"net_change"`
	// ROIPercent is NetChange relative to StartTotal. Zero when HasROI is false.
	ROIPercent decimal.Decimal `json:"roi_percent"`
	HasROI     bool            `json:"has_roi"`

	// Complete is false when any balance or the deposit sum could not be read.
	// NetChange, ROIPercent and NetChangeFiat are then meaningless.
	Complete bool `json:"complete"`
	// EndAvailable reports whether both end balances were read, so EndTotal holds.
	EndAvailable bool `json:"end_available"`

	Price         decimal.Decimal `json:"price"`
	EndTotalFiat  decimal.Decimal `json:"end_total_fiat"`
	NetChangeFiat decimal.Decimal `json:"net_change_fiat"`
	DepositsFiat  decimal.Decimal `json:"deposits_fiat"`
}

// Summary values the result at price. Net change and ROI are only computed when
// every value was read; an unavailable balance is never treated as zero.
func (r *Result) Summary(price decimal.Decimal) Summary {
	native, token := r.Balances.Native, r.Balances.Token
	nativeStart, nativeEnd := native.Start.Decimal(), native.End.Decimal()
	tokenStart, tokenEnd := token.Start.Decimal(), token.End.Decimal()
	deposits := r.Deposits.Decimal()

	s := Summary{
		NativeChange: nativeEnd.Sub(nativeStart),
		TokenChange:  tokenEnd.Sub(tokenStart),
		StartTotal:   nativeStart.Add(tokenStart),
		EndTotal:     nativeEnd.Add(tokenEnd),
		Deposits:     deposits,
		Price:        price,
		Complete:     native.Available() && token.Available() && !r.DepositsUnavailable,
		EndAvailable: !native.EndUnavailable && !token.EndUnavailable,
	}
	if s.EndAvailable {
		s.EndTotalFiat = s.EndTotal.Mul(price)
	}
	if !r.DepositsUnavailable {
		s.DepositsFiat = deposits.Mul(price)
	}
	if !s.Complete {
		return s
	}

	s.NetChange = s.EndTotal.Sub(s.StartTotal).Sub(deposits)
	s.NetChangeFiat = s.NetChange.Mul(price)
	if !s.StartTotal.IsZero() {
		s.HasROI = true
		s.ROIPercent = s.NetChange.Div(s.StartTotal).Mul(hundred)
	}
	return s
}
