package backtest

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/internal/cache"
	"github.com/duskquant/backtrace/pkg/types"
)

// BalancePoint is one sample of the base-currency balance curve, recorded
// once per processed bar (spec.md §4.9 step 3b).
type BalancePoint struct {
	TsEvent int64
	Balance decimal.Decimal
}

// Result is the final report aggregated from a completed run (spec.md §4.10
// and §6 "Report"). All monetary figures are exact decimals; Sharpe is the
// one figure computed from a float return series, as it is inherently a
// floating-point statistic (spec.md §9 "convert to float only at the
// boundary").
type Result struct {
	StartTs int64
	EndTs   int64

	TotalOrders    int
	TotalPositions int
	TotalFills     int

	StartingBalance decimal.Decimal
	EndingBalance   decimal.Decimal
	TotalReturn     decimal.Decimal // fraction, not percent

	MaxDrawdown decimal.Decimal

	WinRate      decimal.Decimal
	AvgWin       decimal.Decimal
	AvgLoss      decimal.Decimal
	ProfitFactor decimal.Decimal

	SharpeRatio float64

	// TotalCommissions sums accrued commission per currency code across
	// every position the cache has seen (spec.md §4.10's "sum across
	// exchanges of per-currency accrued commission").
	TotalCommissions map[string]decimal.Decimal

	BalanceCurve []BalancePoint
}

// Aggregate builds the final report from the cache's accumulated orders and
// positions and the balance curve recorded over the run (spec.md §4.10).
// annualizationFactor scales the Sharpe ratio (252 for daily bars; exposed
// per spec.md §9's open question rather than hardcoded).
func Aggregate(c *cache.Cache, curve []BalancePoint, annualizationFactor float64) *Result {
	allOrders := c.AllOrders()
	allPositions := c.AllPositions()

	r := &Result{
		TotalOrders:      len(allOrders),
		TotalPositions:   len(allPositions),
		TotalCommissions: make(map[string]decimal.Decimal),
		BalanceCurve:     curve,
	}

	for _, o := range allOrders {
		if o.Status == types.OrderStatusFilled {
			r.TotalFills++
		}
	}

	if len(curve) > 0 {
		r.StartTs = curve[0].TsEvent
		r.EndTs = curve[len(curve)-1].TsEvent
		r.StartingBalance = curve[0].Balance
		r.EndingBalance = curve[len(curve)-1].Balance
		if !r.StartingBalance.IsZero() {
			r.TotalReturn = r.EndingBalance.Sub(r.StartingBalance).Div(r.StartingBalance)
		}
	}

	r.MaxDrawdown = maxDrawdown(curve)

	wins, losses := decimal.Zero, decimal.Zero
	winCount, lossCount := 0, 0
	for _, p := range allPositions {
		for code, commission := range p.Commissions {
			r.TotalCommissions[code] = r.TotalCommissions[code].Add(commission.Amount())
		}
		if !p.IsClosed() {
			continue
		}
		pnl := p.RealizedPnL.Amount()
		switch {
		case pnl.IsPositive():
			wins = wins.Add(pnl)
			winCount++
		case pnl.IsNegative():
			losses = losses.Add(pnl)
			lossCount++
		}
	}

	closedCount := winCount + lossCount
	if closedCount > 0 {
		r.WinRate = decimal.NewFromInt(int64(winCount)).Div(decimal.NewFromInt(int64(closedCount)))
	}
	if winCount > 0 {
		r.AvgWin = wins.Div(decimal.NewFromInt(int64(winCount)))
	}
	if lossCount > 0 {
		r.AvgLoss = losses.Div(decimal.NewFromInt(int64(lossCount)))
	}
	if !losses.IsZero() {
		r.ProfitFactor = wins.Div(losses.Abs())
	}

	r.SharpeRatio = sharpeRatio(curve, annualizationFactor)
	return r
}

// maxDrawdown is the largest drop from a running peak observed anywhere in
// the curve (spec.md §4.10).
func maxDrawdown(curve []BalancePoint) decimal.Decimal {
	if len(curve) == 0 {
		return decimal.Zero
	}
	peak := curve[0].Balance
	maxDD := decimal.Zero
	for _, pt := range curve {
		if pt.Balance.GreaterThan(peak) {
			peak = pt.Balance
		}
		dd := peak.Sub(pt.Balance)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpeRatio computes mean/stdev*sqrt(annualizationFactor) over the
// simple-return series derived from the balance curve; 0 if fewer than two
// returns or zero stdev (spec.md §4.10).
func sharpeRatio(curve []BalancePoint, annualizationFactor float64) float64 {
	if len(curve) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev, _ := curve[i-1].Balance.Float64()
		cur, _ := curve[i].Balance.Float64()
		if prev == 0 {
			continue
		}
		returns = append(returns, (cur-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, v := range returns {
		sum += v
	}
	mean := sum / float64(len(returns))

	var sumSq float64
	for _, v := range returns {
		d := v - mean
		sumSq += d * d
	}
	variance := sumSq / float64(len(returns)-1)
	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return 0
	}

	return (mean / stdev) * math.Sqrt(annualizationFactor)
}
