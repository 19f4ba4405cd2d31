// Package analytics derives performance metrics from a finished variant's
// equity curve and trade log.
package analytics

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/meanrev-lab/pairback/internal/types"
)

// Calculate computes the performance metrics of one variant. Returns None
// when the equity curve is empty, since every metric is relative to the
// curve's starting point.
func Calculate(curve types.EquityCurve, trades []types.TradeRecord) optional.Option[types.PerformanceStats] {
	if len(curve) == 0 {
		return optional.None[types.PerformanceStats]()
	}

	initial := curve[0].Equity
	final := curve[len(curve)-1].Equity

	maxEquity := initial
	minEquity := initial

	for _, point := range curve {
		if point.Equity > maxEquity {
			maxEquity = point.Equity
		}

		if point.Equity < minEquity {
			minEquity = point.Equity
		}
	}

	stats := types.PerformanceStats{
		FinalEquity: final,
		TotalReturn: pctChange(final, initial),
		MaxEquity:   maxEquity,
		MinEquity:   minEquity,
		MaxDrawdown: pctChange(minEquity, initial),
	}

	var winSum, lossSum, pnlSum decimal.Decimal

	for _, trade := range trades {
		if !trade.IsExit() {
			continue
		}

		pnl := decimal.NewFromFloat(trade.RealizedPnL)
		pnlSum = pnlSum.Add(pnl)
		stats.TotalTrades++

		switch {
		case trade.RealizedPnL > 0:
			stats.WinningTrades++
			winSum = winSum.Add(pnl)
		case trade.RealizedPnL < 0:
			stats.LosingTrades++
			lossSum = lossSum.Add(pnl)
		}
	}

	// Breakeven round trips count toward the total but are neither wins
	// nor losses
	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	}

	if stats.WinningTrades > 0 {
		stats.AvgWin, _ = winSum.Div(decimal.NewFromInt(int64(stats.WinningTrades))).Float64()
	}

	if stats.LosingTrades > 0 {
		stats.AvgLoss, _ = lossSum.Div(decimal.NewFromInt(int64(stats.LosingTrades))).Float64()
		stats.ProfitFactor, _ = winSum.Div(lossSum.Abs()).Float64()
	}

	stats.TotalPnL, _ = pnlSum.Float64()

	return optional.Some(stats)
}

// pctChange returns the percent change of value relative to base, 0 when
// base is 0.
func pctChange(value, base float64) float64 {
	if base == 0 {
		return 0
	}

	pct := decimal.NewFromFloat(value).
		Sub(decimal.NewFromFloat(base)).
		Div(decimal.NewFromFloat(base)).
		Mul(decimal.NewFromInt(100))

	result, _ := pct.Float64()

	return result
}
