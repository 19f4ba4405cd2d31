// Package backtest is the simulation core: it drives one strategy variant
// per engine over a chronologically ordered signal stream, date by date.
// Each date runs the same three steps: expire positions the exit policy
// wants closed, open positions for qualified entry signals, then mark the
// run to market. After the final date every surviving position is drained
// at its last observed spread. The loop is sequential and deterministic;
// identical inputs produce identical trade logs and equity curves.
package backtest

import (
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/backtest/cost_model"
	"github.com/meanrev-lab/pairback/internal/backtest/exit_policy"
	"github.com/meanrev-lab/pairback/internal/backtest/ledger"
	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/internal/types"
)

// OnProcessDateCallback reports progress after each simulated date.
type OnProcessDateCallback func(current int, total int)

// Result is everything one variant produced over a stream.
type Result struct {
	Variant     Variant
	EquityCurve types.EquityCurve
	Trades      []types.TradeRecord
	Summary     types.VariantSummary
}

// Engine simulates a single strategy variant. Engines are single-use: one
// Run per instance, with a private ledger.
type Engine struct {
	config  Config
	variant Variant
	log     *logger.Logger
	ledger  *ledger.Ledger
	policy  exit_policy.ExitPolicy
}

func NewEngine(config Config, variant Variant, log *logger.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	led, err := ledger.NewLedger(ledger.Config{
		InitialCapital:  config.InitialCapital,
		MaxPositions:    config.MaxPositions,
		BufferFactor:    config.BufferFactor,
		CapitalPerTrade: config.CapitalPerTrade,
		PositionRiskPct: config.PositionRiskPct,
		Accounting:      variant.Accounting(),
		HoldPeriod:      config.HoldPeriod,
	}, cost_model.GetCostModelHandler(config.CostModel, config.Cost),
		cost_model.NewPriceAdjustment(config.TransactionCostPct), log)
	if err != nil {
		return nil, err
	}

	log.Debug("engine initialized",
		zap.String("variant", variant.Name),
		zap.String("exit_policy", string(variant.ExitPolicy)),
		zap.Strings("models", variant.Models),
	)

	return &Engine{
		config:  config,
		variant: variant,
		log:     log,
		ledger:  led,
		policy:  exit_policy.GetExitPolicyHandler(variant.ExitPolicy, config.ExitZThreshold, config.HoldPeriod),
	}, nil
}

// Run simulates the variant over the stream. The stream must be
// chronologically ordered; rows sharing a date are processed in stream
// order, so equal inputs always produce byte-equal trade logs.
func (e *Engine) Run(rows []types.SignalRow, onProcessDate optional.Option[OnProcessDateCallback]) (Result, error) {
	if err := ValidateStream(rows, e.config.Models); err != nil {
		return Result{}, err
	}

	groups := groupByDate(rows)
	curve := make(types.EquityCurve, 0, len(groups))

	for i, group := range groups {
		e.processExits(group)
		e.processEntries(group)

		equity := e.ledger.MarkToMarket(group.date, group.byPair)
		curve = append(curve, types.EquityPoint{
			Date:          group.date,
			Equity:        equity,
			OpenPositions: e.ledger.OpenPositionCount(),
		})

		if onProcessDate.IsSome() {
			onProcessDate.Unwrap()(i+1, len(groups))
		}
	}

	e.drain(groups[len(groups)-1].date)

	summary := types.VariantSummary{
		Variant:        e.variant.Name,
		InitialCapital: e.config.InitialCapital,
		FinalEquity:    e.ledger.RealizedEquity(),
		TradeCount:     countExits(e.ledger.Trades()),
		SkippedEntries: e.ledger.SkippedEntries(),
	}
	summary.TotalReturn = (summary.FinalEquity - summary.InitialCapital) / summary.InitialCapital

	e.log.Debug("variant run finished",
		zap.String("variant", e.variant.Name),
		zap.Float64("final_equity", summary.FinalEquity),
		zap.Int("trades", summary.TradeCount),
		zap.Int("skipped_entries", summary.SkippedEntries),
	)

	return Result{
		Variant:     e.variant,
		EquityCurve: curve,
		Trades:      e.ledger.Trades(),
		Summary:     summary,
	}, nil
}

// processExits asks the exit policy about every open position, over a
// snapshot of the open set so closes never disturb the scan.
func (e *Engine) processExits(group dateGroup) {
	for _, pairID := range e.ledger.OpenPairIDs() {
		pos, ok := e.ledger.Position(pairID)
		if !ok {
			continue
		}

		rowOpt := optional.None[types.SignalRow]()
		if row, found := group.byPair[pairID]; found {
			rowOpt = optional.Some(row)
		}

		shouldClose, reason := e.policy.ShouldClose(pos, group.date, rowOpt)
		if !shouldClose {
			continue
		}

		e.ledger.Close(pairID, group.date, reason, exitSpread(rowOpt))
	}
}

// exitSpread picks the spread a close prices against: the day's spread when
// the pair has a usable row, otherwise None so the ledger falls back to the
// last spread it observed.
func exitSpread(row optional.Option[types.SignalRow]) optional.Option[float64] {
	if row.IsSome() && row.Unwrap().HasSpread() {
		return optional.Some(row.Unwrap().SpreadPrice)
	}

	return optional.None[float64]()
}

func (e *Engine) processEntries(group dateGroup) {
	for _, row := range group.rows {
		if !row.Actionable() {
			continue
		}

		direction, qualified := e.entryDirection(row)
		if !qualified {
			continue
		}

		e.ledger.Open(row, direction, e.policy.ScheduledCloseDate(group.date))
	}
}

// entryDirection applies the entry rule: a stretched z-score with every
// gating model agreeing on the reversion direction.
func (e *Engine) entryDirection(row types.SignalRow) (types.Direction, bool) {
	switch {
	case row.ZScore < -e.config.EntryZThreshold && e.modelsAgree(row, types.DirectionLong):
		return types.DirectionLong, true
	case row.ZScore > e.config.EntryZThreshold && e.modelsAgree(row, types.DirectionShort):
		return types.DirectionShort, true
	default:
		return "", false
	}
}

// modelsAgree reports whether every gating model reads the direction with
// enough confidence: above the threshold for an up-move, below one minus
// the threshold for a down-move. With no gating models it always agrees.
func (e *Engine) modelsAgree(row types.SignalRow, direction types.Direction) bool {
	for _, model := range e.variant.Models {
		p, ok := row.Prediction(model)
		if !ok {
			return false
		}

		switch direction {
		case types.DirectionLong:
			if p <= e.config.ConfidenceThreshold {
				return false
			}
		case types.DirectionShort:
			if p >= 1-e.config.ConfidenceThreshold {
				return false
			}
		}
	}

	return true
}

// drain force-closes everything still open after the final date.
func (e *Engine) drain(lastDate time.Time) {
	for _, pairID := range e.ledger.OpenPairIDs() {
		e.ledger.Close(pairID, lastDate, types.CloseReasonEndOfBacktest, optional.None[float64]())
	}
}

func countExits(trades []types.TradeRecord) int {
	count := 0

	for _, trade := range trades {
		if trade.IsExit() {
			count++
		}
	}

	return count
}
