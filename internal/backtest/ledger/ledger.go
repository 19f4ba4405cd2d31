// Package ledger owns the open-position set and the capital bookkeeping of
// one simulation run. It enforces the single-position-per-pair rule, the
// max-position and capital-buffer constraints, and produces the append-only
// trade log. The ledger is written once and shared by both simulation modes;
// the accounting tag selects how PnL is computed, not which code runs.
package ledger

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/backtest/cost_model"
	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/internal/types"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

// Accounting selects how a position's PnL is computed, dictated by the kind
// of signal stream being simulated.
type Accounting string

const (
	// AccountingSpreadPriced values positions from spread prices with
	// transaction cost folded into the entry and exit prices.
	AccountingSpreadPriced Accounting = "spread_priced"
	// AccountingForwardLabeled realizes the forward-labeled outcome
	// captured at entry, with friction charged as a flat cost up front.
	AccountingForwardLabeled Accounting = "forward_labeled"
)

// Config carries the subset of the run configuration the ledger needs.
type Config struct {
	InitialCapital float64
	MaxPositions   int
	// BufferFactor reserves headroom above the capital committed to a
	// trade; an entry is rejected unless available capital covers
	// capitalPerTrade * BufferFactor.
	BufferFactor float64
	// CapitalPerTrade commits a fixed amount per trade when positive;
	// otherwise PositionRiskPct of current realized equity is committed.
	CapitalPerTrade float64
	PositionRiskPct float64
	Accounting      Accounting
	// HoldPeriod is the holding duration in trading days charged by the
	// cost model at entry under forward-labeled accounting.
	HoldPeriod int
}

// Ledger tracks open positions, realized equity and available capital for a
// single simulation run. It is not safe for concurrent use; each run owns
// its private instance.
type Ledger struct {
	cfg       Config
	log       *logger.Logger
	costModel cost_model.CostModel
	priceAdj  cost_model.PriceAdjustment

	positions map[string]*types.Position
	// openOrder preserves insertion order so that iteration over open
	// positions is deterministic.
	openOrder []string

	realizedEquity   float64
	availableCapital float64
	trades           []types.TradeRecord
	skippedEntries   int
	tradeSeq         int
}

func NewLedger(cfg Config, costModel cost_model.CostModel, priceAdj cost_model.PriceAdjustment, log *logger.Logger) (*Ledger, error) {
	if cfg.InitialCapital <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "initial capital must be positive, got %v", cfg.InitialCapital)
	}

	if cfg.MaxPositions <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "max positions must be positive, got %d", cfg.MaxPositions)
	}

	if cfg.BufferFactor < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "buffer factor must be >= 1, got %v", cfg.BufferFactor)
	}

	if cfg.CapitalPerTrade <= 0 && cfg.PositionRiskPct <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "either capital_per_trade or position_risk_pct must be positive")
	}

	return &Ledger{
		cfg:              cfg,
		log:              log,
		costModel:        costModel,
		priceAdj:         priceAdj,
		positions:        make(map[string]*types.Position),
		openOrder:        make([]string, 0),
		realizedEquity:   cfg.InitialCapital,
		availableCapital: cfg.InitialCapital,
		trades:           make([]types.TradeRecord, 0),
	}, nil
}

// capitalPerTrade returns the capital to commit to the next trade.
func (l *Ledger) capitalPerTrade() float64 {
	if l.cfg.CapitalPerTrade > 0 {
		return l.cfg.CapitalPerTrade
	}

	return l.realizedEquity * l.cfg.PositionRiskPct
}

// Open attempts to open a position for the row's pair. Constraint rejections
// (position count, capital buffer) are counted as skipped entries and are
// not errors. Rows whose data cannot price or label the position are
// non-actionable: no position, no skip count.
func (l *Ledger) Open(row types.SignalRow, direction types.Direction, scheduledClose optional.Option[time.Time]) (types.Position, bool) {
	if _, exists := l.positions[row.PairID]; exists {
		return types.Position{}, false
	}

	// Data usability precedes constraint checks: a row that cannot open a
	// position is not a capital rejection.
	switch l.cfg.Accounting {
	case AccountingSpreadPriced:
		if !row.HasSpread() || row.SpreadPrice == 0 {
			l.log.Debug("entry signal without usable spread price",
				zap.String("pair_id", row.PairID),
				zap.Time("date", row.Date))

			return types.Position{}, false
		}
	case AccountingForwardLabeled:
		if !row.HasTarget() {
			l.log.Debug("entry signal without forward label",
				zap.String("pair_id", row.PairID),
				zap.Time("date", row.Date))

			return types.Position{}, false
		}
	}

	if len(l.positions) >= l.cfg.MaxPositions {
		l.skippedEntries++
		l.log.Debug("entry skipped: max positions reached",
			zap.String("pair_id", row.PairID),
			zap.Int("max_positions", l.cfg.MaxPositions))

		return types.Position{}, false
	}

	capital := l.capitalPerTrade()
	if l.availableCapital < capital*l.cfg.BufferFactor {
		l.skippedEntries++
		l.log.Debug("entry skipped: insufficient available capital",
			zap.String("pair_id", row.PairID),
			zap.Float64("available", l.availableCapital),
			zap.Float64("required", capital*l.cfg.BufferFactor))

		return types.Position{}, false
	}

	pos := &types.Position{
		PairID:             row.PairID,
		Direction:          direction,
		OpenDate:           row.Date,
		InvestedCapital:    capital,
		ScheduledCloseDate: scheduledClose,
		LastSpread:         row.SpreadPrice,
	}

	var totalCost float64

	switch l.cfg.Accounting {
	case AccountingSpreadPriced:
		// Cost is folded into the entry price; no flat deduction.
		pos.EntryPrice = l.priceAdj.EntryPrice(row.SpreadPrice, direction)
		pos.Size = capital / row.SpreadPrice
	case AccountingForwardLabeled:
		totalCost = l.costModel.RoundTripCost(direction, capital, l.cfg.HoldPeriod)
		pos.EntryCost = totalCost
		pos.PendingPnL = labeledOutcome(direction, capital, row)
	}

	// Cost is sunk at entry: it leaves both available capital and equity
	// immediately. The committed capital leaves available only, returning
	// at close.
	l.availableCapital -= capital + totalCost
	l.realizedEquity -= totalCost

	l.positions[row.PairID] = pos
	l.openOrder = append(l.openOrder, row.PairID)

	l.appendTrade(types.TradeRecord{
		Date:      row.Date,
		PairID:    row.PairID,
		Event:     types.TradeEventEntry,
		Direction: direction,
	})

	l.log.Debug("position opened",
		zap.String("pair_id", row.PairID),
		zap.String("direction", string(direction)),
		zap.Float64("capital", capital))

	return *pos, true
}

// labeledOutcome computes the gross PnL a forward-labeled position will
// realize at close: the position wins when its direction matches the labeled
// direction, and the magnitude is |target_return| of the committed capital
// either way.
func labeledOutcome(direction types.Direction, capital float64, row types.SignalRow) float64 {
	win := (direction == types.DirectionLong && row.TargetDirection == 1) ||
		(direction == types.DirectionShort && row.TargetDirection == 0)

	grossDec := decimal.NewFromFloat(capital).Mul(decimal.NewFromFloat(row.TargetReturn).Abs())
	if !win {
		grossDec = grossDec.Neg()
	}

	gross, _ := grossDec.Float64()

	return gross
}

// Close removes the pair's position and realizes its PnL. Closing a pair
// with no open position is a no-op, never an error. spread carries the
// day's spread price for spread-priced closes; None falls back to the last
// spread observed for the pair (end-of-stream drains).
func (l *Ledger) Close(pairID string, date time.Time, reason types.CloseReason, spread optional.Option[float64]) (float64, bool) {
	pos, ok := l.positions[pairID]
	if !ok {
		return 0, false
	}

	var gross float64

	switch l.cfg.Accounting {
	case AccountingSpreadPriced:
		spreadPrice := pos.LastSpread
		if spread.IsSome() {
			spreadPrice = spread.Unwrap()
		}

		exitPrice := l.priceAdj.ExitPrice(spreadPrice, pos.Direction)
		grossDec := decimal.NewFromFloat(exitPrice).
			Sub(decimal.NewFromFloat(pos.EntryPrice)).
			Mul(decimal.NewFromFloat(pos.Size)).
			Mul(decimal.NewFromFloat(pos.Direction.Sign()))
		gross, _ = grossDec.Float64()
	case AccountingForwardLabeled:
		gross = pos.PendingPnL
	}

	delete(l.positions, pairID)
	l.removeFromOpenOrder(pairID)

	// The committed capital returns together with the gross outcome. The
	// entry cost was deducted when the position opened, so crediting the
	// gross here nets out to gross - cost over the round trip.
	l.availableCapital += pos.InvestedCapital + gross
	l.realizedEquity += gross

	net := gross - pos.EntryCost

	pct := 0.0
	if pos.InvestedCapital > 0 {
		pctDec := decimal.NewFromFloat(net).
			Div(decimal.NewFromFloat(pos.InvestedCapital)).
			Mul(decimal.NewFromInt(100))
		pct, _ = pctDec.Float64()
	}

	l.appendTrade(types.TradeRecord{
		Date:        date,
		PairID:      pairID,
		Event:       types.TradeEventExit,
		Direction:   pos.Direction,
		RealizedPnL: net,
		PnLPct:      pct,
		CloseReason: reason,
	})

	l.log.Debug("position closed",
		zap.String("pair_id", pairID),
		zap.String("reason", string(reason)),
		zap.Float64("realized_pnl", net))

	return net, true
}

// MarkToMarket values the run after a date's rows were processed and
// returns total equity. Spread-priced runs revalue each open position from
// the day's spread; positions whose pair has no usable spread that day
// contribute nothing. Forward-labeled runs carry no daily unrealized value,
// so equity is the running realized equity.
func (l *Ledger) MarkToMarket(date time.Time, rows map[string]types.SignalRow) float64 {
	if l.cfg.Accounting == AccountingForwardLabeled {
		return l.realizedEquity
	}

	unrealized := decimal.Zero

	for _, pairID := range l.openOrder {
		pos := l.positions[pairID]

		row, ok := rows[pairID]
		if !ok || !row.HasSpread() {
			continue
		}

		pos.LastSpread = row.SpreadPrice

		current := l.priceAdj.ExitPrice(row.SpreadPrice, pos.Direction)
		pnlDec := decimal.NewFromFloat(current).
			Sub(decimal.NewFromFloat(pos.EntryPrice)).
			Mul(decimal.NewFromFloat(pos.Size)).
			Mul(decimal.NewFromFloat(pos.Direction.Sign()))

		pnl, _ := pnlDec.Float64()
		pos.UnrealizedPnL = pnl
		unrealized = unrealized.Add(pnlDec)
	}

	unrealizedTotal, _ := unrealized.Float64()

	return l.realizedEquity + unrealizedTotal
}

// OpenPairIDs returns the open pairs in the order they were opened. The
// caller receives a snapshot: mutating the ledger while ranging over the
// result is safe.
func (l *Ledger) OpenPairIDs() []string {
	ids := make([]string, len(l.openOrder))
	copy(ids, l.openOrder)

	return ids
}

// Position returns a copy of the pair's open position.
func (l *Ledger) Position(pairID string) (types.Position, bool) {
	pos, ok := l.positions[pairID]
	if !ok {
		return types.Position{}, false
	}

	return *pos, true
}

// OpenPositionCount returns the number of currently open positions.
func (l *Ledger) OpenPositionCount() int {
	return len(l.positions)
}

// AvailableCapital returns the capital not locked in open positions.
func (l *Ledger) AvailableCapital() float64 {
	return l.availableCapital
}

// RealizedEquity returns equity excluding unrealized position value.
func (l *Ledger) RealizedEquity() float64 {
	return l.realizedEquity
}

// InvestedTotal returns the capital locked in open positions.
func (l *Ledger) InvestedTotal() float64 {
	total := decimal.Zero
	for _, pos := range l.positions {
		total = total.Add(decimal.NewFromFloat(pos.InvestedCapital))
	}

	result, _ := total.Float64()

	return result
}

// Trades returns the append-only trade log.
func (l *Ledger) Trades() []types.TradeRecord {
	return l.trades
}

// SkippedEntries returns the count of qualified entries rejected by the
// position-count or capital constraint.
func (l *Ledger) SkippedEntries() int {
	return l.skippedEntries
}

func (l *Ledger) appendTrade(record types.TradeRecord) {
	l.tradeSeq++
	record.ID = fmt.Sprintf("t-%06d", l.tradeSeq)
	l.trades = append(l.trades, record)
}

func (l *Ledger) removeFromOpenOrder(pairID string) {
	for i, id := range l.openOrder {
		if id == pairID {
			l.openOrder = append(l.openOrder[:i], l.openOrder[i+1:]...)

			return
		}
	}
}
