package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Sign returns +1 for long exposure and -1 for short exposure.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}

	return 1
}

type CloseReason string

const (
	// CloseReasonMeanReversion marks an exit because the z-score returned
	// inside the reversion band.
	CloseReasonMeanReversion CloseReason = "mean_reversion"
	// CloseReasonHorizon marks an exit because the fixed holding period elapsed.
	CloseReasonHorizon CloseReason = "horizon"
	// CloseReasonEndOfBacktest marks a forced exit at the end of the signal stream.
	CloseReasonEndOfBacktest CloseReason = "end_of_backtest"
)

// Position represents one open exposure to a pair. A pair maps to at most
// one open Position at any time; the ledger enforces this.
type Position struct {
	PairID    string    `yaml:"pair_id" json:"pair_id" csv:"pair_id"`
	Direction Direction `yaml:"direction" json:"direction" csv:"direction"`
	OpenDate  time.Time `yaml:"open_date" json:"open_date" csv:"open_date"`
	// EntryPrice is the cost-adjusted spread paid at entry. Zero for
	// forward-labeled simulations, which track capital instead of price.
	EntryPrice float64 `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	// Size is the number of spread units held. Zero for forward-labeled
	// simulations.
	Size float64 `yaml:"size" json:"size" csv:"size"`
	// InvestedCapital is the capital locked in this position, released at close.
	InvestedCapital float64 `yaml:"invested_capital" json:"invested_capital" csv:"invested_capital"`
	// EntryCost is the friction charged when the position was opened.
	// Spread-priced simulations fold cost into EntryPrice instead.
	EntryCost float64 `yaml:"entry_cost" json:"entry_cost" csv:"entry_cost"`
	// PendingPnL is the gross outcome captured at entry from the row's
	// forward label, realized unchanged at close. Unused by spread-priced
	// simulations.
	PendingPnL float64 `yaml:"pending_pnl" json:"pending_pnl" csv:"pending_pnl"`
	// ScheduledCloseDate is set iff the position closes on a fixed horizon.
	ScheduledCloseDate optional.Option[time.Time] `yaml:"scheduled_close_date" json:"scheduled_close_date"`
	// LastSpread is the most recent non-NaN spread observed for the pair,
	// used to value a forced close when the final date carries no row.
	LastSpread float64 `yaml:"last_spread" json:"last_spread" csv:"last_spread"`
	// UnrealizedPnL is recomputed at every mark-to-market point for
	// spread-priced simulations.
	UnrealizedPnL float64 `yaml:"unrealized_pnl" json:"unrealized_pnl" csv:"unrealized_pnl"`
}
