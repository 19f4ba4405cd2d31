package types

import (
	"time"
)

type TradeEvent string

const (
	TradeEventEntry TradeEvent = "entry"
	TradeEventExit  TradeEvent = "exit"
)

// TradeRecord is one append-only entry in the audit trail. Entry records
// carry only identity and direction; exit records add the realized outcome.
// Records are never mutated after append.
type TradeRecord struct {
	ID        string     `yaml:"id" json:"id" csv:"id"`
	Date      time.Time  `yaml:"date" json:"date" csv:"date"`
	PairID    string     `yaml:"pair_id" json:"pair_id" csv:"pair_id"`
	Event     TradeEvent `yaml:"event" json:"event" csv:"event"`
	Direction Direction  `yaml:"direction" json:"direction" csv:"direction"`
	// RealizedPnL is the net profit of the round trip, exit records only.
	RealizedPnL float64 `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
	// PnLPct is RealizedPnL as a percentage of the invested capital,
	// 0 when the invested capital was 0. Exit records only.
	PnLPct float64 `yaml:"pnl_pct" json:"pnl_pct" csv:"pnl_pct"`
	// CloseReason explains why the position closed. Exit records only.
	CloseReason CloseReason `yaml:"close_reason" json:"close_reason" csv:"close_reason"`
}

// IsExit reports whether the record closes a round trip.
func (t TradeRecord) IsExit() bool {
	return t.Event == TradeEventExit
}
