package types

import "time"

// EquityPoint is one snapshot of a simulation's state after all of a date's
// rows were processed.
type EquityPoint struct {
	Date time.Time `yaml:"date" json:"date" csv:"date"`
	// Equity is realized capital plus the unrealized value of open positions.
	Equity float64 `yaml:"equity" json:"equity" csv:"equity"`
	// OpenPositions is the number of positions held after this date's
	// entries and exits were applied.
	OpenPositions int `yaml:"open_positions" json:"open_positions" csv:"open_positions"`
}

// EquityCurve is the strictly chronological sequence of equity snapshots,
// one per processed date, append-only during simulation.
type EquityCurve []EquityPoint

// Final returns the last equity value, or the fallback when the curve is empty.
func (c EquityCurve) Final(fallback float64) float64 {
	if len(c) == 0 {
		return fallback
	}

	return c[len(c)-1].Equity
}
