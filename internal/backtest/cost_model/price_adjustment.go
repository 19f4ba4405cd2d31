package cost_model

import (
	"github.com/meanrev-lab/pairback/internal/types"
)

// PriceAdjustment folds transaction cost into execution prices instead of
// charging a separate fee: long entries pay a markup on the spread, long
// exits take a markdown, and shorts the mirror image. PnL computed from the
// adjusted prices is therefore already net of cost.
type PriceAdjustment struct {
	// Pct is the one-way cost as a fraction of the spread price.
	Pct float64
}

func NewPriceAdjustment(pct float64) PriceAdjustment {
	return PriceAdjustment{Pct: pct}
}

// EntryPrice returns the cost-adjusted price paid to open at the given
// spread level.
func (a PriceAdjustment) EntryPrice(spread float64, direction types.Direction) float64 {
	if direction == types.DirectionLong {
		return spread * (1 + a.Pct)
	}

	return spread * (1 - a.Pct)
}

// ExitPrice returns the cost-adjusted price received to close at the given
// spread level.
func (a PriceAdjustment) ExitPrice(spread float64, direction types.Direction) float64 {
	if direction == types.DirectionLong {
		return spread * (1 - a.Pct)
	}

	return spread * (1 + a.Pct)
}
