package cost_model

import (
	"github.com/meanrev-lab/pairback/internal/types"
)

type FrictionCostModel struct {
	params Params
}

func NewFrictionCostModel(params Params) CostModel {
	return &FrictionCostModel{params: params}
}

// RoundTripCost charges the fixed commission plus slippage and bid-ask
// frictions proportional to capital. Shorts additionally pay borrow cost
// prorated by holding duration.
func (c *FrictionCostModel) RoundTripCost(direction types.Direction, capital float64, holdingDays int) float64 {
	cost := c.params.Commission + capital*c.params.SlippagePct + capital*c.params.SpreadPct

	if direction == types.DirectionShort {
		cost += capital * c.params.AnnualBorrowRate * float64(holdingDays) / 365.0
	}

	return cost
}
