package cost_model

import (
	"github.com/meanrev-lab/pairback/internal/types"
)

// ZeroCostModel implements CostModel with no friction at all.
type ZeroCostModel struct{}

// NewZeroCostModel creates a new zero cost model.
func NewZeroCostModel() CostModel {
	return &ZeroCostModel{}
}

// RoundTripCost returns 0 for any trade.
func (c *ZeroCostModel) RoundTripCost(direction types.Direction, capital float64, holdingDays int) float64 {
	return 0.0
}
