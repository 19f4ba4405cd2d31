package cost_model

import (
	"github.com/meanrev-lab/pairback/internal/types"
)

type CostModel interface {
	// RoundTripCost returns the total friction in account currency for a
	// round trip of the given direction, capital and holding duration.
	RoundTripCost(direction types.Direction, capital float64, holdingDays int) float64
}

type Model string

const (
	ModelFriction Model = "friction"
	ModelZero     Model = "zero_cost"
)

var AllModels = []any{
	ModelFriction,
	ModelZero,
}

// Params configures the friction model. All percentages are fractions of
// the capital committed to the trade.
type Params struct {
	// Commission is a fixed fee charged per round trip.
	Commission float64 `yaml:"commission" json:"commission" validate:"gte=0"`
	// SlippagePct models execution slippage.
	SlippagePct float64 `yaml:"slippage_pct" json:"slippage_pct" validate:"gte=0"`
	// SpreadPct models the bid-ask spread crossed on entry and exit.
	SpreadPct float64 `yaml:"spread_pct" json:"spread_pct" validate:"gte=0"`
	// AnnualBorrowRate is the yearly carrying cost of a short position,
	// prorated by holding days over a 365-day year.
	AnnualBorrowRate float64 `yaml:"annual_borrow_rate" json:"annual_borrow_rate" validate:"gte=0"`
}

// DefaultParams returns frictions in the order of a couple of currency
// units per thousand of capital on a ten-day round trip.
func DefaultParams() Params {
	return Params{
		Commission:       1.0,
		SlippagePct:      0.0005,
		SpreadPct:        0.0005,
		AnnualBorrowRate: 0.02,
	}
}

func GetCostModelHandler(model Model, params Params) CostModel {
	switch model {
	case ModelFriction:
		return NewFrictionCostModel(params)
	case ModelZero:
		return NewZeroCostModel()
	default:
		return NewZeroCostModel()
	}
}
