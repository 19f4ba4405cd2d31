package marketdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpreadRow is one aligned observation of both legs and their spread.
type SpreadRow struct {
	Date   time.Time `yaml:"date" json:"date" csv:"date"`
	PairID string    `yaml:"pair_id" json:"pair_id" csv:"pair_id"`
	CloseA float64   `yaml:"close_a" json:"close_a" csv:"close_a"`
	CloseB float64   `yaml:"close_b" json:"close_b" csv:"close_b"`
	// SpreadPrice is closeA - ratio*closeB.
	SpreadPrice float64 `yaml:"spread_price" json:"spread_price" csv:"spread_price"`
}

// BuildSpread aligns the two legs by bar time and computes the hedged
// spread for every bar both legs share. Bars present in only one leg are
// dropped. Output order follows leg A.
func BuildSpread(pairID string, legA, legB []Bar, ratio float64) []SpreadRow {
	byTime := make(map[int64]Bar, len(legB))
	for _, bar := range legB {
		byTime[bar.Date.UnixMilli()] = bar
	}

	ratioDec := decimal.NewFromFloat(ratio)
	rows := make([]SpreadRow, 0, len(legA))

	for _, barA := range legA {
		barB, ok := byTime[barA.Date.UnixMilli()]
		if !ok {
			continue
		}

		spread, _ := decimal.NewFromFloat(barA.Close).
			Sub(ratioDec.Mul(decimal.NewFromFloat(barB.Close))).
			Float64()

		rows = append(rows, SpreadRow{
			Date:        barA.Date,
			PairID:      pairID,
			CloseA:      barA.Close,
			CloseB:      barB.Close,
			SpreadPrice: spread,
		})
	}

	return rows
}
