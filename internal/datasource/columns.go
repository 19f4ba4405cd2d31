package datasource

import (
	"math"
	"strings"
	"time"

	"github.com/meanrev-lab/pairback/internal/types"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

// mapSignalRow converts one scanned row into a SignalRow. Fixed columns map
// onto struct fields; every remaining column is a model prediction, named
// by the lower-cased column with a trailing "_pred" stripped, which keeps
// legacy headers like Ridge_Pred working. NULL numeric values become NaN.
func mapSignalRow(columns []string, values []any) (types.SignalRow, error) {
	row := types.SignalRow{
		ZScore:       math.NaN(),
		SpreadPrice:  math.NaN(),
		TargetReturn: math.NaN(),
	}

	for i, column := range columns {
		value := values[i]

		switch normalizeColumn(column) {
		case "seq":
			// ordering artifact, not signal data
		case "date":
			date, err := toTime(value)
			if err != nil {
				return types.SignalRow{}, err
			}

			row.Date = date
		case "pair_id":
			pair, ok := value.(string)
			if !ok {
				return types.SignalRow{}, errors.Newf(errors.ErrCodeInvalidSignalRow,
					"pair_id column holds %T, want string", value)
			}

			row.PairID = pair
		case "z_score":
			row.ZScore = toFloat(value)
		case "spread", "spread_price":
			row.SpreadPrice = toFloat(value)
		case "target_return":
			row.TargetReturn = toFloat(value)
		case "target_direction":
			direction := toFloat(value)
			if !math.IsNaN(direction) {
				row.TargetDirection = int(direction)
			}
		default:
			if row.Predictions == nil {
				row.Predictions = make(map[string]float64)
			}

			row.Predictions[modelName(column)] = toFloat(value)
		}
	}

	return row, nil
}

func normalizeColumn(column string) string {
	return strings.ToLower(strings.TrimSpace(column))
}

// modelName derives the prediction map key from a column name.
func modelName(column string) string {
	return strings.TrimSuffix(normalizeColumn(column), "_pred")
}

// toFloat coerces a scanned database value to float64; NULL and
// non-numeric values map to NaN.
func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	default:
		return math.NaN()
	}
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		date, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return time.Time{}, errors.Newf(errors.ErrCodeInvalidSignalRow, "unparseable date %q", v)
		}

		return date, nil
	default:
		return time.Time{}, errors.Newf(errors.ErrCodeInvalidSignalRow, "date column holds %T, want timestamp", value)
	}
}
