// Package features turns a raw spread series into the feature and label
// table the prediction models train on. The same table, minus predictions,
// is a valid simulation input: its z-score and forward-label columns are
// exactly what the engine consumes.
package features

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

const (
	// volWindow is the trailing span of the volatility baseline that
	// vol_expansion compares against.
	volWindow = 10
	// extremeZThreshold marks a z-score as stretched.
	extremeZThreshold = 1.5
	// recentExtremeSigma is the band width for the touched-extreme flag.
	recentExtremeSigma = 2.0
	// epsilon keeps divisions defined when a window is flat.
	epsilon = 1e-6
)

// SpreadPoint is one observation of the raw spread.
type SpreadPoint struct {
	Date   time.Time
	Spread float64
}

// FeatureRow is one complete row of the feature table. Rows whose windows,
// volatility baseline or forward label cannot be computed are dropped, so
// every emitted row is fully populated.
type FeatureRow struct {
	Date        time.Time `yaml:"date" json:"date" csv:"date"`
	PairID      string    `yaml:"pair_id" json:"pair_id" csv:"pair_id"`
	SpreadPrice float64   `yaml:"spread_price" json:"spread_price" csv:"spread_price"`
	// ZScore is (spread - rolling mean) / rolling std.
	ZScore float64 `yaml:"z_score" json:"z_score" csv:"z_score"`
	// ExtremeZ is 1 when |z| exceeds the stretch threshold.
	ExtremeZ int `yaml:"extreme_z" json:"extreme_z" csv:"extreme_z"`
	// DistanceMean is the absolute deviation from the mean in standard
	// deviations.
	DistanceMean float64 `yaml:"distance_mean" json:"distance_mean" csv:"distance_mean"`
	// Volatility is the rolling standard deviation of the spread.
	Volatility float64 `yaml:"volatility" json:"volatility" csv:"volatility"`
	// RangePosition locates the spread within its rolling min/max range,
	// 0 at the bottom and 1 at the top.
	RangePosition float64 `yaml:"range_position" json:"range_position" csv:"range_position"`
	// RecentExtreme is 1 when the previous spread magnitude exceeded its
	// two-sigma band.
	RecentExtreme int `yaml:"recent_extreme" json:"recent_extreme" csv:"recent_extreme"`
	// MRStrength is the deviation magnitude signed toward the mean: the
	// pull the spread is expected to follow if it reverts.
	MRStrength float64 `yaml:"mr_strength" json:"mr_strength" csv:"mr_strength"`
	// VolExpansion is the rolling std over its own trailing average,
	// above 1 when volatility is expanding.
	VolExpansion float64 `yaml:"vol_expansion" json:"vol_expansion" csv:"vol_expansion"`
	// TargetReturn is the forward spread move over the labeling horizon.
	TargetReturn float64 `yaml:"target_return" json:"target_return" csv:"target_return"`
	// TargetDirection is 1 if TargetReturn is positive, 0 otherwise.
	TargetDirection int `yaml:"target_direction" json:"target_direction" csv:"target_direction"`
}

// FeatureEngineer computes the full feature set over a chronological spread
// series.
type FeatureEngineer struct {
	window  int
	horizon int
	logger  *logger.Logger
}

func NewFeatureEngineer(window, horizon int, logger *logger.Logger) (*FeatureEngineer, error) {
	if window < 2 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "window must be at least 2, got %d", window)
	}

	if horizon < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "horizon must be at least 1, got %d", horizon)
	}

	return &FeatureEngineer{
		window:  window,
		horizon: horizon,
		logger:  logger,
	}, nil
}

// MinPoints returns the shortest series that yields at least one complete
// row: the stats window, the volatility baseline on top of it, and the
// labeling horizon at the end.
func (f *FeatureEngineer) MinPoints() int {
	return f.window + volWindow - 1 + f.horizon
}

// Compute derives all features and labels for one pair's spread series. The
// series must be chronological. Rows that cannot be fully populated are
// dropped, mirroring how incomplete windows and unlabeled tail rows are
// excluded from training.
func (f *FeatureEngineer) Compute(pairID string, points []SpreadPoint) ([]FeatureRow, error) {
	if len(points) < f.MinPoints() {
		return nil, errors.NewInsufficientDataErrorf(f.MinPoints(), len(points), pairID,
			"need %d spread points for window %d and horizon %d, got %d",
			f.MinPoints(), f.window, f.horizon, len(points))
	}

	for i := 1; i < len(points); i++ {
		if !points[i].Date.After(points[i-1].Date) {
			return nil, errors.Newf(errors.ErrCodeUnorderedStream,
				"pair %s: spread series must be strictly chronological, %s does not follow %s",
				pairID,
				points[i].Date.Format(time.DateOnly),
				points[i-1].Date.Format(time.DateOnly))
		}
	}

	n := len(points)
	spread := make([]float64, n)

	for i, p := range points {
		spread[i] = p.Spread
	}

	mean := rollingMean(spread, f.window)
	std := rollingStd(spread, f.window)
	low := rollingMin(spread, f.window)
	high := rollingMax(spread, f.window)
	volBase := rollingMean(std, volWindow)

	firstComplete := f.window + volWindow - 2
	lastLabeled := n - 1 - f.horizon

	rows := make([]FeatureRow, 0, lastLabeled-firstComplete+1)

	for i := firstComplete; i <= lastLabeled; i++ {
		s := spread[i]
		deviation := s - mean[i]
		z := deviation / (std[i] + epsilon)
		distance := math.Abs(deviation) / (std[i] + epsilon)
		rangePos := (s - low[i]) / (high[i] - low[i] + epsilon)
		mrStrength := sign(-deviation) * distance
		volExpansion := std[i] / (volBase[i] + epsilon)
		targetReturn := spread[i+f.horizon] - s

		if anyNaN(s, z, rangePos, volExpansion, targetReturn) {
			continue
		}

		extreme := 0
		if math.Abs(z) > extremeZThreshold {
			extreme = 1
		}

		recentExtreme := 0
		if math.Abs(spread[i-1]) > std[i-1]*recentExtremeSigma {
			recentExtreme = 1
		}

		targetDirection := 0
		if targetReturn > 0 {
			targetDirection = 1
		}

		rows = append(rows, FeatureRow{
			Date:            points[i].Date,
			PairID:          pairID,
			SpreadPrice:     s,
			ZScore:          z,
			ExtremeZ:        extreme,
			DistanceMean:    distance,
			Volatility:      std[i],
			RangePosition:   rangePos,
			RecentExtreme:   recentExtreme,
			MRStrength:      mrStrength,
			VolExpansion:    volExpansion,
			TargetReturn:    targetReturn,
			TargetDirection: targetDirection,
		})
	}

	f.logger.Debug("computed features",
		zap.String("pair_id", pairID),
		zap.Int("rows", len(rows)),
		zap.Int("dropped", n-len(rows)),
	)

	return rows, nil
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}
