package types

import (
	"math"
	"time"

	"github.com/meanrev-lab/pairback/pkg/errors"
)

// SignalRow is one observation of a pair on one date, produced by the
// feature and prediction pipeline. The simulation core treats it as
// immutable input and never fills in missing values.
type SignalRow struct {
	// Date is the calendar date of the observation, timezone-naive.
	Date time.Time `yaml:"date" json:"date" csv:"date"`
	// PairID is the stable identifier of the traded spread.
	PairID string `yaml:"pair_id" json:"pair_id" csv:"pair_id"`
	// ZScore is the standardized deviation of the spread from its rolling
	// mean. NaN marks a non-actionable row: it never triggers an entry or
	// an exit.
	ZScore float64 `yaml:"z_score" json:"z_score" csv:"z_score"`
	// SpreadPrice is the raw spread level. Required by spread-priced
	// simulations; may be NaN in forward-labeled streams.
	SpreadPrice float64 `yaml:"spread_price" json:"spread_price" csv:"spread_price"`
	// Predictions maps model name to its directional score in [0, 1].
	// Binary classifiers emit exactly 0 or 1; probabilistic models emit
	// the up-move probability.
	Predictions map[string]float64 `yaml:"predictions" json:"predictions"`
	// TargetReturn is the realized forward spread move over the labeling
	// horizon, known only offline. NaN when the label is unavailable.
	TargetReturn float64 `yaml:"target_return" json:"target_return" csv:"target_return"`
	// TargetDirection is 1 if TargetReturn is positive, 0 otherwise.
	TargetDirection int `yaml:"target_direction" json:"target_direction" csv:"target_direction"`
}

// Actionable reports whether the row can trigger entry or exit decisions.
func (s SignalRow) Actionable() bool {
	return !math.IsNaN(s.ZScore)
}

// HasSpread reports whether the row carries a usable spread price.
func (s SignalRow) HasSpread() bool {
	return !math.IsNaN(s.SpreadPrice)
}

// HasTarget reports whether the row carries a usable forward label.
func (s SignalRow) HasTarget() bool {
	return !math.IsNaN(s.TargetReturn)
}

// Prediction returns the named model's score and whether it is present.
func (s SignalRow) Prediction(model string) (float64, bool) {
	p, ok := s.Predictions[model]

	return p, ok
}

// Validate checks the row's structural fields and the presence and range of
// every required model prediction. NaN z-score, spread and target values are
// legal (non-actionable data, not malformed data); a NaN or out-of-range
// prediction is malformed.
func (s SignalRow) Validate(requiredModels []string) error {
	if s.Date.IsZero() {
		return errors.New(errors.ErrCodeMissingField, "signal row has no date")
	}

	if s.PairID == "" {
		return errors.Newf(errors.ErrCodeMissingField, "signal row at %s has no pair_id", s.Date.Format(time.DateOnly))
	}

	if s.TargetDirection != 0 && s.TargetDirection != 1 {
		return errors.Newf(errors.ErrCodeInvalidSignalRow,
			"pair %s at %s: target_direction must be 0 or 1, got %d",
			s.PairID, s.Date.Format(time.DateOnly), s.TargetDirection)
	}

	for _, model := range requiredModels {
		p, ok := s.Predictions[model]
		if !ok {
			return errors.Newf(errors.ErrCodeMissingField,
				"pair %s at %s: missing prediction for model %q",
				s.PairID, s.Date.Format(time.DateOnly), model)
		}

		if math.IsNaN(p) || p < 0 || p > 1 {
			return errors.Newf(errors.ErrCodeInvalidSignalRow,
				"pair %s at %s: prediction for model %q must be in [0, 1], got %v",
				s.PairID, s.Date.Format(time.DateOnly), model, p)
		}
	}

	return nil
}
