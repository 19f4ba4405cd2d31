// Package evaluator scores prediction models against realized labels on the
// subset of rows where the spread is stretched beyond the entry threshold.
// It answers "when the market was actionable and the model committed, how
// often was it right", independent of capital or position accounting.
package evaluator

import (
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/internal/types"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

const consensusModel = "consensus"

// ModelMetrics is the evaluation result for one model, or for the consensus
// of all models. Rates are fractions in [0, 1].
type ModelMetrics struct {
	Model        string  `yaml:"model" json:"model"`
	TotalTrades  int     `yaml:"total_trades" json:"total_trades"`
	WinRate      float64 `yaml:"win_rate" json:"win_rate"`
	LongWinRate  float64 `yaml:"long_win_rate" json:"long_win_rate"`
	ShortWinRate float64 `yaml:"short_win_rate" json:"short_win_rate"`
}

// Evaluator gates model predictions the same way the simulation engine does:
// a long commitment needs a score above the confidence threshold, a short
// commitment a score below its complement. Binary classifiers emitting 0 or
// 1 fall out as special cases.
type Evaluator struct {
	zThreshold float64
	confidence float64
	logger     *logger.Logger
}

func NewEvaluator(zThreshold, confidence float64, logger *logger.Logger) (*Evaluator, error) {
	if zThreshold <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidThreshold, "z threshold must be positive, got %v", zThreshold)
	}

	if confidence < 0.5 || confidence >= 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "confidence must be in [0.5, 1), got %v", confidence)
	}

	return &Evaluator{
		zThreshold: zThreshold,
		confidence: confidence,
		logger:     logger,
	}, nil
}

// tally accumulates trade and win counts per side.
type tally struct {
	longTrades  int
	longWins    int
	shortTrades int
	shortWins   int
}

func (t *tally) record(long bool, win bool) {
	if long {
		t.longTrades++
		if win {
			t.longWins++
		}

		return
	}

	t.shortTrades++
	if win {
		t.shortWins++
	}
}

func (t *tally) metrics(model string) ModelMetrics {
	total := t.longTrades + t.shortTrades
	wins := t.longWins + t.shortWins

	m := ModelMetrics{Model: model, TotalTrades: total}

	if total > 0 {
		m.WinRate = float64(wins) / float64(total)
	}

	if t.longTrades > 0 {
		m.LongWinRate = float64(t.longWins) / float64(t.longTrades)
	}

	if t.shortTrades > 0 {
		m.ShortWinRate = float64(t.shortWins) / float64(t.shortTrades)
	}

	return m
}

// Evaluate scores each model over the stream, plus a consensus row when two
// or more models are given. Rows with a NaN z-score or without a realized
// label are skipped: they carry no opportunity or no ground truth to score
// against. A missing prediction means the model takes no trade on that row.
func (e *Evaluator) Evaluate(rows []types.SignalRow, models []string) ([]ModelMetrics, error) {
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyStream, "signal stream is empty")
	}

	if len(models) == 0 {
		return nil, errors.New(errors.ErrCodeMissingParameter, "no models to evaluate")
	}

	tallies := make(map[string]*tally, len(models))
	for _, model := range models {
		tallies[model] = &tally{}
	}

	consensus := &tally{}
	actionable := 0

	for _, row := range rows {
		if !row.Actionable() || !row.HasTarget() {
			continue
		}

		longSide := row.ZScore < -e.zThreshold
		shortSide := row.ZScore > e.zThreshold

		if !longSide && !shortSide {
			continue
		}

		actionable++
		win := (longSide && row.TargetDirection == 1) || (shortSide && row.TargetDirection == 0)
		allCommit := true

		for _, model := range models {
			p, ok := row.Prediction(model)
			if !ok {
				allCommit = false

				continue
			}

			commits := (longSide && p > e.confidence) || (shortSide && p < 1-e.confidence)
			if !commits {
				allCommit = false

				continue
			}

			tallies[model].record(longSide, win)
		}

		if len(models) >= 2 && allCommit {
			consensus.record(longSide, win)
		}
	}

	e.logger.Debug("evaluated prediction models",
		zap.Int("actionable_rows", actionable),
		zap.Int("models", len(models)),
	)

	results := make([]ModelMetrics, 0, len(models)+1)
	for _, model := range models {
		results = append(results, tallies[model].metrics(model))
	}

	if len(models) >= 2 {
		results = append(results, consensus.metrics(consensusModel))
	}

	return results, nil
}
