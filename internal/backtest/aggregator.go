package backtest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/internal/types"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

// Report is the aggregate outcome of one run: per-variant results in
// variant order plus the date-keyed multi-variant equity table.
type Report struct {
	Results []Result
	Equity  EquityTable
}

// Summaries returns the per-variant rollups in variant order.
func (r Report) Summaries() []types.VariantSummary {
	summaries := make([]types.VariantSummary, len(r.Results))
	for i, result := range r.Results {
		summaries[i] = result.Summary
	}

	return summaries
}

// Winner returns the variant summary with the highest final equity.
func (r Report) Winner() (types.VariantSummary, bool) {
	if len(r.Results) == 0 {
		return types.VariantSummary{}, false
	}

	best := r.Results[0].Summary
	for _, result := range r.Results[1:] {
		if result.Summary.FinalEquity > best.FinalEquity {
			best = result.Summary
		}
	}

	return best, true
}

// EquityTable is the per-date equity of every variant, one column per
// variant in run order.
type EquityTable struct {
	Variants []string
	Rows     []EquityTableRow
}

// EquityTableRow carries one date's equity across all variants; Equity is
// parallel to EquityTable.Variants.
type EquityTableRow struct {
	Date   time.Time
	Equity []float64
}

// Aggregator runs every strategy variant of a config over the same signal
// stream and merges their outputs.
type Aggregator struct {
	config Config
	log    *logger.Logger
}

func NewAggregator(config Config, log *logger.Logger) (*Aggregator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Aggregator{config: config, log: log}, nil
}

// Run simulates every variant over the stream. Each variant owns a private
// ledger, so variants run concurrently; results keep variant order and are
// identical to a sequential run regardless of scheduling. An empty variant
// list falls back to the config's default variant set.
func (a *Aggregator) Run(rows []types.SignalRow, variants []Variant, onProcessDate optional.Option[OnProcessDateCallback]) (Report, error) {
	if len(variants) == 0 {
		variants = DefaultVariants(a.config)
	}

	if err := ValidateStream(rows, a.config.Models); err != nil {
		return Report{}, err
	}

	a.log.Debug("aggregator run starting",
		zap.Int("variants", len(variants)),
		zap.Int("rows", len(rows)),
	)

	totalSteps := countDates(rows) * len(variants)

	var stepsDone atomic.Int64

	progress := optional.None[OnProcessDateCallback]()
	if onProcessDate.IsSome() {
		callback := onProcessDate.Unwrap()
		progress = optional.Some[OnProcessDateCallback](func(current int, total int) {
			callback(int(stepsDone.Add(1)), totalSteps)
		})
	}

	results := make([]Result, len(variants))
	errs := make([]error, len(variants))

	var wg sync.WaitGroup

	for i, variant := range variants {
		wg.Add(1)

		go func(i int, variant Variant) {
			defer wg.Done()

			engine, err := NewEngine(a.config, variant, a.log)
			if err != nil {
				errs[i] = errors.Wrapf(errors.ErrCodeVariantFailed, err, "variant %q failed to initialize", variant.Name)

				return
			}

			result, err := engine.Run(rows, progress)
			if err != nil {
				errs[i] = errors.Wrapf(errors.ErrCodeVariantFailed, err, "variant %q failed", variant.Name)

				return
			}

			results[i] = result
		}(i, variant)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return Report{}, err
		}
	}

	return Report{
		Results: results,
		Equity:  buildEquityTable(results),
	}, nil
}

// buildEquityTable zips the per-variant equity curves into one date-keyed
// table. Every variant processed the same dates, so the curves align by
// index.
func buildEquityTable(results []Result) EquityTable {
	table := EquityTable{
		Variants: make([]string, len(results)),
	}

	for i, result := range results {
		table.Variants[i] = result.Variant.Name
	}

	if len(results) == 0 {
		return table
	}

	points := len(results[0].EquityCurve)
	table.Rows = make([]EquityTableRow, points)

	for p := 0; p < points; p++ {
		row := EquityTableRow{
			Date:   results[0].EquityCurve[p].Date,
			Equity: make([]float64, len(results)),
		}

		for i, result := range results {
			row.Equity[i] = result.EquityCurve[p].Equity
		}

		table.Rows[p] = row
	}

	return table
}

func countDates(rows []types.SignalRow) int {
	count := 0

	for i, row := range rows {
		if i == 0 || !row.Date.Equal(rows[i-1].Date) {
			count++
		}
	}

	return count
}
