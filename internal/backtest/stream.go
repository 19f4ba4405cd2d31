package backtest

import (
	"time"

	"github.com/meanrev-lab/pairback/internal/types"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

// dateGroup is one processing step of the simulation loop: every row
// sharing a date, in stream order.
type dateGroup struct {
	date   time.Time
	rows   []types.SignalRow
	byPair map[string]types.SignalRow
}

// ValidateStream checks that the stream is non-empty, chronologically
// ordered and structurally valid before any simulation step runs. Failures
// are fatal and carry the offending date, pair and field; NaN signal values
// are legal and pass through as non-actionable data.
func ValidateStream(rows []types.SignalRow, requiredModels []string) error {
	if len(rows) == 0 {
		return errors.New(errors.ErrCodeEmptyStream, "signal stream is empty")
	}

	for i, row := range rows {
		if err := row.Validate(requiredModels); err != nil {
			return err
		}

		if i > 0 && row.Date.Before(rows[i-1].Date) {
			return errors.Newf(errors.ErrCodeUnorderedStream,
				"signal stream out of order at row %d: pair %s dated %s follows %s",
				i, row.PairID, row.Date.Format(time.DateOnly), rows[i-1].Date.Format(time.DateOnly))
		}
	}

	return nil
}

// groupByDate splits an ordered stream into per-date groups, preserving row
// order within each date. When a pair appears twice on one date the first
// row wins the by-pair lookup.
func groupByDate(rows []types.SignalRow) []dateGroup {
	groups := make([]dateGroup, 0)

	for _, row := range rows {
		if len(groups) == 0 || !groups[len(groups)-1].date.Equal(row.Date) {
			groups = append(groups, dateGroup{
				date:   row.Date,
				byPair: make(map[string]types.SignalRow),
			})
		}

		group := &groups[len(groups)-1]
		group.rows = append(group.rows, row)

		if _, exists := group.byPair[row.PairID]; !exists {
			group.byPair[row.PairID] = row
		}
	}

	return groups
}
