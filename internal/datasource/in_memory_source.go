package datasource

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"

	"github.com/meanrev-lab/pairback/internal/types"
)

// InMemorySignalSource serves a stream the caller already holds in memory.
// Rows are stably sorted by date at construction, so input order survives
// within equal dates.
type InMemorySignalSource struct {
	rows []types.SignalRow
}

func NewInMemorySignalSource(rows []types.SignalRow) *InMemorySignalSource {
	sorted := make([]types.SignalRow, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	return &InMemorySignalSource{rows: sorted}
}

// Initialize implements SignalSource. The in-memory source has no file to
// load, so the path is ignored.
func (s *InMemorySignalSource) Initialize(path string) error {
	return nil
}

// ReadAll implements SignalSource.
func (s *InMemorySignalSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.SignalRow, error) bool) {
	return func(yield func(types.SignalRow, error) bool) {
		for _, row := range s.rows {
			if !inRange(row.Date, start, end) {
				continue
			}

			if !yield(row, nil) {
				return
			}
		}
	}
}

// Count implements SignalSource.
func (s *InMemorySignalSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, row := range s.rows {
		if inRange(row.Date, start, end) {
			count++
		}
	}

	return count, nil
}

// Pairs implements SignalSource.
func (s *InMemorySignalSource) Pairs() ([]string, error) {
	seen := make(map[string]bool)
	pairs := make([]string, 0)

	for _, row := range s.rows {
		if !seen[row.PairID] {
			seen[row.PairID] = true

			pairs = append(pairs, row.PairID)
		}
	}

	sort.Strings(pairs)

	return pairs, nil
}

// Close implements SignalSource.
func (s *InMemorySignalSource) Close() error {
	return nil
}

func inRange(date time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && date.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && date.After(end.Unwrap()) {
		return false
	}

	return true
}
