// Package datasource loads signal streams for the simulation core. The
// file-backed source reads csv and parquet through DuckDB; the in-memory
// source serves streams already materialized by the caller.
package datasource

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/meanrev-lab/pairback/internal/types"
)

// SignalSource supplies a chronologically ordered signal stream.
type SignalSource interface {
	// Initialize loads the signal file at the given path (csv or parquet).
	Initialize(path string) error
	// ReadAll yields the stream in date order; rows sharing a date keep
	// their input order.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.SignalRow, error) bool)
	// Count returns the number of rows inside the date range.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Pairs returns the distinct pair identifiers in the source.
	Pairs() ([]string, error)
	// Close releases the source's resources.
	Close() error
}

// LoadSignals materializes a source's stream into a slice, pre-sized from
// the source's row count.
func LoadSignals(source SignalSource, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.SignalRow, error) {
	count, err := source.Count(start, end)
	if err != nil {
		return nil, err
	}

	rows := make([]types.SignalRow, 0, count)

	for row, err := range source.ReadAll(start, end) {
		if err != nil {
			return nil, err
		}

		rows = append(rows, row)
	}

	return rows, nil
}
