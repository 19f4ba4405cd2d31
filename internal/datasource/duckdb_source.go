package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/internal/types"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

// DuckDBSignalSource reads signal files through DuckDB. Initialize
// materializes the file into a table carrying an explicit sequence column,
// so rows sharing a date replay in input-file order.
type DuckDBSignalSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBSignalSource creates a DuckDB-backed signal source. The path
// parameter is the DuckDB database location; ":memory:" keeps it off disk.
func NewDuckDBSignalSource(path string, logger *logger.Logger) (SignalSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	_, err = db.Exec(`
		SET memory_limit='8GB';
		SET threads=4;
	`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to set duckdb options", err)
	}

	return &DuckDBSignalSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements SignalSource.
func (d *DuckDBSignalSource) Initialize(path string) error {
	d.logger.Debug("Initializing signal source", zap.String("path", path))

	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		reader = "read_csv_auto"
	case ".parquet":
		reader = "read_parquet"
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unsupported signal file extension %q", filepath.Ext(path))
	}

	if _, err := d.db.Exec(`DROP TABLE IF EXISTS signals;`); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing signals table", err)
	}

	// Materialized as a table rather than a view so the sequence column
	// pins the file order of rows sharing a date.
	query := fmt.Sprintf(`
		CREATE TABLE signals AS
		SELECT row_number() OVER () AS seq, * FROM %s('%s');
	`, reader, path)

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to load signal file %s", path)
	}

	return nil
}

// ReadAll implements SignalSource.
func (d *DuckDBSignalSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.SignalRow, error) bool) {
	return func(yield func(types.SignalRow, error) bool) {
		d.logger.Debug("Reading signal stream from DuckDB")

		builder := d.sq.Select("*").From("signals").OrderBy("date ASC", "seq ASC")

		if start.IsSome() {
			builder = builder.Where(squirrel.GtOrEq{"date": start.Unwrap()})
		}

		if end.IsSome() {
			builder = builder.Where(squirrel.LtOrEq{"date": end.Unwrap()})
		}

		query, args, err := builder.ToSql()
		if err != nil {
			yield(types.SignalRow{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build signals query", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.SignalRow{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query signals", err))

			return
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			yield(types.SignalRow{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read signal columns", err))

			return
		}

		for rows.Next() {
			values := make([]any, len(columns))
			valuePtrs := make([]any, len(columns))

			for i := range values {
				valuePtrs[i] = &values[i]
			}

			if err := rows.Scan(valuePtrs...); err != nil {
				yield(types.SignalRow{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan signal row", err))

				return
			}

			row, err := mapSignalRow(columns, values)
			if !yield(row, err) {
				return
			}

			if err != nil {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.SignalRow{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating signal rows", err))
		}
	}
}

// Count implements SignalSource.
func (d *DuckDBSignalSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	builder := d.sq.Select("COUNT(*)").From("signals")

	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"date": start.Unwrap()})
	}

	if end.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"date": end.Unwrap()})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count signals", err)
	}

	return count, nil
}

// Pairs implements SignalSource.
func (d *DuckDBSignalSource) Pairs() ([]string, error) {
	query, args, err := d.sq.Select("DISTINCT pair_id").From("signals").OrderBy("pair_id ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build pairs query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query pairs", err)
	}
	defer rows.Close()

	pairs := make([]string, 0)

	for rows.Next() {
		var pair string
		if err := rows.Scan(&pair); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan pair id", err)
		}

		pairs = append(pairs, pair)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating pairs", err)
	}

	return pairs, nil
}

// Close implements SignalSource.
func (d *DuckDBSignalSource) Close() error {
	return d.db.Close()
}
