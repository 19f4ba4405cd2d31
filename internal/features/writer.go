package features

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

// WriteCSV persists feature rows as a csv file. The column set is a
// superset of what the simulation datasource reads, so the written file
// doubles as a model-free signal input.
func WriteCSV(path string, rows []FeatureRow, log *logger.Logger) error {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open database", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE features (
			date DATE,
			pair_id TEXT,
			spread_price DOUBLE,
			z_score DOUBLE,
			extreme_z INTEGER,
			distance_mean DOUBLE,
			volatility DOUBLE,
			range_position DOUBLE,
			recent_extreme INTEGER,
			mr_strength DOUBLE,
			vol_expansion DOUBLE,
			target_return DOUBLE,
			target_direction INTEGER
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create features table", err)
	}

	sq := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to begin transaction", err)
	}

	for _, row := range rows {
		insert := sq.
			Insert("features").
			Columns(
				"date", "pair_id", "spread_price", "z_score", "extreme_z",
				"distance_mean", "volatility", "range_position", "recent_extreme",
				"mr_strength", "vol_expansion", "target_return", "target_direction",
			).
			Values(
				row.Date, row.PairID, row.SpreadPrice, row.ZScore, row.ExtremeZ,
				row.DistanceMean, row.Volatility, row.RangePosition, row.RecentExtreme,
				row.MRStrength, row.VolExpansion, row.TargetReturn, row.TargetDirection,
			).
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to insert feature row %s/%s",
				row.PairID, row.Date.Format(time.DateOnly))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to commit feature rows", err)
	}

	_, err = db.Exec(fmt.Sprintf(`COPY features TO '%s' (HEADER, DELIMITER ',')`, path))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to export features to %s", path)
	}

	log.Info("features written", zap.String("path", path), zap.Int("rows", len(rows)))

	return nil
}
