package marketdata

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

// WriteSpreadCSV persists aligned spread rows as a csv file. The column
// names match what the feature pipeline and the simulation datasource
// expect, so the file plugs into both without renaming.
func WriteSpreadCSV(path string, rows []SpreadRow, log *logger.Logger) error {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open database", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE spread (
			date TIMESTAMP,
			pair_id TEXT,
			close_a DOUBLE,
			close_b DOUBLE,
			spread_price DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create spread table", err)
	}

	sq := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to begin transaction", err)
	}

	for _, row := range rows {
		insert := sq.
			Insert("spread").
			Columns("date", "pair_id", "close_a", "close_b", "spread_price").
			Values(row.Date, row.PairID, row.CloseA, row.CloseB, row.SpreadPrice).
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to insert spread row %s/%s",
				row.PairID, row.Date.Format(time.DateOnly))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to commit spread rows", err)
	}

	_, err = db.Exec(fmt.Sprintf(`COPY spread TO '%s' (HEADER, DELIMITER ',')`, path))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to export spread to %s", path)
	}

	log.Info("spread series written", zap.String("path", path), zap.Int("rows", len(rows)))

	return nil
}
