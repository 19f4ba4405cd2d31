// Package results persists finished runs to disk and loads them back. Each
// run directory holds a parquet trade log, a csv equity table, and a yaml
// summary head stamped with the engine version that produced it.
package results

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/backtest"
	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

const (
	summaryFileName = "run.yaml"
	tradesFileName  = "trades.parquet"
	equityFileName  = "equity.csv"
)

// ResultStore accumulates the trade logs and equity curves of a run in an
// in-process DuckDB database and exports them as columnar artifacts.
type ResultStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewResultStore(logger *logger.Logger) (*ResultStore, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open result store", err)
	}

	return &ResultStore{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the tables holding trade records and equity points.
func (s *ResultStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT,
			variant TEXT,
			trade_id TEXT,
			date TIMESTAMP,
			pair_id TEXT,
			event TEXT,
			direction TEXT,
			realized_pnl DOUBLE,
			pnl_pct DOUBLE,
			close_reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create trades table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity (
			run_id TEXT,
			variant TEXT,
			date TIMESTAMP,
			equity DOUBLE,
			open_positions INTEGER
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create equity table", err)
	}

	return nil
}

// RecordResult inserts one variant's trade log and equity curve under the
// given run ID. The whole result commits atomically.
func (s *ResultStore) RecordResult(runID string, result backtest.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to begin transaction", err)
	}

	for _, trade := range result.Trades {
		insertTrade := s.sq.
			Insert("trades").
			Columns(
				"run_id", "variant", "trade_id", "date", "pair_id",
				"event", "direction", "realized_pnl", "pnl_pct", "close_reason",
			).
			Values(
				runID, result.Variant.Name, trade.ID, trade.Date, trade.PairID,
				trade.Event, trade.Direction, trade.RealizedPnL, trade.PnLPct, trade.CloseReason,
			).
			RunWith(tx)

		if _, err := insertTrade.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to insert trade %s", trade.ID)
		}
	}

	for _, point := range result.EquityCurve {
		insertPoint := s.sq.
			Insert("equity").
			Columns("run_id", "variant", "date", "equity", "open_positions").
			Values(runID, result.Variant.Name, point.Date, point.Equity, point.OpenPositions).
			RunWith(tx)

		if _, err := insertPoint.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to insert equity point for %s", result.Variant.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to commit result", err)
	}

	return nil
}

// Write exports the accumulated tables into the run directory: trades as
// parquet, the equity table as csv. Returns the two file paths.
func (s *ResultStore) Write(dir string) (string, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to create run directory %s", dir)
	}

	// COPY takes no placeholders, so these go through raw SQL
	tradesPath := filepath.Join(dir, tradesFileName)

	_, err := s.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, tradesPath))
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to export trades to parquet", err)
	}

	equityPath := filepath.Join(dir, equityFileName)

	_, err = s.db.Exec(fmt.Sprintf(`COPY equity TO '%s' (HEADER, DELIMITER ',')`, equityPath))
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to export equity table to csv", err)
	}

	s.logger.Info("exported run artifacts",
		zap.String("trades", tradesPath),
		zap.String("equity", equityPath),
	)

	return tradesPath, equityPath, nil
}

// Close releases the underlying database.
func (s *ResultStore) Close() error {
	return s.db.Close()
}
