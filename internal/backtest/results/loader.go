package results

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/internal/types"
	"github.com/meanrev-lab/pairback/internal/version"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

// VariantArtifacts groups one variant's persisted trade log and equity curve.
type VariantArtifacts struct {
	Trades []types.TradeRecord
	Equity types.EquityCurve
}

// LoadedRun is a fully materialized run directory.
type LoadedRun struct {
	Summary  types.RunSummary
	Variants map[string]VariantArtifacts
}

// Loader reads persisted runs back into memory. Runs written by an engine
// release with a different major or minor version are refused.
type Loader struct {
	logger *logger.Logger
}

func NewLoader(logger *logger.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadRun loads the summary, trade log and equity curves from a run
// directory produced by Writer.WriteRun.
func (l *Loader) LoadRun(runDir string) (*LoadedRun, error) {
	info, err := os.Stat(runDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrCodeNoResultsDir, err, "run directory %s does not exist", runDir)
		}

		return nil, errors.Wrapf(errors.ErrCodeResultsReadFailed, err, "failed to stat run directory %s", runDir)
	}

	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrCodeNoResultsDir, "%s is not a directory", runDir)
	}

	summary, err := types.ReadRunSummary(filepath.Join(runDir, summaryFileName))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResultsReadFailed, "failed to read run summary", err)
	}

	if err := version.CheckArtifactCompatibility(summary.EngineVersion, version.GetVersion()); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSchemaIncompatible, err, "run %s cannot be loaded by engine %s", summary.ID, version.GetVersion())
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open database", err)
	}
	defer db.Close()

	variants := make(map[string]VariantArtifacts)

	if err := l.loadTrades(db, filepath.Join(runDir, summary.TradesFilePath), variants); err != nil {
		return nil, err
	}

	if err := l.loadEquity(db, filepath.Join(runDir, summary.EquityFilePath), variants); err != nil {
		return nil, err
	}

	l.logger.Debug("run loaded",
		zap.String("run_id", summary.ID),
		zap.Int("variants", len(variants)),
	)

	return &LoadedRun{Summary: summary, Variants: variants}, nil
}

func (l *Loader) loadTrades(db *sql.DB, path string, variants map[string]VariantArtifacts) error {
	// Trade IDs are zero padded, so lexical order is append order
	query := fmt.Sprintf(`
		SELECT variant, trade_id, date, pair_id, event, direction, realized_pnl, pnl_pct, close_reason
		FROM read_parquet('%s')
		ORDER BY variant, trade_id
	`, path)

	rows, err := db.Query(query)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeResultsReadFailed, err, "failed to read trades from %s", path)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			variant, tradeID, pairID, event, direction, closeReason string
			date                                                    time.Time
			realizedPnL, pnlPct                                     float64
		)

		if err := rows.Scan(&variant, &tradeID, &date, &pairID, &event, &direction, &realizedPnL, &pnlPct, &closeReason); err != nil {
			return errors.Wrap(errors.ErrCodeResultsReadFailed, "failed to scan trade", err)
		}

		artifacts := variants[variant]
		artifacts.Trades = append(artifacts.Trades, types.TradeRecord{
			ID:          tradeID,
			Date:        date,
			PairID:      pairID,
			Event:       types.TradeEvent(event),
			Direction:   types.Direction(direction),
			RealizedPnL: realizedPnL,
			PnLPct:      pnlPct,
			CloseReason: types.CloseReason(closeReason),
		})
		variants[variant] = artifacts
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeResultsReadFailed, "error iterating trades", err)
	}

	return nil
}

func (l *Loader) loadEquity(db *sql.DB, path string, variants map[string]VariantArtifacts) error {
	// header=true keeps column names resolvable even for a run with no
	// equity rows
	query := fmt.Sprintf(`
		SELECT variant, date, equity, open_positions
		FROM read_csv_auto('%s', header=true)
		ORDER BY variant, date
	`, path)

	rows, err := db.Query(query)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeResultsReadFailed, err, "failed to read equity table from %s", path)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			variant       string
			date          time.Time
			equity        float64
			openPositions int
		)

		if err := rows.Scan(&variant, &date, &equity, &openPositions); err != nil {
			return errors.Wrap(errors.ErrCodeResultsReadFailed, "failed to scan equity point", err)
		}

		artifacts := variants[variant]
		artifacts.Equity = append(artifacts.Equity, types.EquityPoint{
			Date:          date,
			Equity:        equity,
			OpenPositions: openPositions,
		})
		variants[variant] = artifacts
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeResultsReadFailed, "error iterating equity points", err)
	}

	return nil
}
