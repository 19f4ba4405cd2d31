package results

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/backtest"
	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/internal/types"
	"github.com/meanrev-lab/pairback/internal/version"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

// Writer persists finished runs. Each run gets a fresh UUID and its own
// directory under the base results directory.
type Writer struct {
	logger *logger.Logger
}

func NewWriter(logger *logger.Logger) *Writer {
	return &Writer{logger: logger}
}

// WriteRun writes a report's artifacts under baseDir/<run-id>/ and returns
// the summary head that was persisted alongside them. File paths inside the
// summary are relative to the run directory, so a run folder can be moved or
// archived as a unit.
func (w *Writer) WriteRun(baseDir string, config backtest.Config, report backtest.Report, dataPath string) (types.RunSummary, error) {
	runID := uuid.New().String()
	runDir := filepath.Join(baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return types.RunSummary{}, errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to create run directory %s", runDir)
	}

	store, err := NewResultStore(w.logger)
	if err != nil {
		return types.RunSummary{}, err
	}
	defer store.Close()

	if err := store.Initialize(); err != nil {
		return types.RunSummary{}, err
	}

	for _, result := range report.Results {
		if err := store.RecordResult(runID, result); err != nil {
			return types.RunSummary{}, err
		}
	}

	if _, _, err := store.Write(runDir); err != nil {
		return types.RunSummary{}, err
	}

	summary := types.RunSummary{
		ID:             runID,
		Timestamp:      time.Now().UTC(),
		EngineVersion:  version.GetVersion(),
		Mode:           string(config.ExitPolicy),
		DataPath:       dataPath,
		TradesFilePath: tradesFileName,
		EquityFilePath: equityFileName,
		Variants:       report.Summaries(),
	}

	if err := types.WriteRunSummary(filepath.Join(runDir, summaryFileName), summary); err != nil {
		return types.RunSummary{}, errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to write run summary", err)
	}

	w.logger.Info("run persisted",
		zap.String("run_id", runID),
		zap.String("dir", runDir),
		zap.Int("variants", len(report.Results)),
	)

	return summary, nil
}
