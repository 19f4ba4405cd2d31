// Package testhelper carries the shared fixture for backtest end to end
// tests: a base suite with a quiet logger, plus helpers that move a signal
// stream through the full pipeline from csv file to persisted run directory.
package testhelper

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/backtest"
	"github.com/meanrev-lab/pairback/internal/backtest/results"
	"github.com/meanrev-lab/pairback/internal/datasource"
	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/internal/types"
)

// E2ETestSuite is the base test suite for end to end tests.
type E2ETestSuite struct {
	suite.Suite
	Logger *logger.Logger
}

// SetupSuite creates the no-op logger shared by all pipeline stages.
func (s *E2ETestSuite) SetupSuite() {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.OutputPaths = []string{}
	loggerConfig.ErrorOutputPaths = []string{}
	zapLogger, err := loggerConfig.Build()
	s.Require().NoError(err)
	s.Logger = &logger.Logger{Logger: zapLogger}
}

// WriteSignalsCSV writes a signal stream to a csv file under a fresh temp
// directory, in the column layout the DuckDB source ingests. NaN values
// become empty cells, which load back as NULL.
func WriteSignalsCSV(s *E2ETestSuite, rows []types.SignalRow) string {
	models := map[string]bool{}

	for _, row := range rows {
		for model := range row.Predictions {
			models[model] = true
		}
	}

	modelColumns := make([]string, 0, len(models))
	for model := range models {
		modelColumns = append(modelColumns, model)
	}

	sort.Strings(modelColumns)

	var b strings.Builder

	b.WriteString("date,pair_id,z_score,spread_price,target_return,target_direction")

	for _, model := range modelColumns {
		b.WriteString("," + model)
	}

	b.WriteString("\n")

	for _, row := range rows {
		b.WriteString(row.Date.Format(time.DateOnly))
		b.WriteString("," + row.PairID)
		b.WriteString("," + formatCell(row.ZScore))
		b.WriteString("," + formatCell(row.SpreadPrice))
		b.WriteString("," + formatCell(row.TargetReturn))
		b.WriteString("," + strconv.Itoa(row.TargetDirection))

		for _, model := range modelColumns {
			value, ok := row.Predictions[model]
			if !ok {
				b.WriteString(",")

				continue
			}

			b.WriteString("," + formatCell(value))
		}

		b.WriteString("\n")
	}

	path := filepath.Join(s.T().TempDir(), "signals.csv")
	err := os.WriteFile(path, []byte(b.String()), 0644)
	require.NoError(s.T(), err)

	return path
}

func formatCell(value float64) string {
	if math.IsNaN(value) {
		return ""
	}

	return strconv.FormatFloat(value, 'f', -1, 64)
}

// RunBacktest moves one config through the whole pipeline: the csv file is
// ingested by the DuckDB source, simulated by the aggregator, and persisted
// by the results writer. Returns the in-memory report, the summary head and
// the run directory the artifacts were written to.
func RunBacktest(s *E2ETestSuite, config backtest.Config, dataPath string) (backtest.Report, types.RunSummary, string) {
	source, err := datasource.NewDuckDBSignalSource(":memory:", s.Logger)
	require.NoError(s.T(), err)

	defer source.Close()

	err = source.Initialize(dataPath)
	require.NoError(s.T(), err)

	rows, err := datasource.LoadSignals(source, optional.None[time.Time](), optional.None[time.Time]())
	require.NoError(s.T(), err)
	require.NotEmpty(s.T(), rows)

	aggregator, err := backtest.NewAggregator(config, s.Logger)
	require.NoError(s.T(), err)

	report, err := aggregator.Run(rows, nil, optional.None[backtest.OnProcessDateCallback]())
	require.NoError(s.T(), err)

	baseDir := s.T().TempDir()

	summary, err := results.NewWriter(s.Logger).WriteRun(baseDir, config, report, dataPath)
	require.NoError(s.T(), err)

	return report, summary, filepath.Join(baseDir, summary.ID)
}
