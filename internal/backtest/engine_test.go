package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/backtest/cost_model"
	"github.com/meanrev-lab/pairback/internal/backtest/exit_policy"
	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/internal/types"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

type EngineTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupSuite() {
	// Create a no-op logger
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.OutputPaths = []string{}
	loggerConfig.ErrorOutputPaths = []string{}
	zapLogger, err := loggerConfig.Build()
	suite.Require().NoError(err)
	suite.logger = &logger.Logger{Logger: zapLogger}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// signalRow builds a spread-priced stream row with no forward label.
func signalRow(d time.Time, pair string, z, spread float64) types.SignalRow {
	return types.SignalRow{
		Date:         d,
		PairID:       pair,
		ZScore:       z,
		SpreadPrice:  spread,
		TargetReturn: math.NaN(),
	}
}

// labeledRow builds a forward-labeled stream row.
func labeledRow(d time.Time, pair string, z, spread, ret float64, dir int) types.SignalRow {
	return types.SignalRow{
		Date:            d,
		PairID:          pair,
		ZScore:          z,
		SpreadPrice:     spread,
		TargetReturn:    ret,
		TargetDirection: dir,
	}
}

func (suite *EngineTestSuite) spreadConfig() Config {
	config := DefaultConfig()
	config.CapitalPerTrade = 1000
	config.PositionRiskPct = 0

	return config
}

func (suite *EngineTestSuite) newEngine(config Config, variant Variant) *Engine {
	engine, err := NewEngine(config, variant, suite.logger)
	suite.Require().NoError(err)

	return engine
}

func (suite *EngineTestSuite) TestReversalRoundTrip() {
	// A stretched z-score opens a long; the position closes the first day
	// the z-score is back inside the reversion band.
	rows := []types.SignalRow{
		signalRow(date(2024, 3, 4), "GLD-SLV", -2.0, 10),
		signalRow(date(2024, 3, 5), "GLD-SLV", -2.0, 10),
		signalRow(date(2024, 3, 6), "GLD-SLV", 0.3, 10),
	}

	engine := suite.newEngine(suite.spreadConfig(), Variant{Name: "zscore", ExitPolicy: exit_policy.KindSignalReversal})
	result, err := engine.Run(rows, optional.None[OnProcessDateCallback]())
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 2)
	suite.Equal(types.TradeEventEntry, result.Trades[0].Event)
	suite.Equal(date(2024, 3, 4), result.Trades[0].Date)
	suite.Equal(types.DirectionLong, result.Trades[0].Direction)

	exit := result.Trades[1]
	suite.Equal(types.TradeEventExit, exit.Event)
	suite.Equal(date(2024, 3, 6), exit.Date)
	suite.Equal(types.CloseReasonMeanReversion, exit.CloseReason)

	// entry 10*1.004, exit 10*0.996, size 100: the flat spread costs the
	// round trip adjustment
	suite.InDelta(-8.0, exit.RealizedPnL, 1e-9)

	suite.Require().Len(result.EquityCurve, 3)
	suite.InDelta(9992.0, result.EquityCurve[0].Equity, 1e-9)
	suite.Equal(1, result.EquityCurve[0].OpenPositions)
	suite.Equal(0, result.EquityCurve[2].OpenPositions)

	suite.InDelta(9992.0, result.Summary.FinalEquity, 1e-9)
	suite.Equal(1, result.Summary.TradeCount)
	suite.Equal(0, result.Summary.SkippedEntries)
}

func (suite *EngineTestSuite) TestHoldBeyondThresholdStaysOpen() {
	// |z| exactly at the exit threshold is still outside the band
	rows := []types.SignalRow{
		signalRow(date(2024, 3, 4), "GLD-SLV", -2.0, 10),
		signalRow(date(2024, 3, 5), "GLD-SLV", 0.5, 10),
	}

	engine := suite.newEngine(suite.spreadConfig(), Variant{Name: "zscore", ExitPolicy: exit_policy.KindSignalReversal})
	result, err := engine.Run(rows, optional.None[OnProcessDateCallback]())
	suite.Require().NoError(err)

	// The only exit is the end-of-stream drain
	suite.Require().Len(result.Trades, 2)
	suite.Equal(types.CloseReasonEndOfBacktest, result.Trades[1].CloseReason)
	suite.Equal(date(2024, 3, 5), result.Trades[1].Date)
}

func (suite *EngineTestSuite) TestMaxPositionsSkipsSecondSignal() {
	config := suite.spreadConfig()
	config.MaxPositions = 1

	rows := []types.SignalRow{
		signalRow(date(2024, 3, 4), "A-B", -2.0, 10),
		signalRow(date(2024, 3, 4), "C-D", 2.2, 5),
	}

	engine := suite.newEngine(config, Variant{Name: "zscore", ExitPolicy: exit_policy.KindSignalReversal})
	result, err := engine.Run(rows, optional.None[OnProcessDateCallback]())
	suite.Require().NoError(err)

	suite.Equal(1, result.Summary.SkippedEntries)
	suite.Equal(1, result.Summary.TradeCount)
	suite.Equal("A-B", result.Trades[0].PairID)
	suite.Equal(1, result.EquityCurve[0].OpenPositions)
}

func (suite *EngineTestSuite) TestCapitalBufferSkip() {
	config := suite.spreadConfig()
	config.InitialCapital = 1500

	rows := []types.SignalRow{
		signalRow(date(2024, 3, 4), "A-B", -2.0, 10),
		signalRow(date(2024, 3, 4), "C-D", 2.2, 5),
	}

	// After the first entry available capital is 500 < 1000 * 1.1
	engine := suite.newEngine(config, Variant{Name: "zscore", ExitPolicy: exit_policy.KindSignalReversal})
	result, err := engine.Run(rows, optional.None[OnProcessDateCallback]())
	suite.Require().NoError(err)

	suite.Equal(1, result.Summary.SkippedEntries)
	suite.Equal(1, result.EquityCurve[0].OpenPositions)
}

func (suite *EngineTestSuite) TestFixedHorizonSchedule() {
	// A Friday entry with a five-day hold closes the following Friday
	config := suite.spreadConfig()
	config.HoldPeriod = 5
	config.CostModel = cost_model.ModelZero

	rows := []types.SignalRow{
		labeledRow(date(2024, 3, 1), "GLD-SLV", -2.0, 10, 0.05, 1),
		signalRow(date(2024, 3, 4), "GLD-SLV", 0, 10),
		signalRow(date(2024, 3, 5), "GLD-SLV", 0, 10),
		signalRow(date(2024, 3, 6), "GLD-SLV", 0, 10),
		signalRow(date(2024, 3, 7), "GLD-SLV", 0, 10),
		signalRow(date(2024, 3, 8), "GLD-SLV", 0, 10),
	}

	engine := suite.newEngine(config, Variant{Name: "horizon", ExitPolicy: exit_policy.KindFixedHorizon})
	result, err := engine.Run(rows, optional.None[OnProcessDateCallback]())
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 2)
	exit := result.Trades[1]
	suite.Equal(date(2024, 3, 8), exit.Date)
	suite.Equal(types.CloseReasonHorizon, exit.CloseReason)

	// zero-cost long win: 1000 * 0.05
	suite.InDelta(50.0, exit.RealizedPnL, 1e-9)
	suite.InDelta(10050.0, result.Summary.FinalEquity, 1e-9)
}

func (suite *EngineTestSuite) TestFixedHorizonClosesAfterStreamGap() {
	// The scheduled close date has no row; the close fires on the next
	// processed date instead
	config := suite.spreadConfig()
	config.HoldPeriod = 1
	config.CostModel = cost_model.ModelZero

	rows := []types.SignalRow{
		labeledRow(date(2024, 3, 4), "GLD-SLV", -2.0, 10, 0.02, 1),
		signalRow(date(2024, 3, 7), "GLD-SLV", 0, 10),
	}

	engine := suite.newEngine(config, Variant{Name: "horizon", ExitPolicy: exit_policy.KindFixedHorizon})
	result, err := engine.Run(rows, optional.None[OnProcessDateCallback]())
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 2)
	suite.Equal(date(2024, 3, 7), result.Trades[1].Date)
	suite.Equal(types.CloseReasonHorizon, result.Trades[1].CloseReason)
}

func (suite *EngineTestSuite) TestShortLabeledOutcome() {
	// Short entry against a labeled fall: realized PnL is the label
	// magnitude on the committed capital minus the round-trip cost
	config := suite.spreadConfig()
	config.CapitalPerTrade = 100
	config.Cost = cost_model.Params{
		Commission:       1.0,
		SlippagePct:      0.005,
		SpreadPct:        0.005,
		AnnualBorrowRate: 0.0365,
	}

	rows := []types.SignalRow{
		labeledRow(date(2024, 3, 4), "GLD-SLV", 2.2, 10, -0.05, 0),
		signalRow(date(2024, 3, 5), "GLD-SLV", 0, 10),
	}

	engine := suite.newEngine(config, Variant{Name: "horizon", ExitPolicy: exit_policy.KindFixedHorizon})
	result, err := engine.Run(rows, optional.None[OnProcessDateCallback]())
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 2)
	suite.Equal(types.DirectionShort, result.Trades[0].Direction)

	// gross 100 * 0.05 = 5, cost 1 + 0.5 + 0.5 + 100*0.0365*10/365 = 2.1
	drained := result.Trades[1]
	suite.InDelta(2.9, drained.RealizedPnL, 1e-9)
}

func (suite *EngineTestSuite) TestNaNZScoreTakesNoAction() {
	rows := []types.SignalRow{
		signalRow(date(2024, 3, 4), "GLD-SLV", math.NaN(), 10),
		signalRow(date(2024, 3, 5), "GLD-SLV", math.NaN(), 10),
	}

	engine := suite.newEngine(suite.spreadConfig(), Variant{Name: "zscore", ExitPolicy: exit_policy.KindSignalReversal})
	result, err := engine.Run(rows, optional.None[OnProcessDateCallback]())
	suite.Require().NoError(err)

	suite.Empty(result.Trades)
	suite.Equal(0, result.Summary.SkippedEntries)
	suite.Require().Len(result.EquityCurve, 2)
	suite.InDelta(10000.0, result.EquityCurve[1].Equity, 1e-9)
}

func (suite *EngineTestSuite) TestDrainClosesAllOpenPositions() {
	rows := []types.SignalRow{
		signalRow(date(2024, 3, 4), "A-B", -2.0, 10),
		signalRow(date(2024, 3, 4), "C-D", 2.2, 5),
		signalRow(date(2024, 3, 5), "A-B", -1.9, 11),
	}

	engine := suite.newEngine(suite.spreadConfig(), Variant{Name: "zscore", ExitPolicy: exit_policy.KindSignalReversal})
	result, err := engine.Run(rows, optional.None[OnProcessDateCallback]())
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 4)

	// Drain order follows open order; C-D had no row on the final date and
	// closes at its last observed spread
	suite.Equal("A-B", result.Trades[2].PairID)
	suite.Equal("C-D", result.Trades[3].PairID)

	for _, trade := range result.Trades[2:] {
		suite.Equal(types.CloseReasonEndOfBacktest, trade.CloseReason)
		suite.Equal(date(2024, 3, 5), trade.Date)
	}
}

func (suite *EngineTestSuite) TestModelGating() {
	config := suite.spreadConfig()
	config.Models = []string{"ridge"}

	makeRow := func(d time.Time, pair string, z, pred float64) types.SignalRow {
		row := signalRow(d, pair, z, 10)
		row.Predictions = map[string]float64{"ridge": pred}

		return row
	}

	tests := []struct {
		name        string
		row         types.SignalRow
		expectTrade bool
	}{
		{"long with confident up", makeRow(date(2024, 3, 4), "A-B", -2.0, 0.9), true},
		{"long with unconfident model", makeRow(date(2024, 3, 4), "A-B", -2.0, 0.55), false},
		{"short with confident down", makeRow(date(2024, 3, 4), "A-B", 2.2, 0.1), true},
		{"short with up-leaning model", makeRow(date(2024, 3, 4), "A-B", 2.2, 0.5), false},
		{"stretched z against the model", makeRow(date(2024, 3, 4), "A-B", -2.0, 0.1), false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			engine := suite.newEngine(config, Variant{
				Name:       "ridge",
				ExitPolicy: exit_policy.KindSignalReversal,
				Models:     []string{"ridge"},
			})

			result, err := engine.Run([]types.SignalRow{tc.row}, optional.None[OnProcessDateCallback]())
			suite.Require().NoError(err)

			if tc.expectTrade {
				suite.NotEmpty(result.Trades)
			} else {
				suite.Empty(result.Trades)
				suite.Equal(0, result.Summary.SkippedEntries)
			}
		})
	}
}

func (suite *EngineTestSuite) TestRunIsDeterministic() {
	rows := []types.SignalRow{
		signalRow(date(2024, 3, 4), "A-B", -2.0, 10),
		signalRow(date(2024, 3, 4), "C-D", 1.8, 5),
		signalRow(date(2024, 3, 5), "A-B", -0.2, 10.5),
		signalRow(date(2024, 3, 5), "C-D", 2.1, 4.8),
		signalRow(date(2024, 3, 6), "A-B", -2.2, 9.7),
		signalRow(date(2024, 3, 6), "C-D", 0.1, 5.2),
	}

	run := func() Result {
		engine := suite.newEngine(suite.spreadConfig(), Variant{Name: "zscore", ExitPolicy: exit_policy.KindSignalReversal})
		result, err := engine.Run(rows, optional.None[OnProcessDateCallback]())
		suite.Require().NoError(err)

		return result
	}

	first := run()
	second := run()

	suite.Equal(first.Trades, second.Trades)
	suite.Equal(first.EquityCurve, second.EquityCurve)
	suite.Equal(first.Summary, second.Summary)
}

func (suite *EngineTestSuite) TestProgressCallback() {
	rows := []types.SignalRow{
		signalRow(date(2024, 3, 4), "A-B", 0, 10),
		signalRow(date(2024, 3, 5), "A-B", 0, 10),
		signalRow(date(2024, 3, 5), "C-D", 0, 5),
		signalRow(date(2024, 3, 6), "A-B", 0, 10),
	}

	var calls []int

	callback := OnProcessDateCallback(func(current int, total int) {
		suite.Equal(3, total)
		calls = append(calls, current)
	})

	engine := suite.newEngine(suite.spreadConfig(), Variant{Name: "zscore", ExitPolicy: exit_policy.KindSignalReversal})
	_, err := engine.Run(rows, optional.Some(callback))
	suite.Require().NoError(err)

	suite.Equal([]int{1, 2, 3}, calls)
}

func (suite *EngineTestSuite) TestValidateStreamFailures() {
	valid := signalRow(date(2024, 3, 4), "A-B", 0, 10)

	noPair := signalRow(date(2024, 3, 4), "", 0, 10)

	badPrediction := signalRow(date(2024, 3, 5), "A-B", 0, 10)
	badPrediction.Predictions = map[string]float64{"ridge": 1.5}

	tests := []struct {
		name   string
		rows   []types.SignalRow
		models []string
		code   errors.ErrorCode
	}{
		{"empty stream", nil, nil, errors.ErrCodeEmptyStream},
		{"missing pair id", []types.SignalRow{noPair}, nil, errors.ErrCodeMissingField},
		{"unordered dates", []types.SignalRow{signalRow(date(2024, 3, 5), "A-B", 0, 10), valid}, nil, errors.ErrCodeUnorderedStream},
		{"missing model prediction", []types.SignalRow{valid}, []string{"ridge"}, errors.ErrCodeMissingField},
		{"out of range prediction", []types.SignalRow{badPrediction}, []string{"ridge"}, errors.ErrCodeInvalidSignalRow},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			err := ValidateStream(tc.rows, tc.models)
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (suite *EngineTestSuite) TestValidationFailsBeforeSimulation() {
	rows := []types.SignalRow{
		signalRow(date(2024, 3, 4), "A-B", -2.0, 10),
		signalRow(date(2024, 3, 3), "A-B", 0.1, 10),
	}

	engine := suite.newEngine(suite.spreadConfig(), Variant{Name: "zscore", ExitPolicy: exit_policy.KindSignalReversal})
	_, err := engine.Run(rows, optional.None[OnProcessDateCallback]())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnorderedStream))
}
