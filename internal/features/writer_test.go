package features

import (
	"path/filepath"
	"time"

	"github.com/moznion/go-optional"

	"github.com/meanrev-lab/pairback/internal/datasource"
)

// The written csv must be loadable by the simulation datasource: the
// feature pipeline's output is the engine's input.
func (suite *FeaturesTestSuite) TestWriteCSVFeedsDatasource() {
	engineer, err := NewFeatureEngineer(2, 1, suite.logger)
	suite.Require().NoError(err)

	points := suite.series(10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 12, 12)
	rows, err := engineer.Compute("A-B", points)
	suite.Require().NoError(err)
	suite.Require().Len(rows, 2)

	path := filepath.Join(suite.T().TempDir(), "features.csv")
	suite.Require().NoError(WriteCSV(path, rows, suite.logger))

	source, err := datasource.NewDuckDBSignalSource(":memory:", suite.logger)
	suite.Require().NoError(err)

	defer source.Close()

	suite.Require().NoError(source.Initialize(path))

	signals, err := datasource.LoadSignals(source, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(signals, 2)

	first := signals[0]
	suite.Equal("A-B", first.PairID)
	suite.True(first.Date.Equal(rows[0].Date))
	suite.InDelta(10, first.SpreadPrice, 1e-9)
	suite.InDelta(0, first.ZScore, 1e-9)
	suite.InDelta(2, first.TargetReturn, 1e-9)
	suite.Equal(1, first.TargetDirection)

	// Non-signal feature columns ride along as auxiliary prediction inputs
	suite.InDelta(0, first.Predictions["extreme_z"], 1e-9)
	suite.InDelta(1, first.Predictions["recent_extreme"], 1e-9)

	second := signals[1]
	suite.InDelta(0.7071063, second.ZScore, 1e-5)
	suite.Equal(0, second.TargetDirection)
}
