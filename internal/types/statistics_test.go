package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type StatisticsTestSuite struct {
	suite.Suite
	tempDir string
}

func TestStatisticsSuite(t *testing.T) {
	suite.Run(t, new(StatisticsTestSuite))
}

func (suite *StatisticsTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "statistics_test")
	suite.NoError(err)
	suite.tempDir = tempDir
}

func (suite *StatisticsTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

func (suite *StatisticsTestSuite) sampleSummary() RunSummary {
	return RunSummary{
		ID:            "f0a7df62-1f30-4bfb-a0c9-111111111111",
		Timestamp:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		EngineVersion: "1.0.0",
		Mode:          "signal_reversal",
		DataPath:      "signals.csv",
		Variants: []VariantSummary{
			{
				Variant:        "ridge",
				InitialCapital: 10000,
				FinalEquity:    10400,
				TotalReturn:    0.04,
				TradeCount:     12,
				SkippedEntries: 3,
			},
			{
				Variant:        "consensus",
				InitialCapital: 10000,
				FinalEquity:    10150,
				TotalReturn:    0.015,
				TradeCount:     7,
				SkippedEntries: 1,
			},
		},
	}
}

func (suite *StatisticsTestSuite) TestWriteRunSummary() {
	summary := suite.sampleSummary()

	filePath := filepath.Join(suite.tempDir, "summary.yaml")
	err := WriteRunSummary(filePath, summary)
	suite.NoError(err)

	data, err := os.ReadFile(filePath)
	suite.NoError(err)

	var loaded RunSummary
	err = yaml.Unmarshal(data, &loaded)
	suite.NoError(err)
	suite.Equal(summary.ID, loaded.ID)
	suite.Equal(summary.EngineVersion, loaded.EngineVersion)
	suite.Len(loaded.Variants, 2)
	suite.Equal("ridge", loaded.Variants[0].Variant)
	suite.Equal(12, loaded.Variants[0].TradeCount)
}

func (suite *StatisticsTestSuite) TestReadRunSummary() {
	summary := suite.sampleSummary()

	filePath := filepath.Join(suite.tempDir, "summary.yaml")
	suite.NoError(WriteRunSummary(filePath, summary))

	loaded, err := ReadRunSummary(filePath)
	suite.NoError(err)
	suite.Equal(summary.Mode, loaded.Mode)
	suite.Equal(summary.Variants, loaded.Variants)
}

func (suite *StatisticsTestSuite) TestReadRunSummaryMissingFile() {
	_, err := ReadRunSummary(filepath.Join(suite.tempDir, "nope.yaml"))
	suite.Error(err)
}

func (suite *StatisticsTestSuite) TestWriteRunSummaryBadPath() {
	err := WriteRunSummary(filepath.Join(suite.tempDir, "missing", "summary.yaml"), RunSummary{})
	suite.Error(err)
}

func (suite *StatisticsTestSuite) TestEquityCurveFinal() {
	curve := EquityCurve{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Equity: 10000, OpenPositions: 1},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Equity: 10250, OpenPositions: 0},
	}
	suite.Equal(10250.0, curve.Final(0))

	var empty EquityCurve
	suite.Equal(10000.0, empty.Final(10000))
}
