package marketdata

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/datasource"
	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

var barBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeKlinesClient serves scripted kline pages per symbol and records the
// start time of every request.
type fakeKlinesClient struct {
	pages      map[string][][]*binance.Kline
	calls      map[string]int
	startTimes map[string][]int64
	err        error
}

func newFakeKlinesClient() *fakeKlinesClient {
	return &fakeKlinesClient{
		pages:      make(map[string][][]*binance.Kline),
		calls:      make(map[string]int),
		startTimes: make(map[string][]int64),
	}
}

func (c *fakeKlinesClient) NewKlinesService() KlinesService {
	return &fakeKlinesService{client: c}
}

type fakeKlinesService struct {
	client    *fakeKlinesClient
	symbol    string
	startTime int64
}

func (s *fakeKlinesService) Symbol(symbol string) KlinesService {
	s.symbol = symbol

	return s
}

func (s *fakeKlinesService) Interval(string) KlinesService { return s }

func (s *fakeKlinesService) StartTime(startTime int64) KlinesService {
	s.startTime = startTime

	return s
}

func (s *fakeKlinesService) EndTime(int64) KlinesService { return s }

func (s *fakeKlinesService) Limit(int) KlinesService { return s }

func (s *fakeKlinesService) Do(context.Context) ([]*binance.Kline, error) {
	if s.client.err != nil {
		return nil, s.client.err
	}

	s.client.startTimes[s.symbol] = append(s.client.startTimes[s.symbol], s.startTime)

	page := s.client.calls[s.symbol]
	s.client.calls[s.symbol]++

	pages := s.client.pages[s.symbol]
	if page >= len(pages) {
		return nil, nil
	}

	return pages[page], nil
}

// makeKlines builds count daily klines starting startDay days after the
// base date, with closes of 100+day.
func makeKlines(startDay, count int) []*binance.Kline {
	klines := make([]*binance.Kline, count)

	for i := 0; i < count; i++ {
		day := startDay + i
		open := barBase.AddDate(0, 0, day)

		klines[i] = &binance.Kline{
			OpenTime:  open.UnixMilli(),
			CloseTime: open.AddDate(0, 0, 1).UnixMilli() - 1,
			Open:      "100",
			High:      "101",
			Low:       "99",
			Close:     strconv.FormatFloat(100+float64(day), 'f', -1, 64),
			Volume:    "1000",
		}
	}

	return klines
}

type MarketDataTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestMarketDataSuite(t *testing.T) {
	suite.Run(t, new(MarketDataTestSuite))
}

func (suite *MarketDataTestSuite) SetupSuite() {
	// Create a no-op logger
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.OutputPaths = []string{}
	loggerConfig.ErrorOutputPaths = []string{}
	zapLogger, err := loggerConfig.Build()
	suite.Require().NoError(err)
	suite.logger = &logger.Logger{Logger: zapLogger}
}

func (suite *MarketDataTestSuite) TestFetchClosesPagination() {
	client := newFakeKlinesClient()
	client.pages["GLDUSDT"] = [][]*binance.Kline{
		makeKlines(0, 500),
		makeKlines(500, 3),
	}

	fetcher := NewFetcherWithClient(client, suite.logger)

	bars, err := fetcher.FetchCloses(context.Background(), "GLDUSDT", "1d", barBase, barBase.AddDate(0, 0, 600))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 503)
	suite.Equal(2, client.calls["GLDUSDT"])

	suite.True(bars[0].Date.Equal(barBase))
	suite.InDelta(100, bars[0].Close, 1e-9)
	suite.True(bars[502].Date.Equal(barBase.AddDate(0, 0, 502)))
	suite.InDelta(602, bars[502].Close, 1e-9)

	// The second request resumes one millisecond past the last close time
	wantResume := barBase.AddDate(0, 0, 500).UnixMilli()
	suite.Require().Len(client.startTimes["GLDUSDT"], 2)
	suite.Equal(wantResume, client.startTimes["GLDUSDT"][1])
}

func (suite *MarketDataTestSuite) TestFetchClosesInvalidInterval() {
	fetcher := NewFetcherWithClient(newFakeKlinesClient(), suite.logger)

	_, err := fetcher.FetchCloses(context.Background(), "GLDUSDT", "7m", barBase, barBase.AddDate(0, 0, 1))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInterval))
}

func (suite *MarketDataTestSuite) TestFetchClosesParseFailure() {
	client := newFakeKlinesClient()
	bad := makeKlines(0, 1)
	bad[0].Close = "not-a-number"
	client.pages["GLDUSDT"] = [][]*binance.Kline{bad}

	fetcher := NewFetcherWithClient(client, suite.logger)

	_, err := fetcher.FetchCloses(context.Background(), "GLDUSDT", "1d", barBase, barBase.AddDate(0, 0, 5))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
}

func (suite *MarketDataTestSuite) TestFetchClosesAPIError() {
	client := newFakeKlinesClient()
	client.err = errors.New(errors.ErrCodeUnknown, "exchange unavailable")

	fetcher := NewFetcherWithClient(client, suite.logger)

	_, err := fetcher.FetchCloses(context.Background(), "GLDUSDT", "1d", barBase, barBase.AddDate(0, 0, 5))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
}

func (suite *MarketDataTestSuite) TestFetchClosesCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcherWithClient(newFakeKlinesClient(), suite.logger)

	_, err := fetcher.FetchCloses(ctx, "GLDUSDT", "1d", barBase, barBase.AddDate(0, 0, 5))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
}

func (suite *MarketDataTestSuite) TestBuildSpreadAlignment() {
	legA := []Bar{
		{Date: barBase.AddDate(0, 0, 1), Close: 100},
		{Date: barBase.AddDate(0, 0, 2), Close: 102},
		{Date: barBase.AddDate(0, 0, 3), Close: 104},
	}
	legB := []Bar{
		{Date: barBase.AddDate(0, 0, 2), Close: 50},
		{Date: barBase.AddDate(0, 0, 3), Close: 51},
		{Date: barBase.AddDate(0, 0, 4), Close: 52},
	}

	rows := BuildSpread("GLD-SLV", legA, legB, 1.5)
	suite.Require().Len(rows, 2)

	suite.Equal("GLD-SLV", rows[0].PairID)
	suite.True(rows[0].Date.Equal(barBase.AddDate(0, 0, 2)))
	suite.InDelta(102, rows[0].CloseA, 1e-9)
	suite.InDelta(50, rows[0].CloseB, 1e-9)
	suite.InDelta(27, rows[0].SpreadPrice, 1e-9)

	suite.True(rows[1].Date.Equal(barBase.AddDate(0, 0, 3)))
	suite.InDelta(27.5, rows[1].SpreadPrice, 1e-9)
}

func (suite *MarketDataTestSuite) TestFetchPair() {
	client := newFakeKlinesClient()
	client.pages["GLDUSDT"] = [][]*binance.Kline{makeKlines(0, 5)}
	client.pages["SLVUSDT"] = [][]*binance.Kline{makeKlines(2, 5)}

	fetcher := NewFetcherWithClient(client, suite.logger)

	rows, err := fetcher.FetchPair(context.Background(), "GLDUSDT", "SLVUSDT", "1d", barBase, barBase.AddDate(0, 0, 10), 1.0)
	suite.Require().NoError(err)

	// Legs overlap on days 2 to 4
	suite.Require().Len(rows, 3)
	suite.Equal("GLDUSDT-SLVUSDT", rows[0].PairID)

	// Same synthetic closes on both legs cancel out at ratio 1
	suite.InDelta(0, rows[0].SpreadPrice, 1e-9)
}

func (suite *MarketDataTestSuite) TestFetchPairNoOverlap() {
	client := newFakeKlinesClient()
	client.pages["GLDUSDT"] = [][]*binance.Kline{makeKlines(0, 2)}
	client.pages["SLVUSDT"] = [][]*binance.Kline{makeKlines(10, 2)}

	fetcher := NewFetcherWithClient(client, suite.logger)

	_, err := fetcher.FetchPair(context.Background(), "GLDUSDT", "SLVUSDT", "1d", barBase, barBase.AddDate(0, 0, 20), 1.0)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoDataFound))
}

func (suite *MarketDataTestSuite) TestWriteSpreadCSVFeedsDatasource() {
	rows := []SpreadRow{
		{Date: barBase, PairID: "GLD-SLV", CloseA: 100, CloseB: 50, SpreadPrice: 25},
		{Date: barBase.AddDate(0, 0, 1), PairID: "GLD-SLV", CloseA: 101, CloseB: 50, SpreadPrice: 26},
	}

	path := filepath.Join(suite.T().TempDir(), "spread.csv")
	suite.Require().NoError(WriteSpreadCSV(path, rows, suite.logger))

	source, err := datasource.NewDuckDBSignalSource(":memory:", suite.logger)
	suite.Require().NoError(err)

	defer source.Close()

	suite.Require().NoError(source.Initialize(path))

	signals, err := datasource.LoadSignals(source, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(signals, 2)

	suite.Equal("GLD-SLV", signals[0].PairID)
	suite.InDelta(25, signals[0].SpreadPrice, 1e-9)
	suite.InDelta(100, signals[0].Predictions["close_a"], 1e-9)
	suite.False(signals[0].Actionable())
}
