// Package marketdata fetches the daily closes of a symbol pair from the
// exchange and derives the raw spread series the feature pipeline consumes.
package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

const (
	// klinePageSize is the exchange's maximum klines per request; a short
	// page marks the end of pagination.
	klinePageSize = 500
	// requestsPerSecond stays well under the exchange request weight
	// budget.
	requestsPerSecond = 5
)

var allowedIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true,
}

// KlinesService abstracts the exchange's paginated klines call so the
// fetcher can be tested without network access.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	StartTime(startTime int64) KlinesService
	EndTime(endTime int64) KlinesService
	Limit(limit int) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// KlinesClient is the slice of the exchange client the fetcher needs.
type KlinesClient interface {
	NewKlinesService() KlinesService
}

type binanceKlinesService struct {
	svc *binance.KlinesService
}

func (s *binanceKlinesService) Symbol(symbol string) KlinesService {
	s.svc = s.svc.Symbol(symbol)

	return s
}

func (s *binanceKlinesService) Interval(interval string) KlinesService {
	s.svc = s.svc.Interval(interval)

	return s
}

func (s *binanceKlinesService) StartTime(startTime int64) KlinesService {
	s.svc = s.svc.StartTime(startTime)

	return s
}

func (s *binanceKlinesService) EndTime(endTime int64) KlinesService {
	s.svc = s.svc.EndTime(endTime)

	return s
}

func (s *binanceKlinesService) Limit(limit int) KlinesService {
	s.svc = s.svc.Limit(limit)

	return s
}

func (s *binanceKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.svc.Do(ctx)
}

type binanceClient struct {
	client *binance.Client
}

func (c binanceClient) NewKlinesService() KlinesService {
	return &binanceKlinesService{svc: c.client.NewKlinesService()}
}

// Bar is one close observation of a single symbol.
type Bar struct {
	Date  time.Time
	Close float64
}

// Fetcher downloads close series from the exchange, rate limited and
// paginated.
type Fetcher struct {
	client  KlinesClient
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewBinanceKlinesClient wraps the exchange REST client. Kline data needs
// no credentials; pass empty keys for public access.
func NewBinanceKlinesClient(apiKey, secretKey string) KlinesClient {
	return binanceClient{client: binance.NewClient(apiKey, secretKey)}
}

// NewFetcher returns a fetcher backed by the public exchange endpoints.
func NewFetcher(logger *logger.Logger) *Fetcher {
	return NewFetcherWithClient(NewBinanceKlinesClient("", ""), logger)
}

func NewFetcherWithClient(client KlinesClient, logger *logger.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		logger:  logger,
	}
}

// FetchCloses downloads the close series for one symbol over [start, end].
func (f *Fetcher) FetchCloses(ctx context.Context, symbol, interval string, start, end time.Time) ([]Bar, error) {
	if !allowedIntervals[interval] {
		return nil, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported kline interval %q", interval)
	}

	endMillis := end.UnixMilli()
	currentStart := start.UnixMilli()

	var bars []Bar

	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "rate limiter interrupted for %s", symbol)
		}

		klines, err := f.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(klinePageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", symbol)
		}

		for _, k := range klines {
			closePrice, err := strconv.ParseFloat(k.Close, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err,
					"unparseable close %q for %s at %d", k.Close, symbol, k.OpenTime)
			}

			bars = append(bars, Bar{
				Date:  time.UnixMilli(k.OpenTime).UTC(),
				Close: closePrice,
			})
		}

		// A short page is the last page
		if len(klines) < klinePageSize {
			break
		}

		// Resume just past the last bar to avoid a duplicate
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	f.logger.Debug("fetched close series",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("bars", len(bars)),
	)

	return bars, nil
}

// FetchPair downloads both legs and returns their aligned spread rows,
// spread = closeA - ratio*closeB. The pair ID is "SYMBOLA-SYMBOLB".
func (f *Fetcher) FetchPair(ctx context.Context, symbolA, symbolB, interval string, start, end time.Time, ratio float64) ([]SpreadRow, error) {
	legA, err := f.FetchCloses(ctx, symbolA, interval, start, end)
	if err != nil {
		return nil, err
	}

	legB, err := f.FetchCloses(ctx, symbolB, interval, start, end)
	if err != nil {
		return nil, err
	}

	pairID := fmt.Sprintf("%s-%s", symbolA, symbolB)

	rows := BuildSpread(pairID, legA, legB, ratio)
	if len(rows) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "no overlapping bars between %s and %s", symbolA, symbolB)
	}

	return rows, nil
}
