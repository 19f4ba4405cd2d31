package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/meanrev-lab/pairback/internal/marketdata"
)

func newFetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download a pair's spread series from the exchange",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol-a",
				Aliases:  []string{"a"},
				Usage:    "First leg symbol (e.g. BTCUSDT)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "symbol-b",
				Aliases:  []string{"b"},
				Usage:    "Second leg symbol (e.g. ETHUSDT)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Kline interval (e.g. 1d, 4h, 1h)",
				Value:   "1d",
			},
			&cli.TimestampFlag{
				Name:     "start",
				Aliases:  []string{"s"},
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.FloatFlag{
				Name:  "ratio",
				Usage: "Hedge ratio applied to the second leg",
				Value: 1.0,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Spread file to write",
				Value:   "spread.csv",
			},
		},
		Action: fetchAction,
	}
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd.Bool("verbose"))
	if err != nil {
		return err
	}

	client := marketdata.NewBinanceKlinesClient(
		os.Getenv("BINANCE_API_KEY"),
		os.Getenv("BINANCE_API_SECRET"),
	)
	fetcher := marketdata.NewFetcherWithClient(client, log)

	rows, err := fetcher.FetchPair(ctx,
		cmd.String("symbol-a"),
		cmd.String("symbol-b"),
		cmd.String("interval"),
		cmd.Timestamp("start"),
		cmd.Timestamp("end"),
		cmd.Float("ratio"),
	)
	if err != nil {
		return err
	}

	if err := marketdata.WriteSpreadCSV(cmd.String("output"), rows, log); err != nil {
		return err
	}

	fmt.Printf("Wrote %d spread rows to %s\n", len(rows), cmd.String("output"))

	return nil
}
