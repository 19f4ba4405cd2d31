package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/meanrev-lab/pairback/internal/datasource"
	"github.com/meanrev-lab/pairback/internal/features"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

func newFeaturesCommand() *cli.Command {
	return &cli.Command{
		Name:  "features",
		Usage: "Compute simulation features from a raw spread file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Spread file with date, pair_id and spread_price columns",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Feature file to write",
				Value:   "features.csv",
			},
			&cli.IntFlag{
				Name:  "window",
				Usage: "Rolling window for the spread statistics, in trading days",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "horizon",
				Usage: "Forward-label lookahead, in rows",
				Value: 10,
			},
		},
		Action: featuresAction,
	}
}

func featuresAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd.Bool("verbose"))
	if err != nil {
		return err
	}

	source, err := datasource.NewDuckDBSignalSource(":memory:", log)
	if err != nil {
		return err
	}

	defer source.Close()

	if err := source.Initialize(cmd.String("data")); err != nil {
		return err
	}

	rows, err := datasource.LoadSignals(source, optional.None[time.Time](), optional.None[time.Time]())
	if err != nil {
		return err
	}

	// Split the stream into per-pair spread series, keeping stream order
	points := make(map[string][]features.SpreadPoint)

	var pairOrder []string

	for _, row := range rows {
		if _, seen := points[row.PairID]; !seen {
			pairOrder = append(pairOrder, row.PairID)
		}

		points[row.PairID] = append(points[row.PairID], features.SpreadPoint{
			Date:   row.Date,
			Spread: row.SpreadPrice,
		})
	}

	engineer, err := features.NewFeatureEngineer(int(cmd.Int("window")), int(cmd.Int("horizon")), log)
	if err != nil {
		return err
	}

	var (
		featureRows   []features.FeatureRow
		computedPairs int
	)

	for _, pairID := range pairOrder {
		computed, err := engineer.Compute(pairID, points[pairID])
		if err != nil {
			if errors.IsInsufficientDataError(err) {
				log.Warn("Skipping pair with too little history",
					zap.String("pair_id", pairID),
					zap.Error(err),
				)

				continue
			}

			return err
		}

		featureRows = append(featureRows, computed...)
		computedPairs++
	}

	if len(featureRows) == 0 {
		return errors.Newf(errors.ErrCodeInsufficientData,
			"no pair had the %d points needed to compute features", engineer.MinPoints())
	}

	// Interleave pairs by date so the output is a valid simulation input
	sort.SliceStable(featureRows, func(i, j int) bool {
		return featureRows[i].Date.Before(featureRows[j].Date)
	})

	if err := features.WriteCSV(cmd.String("output"), featureRows, log); err != nil {
		return err
	}

	fmt.Printf("Wrote %d feature rows for %d pairs to %s\n",
		len(featureRows), computedPairs, cmd.String("output"))

	return nil
}
