package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/meanrev-lab/pairback/internal/backtest"
	"github.com/meanrev-lab/pairback/internal/backtest/results"
	"github.com/meanrev-lab/pairback/internal/datasource"
)

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Simulate every strategy variant over a signal file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Signal file to simulate (csv or parquet)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Backtest config YAML; stock defaults apply when omitted",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory run artifacts are written under",
				Value:   "results",
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "First date to simulate in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "Last date to simulate in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a progress bar",
				Value: true,
			},
		},
		Action: runAction,
	}
}

// dateRange converts the command's start and end flags into the optional
// bounds the datasource expects.
func dateRange(cmd *cli.Command) (optional.Option[time.Time], optional.Option[time.Time]) {
	start := optional.None[time.Time]()
	if t := cmd.Timestamp("start"); !t.IsZero() {
		start = optional.Some(t)
	}

	end := optional.None[time.Time]()
	if t := cmd.Timestamp("end"); !t.IsZero() {
		end = optional.Some(t)
	}

	return start, end
}

// progressCallback builds a progress bar callback. Variant engines report
// concurrently, so the bar is created exactly once and fed the aggregated
// step counter.
func progressCallback() backtest.OnProcessDateCallback {
	var (
		once sync.Once
		bar  *progressbar.ProgressBar
	)

	return func(current int, total int) {
		once.Do(func() {
			bar = progressbar.Default(int64(total), "Simulating")
		})

		_ = bar.Set(current)
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd.Bool("verbose"))
	if err != nil {
		return err
	}

	config := backtest.DefaultConfig()
	if configPath := cmd.String("config"); configPath != "" {
		config, err = backtest.LoadConfig(configPath)
		if err != nil {
			return err
		}
	}

	dataPath := cmd.String("data")

	source, err := datasource.NewDuckDBSignalSource(":memory:", log)
	if err != nil {
		return err
	}

	defer source.Close()

	if err := source.Initialize(dataPath); err != nil {
		return err
	}

	start, end := dateRange(cmd)

	rows, err := datasource.LoadSignals(source, start, end)
	if err != nil {
		return err
	}

	aggregator, err := backtest.NewAggregator(config, log)
	if err != nil {
		return err
	}

	progress := optional.None[backtest.OnProcessDateCallback]()
	if cmd.Bool("progress") {
		progress = optional.Some(progressCallback())
	}

	report, err := aggregator.Run(rows, nil, progress)
	if err != nil {
		return err
	}

	fmt.Println()
	printSummaryHeader()

	for _, result := range report.Results {
		fmt.Println(summaryLine(result.Summary, result.EquityCurve, result.Trades))
	}

	if winner, ok := report.Winner(); ok {
		fmt.Printf("\nBest variant: %s (final equity %.2f)\n", winner.Variant, winner.FinalEquity)
	}

	writer := results.NewWriter(log)

	summary, err := writer.WriteRun(cmd.String("output"), config, report, dataPath)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s written under %s\n", summary.ID, cmd.String("output"))

	return nil
}
