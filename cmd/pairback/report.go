package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/meanrev-lab/pairback/internal/backtest/results"
)

func newReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Summarize a stored run directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "run",
				Aliases:  []string{"r"},
				Usage:    "Run directory written by the run command",
				Required: true,
			},
		},
		Action: reportAction,
	}
}

func reportAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd.Bool("verbose"))
	if err != nil {
		return err
	}

	loader := results.NewLoader(log)

	run, err := loader.LoadRun(cmd.String("run"))
	if err != nil {
		return err
	}

	summary := run.Summary
	fmt.Printf("Run %s (engine %s, mode %s)\n", summary.ID, summary.EngineVersion, summary.Mode)
	fmt.Printf("Data: %s\n", summary.DataPath)
	fmt.Printf("Executed: %s\n\n", summary.Timestamp.Format(time.RFC3339))

	printSummaryHeader()

	for _, variantSummary := range summary.Variants {
		artifacts := run.Variants[variantSummary.Variant]
		fmt.Println(summaryLine(variantSummary, artifacts.Equity, artifacts.Trades))
	}

	return nil
}
