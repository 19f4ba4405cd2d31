package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/meanrev-lab/pairback/internal/backtest"
	"github.com/meanrev-lab/pairback/internal/datasource"
	"github.com/meanrev-lab/pairback/internal/evaluator"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

func newEvaluateCommand() *cli.Command {
	return &cli.Command{
		Name:  "evaluate",
		Usage: "Score prediction models against realized labels",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Labeled signal file (csv or parquet)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Backtest config YAML supplying thresholds and models",
			},
			&cli.StringSliceFlag{
				Name:    "models",
				Aliases: []string{"m"},
				Usage:   "Prediction columns to score; overrides the config list",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the metrics to this YAML file",
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "First date to score in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "Last date to score in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
		},
		Action: evaluateAction,
	}
}

func evaluateAction(ctx context.Context, cmd *cli.Command) error {
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

	models := cmd.StringSlice("models")
	if len(models) == 0 {
		models = config.Models
	}

	if len(models) == 0 {
		return errors.New(errors.ErrCodeMissingParameter,
			"no models to score: pass --models or list them in the config")
	}

	source, err := datasource.NewDuckDBSignalSource(":memory:", log)
	if err != nil {
		return err
	}

	defer source.Close()

	if err := source.Initialize(cmd.String("data")); err != nil {
		return err
	}

	start, end := dateRange(cmd)

	rows, err := datasource.LoadSignals(source, start, end)
	if err != nil {
		return err
	}

	eval, err := evaluator.NewEvaluator(config.EntryZThreshold, config.ConfidenceThreshold, log)
	if err != nil {
		return err
	}

	metrics, err := eval.Evaluate(rows, models)
	if err != nil {
		return err
	}

	fmt.Printf("%-14s %7s %9s %9s %9s\n", "model", "trades", "win rate", "long wr", "short wr")

	for _, m := range metrics {
		fmt.Printf("%-14s %7d %8.1f%% %8.1f%% %8.1f%%\n",
			m.Model, m.TotalTrades, m.WinRate*100, m.LongWinRate*100, m.ShortWinRate*100)
	}

	if outputPath := cmd.String("output"); outputPath != "" {
		data, err := yaml.Marshal(metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}

		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}

		log.Info("Model metrics written", zap.String("path", outputPath))
	}

	return nil
}
