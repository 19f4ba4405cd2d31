package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"

	"github.com/meanrev-lab/pairback/internal/analytics"
	"github.com/meanrev-lab/pairback/internal/logger"
	"github.com/meanrev-lab/pairback/internal/types"
	"github.com/meanrev-lab/pairback/internal/version"
)

// newLogger builds the CLI logger; verbose switches to debug level.
func newLogger(verbose bool) (*logger.Logger, error) {
	if verbose {
		return logger.NewLoggerWithLevel(zapcore.DebugLevel)
	}

	return logger.NewLogger()
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "pairback",
		Usage:   "Pairs mean-reversion simulation toolkit",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			newRunCommand(),
			newReportCommand(),
			newEvaluateCommand(),
			newFeaturesCommand(),
			newFetchCommand(),
			newSchemaCommand(),
		},
	}
}

// printSummaryHeader writes the column header of the variant comparison.
func printSummaryHeader() {
	fmt.Printf("%-14s %14s %9s %7s %9s %10s\n",
		"variant", "final equity", "return", "trades", "win rate", "drawdown")
}

// summaryLine formats one variant's comparison row, deriving win rate and
// drawdown from the curve and trade log when they are available.
func summaryLine(summary types.VariantSummary, curve types.EquityCurve, trades []types.TradeRecord) string {
	winRate := "n/a"
	drawdown := "n/a"

	if stats := analytics.Calculate(curve, trades); stats.IsSome() {
		s := stats.Unwrap()
		if s.TotalTrades > 0 {
			winRate = fmt.Sprintf("%.1f%%", s.WinRate)
		}

		drawdown = fmt.Sprintf("%.2f%%", s.MaxDrawdown)
	}

	return fmt.Sprintf("%-14s %14.2f %8.2f%% %7d %9s %10s",
		summary.Variant,
		summary.FinalEquity,
		summary.TotalReturn*100,
		summary.TradeCount,
		winRate,
		drawdown,
	)
}

func main() {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	if err := newRootCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
