package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// VariantSummary is the per-variant rollup produced by a finished run.
type VariantSummary struct {
	// Variant is the strategy variant name (e.g. "ridge", "consensus").
	Variant string `yaml:"variant" json:"variant"`
	// InitialCapital is the capital the run started with.
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	// FinalEquity is the equity after the end-of-stream drain.
	FinalEquity float64 `yaml:"final_equity" json:"final_equity"`
	// TotalReturn is (final - initial) / initial.
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	// TradeCount is the number of completed round trips.
	TradeCount int `yaml:"trade_count" json:"trade_count"`
	// SkippedEntries counts qualified entry signals rejected by the
	// position-count or capital constraint.
	SkippedEntries int `yaml:"skipped_entries" json:"skipped_entries"`
}

// PerformanceStats are the performance metrics of one simulated variant,
// derived from its equity curve and trade log.
type PerformanceStats struct {
	// FinalEquity is the last value of the equity curve.
	FinalEquity float64 `yaml:"final_equity" json:"final_equity"`
	// TotalReturn is the percent change from the first to the last equity
	// point.
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	// MaxEquity is the highest point of the curve.
	MaxEquity float64 `yaml:"max_equity" json:"max_equity"`
	// MinEquity is the lowest point of the curve.
	MinEquity float64 `yaml:"min_equity" json:"min_equity"`
	// MaxDrawdown is the lowest curve point relative to starting equity,
	// in percent. Negative values are drawdowns.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// TotalTrades is the number of completed round trips.
	TotalTrades int `yaml:"total_trades" json:"total_trades"`
	// WinningTrades counts round trips with positive net PnL.
	WinningTrades int `yaml:"winning_trades" json:"winning_trades"`
	// LosingTrades counts round trips with negative net PnL.
	LosingTrades int `yaml:"losing_trades" json:"losing_trades"`
	// WinRate is WinningTrades over TotalTrades, in percent.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// AvgWin is the mean net PnL of winning round trips.
	AvgWin float64 `yaml:"avg_win" json:"avg_win"`
	// AvgLoss is the mean net PnL of losing round trips, negative.
	AvgLoss float64 `yaml:"avg_loss" json:"avg_loss"`
	// ProfitFactor is gross winnings over gross losses, 0 when there are
	// no losing trades.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	// TotalPnL is the summed net PnL of all round trips.
	TotalPnL float64 `yaml:"total_pnl" json:"total_pnl"`
}

// RunSummary is the metadata head of a persisted run, written alongside the
// trade log and equity table.
type RunSummary struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when the run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// EngineVersion is the engine release that produced the artifacts,
	// checked for compatibility when the run is loaded back.
	EngineVersion string `yaml:"engine_version" json:"engine_version"`
	// Mode is the simulation mode the run used.
	Mode string `yaml:"mode" json:"mode"`
	// DataPath is the signal file the run consumed.
	DataPath string `yaml:"data_path" json:"data_path"`
	// TradesFilePath is the path to the trades parquet file.
	TradesFilePath string `yaml:"trades_file_path" json:"trades_file_path"`
	// EquityFilePath is the path to the equity-curve csv file.
	EquityFilePath string `yaml:"equity_file_path" json:"equity_file_path"`
	// Variants are the per-variant rollups, in execution order.
	Variants []VariantSummary `yaml:"variants" json:"variants"`
}

func WriteRunSummary(path string, summary RunSummary) error {
	// Marshal the struct to YAML
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary to YAML: %w", err)
	}

	// Write the YAML data to the file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run summary to file: %w", err)
	}

	return nil
}

func ReadRunSummary(path string) (RunSummary, error) {
	var summary RunSummary

	data, err := os.ReadFile(path)
	if err != nil {
		return summary, fmt.Errorf("failed to read run summary file: %w", err)
	}

	if err := yaml.Unmarshal(data, &summary); err != nil {
		return summary, fmt.Errorf("failed to unmarshal run summary: %w", err)
	}

	return summary, nil
}
