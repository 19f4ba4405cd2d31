package backtest

import (
	"github.com/meanrev-lab/pairback/internal/backtest/exit_policy"
	"github.com/meanrev-lab/pairback/internal/backtest/ledger"
)

// Variant is one strategy configuration simulated over the shared signal
// stream. Variants differ in which model predictions gate entries and in
// how positions exit; everything else comes from the run Config.
type Variant struct {
	Name       string           `yaml:"name" json:"name" jsonschema:"title=Name,description=Variant name used in summaries and equity columns" validate:"required"`
	ExitPolicy exit_policy.Kind `yaml:"exit_policy" json:"exit_policy" jsonschema:"title=Exit Policy,description=How positions opened by this variant close" validate:"required,oneof=signal_reversal fixed_horizon"`

	// Models is the subset of prediction columns that must all agree with
	// the z-score direction before an entry. Empty gates on z-score alone.
	Models []string `yaml:"models" json:"models" jsonschema:"title=Models,description=Prediction columns that must agree before an entry"`
}

// Accounting maps the variant's exit policy to the ledger accounting mode.
// Signal-reversal positions are priced off the observed spread; fixed-horizon
// positions realize the forward label captured at entry.
func (v Variant) Accounting() ledger.Accounting {
	if v.ExitPolicy == exit_policy.KindFixedHorizon {
		return ledger.AccountingForwardLabeled
	}

	return ledger.AccountingSpreadPriced
}

// DefaultVariants builds the variant set for a config that does not name
// one explicitly: one variant per prediction model, plus a consensus
// variant when at least two models are configured. Without models the run
// is a single z-score-only variant.
func DefaultVariants(config Config) []Variant {
	if len(config.Variants) > 0 {
		return config.Variants
	}

	if len(config.Models) == 0 {
		return []Variant{{Name: "zscore", ExitPolicy: config.ExitPolicy}}
	}

	variants := make([]Variant, 0, len(config.Models)+1)
	for _, model := range config.Models {
		variants = append(variants, Variant{
			Name:       model,
			ExitPolicy: config.ExitPolicy,
			Models:     []string{model},
		})
	}

	if len(config.Models) >= 2 {
		variants = append(variants, Variant{
			Name:       "consensus",
			ExitPolicy: config.ExitPolicy,
			Models:     append([]string(nil), config.Models...),
		})
	}

	return variants
}
