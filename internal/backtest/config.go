package backtest

import (
	"encoding/json"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/meanrev-lab/pairback/internal/backtest/cost_model"
	"github.com/meanrev-lab/pairback/internal/backtest/exit_policy"
	"github.com/meanrev-lab/pairback/pkg/errors"
)

// Config is the single validated configuration for a backtest run. All
// variants of a run share it; per-variant overrides live in Variant.
type Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital in USD,minimum=0" validate:"required,gt=0"`
	MaxPositions   int     `yaml:"max_positions" json:"max_positions" jsonschema:"title=Max Positions,description=Maximum number of concurrently open positions,minimum=1" validate:"required,gte=1"`
	BufferFactor   float64 `yaml:"buffer_factor" json:"buffer_factor" jsonschema:"title=Buffer Factor,description=Available capital must cover capital_per_trade times this factor before an entry,minimum=1" validate:"gte=1"`

	// Exactly one sizing mode is used: a fixed CapitalPerTrade when
	// positive, otherwise PositionRiskPct of current realized equity.
	CapitalPerTrade float64 `yaml:"capital_per_trade" json:"capital_per_trade" jsonschema:"title=Capital Per Trade,description=Fixed capital committed per trade in USD,minimum=0" validate:"gte=0"`
	PositionRiskPct float64 `yaml:"position_risk_pct" json:"position_risk_pct" jsonschema:"title=Position Risk Pct,description=Fraction of realized equity committed per trade,minimum=0,maximum=1" validate:"gte=0,lte=1"`

	EntryZThreshold     float64 `yaml:"entry_z_threshold" json:"entry_z_threshold" jsonschema:"title=Entry Z Threshold,description=Absolute z-score beyond which an entry signal fires" validate:"required,gt=0"`
	ExitZThreshold      float64 `yaml:"exit_z_threshold" json:"exit_z_threshold" jsonschema:"title=Exit Z Threshold,description=Absolute z-score below which a reversal exit fires,minimum=0" validate:"gte=0"`
	ConfidenceThreshold float64 `yaml:"model_confidence_threshold" json:"model_confidence_threshold" jsonschema:"title=Model Confidence Threshold,description=Prediction above this reads Up and below one minus this reads Down,minimum=0,maximum=1" validate:"gte=0,lte=1"`

	// HoldPeriod is in trading days and must match the horizon the
	// forward labels were computed with, since a fixed-horizon close
	// realizes the entry row's target_return.
	HoldPeriod int `yaml:"hold_period" json:"hold_period" jsonschema:"title=Hold Period,description=Trading days a fixed-horizon position stays open,minimum=1" validate:"gte=1"`

	ExitPolicy exit_policy.Kind `yaml:"exit_policy" json:"exit_policy" jsonschema:"title=Exit Policy,description=Default exit policy for generated variants" validate:"required,oneof=signal_reversal fixed_horizon"`

	// TransactionCostPct is the price-adjustment cost form used by
	// spread-priced accounting: entries fill at spread*(1±pct).
	TransactionCostPct float64 `yaml:"transaction_cost_pct" json:"transaction_cost_pct" jsonschema:"title=Transaction Cost Pct,description=Per-side price adjustment applied to fills,minimum=0" validate:"gte=0"`

	// CostModel and Cost are the itemized cost form used by
	// forward-labeled accounting.
	CostModel cost_model.Model  `yaml:"cost_model" json:"cost_model" jsonschema:"title=Cost Model,description=Round-trip cost model for forward-labeled accounting" validate:"required,oneof=friction zero_cost"`
	Cost      cost_model.Params `yaml:"cost" json:"cost" jsonschema:"title=Cost Parameters,description=Parameters for the itemized cost model"`

	// Models lists the prediction columns every signal row must carry.
	// Empty means entries are gated on z-score alone.
	Models []string `yaml:"models" json:"models" jsonschema:"title=Models,description=Prediction column names required on every signal row"`

	// Variants overrides the generated default variant set when present.
	Variants []Variant `yaml:"variants" json:"variants" jsonschema:"title=Variants,description=Explicit strategy variants to simulate" validate:"omitempty,dive"`
}

// DefaultConfig returns a Config with the engine's stock parameters.
func DefaultConfig() Config {
	return Config{
		InitialCapital:      10000,
		MaxPositions:        3,
		BufferFactor:        1.1,
		PositionRiskPct:     0.02,
		EntryZThreshold:     1.5,
		ExitZThreshold:      0.5,
		ConfidenceThreshold: 0.55,
		HoldPeriod:          10,
		ExitPolicy:          exit_policy.KindSignalReversal,
		TransactionCostPct:  0.004,
		CostModel:           cost_model.ModelFriction,
		Cost:                cost_model.DefaultParams(),
	}
}

// Validate checks the configuration, including cross-field constraints
// the struct tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if c.ExitZThreshold >= c.EntryZThreshold {
		return errors.Newf(errors.ErrCodeInvalidThreshold,
			"exit_z_threshold (%.4f) must be below entry_z_threshold (%.4f)",
			c.ExitZThreshold, c.EntryZThreshold)
	}

	if c.CapitalPerTrade <= 0 && c.PositionRiskPct <= 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration,
			"either capital_per_trade or position_risk_pct must be positive")
	}

	for _, v := range c.Variants {
		for _, model := range v.Models {
			if !containsModel(c.Models, model) {
				return errors.Newf(errors.ErrCodeInvalidConfiguration,
					"variant %q references unknown model %q", v.Name, model)
			}
		}
	}

	return nil
}

func containsModel(models []string, name string) bool {
	for _, m := range models {
		if m == name {
			return true
		}
	}

	return false
}

// ParseConfig parses and validates a YAML configuration string.
func ParseConfig(yamlConfig string) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(yamlConfig), &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// LoadConfig reads and validates a YAML configuration file. Missing
// fields keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return ParseConfig(string(data))
}

// GenerateSchema generates a JSON schema for the Config
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if strings.Contains(t.String(), "exit_policy.Kind") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: exit_policy.AllKinds,
				}
			}
			if strings.Contains(t.String(), "cost_model.Model") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: cost_model.AllModels,
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(c)

	// Set schema metadata
	schema.Title = "pairback-config"
	schema.Description = "Configuration schema for the pairback simulation engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the Config
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
