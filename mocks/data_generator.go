package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/meanrev-lab/pairback/internal/calendar"
	"github.com/meanrev-lab/pairback/internal/types"
)

// SignalGenerator generates realistic pair signal streams for testing and benchmarking.
type SignalGenerator struct {
	rng *rand.Rand
}

// NewSignalGenerator creates a new SignalGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewSignalGenerator(seed int64) *SignalGenerator {
	return &SignalGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how signal streams are generated.
type GeneratorConfig struct {
	// PairID is the spread identifier (e.g., "GLD-SLV")
	PairID string
	// StartDate is the first observation date; weekends roll forward
	StartDate time.Time
	// Count is the number of rows to generate, one per trading day
	Count int
	// InitialZ is the z-score of the first row
	InitialZ float64
	// MeanReversion is the daily pull toward zero (0.0 to 1.0)
	MeanReversion float64
	// Volatility is the size of the daily z-score shock
	Volatility float64
	// SpreadScale converts z-score units into spread price units
	SpreadScale float64
	// Horizon is the forward-label lookahead in rows; the trailing
	// Horizon rows carry NaN targets
	Horizon int
	// Models lists the prediction columns to emit
	Models []string
	// ModelSkill is the chance a model calls the realized direction
	// (0.5 = coin flip, 1.0 = oracle)
	ModelSkill float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		PairID:        "GLD-SLV",
		StartDate:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Count:         10000,
		InitialZ:      0.0,
		MeanReversion: 0.1, // 10% pull per day
		Volatility:    0.5,
		SpreadScale:   2.0,
		Horizon:       10,
		Models:        []string{"ridge", "lstm"},
		ModelSkill:    0.6,
	}
}

// Generate creates a signal stream based on the configuration.
// Z-scores follow an Ornstein-Uhlenbeck walk around zero, so the stream
// crosses entry and exit thresholds the way a cointegrated spread does.
func (g *SignalGenerator) Generate(config GeneratorConfig) []types.SignalRow {
	zs := make([]float64, config.Count)
	z := config.InitialZ

	for i := 0; i < config.Count; i++ {
		zs[i] = z

		// Normal shock via the Box-Muller transform
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		shock := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		z = z*(1-config.MeanReversion) + config.Volatility*shock
	}

	date := config.StartDate
	if !calendar.IsTradingDay(date) {
		date = calendar.NextTradingDay(date)
	}

	rows := make([]types.SignalRow, config.Count)

	for i := 0; i < config.Count; i++ {
		row := types.SignalRow{
			Date:         date,
			PairID:       config.PairID,
			ZScore:       roundToDecimals(zs[i], 4),
			SpreadPrice:  roundToDecimals(zs[i]*config.SpreadScale, 4),
			TargetReturn: math.NaN(),
		}

		if i+config.Horizon < config.Count {
			move := (zs[i+config.Horizon] - zs[i]) * config.SpreadScale
			row.TargetReturn = roundToDecimals(move, 4)

			if move > 0 {
				row.TargetDirection = 1
			}
		}

		if len(config.Models) > 0 {
			row.Predictions = make(map[string]float64, len(config.Models))

			for _, model := range config.Models {
				row.Predictions[model] = g.predict(row, config.ModelSkill)
			}
		}

		rows[i] = row

		// Update for next iteration
		date = calendar.NextTradingDay(date)
	}

	return rows
}

// predict emits an up-move probability that agrees with the realized
// direction with probability skill. Unlabeled rows get a coin flip.
func (g *SignalGenerator) predict(row types.SignalRow, skill float64) float64 {
	up := row.TargetDirection == 1
	if !row.HasTarget() {
		up = g.rng.Float64() < 0.5
	}

	if g.rng.Float64() >= skill {
		up = !up
	}

	if up {
		return roundToDecimals(0.55+g.rng.Float64()*0.4, 4)
	}

	return roundToDecimals(0.05+g.rng.Float64()*0.4, 4)
}

// GenerateMultiPair generates streams for multiple pairs. Rows are grouped
// by pair; feed them through a source that orders by date before simulating.
func (g *SignalGenerator) GenerateMultiPair(pairIDs []string, baseConfig GeneratorConfig) []types.SignalRow {
	var allRows []types.SignalRow

	for _, pairID := range pairIDs {
		config := baseConfig
		config.PairID = pairID
		// Vary the starting point and volatility slightly per pair
		config.InitialZ = baseConfig.InitialZ + (g.rng.Float64()*2 - 1)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		pairRows := g.Generate(config)
		allRows = append(allRows, pairRows...)
	}

	return allRows
}

// Generate10K is a convenience function to generate 10,000 rows
// with default settings for benchmarking.
func Generate10K(pairID string) []types.SignalRow {
	gen := NewSignalGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.PairID = pairID
	config.Count = 10000
	return gen.Generate(config)
}

// Generate10KMultiPair generates 10,000 rows for each pair.
func Generate10KMultiPair(pairIDs []string) []types.SignalRow {
	gen := NewSignalGenerator(42)
	config := DefaultConfig()
	return gen.GenerateMultiPair(pairIDs, config)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
