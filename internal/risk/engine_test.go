package risk

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/internal/models"
)

func seed(v uint64) *uint64 { return &v }

// constantPaths: 모든 스텝이 같은 벡터 (히스토리 1행 bootstrap)
func constantPaths(t *testing.T, steps, scenarios int, vec ...float64) *models.SampledPaths {
	t.Helper()
	assets := []contracts.Asset{contracts.AssetSPX, contracts.AssetGold}[:len(vec)]
	m, err := models.NewBootstrapReturnModel(contracts.FieldLogReturn1D, assets, vec, time.Now())
	require.NoError(t, err)
	p, err := m.SamplePaths(steps, scenarios, seed(1))
	require.NoError(t, err)
	return p
}

func TestSummarize_ConstantPaths(t *testing.T) {
	paths := constantPaths(t, 10, 30, 0.01, -0.02)

	cfg := DefaultSummaryConfig()
	cfg.Weights = map[contracts.Asset]float64{contracts.AssetSPX: 0.5, contracts.AssetGold: 0.5}

	summary, err := NewEngine().Summarize(paths, cfg)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, [3]int{30, 10, 2}, summary.Shape)
	assert.Equal(t, uint64(1), summary.Seed)
	require.Len(t, summary.Assets, 2)

	spx := summary.Assets[0]
	assert.Equal(t, contracts.AssetSPX, spx.Asset)
	assert.InDelta(t, math.Expm1(0.1), spx.MeanReturn, 1e-12)
	assert.InDelta(t, 0, spx.StdDev, 1e-12)
	assert.Equal(t, 0.0, spx.VaR[0].VaR)
	assert.Equal(t, 0.0, spx.MeanMaxDrawdown)

	gold := summary.Assets[1]
	assert.InDelta(t, -math.Expm1(-0.2), gold.VaR[0].VaR, 1e-12)
	assert.InDelta(t, -math.Expm1(-0.2), gold.MeanMaxDrawdown, 1e-12)

	require.NotNil(t, summary.Portfolio)
	want := 0.5*math.Expm1(0.1) + 0.5*math.Expm1(-0.2)
	assert.InDelta(t, want, summary.Portfolio.MeanReturn, 1e-12)
	assert.InDelta(t, want, summary.Portfolio.Percentiles[50], 1e-12)
}

func TestSummarize_GaussianPaths(t *testing.T) {
	var rows []contracts.MarketRow
	start := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	for i, r := range []float64{0.01, -0.012, 0.004, 0.007, -0.02, 0.015, -0.003, 0.009} {
		rows = append(rows, contracts.MarketRow{Date: start.AddDate(0, 0, i), Asset: contracts.AssetSPX, LogReturn1D: contracts.Float(r)})
	}
	m, err := models.FitGaussian(rows, contracts.FieldLogReturn1D, models.DefaultFitOptions())
	require.NoError(t, err)

	paths, err := m.SamplePaths(20, 500, seed(99))
	require.NoError(t, err)

	summary, err := NewEngine().Summarize(paths, DefaultSummaryConfig())
	require.NoError(t, err)

	stats := summary.Assets[0]
	require.Len(t, stats.VaR, 2)
	assert.GreaterOrEqual(t, stats.VaR[1].VaR, stats.VaR[0].VaR, "99% VaR >= 95% VaR")
	assert.GreaterOrEqual(t, stats.VaR[0].CVaR, stats.VaR[0].VaR)
	assert.Less(t, stats.Percentiles[5], stats.Percentiles[95])
	assert.Greater(t, stats.MeanMaxDrawdown, 0.0)
	assert.Nil(t, summary.Portfolio)

	pv := NewEngine().ParametricVaR(m, 0.95)
	assert.Greater(t, pv[contracts.AssetSPX].VaR, 0.0)
}

func TestSummarize_LevelReturnType(t *testing.T) {
	m, err := models.NewBootstrapReturnModel(contracts.FieldRealizedVol20D,
		[]contracts.Asset{contracts.AssetVIX}, []float64{0.2, 0.4}, time.Now())
	require.NoError(t, err)
	paths, err := m.SamplePaths(50, 40, seed(5))
	require.NoError(t, err)

	cfg := DefaultSummaryConfig()
	cfg.ReturnType = ReturnTypeFor(contracts.FieldRealizedVol20D)

	summary, err := NewEngine().Summarize(paths, cfg)
	require.NoError(t, err)

	stats := summary.Assets[0]
	assert.GreaterOrEqual(t, stats.Percentiles[1], 0.2)
	assert.LessOrEqual(t, stats.Percentiles[99], 0.4)
	assert.Equal(t, 0.0, stats.MeanMaxDrawdown)
}

func TestSummarize_Errors(t *testing.T) {
	e := NewEngine()
	paths := constantPaths(t, 5, 10, 0.01)

	_, err := e.Summarize(paths, DefaultSummaryConfig())
	assert.True(t, errors.Is(err, ErrInsufficientData), "10 scenarios < 20")

	_, err = e.Summarize(nil, DefaultSummaryConfig())
	assert.True(t, errors.Is(err, ErrInsufficientData))

	cfg := DefaultSummaryConfig()
	cfg.MinScenarios = 1
	cfg.Weights = map[contracts.Asset]float64{contracts.AssetNDX: 1}
	_, err = e.Summarize(paths, cfg)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *SummaryConfig)
		wantErr bool
	}{
		{"default", func(c *SummaryConfig) {}, false},
		{"bad return type", func(c *SummaryConfig) { c.ReturnType = "simple" }, true},
		{"zero min scenarios", func(c *SummaryConfig) { c.MinScenarios = 0 }, true},
		{"empty confidence", func(c *SummaryConfig) { c.ConfidenceLevels = nil }, true},
		{"confidence of one", func(c *SummaryConfig) { c.ConfidenceLevels = []float64{1} }, true},
		{"percentile over 100", func(c *SummaryConfig) { c.Percentiles = []int{101} }, true},
		{"nan weight", func(c *SummaryConfig) {
			c.Weights = map[contracts.Asset]float64{contracts.AssetSPX: math.NaN()}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSummaryConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
