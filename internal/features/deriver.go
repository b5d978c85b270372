// Package features derives the canonical daily feature table (S1) from
// aligned business-day prices: one-day log returns and trailing realized
// volatility, computed independently per asset.
package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/pkg/config"
	"github.com/wonny/worldmodel/pkg/logger"
)

const (
	// VolWindow trailing window (positions, not observations) for realized volatility
	VolWindow = 20
	// VolMinPeriods minimum non-missing returns inside the window
	VolMinPeriods = 5
)

// DeriverConfig overrides the volatility window parameters
type DeriverConfig struct {
	VolWindow     int `yaml:"vol_window"`
	VolMinPeriods int `yaml:"vol_min_periods"`
}

// DefaultDeriverConfig returns the 20-day / 5-period defaults
func DefaultDeriverConfig() DeriverConfig {
	return DeriverConfig{VolWindow: VolWindow, VolMinPeriods: VolMinPeriods}
}

// ConfigFrom maps application config onto deriver parameters
func ConfigFrom(cfg config.FeatureConfig) DeriverConfig {
	return DeriverConfig{VolWindow: cfg.VolWindow, VolMinPeriods: cfg.VolMinPeriods}
}

// Validate checks the window parameters
func (c DeriverConfig) Validate() error {
	if c.VolWindow < 2 {
		return fmt.Errorf("vol window must be >= 2, got %d", c.VolWindow)
	}
	if c.VolMinPeriods < 2 || c.VolMinPeriods > c.VolWindow {
		return fmt.Errorf("vol min periods must be in [2, %d], got %d", c.VolWindow, c.VolMinPeriods)
	}
	return nil
}

// Deriver computes per-asset return features
// ⭐ SSOT: S1 피처 계산은 여기서만
type Deriver struct {
	cfg    DeriverConfig
	logger *logger.Logger
}

// NewDeriver creates a Deriver after validating cfg
func NewDeriver(cfg DeriverConfig, log *logger.Logger) (*Deriver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Deriver{
		cfg:    cfg,
		logger: log.WithComponent("features.deriver"),
	}, nil
}

// Derive emits one row per (asset, date) of the series, sorted by asset then date.
// Each asset partition is processed on its own; no value crosses an asset boundary.
// A price column whose length differs from the calendar is ErrSchemaInconsistency.
func (d *Deriver) Derive(series *contracts.AlignedPriceSeries) ([]contracts.MarketRow, error) {
	if series == nil || series.Len() == 0 {
		return nil, nil
	}

	assets := append([]contracts.Asset(nil), series.Assets...)
	contracts.SortAssets(assets)

	rows := make([]contracts.MarketRow, 0, len(assets)*series.Len())
	for _, asset := range assets {
		prices := series.Column(asset)
		if len(prices) != series.Len() {
			return nil, fmt.Errorf("%w: %s has %d prices for %d calendar days",
				contracts.ErrSchemaInconsistency, asset, len(prices), series.Len())
		}

		returns, vols := d.deriveColumn(prices)
		for i, date := range series.Dates {
			rows = append(rows, contracts.MarketRow{
				Date:           date,
				Asset:          asset,
				ClosePrice:     contracts.Float(prices[i]),
				LogReturn1D:    contracts.Float(returns[i]),
				RealizedVol20D: contracts.Float(vols[i]),
			})
		}
	}

	d.logger.WithFields(map[string]interface{}{
		"assets": len(assets),
		"days":   series.Len(),
		"rows":   len(rows),
	}).Info("Derived feature table")

	return rows, nil
}

// RederiveFromRows recomputes both features from the price column of an existing table.
// Rows are grouped by asset and ordered by date first; the derived columns of the input are ignored.
func (d *Deriver) RederiveFromRows(rows []contracts.MarketRow) []contracts.MarketRow {
	out := append([]contracts.MarketRow(nil), rows...)
	contracts.SortRows(out)

	for start := 0; start < len(out); {
		end := start
		for end < len(out) && out[end].Asset == out[start].Asset {
			end++
		}

		part := out[start:end]
		prices := make([]float64, len(part))
		for i := range part {
			prices[i] = contracts.ValueOr(part[i].ClosePrice)
		}

		returns, vols := d.deriveColumn(prices)
		for i := range part {
			part[i].LogReturn1D = contracts.Float(returns[i])
			part[i].RealizedVol20D = contracts.Float(vols[i])
		}
		start = end
	}

	return out
}

// deriveColumn computes returns and trailing volatility for one asset's price column
func (d *Deriver) deriveColumn(prices []float64) (returns, vols []float64) {
	returns = LogReturns(prices)
	vols = RollingStd(returns, d.cfg.VolWindow, d.cfg.VolMinPeriods)
	return returns, vols
}

// LogReturns returns ln(p[t]) - ln(p[t-1]); NaN at t=0, when either price is
// missing, or when the result is not finite (non-positive prices).
func LogReturns(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for t := range prices {
		out[t] = math.NaN()
		if t == 0 {
			continue
		}
		prev, cur := prices[t-1], prices[t]
		if math.IsNaN(prev) || math.IsNaN(cur) {
			continue
		}
		r := math.Log(cur) - math.Log(prev)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		out[t] = r
	}
	return out
}

// RollingStd is the unbiased sample standard deviation of the non-NaN values in
// positions t-window+1..t. Fewer than minPeriods values give NaN.
func RollingStd(values []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(values))
	buf := make([]float64, 0, window)

	for t := range values {
		out[t] = math.NaN()

		buf = buf[:0]
		for i := max(0, t-window+1); i <= t; i++ {
			if !math.IsNaN(values[i]) {
				buf = append(buf, values[i])
			}
		}
		if len(buf) < minPeriods || len(buf) < 2 {
			continue
		}
		out[t] = stat.StdDev(buf, nil)
	}
	return out
}

// Assets lists the distinct assets of a feature table in canonical order
func Assets(rows []contracts.MarketRow) []contracts.Asset {
	seen := make(map[contracts.Asset]struct{})
	var assets []contracts.Asset
	for _, r := range rows {
		if _, ok := seen[r.Asset]; !ok {
			seen[r.Asset] = struct{}{}
			assets = append(assets, r.Asset)
		}
	}
	contracts.SortAssets(assets)
	return assets
}
