package features

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/pkg/logger"
)

func businessDates(n int) []time.Time {
	d := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC) // Monday
	dates := make([]time.Time, 0, n)
	for len(dates) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

func newSeries(cols map[contracts.Asset][]float64, order ...contracts.Asset) *contracts.AlignedPriceSeries {
	n := len(cols[order[0]])
	return &contracts.AlignedPriceSeries{
		Dates:  businessDates(n),
		Assets: order,
		Prices: cols,
	}
}

func newDeriver(t *testing.T) *Deriver {
	t.Helper()
	d, err := NewDeriver(DefaultDeriverConfig(), logger.Nop())
	require.NoError(t, err)
	return d
}

// sampleStd is an independent ddof=1 reference
func sampleStd(xs []float64) float64 {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	ss := 0.0
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func rowsFor(rows []contracts.MarketRow, asset contracts.Asset) []contracts.MarketRow {
	var out []contracts.MarketRow
	for _, r := range rows {
		if r.Asset == asset {
			out = append(out, r)
		}
	}
	return out
}

func TestDerive_TwoAssetExample(t *testing.T) {
	a := []float64{100, 101, 102, 101, 103, 104}
	b := []float64{50, 49, 50, 51, 50, 52}
	series := newSeries(map[contracts.Asset][]float64{
		contracts.AssetSPX: a,
		contracts.AssetNDX: b,
	}, contracts.AssetSPX, contracts.AssetNDX)

	rows, err := newDeriver(t).Derive(series)
	require.NoError(t, err)
	require.Len(t, rows, 12)

	spx := rowsFor(rows, contracts.AssetSPX)
	require.Len(t, spx, 6)

	// 첫 날 수익률 없음, 둘째 날 ln(1.01)
	assert.Nil(t, spx[0].LogReturn1D)
	require.NotNil(t, spx[1].LogReturn1D)
	assert.InDelta(t, math.Log(1.01), *spx[1].LogReturn1D, 1e-12)

	// 5번째 날까지 수익률 4개 → 변동성 없음, 6번째 날 5개 → 정의됨
	for i := 0; i < 5; i++ {
		assert.Nil(t, spx[i].RealizedVol20D, "day %d", i+1)
	}
	require.NotNil(t, spx[5].RealizedVol20D)

	returns := make([]float64, 0, 5)
	for i := 1; i < len(a); i++ {
		returns = append(returns, math.Log(a[i])-math.Log(a[i-1]))
	}
	assert.InDelta(t, sampleStd(returns), *spx[5].RealizedVol20D, 1e-12)

	ndx := rowsFor(rows, contracts.AssetNDX)
	require.Len(t, ndx, 6)
	assert.Nil(t, ndx[0].LogReturn1D, "no bleed from the previous asset partition")
	assert.InDelta(t, math.Log(49.0/50.0), *ndx[1].LogReturn1D, 1e-12)
}

func TestDerive_NoBleedAcrossAssets(t *testing.T) {
	// 자산별 시작 오프셋이 다르면 B의 첫 유효 가격에서 수익률이 없어야 함
	nan := math.NaN()
	series := newSeries(map[contracts.Asset][]float64{
		contracts.AssetSPX:  {100, 101, 102, 103, 104, 105, 106},
		contracts.AssetGold: {nan, nan, nan, 2000, 2010, 2020, 2030},
	}, contracts.AssetSPX, contracts.AssetGold)

	rows, err := newDeriver(t).Derive(series)
	require.NoError(t, err)
	gold := rowsFor(rows, contracts.AssetGold)

	for i := 0; i < 4; i++ {
		assert.Nil(t, gold[i].LogReturn1D, "day %d", i)
	}
	for i := 0; i < 3; i++ {
		assert.Nil(t, gold[i].ClosePrice)
	}
	require.NotNil(t, gold[4].LogReturn1D)
	assert.InDelta(t, math.Log(2010.0/2000.0), *gold[4].LogReturn1D, 1e-12)
	for _, r := range gold {
		assert.Nil(t, r.RealizedVol20D, "only three returns available")
	}
}

func TestDerive_ForwardFilledFlatReturnIsZero(t *testing.T) {
	series := newSeries(map[contracts.Asset][]float64{
		contracts.AssetVIX: {13.2, 13.2, 13.2, 14.0},
	}, contracts.AssetVIX)

	rows, err := newDeriver(t).Derive(series)
	require.NoError(t, err)

	require.NotNil(t, rows[1].LogReturn1D)
	assert.Equal(t, 0.0, *rows[1].LogReturn1D)
	require.NotNil(t, rows[2].LogReturn1D)
	assert.Equal(t, 0.0, *rows[2].LogReturn1D)
}

func TestDerive_SortedByCanonicalAssetThenDate(t *testing.T) {
	series := newSeries(map[contracts.Asset][]float64{
		contracts.AssetGold: {1, 2, 3},
		"Copper":            {1, 2, 3},
		contracts.AssetSPX:  {1, 2, 3},
	}, "Copper", contracts.AssetGold, contracts.AssetSPX)

	rows, err := newDeriver(t).Derive(series)
	require.NoError(t, err)
	require.Len(t, rows, 9)

	want := []contracts.Asset{contracts.AssetSPX, contracts.AssetGold, "Copper"}
	for i, r := range rows {
		assert.Equal(t, want[i/3], r.Asset)
		if i%3 > 0 {
			assert.True(t, r.Date.After(rows[i-1].Date))
		}
	}
}

func TestDerive_EmptySeries(t *testing.T) {
	d := newDeriver(t)

	rows, err := d.Derive(nil)
	require.NoError(t, err)
	assert.Nil(t, rows)

	rows, err = d.Derive(&contracts.AlignedPriceSeries{})
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestDerive_ColumnLengthMismatch(t *testing.T) {
	tests := []struct {
		name   string
		prices map[contracts.Asset][]float64
	}{
		{"short column", map[contracts.Asset][]float64{
			contracts.AssetSPX: {100, 101},
		}},
		{"long column", map[contracts.Asset][]float64{
			contracts.AssetSPX: {100, 101, 102, 103},
		}},
		{"column absent", map[contracts.Asset][]float64{}},
		{"second asset short", map[contracts.Asset][]float64{
			contracts.AssetSPX: {100, 101, 102},
			contracts.AssetNDX: {50},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assets := []contracts.Asset{contracts.AssetSPX}
			if _, ok := tt.prices[contracts.AssetNDX]; ok {
				assets = append(assets, contracts.AssetNDX)
			}
			series := &contracts.AlignedPriceSeries{
				Dates:  businessDates(3),
				Assets: assets,
				Prices: tt.prices,
			}

			rows, err := newDeriver(t).Derive(series)
			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrSchemaInconsistency)
			assert.Contains(t, err.Error(), "calendar days")
			assert.Nil(t, rows)
		})
	}
}

func TestDerive_IdenticalPatternOffsetByOneRow(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	n := 30
	pattern := make([]float64, n)
	p := 100.0
	for i := range pattern {
		p *= math.Exp(r.NormFloat64() * 0.01)
		pattern[i] = p
	}

	// SPX: 패턴 + 마지막 날 보유, Gold: 하루 늦게 시작하는 같은 패턴
	spx := append(append([]float64(nil), pattern...), pattern[n-1])
	gold := append([]float64{math.NaN()}, pattern...)

	d := newDeriver(t)
	rows, err := d.Derive(newSeries(map[contracts.Asset][]float64{
		contracts.AssetSPX:  spx,
		contracts.AssetGold: gold,
	}, contracts.AssetSPX, contracts.AssetGold))
	require.NoError(t, err)

	// 자산별 단독 계산과 동일해야 함
	for asset, col := range map[contracts.Asset][]float64{contracts.AssetSPX: spx, contracts.AssetGold: gold} {
		alone, err := d.Derive(newSeries(map[contracts.Asset][]float64{asset: col}, asset))
		require.NoError(t, err)
		assert.Equal(t, alone, rowsFor(rows, asset), string(asset))
	}

	spxRows := rowsFor(rows, contracts.AssetSPX)
	goldRows := rowsFor(rows, contracts.AssetGold)
	defined := 0
	for i := 1; i < len(goldRows); i++ {
		if spxRows[i-1].RealizedVol20D == nil {
			assert.Nil(t, goldRows[i].RealizedVol20D, "day %d", i)
			continue
		}
		require.NotNil(t, goldRows[i].RealizedVol20D, "day %d", i)
		assert.InDelta(t, *spxRows[i-1].RealizedVol20D, *goldRows[i].RealizedVol20D, 1e-15, "day %d", i)
		defined++
	}
	assert.Greater(t, defined, 20)

	// 첫 유효 가격에서 수익률이 없어야 함
	assert.Nil(t, goldRows[1].LogReturn1D)
	require.NotNil(t, spxRows[1].LogReturn1D)
}

func TestRederiveFromRows_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	n := 60
	cols := map[contracts.Asset][]float64{}
	for _, asset := range []contracts.Asset{contracts.AssetSPX, contracts.AssetEURUSD, contracts.AssetUSDJPY} {
		p := 100.0
		col := make([]float64, n)
		for i := range col {
			p *= math.Exp(r.NormFloat64() * 0.01)
			col[i] = p
		}
		cols[asset] = col
	}
	cols[contracts.AssetEURUSD][0] = math.NaN()
	cols[contracts.AssetEURUSD][1] = math.NaN()

	series := newSeries(cols, contracts.AssetSPX, contracts.AssetEURUSD, contracts.AssetUSDJPY)
	d := newDeriver(t)

	rows, err := d.Derive(series)
	require.NoError(t, err)

	// 입력 순서를 섞어도 재계산 결과는 동일해야 함
	shuffled := append([]contracts.MarketRow(nil), rows...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	for i := range shuffled {
		shuffled[i].LogReturn1D = nil
		shuffled[i].RealizedVol20D = contracts.Float(99)
	}

	again := d.RederiveFromRows(shuffled)
	assert.Equal(t, rows, again)
}

func TestLogReturns(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name    string
		prices  []float64
		defined []bool
	}{
		{"simple", []float64{1, 2, 4}, []bool{false, true, true}},
		{"gap in middle", []float64{1, nan, 4, 5}, []bool{false, false, false, true}},
		{"non-positive price", []float64{1, 0, 2, -1}, []bool{false, false, false, false}},
		{"single price", []float64{1}, []bool{false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogReturns(tt.prices)
			require.Len(t, got, len(tt.prices))
			for i, want := range tt.defined {
				assert.Equal(t, want, !math.IsNaN(got[i]), "index %d", i)
			}
		})
	}
}

func TestRollingStd_WindowCountsPositions(t *testing.T) {
	nan := math.NaN()
	values := []float64{1, 2, nan, nan, 3, 4}

	got := RollingStd(values, 3, 2)

	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, sampleStd([]float64{1, 2}), got[1], 1e-12)
	assert.InDelta(t, sampleStd([]float64{1, 2}), got[2], 1e-12)
	assert.True(t, math.IsNaN(got[3]), "window [2, nan, nan] has one value")
	assert.True(t, math.IsNaN(got[4]), "window [nan, nan, 3] has one value")
	assert.InDelta(t, sampleStd([]float64{3, 4}), got[5], 1e-12)
}

func TestDeriverConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DeriverConfig
		wantErr bool
	}{
		{"default", DefaultDeriverConfig(), false},
		{"window too small", DeriverConfig{VolWindow: 1, VolMinPeriods: 1}, true},
		{"min periods above window", DeriverConfig{VolWindow: 10, VolMinPeriods: 11}, true},
		{"min periods of one", DeriverConfig{VolWindow: 10, VolMinPeriods: 1}, true},
		{"custom", DeriverConfig{VolWindow: 60, VolMinPeriods: 20}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDeriver(tt.cfg, logger.Nop())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssets(t *testing.T) {
	rows := []contracts.MarketRow{
		{Asset: "Copper"}, {Asset: contracts.AssetGold}, {Asset: contracts.AssetSPX}, {Asset: contracts.AssetGold},
	}
	assert.Equal(t, []contracts.Asset{contracts.AssetSPX, contracts.AssetGold, "Copper"}, Assets(rows))
}
