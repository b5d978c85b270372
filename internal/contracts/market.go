package contracts

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PriceObservation is one raw close print from the price source
// ClosePrice가 nil이면 해당 날짜의 가격이 없는 것 (소스에서 결측)
type PriceObservation struct {
	Date       time.Time `json:"date"`
	Asset      Asset     `json:"asset"`
	ClosePrice *float64  `json:"close_price"`
}

// AlignedPriceSeries holds every asset reindexed onto one shared business-day calendar
// ⭐ SSOT: S0 → S1 정렬된 가격 전달
//
// Prices[asset][i] corresponds to Dates[i]. Missing cells hold NaN; filled cells
// are copies of an earlier true observation, never interpolated.
type AlignedPriceSeries struct {
	Dates  []time.Time         `json:"dates"`
	Assets []Asset             `json:"assets"`
	Prices map[Asset][]float64 `json:"-"`
}

// Len returns the number of calendar days
func (s *AlignedPriceSeries) Len() int {
	return len(s.Dates)
}

// Column returns the price column for an asset (nil if absent)
func (s *AlignedPriceSeries) Column(a Asset) []float64 {
	return s.Prices[a]
}

// MarketRow is one row of the canonical daily feature table
// ⭐ SSOT: 피처 테이블 행 (asset, date 순 정렬)
type MarketRow struct {
	Date           time.Time `json:"date"`
	Asset          Asset     `json:"asset"`
	ClosePrice     *float64  `json:"close_price"`
	LogReturn1D    *float64  `json:"log_return_1d"`
	RealizedVol20D *float64  `json:"realized_vol_20d"`
}

// ReturnField names a numeric column of the feature table usable for fitting
type ReturnField string

const (
	FieldLogReturn1D    ReturnField = "log_return_1d"
	FieldRealizedVol20D ReturnField = "realized_vol_20d"
)

// ParseReturnField validates a field name
func ParseReturnField(name string) (ReturnField, error) {
	switch ReturnField(name) {
	case FieldLogReturn1D, FieldRealizedVol20D:
		return ReturnField(name), nil
	default:
		return "", fmt.Errorf("%w: unknown return field %q", ErrSchemaInconsistency, name)
	}
}

// Value returns the row's value for the field; ok is false when undefined
func (r MarketRow) Value(field ReturnField) (float64, bool) {
	var v *float64
	switch field {
	case FieldLogReturn1D:
		v = r.LogReturn1D
	case FieldRealizedVol20D:
		v = r.RealizedVol20D
	}
	if v == nil || math.IsNaN(*v) {
		return 0, false
	}
	return *v, true
}

// Float returns a pointer to v, or nil when v is NaN or infinite
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ValueOr dereferences p, returning NaN for nil
func ValueOr(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// SortRows orders feature rows by (asset, date), assets in canonical order
func SortRows(rows []MarketRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Asset != rows[j].Asset {
			return AssetLess(rows[i].Asset, rows[j].Asset)
		}
		return rows[i].Date.Before(rows[j].Date)
	})
}
