package s0_data

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/pkg/logger"
)

// AlignReport describes what the aligner did to each column
type AlignReport struct {
	TotalDays     int                       `json:"total_days"`
	Assets        []contracts.AssetCoverage `json:"assets"`
	MissingAssets []contracts.Asset         `json:"missing_assets"` // 소스에 가격이 전혀 없는 자산
	Dropped       int                       `json:"dropped"`        // 비영업일 관측치 (reindex로 제외)
}

// Aligner reindexes raw observations onto one shared business-day calendar
// ⭐ SSOT: S0 캘린더 정렬은 여기서만
type Aligner struct {
	logger *logger.Logger
}

// NewAligner creates a new Aligner
func NewAligner(log *logger.Logger) *Aligner {
	return &Aligner{
		logger: log.WithComponent("s0_data.aligner"),
	}
}

// Align produces the gap-free business-day price series.
// Canonical assets absent from the source are kept as all-missing columns.
func (a *Aligner) Align(obs []contracts.PriceObservation) (*contracts.AlignedPriceSeries, error) {
	series, _, err := a.AlignWithReport(obs)
	return series, err
}

// AlignWithReport is Align plus per-asset coverage of observed, filled and missing cells
func (a *Aligner) AlignWithReport(obs []contracts.PriceObservation) (*contracts.AlignedPriceSeries, *AlignReport, error) {
	if len(obs) == 0 {
		return nil, nil, fmt.Errorf("%w: price source returned no observations", contracts.ErrInputMissing)
	}

	// 1. (asset, date) 인덱스 구축 + 중복 검사
	byAsset := make(map[contracts.Asset]map[time.Time]float64)
	seen := make(map[contracts.Asset]map[time.Time]struct{})
	minDate, maxDate := dateOnly(obs[0].Date), dateOnly(obs[0].Date)

	for _, o := range obs {
		if o.Asset == "" {
			return nil, nil, fmt.Errorf("%w: observation on %s has no asset", contracts.ErrSchemaInconsistency, o.Date.Format("2006-01-02"))
		}
		d := dateOnly(o.Date)
		if seen[o.Asset] == nil {
			seen[o.Asset] = make(map[time.Time]struct{})
			byAsset[o.Asset] = make(map[time.Time]float64)
		}
		if _, dup := seen[o.Asset][d]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate observation for %s on %s",
				contracts.ErrSchemaInconsistency, o.Asset, d.Format("2006-01-02"))
		}
		seen[o.Asset][d] = struct{}{}

		if d.Before(minDate) {
			minDate = d
		}
		if d.After(maxDate) {
			maxDate = d
		}

		if o.ClosePrice != nil && !math.IsNaN(*o.ClosePrice) {
			byAsset[o.Asset][d] = *o.ClosePrice
		}
	}

	// 2. 공유 영업일 캘린더
	calendar := BusinessDays(minDate, maxDate)

	// 3. 컬럼 순서: canonical 자산 먼저, 그 외 소스 자산은 이름순
	assets := append([]contracts.Asset(nil), contracts.CanonicalAssets...)
	var extra []contracts.Asset
	for asset := range seen {
		if !contracts.IsCanonical(asset) {
			extra = append(extra, asset)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	assets = append(assets, extra...)

	series := &contracts.AlignedPriceSeries{
		Dates:  calendar,
		Assets: assets,
		Prices: make(map[contracts.Asset][]float64, len(assets)),
	}
	report := &AlignReport{TotalDays: len(calendar)}

	onCalendar := 0
	for _, asset := range assets {
		column, cov := reindexForwardFill(calendar, byAsset[asset])
		cov.Asset = asset
		cov.TickerAbsent = len(byAsset[asset]) == 0
		onCalendar += cov.Observed

		if cov.TickerAbsent {
			report.MissingAssets = append(report.MissingAssets, asset)
			a.logger.WithFields(map[string]interface{}{
				"asset":  string(asset),
				"ticker": contracts.AssetTickers[asset],
			}).Warn("No price data for asset, column left missing")
		}

		series.Prices[asset] = column
		report.Assets = append(report.Assets, cov)
	}

	priced := 0
	for _, m := range byAsset {
		priced += len(m)
	}
	report.Dropped = priced - onCalendar

	a.logger.WithFields(map[string]interface{}{
		"observations":   len(obs),
		"business_days":  len(calendar),
		"assets":         len(assets),
		"missing_assets": len(report.MissingAssets),
		"dropped":        report.Dropped,
	}).Info("Aligned price series")

	return series, report, nil
}

// reindexForwardFill places known prices on the calendar and carries the last one forward.
// Cells before the first known price stay NaN.
func reindexForwardFill(calendar []time.Time, known map[time.Time]float64) ([]float64, contracts.AssetCoverage) {
	column := make([]float64, len(calendar))
	cov := contracts.AssetCoverage{}

	last := math.NaN()
	for i, d := range calendar {
		if p, ok := known[d]; ok {
			last = p
			cov.Observed++
			if cov.FirstDate == nil {
				first := d
				cov.FirstDate = &first
			}
		} else if !math.IsNaN(last) {
			cov.Filled++
		} else {
			cov.Missing++
		}
		column[i] = last
	}

	if len(calendar) > 0 {
		cov.Coverage = float64(cov.Observed+cov.Filled) / float64(len(calendar))
	}
	return column, cov
}

// BusinessDays returns every Mon-Fri date from the first business day >= from
// to the last business day <= to (inclusive). Holidays are not removed.
func BusinessDays(from, to time.Time) []time.Time {
	from, to = dateOnly(from), dateOnly(to)
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// IsBusinessDay reports whether d falls on Monday through Friday
func IsBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// dateOnly truncates to a UTC calendar date
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
