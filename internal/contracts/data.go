package contracts

import "time"

// AssetCoverage 자산별 정렬 결과 커버리지
type AssetCoverage struct {
	Asset        Asset      `json:"asset"`
	Observed     int        `json:"observed"`      // 원본 관측치로 채워진 영업일 수
	Filled       int        `json:"filled"`        // forward-fill로 채워진 영업일 수
	Missing      int        `json:"missing"`       // 결측 (선행 공백 또는 티커 없음)
	Coverage     float64    `json:"coverage"`      // (observed + filled) / 전체 영업일
	FirstDate    *time.Time `json:"first_date"`    // 첫 유효 가격일
	TickerAbsent bool       `json:"ticker_absent"` // 소스에 관측치가 전혀 없음
}

// DataQualitySnapshot represents data quality information for one feature build
// ⭐ SSOT: S0 → S1 데이터 품질 정보 전달
type DataQualitySnapshot struct {
	RunID        string            `json:"run_id"`
	StartDate    time.Time         `json:"start_date"`
	EndDate      time.Time         `json:"end_date"`
	TotalDays    int               `json:"total_days"`
	TotalAssets  int               `json:"total_assets"`
	ValidAssets  int               `json:"valid_assets"`
	Coverage     map[Asset]float64 `json:"coverage"` // 자산별 커버리지
	Assets       []AssetCoverage   `json:"assets"`
	QualityScore float64           `json:"quality_score"` // 0.0 ~ 1.0
	Passed       bool              `json:"passed"`        // 품질 검증 통과 여부
	CreatedAt    time.Time         `json:"created_at"`
}

// IsValid checks if the data quality snapshot meets minimum requirements
func (d *DataQualitySnapshot) IsValid() bool {
	return d.QualityScore >= 0.7 && d.ValidAssets > 0
}

// CoverageRate returns the average coverage rate across all assets
func (d *DataQualitySnapshot) CoverageRate() float64 {
	if len(d.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range d.Coverage {
		total += rate
	}

	return total / float64(len(d.Coverage))
}

// MissingAssets returns the assets with no observations in the source
func (d *DataQualitySnapshot) MissingAssets() []Asset {
	var missing []Asset
	for _, a := range d.Assets {
		if a.TickerAbsent {
			missing = append(missing, a.Asset)
		}
	}
	return missing
}
