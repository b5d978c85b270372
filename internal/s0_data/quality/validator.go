package quality

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/internal/s0_data"
)

// QualityGate validates aligned price coverage and generates snapshots
type QualityGate struct {
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinAssetCoverage float64 `yaml:"min_asset_coverage"` // 자산을 유효로 볼 최소 커버리지 (0.5)
	MinQualityScore  float64 `yaml:"min_quality_score"`  // 통과 기준 점수 (0.7)
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		MinAssetCoverage: 0.5,
		MinQualityScore:  0.7,
	}
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check scores one alignment run
// ⭐ SSOT: S0 → S1 품질 검증
func (g *QualityGate) Check(series *contracts.AlignedPriceSeries, report *s0_data.AlignReport) (*contracts.DataQualitySnapshot, error) {
	if series == nil || report == nil {
		return nil, fmt.Errorf("%w: quality check needs an aligned series and its report", contracts.ErrInputMissing)
	}

	snapshot := &contracts.DataQualitySnapshot{
		RunID:       uuid.New().String(),
		TotalDays:   report.TotalDays,
		TotalAssets: len(report.Assets),
		Coverage:    make(map[contracts.Asset]float64, len(report.Assets)),
		Assets:      report.Assets,
		CreatedAt:   time.Now(),
	}
	if n := series.Len(); n > 0 {
		snapshot.StartDate = series.Dates[0]
		snapshot.EndDate = series.Dates[n-1]
	}

	// 1. 자산별 커버리지
	for _, c := range report.Assets {
		snapshot.Coverage[c.Asset] = c.Coverage
		if c.Coverage >= g.config.MinAssetCoverage {
			snapshot.ValidAssets++
		}
	}

	// 2. 품질 점수 계산
	snapshot.QualityScore = g.calculateScore(report.Assets)

	// 3. 통과 여부
	snapshot.Passed = snapshot.ValidAssets > 0 && snapshot.QualityScore >= g.config.MinQualityScore

	return snapshot, nil
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(assets []contracts.AssetCoverage) float64 {
	if len(assets) == 0 {
		return 0
	}

	// 가중치 (합계 = 1.0)
	const (
		coverageWeight  = 0.6 // 값이 있는 영업일 비율
		freshnessWeight = 0.4 // 그중 forward-fill이 아닌 실제 관측 비율
	)

	var coverage, freshness float64
	for _, c := range assets {
		coverage += c.Coverage
		if covered := c.Observed + c.Filled; covered > 0 {
			freshness += float64(c.Observed) / float64(covered)
		}
	}
	n := float64(len(assets))

	return coverageWeight*coverage/n + freshnessWeight*freshness/n
}
