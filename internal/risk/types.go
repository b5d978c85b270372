package risk

import (
	"time"

	"github.com/wonny/worldmodel/internal/contracts"
)

// VaRConvention VaR 부호 규약
// ⭐ SSOT: Loss를 양수로 표현 (VaR=0.05 → 5% 손실 가능)
const VaRConvention = "loss_positive"

// ReturnType 경로 값의 해석 방식
type ReturnType string

const (
	ReturnLog   ReturnType = "log"   // 스텝 값 합산 후 exp(sum)-1
	ReturnLevel ReturnType = "level" // realized_vol 등 수준 값: 스텝 평균
)

// VaRResult VaR 계산 결과
// - VaR=0.05 → 95% 신뢰수준에서 최대 5% 손실 가능
// - CVaR=0.07 → 5% tail에서 평균 7% 손실 예상
type VaRResult struct {
	Confidence float64 `json:"confidence"` // 신뢰수준 (예: 0.95, 0.99)
	VaR        float64 `json:"var"`        // Value at Risk (손실, 양수)
	CVaR       float64 `json:"cvar"`       // Conditional VaR (Expected Shortfall, 양수)
}

// SummaryConfig 샘플 경로 요약 설정
// ⭐ SSOT: 재현성을 위해 모든 설정을 명시적으로 기록
type SummaryConfig struct {
	ReturnType       ReturnType                  `json:"return_type"`       // log/level
	ConfidenceLevels []float64                   `json:"confidence_levels"` // 신뢰수준 [0.95, 0.99]
	Percentiles      []int                       `json:"percentiles"`       // 1, 5, ..., 99
	Weights          map[contracts.Asset]float64 `json:"weights,omitempty"` // 포트폴리오 비중 (없으면 생략)
	MinScenarios     int                         `json:"min_scenarios"`     // 최소 시나리오 수 (fail-closed, 기본: 20)
}

// DefaultSummaryConfig 기본 요약 설정
func DefaultSummaryConfig() SummaryConfig {
	return SummaryConfig{
		ReturnType:       ReturnLog,
		ConfidenceLevels: []float64{0.95, 0.99},
		Percentiles:      []int{1, 5, 10, 25, 50, 75, 90, 95, 99},
		MinScenarios:     20,
	}
}

// HorizonStats 하나의 자산(또는 포트폴리오)의 horizon 수익률 분포 통계
type HorizonStats struct {
	Asset           contracts.Asset `json:"asset"`
	MeanReturn      float64         `json:"mean_return"`       // 시나리오 평균 horizon 수익률
	StdDev          float64         `json:"std_dev"`           // 시나리오 간 표준편차
	VaR             []VaRResult     `json:"var"`               // 신뢰수준별 VaR/CVaR
	Percentiles     map[int]float64 `json:"percentiles"`       // 백분위수
	MeanMaxDrawdown float64         `json:"mean_max_drawdown"` // 경로별 최대 낙폭 평균 (log 경로만)
}

// PathSummary 샘플 경로 요약 결과
// ⭐ SSOT: 재현성을 위해 Config/Seed 포함, 추적을 위해 ModelID 포함
type PathSummary struct {
	RunID     string         `json:"run_id"`
	ModelID   string         `json:"model_id,omitempty"`
	Shape     [3]int         `json:"shape"` // (scenarios, steps, assets)
	Seed      uint64         `json:"seed"`
	Config    SummaryConfig  `json:"config"`
	Assets    []HorizonStats `json:"assets"`
	Portfolio *HorizonStats  `json:"portfolio,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
