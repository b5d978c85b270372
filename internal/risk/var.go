package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// =============================================================================
// VaR (Value at Risk) Calculation
// =============================================================================

// CalculateVaR 시나리오 수익률 기반 VaR 계산 (Historical/Monte Carlo)
// returns: 시나리오별 수익률 (양수=이익, 음수=손실)
// confidence: 신뢰수준 (예: 0.95, 0.99)
// 반환값: VaR는 손실을 양수로 표현 (예: 0.05 = 5% 손실 가능)
func CalculateVaR(returns []float64, confidence float64) VaRResult {
	if len(returns) == 0 {
		return VaRResult{Confidence: confidence}
	}

	// 수익률 정렬 (오름차순: 손실이 앞에)
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	// VaR: (1-confidence) 백분위수
	idx := int(math.Floor((1.0 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return VaRResult{
		Confidence: confidence,
		VaR:        math.Max(-sorted[idx], 0),
		CVaR:       CalculateCVaR(sorted, idx),
	}
}

// CalculateCVaR Conditional VaR (Expected Shortfall) 계산
// sorted: 오름차순 정렬된 수익률
// varIdx: VaR 인덱스 (이 인덱스 이하의 수익률이 tail)
func CalculateCVaR(sorted []float64, varIdx int) float64 {
	if len(sorted) == 0 || varIdx < 0 {
		return 0
	}
	if varIdx >= len(sorted) {
		varIdx = len(sorted) - 1
	}

	avgTailReturn := stat.Mean(sorted[:varIdx+1], nil)

	// CVaR = 손실을 양수로 표현
	return math.Max(-avgTailReturn, 0)
}

// =============================================================================
// Parametric VaR (정규분포 가정)
// =============================================================================

// CalculateParametricVaR 정규분포 가정 VaR 계산
// Gaussian 모델의 1-step 해석적 VaR (샘플 기반 VaR와 비교용)
func CalculateParametricVaR(mean, stdDev, confidence float64) VaRResult {
	if stdDev <= 0 || confidence <= 0 || confidence >= 1 {
		return VaRResult{Confidence: confidence, VaR: math.Max(-mean, 0), CVaR: math.Max(-mean, 0)}
	}

	z := distuv.UnitNormal.Quantile(confidence)

	// VaR = -(mean - z·σ)
	varValue := math.Max(z*stdDev-mean, 0)

	// Expected shortfall: -mean + σ·φ(z)/(1-confidence)
	cvar := math.Max(stdDev*distuv.UnitNormal.Prob(z)/(1-confidence)-mean, 0)

	return VaRResult{
		Confidence: confidence,
		VaR:        varValue,
		CVaR:       cvar,
	}
}

// =============================================================================
// 통계 유틸리티
// =============================================================================

// Mean 평균 계산
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev 표준편차 계산 (표본, n-1)
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// Percentile 백분위수 계산 (선형 보간)
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	idx := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// CalculatePercentiles 여러 백분위수를 한 번에 계산
func CalculatePercentiles(values []float64, ps []int) map[int]float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	out := make(map[int]float64, len(ps))
	for _, p := range ps {
		out[p] = Percentile(sorted, float64(p))
	}
	return out
}

// MaxDrawdown 로그 수익률 경로의 최대 낙폭 (양수, 0 = 낙폭 없음)
func MaxDrawdown(logReturns []float64) float64 {
	var level, peak, mdd float64
	for _, r := range logReturns {
		level += r
		if level > peak {
			peak = level
		}
		// 누적 로그 수준 차이를 단순 수익률로 변환
		if dd := 1 - math.Exp(level-peak); dd > mdd {
			mdd = dd
		}
	}
	return mdd
}
