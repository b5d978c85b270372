package risk

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/internal/models"
)

// Engine 리스크 엔진 (순수 계산기)
// ⭐ SSOT: 경로 생성은 internal/models, 여기서는 생성된 경로의 요약만 담당
type Engine struct{}

// NewEngine 새 리스크 엔진 생성
func NewEngine() *Engine {
	return &Engine{}
}

var (
	ErrInsufficientData = errors.New("insufficient data for summary")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// ValidateConfig 설정 유효성 검사
func ValidateConfig(config SummaryConfig) error {
	if config.ReturnType != ReturnLog && config.ReturnType != ReturnLevel {
		return fmt.Errorf("%w: unknown return type %q", ErrInvalidConfig, config.ReturnType)
	}
	if config.MinScenarios <= 0 {
		return fmt.Errorf("%w: MinScenarios must be > 0", ErrInvalidConfig)
	}
	if len(config.ConfidenceLevels) == 0 {
		return fmt.Errorf("%w: ConfidenceLevels cannot be empty", ErrInvalidConfig)
	}
	for _, cl := range config.ConfidenceLevels {
		if cl <= 0 || cl >= 1 {
			return fmt.Errorf("%w: ConfidenceLevel must be between 0 and 1", ErrInvalidConfig)
		}
	}
	for _, p := range config.Percentiles {
		if p < 0 || p > 100 {
			return fmt.Errorf("%w: percentile %d out of [0, 100]", ErrInvalidConfig, p)
		}
	}
	for asset, w := range config.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight for %s is not finite", ErrInvalidConfig, asset)
		}
	}
	return nil
}

// ReturnTypeFor picks the path interpretation for a fitted field
func ReturnTypeFor(field contracts.ReturnField) ReturnType {
	if field == contracts.FieldLogReturn1D {
		return ReturnLog
	}
	return ReturnLevel
}

// Summarize 샘플 경로의 horizon 분포 요약
// log 경로: 시나리오별 exp(Σ step) - 1, level 경로: 시나리오별 스텝 평균
func (e *Engine) Summarize(paths *models.SampledPaths, config SummaryConfig) (*PathSummary, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	if paths == nil {
		return nil, fmt.Errorf("%w: no paths", ErrInsufficientData)
	}

	shape := paths.Shape()
	scenarios := shape[0]

	// Fail-closed: 최소 시나리오 수 체크
	if scenarios < config.MinScenarios {
		return nil, fmt.Errorf("%w: got %d scenarios, need %d",
			ErrInsufficientData, scenarios, config.MinScenarios)
	}

	assets := paths.Assets()
	horizon := make([][]float64, len(assets)) // [asset][scenario]
	drawdown := make([]float64, len(assets))

	for a := range assets {
		horizon[a] = make([]float64, scenarios)
		for s := 0; s < scenarios; s++ {
			series := paths.Series(s, a)
			horizon[a][s] = horizonValue(series, config.ReturnType)
			if config.ReturnType == ReturnLog {
				drawdown[a] += MaxDrawdown(series)
			}
		}
		drawdown[a] /= float64(scenarios)
	}

	summary := &PathSummary{
		RunID:     uuid.New().String(),
		Shape:     shape,
		Seed:      paths.Seed(),
		Config:    config,
		Assets:    make([]HorizonStats, len(assets)),
		CreatedAt: time.Now(),
	}
	for a, asset := range assets {
		summary.Assets[a] = e.stats(asset, horizon[a], config)
		summary.Assets[a].MeanMaxDrawdown = drawdown[a]
	}

	// 포트폴리오: 시나리오별 비중 가중 horizon 수익률
	if len(config.Weights) > 0 {
		portfolio := make([]float64, scenarios)
		matched := 0
		for a, asset := range assets {
			w, ok := config.Weights[asset]
			if !ok {
				continue
			}
			matched++
			for s := range portfolio {
				portfolio[s] += w * horizon[a][s]
			}
		}
		if matched == 0 {
			return nil, fmt.Errorf("%w: no weighted asset is in the model", ErrInvalidConfig)
		}
		stats := e.stats("portfolio", portfolio, config)
		summary.Portfolio = &stats
	}

	return summary, nil
}

// stats 한 분포의 통계 계산
func (e *Engine) stats(asset contracts.Asset, values []float64, config SummaryConfig) HorizonStats {
	out := HorizonStats{
		Asset:       asset,
		MeanReturn:  Mean(values),
		StdDev:      StdDev(values),
		VaR:         make([]VaRResult, len(config.ConfidenceLevels)),
		Percentiles: CalculatePercentiles(values, config.Percentiles),
	}
	for i, cl := range config.ConfidenceLevels {
		out.VaR[i] = CalculateVaR(values, cl)
	}
	return out
}

// horizonValue 한 경로의 horizon 값
func horizonValue(series []float64, rt ReturnType) float64 {
	if rt == ReturnLevel {
		return Mean(series)
	}
	sum := 0.0
	for _, r := range series {
		sum += r
	}
	return math.Expm1(sum)
}

// ParametricVaR 모델 1-step 해석적 VaR (Gaussian 전용)
func (e *Engine) ParametricVaR(model *models.GaussianReturnModel, confidence float64) map[contracts.Asset]VaRResult {
	mean := model.Mean()
	cov := model.Covariance()
	out := make(map[contracts.Asset]VaRResult, len(mean))
	for i, asset := range model.Assets() {
		out[asset] = CalculateParametricVaR(mean[i], math.Sqrt(cov.At(i, i)), confidence)
	}
	return out
}
