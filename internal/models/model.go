// Package models fits memoryless return distributions to the feature table
// and draws synthetic return paths from them (S2 fit, S3 sample).
package models

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/worldmodel/internal/contracts"
)

// ModelKind identifies a return model variant
type ModelKind string

const (
	KindGaussian  ModelKind = "gaussian"  // variant 0: multivariate normal
	KindBootstrap ModelKind = "bootstrap" // i.i.d. resampling of historical return vectors
)

// ParseModelKind validates a kind name
func ParseModelKind(s string) (ModelKind, error) {
	switch ModelKind(s) {
	case KindGaussian, KindBootstrap:
		return ModelKind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown model kind %q", contracts.ErrSchemaInconsistency, s)
	}
}

// FitOptions controls estimation
type FitOptions struct {
	// MinObservations 결측 없는 공통 관측일 최소 개수 (2 미만은 2로 처리)
	MinObservations int
}

// DefaultFitOptions returns the minimum-sample guard of 2
func DefaultFitOptions() FitOptions {
	return FitOptions{MinObservations: 2}
}

func (o FitOptions) minObservations() int {
	if o.MinObservations < 2 {
		return 2
	}
	return o.MinObservations
}

// ReturnModel is a fitted, immutable return distribution
// ⭐ SSOT: 모든 변형 모델은 이 인터페이스를 구현
type ReturnModel interface {
	ID() string
	Name() string
	Kind() ModelKind
	Field() contracts.ReturnField
	Assets() []contracts.Asset
	Observations() int
	FittedAt() time.Time
	SamplePaths(nSteps, nScenarios int, seed *uint64) (*SampledPaths, error)
	Snapshot() *Snapshot
}

// Fitter estimates a model from a feature table
type Fitter func(rows []contracts.MarketRow, field contracts.ReturnField, opts FitOptions) (ReturnModel, error)

var fitters = map[ModelKind]Fitter{
	KindGaussian: func(rows []contracts.MarketRow, field contracts.ReturnField, opts FitOptions) (ReturnModel, error) {
		return FitGaussian(rows, field, opts)
	},
	KindBootstrap: func(rows []contracts.MarketRow, field contracts.ReturnField, opts FitOptions) (ReturnModel, error) {
		return FitBootstrap(rows, field, opts)
	},
}

// Fit dispatches to the fitter of kind
func Fit(kind ModelKind, rows []contracts.MarketRow, field contracts.ReturnField, opts FitOptions) (ReturnModel, error) {
	fit, ok := fitters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown model kind %q", contracts.ErrSchemaInconsistency, kind)
	}
	return fit(rows, field, opts)
}

// completeMatrix pivots and applies the minimum-sample guard
func completeMatrix(rows []contracts.MarketRow, field contracts.ReturnField, opts FitOptions) (*returnMatrix, error) {
	m, err := pivotReturns(rows, field)
	if err != nil {
		return nil, err
	}
	if need := opts.minObservations(); m.rows() < need {
		return nil, fmt.Errorf("%w: %d complete rows across %d assets, need %d",
			contracts.ErrInsufficientSamples, m.rows(), len(m.assets), need)
	}
	return m, nil
}

// validateShape rejects non-positive path dimensions and tensors whose
// cell count does not fit in an int
func validateShape(nSteps, nScenarios, nAssets int) error {
	if nSteps <= 0 || nScenarios <= 0 {
		return fmt.Errorf("%w: n_steps=%d n_scenarios=%d must both be positive",
			contracts.ErrInvalidShape, nSteps, nScenarios)
	}
	if nAssets > 0 && nSteps > math.MaxInt/nScenarios/nAssets {
		return fmt.Errorf("%w: %d scenarios × %d steps × %d assets overflows",
			contracts.ErrInvalidShape, nScenarios, nSteps, nAssets)
	}
	return nil
}

// resolveSeed returns the deterministic seed or a time-derived one
func resolveSeed(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return uint64(time.Now().UnixNano())
}
