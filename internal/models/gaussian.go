package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/wonny/worldmodel/internal/contracts"
)

// MinVariance is added to every diagonal entry of the sample covariance
// so the matrix stays positive definite with zero-variance or collinear assets.
const MinVariance = 1e-8

// GaussianReturnModel is an empirical multivariate normal over one return field.
//
// The model is memoryless: every time step of a sampled path is an independent
// draw from the same distribution. It captures cross-asset correlation only, no
// autocorrelation or volatility clustering.
type GaussianReturnModel struct {
	id           string
	field        contracts.ReturnField
	assets       []contracts.Asset
	mean         []float64
	cov          *mat.SymDense
	observations int
	fittedAt     time.Time
}

var _ ReturnModel = (*GaussianReturnModel)(nil)

// FitGaussian estimates the mean vector and unbiased covariance of field
// over the complete-case rows of the feature table, then adds MinVariance·I.
func FitGaussian(rows []contracts.MarketRow, field contracts.ReturnField, opts FitOptions) (*GaussianReturnModel, error) {
	m, err := completeMatrix(rows, field, opts)
	if err != nil {
		return nil, err
	}

	n := len(m.assets)
	mean := make([]float64, n)
	for j := 0; j < n; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, m.data), nil)
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, m.data, nil)
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, cov.At(i, i)+MinVariance)
	}

	return &GaussianReturnModel{
		id:           uuid.New().String(),
		field:        field,
		assets:       m.assets,
		mean:         mean,
		cov:          cov,
		observations: m.rows(),
		fittedAt:     time.Now().UTC(),
	}, nil
}

// NewGaussianReturnModel rebuilds a model from stored parameters (snapshot import).
// cov is the row-major n×n matrix and must already include the diagonal floor.
func NewGaussianReturnModel(field contracts.ReturnField, assets []contracts.Asset, mean, cov []float64, observations int, fittedAt time.Time) (*GaussianReturnModel, error) {
	n := len(assets)
	if n == 0 {
		return nil, fmt.Errorf("%w: model has no assets", contracts.ErrDataCoverage)
	}
	if len(mean) != n || len(cov) != n*n {
		return nil, fmt.Errorf("%w: %d assets, %d means, %d covariance cells",
			contracts.ErrSchemaInconsistency, n, len(mean), len(cov))
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if cov[i*n+j] != cov[j*n+i] {
				return nil, fmt.Errorf("%w: covariance is not symmetric at (%d, %d)", contracts.ErrSchemaInconsistency, i, j)
			}
			sym.SetSym(i, j, cov[i*n+j])
		}
	}

	return &GaussianReturnModel{
		id:           uuid.New().String(),
		field:        field,
		assets:       append([]contracts.Asset(nil), assets...),
		mean:         append([]float64(nil), mean...),
		cov:          sym,
		observations: observations,
		fittedAt:     fittedAt,
	}, nil
}

// ID identifies this fit
func (g *GaussianReturnModel) ID() string { return g.id }

// Name implements ReturnModel
func (g *GaussianReturnModel) Name() string { return string(KindGaussian) }

// Kind implements ReturnModel
func (g *GaussianReturnModel) Kind() ModelKind { return KindGaussian }

// Field returns the return column the model was fitted on
func (g *GaussianReturnModel) Field() contracts.ReturnField { return g.field }

// Observations returns the number of complete rows used in the fit
func (g *GaussianReturnModel) Observations() int { return g.observations }

// FittedAt returns the fit timestamp
func (g *GaussianReturnModel) FittedAt() time.Time { return g.fittedAt }

// Assets returns the asset order of Mean and Covariance
func (g *GaussianReturnModel) Assets() []contracts.Asset {
	return append([]contracts.Asset(nil), g.assets...)
}

// Mean returns a copy of the mean vector
func (g *GaussianReturnModel) Mean() []float64 {
	return append([]float64(nil), g.mean...)
}

// Covariance returns a copy of the covariance matrix
func (g *GaussianReturnModel) Covariance() *mat.SymDense {
	c := mat.NewSymDense(len(g.assets), nil)
	c.CopySym(g.cov)
	return c
}

// CovarianceRows returns the covariance as nested rows
func (g *GaussianReturnModel) CovarianceRows() [][]float64 {
	n := len(g.assets)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = g.cov.At(i, j)
		}
	}
	return out
}

// ErrNotPositiveDefinite is returned when no valid normal can be built from the covariance
var ErrNotPositiveDefinite = errors.New("covariance is not positive definite")

// SamplePaths draws nScenarios*nSteps i.i.d. vectors and lays them out as
// (scenario, step, asset); draw k lands in scenario k/nSteps, step k%nSteps.
// A nil seed uses the clock; the same seed always yields identical paths.
func (g *GaussianReturnModel) SamplePaths(nSteps, nScenarios int, seed *uint64) (*SampledPaths, error) {
	if err := validateShape(nSteps, nScenarios, len(g.assets)); err != nil {
		return nil, err
	}

	s := resolveSeed(seed)
	normal, err := g.normal(rand.NewSource(s))
	if err != nil {
		return nil, err
	}

	paths := newSampledPaths(g.assets, nScenarios, nSteps, s)
	n := len(g.assets)
	for k := 0; k < nScenarios*nSteps; k++ {
		normal.Rand(paths.data[k*n : (k+1)*n])
	}
	return paths, nil
}

// normal builds the sampling distribution, repairing round-off negative
// eigenvalues when the Cholesky factorization fails.
func (g *GaussianReturnModel) normal(src rand.Source) (*distmv.Normal, error) {
	if d, ok := distmv.NewNormal(g.mean, g.cov, src); ok {
		return d, nil
	}

	repaired, err := clipEigenvalues(g.cov, MinVariance)
	if err != nil {
		return nil, err
	}
	if d, ok := distmv.NewNormal(g.mean, repaired, src); ok {
		return d, nil
	}
	return nil, ErrNotPositiveDefinite
}

// clipEigenvalues rebuilds cov with every eigenvalue raised to at least floor
func clipEigenvalues(cov mat.Symmetric, floor float64) (*mat.SymDense, error) {
	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return nil, fmt.Errorf("%w: eigen decomposition failed", ErrNotPositiveDefinite)
	}

	values := eig.Values(nil)
	for i, v := range values {
		if v < floor {
			values[i] = floor
		}
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	n := len(values)
	var scaled mat.Dense
	scaled.Mul(&vecs, mat.NewDiagDense(n, values))

	var full mat.Dense
	full.Mul(&scaled, vecs.T())

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, (full.At(i, j)+full.At(j, i))/2)
		}
	}
	return out, nil
}
