package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/wonny/worldmodel/internal/contracts"
)

// BootstrapReturnModel resamples whole historical return vectors with replacement.
// Like the Gaussian baseline it is memoryless across steps, but keeps the
// empirical (fat-tailed) joint distribution instead of a normal fit.
type BootstrapReturnModel struct {
	id       string
	field    contracts.ReturnField
	assets   []contracts.Asset
	dates    []time.Time
	history  *mat.Dense // observations × assets
	fittedAt time.Time
}

var _ ReturnModel = (*BootstrapReturnModel)(nil)

// FitBootstrap keeps the complete-case return matrix as the resampling pool
func FitBootstrap(rows []contracts.MarketRow, field contracts.ReturnField, opts FitOptions) (*BootstrapReturnModel, error) {
	m, err := completeMatrix(rows, field, opts)
	if err != nil {
		return nil, err
	}
	return &BootstrapReturnModel{
		id:       uuid.New().String(),
		field:    field,
		assets:   m.assets,
		dates:    m.dates,
		history:  m.data,
		fittedAt: time.Now().UTC(),
	}, nil
}

// NewBootstrapReturnModel rebuilds a model from a stored history (row-major observations × assets)
func NewBootstrapReturnModel(field contracts.ReturnField, assets []contracts.Asset, history []float64, fittedAt time.Time) (*BootstrapReturnModel, error) {
	n := len(assets)
	if n == 0 {
		return nil, fmt.Errorf("%w: model has no assets", contracts.ErrDataCoverage)
	}
	if len(history) == 0 || len(history)%n != 0 {
		return nil, fmt.Errorf("%w: history of %d cells does not fit %d assets",
			contracts.ErrSchemaInconsistency, len(history), n)
	}
	return &BootstrapReturnModel{
		id:       uuid.New().String(),
		field:    field,
		assets:   append([]contracts.Asset(nil), assets...),
		history:  mat.NewDense(len(history)/n, n, append([]float64(nil), history...)),
		fittedAt: fittedAt,
	}, nil
}

// ID identifies this fit
func (b *BootstrapReturnModel) ID() string { return b.id }

// Name implements ReturnModel
func (b *BootstrapReturnModel) Name() string { return string(KindBootstrap) }

// Kind implements ReturnModel
func (b *BootstrapReturnModel) Kind() ModelKind { return KindBootstrap }

// Field returns the return column the model was fitted on
func (b *BootstrapReturnModel) Field() contracts.ReturnField { return b.field }

// FittedAt returns the fit timestamp
func (b *BootstrapReturnModel) FittedAt() time.Time { return b.fittedAt }

// Observations returns the size of the resampling pool
func (b *BootstrapReturnModel) Observations() int {
	r, _ := b.history.Dims()
	return r
}

// Assets returns the asset order of every drawn vector
func (b *BootstrapReturnModel) Assets() []contracts.Asset {
	return append([]contracts.Asset(nil), b.assets...)
}

// SamplePaths draws each (scenario, step) vector uniformly from the history
func (b *BootstrapReturnModel) SamplePaths(nSteps, nScenarios int, seed *uint64) (*SampledPaths, error) {
	if err := validateShape(nSteps, nScenarios, len(b.assets)); err != nil {
		return nil, err
	}

	s := resolveSeed(seed)
	rng := rand.New(rand.NewSource(s))
	pool := b.Observations()

	paths := newSampledPaths(b.assets, nScenarios, nSteps, s)
	n := len(b.assets)
	for k := 0; k < nScenarios*nSteps; k++ {
		mat.Row(paths.data[k*n:(k+1)*n], rng.Intn(pool), b.history)
	}
	return paths, nil
}

// historyData returns the row-major history copy
func (b *BootstrapReturnModel) historyData() []float64 {
	r, c := b.history.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, mat.Row(nil, i, b.history)...)
	}
	return out
}
