package models

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/worldmodel/internal/contracts"
)

// Snapshot is the portable form of a fitted model (YAML export, DB row, cache entry)
type Snapshot struct {
	ID           string                `yaml:"id" json:"id"`
	Kind         ModelKind             `yaml:"kind" json:"kind"`
	Field        contracts.ReturnField `yaml:"return_field" json:"return_field"`
	Assets       []contracts.Asset     `yaml:"assets" json:"assets"`
	Observations int                   `yaml:"observations" json:"observations"`
	FittedAt     time.Time             `yaml:"fitted_at" json:"fitted_at"`

	// gaussian
	Mean       []float64   `yaml:"mean,omitempty" json:"mean,omitempty"`
	Covariance [][]float64 `yaml:"covariance,omitempty" json:"covariance,omitempty"`

	// bootstrap (observations × assets)
	History [][]float64 `yaml:"history,omitempty" json:"history,omitempty"`
}

// Snapshot implements ReturnModel
func (g *GaussianReturnModel) Snapshot() *Snapshot {
	return &Snapshot{
		ID:           g.id,
		Kind:         KindGaussian,
		Field:        g.field,
		Assets:       g.Assets(),
		Observations: g.observations,
		FittedAt:     g.fittedAt,
		Mean:         g.Mean(),
		Covariance:   g.CovarianceRows(),
	}
}

// Snapshot implements ReturnModel
func (b *BootstrapReturnModel) Snapshot() *Snapshot {
	r, c := b.history.Dims()
	flat := b.historyData()
	history := make([][]float64, r)
	for i := range history {
		history[i] = flat[i*c : (i+1)*c]
	}
	return &Snapshot{
		ID:           b.id,
		Kind:         KindBootstrap,
		Field:        b.field,
		Assets:       b.Assets(),
		Observations: r,
		FittedAt:     b.fittedAt,
		History:      history,
	}
}

// Restore rebuilds a model from its snapshot
func Restore(s *Snapshot) (ReturnModel, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", contracts.ErrInputMissing)
	}
	if _, err := contracts.ParseReturnField(string(s.Field)); err != nil {
		return nil, err
	}

	switch s.Kind {
	case KindGaussian:
		m, err := NewGaussianReturnModel(s.Field, s.Assets, s.Mean, flatten(s.Covariance), s.Observations, s.FittedAt)
		if err != nil {
			return nil, err
		}
		if s.ID != "" {
			m.id = s.ID
		}
		return m, nil

	case KindBootstrap:
		m, err := NewBootstrapReturnModel(s.Field, s.Assets, flatten(s.History), s.FittedAt)
		if err != nil {
			return nil, err
		}
		if s.ID != "" {
			m.id = s.ID
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: unknown model kind %q", contracts.ErrSchemaInconsistency, s.Kind)
	}
}

// WriteYAML exports a fitted model
func WriteYAML(w io.Writer, m ReturnModel) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m.Snapshot()); err != nil {
		return fmt.Errorf("encode model yaml: %w", err)
	}
	return enc.Close()
}

// ReadYAML imports a model written by WriteYAML
func ReadYAML(r io.Reader) (ReturnModel, error) {
	var s Snapshot
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: decode model yaml: %v", contracts.ErrSchemaInconsistency, err)
	}
	return Restore(&s)
}

// flatten joins rows into one row-major slice; ragged input yields a length mismatch downstream
func flatten(rows [][]float64) []float64 {
	var out []float64
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
