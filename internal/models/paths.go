package models

import (
	"encoding/json"
	"fmt"

	"github.com/wonny/worldmodel/internal/contracts"
)

// SampledPaths is a dense (scenario, step, asset) array of simulated returns.
// Each call to SamplePaths returns a fresh instance.
type SampledPaths struct {
	assets    []contracts.Asset
	scenarios int
	steps     int
	data      []float64 // row-major: ((s*steps)+t)*len(assets)+a
	seed      uint64
}

func newSampledPaths(assets []contracts.Asset, scenarios, steps int, seed uint64) *SampledPaths {
	return &SampledPaths{
		assets:    append([]contracts.Asset(nil), assets...),
		scenarios: scenarios,
		steps:     steps,
		data:      make([]float64, scenarios*steps*len(assets)),
		seed:      seed,
	}
}

// Shape returns (n_scenarios, n_steps, n_assets)
func (p *SampledPaths) Shape() [3]int {
	return [3]int{p.scenarios, p.steps, len(p.assets)}
}

// Assets returns the column order of the last axis
func (p *SampledPaths) Assets() []contracts.Asset {
	return append([]contracts.Asset(nil), p.assets...)
}

// Seed returns the seed the paths were drawn with
func (p *SampledPaths) Seed() uint64 {
	return p.seed
}

// At returns the return of asset a at step t of scenario s
func (p *SampledPaths) At(s, t, a int) float64 {
	return p.data[p.offset(s, t)+a]
}

// Step returns a copy of the return vector at (s, t)
func (p *SampledPaths) Step(s, t int) []float64 {
	off := p.offset(s, t)
	return append([]float64(nil), p.data[off:off+len(p.assets)]...)
}

// Scenario returns a copy of one scenario as [step][asset]
func (p *SampledPaths) Scenario(s int) [][]float64 {
	out := make([][]float64, p.steps)
	for t := range out {
		out[t] = p.Step(s, t)
	}
	return out
}

// Series returns one asset's returns in one scenario across steps
func (p *SampledPaths) Series(s, a int) []float64 {
	out := make([]float64, p.steps)
	for t := range out {
		out[t] = p.At(s, t, a)
	}
	return out
}

// Nested returns the full [scenario][step][asset] copy
func (p *SampledPaths) Nested() [][][]float64 {
	out := make([][][]float64, p.scenarios)
	for s := range out {
		out[s] = p.Scenario(s)
	}
	return out
}

func (p *SampledPaths) offset(s, t int) int {
	if s < 0 || s >= p.scenarios || t < 0 || t >= p.steps {
		panic(fmt.Sprintf("models: path index (%d, %d) out of range %v", s, t, p.Shape()))
	}
	return (s*p.steps + t) * len(p.assets)
}

// MarshalJSON encodes the shape, asset order and nested values
func (p *SampledPaths) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Shape  [3]int            `json:"shape"`
		Assets []contracts.Asset `json:"assets"`
		Seed   uint64            `json:"seed"`
		Paths  [][][]float64     `json:"paths"`
	}{p.Shape(), p.assets, p.seed, p.Nested()})
}
