package pipeline

import (
	"fmt"
	"math"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/internal/models"
	"github.com/wonny/worldmodel/internal/risk"
)

// MaxSampleCells caps scenarios × steps per request
const MaxSampleCells = 2_000_000

// SampleRequest describes one S3 sampling call
type SampleRequest struct {
	Steps     int                         `json:"steps"`
	Scenarios int                         `json:"scenarios"`
	Seed      *uint64                     `json:"seed,omitempty"`
	Summarize bool                        `json:"summarize"`
	Weights   map[contracts.Asset]float64 `json:"weights,omitempty"`
}

// SampleResult holds the sampled paths and their optional summary
type SampleResult struct {
	ModelID string               `json:"model_id"`
	Paths   *models.SampledPaths `json:"paths"`
	Summary *risk.PathSummary    `json:"summary,omitempty"`
}

// ValidateSampleRequest 요청 유효성 검사
func ValidateSampleRequest(req SampleRequest) error {
	if req.Steps <= 0 || req.Scenarios <= 0 {
		return fmt.Errorf("%w: steps=%d scenarios=%d must be positive",
			contracts.ErrInvalidShape, req.Steps, req.Scenarios)
	}
	if req.Steps > MaxSampleCells/req.Scenarios {
		return fmt.Errorf("%w: %d scenarios × %d steps exceeds %d",
			contracts.ErrInvalidShape, req.Scenarios, req.Steps, MaxSampleCells)
	}
	for asset, w := range req.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight for %s is not finite", risk.ErrInvalidConfig, asset)
		}
	}
	return nil
}
