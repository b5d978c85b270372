package s0_data

import (
	"context"

	"github.com/wonny/worldmodel/internal/contracts"
)

// StaticSource serves a fixed in-memory observation table
// 테스트, 오프라인 재현, CSV 적재 결과 주입용
type StaticSource struct {
	observations []contracts.PriceObservation
}

// NewStaticSource copies obs so later mutation by the caller has no effect
func NewStaticSource(obs []contracts.PriceObservation) *StaticSource {
	return &StaticSource{observations: append([]contracts.PriceObservation(nil), obs...)}
}

// LoadRawPrices implements contracts.PriceSource
func (s *StaticSource) LoadRawPrices(ctx context.Context) ([]contracts.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]contracts.PriceObservation(nil), s.observations...), nil
}

var _ contracts.PriceSource = (*StaticSource)(nil)
