package contracts

import "context"

// PriceSource supplies the raw long-format price table (S0 input)
// ⭐ SSOT: 원시 가격 수집은 외부 협력자 책임, 코어는 이 인터페이스로만 소비
type PriceSource interface {
	LoadRawPrices(ctx context.Context) ([]PriceObservation, error)
}

// FeatureStore persists and reads the processed feature table (S1 output)
type FeatureStore interface {
	SaveFeatures(ctx context.Context, rows []MarketRow) error
	LoadFeatures(ctx context.Context) ([]MarketRow, error)
}
