package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/worldmodel/internal/contracts"
)

// PriceRepository reads raw prices and persists the derived feature table
// ⭐ SSOT: 가격/피처 테이블 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

var (
	_ contracts.PriceSource  = (*PriceRepository)(nil)
	_ contracts.FeatureStore = (*PriceRepository)(nil)
)

// LoadRawPrices returns every raw observation (long format)
func (r *PriceRepository) LoadRawPrices(ctx context.Context) ([]contracts.PriceObservation, error) {
	query := `
		SELECT trade_date, asset, close_price
		FROM data.raw_prices
		ORDER BY asset, trade_date
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query raw prices: %w", err)
	}
	defer rows.Close()

	var obs []contracts.PriceObservation
	for rows.Next() {
		var o contracts.PriceObservation
		var asset string
		if err := rows.Scan(&o.Date, &asset, &o.ClosePrice); err != nil {
			return nil, fmt.Errorf("scan raw price: %w", err)
		}
		o.Asset = contracts.Asset(asset)
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: data.raw_prices is empty", contracts.ErrInputMissing)
	}
	return obs, nil
}

// SaveRawPrices upserts raw observations (CSV import, external collector hand-off)
func (r *PriceRepository) SaveRawPrices(ctx context.Context, obs []contracts.PriceObservation, source string) error {
	if len(obs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO data.raw_prices (trade_date, asset, close_price, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trade_date, asset) DO UPDATE SET
			close_price = EXCLUDED.close_price,
			source = EXCLUDED.source,
			updated_at = NOW()
	`
	for _, o := range obs {
		batch.Queue(query, o.Date, string(o.Asset), o.ClosePrice, source)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range obs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert raw price: %w", err)
		}
	}
	return nil
}

// SaveFeatures replaces the feature table with rows in a single transaction
func (r *PriceRepository) SaveFeatures(ctx context.Context, rows []contracts.MarketRow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// 캘린더가 줄어든 경우 남는 날짜가 없도록 전체 교체
	if _, err := tx.Exec(ctx, `DELETE FROM data.market_daily`); err != nil {
		return fmt.Errorf("clear market_daily: %w", err)
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO data.market_daily
			(trade_date, asset, close_price, log_return_1d, realized_vol_20d)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, row := range rows {
		batch.Queue(query, row.Date, string(row.Asset), row.ClosePrice, row.LogReturn1D, row.RealizedVol20D)
	}

	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert market_daily: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// LoadFeatures reads the feature table sorted by (asset canonical order, date)
func (r *PriceRepository) LoadFeatures(ctx context.Context) ([]contracts.MarketRow, error) {
	return r.loadFeatures(ctx, `
		SELECT trade_date, asset, close_price, log_return_1d, realized_vol_20d
		FROM data.market_daily
	`)
}

// LoadFeaturesRange reads feature rows within [from, to] for the given assets (all if empty)
func (r *PriceRepository) LoadFeaturesRange(ctx context.Context, from, to time.Time, assets []contracts.Asset) ([]contracts.MarketRow, error) {
	names := make([]string, len(assets))
	for i, a := range assets {
		names[i] = string(a)
	}
	return r.loadFeatures(ctx, `
		SELECT trade_date, asset, close_price, log_return_1d, realized_vol_20d
		FROM data.market_daily
		WHERE trade_date BETWEEN $1 AND $2
		  AND (cardinality($3::text[]) = 0 OR asset = ANY($3))
	`, from, to, names)
}

func (r *PriceRepository) loadFeatures(ctx context.Context, query string, args ...interface{}) ([]contracts.MarketRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query market_daily: %w", err)
	}
	defer rows.Close()

	var result []contracts.MarketRow
	for rows.Next() {
		var row contracts.MarketRow
		var asset string
		if err := rows.Scan(&row.Date, &asset, &row.ClosePrice, &row.LogReturn1D, &row.RealizedVol20D); err != nil {
			return nil, fmt.Errorf("scan market_daily: %w", err)
		}
		row.Asset = contracts.Asset(asset)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	contracts.SortRows(result)
	return result, nil
}
