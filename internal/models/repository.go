package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/worldmodel/internal/contracts"
)

// ErrModelNotFound no stored fit matches the query
var ErrModelNotFound = errors.New("model not found")

// Repository persists model snapshots in analytics.model_fits
// ⭐ SSOT: 모델 스냅샷 저장/조회
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new model repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save stores one fitted model
func (r *Repository) Save(ctx context.Context, m ReturnModel) error {
	s := m.Snapshot()

	query := `
		INSERT INTO analytics.model_fits
			(fit_id, kind, return_field, assets, observations, mean, covariance, history, fitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		string(s.Kind),
		string(s.Field),
		assetNames(s.Assets),
		s.Observations,
		nullableArray(s.Mean),
		nullableArray(flatten(s.Covariance)),
		nullableArray(flatten(s.History)),
		s.FittedAt,
	)
	if err != nil {
		return fmt.Errorf("save model fit: %w", err)
	}
	return nil
}

// Latest returns the most recent fit of kind on field
func (r *Repository) Latest(ctx context.Context, kind ModelKind, field contracts.ReturnField) (ReturnModel, error) {
	query := `
		SELECT fit_id::text, kind, return_field, assets, observations, mean, covariance, history, fitted_at
		FROM analytics.model_fits
		WHERE kind = $1 AND return_field = $2
		ORDER BY fitted_at DESC
		LIMIT 1
	`
	return r.scanOne(ctx, query, string(kind), string(field))
}

// GetByID returns a stored fit
func (r *Repository) GetByID(ctx context.Context, id string) (ReturnModel, error) {
	query := `
		SELECT fit_id::text, kind, return_field, assets, observations, mean, covariance, history, fitted_at
		FROM analytics.model_fits
		WHERE fit_id = $1
	`
	return r.scanOne(ctx, query, id)
}

// Prune deletes all but the newest keep fits of every (kind, return_field) pair
func (r *Repository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}

	query := `
		DELETE FROM analytics.model_fits
		WHERE fit_id IN (
			SELECT fit_id FROM (
				SELECT fit_id,
					ROW_NUMBER() OVER (PARTITION BY kind, return_field ORDER BY fitted_at DESC) AS rn
				FROM analytics.model_fits
			) ranked
			WHERE rn > $1
		)
	`

	tag, err := r.pool.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("prune model fits: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) scanOne(ctx context.Context, query string, args ...interface{}) (ReturnModel, error) {
	var (
		s                      Snapshot
		kind, field            string
		assets                 []string
		mean, covariance, hist []float64
		fittedAt               time.Time
	)

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.ID, &kind, &field, &assets, &s.Observations, &mean, &covariance, &hist, &fittedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model fit: %w", err)
	}

	s.Kind = ModelKind(kind)
	s.Field = contracts.ReturnField(field)
	s.FittedAt = fittedAt
	for _, a := range assets {
		s.Assets = append(s.Assets, contracts.Asset(a))
	}
	n := len(s.Assets)
	s.Mean = mean
	s.Covariance = reshape(covariance, n)
	s.History = reshape(hist, n)

	return Restore(&s)
}

func assetNames(assets []contracts.Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = string(a)
	}
	return out
}

// nullableArray stores empty slices as NULL
func nullableArray(v []float64) []float64 {
	if len(v) == 0 {
		return nil
	}
	return v
}

// reshape splits a row-major slice into rows of width n
func reshape(flat []float64, n int) [][]float64 {
	if n == 0 || len(flat) == 0 {
		return nil
	}
	out := make([][]float64, 0, len(flat)/n)
	for i := 0; i+n <= len(flat); i += n {
		out = append(out, flat[i:i+n])
	}
	return out
}
