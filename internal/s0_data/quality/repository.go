package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/worldmodel/internal/contracts"
)

// Repository handles data quality snapshot persistence
// ⭐ SSOT: S0 품질 스냅샷 저장/조회
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quality repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSnapshot saves a data quality snapshot
func (r *Repository) SaveSnapshot(ctx context.Context, snapshot *contracts.DataQualitySnapshot) error {
	coverageJSON, err := json.Marshal(snapshot.Assets)
	if err != nil {
		return fmt.Errorf("marshal coverage: %w", err)
	}

	query := `
		INSERT INTO data.quality_snapshots (
			run_id, start_date, end_date, total_days, total_assets,
			valid_assets, quality_score, passed, coverage, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.pool.Exec(ctx, query,
		snapshot.RunID,
		snapshot.StartDate,
		snapshot.EndDate,
		snapshot.TotalDays,
		snapshot.TotalAssets,
		snapshot.ValidAssets,
		snapshot.QualityScore,
		snapshot.Passed,
		coverageJSON,
		snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save quality snapshot: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent quality snapshot
func (r *Repository) GetLatest(ctx context.Context) (*contracts.DataQualitySnapshot, error) {
	query := `
		SELECT
			run_id::text, start_date, end_date, total_days, total_assets,
			valid_assets, quality_score, passed, coverage, created_at
		FROM data.quality_snapshots
		ORDER BY created_at DESC
		LIMIT 1
	`

	snapshot := &contracts.DataQualitySnapshot{}
	var coverageJSON []byte

	err := r.pool.QueryRow(ctx, query).Scan(
		&snapshot.RunID,
		&snapshot.StartDate,
		&snapshot.EndDate,
		&snapshot.TotalDays,
		&snapshot.TotalAssets,
		&snapshot.ValidAssets,
		&snapshot.QualityScore,
		&snapshot.Passed,
		&coverageJSON,
		&snapshot.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no quality snapshot recorded", contracts.ErrInputMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest quality snapshot: %w", err)
	}

	if err := json.Unmarshal(coverageJSON, &snapshot.Assets); err != nil {
		return nil, fmt.Errorf("unmarshal coverage: %w", err)
	}
	snapshot.Coverage = make(map[contracts.Asset]float64, len(snapshot.Assets))
	for _, c := range snapshot.Assets {
		snapshot.Coverage[c.Asset] = c.Coverage
	}

	return snapshot, nil
}
