package models

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/pkg/config"
	"github.com/wonny/worldmodel/pkg/database"
)

func TestRepository_SaveAndLatest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, &config.Config{Database: config.DatabaseConfig{
		URL: url, MaxConns: 2, MinConns: 1, MaxConnLifetime: time.Hour, MaxConnIdleTime: time.Minute,
	}})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Migrate(ctx)
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `TRUNCATE analytics.model_fits`)
	require.NoError(t, err)

	repo := NewRepository(db.Pool)

	_, err = repo.Latest(ctx, KindGaussian, contracts.FieldLogReturn1D)
	assert.True(t, errors.Is(err, ErrModelNotFound))

	m := fittedModel(t)
	require.NoError(t, repo.Save(ctx, m))

	got, err := repo.Latest(ctx, KindGaussian, contracts.FieldLogReturn1D)
	require.NoError(t, err)
	assert.Equal(t, m.ID(), got.ID())
	assert.Equal(t, m.Assets(), got.Assets())

	g, ok := got.(*GaussianReturnModel)
	require.True(t, ok)
	assert.Equal(t, m.Mean(), g.Mean())
	assert.Equal(t, m.CovarianceRows(), g.CovarianceRows())

	byID, err := repo.GetByID(ctx, m.ID())
	require.NoError(t, err)
	assert.Equal(t, m.Observations(), byID.Observations())

	newer := fittedModel(t)
	require.NoError(t, repo.Save(ctx, newer))

	deleted, err := repo.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByID(ctx, m.ID())
	assert.True(t, errors.Is(err, ErrModelNotFound))
	got, err = repo.Latest(ctx, KindGaussian, contracts.FieldLogReturn1D)
	require.NoError(t, err)
	assert.Equal(t, newer.ID(), got.ID())
}

func TestReshape(t *testing.T) {
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, reshape([]float64{1, 2, 3, 4}, 2))
	assert.Nil(t, reshape(nil, 2))
	assert.Nil(t, reshape([]float64{1}, 0))
}
