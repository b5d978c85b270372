package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/worldmodel/internal/models"
	"github.com/wonny/worldmodel/internal/pipeline"
	"github.com/wonny/worldmodel/pkg/logger"
	"github.com/wonny/worldmodel/pkg/redis"
)

// ModelFitter runs S2
type ModelFitter interface {
	FitModel(ctx context.Context, config pipeline.FitConfig) (models.ReturnModel, error)
}

// ModelRefitJob refits the return model on the latest feature table
// Schedule: feature_build 이후 (기본 23:00)
type ModelRefitJob struct {
	fitter   ModelFitter
	config   pipeline.FitConfig
	schedule string
	cache    *redis.Cache // nil 허용
	logger   *logger.Logger
}

// NewModelRefitJob creates a new model refit job
func NewModelRefitJob(fitter ModelFitter, config pipeline.FitConfig, schedule string, cache *redis.Cache, log *logger.Logger) *ModelRefitJob {
	return &ModelRefitJob{
		fitter:   fitter,
		config:   config,
		schedule: schedule,
		cache:    cache,
		logger:   log,
	}
}

// Name returns the job name
func (j *ModelRefitJob) Name() string {
	return "model_refit"
}

// Schedule returns the cron schedule
func (j *ModelRefitJob) Schedule() string {
	return j.schedule
}

// Run fits, persists and invalidates the cached latest snapshot
func (j *ModelRefitJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled model refit")

	model, err := j.fitter.FitModel(ctx, j.config)
	if err != nil {
		return fmt.Errorf("model refit: %w", err)
	}

	if j.cache != nil {
		key := redis.LatestModelKey(string(j.config.Kind), string(j.config.Field))
		if err := j.cache.Delete(ctx, key); err != nil {
			// 캐시는 TTL로 만료되므로 실패해도 잡은 성공
			j.logger.WithError(err).Warn("Failed to invalidate cached model")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"model_id":     model.ID(),
		"kind":         string(j.config.Kind),
		"observations": model.Observations(),
	}).Info("Scheduled model refit completed")

	return nil
}
