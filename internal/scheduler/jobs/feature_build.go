package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/worldmodel/internal/pipeline"
	"github.com/wonny/worldmodel/pkg/logger"
)

// FeatureBuilder runs S0 + S1
type FeatureBuilder interface {
	BuildFeatures(ctx context.Context, config pipeline.BuildConfig) (*pipeline.BuildResult, error)
}

// FeatureBuildJob rebuilds the daily feature table from raw prices
// Schedule: 평일 장 마감 이후 (기본 22:30)
type FeatureBuildJob struct {
	builder  FeatureBuilder
	schedule string
	strict   bool
	logger   *logger.Logger
}

// NewFeatureBuildJob creates a new feature build job
func NewFeatureBuildJob(builder FeatureBuilder, schedule string, strict bool, log *logger.Logger) *FeatureBuildJob {
	return &FeatureBuildJob{
		builder:  builder,
		schedule: schedule,
		strict:   strict,
		logger:   log,
	}
}

// Name returns the job name
func (j *FeatureBuildJob) Name() string {
	return "feature_build"
}

// Schedule returns the cron schedule
func (j *FeatureBuildJob) Schedule() string {
	return j.schedule
}

// Run executes the feature build
func (j *FeatureBuildJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled feature build")

	result, err := j.builder.BuildFeatures(ctx, pipeline.BuildConfig{Strict: j.strict})
	if err != nil {
		return fmt.Errorf("feature build: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"rows":     result.Rows,
		"duration": result.Duration.Seconds(),
	}).Info("Scheduled feature build completed")

	return nil
}
