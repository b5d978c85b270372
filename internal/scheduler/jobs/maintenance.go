package jobs

import (
	"context"

	"github.com/wonny/worldmodel/pkg/logger"
)

// ModelPruner removes superseded model fits
type ModelPruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// ModelPruneJob keeps only the newest fits per (kind, field)
type ModelPruneJob struct {
	pruner ModelPruner
	keep   int
	logger *logger.Logger
}

// NewModelPruneJob creates a new model prune job
func NewModelPruneJob(pruner ModelPruner, keep int, log *logger.Logger) *ModelPruneJob {
	return &ModelPruneJob{
		pruner: pruner,
		keep:   keep,
		logger: log,
	}
}

// Name returns the job name
func (j *ModelPruneJob) Name() string {
	return "model_prune"
}

// Schedule returns the cron schedule (Sunday 03:00)
func (j *ModelPruneJob) Schedule() string {
	return "0 0 3 * * 0"
}

// Run executes the prune
func (j *ModelPruneJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled model prune")

	count, err := j.pruner.Prune(ctx, j.keep)
	if err != nil {
		return err
	}

	if count > 0 {
		j.logger.WithField("removed", count).Info("Model prune completed")
	}

	return nil
}
