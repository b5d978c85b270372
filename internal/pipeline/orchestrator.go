package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/internal/features"
	"github.com/wonny/worldmodel/internal/models"
	"github.com/wonny/worldmodel/internal/risk"
	"github.com/wonny/worldmodel/internal/s0_data"
	"github.com/wonny/worldmodel/internal/s0_data/quality"
	"github.com/wonny/worldmodel/pkg/logger"
)

// SnapshotStore persists S0 quality snapshots
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot *contracts.DataQualitySnapshot) error
}

// ModelStore persists fitted return models
type ModelStore interface {
	Save(ctx context.Context, m models.ReturnModel) error
}

// ErrQualityGate is returned by a strict build whose aligned data fails the quality gate
var ErrQualityGate = errors.New("quality gate failed")

// Orchestrator coordinates the S0 → S3 pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	// Stage components
	aligner     *s0_data.Aligner
	qualityGate *quality.QualityGate
	deriver     *features.Deriver
	riskEngine  *risk.Engine

	// Stores (snapshots / models 는 nil 허용)
	source    contracts.PriceSource
	features  contracts.FeatureStore
	snapshots SnapshotStore
	models    ModelStore

	logger *logger.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	source contracts.PriceSource,
	featureStore contracts.FeatureStore,
	snapshots SnapshotStore,
	modelStore ModelStore,
	qualityGate *quality.QualityGate,
	deriver *features.Deriver,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		aligner:     s0_data.NewAligner(log),
		qualityGate: qualityGate,
		deriver:     deriver,
		riskEngine:  risk.NewEngine(),
		source:      source,
		features:    featureStore,
		snapshots:   snapshots,
		models:      modelStore,
		logger:      log.WithComponent("pipeline"),
	}
}

// BuildConfig holds configuration for a feature build run
type BuildConfig struct {
	RunID  string
	Strict bool // true면 품질 게이트 실패 시 피처 저장 없이 중단
}

// BuildResult holds the results of a feature build run
type BuildResult struct {
	RunID           string
	Success         bool
	CompletedStages []string
	Stages          []contracts.PipelineResult
	QualitySnapshot *contracts.DataQualitySnapshot
	Rows            int
	Duration        time.Duration
}

// BuildFeatures runs S0 (align + quality) and S1 (derive + persist)
func (o *Orchestrator) BuildFeatures(ctx context.Context, config BuildConfig) (*BuildResult, error) {
	startTime := time.Now()
	if config.RunID == "" {
		config.RunID = uuid.New().String()
	}

	result := &BuildResult{
		RunID:           config.RunID,
		CompletedStages: make([]string, 0, 2),
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id": config.RunID,
		"strict": config.Strict,
	}).Info("Starting feature build")

	// S0: Align + Quality Gate
	series, snapshot, stage, err := o.runAlign(ctx, config)
	result.Stages = append(result.Stages, stage)
	if err != nil {
		return result, fmt.Errorf("S0 failed: %w", err)
	}
	result.QualitySnapshot = snapshot
	result.CompletedStages = append(result.CompletedStages, "S0:Align")

	// S1: Features
	rows, stage, err := o.runFeatures(ctx, series)
	result.Stages = append(result.Stages, stage)
	if err != nil {
		return result, fmt.Errorf("S1 failed: %w", err)
	}
	result.Rows = rows
	result.CompletedStages = append(result.CompletedStages, "S1:Features")

	result.Success = true
	result.Duration = time.Since(startTime)

	o.logger.WithFields(map[string]interface{}{
		"run_id":   config.RunID,
		"duration": result.Duration.Seconds(),
		"rows":     rows,
	}).Info("Feature build completed successfully")

	return result, nil
}

// runAlign executes S0: Calendar alignment + Data Quality Gate
func (o *Orchestrator) runAlign(ctx context.Context, config BuildConfig) (*contracts.AlignedPriceSeries, *contracts.DataQualitySnapshot, contracts.PipelineResult, error) {
	log := o.logger.WithStage(contracts.StageAlign)
	log.Info("Running S0: Calendar alignment")
	started := time.Now()

	obs, err := o.source.LoadRawPrices(ctx)
	if err != nil {
		return nil, nil, failed(contracts.StageAlign, 0, started, err), fmt.Errorf("load raw prices: %w", err)
	}

	series, report, err := o.aligner.AlignWithReport(obs)
	if err != nil {
		return nil, nil, failed(contracts.StageAlign, len(obs), started, err), fmt.Errorf("align prices: %w", err)
	}

	snapshot, err := o.qualityGate.Check(series, report)
	if err != nil {
		return nil, nil, failed(contracts.StageAlign, len(obs), started, err), fmt.Errorf("quality gate: %w", err)
	}
	snapshot.RunID = config.RunID

	if o.snapshots != nil {
		if err := o.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			return nil, nil, failed(contracts.StageAlign, len(obs), started, err), fmt.Errorf("save quality snapshot: %w", err)
		}
	}

	fields := map[string]interface{}{
		"quality_score": snapshot.QualityScore,
		"valid_assets":  snapshot.ValidAssets,
		"passed":        snapshot.Passed,
	}
	if !snapshot.Passed {
		if config.Strict {
			err := fmt.Errorf("%w: score=%.2f valid_assets=%d", ErrQualityGate, snapshot.QualityScore, snapshot.ValidAssets)
			return nil, nil, failed(contracts.StageAlign, len(obs), started, err), err
		}
		log.WithFields(fields).Warn("Quality gate not passed, continuing")
	} else {
		log.WithFields(fields).Info("S0 completed")
	}

	return series, snapshot, contracts.PipelineResult{
		Stage:       contracts.StageAlign,
		Success:     true,
		InputCount:  len(obs),
		OutputCount: series.Len(),
		Duration:    time.Since(started).Milliseconds(),
		Metadata: map[string]interface{}{
			"assets":         len(series.Assets),
			"missing_assets": len(report.MissingAssets),
			"dropped":        report.Dropped,
		},
	}, nil
}

// runFeatures executes S1: feature derivation + persistence
func (o *Orchestrator) runFeatures(ctx context.Context, series *contracts.AlignedPriceSeries) (int, contracts.PipelineResult, error) {
	log := o.logger.WithStage(contracts.StageFeatures)
	log.Info("Running S1: Feature derivation")
	started := time.Now()

	rows, err := o.deriver.Derive(series)
	if err != nil {
		return 0, failed(contracts.StageFeatures, series.Len(), started, err), fmt.Errorf("derive features: %w", err)
	}
	if err := o.features.SaveFeatures(ctx, rows); err != nil {
		return 0, failed(contracts.StageFeatures, series.Len(), started, err), fmt.Errorf("save features: %w", err)
	}

	log.WithField("rows", len(rows)).Info("S1 completed")

	return len(rows), contracts.PipelineResult{
		Stage:       contracts.StageFeatures,
		Success:     true,
		InputCount:  series.Len(),
		OutputCount: len(rows),
		Duration:    time.Since(started).Milliseconds(),
	}, nil
}

// FitConfig selects the model variant and the fitted column
type FitConfig struct {
	Kind    models.ModelKind
	Field   contracts.ReturnField
	Options models.FitOptions
}

// FitModel executes S2: load feature table → fit → persist
func (o *Orchestrator) FitModel(ctx context.Context, config FitConfig) (models.ReturnModel, error) {
	log := o.logger.WithStage(contracts.StageFit)
	log.WithFields(map[string]interface{}{
		"kind":  string(config.Kind),
		"field": string(config.Field),
	}).Info("Running S2: Return distribution fit")

	rows, err := o.features.LoadFeatures(ctx)
	if err != nil {
		return nil, fmt.Errorf("S2 failed: load features: %w", err)
	}

	model, err := models.Fit(config.Kind, rows, config.Field, config.Options)
	if err != nil {
		return nil, fmt.Errorf("S2 failed: %w", err)
	}

	if o.models != nil {
		if err := o.models.Save(ctx, model); err != nil {
			return nil, fmt.Errorf("S2 failed: save model: %w", err)
		}
	}

	log.WithFields(map[string]interface{}{
		"model_id":     model.ID(),
		"assets":       len(model.Assets()),
		"observations": model.Observations(),
	}).Info("S2 completed")

	return model, nil
}

// Sample executes S3: path sampling and optional risk summary
func (o *Orchestrator) Sample(ctx context.Context, model models.ReturnModel, req SampleRequest) (*SampleResult, error) {
	if err := ValidateSampleRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := o.logger.WithStage(contracts.StageSample)

	paths, err := model.SamplePaths(req.Steps, req.Scenarios, req.Seed)
	if err != nil {
		return nil, fmt.Errorf("S3 failed: %w", err)
	}
	result := &SampleResult{ModelID: model.ID(), Paths: paths}

	if req.Summarize {
		cfg := risk.DefaultSummaryConfig()
		cfg.ReturnType = risk.ReturnTypeFor(model.Field())
		cfg.Weights = req.Weights

		summary, err := o.riskEngine.Summarize(paths, cfg)
		if err != nil {
			return nil, fmt.Errorf("S3 failed: summarize: %w", err)
		}
		summary.ModelID = model.ID()
		result.Summary = summary
	}

	log.WithFields(map[string]interface{}{
		"model_id":  model.ID(),
		"steps":     req.Steps,
		"scenarios": req.Scenarios,
		"seed":      paths.Seed(),
	}).Info("S3 completed")

	return result, nil
}

func failed(stage contracts.Stage, input int, started time.Time, err error) contracts.PipelineResult {
	return contracts.PipelineResult{
		Stage:      stage,
		InputCount: input,
		Duration:   time.Since(started).Milliseconds(),
		Error:      err.Error(),
	}
}
