package commands

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/internal/features"
	"github.com/wonny/worldmodel/internal/models"
	"github.com/wonny/worldmodel/internal/pipeline"
	"github.com/wonny/worldmodel/internal/s0_data"
	"github.com/wonny/worldmodel/internal/s0_data/quality"
	"github.com/wonny/worldmodel/pkg/config"
	"github.com/wonny/worldmodel/pkg/database"
	"github.com/wonny/worldmodel/pkg/logger"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "worldmodel",
	Short: "Cross-asset daily feature table + return path model",
	Long: `worldmodel Unified CLI

10개 글로벌 자산의 일별 가격을 영업일 캘린더에 정렬하고,
로그 수익률/실현 변동성 피처 테이블을 만든 뒤
메모리 없는 수익률 분포를 적합해 시나리오 경로를 샘플링합니다.

Pipeline:
  S0 Align → S1 Features → S2 Fit → S3 Sample

Examples:
  go run ./cmd/worldmodel migrate
  go run ./cmd/worldmodel import prices.csv
  go run ./cmd/worldmodel build
  go run ./cmd/worldmodel fit --out model.yaml
  go run ./cmd/worldmodel sample --model model.yaml --steps 20 --scenarios 1000
  go run ./cmd/worldmodel api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads --config first (if given), then the environment
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Overload(configFile); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// app bundles the dependencies shared by DB-backed commands
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	prices *s0_data.PriceRepository
	models *models.Repository
}

// newApp loads config, logger and the database pool
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		prices: s0_data.NewPriceRepository(db.Pool),
		models: models.NewRepository(db.Pool),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// orchestrator wires the pipeline; source overrides the DB raw price table when non-nil
func (a *app) orchestrator(source contracts.PriceSource) (*pipeline.Orchestrator, error) {
	deriver, err := features.NewDeriver(features.ConfigFrom(a.cfg.Features), a.log)
	if err != nil {
		return nil, err
	}
	if source == nil {
		source = a.prices
	}
	return pipeline.NewOrchestrator(
		source,
		a.prices,
		quality.NewRepository(a.db.Pool),
		a.models,
		quality.NewQualityGate(quality.DefaultConfig()),
		deriver,
		a.log,
	), nil
}

// fitConfig resolves kind/field flags against config defaults
func fitConfig(cfg *config.Config, kindFlag, fieldFlag string, minObs int) (pipeline.FitConfig, error) {
	kindName, fieldName := cfg.Model.Kind, cfg.Model.ReturnField
	if kindFlag != "" {
		kindName = kindFlag
	}
	if fieldFlag != "" {
		fieldName = fieldFlag
	}

	kind, err := models.ParseModelKind(kindName)
	if err != nil {
		return pipeline.FitConfig{}, err
	}
	field, err := contracts.ParseReturnField(fieldName)
	if err != nil {
		return pipeline.FitConfig{}, err
	}
	if minObs <= 0 {
		minObs = cfg.Model.MinObservations
	}

	return pipeline.FitConfig{
		Kind:    kind,
		Field:   field,
		Options: models.FitOptions{MinObservations: minObs},
	}, nil
}
