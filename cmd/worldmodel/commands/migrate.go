package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/worldmodel/pkg/database"
	"github.com/wonny/worldmodel/pkg/logger"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 생성",
	Long: `파이프라인이 사용하는 스키마/테이블을 생성합니다 (멱등).

Tables:
  data.raw_prices          - 원시 종가 (long format)
  data.market_daily        - 피처 테이블
  data.quality_snapshots   - S0 품질 스냅샷
  analytics.model_fits     - 적합 모델 스냅샷

Example:
  go run ./cmd/worldmodel migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg)

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	for _, name := range applied {
		PrintSuccess("migration " + name)
	}
	if err != nil {
		return err
	}

	log.WithField("migrations", len(applied)).Info("Schema up to date")
	return nil
}

