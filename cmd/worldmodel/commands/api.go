package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/worldmodel/internal/api"
	"github.com/wonny/worldmodel/internal/api/handlers"
	"github.com/wonny/worldmodel/internal/s0_data/quality"
	"github.com/wonny/worldmodel/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health               - Health check
  GET  /api/data/quality     - 최신 품질 스냅샷
  GET  /api/features         - 피처 테이블 조회 (?from&to&assets)
  GET  /api/model            - 최신 적합 모델 (?kind&field)
  GET  /api/model/{id}       - 모델 스냅샷
  POST /api/model/sample     - 경로 샘플링

Example:
  go run ./cmd/worldmodel api
  go run ./cmd/worldmodel api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== worldmodel API Server ===")
	ctx := context.Background()

	// 1. Config, logger, database
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// 2. Redis (비활성 시 no-op)
	rc, err := redis.New(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rc.Close()

	// 3. Pipeline (샘플링 전용으로 사용)
	orch, err := a.orchestrator(nil)
	if err != nil {
		return err
	}

	fc, err := fitConfig(a.cfg, "", "", 0)
	if err != nil {
		return err
	}

	// 4. Handlers
	dataHandler := handlers.NewDataHandler(a.prices, quality.NewRepository(a.db.Pool), a.log)
	modelHandler := handlers.NewModelHandler(
		a.models,
		orch,
		redis.NewCache(rc, "worldmodel"),
		redis.NewRateLimiter(rc, "worldmodel"),
		handlers.ModelDefaults{
			Kind:      fc.Kind,
			Field:     fc.Field,
			Steps:     a.cfg.Model.DefaultSteps,
			Scenarios: a.cfg.Model.DefaultScenarios,
			Seed:      a.cfg.Model.Seed,
			CacheTTL:  a.cfg.Redis.ModelTTL,
		},
		a.log,
	)

	// 5. Router + server
	router := api.NewRouter(dataHandler, modelHandler, a.cfg.RateLimit, a.log)
	server := api.New(a.cfg, a.log, router)

	// 6. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
