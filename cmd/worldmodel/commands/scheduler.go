package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/worldmodel/internal/scheduler"
	"github.com/wonny/worldmodel/internal/scheduler/jobs"
	"github.com/wonny/worldmodel/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/worldmodel scheduler start
  go run ./cmd/worldmodel scheduler list
  go run ./cmd/worldmodel scheduler run feature_build`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- feature_build: SCHEDULE_FEATURE_BUILD (기본 평일 22:30, S0+S1)
- model_refit:   SCHEDULE_MODEL_REFIT (기본 평일 23:00, S2 + 캐시 무효화)
- model_prune:   매주 일요일 03:00 (종류/컬럼별 최신 적합만 보관)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

// pruneKeep 종류/컬럼별 보관할 적합 모델 수
const pruneKeep = 30

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== worldmodel Scheduler ===")

	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	// Start scheduler
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.GetAllJobs())
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	stats := sched.GetJobStats()
	widths := []int{16, 20}
	PrintTableHeader([]string{"Job", "Schedule"}, widths)
	for _, name := range sched.GetAllJobs() {
		PrintTableRow([]string{name, stats[name].Schedule}, widths)
	}
	return nil
}

// runJob runs a job in the foreground, retries included
func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	result, err := sched.RunJobSync(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	PrintKeyValue("Job", result.JobName, 9)
	PrintKeyValue("Attempts", fmt.Sprint(result.Attempts), 9)
	PrintKeyValue("Duration", result.Duration.String(), 9)
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess("Job completed")
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	stats := sched.GetJobStats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for _, jobName := range sched.GetAllJobs() {
		stat := stats[jobName]
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	return nil
}

// initScheduler wires every job; cleanup closes the DB and Redis connections
func initScheduler() (*scheduler.Scheduler, func(), error) {
	ctx := context.Background()

	// 1. Config, logger, database
	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}

	// 2. Redis (모델 캐시 무효화용, 비활성 시 no-op)
	rc, err := redis.New(ctx, a.cfg)
	if err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	cleanup := func() {
		rc.Close()
		a.Close()
	}

	// 3. Pipeline
	orch, err := a.orchestrator(nil)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	fc, err := fitConfig(a.cfg, "", "", 0)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// 4. Create scheduler + register jobs
	sched := scheduler.New(a.log)
	for _, job := range []scheduler.Job{
		jobs.NewFeatureBuildJob(orch, a.cfg.Schedule.FeatureBuild, false, a.log),
		jobs.NewModelRefitJob(orch, fc, a.cfg.Schedule.ModelRefit, redis.NewCache(rc, "worldmodel"), a.log),
		jobs.NewModelPruneJob(a.models, pruneKeep, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	return sched, cleanup, nil
}
