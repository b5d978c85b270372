package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/internal/pipeline"
	"github.com/wonny/worldmodel/internal/s0_data"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "S0+S1: 피처 테이블 생성",
	Long: `원시 가격을 영업일 캘린더에 정렬(forward-fill)하고
자산별 log_return_1d, realized_vol_20d 를 계산해 data.market_daily 를 갱신합니다.

--csv 를 주면 data.raw_prices 대신 CSV 파일을 소스로 사용합니다.

Example:
  go run ./cmd/worldmodel build
  go run ./cmd/worldmodel build --csv prices.csv --strict`,
	RunE: runBuild,
}

var (
	buildStrict bool
	buildCSV    string
)

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVar(&buildStrict, "strict", false, "품질 게이트 실패 시 저장하지 않고 중단")
	buildCmd.Flags().StringVar(&buildCSV, "csv", "", "원시 가격 CSV (기본: data.raw_prices)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var source contracts.PriceSource
	if buildCSV != "" {
		obs, err := readPriceFile(buildCSV)
		if err != nil {
			return err
		}
		source = s0_data.NewStaticSource(obs)
	}

	orch, err := a.orchestrator(source)
	if err != nil {
		return err
	}

	PrintJobHeader(JobMetadata{
		JobType:   "Feature Build (S0 → S1)",
		Tag:       "Build",
		Timestamp: time.Now().Format(time.RFC3339),
	})

	result, err := orch.BuildFeatures(ctx, pipeline.BuildConfig{Strict: buildStrict})
	if result != nil {
		printStages(result.Stages)
	}
	if err != nil {
		return err
	}

	q := result.QualitySnapshot
	PrintSeparator()
	PrintKeyValue("Run ID", result.RunID, 14)
	PrintKeyValue("Period", fmt.Sprintf("%s ~ %s", q.StartDate.Format("2006-01-02"), q.EndDate.Format("2006-01-02")), 14)
	PrintKeyValue("Business days", fmt.Sprint(q.TotalDays), 14)
	PrintKeyValue("Valid assets", fmt.Sprintf("%d / %d", q.ValidAssets, q.TotalAssets), 14)
	PrintKeyValue("Quality score", fmt.Sprintf("%.3f", q.QualityScore), 14)
	PrintKeyValue("Rows", fmt.Sprint(result.Rows), 14)

	if missing := q.MissingAssets(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = fmt.Sprintf("%s (%s)", m, contracts.AssetTickers[m])
		}
		PrintWarning("Assets missing from the price source:")
		PrintList(names)
	}

	PrintJobCompletion(result.Duration.Seconds())
	return nil
}

func printStages(stages []contracts.PipelineResult) {
	widths := []int{6, 24, 4, 8, 8, 8}
	PrintTableHeader([]string{"Stage", "", "OK", "In", "Out", "ms"}, widths)
	for _, s := range stages {
		ok := "yes"
		if !s.Success {
			ok = "no"
		}
		PrintTableRow([]string{
			s.Stage.ShortName(),
			s.Stage.Description(),
			ok,
			fmt.Sprint(s.InputCount),
			fmt.Sprint(s.OutputCount),
			fmt.Sprint(s.Duration),
		}, widths)
		if s.Error != "" {
			PrintError(s.Error)
		}
	}
}
