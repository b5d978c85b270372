package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/worldmodel/internal/models"
	"github.com/wonny/worldmodel/internal/pipeline"
	"github.com/wonny/worldmodel/internal/risk"
	"github.com/wonny/worldmodel/pkg/logger"
)

// sampleCmd represents the sample command
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "S3: 수익률 경로 샘플링",
	Long: `적합된 모델에서 (scenarios, steps, assets) 수익률 경로를 샘플링합니다.

--model 로 YAML 스냅샷을 주면 DB 없이 동작합니다.
그렇지 않으면 DB의 최신 적합 모델 (MODEL_KIND / MODEL_RETURN_FIELD)을 사용합니다.

Example:
  go run ./cmd/worldmodel sample --model model.yaml --steps 20 --scenarios 1000 --seed 42
  go run ./cmd/worldmodel sample --summarize --out paths.json`,
	RunE: runSample,
}

var (
	sampleModel     string
	sampleKind      string
	sampleField     string
	sampleSteps     int
	sampleScenarios int
	sampleSeed      uint64
	sampleSummarize bool
	sampleOut       string
)

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().StringVar(&sampleModel, "model", "", "YAML 모델 스냅샷 경로")
	sampleCmd.Flags().StringVar(&sampleKind, "kind", "", "DB 조회 시 모델 종류")
	sampleCmd.Flags().StringVar(&sampleField, "field", "", "DB 조회 시 적합 컬럼")
	sampleCmd.Flags().IntVar(&sampleSteps, "steps", 0, "경로 길이 (기본: SAMPLE_DEFAULT_STEPS)")
	sampleCmd.Flags().IntVar(&sampleScenarios, "scenarios", 0, "시나리오 수 (기본: SAMPLE_DEFAULT_SCENARIOS)")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 0, "난수 시드 (0: SAMPLE_SEED, 그것도 0이면 랜덤)")
	sampleCmd.Flags().BoolVar(&sampleSummarize, "summarize", true, "horizon 리스크 요약 출력")
	sampleCmd.Flags().StringVar(&sampleOut, "out", "", "경로 JSON 출력 경로")
}

func runSample(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg)

	var model models.ReturnModel
	if sampleModel != "" {
		if model, err = readModelFile(sampleModel); err != nil {
			return err
		}
	} else {
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		fc, err := fitConfig(cfg, sampleKind, sampleField, 0)
		if err != nil {
			return err
		}
		if model, err = a.models.Latest(ctx, fc.Kind, fc.Field); err != nil {
			return err
		}
	}

	req := pipeline.SampleRequest{
		Steps:     firstPositive(sampleSteps, cfg.Model.DefaultSteps),
		Scenarios: firstPositive(sampleScenarios, cfg.Model.DefaultScenarios),
		Summarize: sampleSummarize,
	}
	if seed := firstNonZero(sampleSeed, cfg.Model.Seed); seed != 0 {
		req.Seed = &seed
	}

	// 샘플링만 쓰므로 소스/스토어 없이 구성
	orch := pipeline.NewOrchestrator(nil, nil, nil, nil, nil, nil, log)
	result, err := orch.Sample(ctx, model, req)
	if err != nil {
		return err
	}

	printModel(model)
	PrintKeyValue("Shape", fmt.Sprint(result.Paths.Shape()), 12)
	PrintKeyValue("Seed", fmt.Sprint(result.Paths.Seed()), 12)

	if result.Summary != nil {
		printSummary(result.Summary)
	}

	if sampleOut != "" {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode paths: %w", err)
		}
		if err := os.WriteFile(sampleOut, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", sampleOut, err)
		}
		PrintSuccess("Paths written to " + sampleOut)
	}

	PrintJobCompletion(time.Since(start).Seconds())
	return nil
}

func printSummary(s *risk.PathSummary) {
	PrintSeparator()
	fmt.Printf("Horizon distribution (%s, %d steps)\n", s.Config.ReturnType, s.Shape[1])

	ps := append([]int(nil), s.Config.Percentiles...)
	sort.Ints(ps)
	lo, hi := ps[0], ps[len(ps)-1]

	widths := []int{18, 10, 10, 10, 10, 10}
	PrintTableHeader([]string{
		"Asset", "Mean", "StdDev",
		fmt.Sprintf("VaR%.0f", s.Config.ConfidenceLevels[0]*100),
		fmt.Sprintf("P%d", lo), fmt.Sprintf("P%d", hi),
	}, widths)
	for _, a := range s.Assets {
		PrintTableRow([]string{
			string(a.Asset),
			fmt.Sprintf("%.4f", a.MeanReturn),
			fmt.Sprintf("%.4f", a.StdDev),
			fmt.Sprintf("%.4f", a.VaR[0].VaR),
			fmt.Sprintf("%.4f", a.Percentiles[lo]),
			fmt.Sprintf("%.4f", a.Percentiles[hi]),
		}, widths)
	}
}

func firstPositive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func firstNonZero(v, fallback uint64) uint64 {
	if v != 0 {
		return v
	}
	return fallback
}
