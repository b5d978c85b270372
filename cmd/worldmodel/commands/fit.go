package commands

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/worldmodel/internal/models"
)

// fitCmd represents the fit command
var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "S2: 수익률 분포 적합",
	Long: `피처 테이블에서 수익률 분포를 적합하고 analytics.model_fits 에 저장합니다.

Kinds:
  gaussian   - 평균 + 공분산(+1e-8·I) 다변량 정규
  bootstrap  - 결측 없는 과거 수익률 벡터 복원 추출

Example:
  go run ./cmd/worldmodel fit
  go run ./cmd/worldmodel fit --kind bootstrap --field realized_vol_20d
  go run ./cmd/worldmodel fit --out model.yaml`,
	RunE: runFit,
}

var (
	fitKind   string
	fitField  string
	fitMinObs int
	fitOut    string
)

func init() {
	rootCmd.AddCommand(fitCmd)
	fitCmd.Flags().StringVar(&fitKind, "kind", "", "모델 종류 (기본: MODEL_KIND)")
	fitCmd.Flags().StringVar(&fitField, "field", "", "적합 컬럼 (기본: MODEL_RETURN_FIELD)")
	fitCmd.Flags().IntVar(&fitMinObs, "min-obs", 0, "최소 공통 관측일 (기본: MODEL_MIN_OBSERVATIONS)")
	fitCmd.Flags().StringVar(&fitOut, "out", "", "YAML 스냅샷 출력 경로")
}

func runFit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fc, err := fitConfig(a.cfg, fitKind, fitField, fitMinObs)
	if err != nil {
		return err
	}

	orch, err := a.orchestrator(nil)
	if err != nil {
		return err
	}

	model, err := orch.FitModel(ctx, fc)
	if err != nil {
		return err
	}

	printModel(model)

	if fitOut != "" {
		if err := writeModelFile(fitOut, model); err != nil {
			return err
		}
		PrintSuccess("Snapshot written to " + fitOut)
	}

	PrintJobCompletion(time.Since(start).Seconds())
	return nil
}

func writeModelFile(path string, model models.ReturnModel) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := models.WriteYAML(f, model); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readModelFile(path string) (models.ReturnModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return models.ReadYAML(f)
}

func printModel(model models.ReturnModel) {
	PrintDoubleSeparator()
	PrintKeyValue("Model ID", model.ID(), 12)
	PrintKeyValue("Kind", model.Name(), 12)
	PrintKeyValue("Field", string(model.Field()), 12)
	PrintKeyValue("Observations", fmt.Sprint(model.Observations()), 12)
	PrintKeyValue("Fitted at", model.FittedAt().Format(time.RFC3339), 12)
	PrintSeparator()

	g, ok := model.(*models.GaussianReturnModel)
	if !ok {
		names := make([]string, 0, len(model.Assets()))
		for _, asset := range model.Assets() {
			names = append(names, string(asset))
		}
		PrintList(names)
		return
	}

	mean := g.Mean()
	cov := g.Covariance()
	widths := []int{18, 14, 14}
	PrintTableHeader([]string{"Asset", "Mean", "StdDev"}, widths)
	for i, asset := range g.Assets() {
		PrintTableRow([]string{
			string(asset),
			fmt.Sprintf("%.6f", mean[i]),
			fmt.Sprintf("%.6f", math.Sqrt(cov.At(i, i))),
		}, widths)
	}
}
