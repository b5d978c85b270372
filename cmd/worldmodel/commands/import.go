package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/internal/s0_data"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import [prices.csv]",
	Short: "원시 가격 CSV 적재",
	Long: `long format 가격 CSV (date, asset|ticker, close)를 data.raw_prices에 upsert 합니다.

asset 컬럼은 자산명(SPX) 또는 티커(^GSPC) 모두 허용합니다.

Example:
  go run ./cmd/worldmodel import prices.csv --source yfinance`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var importSource string

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importSource, "source", "yfinance", "가격 소스 태그")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	obs, err := readPriceFile(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.prices.SaveRawPrices(ctx, obs, importSource); err != nil {
		return fmt.Errorf("save raw prices: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Imported %d observations from %s", len(obs), args[0]))
	return nil
}

func readPriceFile(path string) ([]contracts.PriceObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return s0_data.ReadPricesCSV(f)
}
