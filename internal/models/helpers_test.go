package models

import (
	"math"
	"time"

	"github.com/wonny/worldmodel/internal/contracts"
)

var nan = math.NaN()

func testDates(n int) []time.Time {
	start := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

// buildRows makes a long-format table; NaN marks an undefined log return
func buildRows(cols map[contracts.Asset][]float64) []contracts.MarketRow {
	var rows []contracts.MarketRow
	for asset, values := range cols {
		for i, d := range testDates(len(values)) {
			rows = append(rows, contracts.MarketRow{
				Date:        d,
				Asset:       asset,
				LogReturn1D: contracts.Float(values[i]),
			})
		}
	}
	contracts.SortRows(rows)
	return rows
}

func seed(v uint64) *uint64 { return &v }
