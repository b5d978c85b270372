package models

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/worldmodel/internal/contracts"
)

// returnMatrix is the wide (date × asset) view of one return field
// after dropping incomplete rows. Columns follow canonical asset order.
type returnMatrix struct {
	assets []contracts.Asset
	dates  []time.Time
	data   *mat.Dense // len(dates) × len(assets), no missing cells
}

// pivotReturns builds the complete-case return matrix.
//
//  1. rows with an undefined field value are dropped
//  2. explicit (date index, asset index) outer join
//  3. all-missing columns are dropped
//  4. no remaining columns → ErrDataCoverage
//  5. rows with any missing cell are dropped
func pivotReturns(rows []contracts.MarketRow, field contracts.ReturnField) (*returnMatrix, error) {
	if _, err := contracts.ParseReturnField(string(field)); err != nil {
		return nil, err
	}

	// 자산 인덱스: 값 유무와 무관하게 테이블에 등장한 모든 자산
	assetSet := make(map[contracts.Asset]struct{})
	dateSet := make(map[time.Time]struct{})
	for _, r := range rows {
		assetSet[r.Asset] = struct{}{}
		if _, ok := r.Value(field); ok {
			dateSet[dateOnly(r.Date)] = struct{}{}
		}
	}

	assets := make([]contracts.Asset, 0, len(assetSet))
	for a := range assetSet {
		assets = append(assets, a)
	}
	contracts.SortAssets(assets)

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	assetIdx := make(map[contracts.Asset]int, len(assets))
	for i, a := range assets {
		assetIdx[a] = i
	}
	dateIdx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		dateIdx[d] = i
	}

	// outer join, NaN = 결측
	cells := make([][]float64, len(dates))
	for i := range cells {
		cells[i] = make([]float64, len(assets))
		for j := range cells[i] {
			cells[i][j] = math.NaN()
		}
	}
	for _, r := range rows {
		v, ok := r.Value(field)
		if !ok {
			continue
		}
		i, j := dateIdx[dateOnly(r.Date)], assetIdx[r.Asset]
		if !math.IsNaN(cells[i][j]) {
			return nil, fmt.Errorf("%w: duplicate %s for %s on %s",
				contracts.ErrSchemaInconsistency, field, r.Asset, r.Date.Format("2006-01-02"))
		}
		cells[i][j] = v
	}

	// 3. 전부 결측인 컬럼 제거 (행 제거보다 먼저)
	var keep []int
	for j := range assets {
		for i := range dates {
			if !math.IsNaN(cells[i][j]) {
				keep = append(keep, j)
				break
			}
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("%w: field %s", contracts.ErrDataCoverage, field)
	}

	kept := make([]contracts.Asset, len(keep))
	for k, j := range keep {
		kept[k] = assets[j]
	}

	// 5. 결측 셀이 하나라도 있는 행 제거
	var data []float64
	var complete []time.Time
	for i, d := range dates {
		row := make([]float64, len(keep))
		ok := true
		for k, j := range keep {
			if math.IsNaN(cells[i][j]) {
				ok = false
				break
			}
			row[k] = cells[i][j]
		}
		if ok {
			data = append(data, row...)
			complete = append(complete, d)
		}
	}

	m := &returnMatrix{assets: kept, dates: complete}
	if len(complete) > 0 {
		m.data = mat.NewDense(len(complete), len(kept), data)
	}
	return m, nil
}

// dateOnly keys a row by its calendar date, dropping clock and zone
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// rows returns the number of complete observations
func (m *returnMatrix) rows() int {
	return len(m.dates)
}
