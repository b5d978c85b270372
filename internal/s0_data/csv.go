package s0_data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/worldmodel/internal/contracts"
)

// ReadPricesCSV parses a long-format price table: date, asset, close.
// The asset column accepts canonical names or vendor tickers; an empty close is a missing print.
func ReadPricesCSV(r io.Reader) ([]contracts.PriceObservation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty price file", contracts.ErrInputMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	dateCol, assetCol, closeCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date", "trade_date":
			dateCol = i
		case "asset", "ticker":
			assetCol = i
		case "close", "close_price":
			closeCol = i
		}
	}
	if dateCol < 0 || assetCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("%w: price file needs date, asset and close columns, got %v",
			contracts.ErrSchemaInconsistency, header)
	}

	var obs []contracts.PriceObservation
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(record[dateCol]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad date %q", contracts.ErrSchemaInconsistency, line, record[dateCol])
		}

		name := strings.TrimSpace(record[assetCol])
		asset := contracts.Asset(name)
		if a, ok := contracts.AssetByTicker(name); ok {
			asset = a
		}

		o := contracts.PriceObservation{Date: date, Asset: asset}
		if s := strings.TrimSpace(record[closeCol]); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad close %q", contracts.ErrSchemaInconsistency, line, s)
			}
			o.ClosePrice = contracts.Float(v)
		}
		obs = append(obs, o)
	}

	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: price file has no rows", contracts.ErrInputMissing)
	}
	return obs, nil
}
