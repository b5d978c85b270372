package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/pkg/logger"
)

// FeatureReader reads the processed feature table
type FeatureReader interface {
	LoadFeaturesRange(ctx context.Context, from, to time.Time, assets []contracts.Asset) ([]contracts.MarketRow, error)
}

// QualityReader reads S0 quality snapshots
type QualityReader interface {
	GetLatest(ctx context.Context) (*contracts.DataQualitySnapshot, error)
}

// DataHandler handles feature table and data quality endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	features FeatureReader
	quality  QualityReader
	logger   *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(features FeatureReader, quality QualityReader, log *logger.Logger) *DataHandler {
	return &DataHandler{
		features: features,
		quality:  quality,
		logger:   log,
	}
}

// GetQuality returns the latest data quality snapshot
// GET /api/data/quality
func (h *DataHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.quality.GetLatest(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get quality snapshot")
		respondErr(w, err, "Failed to retrieve quality snapshot")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// FeatureRowResponse is one feature table row; null means missing
type FeatureRowResponse struct {
	Date           string   `json:"date"`
	Asset          string   `json:"asset"`
	ClosePrice     *float64 `json:"close_price"`
	LogReturn1D    *float64 `json:"log_return_1d"`
	RealizedVol20D *float64 `json:"realized_vol_20d"`
}

// GetFeatures returns feature table rows sorted by asset then date
// GET /api/features?from=2024-01-01&to=2024-12-31&assets=SPX,Gold
func (h *DataHandler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// 기본: 최근 1년
	to := time.Now().UTC()
	from := to.AddDate(-1, 0, 0)

	var err error
	if s := q.Get("from"); s != "" {
		if from, err = time.Parse("2006-01-02", s); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
			return
		}
	}
	if s := q.Get("to"); s != "" {
		if to, err = time.Parse("2006-01-02", s); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
			return
		}
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "'to' must not be before 'from'")
		return
	}

	assets, err := parseAssets(q.Get("assets"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.features.LoadFeaturesRange(r.Context(), from, to, assets)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"from": from.Format("2006-01-02"),
			"to":   to.Format("2006-01-02"),
		}).Error("Failed to load features")
		respondErr(w, err, "Failed to retrieve features")
		return
	}

	result := make([]FeatureRowResponse, len(rows))
	for i, row := range rows {
		result[i] = FeatureRowResponse{
			Date:           row.Date.Format("2006-01-02"),
			Asset:          string(row.Asset),
			ClosePrice:     row.ClosePrice,
			LogReturn1D:    row.LogReturn1D,
			RealizedVol20D: row.RealizedVol20D,
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(result),
		"data":    result,
	})
}

// parseAssets accepts canonical names or source tickers, comma separated
func parseAssets(raw string) ([]contracts.Asset, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var assets []contracts.Asset
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if a := contracts.Asset(name); contracts.IsCanonical(a) {
			assets = append(assets, a)
			continue
		}
		if a, ok := contracts.AssetByTicker(name); ok {
			assets = append(assets, a)
			continue
		}
		return nil, fmt.Errorf("unknown asset %q", name)
	}
	return assets, nil
}
