package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/worldmodel/internal/api/handlers"
	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/internal/models"
	"github.com/wonny/worldmodel/internal/pipeline"
	"github.com/wonny/worldmodel/pkg/config"
	"github.com/wonny/worldmodel/pkg/logger"
	"github.com/wonny/worldmodel/pkg/redis"
)

type fakeFeatures struct {
	rows []contracts.MarketRow
	got  []contracts.Asset
}

func (f *fakeFeatures) LoadFeaturesRange(ctx context.Context, from, to time.Time, assets []contracts.Asset) ([]contracts.MarketRow, error) {
	f.got = assets
	return f.rows, nil
}

type fakeQuality struct{ snapshot *contracts.DataQualitySnapshot }

func (f *fakeQuality) GetLatest(ctx context.Context) (*contracts.DataQualitySnapshot, error) {
	if f.snapshot == nil {
		return nil, fmt.Errorf("%w: no quality snapshot recorded", contracts.ErrInputMissing)
	}
	return f.snapshot, nil
}

type fakeModels struct{ model models.ReturnModel }

func (f *fakeModels) Latest(ctx context.Context, kind models.ModelKind, field contracts.ReturnField) (models.ReturnModel, error) {
	if f.model == nil || f.model.Kind() != kind || f.model.Field() != field {
		return nil, models.ErrModelNotFound
	}
	return f.model, nil
}

func (f *fakeModels) GetByID(ctx context.Context, id string) (models.ReturnModel, error) {
	if f.model == nil || f.model.ID() != id {
		return nil, models.ErrModelNotFound
	}
	return f.model, nil
}

type testServer struct {
	handler  http.Handler
	features *fakeFeatures
	quality  *fakeQuality
	models   *fakeModels
}

func newTestServer(t *testing.T, limits config.RateLimitConfig) *testServer {
	t.Helper()
	log := logger.Nop()

	model, err := models.NewBootstrapReturnModel(contracts.FieldLogReturn1D,
		[]contracts.Asset{contracts.AssetSPX, contracts.AssetGold},
		[]float64{0.01, -0.005, -0.02, 0.004}, time.Now().UTC())
	require.NoError(t, err)

	ts := &testServer{
		features: &fakeFeatures{},
		quality:  &fakeQuality{},
		models:   &fakeModels{model: model},
	}

	orch := pipeline.NewOrchestrator(nil, nil, nil, nil, nil, nil, log)
	modelHandler := handlers.NewModelHandler(
		ts.models,
		orch,
		redis.NewCache(redis.Disabled(), "test"),
		redis.NewRateLimiter(redis.Disabled(), "test"),
		handlers.ModelDefaults{
			Kind:      models.KindBootstrap,
			Field:     contracts.FieldLogReturn1D,
			Steps:     5,
			Scenarios: 10,
			CacheTTL:  time.Minute,
		},
		log,
	)
	ts.handler = NewRouter(handlers.NewDataHandler(ts.features, ts.quality, log), modelHandler, limits, log)
	return ts
}

func defaultLimits() config.RateLimitConfig {
	return config.RateLimitConfig{RPS: 1000, Burst: 1000}
}

func (ts *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, defaultLimits())
	rec := ts.do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "worldmodel-api")
}

func TestGetFeatures(t *testing.T) {
	ts := newTestServer(t, defaultLimits())
	ts.features.rows = []contracts.MarketRow{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Asset: contracts.AssetSPX, ClosePrice: contracts.Float(4700)},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Asset: contracts.AssetSPX, ClosePrice: contracts.Float(4704.7), LogReturn1D: contracts.Float(0.001)},
	}

	rec := ts.do("GET", "/api/features?from=2024-01-01&to=2024-01-31&assets=SPX,GC%3DF", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []contracts.Asset{contracts.AssetSPX, contracts.AssetGold}, ts.features.got)

	var body struct {
		Count int                          `json:"count"`
		Data  []handlers.FeatureRowResponse `json:"data"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "2024-01-02", body.Data[0].Date)
	assert.Nil(t, body.Data[0].LogReturn1D)
	assert.Nil(t, body.Data[1].RealizedVol20D)
	assert.InDelta(t, 0.001, *body.Data[1].LogReturn1D, 1e-12)
}

func TestGetFeatures_BadRequest(t *testing.T) {
	ts := newTestServer(t, defaultLimits())

	tests := []string{
		"/api/features?from=01-01-2024",
		"/api/features?from=2024-02-01&to=2024-01-01",
		"/api/features?assets=DOGE",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, ts.do("GET", path, nil).Code)
		})
	}
}

func TestGetQuality(t *testing.T) {
	ts := newTestServer(t, defaultLimits())
	assert.Equal(t, http.StatusNotFound, ts.do("GET", "/api/data/quality", nil).Code)

	ts.quality.snapshot = &contracts.DataQualitySnapshot{RunID: "r1", QualityScore: 0.9, Passed: true}
	rec := ts.do("GET", "/api/data/quality", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got contracts.DataQualitySnapshot
	decode(t, rec, &got)
	assert.Equal(t, "r1", got.RunID)
	assert.True(t, got.Passed)
}

func TestGetModel(t *testing.T) {
	ts := newTestServer(t, defaultLimits())

	rec := ts.do("GET", "/api/model", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.Snapshot
	decode(t, rec, &snap)
	assert.Equal(t, models.KindBootstrap, snap.Kind)
	assert.Equal(t, ts.models.model.ID(), snap.ID)
	assert.Len(t, snap.History, 2)

	assert.Equal(t, http.StatusNotFound, ts.do("GET", "/api/model?kind=gaussian", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do("GET", "/api/model?field=close", nil).Code)

	assert.Equal(t, http.StatusOK, ts.do("GET", "/api/model/"+snap.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do("GET", "/api/model/unknown", nil).Code)
}

type sampleBody struct {
	ModelID string `json:"model_id"`
	Paths   struct {
		Shape  [3]int            `json:"shape"`
		Assets []contracts.Asset `json:"assets"`
		Seed   uint64            `json:"seed"`
		Paths  [][][]float64     `json:"paths"`
	} `json:"paths"`
	Summary *struct {
		ModelID string `json:"model_id"`
	} `json:"summary"`
}

func TestSample(t *testing.T) {
	ts := newTestServer(t, defaultLimits())

	rec := ts.do("POST", "/api/model/sample", map[string]interface{}{"steps": 3, "scenarios": 4, "seed": 9})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var first sampleBody
	decode(t, rec, &first)
	assert.Equal(t, ts.models.model.ID(), first.ModelID)
	assert.Equal(t, [3]int{4, 3, 2}, first.Paths.Shape)
	assert.Equal(t, uint64(9), first.Paths.Seed)
	assert.Nil(t, first.Summary)

	// 같은 seed → 같은 경로
	var second sampleBody
	decode(t, ts.do("POST", "/api/model/sample", map[string]interface{}{"steps": 3, "scenarios": 4, "seed": 9}), &second)
	assert.Equal(t, first.Paths.Paths, second.Paths.Paths)

	// 기본 shape
	var defaults sampleBody
	decode(t, ts.do("POST", "/api/model/sample", map[string]interface{}{"model_id": first.ModelID}), &defaults)
	assert.Equal(t, [3]int{10, 5, 2}, defaults.Paths.Shape)

	rec = ts.do("POST", "/api/model/sample", map[string]interface{}{"steps": 2, "scenarios": 30, "summarize": true})
	require.Equal(t, http.StatusOK, rec.Code)
	var summarized sampleBody
	decode(t, rec, &summarized)
	require.NotNil(t, summarized.Summary)
	assert.Equal(t, first.ModelID, summarized.Summary.ModelID)
}

func TestSample_Errors(t *testing.T) {
	ts := newTestServer(t, defaultLimits())

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"negative steps", map[string]interface{}{"steps": -1, "scenarios": 4}, http.StatusBadRequest},
		{"unknown kind", map[string]interface{}{"kind": "garch"}, http.StatusBadRequest},
		{"unknown model", map[string]interface{}{"model_id": "nope"}, http.StatusNotFound},
		{"too few scenarios to summarize", map[string]interface{}{"steps": 2, "scenarios": 4, "summarize": true}, http.StatusUnprocessableEntity},
		{"weights outside model", map[string]interface{}{"scenarios": 30, "summarize": true, "weights": map[string]float64{"VIX": 1}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do("POST", "/api/model/sample", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestSample_RateLimited(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{RPS: 0.001, Burst: 1})
	body := map[string]interface{}{"steps": 1, "scenarios": 1}

	assert.Equal(t, http.StatusOK, ts.do("POST", "/api/model/sample", body).Code)
	rec := ts.do("POST", "/api/model/sample", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// 다른 엔드포인트는 제한 없음
	assert.Equal(t, http.StatusOK, ts.do("GET", "/health", nil).Code)
}
