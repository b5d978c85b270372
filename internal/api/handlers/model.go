package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/internal/models"
	"github.com/wonny/worldmodel/internal/pipeline"
	"github.com/wonny/worldmodel/pkg/logger"
	"github.com/wonny/worldmodel/pkg/redis"
)

// ModelStore reads persisted model fits
type ModelStore interface {
	Latest(ctx context.Context, kind models.ModelKind, field contracts.ReturnField) (models.ReturnModel, error)
	GetByID(ctx context.Context, id string) (models.ReturnModel, error)
}

// Sampler runs S3 on a fitted model
type Sampler interface {
	Sample(ctx context.Context, model models.ReturnModel, req pipeline.SampleRequest) (*pipeline.SampleResult, error)
}

// ModelDefaults are used when a request leaves kind/field/shape unset
type ModelDefaults struct {
	Kind      models.ModelKind
	Field     contracts.ReturnField
	Steps     int
	Scenarios int
	Seed      uint64 // 0 = 요청마다 랜덤
	CacheTTL  time.Duration
}

// ModelHandler handles fitted model and sampling endpoints
type ModelHandler struct {
	store    ModelStore
	sampler  Sampler
	cache    *redis.Cache
	limiter  *redis.RateLimiter
	defaults ModelDefaults
	logger   *logger.Logger
}

// NewModelHandler creates a new model handler
func NewModelHandler(
	store ModelStore,
	sampler Sampler,
	cache *redis.Cache,
	limiter *redis.RateLimiter,
	defaults ModelDefaults,
	log *logger.Logger,
) *ModelHandler {
	return &ModelHandler{
		store:    store,
		sampler:  sampler,
		cache:    cache,
		limiter:  limiter,
		defaults: defaults,
		logger:   log,
	}
}

// GetLatest returns the latest fitted model snapshot
// GET /api/model?kind=gaussian&field=log_return_1d
func (h *ModelHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	kind, field, err := h.selector(r.URL.Query().Get("kind"), r.URL.Query().Get("field"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := h.latestSnapshot(r.Context(), kind, field)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest model")
		respondErr(w, err, "Failed to retrieve model")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// GetByID returns one stored model snapshot
// GET /api/model/{id}
func (h *ModelHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	model, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("model_id", id).Error("Failed to get model")
		respondErr(w, err, "Failed to retrieve model")
		return
	}

	respondJSON(w, http.StatusOK, model.Snapshot())
}

// SampleRequest is the body of POST /api/model/sample
type SampleRequest struct {
	ModelID   string                      `json:"model_id,omitempty"`
	Kind      string                      `json:"kind,omitempty"`
	Field     string                      `json:"field,omitempty"`
	Steps     int                         `json:"steps"`
	Scenarios int                         `json:"scenarios"`
	Seed      *uint64                     `json:"seed,omitempty"`
	Summarize bool                        `json:"summarize"`
	Weights   map[contracts.Asset]float64 `json:"weights,omitempty"`
}

// Sample draws return paths from a fitted model
// POST /api/model/sample
func (h *ModelHandler) Sample(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 인스턴스 간 공유 쿼터 (Redis 비활성 시 통과)
	allowed, remaining, err := h.limiter.Allow(ctx, redis.SampleRateLimit, clientIP(r))
	if err != nil {
		h.logger.WithError(err).Warn("Rate limiter unavailable, admitting request")
	} else {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			respondError(w, http.StatusTooManyRequests, "Sampling quota exceeded")
			return
		}
	}

	var req SampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Steps == 0 {
		req.Steps = h.defaults.Steps
	}
	if req.Scenarios == 0 {
		req.Scenarios = h.defaults.Scenarios
	}
	if req.Seed == nil && h.defaults.Seed != 0 {
		seed := h.defaults.Seed
		req.Seed = &seed
	}

	model, err := h.resolveModel(ctx, req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve model for sampling")
		respondErr(w, err, "Failed to load model")
		return
	}

	result, err := h.sampler.Sample(ctx, model, pipeline.SampleRequest{
		Steps:     req.Steps,
		Scenarios: req.Scenarios,
		Seed:      req.Seed,
		Summarize: req.Summarize,
		Weights:   req.Weights,
	})
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"model_id":  model.ID(),
			"steps":     req.Steps,
			"scenarios": req.Scenarios,
		}).Warn("Sampling failed")
		respondErr(w, err, "Sampling failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// resolveModel loads by id, or the cached latest fit of kind/field
func (h *ModelHandler) resolveModel(ctx context.Context, req SampleRequest) (models.ReturnModel, error) {
	if req.ModelID != "" {
		return h.store.GetByID(ctx, req.ModelID)
	}

	kind, field, err := h.selector(req.Kind, req.Field)
	if err != nil {
		return nil, err
	}
	snapshot, err := h.latestSnapshot(ctx, kind, field)
	if err != nil {
		return nil, err
	}
	return models.Restore(snapshot)
}

// latestSnapshot reads through the Redis cache
func (h *ModelHandler) latestSnapshot(ctx context.Context, kind models.ModelKind, field contracts.ReturnField) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	err := h.cache.GetOrSet(ctx, redis.LatestModelKey(string(kind), string(field)), &snapshot, h.defaults.CacheTTL,
		func() (interface{}, error) {
			m, err := h.store.Latest(ctx, kind, field)
			if err != nil {
				return nil, err
			}
			return m.Snapshot(), nil
		})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (h *ModelHandler) selector(kindParam, fieldParam string) (models.ModelKind, contracts.ReturnField, error) {
	kind, field := h.defaults.Kind, h.defaults.Field

	if kindParam != "" {
		k, err := models.ParseModelKind(kindParam)
		if err != nil {
			return "", "", err
		}
		kind = k
	}
	if fieldParam != "" {
		f, err := contracts.ParseReturnField(fieldParam)
		if err != nil {
			return "", "", err
		}
		field = f
	}
	if kind == "" || field == "" {
		return "", "", fmt.Errorf("%w: model kind and return field are required", contracts.ErrSchemaInconsistency)
	}
	return kind, field, nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
