package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/opensource-finance/leadscore/internal/activity"
	"github.com/opensource-finance/leadscore/internal/bus"
	"github.com/opensource-finance/leadscore/internal/contact"
	"github.com/opensource-finance/leadscore/internal/domain"
	"github.com/opensource-finance/leadscore/internal/pipeline"
	"github.com/opensource-finance/leadscore/internal/qualification"
	"github.com/opensource-finance/leadscore/internal/repository"
	"github.com/opensource-finance/leadscore/internal/scoring"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	repo          domain.Repository
	cache         domain.Cache
	bus           domain.EventBus
	processor     *pipeline.Processor
	activities    *activity.Service
	qualification *qualification.Engine
	normalizer    *contact.Normalizer
	version       string
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = contact.NewNormalizer("")
	}
	return &Handler{
		repo:          deps.Repo,
		cache:         deps.Cache,
		bus:           deps.Bus,
		processor:     deps.Processor,
		activities:    deps.Activities,
		qualification: deps.Qualification,
		normalizer:    normalizer,
		version:       deps.Version,
	}
}

// ScoreRequest is the request body for POST /score. When Rules is set the
// lead is scored against those rules instead of the tenant's rules.
type ScoreRequest struct {
	Lead  domain.LeadRequest          `json:"lead" validate:"required"`
	Rules []domain.ScoringRuleRequest `json:"rules,omitempty" validate:"omitempty,dive"`
}

// Score handles POST /score: an ad-hoc lead that is scored but not stored.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req ScoreRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lead := req.Lead.ToLead(tenantID)
	h.normalizer.NormalizeLead(lead)

	if len(req.Rules) == 0 {
		resp, err := h.processor.Score(ctx, tenantID, lead, traceID)
		if err != nil {
			slog.Error("scoring failed", "tenant_id", tenantID, "error", err)
			writeError(w, http.StatusInternalServerError, "scoring failed")
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	configs := make([]domain.ScoringRule, len(req.Rules))
	for i := range req.Rules {
		configs[i] = *req.Rules[i].ToScoringRule(tenantID)
	}
	rs, err := scoring.Compile(configs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rules: "+err.Error())
		return
	}

	score := scoring.Score(lead, rs)
	resp := &domain.ScoreResponse{
		Score:        &score,
		CalculatedAt: time.Now().UTC(),
		Metadata: domain.ScoreMetadata{
			TraceID:       traceID,
			RulesLoaded:   rs.Len(),
			EngineVersion: pipeline.EngineVersion,
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"
	checks := map[string]string{}

	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			status = "degraded"
			checks[name] = err.Error()
			return
		}
		checks[name] = "ok"
	}

	if h.repo != nil {
		check("repository", h.repo.Ping)
	}
	if h.cache != nil {
		check("cache", h.cache.Ping)
	}
	if h.bus != nil {
		check("eventBus", h.bus.Ping)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil || h.processor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// publish sends a lead event when an event bus is configured. Failures are
// logged; the request has already succeeded.
func (h *Handler) publish(ctx context.Context, topic string, event *domain.LeadEvent) {
	if h.bus == nil {
		return
	}
	if err := bus.PublishLeadEvent(ctx, h.bus, topic, event); err != nil {
		slog.Warn("failed to publish event",
			"topic", topic,
			"lead_id", event.LeadID,
			"error", err,
		)
	}
}

// decodeAndValidate decodes a JSON body into dst and validates it. On
// failure it writes the 400 response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	if err := validateStruct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeStoreError maps repository errors to HTTP responses.
func writeStoreError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("storage error", "resource", what, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to access "+what)
	}
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return v, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
