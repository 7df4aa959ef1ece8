package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/leadscore/internal/domain"
	"github.com/opensource-finance/leadscore/internal/scoring"
)

// CreateLead handles POST /leads. Posting an existing ID updates the lead.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req domain.LeadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lead := req.ToLead(tenantID)
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	h.normalizer.NormalizeLead(lead)

	if err := h.processor.SaveLead(ctx, tenantID, lead); err != nil {
		writeStoreError(w, err, "lead")
		return
	}

	h.publish(ctx, domain.TopicLeadUpserted, &domain.LeadEvent{
		LeadID:   lead.ID,
		TenantID: tenantID,
		TraceID:  GetTraceID(ctx),
		Lead:     lead,
	})

	slog.Info("lead saved", "lead_id", lead.ID, "tenant_id", tenantID)
	writeJSON(w, http.StatusCreated, lead)
}

// ListLeads handles GET /leads with optional status, source, limit and
// offset query parameters.
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter, ok := leadFilter(w, r)
	if !ok {
		return
	}

	leads, err := h.repo.ListLeads(r.Context(), GetTenantID(r.Context()), filter)
	if err != nil {
		writeStoreError(w, err, "leads")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"leads": leads,
		"count": len(leads),
	})
}

// GetLead handles GET /leads/{id}.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lead, err := h.processor.LoadLead(ctx, GetTenantID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "lead")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// DeleteLead handles DELETE /leads/{id}. Activities and questionnaire
// answers are removed with the lead.
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leadID := chi.URLParam(r, "id")

	if err := h.processor.DeleteLead(ctx, GetTenantID(ctx), leadID); err != nil {
		writeStoreError(w, err, "lead")
		return
	}

	slog.Info("lead deleted", "lead_id", leadID, "tenant_id", GetTenantID(ctx))
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "lead deleted",
	})
}

// GetLeadScore handles GET /leads/{id}/score. The score is recomputed on
// every call.
func (h *Handler) GetLeadScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.processor.ScoreStored(ctx, GetTenantID(ctx), chi.URLParam(r, "id"), GetTraceID(ctx))
	if err != nil {
		writeStoreError(w, err, "lead")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListScores handles GET /scores: every matching lead of the tenant is
// rescored and the grade distribution reported.
func (h *Handler) ListScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	start := time.Now()

	filter, ok := leadFilter(w, r)
	if !ok {
		return
	}

	leads, err := h.repo.ListLeads(ctx, tenantID, filter)
	if err != nil {
		writeStoreError(w, err, "leads")
		return
	}

	scores, err := h.processor.ScoreAll(ctx, tenantID, leads)
	if err != nil {
		slog.Error("batch scoring failed", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "scoring failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scores":       scores,
		"count":        len(scores),
		"distribution": scoring.Distribution(scores),
		"totalMs":      time.Since(start).Milliseconds(),
	})
}

// RecordActivity handles POST /leads/{id}/activities.
func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	leadID := chi.URLParam(r, "id")

	if _, err := h.processor.LoadLead(ctx, tenantID, leadID); err != nil {
		writeStoreError(w, err, "lead")
		return
	}

	var req domain.ActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	a := &domain.Activity{
		LeadID: leadID,
		Type:   req.Type,
		Notes:  req.Notes,
	}
	if req.OccurredAt != nil {
		a.OccurredAt = req.OccurredAt.UTC()
	}

	if err := h.activities.Record(ctx, tenantID, a); err != nil {
		slog.Error("failed to record activity", "lead_id", leadID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record activity")
		return
	}

	h.publish(ctx, domain.TopicActivityRecorded, &domain.LeadEvent{
		LeadID:   leadID,
		TenantID: tenantID,
		TraceID:  GetTraceID(ctx),
	})

	writeJSON(w, http.StatusCreated, a)
}

// ListActivities handles GET /leads/{id}/activities. An optional since
// query parameter (RFC 3339) limits the result.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	leadID := chi.URLParam(r, "id")

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = t
	}

	if _, err := h.processor.LoadLead(ctx, tenantID, leadID); err != nil {
		writeStoreError(w, err, "lead")
		return
	}

	activities, err := h.repo.ListActivities(ctx, tenantID, leadID, since)
	if err != nil {
		writeStoreError(w, err, "activities")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"activities": activities,
		"count":      len(activities),
	})
}

// SaveQualification handles PUT /leads/{id}/qualification. Answers are
// merged with earlier ones and the assessment is returned.
func (h *Handler) SaveQualification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	leadID := chi.URLParam(r, "id")

	if _, err := h.processor.LoadLead(ctx, tenantID, leadID); err != nil {
		writeStoreError(w, err, "lead")
		return
	}

	var req domain.QualificationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.qualification.ValidateResponses(req.Responses); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.SaveQualificationResponses(ctx, tenantID, leadID, req.Responses); err != nil {
		writeStoreError(w, err, "qualification")
		return
	}

	h.writeAssessment(w, r, leadID)
}

// GetQualification handles GET /leads/{id}/qualification.
func (h *Handler) GetQualification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leadID := chi.URLParam(r, "id")

	if _, err := h.processor.LoadLead(ctx, GetTenantID(ctx), leadID); err != nil {
		writeStoreError(w, err, "lead")
		return
	}

	h.writeAssessment(w, r, leadID)
}

func (h *Handler) writeAssessment(w http.ResponseWriter, r *http.Request, leadID string) {
	ctx := r.Context()

	responses, err := h.repo.GetQualificationResponses(ctx, GetTenantID(ctx), leadID)
	if err != nil {
		writeStoreError(w, err, "qualification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assessment": h.qualification.Assess(leadID, responses),
		"responses":  responses,
	})
}

// ListQuestions handles GET /qualification/questions.
func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions := h.qualification.Questions()
	writeJSON(w, http.StatusOK, map[string]any{
		"questions": questions,
		"count":     len(questions),
	})
}

func leadFilter(w http.ResponseWriter, r *http.Request) (domain.LeadFilter, bool) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.LeadFilter{}, false
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.LeadFilter{}, false
	}

	q := r.URL.Query()
	return domain.LeadFilter{
		Status: q.Get("status"),
		Source: q.Get("source"),
		Limit:  limit,
		Offset: offset,
	}, true
}
