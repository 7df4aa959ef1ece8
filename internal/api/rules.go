package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/leadscore/internal/domain"
)

// ListRules returns the rules loaded for the tenant, in evaluation order.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	engine, err := h.processor.Rules().Engine(ctx, tenantID)
	if err != nil {
		slog.Error("failed to load rules", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load rules")
		return
	}

	loaded := engine.GetLoadedRules()
	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  loaded,
		"count":  len(loaded),
		"active": engine.RuleSet().ActiveCount(),
	})
}

// GetRule retrieves a stored rule by ID, active or not.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rule, err := h.repo.GetScoringRule(ctx, GetTenantID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// CreateRule validates, stores and immediately applies a rule. Posting an
// existing ID replaces that rule. Without a position the rule goes last.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req domain.ScoringRuleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	engine, err := h.processor.Rules().Engine(ctx, tenantID)
	if err != nil {
		slog.Error("failed to load rules", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load rules")
		return
	}

	rule := req.ToScoringRule(tenantID)
	if err := engine.ValidateRule(rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule: "+err.Error())
		return
	}

	if rule.Position == 0 {
		existing, err := h.repo.ListScoringRules(ctx, tenantID)
		if err != nil {
			writeStoreError(w, err, "rules")
			return
		}
		for _, other := range existing {
			if other.ID == rule.ID {
				rule.Position = other.Position
				break
			}
			rule.Position = max(rule.Position, other.Position+1)
		}
		if rule.Position == 0 {
			rule.Position = 1
		}
	}

	if err := h.repo.SaveScoringRule(ctx, tenantID, rule); err != nil {
		writeStoreError(w, err, "rule")
		return
	}
	if err := engine.LoadRule(rule); err != nil {
		slog.Error("stored rule failed to load", "rule_id", rule.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "rule stored but not applied: "+err.Error())
		return
	}

	slog.Info("rule saved", "rule_id", rule.ID, "tenant_id", tenantID, "position", rule.Position)
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule": rule,
	})
}

// DeleteRule removes a rule from storage and from the live rule set.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	ruleID := chi.URLParam(r, "id")

	if err := h.repo.DeleteScoringRule(ctx, tenantID, ruleID); err != nil {
		writeStoreError(w, err, "rule")
		return
	}

	if engine, err := h.processor.Rules().Engine(ctx, tenantID); err == nil {
		engine.UnloadRule(ruleID)
	}

	slog.Info("rule deleted", "rule_id", ruleID, "tenant_id", tenantID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "rule deleted",
	})
}

// ReloadRules reloads the tenant's rules from the database.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	engine, err := h.processor.Rules().Reload(ctx, tenantID)
	if err != nil {
		slog.Error("failed to reload rules", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload rules: "+err.Error())
		return
	}

	slog.Info("rules reloaded from database", "tenant_id", tenantID, "count", engine.RulesCount())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   engine.RulesCount(),
	})
}
