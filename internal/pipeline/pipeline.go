// Package pipeline ties lead storage, activity enrichment and rule
// evaluation together. Both the HTTP API and the async worker score
// leads through a Processor.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/leadscore/internal/activity"
	"github.com/opensource-finance/leadscore/internal/cache"
	"github.com/opensource-finance/leadscore/internal/domain"
	"github.com/opensource-finance/leadscore/internal/scoring"
)

// EngineVersion is reported in score metadata.
const EngineVersion = "1.0.0"

// Processor loads, enriches and scores leads for any tenant.
type Processor struct {
	repo       domain.Repository
	cache      domain.Cache
	rules      *scoring.Registry
	activities *activity.Service
	leadTTL    time.Duration
}

// NewProcessor creates a processor. cache and activities may be nil.
func NewProcessor(repo domain.Repository, c domain.Cache, rules *scoring.Registry, activities *activity.Service, leadTTL time.Duration) *Processor {
	if c == nil {
		c = cache.NopCache{}
	}
	return &Processor{
		repo:       repo,
		cache:      c,
		rules:      rules,
		activities: activities,
		leadTTL:    leadTTL,
	}
}

// Rules returns the tenant rule registry.
func (p *Processor) Rules() *scoring.Registry {
	return p.rules
}

// LoadLead reads a lead through the cache. Cache failures fall back to
// the repository.
func (p *Processor) LoadLead(ctx context.Context, tenantID, leadID string) (*domain.Lead, error) {
	lead, err := p.cache.GetLead(ctx, tenantID, leadID)
	if err != nil {
		slog.Warn("lead cache read failed",
			"tenant_id", tenantID,
			"lead_id", leadID,
			"error", err,
		)
	}
	if lead != nil {
		return lead, nil
	}

	lead, err = p.repo.GetLead(ctx, tenantID, leadID)
	if err != nil {
		return nil, err
	}

	if err := p.cache.SetLead(ctx, tenantID, lead, p.leadTTL); err != nil {
		slog.Warn("lead cache write failed",
			"tenant_id", tenantID,
			"lead_id", leadID,
			"error", err,
		)
	}
	return lead, nil
}

// SaveLead persists a lead and drops any cached copy.
func (p *Processor) SaveLead(ctx context.Context, tenantID string, lead *domain.Lead) error {
	if err := p.repo.SaveLead(ctx, tenantID, lead); err != nil {
		return err
	}
	p.invalidate(ctx, tenantID, lead.ID)
	return nil
}

// DeleteLead removes a lead and drops any cached copy.
func (p *Processor) DeleteLead(ctx context.Context, tenantID, leadID string) error {
	if err := p.repo.DeleteLead(ctx, tenantID, leadID); err != nil {
		return err
	}
	p.invalidate(ctx, tenantID, leadID)
	return nil
}

func (p *Processor) invalidate(ctx context.Context, tenantID, leadID string) {
	if err := p.cache.Delete(ctx, tenantID, cache.LeadKey(leadID)); err != nil {
		slog.Warn("lead cache invalidation failed",
			"tenant_id", tenantID,
			"lead_id", leadID,
			"error", err,
		)
	}
}

// Enrich applies recent activity signals to a copy of the lead. Without
// an activity service the lead is returned unchanged.
func (p *Processor) Enrich(ctx context.Context, tenantID string, lead *domain.Lead) (*domain.Lead, error) {
	if p.activities == nil || lead == nil || lead.ID == "" {
		return lead, nil
	}
	enriched, err := p.activities.Enrich(ctx, tenantID, lead)
	if err != nil {
		return nil, fmt.Errorf("failed to enrich lead %s: %w", lead.ID, err)
	}
	return enriched, nil
}

// Score enriches and scores one lead with the tenant's rules.
func (p *Processor) Score(ctx context.Context, tenantID string, lead *domain.Lead, traceID string) (*domain.ScoreResponse, error) {
	start := time.Now()

	engine, err := p.rules.Engine(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	enriched, err := p.Enrich(ctx, tenantID, lead)
	if err != nil {
		return nil, err
	}

	score := engine.ScoreLead(enriched)
	return &domain.ScoreResponse{
		Score:        &score,
		CalculatedAt: time.Now().UTC(),
		Metadata: domain.ScoreMetadata{
			TraceID:       traceID,
			RulesLoaded:   engine.RulesCount(),
			TotalMs:       time.Since(start).Milliseconds(),
			EngineVersion: EngineVersion,
		},
	}, nil
}

// ScoreStored loads a stored lead and scores it.
func (p *Processor) ScoreStored(ctx context.Context, tenantID, leadID, traceID string) (*domain.ScoreResponse, error) {
	lead, err := p.LoadLead(ctx, tenantID, leadID)
	if err != nil {
		return nil, err
	}
	return p.Score(ctx, tenantID, lead, traceID)
}

// ScoreAll enriches and scores leads in parallel. Results keep input order.
func (p *Processor) ScoreAll(ctx context.Context, tenantID string, leads []*domain.Lead) ([]domain.LeadScore, error) {
	engine, err := p.rules.Engine(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	enriched := make([]*domain.Lead, len(leads))
	for i, lead := range leads {
		if enriched[i], err = p.Enrich(ctx, tenantID, lead); err != nil {
			return nil, err
		}
	}
	return engine.ScoreLeads(ctx, enriched)
}

// IsHot reports whether a score should raise a hot-lead event.
func IsHot(score *domain.LeadScore) bool {
	return score != nil && score.Grade == domain.GradeA
}
