package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/opensource-finance/leadscore/internal/domain"
)

// RuleStore is the persistence the registry loads tenant rules from.
// domain.Repository satisfies it.
type RuleStore interface {
	ListScoringRules(ctx context.Context, tenantID string) ([]*domain.ScoringRule, error)
	SaveScoringRule(ctx context.Context, tenantID string, rule *domain.ScoringRule) error
}

// Registry keeps one Engine per tenant, loaded from the RuleStore on first
// use. A tenant with no stored rules is seeded with the registry's seed
// rules, so a fresh database scores with the default rule set.
type Registry struct {
	mu         sync.Mutex
	store      RuleStore
	seed       []domain.ScoringRule
	maxWorkers int
	engines    map[string]*Engine
}

// NewRegistry creates a registry. A nil seed leaves new tenants without rules.
func NewRegistry(store RuleStore, seed []domain.ScoringRule, maxWorkers int) *Registry {
	return &Registry{
		store:      store,
		seed:       seed,
		maxWorkers: maxWorkers,
		engines:    make(map[string]*Engine),
	}
}

// Engine returns the tenant's engine, loading it on first use.
func (r *Registry) Engine(ctx context.Context, tenantID string) (*Engine, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if engine, ok := r.engines[tenantID]; ok {
		return engine, nil
	}

	engine, err := NewEngine(r.maxWorkers)
	if err != nil {
		return nil, err
	}
	if err := r.load(ctx, tenantID, engine, true); err != nil {
		return nil, err
	}

	r.engines[tenantID] = engine
	return engine, nil
}

// Reload re-reads the tenant's rules from storage. On a compile error the
// engine keeps serving its previous rules.
func (r *Registry) Reload(ctx context.Context, tenantID string) (*Engine, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	engine, ok := r.engines[tenantID]
	if !ok {
		var err error
		if engine, err = NewEngine(r.maxWorkers); err != nil {
			return nil, err
		}
	}

	if err := r.load(ctx, tenantID, engine, !ok); err != nil {
		return nil, err
	}

	r.engines[tenantID] = engine
	return engine, nil
}

func (r *Registry) load(ctx context.Context, tenantID string, engine *Engine, seed bool) error {
	configs, err := r.store.ListScoringRules(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list rules for tenant %s: %w", tenantID, err)
	}

	if len(configs) == 0 && seed && len(r.seed) > 0 {
		configs = WithPositions(r.seed)
		for _, cfg := range configs {
			cfg.TenantID = tenantID
			if err := r.store.SaveScoringRule(ctx, tenantID, cfg); err != nil {
				return fmt.Errorf("failed to seed rule %s: %w", cfg.ID, err)
			}
		}
		slog.Info("seeded scoring rules",
			"tenant_id", tenantID,
			"count", len(configs),
		)
	}

	if err := engine.ReloadRules(configs); err != nil {
		return fmt.Errorf("failed to load rules for tenant %s: %w", tenantID, err)
	}

	slog.Debug("tenant rules loaded",
		"tenant_id", tenantID,
		"count", engine.RulesCount(),
	)
	return nil
}

// Tenants lists tenants with a loaded engine.
func (r *Registry) Tenants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenants := make([]string, 0, len(r.engines))
	for id := range r.engines {
		tenants = append(tenants, id)
	}
	sort.Strings(tenants)
	return tenants
}

// Close releases every engine.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, engine := range r.engines {
		_ = engine.Close()
		delete(r.engines, id)
	}
	return nil
}
