package scoring

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/opensource-finance/leadscore/internal/domain"
)

// Engine holds the active RuleSet and scores leads against it.
// Rule changes swap in a freshly compiled RuleSet, so a score always sees
// one consistent set of rules.
type Engine struct {
	mu         sync.RWMutex
	compiler   *Compiler
	ruleSet    *RuleSet
	maxWorkers int
}

// NewEngine creates a new scoring engine with no rules loaded.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	compiler, err := NewCompiler()
	if err != nil {
		return nil, err
	}

	return &Engine{
		compiler:   compiler,
		ruleSet:    &RuleSet{},
		maxWorkers: maxWorkers,
	}, nil
}

// ValidateRule compiles a rule without touching the loaded set.
func (e *Engine) ValidateRule(cfg *domain.ScoringRule) error {
	_, err := e.compiler.CompileRule(cfg)
	return err
}

// ValidateRules compiles a full rule list without touching the loaded set.
func (e *Engine) ValidateRules(configs []*domain.ScoringRule) error {
	_, err := e.compiler.Compile(configs)
	return err
}

// LoadRule adds a rule, or replaces the loaded rule with the same ID.
// Rules stay ordered by position.
func (e *Engine) LoadRule(cfg *domain.ScoringRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	configs := e.ruleSet.Configs()
	replaced := false
	for i, existing := range configs {
		if existing.ID == cfg.ID {
			configs[i] = cfg
			replaced = true
			break
		}
	}
	if !replaced {
		configs = append(configs, cfg)
	}
	sortByPosition(configs)

	rs, err := e.compiler.Compile(configs)
	if err != nil {
		return err
	}
	e.ruleSet = rs
	return nil
}

// LoadRules loads several rules on top of the current set.
func (e *Engine) LoadRules(configs []*domain.ScoringRule) error {
	for _, cfg := range configs {
		if err := e.LoadRule(cfg); err != nil {
			return err
		}
	}
	return nil
}

// UnloadRule removes a rule by ID. It reports whether the rule was loaded.
func (e *Engine) UnloadRule(ruleID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	configs := e.ruleSet.Configs()
	kept := configs[:0]
	for _, cfg := range configs {
		if cfg.ID != ruleID {
			kept = append(kept, cfg)
		}
	}
	if len(kept) == len(configs) {
		return false
	}

	rs, err := e.compiler.Compile(kept)
	if err != nil {
		// Removing a rule cannot invalidate the others
		return false
	}
	e.ruleSet = rs
	return true
}

// ReloadRules replaces every loaded rule. On error the previous set stays
// in place. This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(configs []*domain.ScoringRule) error {
	ordered := make([]*domain.ScoringRule, 0, len(configs))
	for _, cfg := range configs {
		if cfg != nil {
			ordered = append(ordered, cfg)
		}
	}
	sortByPosition(ordered)

	rs, err := e.compiler.Compile(ordered)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.ruleSet = rs
	e.mu.Unlock()
	return nil
}

// RuleSet returns the current rule set snapshot.
func (e *Engine) RuleSet() *RuleSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ruleSet
}

// GetLoadedRules returns the loaded rule configurations in evaluation order.
func (e *Engine) GetLoadedRules() []*domain.ScoringRule {
	return e.RuleSet().Configs()
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	return e.RuleSet().Len()
}

// ScoreLead scores a single lead against the current rules.
func (e *Engine) ScoreLead(lead *domain.Lead) domain.LeadScore {
	return Score(lead, e.RuleSet())
}

// ScoreLeads scores a batch of leads in parallel against one rule set
// snapshot. Results are returned in input order.
func (e *Engine) ScoreLeads(ctx context.Context, leads []*domain.Lead) ([]domain.LeadScore, error) {
	rs := e.RuleSet()
	results := make([]domain.LeadScore, len(leads))
	if len(leads) == 0 {
		return results, nil
	}

	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, lead := range leads {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}

		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}: // Acquire
		}

		wg.Add(1)
		go func(idx int, l *domain.Lead) {
			defer wg.Done()
			defer func() { <-sem }() // Release

			results[idx] = Score(l, rs)
		}(i, lead)
	}

	wg.Wait()

	return results, nil
}

// Close drops all loaded rules.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ruleSet = &RuleSet{}
	return nil
}

func sortByPosition(configs []*domain.ScoringRule) {
	sort.SliceStable(configs, func(i, j int) bool {
		return configs[i].Position < configs[j].Position
	})
}
