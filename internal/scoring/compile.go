package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/opensource-finance/leadscore/internal/domain"
)

// Rule is a scoring rule prepared for evaluation.
// Everything derivable from the configuration is computed once here.
type Rule struct {
	Config *domain.ScoringRule

	field        Field
	alternatives []string // lowercased equals/contains alternatives
	threshold    float64  // numeric operand for greater_than/less_than
	weight       float64
	program      cel.Program
}

// Points returns the rounded points the rule awards when it matches.
func (r *Rule) Points() int {
	return roundHalfUp(float64(r.Config.Points) * r.weight)
}

// Compiler validates rule configurations and builds RuleSets.
// It owns the CEL environment used by expression rules.
type Compiler struct {
	env *cel.Env
}

// NewCompiler creates a compiler with the lead CEL environment.
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("lead", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("employees", cel.DoubleType),
		cel.Variable("revenue", cel.DoubleType),
		cel.Variable("industry", cel.StringType),
		cel.Variable("source", cel.StringType),
		cel.Variable("job_title", cel.StringType),
		cel.Variable("email", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Compiler{env: env}, nil
}

// CompileRule validates and prepares a single rule.
func (c *Compiler) CompileRule(cfg *domain.ScoringRule) (*Rule, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rule config is required")
	}
	if strings.TrimSpace(cfg.ID) == "" {
		return nil, fmt.Errorf("rule id is required")
	}
	if !cfg.Category.Valid() {
		return nil, fmt.Errorf("rule %s: unknown category %q", cfg.ID, cfg.Category)
	}
	if !cfg.Condition.Valid() {
		return nil, fmt.Errorf("rule %s: unknown condition %q", cfg.ID, cfg.Condition)
	}
	if cfg.Weight < 0 || math.IsNaN(cfg.Weight) || math.IsInf(cfg.Weight, 0) {
		return nil, fmt.Errorf("rule %s: weight must be a non-negative number", cfg.ID)
	}

	owned := *cfg
	rule := &Rule{Config: &owned, weight: cfg.Weight}
	if rule.weight == 0 {
		rule.weight = 1.0
	}

	if cfg.Condition == domain.ConditionExpression {
		program, err := c.compileExpression(cfg)
		if err != nil {
			return nil, err
		}
		rule.program = program
		return rule, nil
	}

	field, err := ParseField(cfg.Field)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", cfg.ID, err)
	}
	rule.field = field

	switch cfg.Condition {
	case domain.ConditionEquals, domain.ConditionContains:
		rule.alternatives = splitAlternatives(cfg.Value)
	case domain.ConditionGreaterThan, domain.ConditionLessThan:
		rule.threshold = parseNumber(cfg.Value)
	}

	return rule, nil
}

func (c *Compiler) compileExpression(cfg *domain.ScoringRule) (cel.Program, error) {
	if strings.TrimSpace(cfg.Expression) == "" {
		return nil, fmt.Errorf("rule %s: expression is required", cfg.ID)
	}

	ast, issues := c.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if !outputType.IsExactType(cel.BoolType) && !outputType.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, outputType)
	}

	program, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}
	return program, nil
}

// Compile builds an immutable RuleSet. Rule order is preserved and each
// configuration is copied, so callers may reuse their slice afterwards.
// Inactive rules are kept so listings stay complete, but a broken inactive
// rule does not fail the set; it simply never applies.
func (c *Compiler) Compile(configs []*domain.ScoringRule) (*RuleSet, error) {
	rs := &RuleSet{rules: make([]*Rule, 0, len(configs))}
	seen := make(map[string]struct{}, len(configs))

	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}

		rule, err := c.CompileRule(cfg)
		if err != nil {
			if !cfg.Active {
				owned := *cfg
				rs.rules = append(rs.rules, &Rule{Config: &owned, weight: 1.0})
				continue
			}
			return nil, err
		}
		rs.rules = append(rs.rules, rule)
	}

	return rs, nil
}

// Compile is a convenience for compiling plain rule values with a fresh compiler.
func Compile(configs []domain.ScoringRule) (*RuleSet, error) {
	c, err := NewCompiler()
	if err != nil {
		return nil, err
	}
	ptrs := make([]*domain.ScoringRule, len(configs))
	for i := range configs {
		ptrs[i] = &configs[i]
	}
	return c.Compile(ptrs)
}

// MustCompile is like Compile but panics on error. Intended for static rule sets.
func MustCompile(configs []domain.ScoringRule) *RuleSet {
	rs, err := Compile(configs)
	if err != nil {
		panic(err)
	}
	return rs
}

// splitAlternatives splits a "|" separated value. Empty alternatives are
// kept: under contains they match every value, under equals a blank one.
func splitAlternatives(value string) []string {
	parts := strings.Split(value, "|")
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return parts
}

// RuleSet is an immutable, ordered collection of compiled rules.
// It is safe for concurrent use.
type RuleSet struct {
	rules []*Rule
}

// Len returns the number of rules in the set, active or not.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// ActiveCount returns the number of active rules.
func (rs *RuleSet) ActiveCount() int {
	if rs == nil {
		return 0
	}
	n := 0
	for _, r := range rs.rules {
		if r.Config.Active {
			n++
		}
	}
	return n
}

// Configs returns the rule configurations in evaluation order.
func (rs *RuleSet) Configs() []*domain.ScoringRule {
	if rs == nil {
		return nil
	}
	out := make([]*domain.ScoringRule, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = r.Config
	}
	return out
}

// Rules returns the compiled rules in evaluation order.
func (rs *RuleSet) Rules() []*Rule {
	if rs == nil {
		return nil
	}
	out := make([]*Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}
