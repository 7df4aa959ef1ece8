package scoring

import (
	"strings"

	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/leadscore/internal/domain"
)

// MatchResult is the outcome of testing one rule against one lead.
type MatchResult struct {
	Matched bool
	// Value is the field value that was tested, rendered as a string.
	Value string
}

// Match tests a single rule against a lead. Inactive rules never match.
// Malformed values never panic or error; they simply do not match.
func Match(lead *domain.Lead, rule *Rule) MatchResult {
	ev := &evaluation{lead: lead}
	return ev.match(rule)
}

// evaluation carries per-lead state shared by every rule in one Score call.
// The CEL activation is only built when an expression rule needs it.
type evaluation struct {
	lead       *domain.Lead
	activation map[string]any
}

func (ev *evaluation) match(rule *Rule) MatchResult {
	if rule == nil || rule.Config == nil || !rule.Config.Active {
		return MatchResult{}
	}

	if rule.Config.Condition == domain.ConditionExpression {
		return MatchResult{Matched: ev.evalExpression(rule)}
	}
	if rule.field.Kind == FieldUnknown {
		return MatchResult{}
	}

	v := rule.field.Resolve(ev.lead)
	s := v.String()

	switch rule.Config.Condition {
	case domain.ConditionExists:
		return MatchResult{Matched: v.Present && s != "", Value: s}

	case domain.ConditionNotExists:
		return MatchResult{Matched: !v.Present || s == ""}

	case domain.ConditionEquals:
		if !v.Present && !v.Blank() {
			return MatchResult{}
		}
		needle := strings.ToLower(s)
		for _, alt := range rule.alternatives {
			if alt == needle {
				return MatchResult{Matched: true, Value: s}
			}
		}

	case domain.ConditionContains:
		if !v.Present && !v.Blank() {
			return MatchResult{}
		}
		haystack := strings.ToLower(s)
		for _, alt := range rule.alternatives {
			if strings.Contains(haystack, alt) {
				return MatchResult{Matched: true, Value: s}
			}
		}

	case domain.ConditionGreaterThan:
		// NaN on either side compares false
		return MatchResult{Matched: v.Number() > rule.threshold, Value: s}

	case domain.ConditionLessThan:
		return MatchResult{Matched: v.Number() < rule.threshold, Value: s}
	}

	return MatchResult{}
}

func (ev *evaluation) evalExpression(rule *Rule) bool {
	if rule.program == nil {
		return false
	}
	if ev.activation == nil {
		ev.activation = activationFor(ev.lead)
	}

	out, _, err := rule.program.Eval(ev.activation)
	if err != nil {
		return false
	}
	b, ok := out.(types.Bool)
	return ok && bool(b)
}

// activationFor builds the CEL variables for a lead. The lead map only holds
// present fields so expressions can use has(lead.x); the flat variables fall
// back to zero values.
func activationFor(lead *domain.Lead) map[string]any {
	if lead == nil {
		lead = &domain.Lead{}
	}

	leadMap := make(map[string]any, len(fieldNames)+1)
	for name, kind := range fieldNames {
		v := Field{Kind: kind, Path: name}.Resolve(lead)
		if v.Present {
			leadMap[name] = v.Raw
		}
	}

	metadata := make(map[string]any, len(lead.Metadata))
	for k, v := range lead.Metadata {
		if v != nil {
			metadata[k] = v
		}
	}
	leadMap[metadataRoot] = metadata

	var employees, revenue float64
	if lead.Employees != nil {
		employees = float64(*lead.Employees)
	}
	if lead.Revenue != nil {
		revenue = *lead.Revenue
	}

	return map[string]any{
		"lead":      leadMap,
		"metadata":  metadata,
		"employees": employees,
		"revenue":   revenue,
		"industry":  lead.Industry,
		"source":    lead.Source,
		"job_title": lead.JobTitle,
		"email":     lead.Email,
	}
}
