package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opensource-finance/leadscore/internal/domain"
	"gopkg.in/yaml.v3"
)

// fileRule is the on-disk rule form. Active defaults to true when omitted,
// and Values is an alternative to a "|" separated Value.
type fileRule struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Category    string   `json:"category" yaml:"category"`
	Field       string   `json:"field" yaml:"field"`
	Condition   string   `json:"condition" yaml:"condition"`
	Value       string   `json:"value" yaml:"value"`
	Values      []string `json:"values" yaml:"values"`
	Expression  string   `json:"expression" yaml:"expression"`
	Points      int      `json:"points" yaml:"points"`
	Weight      float64  `json:"weight" yaml:"weight"`
	Active      *bool    `json:"active" yaml:"active"`
}

type rulesFile struct {
	Rules []fileRule `json:"rules" yaml:"rules"`
}

// LoadRulesFile reads scoring rules from a YAML or JSON file.
// The file holds a top-level "rules" list; file order becomes rule position.
func LoadRulesFile(path string) ([]domain.ScoringRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return ParseRules(data, format)
}

// ParseRules decodes a rules document in the given format ("yaml" or "json")
// and validates every rule with a fresh compiler.
func ParseRules(data []byte, format string) ([]domain.ScoringRule, error) {
	var doc rulesFile
	switch format {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse rules json: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse rules yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported rules format %q", format)
	}

	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rules document contains no rules")
	}

	rules := make([]domain.ScoringRule, len(doc.Rules))
	for i, fr := range doc.Rules {
		rules[i] = fr.toScoringRule(i)
	}

	if _, err := Compile(rules); err != nil {
		return nil, fmt.Errorf("invalid rules document: %w", err)
	}
	return rules, nil
}

func (fr fileRule) toScoringRule(position int) domain.ScoringRule {
	active := true
	if fr.Active != nil {
		active = *fr.Active
	}
	value := fr.Value
	if len(fr.Values) > 0 {
		value = strings.Join(fr.Values, "|")
	}
	name := fr.Name
	if name == "" {
		name = fr.ID
	}

	return domain.ScoringRule{
		ID:          fr.ID,
		Name:        name,
		Description: fr.Description,
		Category:    domain.Category(fr.Category),
		Field:       fr.Field,
		Condition:   domain.Condition(fr.Condition),
		Value:       value,
		Expression:  fr.Expression,
		Points:      fr.Points,
		Weight:      fr.Weight,
		Active:      active,
		Position:    position,
	}
}

// WithPositions returns rule pointers with Position set to slice order.
func WithPositions(rules []domain.ScoringRule) []*domain.ScoringRule {
	out := make([]*domain.ScoringRule, len(rules))
	for i := range rules {
		r := rules[i]
		r.Position = i
		out[i] = &r
	}
	return out
}
