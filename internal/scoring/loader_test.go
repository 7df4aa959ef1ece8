package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opensource-finance/leadscore/internal/domain"
)

const yamlRules = `
rules:
  - id: title
    name: Decision maker
    category: demographic
    field: jobTitle
    condition: equals
    values: [CEO, Founder]
    points: 20
  - id: budget
    category: explicit
    field: metadata.budget
    condition: greater_than
    value: "5000"
    points: 15
    weight: 1.5
    active: false
  - id: big-tech
    category: firmographic
    condition: expression
    expression: employees > 100.0 && industry == "Technology"
    points: 25
`

func TestParseRulesYAML(t *testing.T) {
	rules, err := ParseRules([]byte(yamlRules), "yaml")
	if err != nil {
		t.Fatalf("failed to parse rules: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}

	title := rules[0]
	if title.Value != "CEO|Founder" {
		t.Errorf("expected values joined with |, got %q", title.Value)
	}
	if !title.Active {
		t.Error("expected active to default to true")
	}
	if title.Position != 0 || rules[2].Position != 2 {
		t.Error("expected file order to become position")
	}

	budget := rules[1]
	if budget.Active {
		t.Error("expected explicit active: false to be kept")
	}
	if budget.Name != "budget" {
		t.Errorf("expected name to default to id, got %q", budget.Name)
	}
	if budget.Weight != 1.5 {
		t.Errorf("expected weight 1.5, got %v", budget.Weight)
	}

	if rules[2].Condition != domain.ConditionExpression {
		t.Errorf("expected expression condition, got %s", rules[2].Condition)
	}
}

func TestParseRulesJSON(t *testing.T) {
	doc := `{"rules":[{"id":"email","category":"behavioral","field":"email","condition":"exists","points":10}]}`
	rules, err := ParseRules([]byte(doc), "json")
	if err != nil {
		t.Fatalf("failed to parse rules: %v", err)
	}
	if len(rules) != 1 || rules[0].Category != domain.CategoryBehavioral {
		t.Errorf("unexpected rules: %+v", rules)
	}
}

func TestParseRulesErrors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		format string
	}{
		{"bad yaml", "rules: [", "yaml"},
		{"bad json", "{", "json"},
		{"no rules", "rules: []", "yaml"},
		{"unknown format", "rules: []", "toml"},
		{"invalid rule", "rules:\n  - id: x\n    category: nope\n    field: email\n    condition: exists\n", "yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRules([]byte(tt.doc), tt.format); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadRulesFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(yamlPath, []byte(yamlRules), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	rules, err := LoadRulesFile(yamlPath)
	if err != nil {
		t.Fatalf("failed to load yaml rules: %v", err)
	}
	if len(rules) != 3 {
		t.Errorf("expected 3 rules, got %d", len(rules))
	}

	jsonPath := filepath.Join(dir, "rules.JSON")
	doc := `{"rules":[{"id":"src","category":"engagement","field":"source","condition":"equals","value":"Referral","points":20,"weight":1.3}]}`
	if err := os.WriteFile(jsonPath, []byte(doc), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	rules, err = LoadRulesFile(jsonPath)
	if err != nil {
		t.Fatalf("failed to load json rules: %v", err)
	}
	if rules[0].ID != "src" {
		t.Errorf("unexpected rule %+v", rules[0])
	}

	if _, err := LoadRulesFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWithPositions(t *testing.T) {
	ptrs := WithPositions(DefaultScoringRules())
	for i, r := range ptrs {
		if r.Position != i {
			t.Errorf("rule %s: expected position %d, got %d", r.ID, i, r.Position)
		}
	}
}
