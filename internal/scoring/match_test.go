package scoring

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/opensource-finance/leadscore/internal/domain"
)

func compileOne(t *testing.T, rule domain.ScoringRule) *Rule {
	t.Helper()

	c, err := NewCompiler()
	if err != nil {
		t.Fatalf("failed to create compiler: %v", err)
	}
	if rule.ID == "" {
		rule.ID = "test-rule"
	}
	if rule.Category == "" {
		rule.Category = domain.CategoryDemographic
	}
	rule.Active = true

	compiled, err := c.CompileRule(&rule)
	if err != nil {
		t.Fatalf("failed to compile rule: %v", err)
	}
	return compiled
}

func TestMatchExists(t *testing.T) {
	rule := compileOne(t, domain.ScoringRule{Field: "metadata.note", Condition: domain.ConditionExists})
	notRule := compileOne(t, domain.ScoringRule{Field: "metadata.note", Condition: domain.ConditionNotExists})

	tests := []struct {
		name string
		meta map[string]any
		want bool
	}{
		{"missing key", map[string]any{}, false},
		{"nil metadata", nil, false},
		{"null value", map[string]any{"note": nil}, false},
		{"empty string", map[string]any{"note": ""}, false},
		{"non empty", map[string]any{"note": "x"}, true},
		{"zero number", map[string]any{"note": 0.0}, true},
		{"false bool", map[string]any{"note": false}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := &domain.Lead{Metadata: tt.meta}
			if got := Match(lead, rule).Matched; got != tt.want {
				t.Errorf("exists: expected %v, got %v", tt.want, got)
			}
			if got := Match(lead, notRule).Matched; got == tt.want {
				t.Errorf("not_exists: expected %v, got %v", !tt.want, got)
			}
		})
	}
}

func TestMatchExistsTopLevel(t *testing.T) {
	rule := compileOne(t, domain.ScoringRule{Field: "phone", Condition: domain.ConditionExists})

	if Match(&domain.Lead{Phone: ""}, rule).Matched {
		t.Error("expected empty phone not to exist")
	}
	res := Match(&domain.Lead{Phone: "x"}, rule)
	if !res.Matched || res.Value != "x" {
		t.Errorf("expected match with value x, got %+v", res)
	}
}

func TestMatchEqualsCaseInsensitive(t *testing.T) {
	rule := compileOne(t, domain.ScoringRule{Field: "jobTitle", Condition: domain.ConditionEquals, Value: "CEO|Director"})

	tests := []struct {
		title string
		want  bool
	}{
		{"director", true},
		{"DIRECTOR", true},
		{"ceo", true},
		{"Director of Sales", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := Match(&domain.Lead{JobTitle: tt.title}, rule).Matched; got != tt.want {
			t.Errorf("jobTitle %q: expected %v, got %v", tt.title, tt.want, got)
		}
	}
}

func TestMatchEmptyAlternatives(t *testing.T) {
	t.Run("EqualsMatchesBlankValue", func(t *testing.T) {
		rule := compileOne(t, domain.ScoringRule{Field: "metadata.tier", Condition: domain.ConditionEquals, Value: "gold||"})

		if !Match(&domain.Lead{Metadata: map[string]any{"tier": ""}}, rule).Matched {
			t.Error("expected blank metadata value to match the empty alternative")
		}
		if !Match(&domain.Lead{Metadata: map[string]any{"tier": "Gold"}}, rule).Matched {
			t.Error("expected Gold to match")
		}
		if Match(&domain.Lead{Metadata: map[string]any{"tier": "silver"}}, rule).Matched {
			t.Error("expected silver not to match")
		}
	})

	t.Run("EqualsMatchesBlankTopLevelField", func(t *testing.T) {
		rule := compileOne(t, domain.ScoringRule{Field: "jobTitle", Condition: domain.ConditionEquals, Value: "CEO|"})

		if !Match(&domain.Lead{JobTitle: ""}, rule).Matched {
			t.Error("expected empty jobTitle to match the empty alternative")
		}
	})

	t.Run("ContainsTrailingSeparatorMatchesAnything", func(t *testing.T) {
		rule := compileOne(t, domain.ScoringRule{Field: "industry", Condition: domain.ConditionContains, Value: "Tech|"})

		for _, industry := range []string{"Retail", "Technology", ""} {
			if !Match(&domain.Lead{Industry: industry}, rule).Matched {
				t.Errorf("industry %q: expected match", industry)
			}
		}
	})

	t.Run("ContainsEmptyValueMatchesAnything", func(t *testing.T) {
		rule := compileOne(t, domain.ScoringRule{Field: "industry", Condition: domain.ConditionContains, Value: ""})

		if !Match(&domain.Lead{Industry: "Retail"}, rule).Matched {
			t.Error("expected empty needle to be a substring of Retail")
		}
	})

	t.Run("MissingMetadataNeverMatches", func(t *testing.T) {
		rule := compileOne(t, domain.ScoringRule{Field: "metadata.tier", Condition: domain.ConditionContains, Value: ""})

		if Match(&domain.Lead{}, rule).Matched {
			t.Error("expected a missing key not to match")
		}
	})
}

func TestMatchNumericBlankTopLevelField(t *testing.T) {
	lt := compileOne(t, domain.ScoringRule{Field: "jobTitle", Condition: domain.ConditionLessThan, Value: "5"})
	gt := compileOne(t, domain.ScoringRule{Field: "jobTitle", Condition: domain.ConditionGreaterThan, Value: "-1"})

	top := &domain.Lead{JobTitle: ""}
	meta := &domain.Lead{Metadata: map[string]any{"jobTitle": ""}}
	metaLT := compileOne(t, domain.ScoringRule{Field: "metadata.jobTitle", Condition: domain.ConditionLessThan, Value: "5"})

	if !Match(top, lt).Matched {
		t.Error("expected empty jobTitle to compare as zero under less_than")
	}
	if !Match(top, gt).Matched {
		t.Error("expected empty jobTitle to compare as zero under greater_than")
	}
	if Match(top, lt).Matched != Match(meta, metaLT).Matched {
		t.Error("expected top-level and metadata blanks to compare the same")
	}

	exists := compileOne(t, domain.ScoringRule{Field: "jobTitle", Condition: domain.ConditionExists})
	if Match(top, exists).Matched {
		t.Error("expected empty jobTitle to still count as not existing")
	}
}

func TestMatchContains(t *testing.T) {
	rule := compileOne(t, domain.ScoringRule{Field: "industry", Condition: domain.ConditionContains, Value: "Construction|Technology"})

	tests := []struct {
		industry string
		want     bool
	}{
		{"Construction & Building", true},
		{"information technology", true},
		{"Retail", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := Match(&domain.Lead{Industry: tt.industry}, rule).Matched; got != tt.want {
			t.Errorf("industry %q: expected %v, got %v", tt.industry, tt.want, got)
		}
	}
}

func TestMatchNumericComparisons(t *testing.T) {
	gt := compileOne(t, domain.ScoringRule{Field: "metadata.budget", Condition: domain.ConditionGreaterThan, Value: "10000"})
	lt := compileOne(t, domain.ScoringRule{Field: "metadata.budget", Condition: domain.ConditionLessThan, Value: "10000"})

	tests := []struct {
		name   string
		budget any
		wantGT bool
		wantLT bool
	}{
		{"float above", 25000.0, true, false},
		{"float below", 500.0, false, true},
		{"equal", 10000, false, false},
		{"numeric string", " 20000 ", true, false},
		{"json number", json.Number("5000"), false, true},
		{"hex string", "0x2711", true, false},
		{"non numeric", "a lot", false, false},
		{"thousands separator", "1,000,000", false, false},
		{"empty string is zero", "", false, true},
		{"bool true is one", true, false, true},
		{"missing", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := &domain.Lead{Metadata: map[string]any{}}
			if tt.budget != nil {
				lead.Metadata["budget"] = tt.budget
			}
			if got := Match(lead, gt).Matched; got != tt.wantGT {
				t.Errorf("greater_than: expected %v, got %v", tt.wantGT, got)
			}
			if got := Match(lead, lt).Matched; got != tt.wantLT {
				t.Errorf("less_than: expected %v, got %v", tt.wantLT, got)
			}
		})
	}
}

func TestMatchNonNumericThresholdNeverMatches(t *testing.T) {
	gt := compileOne(t, domain.ScoringRule{Field: "employees", Condition: domain.ConditionGreaterThan, Value: "many"})
	lt := compileOne(t, domain.ScoringRule{Field: "employees", Condition: domain.ConditionLessThan, Value: "many"})

	for _, n := range []int{-1000, 0, 1000000} {
		lead := &domain.Lead{Employees: intPtr(n)}
		if Match(lead, gt).Matched || Match(lead, lt).Matched {
			t.Errorf("expected no match against NaN threshold for %d", n)
		}
	}
}

func TestMatchPointerFields(t *testing.T) {
	employees := compileOne(t, domain.ScoringRule{Field: "employees", Condition: domain.ConditionGreaterThan, Value: "10"})
	revenue := compileOne(t, domain.ScoringRule{Field: "revenue", Condition: domain.ConditionExists})
	activity := compileOne(t, domain.ScoringRule{Field: "lastActivity", Condition: domain.ConditionExists})

	lead := &domain.Lead{}
	if Match(lead, employees).Matched || Match(lead, revenue).Matched || Match(lead, activity).Matched {
		t.Error("expected unset pointer fields not to match")
	}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lead = &domain.Lead{Employees: intPtr(11), Revenue: floatPtr(0), LastActivity: &now}

	res := Match(lead, employees)
	if !res.Matched || res.Value != "11" {
		t.Errorf("expected employees match with value 11, got %+v", res)
	}
	if !Match(lead, revenue).Matched {
		t.Error("expected zero revenue to exist")
	}
	res = Match(lead, activity)
	if !res.Matched || res.Value != "2025-03-01T12:00:00Z" {
		t.Errorf("expected activity match with RFC3339 value, got %+v", res)
	}
}

func TestMatchInactiveRule(t *testing.T) {
	rule := compileOne(t, domain.ScoringRule{Field: "email", Condition: domain.ConditionExists})
	rule.Config.Active = false

	if Match(&domain.Lead{Email: "a@b.com"}, rule).Matched {
		t.Error("expected inactive rule never to match")
	}
}

func TestMatchExpression(t *testing.T) {
	rule := compileOne(t, domain.ScoringRule{
		Condition:  domain.ConditionExpression,
		Expression: `employees >= 50.0 && has(lead.industry) && lead.industry.contains("Tech")`,
	})

	if !Match(&domain.Lead{Employees: intPtr(200), Industry: "Technology"}, rule).Matched {
		t.Error("expected expression to match")
	}
	if Match(&domain.Lead{Employees: intPtr(200)}, rule).Matched {
		t.Error("expected expression without industry not to match")
	}
}

func TestMatchExpressionRuntimeErrorIsNoMatch(t *testing.T) {
	rule := compileOne(t, domain.ScoringRule{
		Condition:  domain.ConditionExpression,
		Expression: `metadata["budget"] > 100`,
	})

	if Match(&domain.Lead{}, rule).Matched {
		t.Error("expected missing key to evaluate as no match")
	}
	if !Match(&domain.Lead{Metadata: map[string]any{"budget": 500}}, rule).Matched {
		t.Error("expected budget 500 to match")
	}
}
