package scoring

import (
	"reflect"
	"testing"

	"github.com/opensource-finance/leadscore/internal/domain"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func scenarioLead() *domain.Lead {
	return &domain.Lead{
		ID:        "lead-001",
		Name:      "Dana Builder",
		JobTitle:  "CEO",
		Employees: intPtr(50),
		Industry:  "Construction & Building",
		Email:     "a@b.com",
		Source:    "Direct",
		Metadata:  map[string]any{},
	}
}

func TestScoreDefaultRulesScenario(t *testing.T) {
	result := Score(scenarioLead(), DefaultRuleSet())

	expected := map[domain.Category]int{
		domain.CategoryDemographic:  35,
		domain.CategoryFirmographic: 30,
		domain.CategoryBehavioral:   10,
		domain.CategoryEngagement:   26,
		domain.CategoryExplicit:     0,
	}
	if !reflect.DeepEqual(result.Breakdown, expected) {
		t.Errorf("unexpected breakdown: %v", result.Breakdown)
	}

	if result.TotalScore != 100 {
		t.Errorf("expected total clamped to 100, got %d", result.TotalScore)
	}
	if result.Grade != domain.GradeA {
		t.Errorf("expected grade A, got %s", result.Grade)
	}
	if result.LeadID != "lead-001" {
		t.Errorf("expected lead id to be carried, got %q", result.LeadID)
	}

	wantOrder := []string{"demo-title", "demo-company-size", "firmo-industry", "behav-email", "engage-source"}
	if len(result.AppliedRules) != len(wantOrder) {
		t.Fatalf("expected %d applied rules, got %d: %+v", len(wantOrder), len(result.AppliedRules), result.AppliedRules)
	}
	for i, id := range wantOrder {
		if result.AppliedRules[i].RuleID != id {
			t.Errorf("applied rule %d: expected %s, got %s", i, id, result.AppliedRules[i].RuleID)
		}
	}

	industry := result.AppliedRules[2]
	if industry.Points != 30 {
		t.Errorf("expected weighted industry points 30, got %d", industry.Points)
	}
	if industry.MatchedValue != "Construction & Building" {
		t.Errorf("expected matched value to be the field value, got %q", industry.MatchedValue)
	}

	// Firmographic is 30 and engagement 26, so no recommendation applies
	if len(result.Recommendations) != 0 {
		t.Errorf("expected no recommendations, got %+v", result.Recommendations)
	}
}

func TestScoreEmptyRules(t *testing.T) {
	for name, rs := range map[string]*RuleSet{
		"nil":   nil,
		"empty": MustCompile(nil),
	} {
		t.Run(name, func(t *testing.T) {
			result := Score(scenarioLead(), rs)

			if result.TotalScore != 0 {
				t.Errorf("expected 0, got %d", result.TotalScore)
			}
			if result.Grade != domain.GradeF {
				t.Errorf("expected grade F, got %s", result.Grade)
			}
			if len(result.Breakdown) != len(domain.AllCategories()) {
				t.Errorf("expected every category in breakdown, got %v", result.Breakdown)
			}
			for c, v := range result.Breakdown {
				if v != 0 {
					t.Errorf("expected %s to be 0, got %d", c, v)
				}
			}
			if result.AppliedRules == nil || len(result.AppliedRules) != 0 {
				t.Errorf("expected empty applied rules, got %#v", result.AppliedRules)
			}
			if len(result.Recommendations) == 0 || result.Recommendations[0].Action != "Qualify lead further." {
				t.Errorf("expected qualify recommendation first, got %+v", result.Recommendations)
			}
		})
	}
}

func TestScoreNilLead(t *testing.T) {
	result := Score(nil, DefaultRuleSet())
	if result.TotalScore != 0 || result.Grade != domain.GradeF {
		t.Errorf("expected zero score for nil lead, got %d %s", result.TotalScore, result.Grade)
	}
}

func TestInactiveRulesNeverApply(t *testing.T) {
	rules := DefaultScoringRules()
	for i := range rules {
		rules[i].Active = false
	}
	result := Score(scenarioLead(), MustCompile(rules))

	if result.TotalScore != 0 {
		t.Errorf("expected 0 with all rules inactive, got %d", result.TotalScore)
	}
	if len(result.AppliedRules) != 0 {
		t.Errorf("expected no applied rules, got %+v", result.AppliedRules)
	}
}

func TestScoreIsIdempotent(t *testing.T) {
	rs := DefaultRuleSet()
	lead := scenarioLead()
	lead.Metadata["budget"] = "25000"

	first := Score(lead, rs)
	second := Score(lead, rs)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results:\n%+v\n%+v", first, second)
	}
}

func TestScoreDoesNotMutateLead(t *testing.T) {
	lead := scenarioLead()
	lead.Metadata["timeline"] = "immediate"
	before := lead.Clone()

	Score(lead, DefaultRuleSet())

	if !reflect.DeepEqual(before, lead) {
		t.Errorf("lead was mutated by scoring")
	}
}

func TestTotalScoreClamp(t *testing.T) {
	tests := []struct {
		name   string
		points int
		count  int
		want   int
	}{
		{"below cap", 10, 3, 30},
		{"exactly cap", 25, 4, 100},
		{"over cap", 40, 5, 100},
		{"negative floor", -15, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := make([]domain.ScoringRule, tt.count)
			for i := range rules {
				rules[i] = domain.ScoringRule{
					ID:        "r" + string(rune('a'+i)),
					Category:  domain.CategoryExplicit,
					Field:     "email",
					Condition: domain.ConditionExists,
					Points:    tt.points,
					Active:    true,
				}
			}
			result := Score(scenarioLead(), MustCompile(rules))
			if result.TotalScore != tt.want {
				t.Errorf("expected %d, got %d", tt.want, result.TotalScore)
			}
		})
	}
}

func TestSingleCategoryCanExceedCap(t *testing.T) {
	rules := []domain.ScoringRule{
		{ID: "a", Category: domain.CategoryDemographic, Field: "email", Condition: domain.ConditionExists, Points: 80, Active: true},
		{ID: "b", Category: domain.CategoryDemographic, Field: "name", Condition: domain.ConditionExists, Points: 70, Active: true},
	}
	result := Score(scenarioLead(), MustCompile(rules))

	if result.Breakdown[domain.CategoryDemographic] != 150 {
		t.Errorf("expected uncapped category total 150, got %d", result.Breakdown[domain.CategoryDemographic])
	}
	if result.TotalScore != 100 {
		t.Errorf("expected total 100, got %d", result.TotalScore)
	}
}

func TestWeightedPointsRounding(t *testing.T) {
	tests := []struct {
		points int
		weight float64
		want   int
	}{
		{20, 1.3, 26},
		{25, 1.2, 30},
		{5, 1.5, 8},   // 7.5 rounds up
		{15, 0.5, 8},  // 7.5 rounds up
		{-5, 1.5, -7}, // -7.5 rounds towards +Inf
		{10, 0, 10},   // omitted weight means 1.0
	}

	for _, tt := range tests {
		rs := MustCompile([]domain.ScoringRule{{
			ID: "w", Category: domain.CategoryEngagement, Field: "email",
			Condition: domain.ConditionExists, Points: tt.points, Weight: tt.weight, Active: true,
		}})
		breakdown, _ := Aggregate(scenarioLead(), rs)
		if got := breakdown[domain.CategoryEngagement]; got != tt.want {
			t.Errorf("points %d weight %.2f: expected %d, got %d", tt.points, tt.weight, tt.want, got)
		}
	}
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score int
		want  domain.Grade
	}{
		{100, domain.GradeA},
		{80, domain.GradeA},
		{79, domain.GradeB},
		{65, domain.GradeB},
		{64, domain.GradeC},
		{50, domain.GradeC},
		{49, domain.GradeD},
		{35, domain.GradeD},
		{34, domain.GradeF},
		{0, domain.GradeF},
	}

	for _, tt := range tests {
		if got := GradeFor(tt.score); got != tt.want {
			t.Errorf("GradeFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestGradeIsMonotonic(t *testing.T) {
	rank := map[domain.Grade]int{
		domain.GradeF: 0, domain.GradeD: 1, domain.GradeC: 2, domain.GradeB: 3, domain.GradeA: 4,
	}
	prev := rank[GradeFor(0)]
	for s := 1; s <= MaxScore; s++ {
		cur := rank[GradeFor(s)]
		if cur < prev {
			t.Fatalf("grade decreased at score %d", s)
		}
		prev = cur
	}
}

func TestRecommendOrder(t *testing.T) {
	breakdown := map[domain.Category]int{
		domain.CategoryFirmographic: 0,
		domain.CategoryEngagement:   0,
	}
	recs := Recommend(10, breakdown)

	want := []struct {
		priority string
		action   string
	}{
		{domain.PriorityHigh, "Qualify lead further."},
		{domain.PriorityMedium, "Research company details."},
		{domain.PriorityHigh, "Increase engagement activities."},
	}
	if len(recs) != len(want) {
		t.Fatalf("expected %d recommendations, got %d", len(want), len(recs))
	}
	for i, w := range want {
		if recs[i].Priority != w.priority || recs[i].Action != w.action {
			t.Errorf("recommendation %d: expected %s/%s, got %s/%s", i, w.priority, w.action, recs[i].Priority, recs[i].Action)
		}
	}
}

func TestRecommendSubset(t *testing.T) {
	breakdown := map[domain.Category]int{
		domain.CategoryFirmographic: 25,
		domain.CategoryEngagement:   10,
	}
	recs := Recommend(60, breakdown)

	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %+v", recs)
	}
	if recs[0].Action != "Increase engagement activities." {
		t.Errorf("unexpected recommendation %q", recs[0].Action)
	}
}

func TestDistribution(t *testing.T) {
	scores := []domain.LeadScore{
		{Grade: domain.GradeA},
		{Grade: domain.GradeA},
		{Grade: domain.GradeF},
	}

	dist := Distribution(scores)
	if len(dist) != 5 {
		t.Errorf("expected all 5 grades, got %d", len(dist))
	}
	if dist[domain.GradeA] != 2 || dist[domain.GradeF] != 1 || dist[domain.GradeC] != 0 {
		t.Errorf("unexpected distribution: %v", dist)
	}
}
