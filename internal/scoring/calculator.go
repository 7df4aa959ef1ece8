// Package scoring computes lead scores from configurable rules.
//
// Scoring is a pure function of a lead and a RuleSet: matching rules add
// weighted points to their category, categories sum to a total capped at 100,
// and the total maps to a letter grade and a short list of next actions.
package scoring

import (
	"math"

	"github.com/opensource-finance/leadscore/internal/domain"
)

// MaxScore caps the total score.
const MaxScore = 100

// Grade thresholds, inclusive lower bounds.
const (
	gradeAThreshold = 80
	gradeBThreshold = 65
	gradeCThreshold = 50
	gradeDThreshold = 35
)

// Recommendation thresholds.
const (
	qualifyThreshold      = 50
	firmographicThreshold = 20
	engagementThreshold   = 15
)

// Score evaluates every active rule against the lead and returns the result.
// A nil or empty rule set yields a zero score with grade F.
func Score(lead *domain.Lead, rs *RuleSet) domain.LeadScore {
	breakdown, applied := Aggregate(lead, rs)
	total := Normalize(breakdown)

	result := domain.LeadScore{
		TotalScore:      total,
		Grade:           GradeFor(total),
		Breakdown:       breakdown,
		AppliedRules:    applied,
		Recommendations: Recommend(total, breakdown),
	}
	if lead != nil {
		result.LeadID = lead.ID
	}
	return result
}

// Aggregate sums the weighted points of matching rules per category.
// The breakdown always contains every category. Applied rules are listed in
// rule order.
func Aggregate(lead *domain.Lead, rs *RuleSet) (map[domain.Category]int, []domain.AppliedRule) {
	breakdown := make(map[domain.Category]int, len(domain.AllCategories()))
	for _, c := range domain.AllCategories() {
		breakdown[c] = 0
	}
	applied := make([]domain.AppliedRule, 0)

	if rs == nil {
		return breakdown, applied
	}

	ev := &evaluation{lead: lead}
	for _, rule := range rs.rules {
		res := ev.match(rule)
		if !res.Matched {
			continue
		}

		points := rule.Points()
		breakdown[rule.Config.Category] += points
		applied = append(applied, domain.AppliedRule{
			RuleID:       rule.Config.ID,
			RuleName:     rule.Config.Name,
			Category:     rule.Config.Category,
			Points:       points,
			MatchedValue: res.Value,
		})
	}

	return breakdown, applied
}

// Normalize sums the category scores and clamps the total to [0, MaxScore].
func Normalize(breakdown map[domain.Category]int) int {
	sum := 0
	for _, v := range breakdown {
		sum += v
	}
	if sum > MaxScore {
		return MaxScore
	}
	if sum < 0 {
		return 0
	}
	return sum
}

// GradeFor maps a total score to its letter grade.
func GradeFor(total int) domain.Grade {
	switch {
	case total >= gradeAThreshold:
		return domain.GradeA
	case total >= gradeBThreshold:
		return domain.GradeB
	case total >= gradeCThreshold:
		return domain.GradeC
	case total >= gradeDThreshold:
		return domain.GradeD
	default:
		return domain.GradeF
	}
}

// Recommend returns next actions in a fixed order: qualification first,
// then company research, then engagement.
func Recommend(total int, breakdown map[domain.Category]int) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0, 3)

	if total < qualifyThreshold {
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityHigh,
			Action:   "Qualify lead further.",
			Reason:   "Total score is below 50",
		})
	}
	if breakdown[domain.CategoryFirmographic] < firmographicThreshold {
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityMedium,
			Action:   "Research company details.",
			Reason:   "Firmographic score is below 20",
		})
	}
	if breakdown[domain.CategoryEngagement] < engagementThreshold {
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityHigh,
			Action:   "Increase engagement activities.",
			Reason:   "Engagement score is below 15",
		})
	}

	return recs
}

// Distribution counts scores per grade. Every grade is present.
func Distribution(scores []domain.LeadScore) domain.GradeDistribution {
	dist := domain.GradeDistribution{
		domain.GradeA: 0,
		domain.GradeB: 0,
		domain.GradeC: 0,
		domain.GradeD: 0,
		domain.GradeF: 0,
	}
	for _, s := range scores {
		dist[s.Grade]++
	}
	return dist
}

// roundHalfUp rounds to the nearest integer, halves towards +Inf.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
