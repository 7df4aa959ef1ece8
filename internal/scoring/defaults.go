package scoring

import "github.com/opensource-finance/leadscore/internal/domain"

// DefaultScoringRules returns the built-in rule set used to seed an empty
// rule table. A fresh slice is returned on every call.
func DefaultScoringRules() []domain.ScoringRule {
	return []domain.ScoringRule{
		// Demographic
		{
			ID:          "demo-title",
			Name:        "Decision maker title",
			Description: "Lead holds a senior or owner role",
			Category:    domain.CategoryDemographic,
			Field:       "jobTitle",
			Condition:   domain.ConditionEquals,
			Value:       "CEO|CTO|CFO|VP|Director|Owner|Founder",
			Points:      20,
			Weight:      1.0,
			Active:      true,
		},
		{
			ID:          "demo-company-size",
			Name:        "Company size",
			Description: "Company has more than 10 employees",
			Category:    domain.CategoryDemographic,
			Field:       "employees",
			Condition:   domain.ConditionGreaterThan,
			Value:       "10",
			Points:      15,
			Weight:      1.0,
			Active:      true,
		},

		// Firmographic
		{
			ID:          "firmo-industry",
			Name:        "Target industry",
			Description: "Company operates in a target industry",
			Category:    domain.CategoryFirmographic,
			Field:       "industry",
			Condition:   domain.ConditionContains,
			Value:       "Construction|Manufacturing|Technology",
			Points:      25,
			Weight:      1.2,
			Active:      true,
		},
		{
			ID:          "firmo-revenue",
			Name:        "Annual revenue",
			Description: "Company revenue above one million",
			Category:    domain.CategoryFirmographic,
			Field:       "revenue",
			Condition:   domain.ConditionGreaterThan,
			Value:       "1000000",
			Points:      20,
			Weight:      1.0,
			Active:      true,
		},

		// Behavioral
		{
			ID:          "behav-email",
			Name:        "Email provided",
			Description: "Lead shared an email address",
			Category:    domain.CategoryBehavioral,
			Field:       "email",
			Condition:   domain.ConditionExists,
			Points:      10,
			Weight:      1.0,
			Active:      true,
		},
		{
			ID:          "behav-phone",
			Name:        "Phone provided",
			Description: "Lead shared a phone number",
			Category:    domain.CategoryBehavioral,
			Field:       "phone",
			Condition:   domain.ConditionExists,
			Points:      10,
			Weight:      1.0,
			Active:      true,
		},
		{
			ID:          "behav-recent-activity",
			Name:        "Has recorded activity",
			Description: "Lead has at least one recorded activity",
			Category:    domain.CategoryBehavioral,
			Field:       "lastActivity",
			Condition:   domain.ConditionExists,
			Points:      10,
			Weight:      1.0,
			Active:      true,
		},

		// Engagement
		{
			ID:          "engage-source",
			Name:        "High intent source",
			Description: "Lead arrived through a high intent channel",
			Category:    domain.CategoryEngagement,
			Field:       "source",
			Condition:   domain.ConditionEquals,
			Value:       "Direct|Referral|Website",
			Points:      20,
			Weight:      1.3,
			Active:      true,
		},

		{
			ID:          "engage-activity",
			Name:        "Active conversation",
			Description: "More than two activities in the recent window",
			Category:    domain.CategoryEngagement,
			Field:       "metadata.activityCount",
			Condition:   domain.ConditionGreaterThan,
			Value:       "2",
			Points:      15,
			Weight:      1.0,
			Active:      true,
		},

		// Explicit
		{
			ID:          "explicit-budget",
			Name:        "Stated budget",
			Description: "Lead reported a budget above 10000",
			Category:    domain.CategoryExplicit,
			Field:       "metadata.budget",
			Condition:   domain.ConditionGreaterThan,
			Value:       "10000",
			Points:      20,
			Weight:      1.0,
			Active:      true,
		},
		{
			ID:          "explicit-timeline",
			Name:        "Near term timeline",
			Description: "Lead plans to buy this quarter",
			Category:    domain.CategoryExplicit,
			Field:       "metadata.timeline",
			Condition:   domain.ConditionEquals,
			Value:       "immediate|this_quarter",
			Points:      15,
			Weight:      1.0,
			Active:      true,
		},
	}
}

// DefaultRuleSet compiles DefaultScoringRules.
func DefaultRuleSet() *RuleSet {
	return MustCompile(DefaultScoringRules())
}
