package domain

import "time"

// Grade is the letter grade derived from a total score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// LeadScore is the derived scoring result for one lead.
// It is recomputed on every request and never stored.
type LeadScore struct {
	LeadID          string           `json:"leadId"`
	TotalScore      int              `json:"totalScore"`
	Grade           Grade            `json:"grade"`
	Breakdown       map[Category]int `json:"breakdown"`
	AppliedRules    []AppliedRule    `json:"appliedRules"`
	Recommendations []Recommendation `json:"recommendations"`
}

// AppliedRule records a rule that matched and what it contributed.
type AppliedRule struct {
	RuleID       string   `json:"ruleId"`
	RuleName     string   `json:"ruleName"`
	Category     Category `json:"category"`
	Points       int      `json:"points"`
	MatchedValue string   `json:"matchedValue,omitempty"`
}

// Recommendation is an advisory next action derived from a score.
type Recommendation struct {
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Reason   string `json:"reason,omitempty"`
}

// ScoreResponse is the API envelope for a computed lead score.
type ScoreResponse struct {
	Score        *LeadScore    `json:"score"`
	CalculatedAt time.Time     `json:"calculatedAt"`
	Metadata     ScoreMetadata `json:"metadata"`
}

// ScoreMetadata contains processing information for a score request.
type ScoreMetadata struct {
	TraceID       string `json:"traceId"`
	RulesLoaded   int    `json:"rulesLoaded"`
	TotalMs       int64  `json:"totalMs"`
	EngineVersion string `json:"engineVersion"`
}

// GradeDistribution counts leads per grade.
type GradeDistribution map[Grade]int
