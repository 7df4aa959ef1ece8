package domain

// BANTCategory is one of the Budget/Authority/Need/Timeline qualification areas.
type BANTCategory string

const (
	BANTBudget    BANTCategory = "budget"
	BANTAuthority BANTCategory = "authority"
	BANTNeed      BANTCategory = "need"
	BANTTimeline  BANTCategory = "timeline"
)

// AllBANTCategories returns the qualification categories in framework order.
func AllBANTCategories() []BANTCategory {
	return []BANTCategory{BANTBudget, BANTAuthority, BANTNeed, BANTTimeline}
}

// QualificationQuestion is one questionnaire item.
// Weight sets its importance within its category.
type QualificationQuestion struct {
	ID       string       `json:"id" yaml:"id"`
	Category BANTCategory `json:"category" yaml:"category"`
	Text     string       `json:"text" yaml:"text"`
	Weight   float64      `json:"weight" yaml:"weight"`
}

// QualificationResponse is an answer to a question, scored 0 to 10.
type QualificationResponse struct {
	QuestionID string `json:"questionId" validate:"required"`
	Score      int    `json:"score" validate:"gte=0,lte=10"`
	Notes      string `json:"notes,omitempty"`
}

// Qualification statuses.
const (
	QualificationQualified    = "qualified"
	QualificationNurture      = "nurture"
	QualificationDisqualified = "disqualified"
)

// QualificationAssessment is the derived result of a questionnaire.
type QualificationAssessment struct {
	LeadID          string                 `json:"leadId"`
	OverallScore    int                    `json:"overallScore"`
	Status          string                 `json:"status"`
	CategoryScores  map[BANTCategory]int   `json:"categoryScores"`
	Contributions   []QuestionContribution `json:"contributions"`
	Recommendations []Recommendation       `json:"recommendations"`
}

// QuestionContribution shows how a single answer contributed to its category.
type QuestionContribution struct {
	QuestionID   string       `json:"questionId"`
	Category     BANTCategory `json:"category"`
	Score        int          `json:"score"`
	Weight       float64      `json:"weight"`
	Contribution float64      `json:"contribution"` // score/10 * weight
}

// QualificationRequest is the API request payload for saving answers.
type QualificationRequest struct {
	Responses []QualificationResponse `json:"responses" validate:"required,min=1,dive"`
}
