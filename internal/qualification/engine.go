// Package qualification scores BANT questionnaires.
//
// Each answer is a 0-10 score on a weighted question. Answers roll up into
// a 0-100 score per BANT category, and the categories roll up into an
// overall score and a qualification status.
package qualification

import (
	"fmt"
	"math"
	"sync"

	"github.com/opensource-finance/leadscore/internal/domain"
)

// Status thresholds, inclusive lower bounds.
const (
	QualifiedThreshold = 70
	NurtureThreshold   = 40

	// GapThreshold is the category score below which a follow-up is suggested.
	GapThreshold = 50

	maxAnswerScore = 10
)

var gapActions = map[domain.BANTCategory]string{
	domain.BANTBudget:    "Confirm budget and funding source.",
	domain.BANTAuthority: "Identify the decision maker.",
	domain.BANTNeed:      "Clarify the business need.",
	domain.BANTTimeline:  "Establish a purchase timeline.",
}

// Engine evaluates questionnaire responses against a question set.
type Engine struct {
	mu              sync.RWMutex
	questions       []domain.QualificationQuestion
	byID            map[string]domain.QualificationQuestion
	categoryWeights map[domain.BANTCategory]float64
}

// NewEngine creates an engine with the given questions.
// Every BANT category carries an equal share of the overall score.
func NewEngine(questions []domain.QualificationQuestion) (*Engine, error) {
	e := &Engine{
		categoryWeights: make(map[domain.BANTCategory]float64, 4),
	}
	for _, c := range domain.AllBANTCategories() {
		e.categoryWeights[c] = 0.25
	}
	if err := e.LoadQuestions(questions); err != nil {
		return nil, err
	}
	return e, nil
}

// LoadQuestions replaces the question set (hot reload).
func (e *Engine) LoadQuestions(questions []domain.QualificationQuestion) error {
	byID := make(map[string]domain.QualificationQuestion, len(questions))
	for _, q := range questions {
		if q.ID == "" {
			return fmt.Errorf("question id is required")
		}
		if !validCategory(q.Category) {
			return fmt.Errorf("question %s: unknown category %q", q.ID, q.Category)
		}
		if q.Weight < 0 {
			return fmt.Errorf("question %s: weight must not be negative", q.ID)
		}
		if _, dup := byID[q.ID]; dup {
			return fmt.Errorf("duplicate question id %q", q.ID)
		}
		byID[q.ID] = q
	}

	owned := make([]domain.QualificationQuestion, len(questions))
	copy(owned, questions)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.questions = owned
	e.byID = byID
	return nil
}

// Questions returns the loaded questions in display order.
func (e *Engine) Questions() []domain.QualificationQuestion {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.QualificationQuestion, len(e.questions))
	copy(out, e.questions)
	return out
}

// QuestionCount returns the number of loaded questions.
func (e *Engine) QuestionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.questions)
}

// ValidateResponses rejects answers to unknown questions and scores
// outside 0-10.
func (e *Engine) ValidateResponses(responses []domain.QualificationResponse) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, r := range responses {
		if _, ok := e.byID[r.QuestionID]; !ok {
			return fmt.Errorf("unknown question %q", r.QuestionID)
		}
		if r.Score < 0 || r.Score > maxAnswerScore {
			return fmt.Errorf("question %s: score must be between 0 and %d", r.QuestionID, maxAnswerScore)
		}
	}
	return nil
}

// Assess computes the qualification assessment for a lead.
//
// Algorithm:
// 1. Contribution of each answer = score/10 * question weight
// 2. Category score = 100 * sum(contributions) / sum(question weights)
// 3. Overall = sum(category score * category weight), clamped to 0-100
// 4. Status and gap recommendations from the thresholds
//
// Unanswered questions count as zero; answers to unknown questions are
// ignored. When a question is answered twice the last answer wins.
func (e *Engine) Assess(leadID string, responses []domain.QualificationResponse) domain.QualificationAssessment {
	e.mu.RLock()
	defer e.mu.RUnlock()

	answers := make(map[string]int, len(responses))
	for _, r := range responses {
		if _, ok := e.byID[r.QuestionID]; ok {
			answers[r.QuestionID] = clampAnswer(r.Score)
		}
	}

	earned := make(map[domain.BANTCategory]float64, 4)
	possible := make(map[domain.BANTCategory]float64, 4)
	contributions := make([]domain.QuestionContribution, 0, len(answers))

	for _, q := range e.questions {
		possible[q.Category] += q.Weight

		score, answered := answers[q.ID]
		if !answered {
			continue
		}

		contribution := float64(score) / maxAnswerScore * q.Weight
		earned[q.Category] += contribution

		contributions = append(contributions, domain.QuestionContribution{
			QuestionID:   q.ID,
			Category:     q.Category,
			Score:        score,
			Weight:       q.Weight,
			Contribution: contribution,
		})
	}

	result := domain.QualificationAssessment{
		LeadID:          leadID,
		CategoryScores:  make(map[domain.BANTCategory]int, 4),
		Contributions:   contributions,
		Recommendations: make([]domain.Recommendation, 0),
	}

	var overall float64
	for _, c := range domain.AllBANTCategories() {
		catScore := 0
		if possible[c] > 0 {
			catScore = roundHalfUp(100 * earned[c] / possible[c])
		}
		result.CategoryScores[c] = catScore
		overall += float64(catScore) * e.categoryWeights[c]

		if catScore < GapThreshold {
			result.Recommendations = append(result.Recommendations, domain.Recommendation{
				Priority: gapPriority(catScore),
				Action:   gapActions[c],
				Reason:   fmt.Sprintf("%s score is %d", c, catScore),
			})
		}
	}

	result.OverallScore = clamp(roundHalfUp(overall), 0, 100)
	result.Status = StatusFor(result.OverallScore)

	return result
}

// StatusFor maps an overall qualification score to a status.
func StatusFor(score int) string {
	switch {
	case score >= QualifiedThreshold:
		return domain.QualificationQualified
	case score >= NurtureThreshold:
		return domain.QualificationNurture
	default:
		return domain.QualificationDisqualified
	}
}

func gapPriority(score int) string {
	if score < 25 {
		return domain.PriorityHigh
	}
	return domain.PriorityMedium
}

func validCategory(c domain.BANTCategory) bool {
	for _, known := range domain.AllBANTCategories() {
		if c == known {
			return true
		}
	}
	return false
}

func clampAnswer(score int) int {
	return clamp(score, 0, maxAnswerScore)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
