package qualification

import "github.com/opensource-finance/leadscore/internal/domain"

// DefaultQuestions returns the built-in BANT questionnaire.
func DefaultQuestions() []domain.QualificationQuestion {
	return []domain.QualificationQuestion{
		// Budget
		{ID: "budget-allocated", Category: domain.BANTBudget, Text: "Is budget allocated for this purchase?", Weight: 2},
		{ID: "budget-range", Category: domain.BANTBudget, Text: "Does the budget cover the expected price range?", Weight: 1},

		// Authority
		{ID: "authority-decision-maker", Category: domain.BANTAuthority, Text: "Is the contact the final decision maker?", Weight: 2},
		{ID: "authority-stakeholders", Category: domain.BANTAuthority, Text: "Are the other stakeholders known and engaged?", Weight: 1},

		// Need
		{ID: "need-pain", Category: domain.BANTNeed, Text: "How severe is the problem we solve for them?", Weight: 2},
		{ID: "need-fit", Category: domain.BANTNeed, Text: "How well does the product fit their requirements?", Weight: 1},

		// Timeline
		{ID: "timeline-defined", Category: domain.BANTTimeline, Text: "Is there a defined purchase date?", Weight: 1},
		{ID: "timeline-urgency", Category: domain.BANTTimeline, Text: "How urgent is the purchase?", Weight: 1},
	}
}
