package domain

// Category groups scoring rules into breakdown buckets.
type Category string

const (
	CategoryDemographic  Category = "demographic"
	CategoryBehavioral   Category = "behavioral"
	CategoryEngagement   Category = "engagement"
	CategoryFirmographic Category = "firmographic"
	CategoryExplicit     Category = "explicit"
)

// AllCategories returns every scoring category in breakdown order.
func AllCategories() []Category {
	return []Category{
		CategoryDemographic,
		CategoryBehavioral,
		CategoryEngagement,
		CategoryFirmographic,
		CategoryExplicit,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryDemographic, CategoryBehavioral, CategoryEngagement, CategoryFirmographic, CategoryExplicit:
		return true
	}
	return false
}

// Condition is the comparison a rule applies to a lead field.
type Condition string

const (
	ConditionEquals      Condition = "equals"
	ConditionContains    Condition = "contains"
	ConditionGreaterThan Condition = "greater_than"
	ConditionLessThan    Condition = "less_than"
	ConditionExists      Condition = "exists"
	ConditionNotExists   Condition = "not_exists"

	// ConditionExpression evaluates a CEL expression instead of a single field.
	ConditionExpression Condition = "expression"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionEquals, ConditionContains, ConditionGreaterThan, ConditionLessThan,
		ConditionExists, ConditionNotExists, ConditionExpression:
		return true
	}
	return false
}

// ScoringRule is the configuration form of a lead scoring rule.
// Value may hold several alternatives separated by "|" for equals and contains.
type ScoringRule struct {
	ID          string    `json:"id" yaml:"id"`
	TenantID    string    `json:"tenantId,omitempty" yaml:"-"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Category    Category  `json:"category" yaml:"category"`
	Field       string    `json:"field,omitempty" yaml:"field,omitempty"`
	Condition   Condition `json:"condition" yaml:"condition"`
	Value       string    `json:"value,omitempty" yaml:"value,omitempty"`
	Expression  string    `json:"expression,omitempty" yaml:"expression,omitempty"`
	Points      int       `json:"points" yaml:"points"`
	Weight      float64   `json:"weight" yaml:"weight"`
	Active      bool      `json:"active" yaml:"active"`
	Position    int       `json:"position" yaml:"position"`
}

// ScoringRuleRequest is the API request payload for creating a rule.
type ScoringRuleRequest struct {
	ID          string  `json:"id" validate:"required,max=100"`
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category" validate:"required,oneof=demographic behavioral engagement firmographic explicit"`
	Field       string  `json:"field,omitempty" validate:"required_unless=Condition expression"`
	Condition   string  `json:"condition" validate:"required,oneof=equals contains greater_than less_than exists not_exists expression"`
	Value       string  `json:"value,omitempty"`
	Expression  string  `json:"expression,omitempty" validate:"required_if=Condition expression"`
	Points      int     `json:"points"`
	Weight      float64 `json:"weight" validate:"gte=0"`
	Active      *bool   `json:"active,omitempty"`
	Position    int     `json:"position"`
}

// ToScoringRule converts a request to a ScoringRule. Rules are active unless
// the request says otherwise.
func (r *ScoringRuleRequest) ToScoringRule(tenantID string) *ScoringRule {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &ScoringRule{
		ID:          r.ID,
		TenantID:    tenantID,
		Name:        r.Name,
		Description: r.Description,
		Category:    Category(r.Category),
		Field:       r.Field,
		Condition:   Condition(r.Condition),
		Value:       r.Value,
		Expression:  r.Expression,
		Points:      r.Points,
		Weight:      r.Weight,
		Active:      active,
		Position:    r.Position,
	}
}
