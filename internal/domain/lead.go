package domain

import (
	"time"
)

// Lead is a prospective customer record prior to becoming a qualified opportunity.
// Scoring treats it as read-only input.
type Lead struct {
	// Identity and contact
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	JobTitle string `json:"jobTitle,omitempty"`

	// Firmographic
	Company   string   `json:"company,omitempty"`
	Industry  string   `json:"industry,omitempty"`
	Employees *int     `json:"employees,omitempty"`
	Revenue   *float64 `json:"revenue,omitempty"`

	// Behavioral
	Source       string     `json:"source,omitempty"`
	Status       string     `json:"status,omitempty"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`

	// Explicit and custom fields
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Lead pipeline statuses.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusNurturing = "nurturing"
	LeadStatusConverted = "converted"
	LeadStatusLost      = "lost"
)

// Clone returns a deep copy of the lead. Metadata is copied one level deep,
// which is as deep as field paths can reach.
func (l *Lead) Clone() *Lead {
	if l == nil {
		return nil
	}
	c := *l
	if l.Employees != nil {
		v := *l.Employees
		c.Employees = &v
	}
	if l.Revenue != nil {
		v := *l.Revenue
		c.Revenue = &v
	}
	if l.LastActivity != nil {
		v := *l.LastActivity
		c.LastActivity = &v
	}
	if l.Metadata != nil {
		c.Metadata = make(map[string]any, len(l.Metadata))
		for k, v := range l.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// LeadRequest is the API request payload for creating or updating a lead.
type LeadRequest struct {
	ID           string         `json:"id,omitempty"`
	Name         string         `json:"name" validate:"required,max=200"`
	Email        string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string         `json:"phone,omitempty" validate:"omitempty,max=40"`
	JobTitle     string         `json:"jobTitle,omitempty" validate:"omitempty,max=200"`
	Company      string         `json:"company,omitempty" validate:"omitempty,max=200"`
	Industry     string         `json:"industry,omitempty" validate:"omitempty,max=200"`
	Employees    *int           `json:"employees,omitempty" validate:"omitempty,gte=0"`
	Revenue      *float64       `json:"revenue,omitempty" validate:"omitempty,gte=0"`
	Source       string         `json:"source,omitempty" validate:"omitempty,max=100"`
	Status       string         `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified nurturing converted lost"`
	LastActivity *time.Time     `json:"lastActivity,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ToLead converts a request to a Lead domain object.
func (r *LeadRequest) ToLead(tenantID string) *Lead {
	now := time.Now().UTC()
	status := r.Status
	if status == "" {
		status = LeadStatusNew
	}
	return &Lead{
		ID:           r.ID,
		TenantID:     tenantID,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		JobTitle:     r.JobTitle,
		Company:      r.Company,
		Industry:     r.Industry,
		Employees:    r.Employees,
		Revenue:      r.Revenue,
		Source:       r.Source,
		Status:       status,
		LastActivity: r.LastActivity,
		Metadata:     r.Metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
