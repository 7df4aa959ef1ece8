package domain

import "time"

// Activity is a recorded interaction with a lead (emails, calls, meetings).
type Activity struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	LeadID     string    `json:"leadId"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Notes      string    `json:"notes,omitempty"`
}

// Activity types.
const (
	ActivityEmailSent   = "email_sent"
	ActivityEmailOpened = "email_opened"
	ActivityCall        = "call"
	ActivityMeeting     = "meeting"
	ActivityFormSubmit  = "form_submit"
	ActivityPageView    = "page_view"
)

// ActivityRequest is the API request payload for recording an activity.
type ActivityRequest struct {
	Type       string     `json:"type" validate:"required,oneof=email_sent email_opened call meeting form_submit page_view"`
	OccurredAt *time.Time `json:"occurredAt,omitempty"`
	Notes      string     `json:"notes,omitempty" validate:"omitempty,max=2000"`
}
