// Package activity records lead activities and derives engagement signals
// from them.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/leadscore/internal/domain"
)

// Metadata keys written by Enrich.
const (
	MetaActivityCount    = "activityCount"
	MetaLastActivityType = "lastActivityType"
)

var knownTypes = map[string]struct{}{
	domain.ActivityEmailSent:   {},
	domain.ActivityEmailOpened: {},
	domain.ActivityCall:        {},
	domain.ActivityMeeting:     {},
	domain.ActivityFormSubmit:  {},
	domain.ActivityPageView:    {},
}

// Service records activities and enriches leads with recent activity.
type Service struct {
	repo   domain.Repository
	window time.Duration
	now    func() time.Time
}

// NewService creates a new activity service. Activities older than window
// do not count towards enrichment; a zero window counts everything.
func NewService(repo domain.Repository, window time.Duration) *Service {
	return &Service{
		repo:   repo,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record validates and stores an activity. Missing IDs and timestamps are
// filled in.
func (s *Service) Record(ctx context.Context, tenantID string, a *domain.Activity) error {
	if tenantID == "" || a == nil || a.LeadID == "" {
		return fmt.Errorf("tenantID, activity and leadID are required")
	}
	if _, ok := knownTypes[a.Type]; !ok {
		return fmt.Errorf("unknown activity type %q", a.Type)
	}

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = s.now()
	}
	a.TenantID = tenantID

	if err := s.repo.SaveActivity(ctx, tenantID, a); err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}
	return nil
}

// Recent returns the lead's activities inside the window, oldest first.
func (s *Service) Recent(ctx context.Context, tenantID, leadID string) ([]*domain.Activity, error) {
	if tenantID == "" || leadID == "" {
		return nil, fmt.Errorf("tenantID and leadID are required")
	}

	var since time.Time
	if s.window > 0 {
		since = s.now().Add(-s.window)
	}

	activities, err := s.repo.ListActivities(ctx, tenantID, leadID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

// CountRecent returns the number of activities for a lead inside the window.
func (s *Service) CountRecent(ctx context.Context, tenantID, leadID string) (int, error) {
	activities, err := s.Recent(ctx, tenantID, leadID)
	if err != nil {
		return 0, err
	}
	return len(activities), nil
}

// Enrich returns a copy of the lead with activity signals applied:
// metadata.activityCount, metadata.lastActivityType, and lastActivity moved
// forward to the newest activity. The input lead is never modified.
func (s *Service) Enrich(ctx context.Context, tenantID string, lead *domain.Lead) (*domain.Lead, error) {
	if lead == nil {
		return nil, fmt.Errorf("lead is required")
	}

	activities, err := s.Recent(ctx, tenantID, lead.ID)
	if err != nil {
		return nil, err
	}
	return Apply(lead, activities), nil
}

// Apply is the pure part of Enrich.
func Apply(lead *domain.Lead, activities []*domain.Activity) *domain.Lead {
	enriched := lead.Clone()
	if enriched.Metadata == nil {
		enriched.Metadata = make(map[string]any, 2)
	}
	enriched.Metadata[MetaActivityCount] = len(activities)

	var newest *domain.Activity
	for _, a := range activities {
		if newest == nil || a.OccurredAt.After(newest.OccurredAt) {
			newest = a
		}
	}
	if newest == nil {
		return enriched
	}

	enriched.Metadata[MetaLastActivityType] = newest.Type
	if enriched.LastActivity == nil || newest.OccurredAt.After(*enriched.LastActivity) {
		at := newest.OccurredAt
		enriched.LastActivity = &at
	}
	return enriched
}
