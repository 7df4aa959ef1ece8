package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opensource-finance/leadscore/internal/domain"
)

// SaveActivity stores an activity with tenant isolation.
func (r *SQLRepository) SaveActivity(ctx context.Context, tenantID string, activity *domain.Activity) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if activity == nil || activity.ID == "" || activity.LeadID == "" {
		return fmt.Errorf("%w: activity id and lead id are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO activities (id, tenant_id, lead_id, type, occurred_at, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		activity.ID, tenantID, activity.LeadID, activity.Type,
		activity.OccurredAt.UTC(), activity.Notes,
	)
	return err
}

// ListActivities retrieves a lead's activities since a point in time,
// oldest first. A zero since returns every activity.
func (r *SQLRepository) ListActivities(ctx context.Context, tenantID string, leadID string, since time.Time) ([]*domain.Activity, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, lead_id, type, occurred_at, notes
		FROM activities
		WHERE tenant_id = ? AND lead_id = ? AND occurred_at >= ?
		ORDER BY occurred_at, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, leadID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]*domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		var notes sql.NullString

		if err := rows.Scan(&a.ID, &a.TenantID, &a.LeadID, &a.Type, &a.OccurredAt, &notes); err != nil {
			return nil, err
		}
		a.OccurredAt = a.OccurredAt.UTC()
		a.Notes = notes.String
		activities = append(activities, &a)
	}

	return activities, rows.Err()
}

// SaveQualificationResponses upserts a lead's questionnaire answers.
// Answers to questions not in the list are left untouched.
func (r *SQLRepository) SaveQualificationResponses(ctx context.Context, tenantID string, leadID string, responses []domain.QualificationResponse) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if leadID == "" {
		return fmt.Errorf("%w: leadID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := r.rebind(`
		INSERT INTO qualification_responses (tenant_id, lead_id, question_id, score, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, lead_id, question_id) DO UPDATE SET
			score = excluded.score,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`)

	now := time.Now().UTC()
	for _, resp := range responses {
		if resp.QuestionID == "" {
			return fmt.Errorf("%w: questionId is required", ErrInvalidInput)
		}
		if _, err := tx.ExecContext(ctx, query, tenantID, leadID, resp.QuestionID, resp.Score, resp.Notes, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetQualificationResponses retrieves a lead's answers ordered by question.
func (r *SQLRepository) GetQualificationResponses(ctx context.Context, tenantID string, leadID string) ([]domain.QualificationResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT question_id, score, notes
		FROM qualification_responses
		WHERE tenant_id = ? AND lead_id = ?
		ORDER BY question_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := make([]domain.QualificationResponse, 0)
	for rows.Next() {
		var resp domain.QualificationResponse
		var notes sql.NullString

		if err := rows.Scan(&resp.QuestionID, &resp.Score, &notes); err != nil {
			return nil, err
		}
		resp.Notes = notes.String
		responses = append(responses, resp)
	}

	return responses, rows.Err()
}
