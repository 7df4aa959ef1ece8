package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/leadscore/internal/domain"
)

const ruleColumns = `
	id, tenant_id, name, description, category, field, rule_condition,
	rule_value, expression, points, weight, active, position`

// SaveScoringRule stores a rule configuration with tenant isolation.
// Saving a previously deleted rule id restores it.
func (r *SQLRepository) SaveScoringRule(ctx context.Context, tenantID string, rule *domain.ScoringRule) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	active := 0
	if rule.Active {
		active = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO scoring_rules (` + ruleColumns + `, created_at, updated_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			field = excluded.field,
			rule_condition = excluded.rule_condition,
			rule_value = excluded.rule_value,
			expression = excluded.expression,
			points = excluded.points,
			weight = excluded.weight,
			active = excluded.active,
			position = excluded.position,
			updated_at = excluded.updated_at,
			deleted_at = NULL
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		string(rule.Category), rule.Field, string(rule.Condition),
		rule.Value, rule.Expression, rule.Points, rule.Weight, active, rule.Position,
		now, now,
	)
	return err
}

// GetScoringRule retrieves a rule configuration with tenant isolation.
func (r *SQLRepository) GetScoringRule(ctx context.Context, tenantID string, ruleID string) (*domain.ScoringRule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + ruleColumns + `
		FROM scoring_rules
		WHERE tenant_id = ? AND id = ? AND deleted_at IS NULL
	`

	rule, err := scanRule(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListScoringRules retrieves every non-deleted rule for a tenant in
// evaluation order. Inactive rules are included.
func (r *SQLRepository) ListScoringRules(ctx context.Context, tenantID string) ([]*domain.ScoringRule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + ruleColumns + `
		FROM scoring_rules
		WHERE tenant_id = ? AND deleted_at IS NULL
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]*domain.ScoringRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// DeleteScoringRule soft-deletes a rule by setting deleted_at.
func (r *SQLRepository) DeleteScoringRule(ctx context.Context, tenantID string, ruleID string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	query := `
		UPDATE scoring_rules
		SET deleted_at = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND deleted_at IS NULL
	`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, r.rebind(query), now, now, tenantID, ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func scanRule(row rowScanner) (*domain.ScoringRule, error) {
	var rule domain.ScoringRule
	var description sql.NullString
	var category, condition string
	var active int

	if err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &description,
		&category, &rule.Field, &condition,
		&rule.Value, &rule.Expression, &rule.Points, &rule.Weight, &active, &rule.Position,
	); err != nil {
		return nil, err
	}

	rule.Description = description.String
	rule.Category = domain.Category(category)
	rule.Condition = domain.Condition(condition)
	rule.Active = active == 1

	return &rule, nil
}
