// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/leadscore/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	// Each in-memory connection is its own database.
	if isMemorySQLite(cfg) {
		db.SetMaxOpenConns(1)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

func requireTenant(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	return nil
}

const leadColumns = `
	id, tenant_id, name, email, phone, job_title, company, industry,
	employees, revenue, source, status, last_activity, metadata,
	created_at, updated_at`

// SaveLead inserts or updates a lead with tenant isolation.
// The original created_at is kept on update and written back to lead.
func (r *SQLRepository) SaveLead(ctx context.Context, tenantID string, lead *domain.Lead) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if lead == nil || lead.ID == "" {
		return fmt.Errorf("%w: lead id is required", ErrInvalidInput)
	}

	metadata, err := json.Marshal(lead.Metadata)
	if err != nil {
		return fmt.Errorf("%w: metadata: %v", ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	lead.TenantID = tenantID

	var employees sql.NullInt64
	if lead.Employees != nil {
		employees = sql.NullInt64{Int64: int64(*lead.Employees), Valid: true}
	}
	var revenue sql.NullFloat64
	if lead.Revenue != nil {
		revenue = sql.NullFloat64{Float64: *lead.Revenue, Valid: true}
	}
	var lastActivity sql.NullTime
	if lead.LastActivity != nil {
		lastActivity = sql.NullTime{Time: lead.LastActivity.UTC(), Valid: true}
	}

	query := `
		INSERT INTO leads (` + leadColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			job_title = excluded.job_title,
			company = excluded.company,
			industry = excluded.industry,
			employees = excluded.employees,
			revenue = excluded.revenue,
			source = excluded.source,
			status = excluded.status,
			last_activity = excluded.last_activity,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		lead.ID, tenantID, lead.Name, lead.Email, lead.Phone, lead.JobTitle,
		lead.Company, lead.Industry, employees, revenue, lead.Source, lead.Status,
		lastActivity, string(metadata), lead.CreatedAt.UTC(), lead.UpdatedAt,
	)
	if err != nil {
		return err
	}

	var createdAt time.Time
	err = r.db.QueryRowContext(ctx,
		r.rebind(`SELECT created_at FROM leads WHERE tenant_id = ? AND id = ?`),
		tenantID, lead.ID,
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("failed to read back lead %s: %w", lead.ID, err)
	}
	lead.CreatedAt = createdAt.UTC()
	return nil
}

// GetLead retrieves a lead by ID with tenant isolation.
func (r *SQLRepository) GetLead(ctx context.Context, tenantID string, leadID string) (*domain.Lead, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = ? AND id = ?`

	lead, err := scanLead(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, leadID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// ListLeads retrieves a tenant's leads, oldest first.
func (r *SQLRepository) ListLeads(ctx context.Context, tenantID string, filter domain.LeadFilter) ([]*domain.Lead, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = ?`)
	args := []any{tenantID}

	if filter.Status != "" {
		b.WriteString(` AND status = ?`)
		args = append(args, filter.Status)
	}
	if filter.Source != "" {
		b.WriteString(` AND source = ?`)
		args = append(args, filter.Source)
	}
	b.WriteString(` ORDER BY created_at, id`)
	if filter.Limit > 0 {
		b.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(b.String()), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]*domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	return leads, rows.Err()
}

// DeleteLead removes a lead together with its activities and
// qualification responses.
func (r *SQLRepository) DeleteLead(ctx context.Context, tenantID string, leadID string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM leads WHERE tenant_id = ? AND id = ?`), tenantID, leadID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	for _, query := range []string{
		`DELETE FROM activities WHERE tenant_id = ? AND lead_id = ?`,
		`DELETE FROM qualification_responses WHERE tenant_id = ? AND lead_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, r.rebind(query), tenantID, leadID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var lead domain.Lead
	var employees sql.NullInt64
	var revenue sql.NullFloat64
	var lastActivity sql.NullTime
	var metadata sql.NullString

	if err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.Name, &lead.Email, &lead.Phone,
		&lead.JobTitle, &lead.Company, &lead.Industry,
		&employees, &revenue, &lead.Source, &lead.Status, &lastActivity, &metadata,
		&lead.CreatedAt, &lead.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if employees.Valid {
		v := int(employees.Int64)
		lead.Employees = &v
	}
	if revenue.Valid {
		v := revenue.Float64
		lead.Revenue = &v
	}
	if lastActivity.Valid {
		v := lastActivity.Time.UTC()
		lead.LastActivity = &v
	}
	if metadata.Valid && metadata.String != "" && metadata.String != "null" {
		if err := json.Unmarshal([]byte(metadata.String), &lead.Metadata); err != nil {
			return nil, fmt.Errorf("failed to parse lead metadata for %s: %w", lead.ID, err)
		}
	}
	lead.CreatedAt = lead.CreatedAt.UTC()
	lead.UpdatedAt = lead.UpdatedAt.UTC()

	return &lead, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
