// Package domain defines the core interfaces and types for leadscore.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
// Lead scores are derived data and are never stored.
type Repository interface {
	// Lead operations
	SaveLead(ctx context.Context, tenantID string, lead *Lead) error
	GetLead(ctx context.Context, tenantID string, leadID string) (*Lead, error)
	ListLeads(ctx context.Context, tenantID string, filter LeadFilter) ([]*Lead, error)
	DeleteLead(ctx context.Context, tenantID string, leadID string) error

	// Scoring rule configuration operations
	SaveScoringRule(ctx context.Context, tenantID string, rule *ScoringRule) error
	GetScoringRule(ctx context.Context, tenantID string, ruleID string) (*ScoringRule, error)
	ListScoringRules(ctx context.Context, tenantID string) ([]*ScoringRule, error)
	DeleteScoringRule(ctx context.Context, tenantID string, ruleID string) error

	// Activity operations
	SaveActivity(ctx context.Context, tenantID string, activity *Activity) error
	ListActivities(ctx context.Context, tenantID string, leadID string, since time.Time) ([]*Activity, error)

	// Qualification questionnaire answers
	SaveQualificationResponses(ctx context.Context, tenantID string, leadID string, responses []QualificationResponse) error
	GetQualificationResponses(ctx context.Context, tenantID string, leadID string) ([]QualificationResponse, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// LeadFilter narrows ListLeads results.
type LeadFilter struct {
	Status string
	Source string
	Limit  int
	Offset int
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific. PostgresURL overrides the individual fields.
	PostgresURL      string
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
