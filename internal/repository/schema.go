package repository

// Schema definitions for the leadscore database.
// Compatible with both SQLite and PostgreSQL.

const schemaLeads = `
CREATE TABLE IF NOT EXISTS leads (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    job_title TEXT NOT NULL DEFAULT '',
    company TEXT NOT NULL DEFAULT '',
    industry TEXT NOT NULL DEFAULT '',
    employees INTEGER,
    revenue REAL,
    source TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'new',
    last_activity TIMESTAMP,
    metadata TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_leads_source ON leads(tenant_id, source);
CREATE INDEX IF NOT EXISTS idx_leads_created ON leads(tenant_id, created_at);
`

// schemaScoringRules stores rule configuration. Rows are soft-deleted via
// deleted_at so a rule id can be recreated later.
const schemaScoringRules = `
CREATE TABLE IF NOT EXISTS scoring_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    category TEXT NOT NULL,
    field TEXT NOT NULL DEFAULT '',
    rule_condition TEXT NOT NULL,
    rule_value TEXT NOT NULL DEFAULT '',
    expression TEXT NOT NULL DEFAULT '',
    points INTEGER NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    active INTEGER NOT NULL DEFAULT 1,
    position INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    deleted_at TIMESTAMP,
    PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_scoring_rules_position ON scoring_rules(tenant_id, position);
`

const schemaActivities = `
CREATE TABLE IF NOT EXISTS activities (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    lead_id TEXT NOT NULL,
    type TEXT NOT NULL,
    occurred_at TIMESTAMP NOT NULL,
    notes TEXT,
    PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_activities_lead ON activities(tenant_id, lead_id, occurred_at);
`

const schemaQualificationResponses = `
CREATE TABLE IF NOT EXISTS qualification_responses (
    tenant_id TEXT NOT NULL,
    lead_id TEXT NOT NULL,
    question_id TEXT NOT NULL,
    score INTEGER NOT NULL,
    notes TEXT,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, lead_id, question_id)
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaLeads,
		schemaScoringRules,
		schemaActivities,
		schemaQualificationResponses,
	}
}
