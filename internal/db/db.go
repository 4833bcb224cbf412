package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sqlx.DB
}

// New opens a database for driver "sqlite3" or "postgres".
func New(driver, dsn string) (*DB, error) {
	if driver == "sqlite3" {
		var err error
		if dsn, err = prepareSQLite(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite3" && strings.Contains(dsn, ":memory:") {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{db}, nil
}

func prepareSQLite(dsn string) (string, error) {
	if dsn == ":memory:" {
		return "file::memory:?_foreign_keys=on", nil
	}
	if strings.HasPrefix(dsn, "file:") {
		return dsn, nil
	}

	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return dsn + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", nil
}

func (db *DB) Migrate() error {
	migrations := []string{
		migrationLeads,
		migrationCampaigns,
		migrationCampaignSteps,
		migrationEnrollments,
		migrationEmailLogs,
		migrationEmailDrafts,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const migrationLeads = `
CREATE TABLE IF NOT EXISTS leads (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT,
    lead_type TEXT NOT NULL DEFAULT 'NEW',
    status TEXT NOT NULL DEFAULT 'ACTIVE',
    company TEXT,
    interest TEXT,
    last_service TEXT,
    last_service_at TIMESTAMP,
    next_suggested_at TIMESTAMP,
    tags TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE(owner_id, email)
);
CREATE INDEX IF NOT EXISTS idx_leads_owner ON leads(owner_id);
CREATE INDEX IF NOT EXISTS idx_leads_created ON leads(created_at);
`

const migrationCampaigns = `
CREATE TABLE IF NOT EXISTS campaigns (
    id TEXT PRIMARY KEY,
    owner_id TEXT,
    name TEXT NOT NULL,
    description TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const migrationCampaignSteps = `
CREATE TABLE IF NOT EXISTS campaign_steps (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    delay_hours INTEGER NOT NULL DEFAULT 0,
    subject TEXT NOT NULL,
    body TEXT,
    created_at TIMESTAMP NOT NULL,
    UNIQUE(campaign_id, position)
);
`

const migrationEnrollments = `
CREATE TABLE IF NOT EXISTS enrollments (
    id TEXT PRIMARY KEY,
    lead_id TEXT NOT NULL REFERENCES leads(id),
    campaign_id TEXT NOT NULL REFERENCES campaigns(id),
    active BOOLEAN NOT NULL DEFAULT TRUE,
    last_step INTEGER NOT NULL DEFAULT -1,
    next_send_at TIMESTAMP,
    completed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE(lead_id, campaign_id)
);
CREATE INDEX IF NOT EXISTS idx_enrollments_due ON enrollments(active, next_send_at);
`

const migrationEmailLogs = `
CREATE TABLE IF NOT EXISTS email_logs (
    id TEXT PRIMARY KEY,
    lead_id TEXT REFERENCES leads(id),
    campaign_id TEXT REFERENCES campaigns(id),
    enrollment_id TEXT REFERENCES enrollments(id),
    step_index INTEGER,
    sender_id TEXT,
    to_email TEXT NOT NULL,
    subject TEXT NOT NULL,
    body_html TEXT,
    body_text TEXT,
    status TEXT NOT NULL DEFAULT 'QUEUED',
    error TEXT,
    created_at TIMESTAMP NOT NULL,
    sent_at TIMESTAMP,
    UNIQUE(enrollment_id, step_index)
);
CREATE INDEX IF NOT EXISTS idx_email_logs_status ON email_logs(status);
CREATE INDEX IF NOT EXISTS idx_email_logs_lead ON email_logs(lead_id);
`

const migrationEmailDrafts = `
CREATE TABLE IF NOT EXISTS email_drafts (
    id TEXT PRIMARY KEY,
    lead_id TEXT NOT NULL REFERENCES leads(id),
    subject TEXT,
    body TEXT NOT NULL,
    model TEXT NOT NULL,
    prompt TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_email_drafts_lead ON email_drafts(lead_id);
`
