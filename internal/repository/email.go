package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/foxzi/smartreach/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const emailLogColumns = `id, COALESCE(lead_id, '') AS lead_id, COALESCE(campaign_id, '') AS campaign_id,
	COALESCE(enrollment_id, '') AS enrollment_id, step_index, COALESCE(sender_id, '') AS sender_id,
	to_email, subject, COALESCE(body_html, '') AS body_html, COALESCE(body_text, '') AS body_text,
	status, COALESCE(error, '') AS error, created_at, sent_at`

type EmailLogRepository struct {
	db *sqlx.DB
}

func NewEmailLogRepository(db *sqlx.DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

// CreateQueued stores a new log entry in QUEUED state
func (r *EmailLogRepository) CreateQueued(ctx context.Context, l *models.EmailLog) error {
	l.Status = models.EmailStatusQueued
	l.SentAt = nil
	return insertEmailLog(ctx, r.db, l)
}

// List returns email logs matching the filter, newest first
func (r *EmailLogRepository) List(ctx context.Context, filter models.EmailLogFilter) ([]models.EmailLog, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.LeadID != "" {
		where += " AND lead_id = ?"
		args = append(args, filter.LeadID)
	}
	if filter.CampaignID != "" {
		where += " AND campaign_id = ?"
		args = append(args, filter.CampaignID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM email_logs"+where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count email logs: %w", err)
	}

	query := "SELECT " + emailLogColumns + " FROM email_logs" + where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	logs := []models.EmailLog{}
	if err := r.db.SelectContext(ctx, &logs, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list email logs: %w", err)
	}
	return logs, total, nil
}

func insertEmailLog(ctx context.Context, db sqlx.ExtContext, l *models.EmailLog) error {
	l.ID = uuid.New().String()
	l.CreatedAt = time.Now().UTC()
	if l.Status == "" {
		l.Status = models.EmailStatusQueued
	}

	_, err := db.ExecContext(ctx, db.Rebind(`
		INSERT INTO email_logs (id, lead_id, campaign_id, enrollment_id, step_index, sender_id, to_email,
			subject, body_html, body_text, status, error, created_at, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		l.ID, nullString(l.LeadID), nullString(l.CampaignID), nullString(l.EnrollmentID), l.StepIndex,
		nullString(l.SenderID), l.ToEmail, l.Subject, nullString(l.BodyHTML), nullString(l.BodyText),
		l.Status, nullString(l.Error), l.CreatedAt, nullTime(l.SentAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create email log: %w", err)
	}
	return nil
}

type DraftRepository struct {
	db *sqlx.DB
}

func NewDraftRepository(db *sqlx.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// Create stores a generated draft; drafts are never updated
func (r *DraftRepository) Create(ctx context.Context, d *models.EmailDraft) error {
	d.ID = uuid.New().String()
	d.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO email_drafts (id, lead_id, subject, body, model, prompt, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		d.ID, d.LeadID, nullString(d.Subject), d.Body, d.Model, nullString(d.Prompt), d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}
	return nil
}

// ListByLead returns the drafts of a lead, newest first
func (r *DraftRepository) ListByLead(ctx context.Context, leadID string) ([]models.EmailDraft, error) {
	drafts := []models.EmailDraft{}
	err := r.db.SelectContext(ctx, &drafts, r.db.Rebind(`
		SELECT id, lead_id, COALESCE(subject, '') AS subject, body, model, COALESCE(prompt, '') AS prompt, created_at
		FROM email_drafts WHERE lead_id = ? ORDER BY created_at DESC`), leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return drafts, nil
}
