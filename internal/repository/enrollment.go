package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/foxzi/smartreach/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const enrollmentColumns = `id, lead_id, campaign_id, active, last_step, next_send_at, completed_at, created_at, updated_at`

// dueQuery selects due enrollments joined with lead and campaign; column
// aliases map onto the nested structs of models.DueEnrollment.
const dueQuery = `
	SELECT
		e.id AS "enrollment.id", e.lead_id AS "enrollment.lead_id", e.campaign_id AS "enrollment.campaign_id",
		e.active AS "enrollment.active", e.last_step AS "enrollment.last_step",
		e.next_send_at AS "enrollment.next_send_at", e.completed_at AS "enrollment.completed_at",
		e.created_at AS "enrollment.created_at", e.updated_at AS "enrollment.updated_at",
		l.id AS "lead.id", l.owner_id AS "lead.owner_id", l.name AS "lead.name",
		COALESCE(l.email, '') AS "lead.email", l.lead_type AS "lead.lead_type", l.status AS "lead.status",
		COALESCE(l.company, '') AS "lead.company", COALESCE(l.interest, '') AS "lead.interest",
		COALESCE(l.last_service, '') AS "lead.last_service", l.last_service_at AS "lead.last_service_at",
		l.next_suggested_at AS "lead.next_suggested_at", COALESCE(l.tags, '[]') AS "lead.tags",
		l.created_at AS "lead.created_at", l.updated_at AS "lead.updated_at",
		c.id AS "campaign.id", COALESCE(c.owner_id, '') AS "campaign.owner_id", c.name AS "campaign.name",
		COALESCE(c.description, '') AS "campaign.description",
		c.created_at AS "campaign.created_at", c.updated_at AS "campaign.updated_at"
	FROM enrollments e
	JOIN leads l ON l.id = e.lead_id
	JOIN campaigns c ON c.id = e.campaign_id
	WHERE e.active = ? AND e.next_send_at IS NOT NULL AND e.next_send_at <= ?
	ORDER BY e.next_send_at, e.id`

type EnrollmentRepository struct {
	db *sqlx.DB
}

func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Upsert creates the enrollment for (lead, campaign) or re-activates the
// existing one. An inactive enrollment restarts from the first step; an
// active one keeps its progress and only moves its next send time.
func (r *EnrollmentRepository) Upsert(ctx context.Context, e *models.Enrollment) error {
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO enrollments (id, lead_id, campaign_id, active, last_step, next_send_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, -1, ?, ?, ?)
		ON CONFLICT(lead_id, campaign_id) DO UPDATE SET
			last_step = CASE WHEN enrollments.active THEN enrollments.last_step ELSE -1 END,
			active = excluded.active,
			next_send_at = excluded.next_send_at,
			completed_at = NULL,
			updated_at = excluded.updated_at`),
		uuid.New().String(), e.LeadID, e.CampaignID, true, nullTime(e.NextSendAt), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert enrollment: %w", err)
	}

	var stored models.Enrollment
	err = r.db.GetContext(ctx, &stored, r.db.Rebind(`
		SELECT `+enrollmentColumns+` FROM enrollments WHERE lead_id = ? AND campaign_id = ?`),
		e.LeadID, e.CampaignID,
	)
	if err != nil {
		return fmt.Errorf("failed to read back enrollment: %w", err)
	}
	*e = stored
	return nil
}

// GetByID returns an enrollment by ID
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.GetContext(ctx, &e, r.db.Rebind(`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return &e, nil
}

// ListDue returns active enrollments whose next send time is at or before now,
// joined with their lead and campaign (including steps). It has no side effects.
func (r *EnrollmentRepository) ListDue(ctx context.Context, now time.Time) ([]models.DueEnrollment, error) {
	due := []models.DueEnrollment{}
	if err := r.db.SelectContext(ctx, &due, r.db.Rebind(dueQuery), true, now.UTC()); err != nil {
		return nil, fmt.Errorf("failed to list due enrollments: %w", err)
	}
	if len(due) == 0 {
		return due, nil
	}

	seen := make(map[string]bool)
	var ids []string
	for _, d := range due {
		if !seen[d.Campaign.ID] {
			seen[d.Campaign.ID] = true
			ids = append(ids, d.Campaign.ID)
		}
	}
	steps, err := loadSteps(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range due {
		due[i].Campaign.Steps = steps[due[i].Campaign.ID]
		if due[i].Campaign.Steps == nil {
			due[i].Campaign.Steps = []models.CampaignStep{}
		}
	}
	return due, nil
}

// Advance applies a state transition only if the enrollment is still active,
// still at adv.ExpectedLastStep and still due at adv.Now. When log is non-nil
// it is inserted in the same transaction. applied is false when another pass
// already moved the enrollment.
func (r *EnrollmentRepository) Advance(ctx context.Context, adv models.EnrollmentAdvance, log *models.EmailLog) (bool, error) {
	now := adv.Now.UTC()
	var completedAt *time.Time
	if !adv.Active {
		completedAt = &now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE enrollments
		SET last_step = ?, active = ?, next_send_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND active = ? AND last_step = ? AND next_send_at IS NOT NULL AND next_send_at <= ?`),
		adv.LastStep, adv.Active, nullTime(adv.NextSendAt), nullTime(completedAt), now,
		adv.EnrollmentID, true, adv.ExpectedLastStep, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to advance enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if log != nil {
		if err := insertEmailLog(ctx, tx, log); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit enrollment advance: %w", err)
	}
	return true, nil
}
