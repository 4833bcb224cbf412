package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/foxzi/smartreach/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const leadColumns = `id, owner_id, name, COALESCE(email, '') AS email, lead_type, status,
	COALESCE(company, '') AS company, COALESCE(interest, '') AS interest,
	COALESCE(last_service, '') AS last_service, last_service_at, next_suggested_at,
	COALESCE(tags, '[]') AS tags, created_at, updated_at`

type LeadRepository struct {
	db *sqlx.DB
}

func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Upsert inserts a lead or, when (owner_id, email) already exists, overwrites
// its mutable fields. The stored row is copied back into l.
func (r *LeadRepository) Upsert(ctx context.Context, l *models.Lead) error {
	now := time.Now().UTC()
	l.Email = strings.TrimSpace(l.Email)
	if l.Type == "" {
		l.Type = models.LeadTypeNew
	}
	if l.Status == "" {
		l.Status = models.LeadStatusActive
	}
	if l.Tags == nil {
		l.Tags = models.StringList{}
	}
	createdAt := l.CreatedAt.UTC()
	if l.CreatedAt.IsZero() {
		createdAt = now
	}

	query := `
		INSERT INTO leads (id, owner_id, name, email, lead_type, status, company, interest,
			last_service, last_service_at, next_suggested_at, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if l.Email != "" {
		query += `
		ON CONFLICT(owner_id, email) DO UPDATE SET
			name = excluded.name,
			lead_type = excluded.lead_type,
			status = excluded.status,
			company = excluded.company,
			interest = excluded.interest,
			last_service = excluded.last_service,
			last_service_at = excluded.last_service_at,
			next_suggested_at = excluded.next_suggested_at,
			tags = excluded.tags,
			updated_at = excluded.updated_at`
	}

	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		id, l.OwnerID, l.Name, nullString(l.Email), l.Type, l.Status,
		nullString(l.Company), nullString(l.Query), nullString(l.LastService),
		nullTime(l.LastServiceAt), nullTime(l.NextSuggestedAt), l.Tags, createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert lead: %w", err)
	}

	var stored *models.Lead
	if l.Email != "" {
		stored, err = r.getByOwnerEmail(ctx, l.OwnerID, l.Email)
	} else {
		stored, err = r.GetByID(ctx, id)
	}
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("failed to read back lead %s", id)
	}
	*l = *stored
	return nil
}

// GetByID returns a lead by ID
func (r *LeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	var l models.Lead
	err := r.db.GetContext(ctx, &l, r.db.Rebind(`SELECT `+leadColumns+` FROM leads WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &l, nil
}

func (r *LeadRepository) getByOwnerEmail(ctx context.Context, ownerID, email string) (*models.Lead, error) {
	var l models.Lead
	err := r.db.GetContext(ctx, &l,
		r.db.Rebind(`SELECT `+leadColumns+` FROM leads WHERE owner_id = ? AND email = ?`), ownerID, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &l, nil
}

// List returns leads matching the filter and the total number of matches
func (r *LeadRepository) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.OwnerID != "" {
		where += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		where += " AND lead_type = ?"
		args = append(args, filter.Type)
	}
	if filter.Tag != "" {
		// tags are stored as a JSON array of strings
		where += " AND tags LIKE ?"
		args = append(args, `%"`+escapeJSONString(filter.Tag)+`"%`)
	}
	if filter.Search != "" {
		where += " AND (name LIKE ? OR email LIKE ? OR company LIKE ?)"
		s := "%" + filter.Search + "%"
		args = append(args, s, s, s)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM leads"+where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	query := "SELECT " + leadColumns + " FROM leads" + where +
		" ORDER BY created_at " + orderDirection(filter.Order)
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	leads := []models.Lead{}
	if err := r.db.SelectContext(ctx, &leads, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, total, nil
}

// UpdateStatus sets the lifecycle status of a lead
func (r *LeadRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE leads SET status = ?, updated_at = ? WHERE id = ?"),
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead status: %w", err)
	}
	return requireRow(res)
}

// UpdateTags replaces the tag set of a lead
func (r *LeadRepository) UpdateTags(ctx context.Context, id string, tags []string) error {
	list := models.StringList(dedupeTags(tags))
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE leads SET tags = ?, updated_at = ? WHERE id = ?"),
		list, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead tags: %w", err)
	}
	return requireRow(res)
}

// dedupeTags trims tags and drops empty and repeated entries, keeping order
func dedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func escapeJSONString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
