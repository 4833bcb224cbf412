package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/foxzi/smartreach/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const campaignColumns = `id, COALESCE(owner_id, '') AS owner_id, name,
	COALESCE(description, '') AS description, created_at, updated_at`

type CampaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create creates a campaign together with its steps. Steps are stored in
// Position order and renumbered from zero.
func (r *CampaignRepository) Create(ctx context.Context, c *models.Campaign) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt

	sort.SliceStable(c.Steps, func(i, j int) bool {
		return c.Steps[i].Position < c.Steps[j].Position
	})

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO campaigns (id, owner_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		c.ID, nullString(c.OwnerID), c.Name, nullString(c.Description), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	for i := range c.Steps {
		s := &c.Steps[i]
		s.ID = uuid.New().String()
		s.CampaignID = c.ID
		s.Position = i
		s.CreatedAt = c.CreatedAt

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO campaign_steps (id, campaign_id, position, delay_hours, subject, body, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			s.ID, s.CampaignID, s.Position, s.DelayHours, s.Subject, nullString(s.Body), s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create campaign step %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit campaign: %w", err)
	}
	if c.Steps == nil {
		c.Steps = []models.CampaignStep{}
	}
	return nil
}

// GetByID returns a campaign with its steps
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	var c models.Campaign
	err := r.db.GetContext(ctx, &c, r.db.Rebind(`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	steps, err := r.GetSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Steps = steps
	return &c, nil
}

// GetSteps returns the steps of a campaign in position order
func (r *CampaignRepository) GetSteps(ctx context.Context, campaignID string) ([]models.CampaignStep, error) {
	byCampaign, err := loadSteps(ctx, r.db, []string{campaignID})
	if err != nil {
		return nil, err
	}
	steps := byCampaign[campaignID]
	if steps == nil {
		steps = []models.CampaignStep{}
	}
	return steps, nil
}

// List returns campaigns with their steps
func (r *CampaignRepository) List(ctx context.Context, filter models.CampaignListFilter) ([]models.Campaign, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.OwnerID != "" {
		where += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.Search != "" {
		where += " AND (name LIKE ? OR description LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM campaigns"+where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	query := "SELECT " + campaignColumns + " FROM campaigns" + where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	campaigns := []models.Campaign{}
	if err := r.db.SelectContext(ctx, &campaigns, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}

	ids := make([]string, len(campaigns))
	for i, c := range campaigns {
		ids[i] = c.ID
	}
	byCampaign, err := loadSteps(ctx, r.db, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range campaigns {
		campaigns[i].Steps = byCampaign[campaigns[i].ID]
		if campaigns[i].Steps == nil {
			campaigns[i].Steps = []models.CampaignStep{}
		}
	}

	return campaigns, total, nil
}

// loadSteps fetches the steps of several campaigns in one query
func loadSteps(ctx context.Context, db *sqlx.DB, campaignIDs []string) (map[string][]models.CampaignStep, error) {
	out := make(map[string][]models.CampaignStep, len(campaignIDs))
	if len(campaignIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, campaign_id, position, delay_hours, subject, COALESCE(body, '') AS body, created_at
		FROM campaign_steps
		WHERE campaign_id IN (?)
		ORDER BY campaign_id, position`, campaignIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build steps query: %w", err)
	}

	var steps []models.CampaignStep
	if err := db.SelectContext(ctx, &steps, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load campaign steps: %w", err)
	}
	for _, s := range steps {
		out[s.CampaignID] = append(out[s.CampaignID], s)
	}
	return out, nil
}
