package models

import "time"

// Campaign is an ordered multi-step email sequence
type Campaign struct {
	ID          string         `db:"id" json:"id"`
	OwnerID     string         `db:"owner_id" json:"owner_id,omitempty"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
	Steps       []CampaignStep `db:"-" json:"steps"`
}

// CampaignStep is one templated email stage within a campaign
type CampaignStep struct {
	ID         string    `db:"id" json:"id"`
	CampaignID string    `db:"campaign_id" json:"campaign_id"`
	Position   int       `db:"position" json:"position"`       // 0-based order within the campaign
	DelayHours int       `db:"delay_hours" json:"delay_hours"` // wait before this step becomes due
	Subject    string    `db:"subject" json:"subject"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Delay returns the configured wait before the step is due
func (s CampaignStep) Delay() time.Duration {
	return time.Duration(s.DelayHours) * time.Hour
}

// CampaignListFilter for filtering campaigns
type CampaignListFilter struct {
	OwnerID string
	Search  string
	Limit   int
	Offset  int
}
