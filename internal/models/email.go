package models

import "time"

// EmailLog status constants
const (
	EmailStatusQueued = "QUEUED"
	EmailStatusSent   = "SENT"
	EmailStatusFailed = "FAILED"
)

// EmailLog records one queued or attempted send
type EmailLog struct {
	ID           string     `db:"id" json:"id"`
	LeadID       string     `db:"lead_id" json:"lead_id,omitempty"`
	CampaignID   string     `db:"campaign_id" json:"campaign_id,omitempty"`
	EnrollmentID string     `db:"enrollment_id" json:"enrollment_id,omitempty"`
	StepIndex    *int       `db:"step_index" json:"step_index,omitempty"`
	SenderID     string     `db:"sender_id" json:"sender_id,omitempty"`
	ToEmail      string     `db:"to_email" json:"to_email"`
	Subject      string     `db:"subject" json:"subject"`
	BodyHTML     string     `db:"body_html" json:"body_html,omitempty"`
	BodyText     string     `db:"body_text" json:"body_text,omitempty"`
	Status       string     `db:"status" json:"status"`
	Error        string     `db:"error" json:"error,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}

// EmailLogFilter for listing email logs
type EmailLogFilter struct {
	Status     string
	LeadID     string
	CampaignID string
	Limit      int
	Offset     int
}

// EmailDraft is an AI-generated draft kept as an audit trail
type EmailDraft struct {
	ID        string    `db:"id" json:"id"`
	LeadID    string    `db:"lead_id" json:"lead_id"`
	Subject   string    `db:"subject" json:"subject"`
	Body      string    `db:"body" json:"body"`
	Model     string    `db:"model" json:"model"`
	Prompt    string    `db:"prompt" json:"prompt"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
