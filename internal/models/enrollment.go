package models

import "time"

// Enrollment links one lead to one campaign and tracks its progress
type Enrollment struct {
	ID          string     `db:"id" json:"id"`
	LeadID      string     `db:"lead_id" json:"lead_id"`
	CampaignID  string     `db:"campaign_id" json:"campaign_id"`
	Active      bool       `db:"active" json:"active"`
	LastStep    int        `db:"last_step" json:"last_step"` // index of last completed step, -1 when none
	NextSendAt  *time.Time `db:"next_send_at" json:"next_send_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// CurrentStep returns the index of the step to send next
func (e Enrollment) CurrentStep() int {
	return e.LastStep + 1
}

// DueEnrollment is an enrollment joined with its lead and campaign
type DueEnrollment struct {
	Enrollment Enrollment `db:"enrollment"`
	Lead       Lead       `db:"lead"`
	Campaign   Campaign   `db:"campaign"`
}

// EnrollmentAdvance describes a conditional state transition of an enrollment.
// It applies only while the stored row still has ExpectedLastStep and is due at Now.
type EnrollmentAdvance struct {
	EnrollmentID     string
	ExpectedLastStep int
	LastStep         int
	Active           bool
	NextSendAt       *time.Time
	Now              time.Time
}
