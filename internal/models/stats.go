package models

// PipelineStats is a point-in-time summary of stored records
type PipelineStats struct {
	Leads             int64 `db:"leads" json:"leads"`
	ActiveEnrollments int64 `db:"active_enrollments" json:"active_enrollments"`
	DueEnrollments    int64 `db:"due_enrollments" json:"due_enrollments"`
	QueuedEmails      int64 `db:"queued_emails" json:"queued_emails"`
}
