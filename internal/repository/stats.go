package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/foxzi/smartreach/internal/models"
	"github.com/jmoiron/sqlx"
)

type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Stats counts leads, active and due enrollments, and queued email logs
func (r *StatsRepository) Stats(ctx context.Context, now time.Time) (*models.PipelineStats, error) {
	var s models.PipelineStats
	err := r.db.GetContext(ctx, &s, r.db.Rebind(`
		SELECT
			(SELECT COUNT(*) FROM leads) AS leads,
			(SELECT COUNT(*) FROM enrollments WHERE active = ?) AS active_enrollments,
			(SELECT COUNT(*) FROM enrollments WHERE active = ? AND next_send_at IS NOT NULL AND next_send_at <= ?) AS due_enrollments,
			(SELECT COUNT(*) FROM email_logs WHERE status = ?) AS queued_emails`),
		true, true, now.UTC(), models.EmailStatusQueued,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &s, nil
}
