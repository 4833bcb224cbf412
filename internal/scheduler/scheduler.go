// Package scheduler moves campaign enrollments through their steps. Each due
// enrollment is advanced by a conditional store update, so a step is queued
// at most once even when due scans overlap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foxzi/smartreach/internal/metrics"
	"github.com/foxzi/smartreach/internal/models"
)

// Processing outcomes, also used as metric labels
const (
	OutcomeAdvanced  = "advanced"
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeStale     = "stale"
	OutcomeFailed    = "failed"
)

var (
	// ErrAlreadyProcessed is returned when another pass advanced the enrollment first
	ErrAlreadyProcessed = errors.New("enrollment already processed")
	ErrLeadNotFound     = errors.New("lead not found")
	ErrCampaignNotFound = errors.New("campaign not found")
)

// Store persists enrollments
type Store interface {
	Upsert(ctx context.Context, e *models.Enrollment) error
	ListDue(ctx context.Context, now time.Time) ([]models.DueEnrollment, error)
	Advance(ctx context.Context, adv models.EnrollmentAdvance, log *models.EmailLog) (bool, error)
}

type LeadStore interface {
	GetByID(ctx context.Context, id string) (*models.Lead, error)
}

type CampaignStore interface {
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
}

// Due is an enrollment whose next send time has passed
type Due struct {
	Enrollment  models.Enrollment `json:"enrollment"`
	Lead        models.Lead       `json:"lead"`
	Campaign    models.Campaign   `json:"campaign"`
	CurrentStep int               `json:"current_step"`
}

// Result summarises one ProcessDue pass
type Result struct {
	Due       int `json:"due"`
	Queued    int `json:"queued"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
	Stale     int `json:"stale"`
	Failed    int `json:"failed"`
}

type Scheduler struct {
	store     Store
	leads     LeadStore
	campaigns CampaignStore
	logger    *slog.Logger
}

func New(store Store, leads LeadStore, campaigns CampaignStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		leads:     leads,
		campaigns: campaigns,
		logger:    logger.With("component", "scheduler"),
	}
}

// Enroll enrolls a lead into a campaign, re-activating an existing
// enrollment. Without nextSendAt the first step is due after its delay.
func (s *Scheduler) Enroll(ctx context.Context, leadID, campaignID string, nextSendAt *time.Time, now time.Time) (*models.Enrollment, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	if nextSendAt == nil {
		at := FirstSendAt(*campaign, now)
		nextSendAt = &at
	}

	e := &models.Enrollment{LeadID: leadID, CampaignID: campaignID, NextSendAt: nextSendAt}
	if err := s.store.Upsert(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("lead enrolled", "enrollment_id", e.ID, "lead_id", leadID, "campaign_id", campaignID, "next_send_at", e.NextSendAt)
	return e, nil
}

// DueEnrollments lists enrollments due at now. It has no side effects.
func (s *Scheduler) DueEnrollments(ctx context.Context, now time.Time) ([]Due, error) {
	rows, err := s.store.ListDue(ctx, now)
	if err != nil {
		return nil, err
	}

	due := make([]Due, len(rows))
	for i, r := range rows {
		due[i] = Due{
			Enrollment:  r.Enrollment,
			Lead:        r.Lead,
			Campaign:    r.Campaign,
			CurrentStep: r.Enrollment.CurrentStep(),
		}
	}
	return due, nil
}

// Advance processes one due enrollment: it queues the current step and
// moves the enrollment to its next send time. The returned time is nil when
// the enrollment was deactivated. ErrAlreadyProcessed means the enrollment
// had already moved past this step.
func (s *Scheduler) Advance(ctx context.Context, due Due, now time.Time) (*time.Time, error) {
	next, _, _, err := s.advance(ctx, due, now)
	return next, err
}

func (s *Scheduler) advance(ctx context.Context, due Due, now time.Time) (*time.Time, string, bool, error) {
	var (
		t       Transition
		log     *models.EmailLog
		outcome string
	)

	if !contactable(due.Lead) {
		// no further sends to this lead from this campaign
		t = Transition{StepIndex: -1, LastStep: due.Enrollment.LastStep}
		outcome = OutcomeSkipped
	} else {
		t = Plan(due.Enrollment, due.Campaign, now)
		if t.Step != nil {
			log = buildLog(due, *t.Step, t.StepIndex)
		}
		outcome = OutcomeAdvanced
		if !t.Active {
			outcome = OutcomeCompleted
		}
	}

	applied, err := s.store.Advance(ctx, models.EnrollmentAdvance{
		EnrollmentID:     due.Enrollment.ID,
		ExpectedLastStep: due.Enrollment.LastStep,
		LastStep:         t.LastStep,
		Active:           t.Active,
		NextSendAt:       t.NextSendAt,
		Now:              now,
	}, log)
	if err != nil {
		return nil, OutcomeFailed, false, fmt.Errorf("failed to advance enrollment %s: %w", due.Enrollment.ID, err)
	}
	if !applied {
		return nil, OutcomeStale, false, ErrAlreadyProcessed
	}

	return t.NextSendAt, outcome, log != nil, nil
}

// ProcessDue advances every enrollment due at now. Errors on single
// enrollments are logged and counted; only a failing due listing aborts.
func (s *Scheduler) ProcessDue(ctx context.Context, now time.Time) (Result, error) {
	start := time.Now()
	defer func() { metrics.ObserveDueScan(time.Since(start).Seconds()) }()

	due, err := s.DueEnrollments(ctx, now)
	if err != nil {
		return Result{}, err
	}

	res := Result{Due: len(due)}
	for _, d := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		next, outcome, queued, err := s.advance(ctx, d, now)
		metrics.IncEnrollmentTransition(outcome)

		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			res.Stale++
			s.logger.Debug("enrollment already processed", "enrollment_id", d.Enrollment.ID)
			continue
		case err != nil:
			res.Failed++
			s.logger.Error("failed to process enrollment", "enrollment_id", d.Enrollment.ID, "error", err)
			continue
		}

		if queued {
			res.Queued++
			metrics.IncEmailsQueued("scheduler")
		}
		switch outcome {
		case OutcomeCompleted:
			res.Completed++
		case OutcomeSkipped:
			res.Skipped++
		}

		s.logger.Debug("enrollment processed",
			"enrollment_id", d.Enrollment.ID,
			"step", d.CurrentStep,
			"outcome", outcome,
			"next_send_at", next,
		)
	}

	s.logger.Info("processed due enrollments",
		"due", res.Due,
		"queued", res.Queued,
		"completed", res.Completed,
		"skipped", res.Skipped,
		"stale", res.Stale,
		"failed", res.Failed,
	)
	return res, nil
}

func contactable(l models.Lead) bool {
	return l.Status == models.LeadStatusActive && strings.TrimSpace(l.Email) != ""
}

func buildLog(due Due, step models.CampaignStep, idx int) *models.EmailLog {
	vars := leadVariables(due.Lead, due.Campaign)
	return &models.EmailLog{
		LeadID:       due.Lead.ID,
		CampaignID:   due.Campaign.ID,
		EnrollmentID: due.Enrollment.ID,
		StepIndex:    &idx,
		ToEmail:      due.Lead.Email,
		Subject:      renderTemplate(step.Subject, vars),
		BodyText:     renderTemplate(step.Body, vars),
		Status:       models.EmailStatusQueued,
	}
}
