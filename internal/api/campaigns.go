package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/smartreach/internal/models"
	"github.com/foxzi/smartreach/internal/scheduler"
)

// CampaignRequest is the request body for POST /api/v1/campaigns
type CampaignRequest struct {
	OwnerID     string        `json:"owner_id"`
	Name        string        `json:"name" validate:"required"`
	Description string        `json:"description"`
	Steps       []StepRequest `json:"steps" validate:"required,min=1,dive"`
}

// StepRequest is one step of a CampaignRequest
type StepRequest struct {
	Position   int    `json:"position" validate:"min=0"`
	DelayHours int    `json:"delay_hours" validate:"min=0"`
	Subject    string `json:"subject" validate:"required"`
	Body       string `json:"body"`
}

// EnrollRequest is the request body for POST /api/v1/enrollments
type EnrollRequest struct {
	LeadID     string     `json:"lead_id" validate:"required"`
	CampaignID string     `json:"campaign_id" validate:"required"`
	NextSendAt *time.Time `json:"next_send_at"`
}

// handleCampaignsList handles GET /api/v1/campaigns
func (s *Server) handleCampaignsList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	campaigns, total, err := s.deps.Campaigns.List(r.Context(), models.CampaignListFilter{
		OwnerID: r.URL.Query().Get("owner_id"),
		Search:  r.URL.Query().Get("search"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		s.logger.Error("failed to list campaigns", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list campaigns")
		return
	}

	s.sendJSON(w, http.StatusOK, ListResponse[models.Campaign]{Items: campaigns, Total: total})
}

// handleCampaignsCreate handles POST /api/v1/campaigns
func (s *Server) handleCampaignsCreate(w http.ResponseWriter, r *http.Request) {
	var req CampaignRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	c := &models.Campaign{
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		Steps:       make([]models.CampaignStep, len(req.Steps)),
	}
	for i, st := range req.Steps {
		c.Steps[i] = models.CampaignStep{
			Position:   st.Position,
			DelayHours: st.DelayHours,
			Subject:    st.Subject,
			Body:       st.Body,
		}
	}

	if err := s.deps.Campaigns.Create(r.Context(), c); err != nil {
		s.logger.Error("failed to create campaign", "name", req.Name, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to create campaign")
		return
	}

	s.logger.Info("campaign created", "id", c.ID, "steps", len(c.Steps))
	s.sendJSON(w, http.StatusCreated, c)
}

// handleCampaignsGet handles GET /api/v1/campaigns/{id}
func (s *Server) handleCampaignsGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.deps.Campaigns.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get campaign", "id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get campaign")
		return
	}
	if c == nil {
		s.sendError(w, http.StatusNotFound, "Campaign not found")
		return
	}

	s.sendJSON(w, http.StatusOK, c)
}

// handleEnroll handles POST /api/v1/enrollments
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	e, err := s.deps.Scheduler.Enroll(r.Context(), req.LeadID, req.CampaignID, req.NextSendAt, s.now())
	switch {
	case errors.Is(err, scheduler.ErrLeadNotFound):
		s.sendError(w, http.StatusNotFound, "Lead not found")
		return
	case errors.Is(err, scheduler.ErrCampaignNotFound):
		s.sendError(w, http.StatusNotFound, "Campaign not found")
		return
	case err != nil:
		s.logger.Error("failed to enroll lead", "lead_id", req.LeadID, "campaign_id", req.CampaignID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to enroll lead")
		return
	}

	s.sendJSON(w, http.StatusCreated, e)
}

// AdvanceResponse is the response for POST /api/v1/enrollments/{id}/advance
type AdvanceResponse struct {
	EnrollmentID string     `json:"enrollment_id"`
	Active       bool       `json:"active"`
	NextSendAt   *time.Time `json:"next_send_at,omitempty"`
}

// handleEnrollmentAdvance handles POST /api/v1/enrollments/{id}/advance.
// Only a due enrollment can be advanced.
func (s *Server) handleEnrollmentAdvance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	now := s.now()

	due, err := s.deps.Scheduler.DueEnrollments(r.Context(), now)
	if err != nil {
		s.logger.Error("failed to list due enrollments", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to load enrollment")
		return
	}

	var target *scheduler.Due
	for i := range due {
		if due[i].Enrollment.ID == id {
			target = &due[i]
			break
		}
	}
	if target == nil {
		s.sendError(w, http.StatusConflict, "Enrollment is not due")
		return
	}

	next, err := s.deps.Scheduler.Advance(r.Context(), *target, now)
	if errors.Is(err, scheduler.ErrAlreadyProcessed) {
		s.sendError(w, http.StatusConflict, "Enrollment already processed")
		return
	}
	if err != nil {
		s.logger.Error("failed to advance enrollment", "id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to advance enrollment")
		return
	}

	s.sendJSON(w, http.StatusOK, AdvanceResponse{EnrollmentID: id, Active: next != nil, NextSendAt: next})
}
