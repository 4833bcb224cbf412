package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/smartreach/internal/dashboard"
	"github.com/foxzi/smartreach/internal/models"
	"github.com/foxzi/smartreach/internal/repository"
)

// LeadRequest is the request body for POST /api/v1/leads
type LeadRequest struct {
	OwnerID         string     `json:"owner_id" validate:"required"`
	Name            string     `json:"name" validate:"required"`
	Email           string     `json:"email" validate:"omitempty,email"`
	Type            string     `json:"type" validate:"omitempty,oneof=NEW RETURNING"`
	Status          string     `json:"status" validate:"omitempty,oneof=ACTIVE DO_NOT_CONTACT LOST"`
	Company         string     `json:"company"`
	Query           string     `json:"query"`
	LastService     string     `json:"last_service"`
	LastServiceAt   *time.Time `json:"last_service_at"`
	NextSuggestedAt *time.Time `json:"next_suggested_at"`
	Tags            []string   `json:"tags"`
}

// LeadStatusRequest is the request body for PUT /api/v1/leads/{id}/status
type LeadStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE DO_NOT_CONTACT LOST"`
}

// LeadTagsRequest is the request body for PUT /api/v1/leads/{id}/tags
type LeadTagsRequest struct {
	Tags []string `json:"tags"`
}

// handleLeadsList handles GET /api/v1/leads
func (s *Server) handleLeadsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(r)

	leads, total, err := s.deps.Leads.List(r.Context(), models.LeadFilter{
		OwnerID: q.Get("owner_id"),
		Status:  strings.ToUpper(q.Get("status")),
		Type:    strings.ToUpper(q.Get("type")),
		Tag:     q.Get("tag"),
		Search:  q.Get("search"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		s.logger.Error("failed to list leads", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list leads")
		return
	}

	s.sendJSON(w, http.StatusOK, ListResponse[models.Lead]{Items: leads, Total: total})
}

// handleLeadsUpsert handles POST /api/v1/leads
func (s *Server) handleLeadsUpsert(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	lead := &models.Lead{
		OwnerID:         req.OwnerID,
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Type:            req.Type,
		Status:          req.Status,
		Company:         req.Company,
		Query:           req.Query,
		LastService:     req.LastService,
		LastServiceAt:   req.LastServiceAt,
		NextSuggestedAt: req.NextSuggestedAt,
		Tags:            req.Tags,
	}
	if err := s.deps.Leads.Upsert(r.Context(), lead); err != nil {
		s.logger.Error("failed to upsert lead", "owner_id", req.OwnerID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to save lead")
		return
	}

	s.logger.Info("lead saved", "id", lead.ID, "owner_id", lead.OwnerID)
	s.sendJSON(w, http.StatusCreated, lead)
}

// handleLeadsGet handles GET /api/v1/leads/{id}
func (s *Server) handleLeadsGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lead, err := s.deps.Leads.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get lead", "id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get lead")
		return
	}
	if lead == nil {
		s.sendError(w, http.StatusNotFound, "Lead not found")
		return
	}

	s.sendJSON(w, http.StatusOK, lead)
}

// handleLeadsStatus handles PUT /api/v1/leads/{id}/status
func (s *Server) handleLeadsStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req LeadStatusRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	err := s.deps.Leads.UpdateStatus(r.Context(), id, req.Status)
	if errors.Is(err, repository.ErrNotFound) {
		s.sendError(w, http.StatusNotFound, "Lead not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to update lead status", "id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to update lead")
		return
	}

	s.handleLeadsGet(w, r)
}

// handleLeadsTags handles PUT /api/v1/leads/{id}/tags
func (s *Server) handleLeadsTags(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req LeadTagsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	err := s.deps.Leads.UpdateTags(r.Context(), id, req.Tags)
	if errors.Is(err, repository.ErrNotFound) {
		s.sendError(w, http.StatusNotFound, "Lead not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to update lead tags", "id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to update lead")
		return
	}

	s.handleLeadsGet(w, r)
}

// handleLeadsDrafts handles GET /api/v1/leads/{id}/drafts
func (s *Server) handleLeadsDrafts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	drafts, err := s.deps.Drafts.ListByLead(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to list drafts", "lead_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list drafts")
		return
	}

	s.sendJSON(w, http.StatusOK, ListResponse[models.EmailDraft]{Items: drafts, Total: len(drafts)})
}

// handleDashboard handles GET /api/v1/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	leads, _, err := s.deps.Leads.List(r.Context(), models.LeadFilter{
		OwnerID: r.URL.Query().Get("owner_id"),
		Order:   "asc",
	})
	if err != nil {
		s.logger.Error("failed to load leads for dashboard", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	s.sendJSON(w, http.StatusOK, dashboard.Compute(leads, s.now()))
}
