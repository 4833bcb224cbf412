package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/foxzi/smartreach/internal/composer"
	"github.com/foxzi/smartreach/internal/metrics"
	"github.com/foxzi/smartreach/internal/models"
)

// GenerateEmailRequest is the request body for POST /api/v1/generate-email.
// With LeadID and no Lead the profile is loaded from the store.
type GenerateEmailRequest struct {
	Prompt string                `json:"prompt,omitempty"`
	Lead   *composer.LeadProfile `json:"lead,omitempty"`
	LeadID string                `json:"lead_id,omitempty"`
}

// GenerateEmailResponse is the response for POST /api/v1/generate-email
type GenerateEmailResponse struct {
	OK      bool                  `json:"ok"`
	Text    string                `json:"text,omitempty"`
	DraftID string                `json:"draft_id,omitempty"`
	Error   string                `json:"error,omitempty"`
	Fields  []composer.FieldError `json:"fields,omitempty"`
}

// PingResponse is the response for GET /api/v1/ping
type PingResponse struct {
	OK    bool   `json:"ok"`
	Reply string `json:"reply,omitempty"`
	Model string `json:"model,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleGenerateEmail handles POST /api/v1/generate-email
func (s *Server) handleGenerateEmail(w http.ResponseWriter, r *http.Request) {
	if s.aiLimiter != nil && !s.aiLimiter.Allow() {
		metrics.IncRateLimitExceeded("generate_email")
		s.sendJSON(w, http.StatusTooManyRequests, GenerateEmailResponse{Error: "Rate limit exceeded"})
		return
	}

	var body GenerateEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.sendJSON(w, http.StatusBadRequest, GenerateEmailResponse{Error: "Invalid request body"})
		return
	}

	req := composer.Request{Prompt: body.Prompt}
	switch {
	case body.Lead != nil:
		req.Lead = *body.Lead
	case body.LeadID != "":
		lead, err := s.deps.Leads.GetByID(r.Context(), body.LeadID)
		if err != nil {
			s.logger.Error("failed to get lead", "id", body.LeadID, "error", err)
			s.sendJSON(w, http.StatusInternalServerError, GenerateEmailResponse{Error: "Failed to get lead"})
			return
		}
		if lead == nil {
			s.sendJSON(w, http.StatusNotFound, GenerateEmailResponse{Error: "Lead not found"})
			return
		}
		req.Lead = composer.ProfileFromLead(*lead)
	}

	text, err := s.deps.Composer.Compose(r.Context(), req)
	if err != nil {
		var verr *composer.ValidationError
		switch {
		case errors.As(err, &verr):
			metrics.IncDraftsGenerated("invalid")
			s.sendJSON(w, http.StatusBadRequest, GenerateEmailResponse{Error: verr.Error(), Fields: verr.Fields})
		case errors.Is(err, composer.ErrUpstream):
			metrics.IncDraftsGenerated("upstream_error")
			s.sendJSON(w, http.StatusBadGateway, GenerateEmailResponse{Error: err.Error()})
		default:
			metrics.IncDraftsGenerated("error")
			s.sendJSON(w, http.StatusInternalServerError, GenerateEmailResponse{Error: err.Error()})
		}
		return
	}
	metrics.IncDraftsGenerated("ok")

	resp := GenerateEmailResponse{OK: true, Text: text}
	if body.LeadID != "" && text != "" {
		subject, draftBody := composer.ParseDraft(text)
		draft := &models.EmailDraft{
			LeadID:  body.LeadID,
			Subject: subject,
			Body:    draftBody,
			Model:   s.modelName(),
			Prompt:  body.Prompt,
		}
		if err := s.deps.Drafts.Create(r.Context(), draft); err != nil {
			// the text is still returned
			s.logger.Warn("failed to store draft", "lead_id", body.LeadID, "error", err)
		} else {
			resp.DraftID = draft.ID
		}
	}

	s.sendJSON(w, http.StatusOK, resp)
}

// handlePing handles GET /api/v1/ping
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if s.deps.Model == nil {
		s.sendJSON(w, http.StatusServiceUnavailable, PingResponse{Error: "No language model configured"})
		return
	}

	reply, err := s.deps.Model.Ping(r.Context())
	if err != nil {
		s.logger.Warn("model ping failed", "error", err)
		s.sendJSON(w, http.StatusInternalServerError, PingResponse{Error: err.Error()})
		return
	}

	s.sendJSON(w, http.StatusOK, PingResponse{OK: true, Reply: reply, Model: s.deps.Model.Model()})
}

func (s *Server) modelName() string {
	if s.deps.Model == nil {
		return "unknown"
	}
	return s.deps.Model.Model()
}
