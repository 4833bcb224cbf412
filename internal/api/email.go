package api

import (
	"net/http"
	"strings"

	"github.com/foxzi/smartreach/internal/metrics"
	"github.com/foxzi/smartreach/internal/models"
)

// QueueEmailRequest is the request body for POST /api/v1/email/queue
type QueueEmailRequest struct {
	LeadID     string `json:"lead_id"`
	CampaignID string `json:"campaign_id"`
	SenderID   string `json:"sender_id"`
	ToEmail    string `json:"to_email" validate:"required,email"`
	Subject    string `json:"subject" validate:"required"`
	BodyHTML   string `json:"body_html"`
	BodyText   string `json:"body_text"`
}

// handleEmailQueue handles POST /api/v1/email/queue
func (s *Server) handleEmailQueue(w http.ResponseWriter, r *http.Request) {
	var req QueueEmailRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	log := &models.EmailLog{
		LeadID:     req.LeadID,
		CampaignID: req.CampaignID,
		SenderID:   req.SenderID,
		ToEmail:    req.ToEmail,
		Subject:    req.Subject,
		BodyHTML:   req.BodyHTML,
		BodyText:   req.BodyText,
	}
	if err := s.deps.EmailLogs.CreateQueued(r.Context(), log); err != nil {
		s.logger.Error("failed to queue email", "to", req.ToEmail, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to queue email")
		return
	}

	metrics.IncEmailsQueued("api")
	s.logger.Info("email queued via API", "id", log.ID, "to", log.ToEmail)
	s.sendJSON(w, http.StatusCreated, log)
}

// handleEmailLogs handles GET /api/v1/email/logs
func (s *Server) handleEmailLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(r)

	logs, total, err := s.deps.EmailLogs.List(r.Context(), models.EmailLogFilter{
		Status:     strings.ToUpper(q.Get("status")),
		LeadID:     q.Get("lead_id"),
		CampaignID: q.Get("campaign_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		s.logger.Error("failed to list email logs", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list email logs")
		return
	}

	s.sendJSON(w, http.StatusOK, ListResponse[models.EmailLog]{Items: logs, Total: total})
}
