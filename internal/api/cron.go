package api

import (
	"net/http"

	"github.com/foxzi/smartreach/internal/scheduler"
)

// SendDueResponse is the response for POST /api/v1/cron/send-due-emails
type SendDueResponse struct {
	Queued int              `json:"queued"`
	Result scheduler.Result `json:"result"`
}

// handleSendDueEmails handles POST /api/v1/cron/send-due-emails
func (s *Server) handleSendDueEmails(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Scheduler.ProcessDue(r.Context(), s.now())
	if err != nil {
		s.logger.Error("failed to process due enrollments", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to process due enrollments")
		return
	}

	s.sendJSON(w, http.StatusOK, SendDueResponse{Queued: res.Queued, Result: res})
}
