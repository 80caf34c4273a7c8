package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/hackhub/internal/service"
)

type SubmissionHandler struct {
	svc    *service.SubmissionService
	logger *slog.Logger
}

func NewSubmissionHandler(svc *service.SubmissionService, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, logger: logger}
}

// HTTP: POST /api/submissions
func (h *SubmissionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var in service.SubmitInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sub, err := h.svc.Submit(r.Context(), currentUserID(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"message": "Project submitted", "submission": sub})
}

// HTTP: GET /api/submissions/leaderboard
func (h *SubmissionHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.svc.Leaderboard(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"leaderboard": board})
}
