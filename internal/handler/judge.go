package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/auth"
	"github.com/sakif/hackhub/internal/service"
)

// JudgeHandler serves the judge panel. Judges authenticate with a Bearer
// token of their own kind; user sessions are not accepted here.
type JudgeHandler struct {
	judges      *service.JudgeService
	submissions *service.SubmissionService
	logger      *slog.Logger
}

func NewJudgeHandler(judges *service.JudgeService, submissions *service.SubmissionService, logger *slog.Logger) *JudgeHandler {
	return &JudgeHandler{judges: judges, submissions: submissions, logger: logger}
}

func currentJudgeID(r *http.Request) string {
	id, _ := auth.JudgeIDFromContext(r.Context())
	return id
}

// HTTP: POST /api/judge/register
func (h *JudgeHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.JudgeRegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.judges.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"judge": res.Judge, "token": res.Token})
}

// HTTP: POST /api/judge/login
func (h *JudgeHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.judges.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"judge": res.Judge, "token": res.Token})
}

// HTTP: GET /api/judge/verify
func (h *JudgeHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	judge, err := h.judges.Get(r.Context(), currentJudgeID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"judge": judge})
}

// HTTP: GET /api/judge/submissions
func (h *JudgeHandler) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissions.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"submissions": subs})
}

// HTTP: POST /api/judge/submissions/{id}/score
func (h *JudgeHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	var in service.ScoreInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sub, err := h.judges.Score(r.Context(), currentJudgeID(r), param(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Score recorded", "submission": sub})
}

// HTTP: POST /api/judge/submissions/{id}/badge
func (h *JudgeHandler) HandleAwardBadge(w http.ResponseWriter, r *http.Request) {
	var in service.BadgeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sub, err := h.judges.AwardBadge(r.Context(), currentJudgeID(r), param(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Badge awarded", "submission": sub})
}

// HTTP: DELETE /api/judge/submissions/{id}/badge/{badgeIndex}
func (h *JudgeHandler) HandleRemoveBadge(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(param(r, "badgeIndex"))
	if err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("badgeIndex", "badge index must be an integer"))
		return
	}
	sub, err := h.judges.RemoveBadge(r.Context(), param(r, "id"), index)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Badge removed", "submission": sub})
}
