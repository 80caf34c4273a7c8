package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/service"
)

type TeamHandler struct {
	svc    *service.TeamService
	logger *slog.Logger
}

func NewTeamHandler(svc *service.TeamService, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{svc: svc, logger: logger}
}

// HTTP: POST /api/teams
func (h *TeamHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.TeamInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	team, err := h.svc.Create(r.Context(), currentUserID(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"team": team})
}

// HTTP: GET /api/teams
func (h *TeamHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	teams, err := h.svc.List(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"teams": teams})
}

// HTTP: GET /api/teams/{id}
func (h *TeamHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	team, err := h.svc.Get(r.Context(), currentUserID(r), param(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"team": team})
}

// HTTP: PUT /api/teams/{id}
func (h *TeamHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.TeamPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	team, err := h.svc.Update(r.Context(), currentUserID(r), param(r, "id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"team": team})
}

// HTTP: POST /api/teams/{id}/regenerate-code
func (h *TeamHandler) HandleRegenerateCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.svc.RegenerateCode(r.Context(), currentUserID(r), param(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"inviteCode": code})
}

// HTTP: POST /api/teams/join/{inviteCode}
func (h *TeamHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	team, err := h.svc.Join(r.Context(), currentUserID(r), param(r, "inviteCode"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Joined " + team.Name, "team": team})
}

// HTTP: POST /api/teams/{id}/members  {"userId": "...", "role": "member"}
func (h *TeamHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID string     `json:"userId"`
		Role   model.Role `json:"role"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	team, err := h.svc.AddMember(r.Context(), currentUserID(r), param(r, "id"), in.UserID, in.Role)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"team": team})
}

// HTTP: DELETE /api/teams/{id}/members/{userId}
func (h *TeamHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	team, err := h.svc.RemoveMember(r.Context(), currentUserID(r), param(r, "id"), param(r, "userId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"team": team})
}

// HTTP: DELETE /api/teams/{id}
func (h *TeamHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), currentUserID(r), param(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Team deleted"})
}

// HTTP: GET /api/teams/users/search?q=&teamId=
func (h *TeamHandler) HandleSearchUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.svc.SearchUsers(r.Context(), currentUserID(r), q.Get("q"), q.Get("teamId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"users": users})
}

// HTTP: GET /api/teams/search/all?q=
func (h *TeamHandler) HandleSearchTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.svc.SearchTeams(r.Context(), currentUserID(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"teams": teams})
}
