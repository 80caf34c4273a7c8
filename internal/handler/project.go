package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/service"
)

type ProjectHandler struct {
	svc    *service.ProjectService
	logger *slog.Logger
}

func NewProjectHandler(svc *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{svc: svc, logger: logger}
}

// HTTP: POST /api/projects
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	project, err := h.svc.Create(r.Context(), currentUserID(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"project": project})
}

// HTTP: GET /api/projects?teamId=&status=
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projects, err := h.svc.List(r.Context(), currentUserID(r), q.Get("teamId"), model.ProjectStatus(q.Get("status")))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"projects": projects})
}

// HTTP: GET /api/projects/{id}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	project, err := h.svc.Get(r.Context(), currentUserID(r), param(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"project": project})
}

// HTTP: PUT /api/projects/{id}
func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.ProjectPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	project, err := h.svc.Update(r.Context(), currentUserID(r), param(r, "id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"project": project})
}

// HTTP: POST /api/projects/{id}/collaborators  {"userId": "..."}
func (h *ProjectHandler) HandleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	project, err := h.svc.AddCollaborator(r.Context(), currentUserID(r), param(r, "id"), in.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"project": project})
}

// HTTP: POST /api/projects/{id}/toggle-showcase
func (h *ProjectHandler) HandleToggleShowcase(w http.ResponseWriter, r *http.Request) {
	public, err := h.svc.ToggleShowcase(r.Context(), currentUserID(r), param(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	msg := "Project removed from showcase"
	if public {
		msg = "Project added to showcase"
	}
	writeJSON(w, http.StatusOK, envelope{"message": msg, "isPublic": public})
}

// HTTP: DELETE /api/projects/{id}
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), currentUserID(r), param(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Project deleted"})
}
