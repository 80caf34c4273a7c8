package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/service"
)

// ShowcaseHandler serves the public project gallery. Listing and detail
// work for anonymous visitors; likes and comments need a session.
type ShowcaseHandler struct {
	svc    *service.ShowcaseService
	logger *slog.Logger
}

func NewShowcaseHandler(svc *service.ShowcaseService, logger *slog.Logger) *ShowcaseHandler {
	return &ShowcaseHandler{svc: svc, logger: logger}
}

// HTTP: GET /api/showcase?page=&limit=&category=&search=&sort=
//
// Malformed page and limit values fall back to the defaults instead of
// failing the request.
func (h *ShowcaseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.List(r.Context(), currentUserID(r), service.ShowcaseParams{
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", service.DefaultShowcaseLimit),
		Category: model.Category(q.Get("category")),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HTTP: GET /api/showcase/stats
func (h *ShowcaseHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"stats": stats})
}

// HTTP: GET /api/showcase/{id}
func (h *ShowcaseHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), currentUserID(r), param(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"project": item})
}

// HTTP: POST /api/showcase/{id}/like
func (h *ShowcaseHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ToggleLike(r.Context(), currentUserID(r), param(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HTTP: POST /api/showcase/{id}/comments  {"text": "..."}
func (h *ShowcaseHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	comment, err := h.svc.AddComment(r.Context(), currentUserID(r), param(r, "id"), in.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"comment": comment})
}
