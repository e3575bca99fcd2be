package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jjudge-oj/catalog/internal/services"
)

// HomeworkHandler serves homework progress reports.
type HomeworkHandler struct {
	homeworks *services.HomeworkService
}

func NewHomeworkHandler(homeworks *services.HomeworkService) *HomeworkHandler {
	return &HomeworkHandler{homeworks: homeworks}
}

// HomeworkRouter registers homework routes on the given router.
func HomeworkRouter(r chi.Router, homeworks *services.HomeworkService, auth *Auth) {
	handler := NewHomeworkHandler(homeworks)
	r.With(auth.RequireAdmin).Get("/{homeworkID}/progress", handler.GetProgress)
}

func (h *HomeworkHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "homeworkID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	progress, err := h.homeworks.GetProgress(r.Context(), id, splitList(r.URL.Query()["emails"]))
	if err != nil {
		writeServiceError(w, r, err, "load homework progress")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
