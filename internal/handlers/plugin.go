package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jjudge-oj/catalog/internal/services"
)

// PluginHandler exposes the judge plugin registry.
type PluginHandler struct {
	plugins *services.PluginService
}

func NewPluginHandler(plugins *services.PluginService) *PluginHandler {
	return &PluginHandler{plugins: plugins}
}

// PluginRouter registers plugin routes on the given router.
func PluginRouter(r chi.Router, plugins *services.PluginService) {
	handler := NewPluginHandler(plugins)
	r.Get("/", handler.ListPlugins)
}

func (h *PluginHandler) ListPlugins(w http.ResponseWriter, r *http.Request) {
	tags, err := h.plugins.ResolveAll(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		writeServiceError(w, r, err, "list plugins")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}
