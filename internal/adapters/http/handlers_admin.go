package http

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "admin_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) adminAttempts(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
	attempts, err := h.service.ListAttempts(r.Context(), limit)
	if err != nil {
		writeMappedError(r.Context(), w, "admin_attempts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

func (h *Handler) adminUnblock(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		writeValidationError(r.Context(), w, "admin_unblock", err)
		return
	}
	user, err := h.service.UnblockIdentity(r.Context(), email)
	if err != nil {
		writeMappedError(r.Context(), w, "admin_unblock", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
