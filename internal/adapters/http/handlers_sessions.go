package http

import (
	"net/http"
)

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "current_session")
		return
	}
	user, err := h.service.CurrentUser(r.Context(), claims)
	if err != nil {
		writeMappedError(r.Context(), w, "current_session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":       user,
		"session_id": claims.SessionID,
		"attempt_id": claims.AttemptID,
		"expires_at": claims.ExpiresAt,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "logout")
		return
	}
	if err := h.service.Logout(r.Context(), claims); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}
