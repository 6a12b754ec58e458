package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"habitlink/server/internal/appMiddleware"
)

// StatusReader is the read side of the presence registry.
type StatusReader interface {
	Online(userID string) bool
	LastSeenAt(userID string) (time.Time, bool)
}

type PresenceHandler struct {
	registry StatusReader
}

func NewPresenceHandler(registry StatusReader) *PresenceHandler {
	return &PresenceHandler{registry: registry}
}

func (h *PresenceHandler) Routes(r chi.Router) {
	r.Get("/presence/{userId}", h.Status)
}

type presenceResponse struct {
	UserID     string     `json:"user_id"`
	Status     string     `json:"status"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// Status reports a point-in-time online/offline snapshot, used for
// friend-list presence dots. Best-effort: unknown users simply read as
// offline.
func (h *PresenceHandler) Status(w http.ResponseWriter, r *http.Request) {
	if _, ok := appMiddleware.UserID(r); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID := chi.URLParam(r, "userId")

	resp := presenceResponse{UserID: userID, Status: "offline"}
	if h.registry.Online(userID) {
		resp.Status = "online"
	}
	if t, ok := h.registry.LastSeenAt(userID); ok {
		resp.LastSeenAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}
