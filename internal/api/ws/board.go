package ws

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/server/middleware"
	redisstore "github.com/gosuda/taskflow/internal/store/redis"
)

// ServeBoard streams the board events of one project in the caller's
// workspace. Route: /ws/board/{projectID}.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := middleware.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace", http.StatusForbidden)
		return
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	h.stream(w, r, redisstore.BoardChannel(workspaceID, projectID))
}

// ServeNotifications streams the caller's notifications as they are
// delivered. Route: /ws/notifications.
func (h *Hub) ServeNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}

	h.stream(w, r, redisstore.UserChannel(userID))
}
