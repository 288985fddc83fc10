package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

func RequireWorkspace() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wid, ok := WorkspaceIDFromContext(r.Context())
			if !ok || wid == uuid.Nil {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"valid workspace required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
