package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskflow/internal/domain"
)

// MembershipLookup resolves a user's role in a workspace.
// domain.MembershipRepository satisfies this interface.
type MembershipLookup interface {
	GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Membership, error)
}

// RequireMember looks up the caller's membership in the token's workspace
// and stores the role in the request context. It must be chained after Auth.
//
// Returns 401 when no identity is present and 403 when the caller is not a
// member of the workspace.
func RequireMember(members MembershipLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, okUser := UserIDFromContext(r.Context())
			workspaceID, okWs := WorkspaceIDFromContext(r.Context())
			if !okUser || !okWs {
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			m, err := members.GetMembership(r.Context(), workspaceID, userID)
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"not a workspace member"}`, http.StatusForbidden)
				return
			}
			if err != nil {
				log.Error().Err(err).Str("user_id", userID.String()).Msg("rbac: membership lookup failed")
				http.Error(w, `{"title":"Internal Server Error","status":500,"detail":"membership lookup failed"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserRole, m.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose role ranks below minimum. It must be
// chained after RequireMember.
func RequireRole(minimum domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok || !role.IsValid() {
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			if !role.HasMinimumRole(minimum) {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"insufficient permissions"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
