package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
)

type contextKey string

const (
	ContextKeyWorkspaceID contextKey = "workspace_id"
	ContextKeyUserID      contextKey = "user_id"
	ContextKeyUserRole    contextKey = "role"
)

func WorkspaceIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyWorkspaceID).(uuid.UUID)
	return v, ok
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}

// RoleFromContext returns the caller's workspace role as resolved by
// RequireMember.
func RoleFromContext(ctx context.Context) (domain.Role, bool) {
	v, ok := ctx.Value(ContextKeyUserRole).(domain.Role)
	return v, ok
}

// WithIdentity returns ctx carrying the caller's user and workspace.
func WithIdentity(ctx context.Context, userID, workspaceID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, userID)
	return context.WithValue(ctx, ContextKeyWorkspaceID, workspaceID)
}
