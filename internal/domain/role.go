package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is a workspace-scoped permission tier.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleDirector Role = "director"
	RoleManager  Role = "manager"
	RoleMember   Role = "member"
	RoleObserver Role = "observer"
)

// Rank orders roles from observer (1) to owner (5). Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 5
	case RoleDirector:
		return 4
	case RoleManager:
		return 3
	case RoleMember:
		return 2
	case RoleObserver:
		return 1
	default:
		return 0
	}
}

func (r Role) IsValid() bool { return r.Rank() > 0 }

// HasMinimumRole reports whether r is at least min in the role order.
func (r Role) HasMinimumRole(minimum Role) bool {
	return r.IsValid() && r.Rank() >= minimum.Rank()
}

// IsAdminTier is true for owner, director and manager.
func (r Role) IsAdminTier() bool {
	return r.HasMinimumRole(RoleManager)
}

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, bool) {
	r := Role(raw)
	return r, r.IsValid()
}

// Membership binds a user to a workspace with a role.
type Membership struct {
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	Role        Role
	CreatedAt   time.Time
}

type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error
	// GetMembership returns ErrNotFound when the user is not a member.
	GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*Membership, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*Membership, error)
}
