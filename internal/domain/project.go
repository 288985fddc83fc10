package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Name        string
	LeaderID    *uuid.UUID // designated leader, optional
	CreatedAt   time.Time
}

// IsLeader reports whether userID is the designated leader.
func (p *Project) IsLeader(userID uuid.UUID) bool {
	return p.LeaderID != nil && *p.LeaderID == userID
}

type ProjectMember struct {
	ProjectID uuid.UUID
	UserID    uuid.UUID
	IsLeader  bool
	CreatedAt time.Time
}

type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*Project, error)
	AddMember(ctx context.Context, m *ProjectMember) error
	// IsLeaderMember reports whether userID has a member record flagged as
	// leader on the project.
	IsLeaderMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
}
