package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
)

// requireAdmin returns the caller's membership and fails unless it is in the
// admin tier of workspaceID.
func (e *Engine) requireAdmin(ctx context.Context, s Store, workspaceID, actorID uuid.UUID) (*domain.Membership, error) {
	m, err := s.Memberships().GetMembership(ctx, workspaceID, actorID)
	if err != nil {
		if domain.CodeOf(err) == domain.CodeNotFound {
			return nil, domain.NewError(domain.CodeForbidden, "not a member of this workspace")
		}
		return nil, err
	}
	if !m.Role.IsAdminTier() {
		return nil, domain.NewError(domain.CodeForbidden, "role %s cannot manage the workspace", m.Role)
	}
	return m, nil
}

// AddWorkspaceMember grants userID a role in workspaceID, replacing any
// previous role. Only admin-tier callers may do so, and never above their
// own rank.
func (e *Engine) AddWorkspaceMember(ctx context.Context, actorID, workspaceID, userID uuid.UUID, rawRole string) (*domain.Membership, error) {
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return nil, fmt.Errorf("workflow.Engine.AddWorkspaceMember: %w",
			domain.NewError(domain.CodeInvalidRole, "unknown role %q", rawRole))
	}

	m := &domain.Membership{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	err := e.store.RunInTx(ctx, func(tx Store) error {
		actor, err := e.requireAdmin(ctx, tx, workspaceID, actorID)
		if err != nil {
			return err
		}
		if role.Rank() > actor.Role.Rank() {
			return domain.NewError(domain.CodeForbidden, "cannot grant %s as %s", role, actor.Role)
		}
		return tx.Memberships().Create(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.AddWorkspaceMember: %w", err)
	}
	return m, nil
}

// CreateProjectInput carries the fields of a new project.
type CreateProjectInput struct {
	WorkspaceID uuid.UUID
	Name        string
	LeaderID    *uuid.UUID
}

// CreateProject creates a project in a workspace. The leader, when given,
// must be a non-observer member of that workspace.
func (e *Engine) CreateProject(ctx context.Context, actorID uuid.UUID, in CreateProjectInput) (*domain.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("workflow.Engine.CreateProject: %w",
			domain.NewError(domain.CodeMissingFields, "name is required"))
	}

	p := &domain.Project{
		ID:          uuid.New(),
		WorkspaceID: in.WorkspaceID,
		Name:        name,
		LeaderID:    in.LeaderID,
		CreatedAt:   time.Now().UTC(),
	}
	err := e.store.RunInTx(ctx, func(tx Store) error {
		if _, err := e.requireAdmin(ctx, tx, in.WorkspaceID, actorID); err != nil {
			return err
		}
		if err := e.perms.checkAssignable(ctx, tx, in.WorkspaceID, in.LeaderID); err != nil {
			return err
		}
		return tx.Projects().Create(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.CreateProject: %w", err)
	}
	return p, nil
}

// ListProjects returns the projects of a workspace the caller belongs to.
func (e *Engine) ListProjects(ctx context.Context, actorID, workspaceID uuid.UUID) ([]*domain.Project, error) {
	if _, err := e.store.Memberships().GetMembership(ctx, workspaceID, actorID); err != nil {
		if domain.CodeOf(err) == domain.CodeNotFound {
			err = domain.NewError(domain.CodeForbidden, "not a member of this workspace")
		}
		return nil, fmt.Errorf("workflow.Engine.ListProjects: %w", err)
	}
	projects, err := e.store.Projects().ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.ListProjects: %w", err)
	}
	return projects, nil
}

// AddProjectMember records userID on a project, optionally as a leader.
// Admin-tier callers and project leaders may add members. Leaders follow the
// assignee rules; plain members only need to belong to the workspace.
func (e *Engine) AddProjectMember(ctx context.Context, actorID, projectID, userID uuid.UUID, leader bool) (*domain.ProjectMember, error) {
	m := &domain.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		IsLeader:  leader,
		CreatedAt: time.Now().UTC(),
	}
	err := e.store.RunInTx(ctx, func(tx Store) error {
		project, err := tx.Projects().GetByID(ctx, projectID)
		if err != nil {
			return err
		}
		subj, err := e.perms.Subject(ctx, tx, project, actorID)
		if err != nil {
			return err
		}
		if !subj.Role.IsAdminTier() && !subj.ProjectLeader {
			return domain.NewError(domain.CodeForbidden, "only admins and project leaders can add members")
		}
		if leader {
			if err := e.perms.checkAssignable(ctx, tx, project.WorkspaceID, &userID); err != nil {
				return err
			}
		} else if _, err := tx.Memberships().GetMembership(ctx, project.WorkspaceID, userID); err != nil {
			return err
		}
		return tx.Projects().AddMember(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.AddProjectMember: %w", err)
	}
	return m, nil
}

// ListWorkspaceMembers returns the memberships of a workspace. Any member
// may list them.
func (e *Engine) ListWorkspaceMembers(ctx context.Context, actorID, workspaceID uuid.UUID) ([]*domain.Membership, error) {
	if _, err := e.store.Memberships().GetMembership(ctx, workspaceID, actorID); err != nil {
		if domain.CodeOf(err) == domain.CodeNotFound {
			err = domain.NewError(domain.CodeForbidden, "not a member of this workspace")
		}
		return nil, fmt.Errorf("workflow.Engine.ListWorkspaceMembers: %w", err)
	}
	members, err := e.store.Memberships().ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.ListWorkspaceMembers: %w", err)
	}
	return members, nil
}
