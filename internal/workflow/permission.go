package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
)

// Subject is what the permission rules know about a caller in the scope of
// one project.
type Subject struct {
	UserID uuid.UUID
	// Role is the workspace role, empty when the user is not a member.
	Role domain.Role
	// ProjectLeader is set for the designated leader and for project members
	// flagged as leader.
	ProjectLeader bool
}

func (s Subject) IsMember() bool { return s.Role.IsValid() }

func (s Subject) CanView() bool { return s.IsMember() }

// CanEdit evaluates the edit rules in order; the first match wins. A nil
// task asks whether the subject may create tasks.
func (s Subject) CanEdit(task *domain.Task) bool {
	switch {
	case !s.IsMember():
		return false
	case s.Role.IsAdminTier():
		return true
	case s.ProjectLeader:
		return true
	case s.Role == domain.RoleObserver:
		return false
	case task == nil:
		return s.Role == domain.RoleMember
	case s.Role == domain.RoleMember:
		return task.CreatorID == s.UserID || task.IsAssignedTo(s.UserID)
	default:
		return false
	}
}

func (s Subject) CanCreate() bool { return s.CanEdit(nil) }

// CanChangeStatus follows the edit rules.
func (s Subject) CanChangeStatus(task *domain.Task) bool { return s.CanEdit(task) }

// CanReview gates review decisions: approving and returning for rework.
func (s Subject) CanReview() bool {
	return s.IsMember() && (s.Role.IsAdminTier() || s.ProjectLeader)
}

// CanDelete is narrower than edit: creators and plain members cannot
// delete, not even their own tasks.
func (s Subject) CanDelete() bool {
	return s.IsMember() && (s.Role.IsAdminTier() || s.ProjectLeader)
}

// assignsFreely reports whether the subject may assign tasks to others.
func (s Subject) assignsFreely() bool {
	return s.Role.IsAdminTier() || s.ProjectLeader
}

// Permissions is the caller's effective rights on one task.
type Permissions struct {
	Role            domain.Role
	ProjectLeader   bool
	CanView         bool
	CanEdit         bool
	CanDelete       bool
	CanChangeStatus bool
	CanReview       bool
}

func (s Subject) Permissions(task *domain.Task) *Permissions {
	return &Permissions{
		Role:            s.Role,
		ProjectLeader:   s.ProjectLeader,
		CanView:         s.CanView(),
		CanEdit:         s.CanEdit(task),
		CanDelete:       s.CanDelete(),
		CanChangeStatus: s.CanChangeStatus(task),
		CanReview:       s.CanReview(),
	}
}

// PermissionResolver looks up the facts the permission rules need.
type PermissionResolver struct{}

// Subject resolves userID's workspace role and leadership of project.
func (PermissionResolver) Subject(ctx context.Context, s Store, project *domain.Project, userID uuid.UUID) (Subject, error) {
	subj := Subject{UserID: userID}

	m, err := s.Memberships().GetMembership(ctx, project.WorkspaceID, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return subj, nil
	case err != nil:
		return subj, fmt.Errorf("workflow.PermissionResolver.Subject: membership: %w", err)
	}
	subj.Role = m.Role

	if project.IsLeader(userID) {
		subj.ProjectLeader = true
		return subj, nil
	}

	leader, err := s.Projects().IsLeaderMember(ctx, project.ID, userID)
	if err != nil {
		return subj, fmt.Errorf("workflow.PermissionResolver.Subject: leader member: %w", err)
	}
	subj.ProjectLeader = leader

	return subj, nil
}

// ResolveAssignee applies the assignment constraints for a new task. A
// caller without assign rights gets the task self-assigned when requested is
// nil and an error when requested names someone else.
func (r PermissionResolver) ResolveAssignee(ctx context.Context, s Store, subj Subject, workspaceID uuid.UUID, requested *uuid.UUID) (*uuid.UUID, error) {
	assignee := requested
	if !subj.assignsFreely() {
		if requested == nil {
			self := subj.UserID
			assignee = &self
		} else if *requested != subj.UserID {
			return nil, domain.NewError(domain.CodeMemberCannotAssignOthers, "members may only assign tasks to themselves")
		}
	}

	if err := r.checkAssignable(ctx, s, workspaceID, assignee); err != nil {
		return nil, err
	}
	return assignee, nil
}

// ResolveReassignment validates an assignee change on an existing task. nil
// unassigns.
func (r PermissionResolver) ResolveReassignment(ctx context.Context, s Store, subj Subject, workspaceID uuid.UUID, next *uuid.UUID) error {
	if next != nil && !subj.assignsFreely() && *next != subj.UserID {
		return domain.NewError(domain.CodeMemberCannotAssignOthers, "members may only assign tasks to themselves")
	}
	return r.checkAssignable(ctx, s, workspaceID, next)
}

func (PermissionResolver) checkAssignable(ctx context.Context, s Store, workspaceID uuid.UUID, assignee *uuid.UUID) error {
	if assignee == nil {
		return nil
	}

	m, err := s.Memberships().GetMembership(ctx, workspaceID, *assignee)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewError(domain.CodeNotFound, "assignee %s is not a workspace member", *assignee)
	}
	if err != nil {
		return fmt.Errorf("workflow.PermissionResolver.checkAssignable: %w", err)
	}
	if m.Role == domain.RoleObserver {
		return domain.NewError(domain.CodeCannotAssignToObserver, "observers cannot be assigned tasks")
	}
	return nil
}
