package workflow_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/workflow"
)

func TestAddWorkspaceMember(t *testing.T) {
	t.Parallel()

	t.Run("manager grants member", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		newcomer := uuid.New()
		m, err := f.engine.AddWorkspaceMember(f.ctx, f.manager, f.project.WorkspaceID, newcomer, "member")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleMember, m.Role)

		stored, err := f.store.Memberships().GetMembership(f.ctx, f.project.WorkspaceID, newcomer)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleMember, stored.Role)

		members, err := f.engine.ListWorkspaceMembers(f.ctx, f.observer, f.project.WorkspaceID)
		require.NoError(t, err)
		assert.Len(t, members, 7)

		_, err = f.engine.ListWorkspaceMembers(f.ctx, f.outsider, f.project.WorkspaceID)
		assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))
	})

	tests := []struct {
		name  string
		actor func(f *fixture) uuid.UUID
		role  string
		code  domain.ErrorCode
	}{
		{"unknown role", func(f *fixture) uuid.UUID { return f.owner }, "admin", domain.CodeInvalidRole},
		{"member cannot manage", func(f *fixture) uuid.UUID { return f.member }, "observer", domain.CodeForbidden},
		{"outsider cannot manage", func(f *fixture) uuid.UUID { return f.outsider }, "member", domain.CodeForbidden},
		{"manager cannot grant owner", func(f *fixture) uuid.UUID { return f.manager }, "owner", domain.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			_, err := f.engine.AddWorkspaceMember(f.ctx, tt.actor(f), f.project.WorkspaceID, uuid.New(), tt.role)
			require.Error(t, err)
			assert.Equal(t, tt.code, domain.CodeOf(err))
		})
	}
}

func TestCreateProject(t *testing.T) {
	t.Parallel()

	t.Run("owner with leader", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		p, err := f.engine.CreateProject(f.ctx, f.owner, workflow.CreateProjectInput{
			WorkspaceID: f.project.WorkspaceID,
			Name:        "  gemini ",
			LeaderID:    &f.member,
		})
		require.NoError(t, err)
		assert.Equal(t, "gemini", p.Name)
		assert.True(t, p.IsLeader(f.member))

		projects, err := f.engine.ListProjects(f.ctx, f.observer, f.project.WorkspaceID)
		require.NoError(t, err)
		assert.Len(t, projects, 2)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.engine.CreateProject(f.ctx, f.owner, workflow.CreateProjectInput{WorkspaceID: f.project.WorkspaceID, Name: " "})
		assert.Equal(t, domain.CodeMissingFields, domain.CodeOf(err))

		_, err = f.engine.CreateProject(f.ctx, f.member, workflow.CreateProjectInput{WorkspaceID: f.project.WorkspaceID, Name: "x"})
		assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))

		_, err = f.engine.CreateProject(f.ctx, f.owner, workflow.CreateProjectInput{
			WorkspaceID: f.project.WorkspaceID, Name: "x", LeaderID: &f.observer,
		})
		assert.Equal(t, domain.CodeCannotAssignToObserver, domain.CodeOf(err))
	})

	t.Run("list requires membership", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.engine.ListProjects(f.ctx, f.outsider, f.project.WorkspaceID)
		assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))
	})
}

func TestAddProjectMember(t *testing.T) {
	t.Parallel()

	t.Run("leader promotes member", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.engine.AddProjectMember(f.ctx, f.leader, f.project.ID, f.member2, true)
		require.NoError(t, err)

		perms, err := f.engine.GetPermissions(f.ctx, f.member2, f.seed(t, domain.TaskStatusReview, nil, nil).ID)
		require.NoError(t, err)
		assert.True(t, perms.ProjectLeader)
		assert.True(t, perms.CanReview)
	})

	t.Run("observer may join but not lead", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.engine.AddProjectMember(f.ctx, f.manager, f.project.ID, f.observer, false)
		require.NoError(t, err)

		_, err = f.engine.AddProjectMember(f.ctx, f.manager, f.project.ID, f.observer, true)
		assert.Equal(t, domain.CodeCannotAssignToObserver, domain.CodeOf(err))
	})

	t.Run("rejections", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.engine.AddProjectMember(f.ctx, f.member, f.project.ID, f.member2, false)
		assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))

		_, err = f.engine.AddProjectMember(f.ctx, f.owner, f.project.ID, f.outsider, false)
		assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))

		_, err = f.engine.AddProjectMember(f.ctx, f.owner, uuid.New(), f.member, false)
		assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
	})
}
