package workflow_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/workflow"
)

func TestSubject_Rules(t *testing.T) {
	t.Parallel()

	self := uuid.New()
	other := uuid.New()
	own := &domain.Task{CreatorID: self}
	assigned := &domain.Task{CreatorID: other, AssigneeID: &self}
	foreign := &domain.Task{CreatorID: other}

	tests := []struct {
		name       string
		subject    workflow.Subject
		task       *domain.Task
		wantEdit   bool
		wantCreate bool
		wantReview bool
		wantDelete bool
	}{
		{"outsider", workflow.Subject{UserID: self}, own, false, false, false, false},
		{"owner", workflow.Subject{UserID: self, Role: domain.RoleOwner}, foreign, true, true, true, true},
		{"director", workflow.Subject{UserID: self, Role: domain.RoleDirector}, foreign, true, true, true, true},
		{"manager", workflow.Subject{UserID: self, Role: domain.RoleManager}, foreign, true, true, true, true},
		{"member creator", workflow.Subject{UserID: self, Role: domain.RoleMember}, own, true, true, false, false},
		{"member assignee", workflow.Subject{UserID: self, Role: domain.RoleMember}, assigned, true, true, false, false},
		{"member stranger", workflow.Subject{UserID: self, Role: domain.RoleMember}, foreign, false, true, false, false},
		{"member leader", workflow.Subject{UserID: self, Role: domain.RoleMember, ProjectLeader: true}, foreign, true, true, true, true},
		{"observer", workflow.Subject{UserID: self, Role: domain.RoleObserver}, own, false, false, false, false},
		{"observer leader", workflow.Subject{UserID: self, Role: domain.RoleObserver, ProjectLeader: true}, foreign, true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.wantEdit, tt.subject.CanEdit(tt.task), "edit")
			assert.Equal(t, tt.wantEdit, tt.subject.CanChangeStatus(tt.task), "status")
			assert.Equal(t, tt.wantCreate, tt.subject.CanCreate(), "create")
			assert.Equal(t, tt.wantReview, tt.subject.CanReview(), "review")
			assert.Equal(t, tt.wantDelete, tt.subject.CanDelete(), "delete")
			assert.Equal(t, tt.subject.Role != "", tt.subject.CanView(), "view")
		})
	}
}

func TestPermissionResolver_Subject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var r workflow.PermissionResolver

	subj, err := r.Subject(f.ctx, f.store, f.project, f.leader)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, subj.Role)
	assert.True(t, subj.ProjectLeader)

	subj, err = r.Subject(f.ctx, f.store, f.project, f.member)
	require.NoError(t, err)
	assert.False(t, subj.ProjectLeader)

	require.NoError(t, f.store.Projects().AddMember(f.ctx, &domain.ProjectMember{
		ProjectID: f.project.ID, UserID: f.member, IsLeader: true,
	}))
	subj, err = r.Subject(f.ctx, f.store, f.project, f.member)
	require.NoError(t, err)
	assert.True(t, subj.ProjectLeader, "leader flag on project membership")

	subj, err = r.Subject(f.ctx, f.store, f.project, f.outsider)
	require.NoError(t, err)
	assert.False(t, subj.IsMember())
	assert.False(t, subj.ProjectLeader)
}

func TestPermissionResolver_ResolveAssignee(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var r workflow.PermissionResolver
	ws := f.project.WorkspaceID
	member := workflow.Subject{UserID: f.member, Role: domain.RoleMember}
	manager := workflow.Subject{UserID: f.manager, Role: domain.RoleManager}

	got, err := r.ResolveAssignee(f.ctx, f.store, member, ws, nil)
	require.NoError(t, err)
	assert.Equal(t, f.member, *got)

	got, err = r.ResolveAssignee(f.ctx, f.store, member, ws, &f.member)
	require.NoError(t, err)
	assert.Equal(t, f.member, *got)

	_, err = r.ResolveAssignee(f.ctx, f.store, member, ws, &f.member2)
	require.ErrorIs(t, err, domain.ErrMemberCannotAssignOthers)

	got, err = r.ResolveAssignee(f.ctx, f.store, manager, ws, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = r.ResolveAssignee(f.ctx, f.store, manager, ws, &f.observer)
	require.ErrorIs(t, err, domain.ErrCannotAssignToObserver)

	_, err = r.ResolveAssignee(f.ctx, f.store, manager, ws, &f.outsider)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, r.ResolveReassignment(f.ctx, f.store, member, ws, nil))
	require.ErrorIs(t, r.ResolveReassignment(f.ctx, f.store, member, ws, &f.member2), domain.ErrMemberCannotAssignOthers)
}
