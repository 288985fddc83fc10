package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/store/memory"
	"github.com/gosuda/taskflow/internal/workflow"
)

// ---------------------------------------------------------------------------
// Recording collaborators
// ---------------------------------------------------------------------------

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*domain.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n *domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) all() []*domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Notification(nil), r.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.BoardEvent
}

func (r *recordingPublisher) PublishBoardEvent(_ context.Context, e *domain.BoardEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) all() []*domain.BoardEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.BoardEvent(nil), r.events...)
}

// failingSavepoints wraps a store so that every nested transaction fails,
// which makes every cascade fail.
type failingSavepoints struct {
	workflow.Store
}

func (f failingSavepoints) RunInTx(ctx context.Context, fn func(workflow.Store) error) error {
	return f.Store.RunInTx(ctx, func(tx workflow.Store) error {
		return fn(failingTx{tx})
	})
}

type failingTx struct {
	workflow.Store
}

func (failingTx) RunInTx(context.Context, func(workflow.Store) error) error {
	return errors.New("savepoint unavailable")
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	engine    *workflow.Engine
	notifier  *recordingNotifier
	publisher *recordingPublisher
	project   *domain.Project

	owner    uuid.UUID
	manager  uuid.UUID
	leader   uuid.UUID // designated project leader, workspace member
	member   uuid.UUID
	member2  uuid.UUID
	observer uuid.UUID
	outsider uuid.UUID // not in the workspace

	seq time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:       context.Background(),
		store:     memory.New(),
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		owner:     uuid.New(),
		manager:   uuid.New(),
		leader:    uuid.New(),
		member:    uuid.New(),
		member2:   uuid.New(),
		observer:  uuid.New(),
		outsider:  uuid.New(),
	}
	f.engine = workflow.New(f.store, f.notifier, f.publisher)

	leader := f.leader
	f.project = &domain.Project{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		Name:        "apollo",
		LeaderID:    &leader,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, f.store.Projects().Create(f.ctx, f.project))

	roles := map[uuid.UUID]domain.Role{
		f.owner:    domain.RoleOwner,
		f.manager:  domain.RoleManager,
		f.leader:   domain.RoleMember,
		f.member:   domain.RoleMember,
		f.member2:  domain.RoleMember,
		f.observer: domain.RoleObserver,
	}
	for id, role := range roles {
		require.NoError(t, f.store.Memberships().Create(f.ctx, &domain.Membership{
			WorkspaceID: f.project.WorkspaceID,
			UserID:      id,
			Role:        role,
		}))
		require.NoError(t, f.store.Users().Create(f.ctx, &domain.User{ID: id, Name: string(role)}))
	}
	return f
}

// seed inserts a task directly with the given status. The creator is
// f.member and the assignee is assignee (may be nil).
func (f *fixture) seed(t *testing.T, status domain.TaskStatus, parent *domain.Task, assignee *uuid.UUID) *domain.Task {
	t.Helper()

	f.seq += time.Second
	task := &domain.Task{
		ID:         uuid.New(),
		ProjectID:  f.project.ID,
		Title:      "task " + f.seq.String(),
		Status:     status,
		Priority:   domain.PriorityMedium,
		AssigneeID: assignee,
		CreatorID:  f.member,
		CreatedAt:  time.Unix(1700000000, 0).Add(f.seq),
	}
	if parent != nil {
		id := parent.ID
		task.ParentID = &id
	}
	if status == domain.TaskStatusDone {
		now := time.Now().UTC()
		task.CompletedAt = &now
	}
	require.NoError(t, task.Validate())
	require.NoError(t, f.store.Tasks().Create(f.ctx, task))
	return task
}

func (f *fixture) get(t *testing.T, id uuid.UUID) *domain.Task {
	t.Helper()

	task, err := f.store.Tasks().GetByID(f.ctx, id)
	require.NoError(t, err)
	return task
}

func (f *fixture) events(t *testing.T, id uuid.UUID) []*domain.TaskEvent {
	t.Helper()

	events, err := f.store.Events().ListByTask(f.ctx, id)
	require.NoError(t, err)
	return events
}

func ptr[T any](v T) *T { return &v }
