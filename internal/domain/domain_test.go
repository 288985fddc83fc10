package domain_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskflow/internal/domain"
)

// ---------------------------------------------------------------------------
// 1. CanTransition: full 4x4 state-machine matrix.
// ---------------------------------------------------------------------------

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from domain.TaskStatus
		to   domain.TaskStatus
		want bool
	}{
		// From todo.
		{domain.TaskStatusTodo, domain.TaskStatusTodo, true},
		{domain.TaskStatusTodo, domain.TaskStatusInProgress, true},
		{domain.TaskStatusTodo, domain.TaskStatusReview, false},
		{domain.TaskStatusTodo, domain.TaskStatusDone, false},

		// From in_progress.
		{domain.TaskStatusInProgress, domain.TaskStatusTodo, true},
		{domain.TaskStatusInProgress, domain.TaskStatusInProgress, true},
		{domain.TaskStatusInProgress, domain.TaskStatusReview, true},
		{domain.TaskStatusInProgress, domain.TaskStatusDone, true},

		// From review.
		{domain.TaskStatusReview, domain.TaskStatusTodo, false},
		{domain.TaskStatusReview, domain.TaskStatusInProgress, true}, // rework
		{domain.TaskStatusReview, domain.TaskStatusReview, true},
		{domain.TaskStatusReview, domain.TaskStatusDone, true},

		// From done.
		{domain.TaskStatusDone, domain.TaskStatusTodo, false},
		{domain.TaskStatusDone, domain.TaskStatusInProgress, true}, // reopen
		{domain.TaskStatusDone, domain.TaskStatusReview, false},
		{domain.TaskStatusDone, domain.TaskStatusDone, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, domain.CanTransition(tt.from, tt.to))

			err := domain.ValidateTransition(tt.from, tt.to)
			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			}
		})
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	t.Parallel()

	unknown := domain.TaskStatus("archived")
	for _, s := range domain.TaskStatuses() {
		assert.False(t, domain.CanTransition(unknown, s), "archived->%s", s)
		assert.False(t, domain.CanTransition(s, unknown), "%s->archived", s)
	}
	assert.False(t, domain.CanTransition(unknown, unknown))
}

func TestAvailableTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from domain.TaskStatus
		want []domain.TaskStatus
	}{
		{domain.TaskStatusTodo, []domain.TaskStatus{domain.TaskStatusInProgress}},
		{domain.TaskStatusInProgress, []domain.TaskStatus{domain.TaskStatusTodo, domain.TaskStatusReview, domain.TaskStatusDone}},
		{domain.TaskStatusReview, []domain.TaskStatus{domain.TaskStatusInProgress, domain.TaskStatusDone}},
		{domain.TaskStatusDone, []domain.TaskStatus{domain.TaskStatusInProgress}},
		{domain.TaskStatus("archived"), []domain.TaskStatus{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			t.Parallel()

			got := domain.AvailableTransitions(tt.from)
			assert.Equal(t, tt.want, got)
			for _, to := range got {
				assert.True(t, domain.CanTransition(tt.from, to))
			}
		})
	}
}

func TestParseTaskStatus(t *testing.T) {
	t.Parallel()

	for _, s := range domain.TaskStatuses() {
		got, err := domain.ParseTaskStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	for _, raw := range []string{"", "backlog", "DONE", "in progress"} {
		_, err := domain.ParseTaskStatus(raw)
		assert.ErrorIs(t, err, domain.ErrInvalidStatus, "raw=%q", raw)
	}
}

// ---------------------------------------------------------------------------
// 2. Role ordering.
// ---------------------------------------------------------------------------

func TestRole_HasMinimumRole(t *testing.T) {
	t.Parallel()

	order := []domain.Role{
		domain.RoleObserver,
		domain.RoleMember,
		domain.RoleManager,
		domain.RoleDirector,
		domain.RoleOwner,
	}

	for i, r := range order {
		for j, minimum := range order {
			assert.Equal(t, i >= j, r.HasMinimumRole(minimum), "%s >= %s", r, minimum)
		}
	}

	assert.False(t, domain.Role("admin").HasMinimumRole(domain.RoleObserver))
}

func TestRole_IsAdminTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role domain.Role
		want bool
	}{
		{domain.RoleOwner, true},
		{domain.RoleDirector, true},
		{domain.RoleManager, true},
		{domain.RoleMember, false},
		{domain.RoleObserver, false},
		{domain.Role(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.role.IsAdminTier())
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	r, ok := domain.ParseRole("director")
	assert.True(t, ok)
	assert.Equal(t, domain.RoleDirector, r)

	_, ok = domain.ParseRole("viewer")
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// 3. Task validation.
// ---------------------------------------------------------------------------

func TestTask_Validate(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(*domain.Task)
		wantErr error
	}{
		{"valid todo", func(*domain.Task) {}, nil},
		{"valid done", func(t *domain.Task) {
			t.Status = domain.TaskStatusDone
			t.CompletedAt = &now
		}, nil},
		{"missing title", func(t *domain.Task) { t.Title = "" }, domain.ErrMissingFields},
		{"unknown status", func(t *domain.Task) { t.Status = "blocked" }, domain.ErrInvalidStatus},
		{"unknown priority", func(t *domain.Task) { t.Priority = "urgent" }, domain.ErrInvalidPriority},
		{"done without completed_at", func(t *domain.Task) {
			t.Status = domain.TaskStatusDone
		}, domain.ErrInvalidStatus},
		{"in_progress with completed_at", func(t *domain.Task) {
			t.Status = domain.TaskStatusInProgress
			t.CompletedAt = &now
		}, domain.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			task := &domain.Task{
				ID:       uuid.New(),
				Title:    "write docs",
				Status:   domain.TaskStatusTodo,
				Priority: domain.PriorityMedium,
			}
			tt.mutate(task)

			err := task.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	p, err := domain.ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, p)

	p, err = domain.ParsePriority("critical")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityCritical, p)

	_, err = domain.ParsePriority("urgent")
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)
}

// ---------------------------------------------------------------------------
// 4. Structured errors: code matching and wrapping.
// ---------------------------------------------------------------------------

func TestError_MatchesByCode(t *testing.T) {
	t.Parallel()

	err := domain.NewError(domain.CodeForbidden, "user %s cannot approve", "bob")

	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))
	assert.Equal(t, "user bob cannot approve", domain.MessageOf(err))
	assert.Equal(t, "FORBIDDEN: user bob cannot approve", err.Error())
}

func TestSentinelErrors_Distinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrInvalidStatus,
		domain.ErrInvalidTransition,
		domain.ErrInvalidInitialStatus,
		domain.ErrMemberCannotAssignOthers,
		domain.ErrCannotAssignToObserver,
		domain.ErrMaxDepthExceeded,
		domain.ErrSubtaskNoReview,
		domain.ErrUseStatusEndpoint,
		domain.ErrMissingFields,
		domain.ErrInvalidPriority,
		domain.ErrInvalidParent,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b, "sentinel errors must be distinct")
		}
	}
}

func TestSentinelErrors_WrappingPreservesCode(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("taskRepo.GetByID: %w", domain.ErrNotFound)
	require.ErrorIs(t, wrapped, domain.ErrNotFound)

	doubleWrapped := fmt.Errorf("engine.Start: %w", wrapped)
	require.ErrorIs(t, doubleWrapped, domain.ErrNotFound)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(doubleWrapped))

	assert.Equal(t, domain.ErrorCode(""), domain.CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, "plain", domain.MessageOf(fmt.Errorf("plain")))
}

// ---------------------------------------------------------------------------
// 5. Events and projects.
// ---------------------------------------------------------------------------

func TestNewStatusChangedEvent(t *testing.T) {
	t.Parallel()

	taskID, actorID := uuid.New(), uuid.New()
	e := domain.NewStatusChangedEvent(taskID, actorID, domain.TaskStatusInProgress, domain.TaskStatusReview, "submit_review", true)

	assert.Equal(t, domain.EventStatusChanged, e.Type)
	assert.Equal(t, taskID, e.TaskID)
	assert.Equal(t, actorID, e.ActorID)
	assert.Equal(t, "in_progress", e.Payload[domain.PayloadOldValue])
	assert.Equal(t, "review", e.Payload[domain.PayloadNewValue])
	assert.Equal(t, "submit_review", e.Payload[domain.PayloadAction])
	assert.True(t, e.AutoTriggered())
}

func TestProject_IsLeader(t *testing.T) {
	t.Parallel()

	leader := uuid.New()
	p := &domain.Project{ID: uuid.New(), LeaderID: &leader}

	assert.True(t, p.IsLeader(leader))
	assert.False(t, p.IsLeader(uuid.New()))
	assert.False(t, (&domain.Project{}).IsLeader(leader))
}
