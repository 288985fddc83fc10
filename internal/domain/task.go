package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MaxDepth is the deepest allowed nesting level. Root tasks are depth 1.
const MaxDepth = 3

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// ParsePriority validates a raw priority; empty input yields medium.
func ParsePriority(raw string) (Priority, error) {
	if raw == "" {
		return PriorityMedium, nil
	}
	p := Priority(raw)
	if !p.IsValid() {
		return "", NewError(CodeInvalidPriority, "unknown priority %q", raw)
	}
	return p, nil
}

type Task struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	ParentID    *uuid.UUID // nil for root tasks
	Title       string
	Description string
	Status      TaskStatus
	Priority    Priority
	AssigneeID  *uuid.UUID
	CreatorID   uuid.UUID
	DueDate     *time.Time
	CompletedAt *time.Time // set iff Status == done
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks enum membership and the completedAt invariant.
func (t *Task) Validate() error {
	if t.Title == "" {
		return NewError(CodeMissingFields, "title is required")
	}
	if !t.Status.IsValid() {
		return NewError(CodeInvalidStatus, "unknown task status %q", t.Status)
	}
	if !t.Priority.IsValid() {
		return NewError(CodeInvalidPriority, "unknown priority %q", t.Priority)
	}
	if t.Status == TaskStatusDone && t.CompletedAt == nil {
		return NewError(CodeInvalidStatus, "done tasks must have completed_at")
	}
	if t.Status != TaskStatusDone && t.CompletedAt != nil {
		return NewError(CodeInvalidStatus, "only done tasks may have completed_at")
	}
	return nil
}

func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// TaskWithRelations is a task with its project, parent, children and people
// loaded alongside.
type TaskWithRelations struct {
	Task     *Task
	Project  *Project
	Parent   *Task // nil for root tasks
	Children []*Task
	Assignee *User // nil when unassigned
	Creator  *User
}

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	// GetForUpdate reads a task and, inside a transaction, locks its row
	// until commit.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Task, error)
	GetWithRelations(ctx context.Context, id uuid.UUID) (*TaskWithRelations, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Task, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*Task, error)
	// ListDescendants returns the transitive closure below id, parents before
	// children. The walk never goes deeper than MaxDepth levels.
	ListDescendants(ctx context.Context, id uuid.UUID) ([]*Task, error)
	CountByStatus(ctx context.Context, projectID uuid.UUID) (map[TaskStatus]int, error)
	Update(ctx context.Context, t *Task) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status TaskStatus, completedAt *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}
