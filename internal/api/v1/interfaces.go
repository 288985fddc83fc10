package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/workflow"
)

// TaskEngine abstracts the workflow operations for handler testing.
// *workflow.Engine satisfies this interface.
type TaskEngine interface {
	CreateTask(ctx context.Context, actorID uuid.UUID, in workflow.CreateTaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, actorID, taskID uuid.UUID) (*domain.TaskWithRelations, error)
	UpdateTaskFields(ctx context.Context, actorID, taskID uuid.UUID, in workflow.UpdateTaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, actorID, taskID uuid.UUID) (int, error)

	ResolveSmartTransition(ctx context.Context, actorID, taskID uuid.UUID, requested string) (*workflow.Resolution, error)
	Start(ctx context.Context, actorID, taskID uuid.UUID) (*workflow.Resolution, error)
	RevertToTodo(ctx context.Context, actorID, taskID uuid.UUID) (*workflow.Resolution, error)
	SubmitForReview(ctx context.Context, actorID, taskID uuid.UUID) (*workflow.Resolution, error)
	CompleteDirect(ctx context.Context, actorID, taskID uuid.UUID) (*workflow.Resolution, error)
	Approve(ctx context.Context, actorID, taskID uuid.UUID) (*workflow.Resolution, error)
	Reject(ctx context.Context, actorID, taskID uuid.UUID, reason string) (*workflow.Resolution, error)
	Reopen(ctx context.Context, actorID, taskID uuid.UUID) (*workflow.Resolution, error)

	GetAvailableTransitions(ctx context.Context, actorID, taskID uuid.UUID) ([]domain.TaskStatus, error)
	GetEvents(ctx context.Context, actorID, taskID uuid.UUID) ([]*domain.TaskEvent, error)
	GetPermissions(ctx context.Context, actorID, taskID uuid.UUID) (*workflow.Permissions, error)

	BatchComplete(ctx context.Context, actorID uuid.UUID, taskIDs []uuid.UUID) (*workflow.BatchCompleteResult, error)
	BatchDelete(ctx context.Context, actorID uuid.UUID, taskIDs []uuid.UUID) (*workflow.BatchDeleteResult, error)
}

// ProjectEngine abstracts project and workspace administration.
// *workflow.Engine satisfies this interface.
type ProjectEngine interface {
	CreateProject(ctx context.Context, actorID uuid.UUID, in workflow.CreateProjectInput) (*domain.Project, error)
	ListProjects(ctx context.Context, actorID, workspaceID uuid.UUID) ([]*domain.Project, error)
	AddProjectMember(ctx context.Context, actorID, projectID, userID uuid.UUID, leader bool) (*domain.ProjectMember, error)
	ListProjectTasks(ctx context.Context, actorID, projectID uuid.UUID) ([]*domain.Task, error)
	GetProjectStats(ctx context.Context, actorID, projectID uuid.UUID) (*workflow.ProjectStats, error)

	AddWorkspaceMember(ctx context.Context, actorID, workspaceID, userID uuid.UUID, role string) (*domain.Membership, error)
	ListWorkspaceMembers(ctx context.Context, actorID, workspaceID uuid.UUID) ([]*domain.Membership, error)
}

// NotificationReader lists a user's inbox.
// domain.NotificationRepository satisfies this interface.
type NotificationReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error)
}

var (
	_ TaskEngine    = (*workflow.Engine)(nil)
	_ ProjectEngine = (*workflow.Engine)(nil)
)
