package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/workflow"
)

type CreateTaskInput struct {
	Body struct {
		ProjectID   uuid.UUID  `json:"project_id" doc:"Project ID"`
		ParentID    *uuid.UUID `json:"parent_id,omitempty" doc:"Parent task ID for subtasks"`
		Title       string     `json:"title" maxLength:"500" doc:"Task title"`
		Description string     `json:"description,omitempty" doc:"Task description"`
		Status      string     `json:"status,omitempty" doc:"Initial status; only todo is accepted"`
		Priority    string     `json:"priority,omitempty" doc:"low, medium (default), high or critical"`
		AssigneeID  *uuid.UUID `json:"assignee_id,omitempty" doc:"Assignee user ID"`
		DueDate     *time.Time `json:"due_date,omitempty" doc:"Due date"`
	}
}

type TaskOutput struct {
	Body TaskBody
}

type TaskIDInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type GetTaskOutput struct {
	Body *TaskDetailBody
}

type UpdateTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Title         *string    `json:"title,omitempty" maxLength:"500" doc:"Task title"`
		Description   *string    `json:"description,omitempty" doc:"Task description"`
		Priority      *string    `json:"priority,omitempty" doc:"Task priority"`
		AssigneeID    *uuid.UUID `json:"assignee_id,omitempty" doc:"New assignee user ID"`
		ClearAssignee bool       `json:"clear_assignee,omitempty" doc:"Unassign the task"`
		DueDate       *time.Time `json:"due_date,omitempty" doc:"Due date"`
		ClearDueDate  bool       `json:"clear_due_date,omitempty" doc:"Remove the due date"`
		Status        *string    `json:"status,omitempty" doc:"Rejected; use the transition endpoints"`
	}
}

type DeleteTaskOutput struct {
	Body struct {
		DescendantsDeleted int `json:"descendants_deleted" doc:"Subtasks removed with the task"`
	}
}

type TransitionInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Status string `json:"status" minLength:"1" doc:"Requested status"`
	}
}

type RejectInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body *struct {
		Reason string `json:"reason,omitempty" maxLength:"2000" doc:"Why the task is returned"`
	}
}

type ResolutionOutput struct {
	Body *ResolutionBody
}

type TransitionsOutput struct {
	Body struct {
		Transitions []domain.TaskStatus `json:"transitions" doc:"Statuses the caller can move the task to"`
	}
}

type EventsOutput struct {
	Body []EventBody
}

type PermissionsOutput struct {
	Body *PermissionsBody
}

// transitionRoute is one named lifecycle operation.
type transitionRoute struct {
	id      string
	path    string
	summary string
	run     func(ctx context.Context, actorID, taskID uuid.UUID) (*workflow.Resolution, error)
}

// RegisterTaskRoutes registers single-task and bulk operations. The static
// /tasks/batch/* paths go first so routers that match in registration order
// never read "batch" as a task ID.
func RegisterTaskRoutes(api huma.API, engine TaskEngine) {
	registerBatchRoutes(api, engine)

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a new task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		task, err := engine.CreateTask(ctx, actorID, workflow.CreateTaskInput{
			ProjectID:   input.Body.ProjectID,
			ParentID:    input.Body.ParentID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Priority:    input.Body.Priority,
			AssigneeID:  input.Body.AssigneeID,
			DueDate:     input.Body.DueDate,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to create task")
		}

		return &TaskOutput{Body: newTaskBody(task)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task with its relations",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*GetTaskOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		twr, err := engine.GetTask(ctx, actorID, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get task")
		}

		return &GetTaskOutput{Body: newTaskDetailBody(twr)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update non-status task fields",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*TaskOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		task, err := engine.UpdateTaskFields(ctx, actorID, input.ID, workflow.UpdateTaskInput{
			Title:         input.Body.Title,
			Description:   input.Body.Description,
			Priority:      input.Body.Priority,
			AssigneeID:    input.Body.AssigneeID,
			ClearAssignee: input.Body.ClearAssignee,
			DueDate:       input.Body.DueDate,
			ClearDueDate:  input.Body.ClearDueDate,
			Status:        input.Body.Status,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to update task")
		}

		return &TaskOutput{Body: newTaskBody(task)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete a task and its subtasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*DeleteTaskOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		n, err := engine.DeleteTask(ctx, actorID, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to delete task")
		}

		out := &DeleteTaskOutput{}
		out.Body.DescendantsDeleted = n
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/transition",
		Summary:     "Move a task toward a status",
		Description: "Picks the lifecycle operation that leads from the current status to the requested one. " +
			"Requesting the current status is a no-op.",
		Tags: []string{"Tasks"},
	}, func(ctx context.Context, input *TransitionInput) (*ResolutionOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		res, err := engine.ResolveSmartTransition(ctx, actorID, input.ID, input.Body.Status)
		if err != nil {
			return nil, toHTTPError(err, "failed to transition task")
		}

		return &ResolutionOutput{Body: newResolutionBody(res)}, nil
	})

	routes := []transitionRoute{
		{id: "start-task", path: "/tasks/{id}/start", summary: "Start work on a task", run: engine.Start},
		{id: "revert-task", path: "/tasks/{id}/revert", summary: "Move a task back to todo", run: engine.RevertToTodo},
		{id: "submit-task-review", path: "/tasks/{id}/submit-review", summary: "Submit a task for review", run: engine.SubmitForReview},
		{id: "complete-task", path: "/tasks/{id}/complete", summary: "Complete a task without review", run: engine.CompleteDirect},
		{id: "approve-task", path: "/tasks/{id}/approve", summary: "Approve a task under review", run: engine.Approve},
		{id: "reopen-task", path: "/tasks/{id}/reopen", summary: "Reopen a completed task", run: engine.Reopen},
	}
	for _, rt := range routes {
		huma.Register(api, huma.Operation{
			OperationID: rt.id,
			Method:      http.MethodPost,
			Path:        rt.path,
			Summary:     rt.summary,
			Tags:        []string{"Tasks"},
		}, func(ctx context.Context, input *TaskIDInput) (*ResolutionOutput, error) {
			actorID, err := actorFrom(ctx)
			if err != nil {
				return nil, err
			}

			res, err := rt.run(ctx, actorID, input.ID)
			if err != nil {
				return nil, toHTTPError(err, rt.id+" failed")
			}

			return &ResolutionOutput{Body: newResolutionBody(res)}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "reject-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/reject",
		Summary:     "Return a task under review for rework",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *RejectInput) (*ResolutionOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		var reason string
		if input.Body != nil {
			reason = input.Body.Reason
		}
		res, err := engine.Reject(ctx, actorID, input.ID, reason)
		if err != nil {
			return nil, toHTTPError(err, "failed to reject task")
		}

		return &ResolutionOutput{Body: newResolutionBody(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-transitions",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/transitions",
		Summary:     "List the statuses the caller can move a task to",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TransitionsOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		statuses, err := engine.GetAvailableTransitions(ctx, actorID, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list transitions")
		}

		out := &TransitionsOutput{}
		out.Body.Transitions = statuses
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-events",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/events",
		Summary:     "List a task's history, oldest first",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*EventsOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		events, err := engine.GetEvents(ctx, actorID, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list events")
		}

		return &EventsOutput{Body: newEventBodies(events)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task-permissions",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/permissions",
		Summary:     "Get the caller's rights on a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*PermissionsOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		p, err := engine.GetPermissions(ctx, actorID, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get permissions")
		}

		return &PermissionsOutput{Body: &PermissionsBody{
			Role:            p.Role,
			ProjectLeader:   p.ProjectLeader,
			CanView:         p.CanView,
			CanEdit:         p.CanEdit,
			CanDelete:       p.CanDelete,
			CanChangeStatus: p.CanChangeStatus,
			CanReview:       p.CanReview,
		}}, nil
	})
}
