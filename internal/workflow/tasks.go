package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gosuda/taskflow/internal/domain"
)

// CreateTaskInput carries the fields of a new task. Status may be empty or
// "todo"; anything else is rejected.
type CreateTaskInput struct {
	ProjectID   uuid.UUID
	ParentID    *uuid.UUID
	Title       string
	Description string
	Status      string
	Priority    string
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
}

// CreateTask validates and stores a new todo task and writes its created
// event.
func (e *Engine) CreateTask(ctx context.Context, actorID uuid.UUID, in CreateTaskInput) (task *domain.Task, err error) {
	ctx, span := e.metrics.start(ctx, "CreateTask", attribute.String("project_id", in.ProjectID.String()))
	defer func() { end(span, err) }()

	title := strings.TrimSpace(in.Title)
	if title == "" || in.ProjectID == uuid.Nil {
		return nil, domain.NewError(domain.CodeMissingFields, "title and project are required")
	}
	if in.Status != "" {
		status, err := domain.ParseTaskStatus(in.Status)
		if err != nil {
			return nil, err
		}
		if status != domain.TaskStatusTodo {
			return nil, domain.NewError(domain.CodeInvalidInitialStatus, "new tasks start in todo, got %s", status)
		}
	}
	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	err = e.inTx(ctx, func(sc *scope) error {
		// 1. Caller must be allowed to create tasks in the project.
		if err := e.bind(ctx, sc, in.ProjectID, actorID); err != nil {
			return err
		}
		if !sc.subject.CanCreate() {
			return domain.NewError(domain.CodeForbidden, "no permission to create tasks in this project")
		}

		// 2. Parent must live in the same project and leave room for a child.
		if in.ParentID != nil {
			parent, err := sc.tx.Tasks().GetByID(ctx, *in.ParentID)
			if err != nil {
				return fmt.Errorf("get parent: %w", err)
			}
			if parent.ProjectID != in.ProjectID {
				return domain.NewError(domain.CodeInvalidParent, "parent task belongs to another project")
			}
			depth, err := depthOf(ctx, sc.tx.Tasks(), parent)
			if err != nil {
				return err
			}
			if depth >= domain.MaxDepth {
				return domain.NewError(domain.CodeMaxDepthExceeded, "tasks can be nested at most %d levels deep", domain.MaxDepth)
			}
		}

		// 3. Assignment constraints.
		assignee, err := e.perms.ResolveAssignee(ctx, sc.tx, sc.subject, sc.project.WorkspaceID, in.AssigneeID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		t := &domain.Task{
			ID:          uuid.New(),
			ProjectID:   in.ProjectID,
			ParentID:    in.ParentID,
			Title:       title,
			Description: in.Description,
			Status:      domain.TaskStatusTodo,
			Priority:    priority,
			AssigneeID:  assignee,
			CreatorID:   actorID,
			DueDate:     in.DueDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := t.Validate(); err != nil {
			return err
		}
		if err := sc.tx.Tasks().Create(ctx, t); err != nil {
			return fmt.Errorf("create task: %w", err)
		}

		payload := map[string]any{
			"title":    t.Title,
			"status":   string(t.Status),
			"priority": string(t.Priority),
		}
		if t.ParentID != nil {
			payload["parentId"] = t.ParentID.String()
		}
		if t.AssigneeID != nil {
			payload["assigneeId"] = t.AssigneeID.String()
		}
		if err := sc.tx.Events().Append(ctx, &domain.TaskEvent{
			ID: uuid.New(), TaskID: t.ID, ActorID: actorID,
			Type: domain.EventCreated, Payload: payload, CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("append event: %w", err)
		}

		if n := assignedNotification(t, actorID); n != nil {
			sc.fx.notify(n)
		}
		sc.fx.publish(boardEvent(sc, domain.BoardTaskCreated, t, actorID, false))
		task = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.CreateTask: %w", err)
	}
	return task, nil
}

// UpdateTaskInput is a partial update of non-status fields. nil fields are
// left unchanged; the Clear flags unset optional fields.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Priority      *string
	AssigneeID    *uuid.UUID
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
	// Status is always rejected; status changes go through the transition
	// operations.
	Status *string
}

// UpdateTaskFields applies a partial update and records the per-field diff
// as an updated event. An update that changes nothing writes no event.
func (e *Engine) UpdateTaskFields(ctx context.Context, actorID, taskID uuid.UUID, in UpdateTaskInput) (task *domain.Task, err error) {
	ctx, span := e.metrics.start(ctx, "UpdateTaskFields", attribute.String("task_id", taskID.String()))
	defer func() { end(span, err) }()

	if in.Status != nil {
		return nil, domain.NewError(domain.CodeUseStatusEndpoint, "use the transition endpoint to change status")
	}

	err = e.inTx(ctx, func(sc *scope) error {
		t, err := e.loadTask(ctx, sc, actorID, taskID)
		if err != nil {
			return err
		}
		if !sc.subject.CanEdit(t) {
			return domain.NewError(domain.CodeForbidden, "no permission to edit this task")
		}

		diff := map[string]any{}
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return domain.NewError(domain.CodeMissingFields, "title cannot be empty")
			}
			if title != t.Title {
				diff["title"] = domain.FieldChange{Old: t.Title, New: title}
				t.Title = title
			}
		}
		if in.Description != nil && *in.Description != t.Description {
			diff["description"] = domain.FieldChange{Old: t.Description, New: *in.Description}
			t.Description = *in.Description
		}
		if in.Priority != nil {
			p, err := domain.ParsePriority(*in.Priority)
			if err != nil {
				return err
			}
			if p != t.Priority {
				diff["priority"] = domain.FieldChange{Old: string(t.Priority), New: string(p)}
				t.Priority = p
			}
		}

		var newAssignee bool
		switch {
		case in.ClearAssignee && t.AssigneeID != nil:
			if err := e.perms.ResolveReassignment(ctx, sc.tx, sc.subject, sc.project.WorkspaceID, nil); err != nil {
				return err
			}
			diff["assigneeId"] = domain.FieldChange{Old: t.AssigneeID.String(), New: nil}
			t.AssigneeID = nil
		case in.AssigneeID != nil && !t.IsAssignedTo(*in.AssigneeID):
			if err := e.perms.ResolveReassignment(ctx, sc.tx, sc.subject, sc.project.WorkspaceID, in.AssigneeID); err != nil {
				return err
			}
			var old any
			if t.AssigneeID != nil {
				old = t.AssigneeID.String()
			}
			diff["assigneeId"] = domain.FieldChange{Old: old, New: in.AssigneeID.String()}
			id := *in.AssigneeID
			t.AssigneeID = &id
			newAssignee = true
		}

		switch {
		case in.ClearDueDate && t.DueDate != nil:
			diff["dueDate"] = domain.FieldChange{Old: t.DueDate.Format(time.RFC3339), New: nil}
			t.DueDate = nil
		case in.DueDate != nil && (t.DueDate == nil || !t.DueDate.Equal(*in.DueDate)):
			var old any
			if t.DueDate != nil {
				old = t.DueDate.Format(time.RFC3339)
			}
			diff["dueDate"] = domain.FieldChange{Old: old, New: in.DueDate.Format(time.RFC3339)}
			due := *in.DueDate
			t.DueDate = &due
		}

		task = t
		if len(diff) == 0 {
			return nil
		}

		t.UpdatedAt = time.Now().UTC()
		if err := t.Validate(); err != nil {
			return err
		}
		if err := sc.tx.Tasks().Update(ctx, t); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if err := sc.tx.Events().Append(ctx, &domain.TaskEvent{
			ID: uuid.New(), TaskID: t.ID, ActorID: actorID,
			Type: domain.EventUpdated, Payload: diff, CreatedAt: t.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("append event: %w", err)
		}

		if newAssignee {
			if n := assignedNotification(t, actorID); n != nil {
				sc.fx.notify(n)
			}
		}
		sc.fx.publish(boardEvent(sc, domain.BoardTaskUpdated, t, actorID, false))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.UpdateTaskFields: %w", err)
	}
	return task, nil
}

// DeleteTask hard-deletes a task with all of its descendants and returns
// how many descendants went with it.
func (e *Engine) DeleteTask(ctx context.Context, actorID, taskID uuid.UUID) (descendants int, err error) {
	ctx, span := e.metrics.start(ctx, "DeleteTask", attribute.String("task_id", taskID.String()))
	defer func() { end(span, err) }()

	err = e.inTx(ctx, func(sc *scope) error {
		var err error
		descendants, err = e.deleteTree(ctx, sc, actorID, taskID, nil)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("workflow.Engine.DeleteTask: %w", err)
	}
	return descendants, nil
}

// deleteTree removes taskID and its subtree, deepest first. Tasks listed in
// skip are already gone and are neither deleted nor counted.
func (e *Engine) deleteTree(ctx context.Context, sc *scope, actorID, taskID uuid.UUID, skip map[uuid.UUID]bool) (int, error) {
	t, err := e.loadTask(ctx, sc, actorID, taskID)
	if err != nil {
		return 0, err
	}
	if !sc.subject.CanDelete() {
		return 0, domain.NewError(domain.CodeForbidden, "only managers and project leaders can delete tasks")
	}

	descendants, err := sc.tx.Tasks().ListDescendants(ctx, t.ID)
	if err != nil {
		return 0, fmt.Errorf("list descendants: %w", err)
	}

	count := 0
	for i := len(descendants) - 1; i >= 0; i-- {
		d := descendants[i]
		if skip[d.ID] {
			continue
		}
		if err := sc.tx.Tasks().Delete(ctx, d.ID); err != nil {
			return 0, fmt.Errorf("delete descendant %s: %w", d.ID, err)
		}
		sc.fx.publish(boardEvent(sc, domain.BoardTaskDeleted, d, actorID, false))
		count++
	}
	if err := sc.tx.Tasks().Delete(ctx, t.ID); err != nil {
		return 0, fmt.Errorf("delete task: %w", err)
	}
	sc.fx.publish(boardEvent(sc, domain.BoardTaskDeleted, t, actorID, false))

	if skip != nil {
		skip[t.ID] = true
		for _, d := range descendants {
			skip[d.ID] = true
		}
	}
	return count, nil
}

// GetTask returns a task with its relations.
func (e *Engine) GetTask(ctx context.Context, actorID, taskID uuid.UUID) (*domain.TaskWithRelations, error) {
	twr, err := e.store.Tasks().GetWithRelations(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetTask: %w", err)
	}
	if err := e.requireView(ctx, twr.Project, actorID); err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetTask: %w", err)
	}
	return twr, nil
}

// ListProjectTasks returns every task of a project.
func (e *Engine) ListProjectTasks(ctx context.Context, actorID, projectID uuid.UUID) ([]*domain.Task, error) {
	project, err := e.store.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.ListProjectTasks: %w", err)
	}
	if err := e.requireView(ctx, project, actorID); err != nil {
		return nil, fmt.Errorf("workflow.Engine.ListProjectTasks: %w", err)
	}
	tasks, err := e.store.Tasks().ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.ListProjectTasks: %w", err)
	}
	return tasks, nil
}

func (e *Engine) requireView(ctx context.Context, project *domain.Project, actorID uuid.UUID) error {
	subj, err := e.perms.Subject(ctx, e.store, project, actorID)
	if err != nil {
		return err
	}
	if !subj.CanView() {
		return domain.NewError(domain.CodeForbidden, "not a member of this workspace")
	}
	return nil
}

// readTask loads a task, its project and the caller's rights outside a
// transaction.
func (e *Engine) readTask(ctx context.Context, actorID, taskID uuid.UUID) (*domain.Task, *scope, error) {
	task, err := e.store.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	sc := &scope{tx: e.store, fx: &effects{}}
	if err := e.bind(ctx, sc, task.ProjectID, actorID); err != nil {
		return nil, nil, err
	}
	if !sc.subject.CanView() {
		return nil, nil, domain.NewError(domain.CodeForbidden, "not a member of this workspace")
	}
	return task, sc, nil
}

// GetAvailableTransitions lists the statuses the caller can move the task
// to right now. Callers without status rights get none; review is dropped
// below the root level and review decisions need review rights.
func (e *Engine) GetAvailableTransitions(ctx context.Context, actorID, taskID uuid.UUID) ([]domain.TaskStatus, error) {
	task, sc, err := e.readTask(ctx, actorID, taskID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetAvailableTransitions: %w", err)
	}

	out := []domain.TaskStatus{}
	if !sc.subject.CanChangeStatus(task) {
		return out, nil
	}

	depth, err := depthOf(ctx, e.store.Tasks(), task)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetAvailableTransitions: %w", err)
	}

	for _, to := range domain.AvailableTransitions(task.Status) {
		if to == domain.TaskStatusReview && depth > 1 {
			continue
		}
		op, err := ResolveOperation(task.Status, to)
		if err != nil {
			continue
		}
		if op.ReviewGate && !sc.subject.CanReview() {
			continue
		}
		out = append(out, to)
	}
	return out, nil
}

// GetEvents returns a task's history, oldest first.
func (e *Engine) GetEvents(ctx context.Context, actorID, taskID uuid.UUID) ([]*domain.TaskEvent, error) {
	if _, _, err := e.readTask(ctx, actorID, taskID); err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetEvents: %w", err)
	}
	events, err := e.store.Events().ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetEvents: %w", err)
	}
	return events, nil
}

// GetPermissions reports the caller's effective rights on a task.
func (e *Engine) GetPermissions(ctx context.Context, actorID, taskID uuid.UUID) (*Permissions, error) {
	task, err := e.store.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetPermissions: %w", err)
	}
	project, err := e.store.Projects().GetByID(ctx, task.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetPermissions: %w", err)
	}
	subj, err := e.perms.Subject(ctx, e.store, project, actorID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetPermissions: %w", err)
	}
	return subj.Permissions(task), nil
}

// ProjectStats is a status histogram over one project's tasks.
type ProjectStats struct {
	ProjectID      uuid.UUID
	ByStatus       map[domain.TaskStatus]int
	Total          int
	CompletionRate float64 // done / total, 0 for an empty project
}

func (e *Engine) GetProjectStats(ctx context.Context, actorID, projectID uuid.UUID) (*ProjectStats, error) {
	project, err := e.store.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetProjectStats: %w", err)
	}
	if err := e.requireView(ctx, project, actorID); err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetProjectStats: %w", err)
	}

	counts, err := e.store.Tasks().CountByStatus(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.GetProjectStats: %w", err)
	}

	stats := &ProjectStats{ProjectID: projectID, ByStatus: make(map[domain.TaskStatus]int, 4)}
	for _, s := range domain.TaskStatuses() {
		stats.ByStatus[s] = counts[s]
		stats.Total += counts[s]
	}
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.ByStatus[domain.TaskStatusDone]) / float64(stats.Total)
	}
	return stats, nil
}
