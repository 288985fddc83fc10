package workflow

import (
	"context"
	"fmt"

	"github.com/gosuda/taskflow/internal/domain"
)

// depthOf walks the parent chain of t. Root tasks are depth 1. A chain
// longer than MaxDepth is reported as ErrMaxDepthExceeded instead of being
// followed further.
func depthOf(ctx context.Context, tasks domain.TaskRepository, t *domain.Task) (int, error) {
	depth := 1
	parentID := t.ParentID
	for parentID != nil {
		if depth >= domain.MaxDepth {
			return 0, fmt.Errorf("workflow.depthOf: task %s: %w", t.ID, domain.ErrMaxDepthExceeded)
		}
		parent, err := tasks.GetByID(ctx, *parentID)
		if err != nil {
			return 0, fmt.Errorf("workflow.depthOf: parent %s: %w", *parentID, err)
		}
		depth++
		parentID = parent.ParentID
	}
	return depth, nil
}

// ancestors returns the parent chain of t, nearest first, locking each row.
func ancestors(ctx context.Context, tasks domain.TaskRepository, t *domain.Task) ([]*domain.Task, error) {
	var out []*domain.Task
	parentID := t.ParentID
	for parentID != nil {
		if len(out) >= domain.MaxDepth-1 {
			return nil, fmt.Errorf("workflow.ancestors: task %s: %w", t.ID, domain.ErrMaxDepthExceeded)
		}
		parent, err := tasks.GetForUpdate(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("workflow.ancestors: parent %s: %w", *parentID, err)
		}
		out = append(out, parent)
		parentID = parent.ParentID
	}
	return out, nil
}

func allDone(tasks []*domain.Task) bool {
	for _, t := range tasks {
		if t.Status != domain.TaskStatusDone {
			return false
		}
	}
	return true
}
