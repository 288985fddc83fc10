package workflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gosuda/taskflow/internal/domain"
)

type BatchOutcome string

const (
	BatchSuccess      BatchOutcome = "success"
	BatchAutoReviewed BatchOutcome = "auto_reviewed"
	BatchFailed       BatchOutcome = "failed"
)

type BatchCompleteItem struct {
	TaskID  uuid.UUID
	Outcome BatchOutcome
	Status  domain.TaskStatus // status after processing, empty on failure
	Code    domain.ErrorCode
	Reason  string
}

type BatchCompleteResult struct {
	Items        []BatchCompleteItem
	Succeeded    int
	AutoReviewed int
	Failed       int
}

type BatchDeleteItem struct {
	TaskID  uuid.UUID
	Deleted bool
	Code    domain.ErrorCode
	Reason  string
}

type BatchDeleteResult struct {
	Items              []BatchDeleteItem
	Deleted            int
	Failed             int
	DescendantsDeleted int
}

// uniqueIDs drops repeated ids, keeping first occurrences in order.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func failure(err error) (domain.ErrorCode, string) {
	code := domain.CodeOf(err)
	if code == "" {
		return "INTERNAL", err.Error()
	}
	return code, domain.MessageOf(err)
}

// BatchComplete drives each task towards done in its own transaction. A root
// task whose caller cannot approve is submitted for review instead of being
// completed. Repeated ids yield a single item. Item failures are reported,
// never returned as an error.
func (e *Engine) BatchComplete(ctx context.Context, actorID uuid.UUID, taskIDs []uuid.UUID) (*BatchCompleteResult, error) {
	if len(taskIDs) == 0 {
		return nil, domain.NewError(domain.CodeMissingFields, "no task ids given")
	}
	taskIDs = uniqueIDs(taskIDs)

	ctx, span := e.metrics.start(ctx, "BatchComplete", attribute.Int("tasks", len(taskIDs)))
	defer span.End()

	res := &BatchCompleteResult{Items: make([]BatchCompleteItem, 0, len(taskIDs))}
	reconcile := make(map[uuid.UUID]uuid.UUID) // parent -> a completed child
	var parents []uuid.UUID

	for _, id := range taskIDs {
		item, task := e.completeOne(ctx, actorID, id)
		res.Items = append(res.Items, item)
		e.metrics.batchItem(ctx, "complete", string(item.Outcome))

		switch item.Outcome {
		case BatchSuccess:
			res.Succeeded++
			if task != nil && task.ParentID != nil {
				if _, seen := reconcile[*task.ParentID]; !seen {
					reconcile[*task.ParentID] = task.ID
					parents = append(parents, *task.ParentID)
				}
			}
		case BatchAutoReviewed:
			res.AutoReviewed++
		case BatchFailed:
			res.Failed++
		}
	}

	// One more completion pass per parent, now that every item has landed.
	for _, parentID := range parents {
		if _, err := e.PropagateCompletion(ctx, actorID, reconcile[parentID]); err != nil {
			log.Warn().Err(err).
				Str("parent_id", parentID.String()).
				Msg("workflow: batch reconcile failed")
		}
	}

	log.Info().
		Str("actor_id", actorID.String()).
		Int("succeeded", res.Succeeded).
		Int("auto_reviewed", res.AutoReviewed).
		Int("failed", res.Failed).
		Msg("workflow: batch complete")

	return res, nil
}

func (e *Engine) completeOne(ctx context.Context, actorID, taskID uuid.UUID) (BatchCompleteItem, *domain.Task) {
	item := BatchCompleteItem{TaskID: taskID}
	var task *domain.Task

	err := e.inTx(ctx, func(sc *scope) error {
		t, err := e.loadTask(ctx, sc, actorID, taskID)
		if err != nil {
			return err
		}
		task = t

		if t.Status == domain.TaskStatusDone {
			item.Outcome, item.Status = BatchSuccess, t.Status
			return nil
		}

		op, err := ResolveOperation(t.Status, domain.TaskStatusDone)
		if err != nil {
			return err
		}

		if op.Action == OpCompleteDirect.Action && t.ParentID == nil && !sc.subject.CanReview() {
			op = OpSubmitForReview
		}

		r, err := e.apply(ctx, sc, t, op, actorID, "")
		if err != nil {
			return err
		}
		item.Status = r.ActualStatus
		if r.ActualStatus == domain.TaskStatusReview {
			item.Outcome = BatchAutoReviewed
		} else {
			item.Outcome = BatchSuccess
		}
		return nil
	})
	if err != nil {
		item.Outcome, item.Status = BatchFailed, ""
		item.Code, item.Reason = failure(err)
		return item, nil
	}
	return item, task
}

// BatchDelete deletes each task with its subtree in its own transaction.
// Delete rights are checked per task. Repeated ids yield a single item.
func (e *Engine) BatchDelete(ctx context.Context, actorID uuid.UUID, taskIDs []uuid.UUID) (*BatchDeleteResult, error) {
	if len(taskIDs) == 0 {
		return nil, domain.NewError(domain.CodeMissingFields, "no task ids given")
	}
	taskIDs = uniqueIDs(taskIDs)

	ctx, span := e.metrics.start(ctx, "BatchDelete", attribute.Int("tasks", len(taskIDs)))
	defer span.End()

	res := &BatchDeleteResult{Items: make([]BatchDeleteItem, 0, len(taskIDs))}
	gone := make(map[uuid.UUID]bool)

	for _, id := range taskIDs {
		item := BatchDeleteItem{TaskID: id}

		if gone[id] {
			// Already removed as part of an earlier item's subtree.
			item.Deleted = true
			res.Items = append(res.Items, item)
			res.Deleted++
			e.metrics.batchItem(ctx, "delete", "success")
			continue
		}

		var count int
		var removed map[uuid.UUID]bool
		err := e.inTx(ctx, func(sc *scope) error {
			removed = make(map[uuid.UUID]bool, len(gone))
			for k := range gone {
				removed[k] = true
			}
			var err error
			count, err = e.deleteTree(ctx, sc, actorID, id, removed)
			return err
		})
		if err != nil {
			item.Code, item.Reason = failure(err)
			res.Items = append(res.Items, item)
			res.Failed++
			e.metrics.batchItem(ctx, "delete", "failed")
			continue
		}

		gone = removed
		item.Deleted = true
		res.Items = append(res.Items, item)
		res.Deleted++
		res.DescendantsDeleted += count
		e.metrics.batchItem(ctx, "delete", "success")
	}

	log.Info().
		Str("actor_id", actorID.String()).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Int("descendants_deleted", res.DescendantsDeleted).
		Msg("workflow: batch delete")

	return res, nil
}
