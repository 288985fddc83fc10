package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gosuda/taskflow/internal/domain"
)

type cascadeKind int

const (
	cascadeNone cascadeKind = iota
	cascadeStart
	cascadeCompletion
	cascadeRevert
)

func (k cascadeKind) String() string {
	switch k {
	case cascadeStart:
		return "start"
	case cascadeCompletion:
		return "completion"
	case cascadeRevert:
		return "revert"
	default:
		return "none"
	}
}

// Actions recorded on auto-triggered status_changed events.
const (
	ActionAutoStart        = "auto_start"
	ActionAutoSubmitReview = "auto_submit_review"
	ActionAutoComplete     = "auto_complete"
	ActionAutoRevert       = "auto_revert"
)

// CascadeEngine propagates a task's status change to its ancestors. Every
// walk visits at most MaxDepth-1 ancestors, and re-running a walk on a
// consistent tree changes nothing.
type CascadeEngine struct {
	writer statusWriter
}

// propagate dispatches to the walk for kind and returns the number of
// ancestors it changed.
func (c *CascadeEngine) propagate(ctx context.Context, sc *scope, kind cascadeKind, task *domain.Task, actorID uuid.UUID) (int, error) {
	switch kind {
	case cascadeStart:
		return c.propagateStart(ctx, sc, task, actorID)
	case cascadeCompletion:
		return c.propagateCompletion(ctx, sc, task, actorID)
	case cascadeRevert:
		return c.propagateRevert(ctx, sc, task, actorID)
	default:
		return 0, nil
	}
}

// propagateCompletion moves parents forward once all their children are
// done. A root parent goes to review and waits for approval; a subtask
// parent goes straight to done and the check repeats one level up.
func (c *CascadeEngine) propagateCompletion(ctx context.Context, sc *scope, task *domain.Task, actorID uuid.UUID) (int, error) {
	chain, err := ancestors(ctx, sc.tx.Tasks(), task)
	if err != nil {
		return 0, err
	}

	changed := 0
	for i, parent := range chain {
		depth := len(chain) - i

		children, err := sc.tx.Tasks().ListChildren(ctx, parent.ID)
		if err != nil {
			return changed, fmt.Errorf("list children of %s: %w", parent.ID, err)
		}
		if !allDone(children) {
			break
		}

		if depth == 1 {
			if parent.Status == domain.TaskStatusInProgress {
				if err := c.writer.write(ctx, sc, parent, domain.TaskStatusReview, actorID, ActionAutoSubmitReview, "", true); err != nil {
					return changed, err
				}
				if n := childrenCompletedNotification(sc.project, parent, actorID); n != nil {
					sc.fx.notify(n)
				}
				changed++
			}
			break
		}

		if parent.Status == domain.TaskStatusDone {
			continue
		}
		if !domain.CanTransition(parent.Status, domain.TaskStatusDone) {
			break
		}
		if err := c.writer.write(ctx, sc, parent, domain.TaskStatusDone, actorID, ActionAutoComplete, "", true); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// propagateStart starts every todo ancestor, stopping at the first one that
// is already underway.
func (c *CascadeEngine) propagateStart(ctx context.Context, sc *scope, task *domain.Task, actorID uuid.UUID) (int, error) {
	chain, err := ancestors(ctx, sc.tx.Tasks(), task)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, parent := range chain {
		if parent.Status != domain.TaskStatusTodo {
			break
		}
		if err := c.writer.write(ctx, sc, parent, domain.TaskStatusInProgress, actorID, ActionAutoStart, "", true); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// propagateRevert sends every ancestor sitting in review back to
// in_progress. Ancestors in other states are left alone and the walk goes on.
func (c *CascadeEngine) propagateRevert(ctx context.Context, sc *scope, task *domain.Task, actorID uuid.UUID) (int, error) {
	chain, err := ancestors(ctx, sc.tx.Tasks(), task)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, parent := range chain {
		if parent.Status != domain.TaskStatusReview {
			continue
		}
		if err := c.writer.write(ctx, sc, parent, domain.TaskStatusInProgress, actorID, ActionAutoRevert, "", true); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// runCascade applies a cascade inside a savepoint of the caller's
// transaction. A failed cascade is rolled back and logged; the caller's own
// change still commits.
func (e *Engine) runCascade(ctx context.Context, sc *scope, kind cascadeKind, task *domain.Task, actorID uuid.UUID) {
	if kind == cascadeNone || task.ParentID == nil {
		return
	}

	ctx, span := e.metrics.start(ctx, "cascade",
		attribute.String("kind", kind.String()),
		attribute.String("task_id", task.ID.String()),
	)

	child := &effects{}
	var changed int
	err := sc.tx.RunInTx(ctx, func(inner Store) error {
		var err error
		changed, err = e.cascade.propagate(ctx, &scope{tx: inner, fx: child, project: sc.project, subject: sc.subject}, kind, task, actorID)
		return err
	})
	end(span, err)

	if err != nil {
		e.metrics.cascadeErrs.Add(ctx, 1)
		log.Warn().Err(err).
			Str("task_id", task.ID.String()).
			Str("actor_id", actorID.String()).
			Str("cascade", kind.String()).
			Msg("workflow: cascade failed, primary transition kept")
		return
	}
	sc.fx.merge(child)

	if changed > 0 {
		log.Debug().
			Str("task_id", task.ID.String()).
			Str("cascade", kind.String()).
			Int("changed", changed).
			Msg("workflow: cascade applied")
	}
}

// PropagateCompletion re-runs completion propagation from taskID in its own
// transaction, without permission checks. It returns the number of
// ancestors changed; zero on a consistent tree.
func (e *Engine) PropagateCompletion(ctx context.Context, actorID, taskID uuid.UUID) (int, error) {
	return e.propagateFrom(ctx, "PropagateCompletion", cascadeCompletion, actorID, taskID)
}

// PropagateStart re-runs start propagation from taskID.
func (e *Engine) PropagateStart(ctx context.Context, actorID, taskID uuid.UUID) (int, error) {
	return e.propagateFrom(ctx, "PropagateStart", cascadeStart, actorID, taskID)
}

// PropagateRevert re-runs revert propagation from taskID.
func (e *Engine) PropagateRevert(ctx context.Context, actorID, taskID uuid.UUID) (int, error) {
	return e.propagateFrom(ctx, "PropagateRevert", cascadeRevert, actorID, taskID)
}

func (e *Engine) propagateFrom(ctx context.Context, name string, kind cascadeKind, actorID, taskID uuid.UUID) (changed int, err error) {
	ctx, span := e.metrics.start(ctx, name, attribute.String("task_id", taskID.String()))
	defer func() { end(span, err) }()

	err = e.inTx(ctx, func(sc *scope) error {
		task, err := sc.tx.Tasks().GetForUpdate(ctx, taskID)
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}
		project, err := sc.tx.Projects().GetByID(ctx, task.ProjectID)
		if err != nil {
			return fmt.Errorf("get project: %w", err)
		}
		sc.project = project

		changed, err = e.cascade.propagate(ctx, sc, kind, task, actorID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("workflow.Engine.%s: %w", name, err)
	}
	return changed, nil
}
