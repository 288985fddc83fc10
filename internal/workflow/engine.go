// Package workflow implements the task lifecycle engine: permission checks,
// smart status transitions, cascades over the task tree and batch
// operations. Every mutating call runs in one store transaction; side effects
// such as notifications and board events are released only after commit.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskflow/internal/domain"
)

// Engine exposes the workflow operations. It holds no per-request state and
// is safe for concurrent use.
type Engine struct {
	store     Store
	perms     PermissionResolver
	writer    statusWriter
	cascade   *CascadeEngine
	notifier  Notifier
	publisher domain.BoardPublisher
	metrics   *instruments
}

// New creates an Engine. notifier and publisher may be nil.
func New(store Store, notifier Notifier, publisher domain.BoardPublisher) *Engine {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	writer := statusWriter{now: time.Now}
	return &Engine{
		store:     store,
		writer:    writer,
		cascade:   &CascadeEngine{writer: writer},
		notifier:  notifier,
		publisher: publisher,
		metrics:   newInstruments(),
	}
}

// scope is the state of one transaction.
type scope struct {
	tx      Store
	fx      *effects
	project *domain.Project
	subject Subject
}

// inTx runs fn in a store transaction and releases the collected side
// effects once it commits. fn may run more than once when the store retries.
func (e *Engine) inTx(ctx context.Context, fn func(sc *scope) error) error {
	var fx *effects
	err := e.store.RunInTx(ctx, func(tx Store) error {
		fx = &effects{}
		return fn(&scope{tx: tx, fx: fx})
	})
	if err != nil {
		return err
	}
	e.flush(ctx, fx)
	return nil
}

// flush hands committed side effects to their sinks. Failures are logged
// and never reach the caller.
func (e *Engine) flush(ctx context.Context, fx *effects) {
	for _, t := range fx.transitions {
		e.metrics.transition(ctx, t.action, t.auto)
	}
	for _, n := range fx.notifications {
		e.notifier.Notify(ctx, n)
	}
	for _, ev := range fx.board {
		if err := e.publisher.PublishBoardEvent(ctx, ev); err != nil {
			log.Warn().Err(err).
				Str("task_id", ev.TaskID.String()).
				Str("event", string(ev.Type)).
				Msg("workflow: publish board event failed")
		}
	}
}

// bind loads project and caller rights into sc.
func (e *Engine) bind(ctx context.Context, sc *scope, projectID, actorID uuid.UUID) error {
	project, err := sc.tx.Projects().GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}
	subj, err := e.perms.Subject(ctx, sc.tx, project, actorID)
	if err != nil {
		return err
	}
	sc.project = project
	sc.subject = subj
	return nil
}

// loadTask reads the task under a row lock, binds its project and requires
// view rights.
func (e *Engine) loadTask(ctx context.Context, sc *scope, actorID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := sc.tx.Tasks().GetForUpdate(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := e.bind(ctx, sc, task.ProjectID, actorID); err != nil {
		return nil, err
	}
	if !sc.subject.CanView() {
		return nil, domain.NewError(domain.CodeForbidden, "not a member of this workspace")
	}
	return task, nil
}

func boardEvent(sc *scope, typ domain.BoardEventType, task *domain.Task, actorID uuid.UUID, auto bool) *domain.BoardEvent {
	return &domain.BoardEvent{
		Type:          typ,
		WorkspaceID:   sc.project.WorkspaceID,
		ProjectID:     task.ProjectID,
		TaskID:        task.ID,
		ActorID:       actorID,
		Status:        task.Status,
		AutoTriggered: auto,
		At:            time.Now().UTC(),
	}
}

// statusWriter performs one status change and its event write.
type statusWriter struct {
	now func() time.Time
}

// write moves task to status to, keeps completedAt in step with done and
// appends the status_changed event.
func (w statusWriter) write(ctx context.Context, sc *scope, task *domain.Task, to domain.TaskStatus, actorID uuid.UUID, action, reason string, auto bool) error {
	from := task.Status
	if err := domain.ValidateTransition(from, to); err != nil {
		return err
	}

	var completedAt *time.Time
	if to == domain.TaskStatusDone {
		now := w.now().UTC()
		completedAt = &now
	}

	if err := sc.tx.Tasks().UpdateStatus(ctx, task.ID, to, completedAt); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	task.Status = to
	task.CompletedAt = completedAt

	ev := domain.NewStatusChangedEvent(task.ID, actorID, from, to, action, auto)
	if reason != "" {
		ev.Payload[domain.PayloadReason] = reason
	}
	if err := sc.tx.Events().Append(ctx, ev); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	sc.fx.publish(boardEvent(sc, domain.BoardTaskStatusChanged, task, actorID, auto))
	sc.fx.transitions = append(sc.fx.transitions, transitionMark{action: action, auto: auto})

	if auto {
		log.Debug().
			Str("task_id", task.ID.String()).
			Str("from", string(from)).
			Str("to", string(to)).
			Str("action", action).
			Msg("workflow: auto transition")
	}
	return nil
}
