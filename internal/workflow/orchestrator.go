package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gosuda/taskflow/internal/domain"
)

// Outcome names what a transition request actually did.
type Outcome string

const (
	OutcomeNoop               Outcome = "noop"
	OutcomeStarted            Outcome = "started"
	OutcomeRevertedToTodo     Outcome = "reverted_to_todo"
	OutcomeSubmittedForReview Outcome = "submitted_for_review"
	OutcomeCompleted          Outcome = "completed"
	OutcomeReturnedForRework  Outcome = "returned_for_rework"
	OutcomeApproved           Outcome = "approved"
	OutcomeReopened           Outcome = "reopened"
)

// Resolution is the result of a transition request.
type Resolution struct {
	Outcome       Outcome
	ActualStatus  domain.TaskStatus
	Message       string
	StatusChanged bool
	Task          *domain.Task
}

type notifyKind int

const (
	notifyNone notifyKind = iota
	notifyLeaderReview
	notifyAssigneeApproved
	notifyAssigneeReturned
)

// Operation is one canonical named status change.
type Operation struct {
	Action  string
	From    domain.TaskStatus
	To      domain.TaskStatus
	Outcome Outcome
	Message string
	// ReviewGate restricts the operation to callers with review rights.
	ReviewGate bool

	cascade cascadeKind
	notify  notifyKind
}

//nolint:gochecknoglobals // static operation table
var (
	OpStart = Operation{
		Action: "start", From: domain.TaskStatusTodo, To: domain.TaskStatusInProgress,
		Outcome: OutcomeStarted, Message: "Task started",
		cascade: cascadeStart,
	}
	OpRevertToTodo = Operation{
		Action: "revert_to_todo", From: domain.TaskStatusInProgress, To: domain.TaskStatusTodo,
		Outcome: OutcomeRevertedToTodo, Message: "Task moved back to todo",
	}
	OpSubmitForReview = Operation{
		Action: "submit_review", From: domain.TaskStatusInProgress, To: domain.TaskStatusReview,
		Outcome: OutcomeSubmittedForReview, Message: "Task submitted for review",
		notify: notifyLeaderReview,
	}
	OpCompleteDirect = Operation{
		Action: "complete", From: domain.TaskStatusInProgress, To: domain.TaskStatusDone,
		Outcome: OutcomeCompleted, Message: "Task completed",
		cascade: cascadeCompletion,
	}
	OpReject = Operation{
		Action: "reject", From: domain.TaskStatusReview, To: domain.TaskStatusInProgress,
		Outcome: OutcomeReturnedForRework, Message: "Task returned for rework",
		ReviewGate: true,
		notify:     notifyAssigneeReturned,
	}
	OpApprove = Operation{
		Action: "approve", From: domain.TaskStatusReview, To: domain.TaskStatusDone,
		Outcome: OutcomeApproved, Message: "Task approved",
		ReviewGate: true,
		cascade:    cascadeCompletion,
		notify:     notifyAssigneeApproved,
	}
	OpReopen = Operation{
		Action: "reopen", From: domain.TaskStatusDone, To: domain.TaskStatusInProgress,
		Outcome: OutcomeReopened, Message: "Task reopened",
		cascade: cascadeRevert,
	}
)

// ResolveOperation maps a requested status change onto the operation that
// carries it out. Same-state requests are handled by the caller.
func ResolveOperation(from, to domain.TaskStatus) (Operation, error) {
	switch from {
	case domain.TaskStatusTodo:
		switch to {
		case domain.TaskStatusInProgress:
			return OpStart, nil
		case domain.TaskStatusReview, domain.TaskStatusDone:
			return Operation{}, domain.NewError(domain.CodeInvalidTransition, "task must be started before it can move to %s", to)
		}
	case domain.TaskStatusInProgress:
		switch to {
		case domain.TaskStatusTodo:
			return OpRevertToTodo, nil
		case domain.TaskStatusReview:
			return OpSubmitForReview, nil
		case domain.TaskStatusDone:
			return OpCompleteDirect, nil
		}
	case domain.TaskStatusReview:
		switch to {
		case domain.TaskStatusInProgress:
			return OpReject, nil
		case domain.TaskStatusDone:
			return OpApprove, nil
		}
	case domain.TaskStatusDone:
		switch to {
		case domain.TaskStatusInProgress:
			return OpReopen, nil
		case domain.TaskStatusTodo, domain.TaskStatusReview:
			return Operation{}, domain.NewError(domain.CodeInvalidTransition, "completed tasks can only be reopened to in_progress")
		}
	}
	return Operation{}, domain.NewError(domain.CodeInvalidTransition, "cannot move task from %s to %s", from, to)
}

// checkReviewDepth rejects review for anything below the root level.
func (e *Engine) checkReviewDepth(ctx context.Context, sc *scope, task *domain.Task) error {
	depth, err := depthOf(ctx, sc.tx.Tasks(), task)
	if err != nil {
		return err
	}
	if depth > 1 {
		return domain.NewError(domain.CodeSubtaskNoReview, "only top-level tasks go through review")
	}
	return nil
}

// apply runs op on a loaded task: rule checks, the status write, the
// cascade and the follow-up notification.
func (e *Engine) apply(ctx context.Context, sc *scope, task *domain.Task, op Operation, actorID uuid.UUID, reason string) (*Resolution, error) {
	if op.To == domain.TaskStatusReview {
		if err := e.checkReviewDepth(ctx, sc, task); err != nil {
			return nil, err
		}
	}
	if !sc.subject.CanChangeStatus(task) {
		return nil, domain.NewError(domain.CodeForbidden, "no permission to change the status of this task")
	}
	if op.ReviewGate && !sc.subject.CanReview() {
		return nil, domain.NewError(domain.CodeForbidden, "only the project leader or a manager can %s a reviewed task", op.Action)
	}
	if task.Status != op.From {
		return nil, domain.NewError(domain.CodeInvalidTransition, "cannot %s a task in %s", op.Action, task.Status)
	}

	if err := e.writer.write(ctx, sc, task, op.To, actorID, op.Action, reason, false); err != nil {
		return nil, err
	}

	e.runCascade(ctx, sc, op.cascade, task, actorID)

	var n *domain.Notification
	switch op.notify {
	case notifyLeaderReview:
		n = reviewRequestedNotification(sc.project, task, actorID)
	case notifyAssigneeApproved:
		n = approvedNotification(task, actorID)
	case notifyAssigneeReturned:
		n = returnedNotification(task, actorID, reason)
	case notifyNone:
	}
	if n != nil {
		sc.fx.notify(n)
	}

	return &Resolution{
		Outcome:       op.Outcome,
		ActualStatus:  task.Status,
		Message:       op.Message,
		StatusChanged: true,
		Task:          task,
	}, nil
}

// ResolveSmartTransition turns a requested target status into the operation
// that is appropriate from the task's current status and runs it.
func (e *Engine) ResolveSmartTransition(ctx context.Context, actorID, taskID uuid.UUID, requested string) (res *Resolution, err error) {
	ctx, span := e.metrics.start(ctx, "ResolveSmartTransition",
		attribute.String("task_id", taskID.String()),
		attribute.String("requested", requested),
	)
	defer func() { end(span, err) }()

	to, err := domain.ParseTaskStatus(requested)
	if err != nil {
		return nil, err
	}

	err = e.inTx(ctx, func(sc *scope) error {
		// 1. Load the task and require view rights.
		task, err := e.loadTask(ctx, sc, actorID, taskID)
		if err != nil {
			return err
		}

		// 2. Review is reserved for root tasks whatever the caller's role.
		if to == domain.TaskStatusReview {
			if err := e.checkReviewDepth(ctx, sc, task); err != nil {
				return err
			}
		}

		// 3. Same state is a no-op: no event, no cascade.
		if task.Status == to {
			res = &Resolution{
				Outcome:      OutcomeNoop,
				ActualStatus: task.Status,
				Message:      "Task is already " + string(task.Status),
				Task:         task,
			}
			return nil
		}

		// 4. Pick and run the operation.
		op, err := ResolveOperation(task.Status, to)
		if err != nil {
			return err
		}
		res, err = e.apply(ctx, sc, task, op, actorID, "")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.ResolveSmartTransition: %w", err)
	}
	return res, nil
}

// runOperation loads the task and applies one named operation in its own
// transaction.
func (e *Engine) runOperation(ctx context.Context, op Operation, actorID, taskID uuid.UUID, reason string) (res *Resolution, err error) {
	ctx, span := e.metrics.start(ctx, op.Action,
		attribute.String("task_id", taskID.String()),
	)
	defer func() { end(span, err) }()

	err = e.inTx(ctx, func(sc *scope) error {
		task, err := e.loadTask(ctx, sc, actorID, taskID)
		if err != nil {
			return err
		}
		res, err = e.apply(ctx, sc, task, op, actorID, reason)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.%s: %w", op.Action, err)
	}
	return res, nil
}

func (e *Engine) Start(ctx context.Context, actorID, taskID uuid.UUID) (*Resolution, error) {
	return e.runOperation(ctx, OpStart, actorID, taskID, "")
}

func (e *Engine) RevertToTodo(ctx context.Context, actorID, taskID uuid.UUID) (*Resolution, error) {
	return e.runOperation(ctx, OpRevertToTodo, actorID, taskID, "")
}

// SubmitForReview moves an in-progress root task to review and notifies the
// project leader.
func (e *Engine) SubmitForReview(ctx context.Context, actorID, taskID uuid.UUID) (*Resolution, error) {
	return e.runOperation(ctx, OpSubmitForReview, actorID, taskID, "")
}

// CompleteDirect finishes an in-progress task without review.
func (e *Engine) CompleteDirect(ctx context.Context, actorID, taskID uuid.UUID) (*Resolution, error) {
	return e.runOperation(ctx, OpCompleteDirect, actorID, taskID, "")
}

// Approve completes a task in review. Requires review rights.
func (e *Engine) Approve(ctx context.Context, actorID, taskID uuid.UUID) (*Resolution, error) {
	return e.runOperation(ctx, OpApprove, actorID, taskID, "")
}

// Reject returns a task in review to in_progress. reason is optional and is
// kept on the event and in the assignee's notification.
func (e *Engine) Reject(ctx context.Context, actorID, taskID uuid.UUID, reason string) (*Resolution, error) {
	return e.runOperation(ctx, OpReject, actorID, taskID, reason)
}

// Reopen moves a done task back to in_progress and reverts ancestors
// waiting in review.
func (e *Engine) Reopen(ctx context.Context, actorID, taskID uuid.UUID) (*Resolution, error) {
	return e.runOperation(ctx, OpReopen, actorID, taskID, "")
}
