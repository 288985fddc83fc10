package domain

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatuses lists every status in canonical board order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone}
}

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	default:
		return false
	}
}

// ParseTaskStatus validates a raw status value.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.IsValid() {
		return "", NewError(CodeInvalidStatus, "unknown task status %q", raw)
	}
	return s, nil
}

// transitions is the legality floor for status changes. Every path between
// todo and done passes through in_progress.
var transitions = map[TaskStatus][]TaskStatus{ //nolint:gochecknoglobals // static table
	TaskStatusTodo:       {TaskStatusInProgress},
	TaskStatusInProgress: {TaskStatusTodo, TaskStatusReview, TaskStatusDone},
	TaskStatusReview:     {TaskStatusInProgress, TaskStatusDone},
	TaskStatusDone:       {TaskStatusInProgress},
}

// CanTransition reports whether from -> to is legal. A same-state transition
// is a legal no-op for every known status.
func CanTransition(from, to TaskStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AvailableTransitions returns the statuses reachable from from in one step,
// in canonical order. The same-state no-op is not included.
func AvailableTransitions(from TaskStatus) []TaskStatus {
	next := transitions[from]
	out := make([]TaskStatus, 0, len(next))
	for _, s := range TaskStatuses() {
		for _, n := range next {
			if n == s {
				out = append(out, s)
			}
		}
	}
	return out
}

// ValidateTransition returns ErrInvalidTransition when from -> to is not legal.
func ValidateTransition(from, to TaskStatus) error {
	if !CanTransition(from, to) {
		return NewError(CodeInvalidTransition, "cannot move task from %s to %s", from, to)
	}
	return nil
}
