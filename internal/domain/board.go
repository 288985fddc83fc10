package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type BoardEventType string

const (
	BoardTaskCreated       BoardEventType = "task_created"
	BoardTaskUpdated       BoardEventType = "task_updated"
	BoardTaskStatusChanged BoardEventType = "task_status_changed"
	BoardTaskDeleted       BoardEventType = "task_deleted"
)

// BoardEvent is a realtime notice about a task on a project board. It is
// published after the change has been committed.
type BoardEvent struct {
	Type          BoardEventType `json:"type"`
	WorkspaceID   uuid.UUID      `json:"workspace_id"`
	ProjectID     uuid.UUID      `json:"project_id"`
	TaskID        uuid.UUID      `json:"task_id"`
	ActorID       uuid.UUID      `json:"actor_id"`
	Status        TaskStatus     `json:"status,omitempty"`
	AutoTriggered bool           `json:"auto_triggered,omitempty"`
	At            time.Time      `json:"at"`
}

type BoardPublisher interface {
	PublishBoardEvent(ctx context.Context, e *BoardEvent) error
}
