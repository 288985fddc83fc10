package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCreated       EventType = "created"
	EventUpdated       EventType = "updated"
	EventStatusChanged EventType = "status_changed"
	EventCommented     EventType = "commented"
)

// Payload keys shared by status_changed events.
const (
	PayloadOldValue      = "oldValue"
	PayloadNewValue      = "newValue"
	PayloadAutoTriggered = "autoTriggered"
	PayloadAction        = "action"
	PayloadReason        = "reason"
)

// TaskEvent is an append-only history record. Events are never updated or
// deleted once written.
type TaskEvent struct {
	ID        uuid.UUID
	TaskID    uuid.UUID
	ActorID   uuid.UUID
	Type      EventType
	Payload   map[string]any
	CreatedAt time.Time
}

// NewStatusChangedEvent builds the event written for every status transition.
func NewStatusChangedEvent(taskID, actorID uuid.UUID, from, to TaskStatus, action string, auto bool) *TaskEvent {
	return &TaskEvent{
		ID:      uuid.New(),
		TaskID:  taskID,
		ActorID: actorID,
		Type:    EventStatusChanged,
		Payload: map[string]any{
			PayloadOldValue:      string(from),
			PayloadNewValue:      string(to),
			PayloadAutoTriggered: auto,
			PayloadAction:        action,
		},
		CreatedAt: time.Now(),
	}
}

// AutoTriggered reports whether the event was written by a cascade.
func (e *TaskEvent) AutoTriggered() bool {
	v, _ := e.Payload[PayloadAutoTriggered].(bool)
	return v
}

// FieldChange is one entry of an updated event's diff.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

type TaskEventRepository interface {
	Append(ctx context.Context, e *TaskEvent) error
	// ListByTask returns events oldest first.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*TaskEvent, error)
}
