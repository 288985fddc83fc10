package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationReviewRequested  NotificationType = "review_requested"
	NotificationApproved         NotificationType = "task_approved"
	NotificationReturned         NotificationType = "task_returned"
	NotificationChildrenComplete NotificationType = "children_completed"
	NotificationAssigned         NotificationType = "task_assigned"
)

// Notification is one inbox entry for a user.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	TaskID    uuid.UUID        `json:"task_id"`
	ProjectID uuid.UUID        `json:"project_id"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error)
}
