package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
)

type NotificationRepo struct {
	q querier
}

func NewNotificationRepo(q querier) *NotificationRepo {
	return &NotificationRepo{q: q}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, task_id, project_id, read_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.TaskID, n.ProjectID, n.ReadAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("notificationRepo.Create: %w", err)
	}

	return nil
}

// ListByUser returns the newest notifications first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	rows, err := r.q.Query(ctx,
		`SELECT id, user_id, type, title, message, task_id, project_id, read_at, created_at
		 FROM notifications WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("notificationRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.TaskID, &n.ProjectID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("notificationRepo.ListByUser: scan: %w", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notificationRepo.ListByUser: rows: %w", err)
	}

	return out, nil
}
