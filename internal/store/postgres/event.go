package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskflow/internal/domain"
)

type EventRepo struct {
	q querier
}

func NewEventRepo(q querier) *EventRepo {
	return &EventRepo{q: q}
}

func (r *EventRepo) Append(ctx context.Context, e *domain.TaskEvent) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("eventRepo.Append: marshal payload: %w", err)
	}

	_, err = r.q.Exec(ctx,
		`INSERT INTO task_events (id, task_id, actor_id, type, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.TaskID, e.ActorID, e.Type, payload, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("eventRepo.Append: %w", err)
	}

	return nil
}

func (r *EventRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskEvent, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, task_id, actor_id, type, payload, created_at
		 FROM task_events WHERE task_id = $1
		 ORDER BY created_at, seq`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("eventRepo.ListByTask: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows, "eventRepo.ListByTask")
}

func scanEvents(rows pgx.Rows, caller string) ([]*domain.TaskEvent, error) {
	var events []*domain.TaskEvent
	for rows.Next() {
		var e domain.TaskEvent
		var payload []byte

		if err := rows.Scan(&e.ID, &e.TaskID, &e.ActorID, &e.Type, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("%s: unmarshal payload: %w", caller, err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return events, nil
}
