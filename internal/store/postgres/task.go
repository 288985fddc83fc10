package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskflow/internal/domain"
)

const taskColumns = `id, project_id, parent_id, title, description, status, priority,
	assignee_id, creator_id, due_date, completed_at, created_at, updated_at`

type TaskRepo struct {
	q        querier
	projects *ProjectRepo
	users    *UserRepo
}

func NewTaskRepo(q querier, projects *ProjectRepo, users *UserRepo) *TaskRepo {
	return &TaskRepo{q: q, projects: projects, users: users}
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.ProjectID, t.ParentID, t.Title, t.Description, t.Status, t.Priority,
		t.AssigneeID, t.CreatorID, t.DueDate, t.CompletedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.Create: %w", err)
	}

	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return r.get(ctx, "taskRepo.GetByID", `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
}

func (r *TaskRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return r.get(ctx, "taskRepo.GetForUpdate", `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
}

func (r *TaskRepo) get(ctx context.Context, caller, query string, id uuid.UUID) (*domain.Task, error) {
	t, err := scanTask(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}

	return t, nil
}

func (r *TaskRepo) GetWithRelations(ctx context.Context, id uuid.UUID) (*domain.TaskWithRelations, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetWithRelations: %w", err)
	}
	out := &domain.TaskWithRelations{Task: t}

	out.Project, err = r.projects.GetByID(ctx, t.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetWithRelations: project: %w", err)
	}
	if t.ParentID != nil {
		out.Parent, err = r.GetByID(ctx, *t.ParentID)
		if err != nil {
			return nil, fmt.Errorf("taskRepo.GetWithRelations: parent: %w", err)
		}
	}
	out.Children, err = r.ListChildren(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetWithRelations: %w", err)
	}
	if t.AssigneeID != nil {
		out.Assignee, err = r.optionalUser(ctx, *t.AssigneeID)
		if err != nil {
			return nil, fmt.Errorf("taskRepo.GetWithRelations: assignee: %w", err)
		}
	}
	out.Creator, err = r.optionalUser(ctx, t.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetWithRelations: creator: %w", err)
	}

	return out, nil
}

// optionalUser tolerates users that have no profile row.
func (r *TaskRepo) optionalUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := r.users.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil //nolint:nilnil // missing profile is not an error
	}
	return u, err
}

func (r *TaskRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks WHERE project_id = $1
		 ORDER BY created_at, id
		 LIMIT 5000`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListByProject: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListByProject")
}

func (r *TaskRepo) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*domain.Task, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks WHERE parent_id = $1
		 ORDER BY created_at, id`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListChildren: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListChildren")
}

func (r *TaskRepo) ListDescendants(ctx context.Context, id uuid.UUID) ([]*domain.Task, error) {
	rows, err := r.q.Query(ctx,
		`WITH RECURSIVE tree AS (
		     SELECT `+taskColumns+`, 1 AS level FROM tasks WHERE parent_id = $1
		     UNION ALL
		     SELECT c.id, c.project_id, c.parent_id, c.title, c.description, c.status, c.priority,
		            c.assignee_id, c.creator_id, c.due_date, c.completed_at, c.created_at, c.updated_at,
		            tree.level + 1
		     FROM tasks c JOIN tree ON c.parent_id = tree.id
		     WHERE tree.level < $2
		 )
		 SELECT `+taskColumns+` FROM tree ORDER BY level, created_at, id`,
		id, domain.MaxDepth,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListDescendants: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListDescendants")
}

func (r *TaskRepo) CountByStatus(ctx context.Context, projectID uuid.UUID) (map[domain.TaskStatus]int, error) {
	rows, err := r.q.Query(ctx,
		`SELECT status, count(*) FROM tasks WHERE project_id = $1 GROUP BY status`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.CountByStatus: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int, 4)
	for rows.Next() {
		var status domain.TaskStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("taskRepo.CountByStatus: scan: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskRepo.CountByStatus: rows: %w", err)
	}

	return counts, nil
}

// Update writes every field except status and completion time.
func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, priority = $3, assignee_id = $4,
		        due_date = $5, updated_at = $6
		 WHERE id = $7`,
		t.Title, t.Description, t.Priority, t.AssigneeID, t.DueDate, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *TaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus, completedAt *time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE tasks SET status = $1, completed_at = $2, updated_at = now() WHERE id = $3`,
		status, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.UpdateStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.UpdateStatus: %w", domain.ErrNotFound)
	}

	return nil
}

// Delete removes a task; the schema cascades to its subtree and events.
func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("taskRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.ParentID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.AssigneeID, &t.CreatorID, &t.DueDate, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTasks(rows pgx.Rows, caller string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return tasks, nil
}
