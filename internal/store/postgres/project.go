package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskflow/internal/domain"
)

type ProjectRepo struct {
	q querier
}

func NewProjectRepo(q querier) *ProjectRepo {
	return &ProjectRepo{q: q}
}

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO projects (id, workspace_id, name, leader_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.WorkspaceID, p.Name, p.LeaderID, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("projectRepo.Create: %w", err)
	}

	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var p domain.Project

	err := r.q.QueryRow(ctx,
		`SELECT id, workspace_id, name, leader_id, created_at
		 FROM projects WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.LeaderID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("projectRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("projectRepo.GetByID: %w", err)
	}

	return &p, nil
}

func (r *ProjectRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Project, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, workspace_id, name, leader_id, created_at
		 FROM projects WHERE workspace_id = $1
		 ORDER BY created_at`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("projectRepo.ListByWorkspace: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.LeaderID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("projectRepo.ListByWorkspace: scan: %w", err)
		}
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("projectRepo.ListByWorkspace: %w", err)
	}

	return projects, nil
}

// AddMember inserts or updates a project member record.
func (r *ProjectRepo) AddMember(ctx context.Context, m *domain.ProjectMember) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO project_members (project_id, user_id, is_leader, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (project_id, user_id) DO UPDATE SET is_leader = EXCLUDED.is_leader`,
		m.ProjectID, m.UserID, m.IsLeader, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("projectRepo.AddMember: %w", err)
	}

	return nil
}

func (r *ProjectRepo) IsLeaderMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var leader bool

	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM project_members
		     WHERE project_id = $1 AND user_id = $2 AND is_leader
		 )`,
		projectID, userID,
	).Scan(&leader)
	if err != nil {
		return false, fmt.Errorf("projectRepo.IsLeaderMember: %w", err)
	}

	return leader, nil
}
