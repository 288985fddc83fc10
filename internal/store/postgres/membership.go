package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskflow/internal/domain"
)

type MembershipRepo struct {
	q querier
}

func NewMembershipRepo(q querier) *MembershipRepo {
	return &MembershipRepo{q: q}
}

func (r *MembershipRepo) Create(ctx context.Context, m *domain.Membership) error {
	if !m.Role.IsValid() {
		return fmt.Errorf("membershipRepo.Create: invalid role %q", m.Role)
	}

	_, err := r.q.Exec(ctx,
		`INSERT INTO workspace_members (workspace_id, user_id, role, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (workspace_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.WorkspaceID, m.UserID, m.Role, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("membershipRepo.Create: %w", err)
	}

	return nil
}

func (r *MembershipRepo) GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Membership, error) {
	var m domain.Membership

	err := r.q.QueryRow(ctx,
		`SELECT workspace_id, user_id, role, created_at
		 FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID,
	).Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("membershipRepo.GetMembership: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("membershipRepo.GetMembership: %w", err)
	}

	return &m, nil
}

func (r *MembershipRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Membership, error) {
	rows, err := r.q.Query(ctx,
		`SELECT workspace_id, user_id, role, created_at
		 FROM workspace_members WHERE workspace_id = $1 ORDER BY created_at, user_id
		 LIMIT 1000`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("membershipRepo.ListByWorkspace: %w", err)
	}
	defer rows.Close()

	var members []*domain.Membership
	for rows.Next() {
		var m domain.Membership

		err = rows.Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("membershipRepo.ListByWorkspace: scan: %w", err)
		}

		members = append(members, &m)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("membershipRepo.ListByWorkspace: rows: %w", err)
	}

	return members, nil
}
