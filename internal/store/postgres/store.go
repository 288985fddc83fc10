package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/workflow"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// runs unchanged inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	pool          *pgxpool.Pool // nil on transactional stores
	q             querier
	tasks         *TaskRepo
	events        *EventRepo
	projects      *ProjectRepo
	memberships   *MembershipRepo
	users         *UserRepo
	notifications *NotificationRepo
}

var _ workflow.Store = (*Store)(nil)

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	s := newStore(pool)
	s.pool = pool
	return s, nil
}

func newStore(q querier) *Store {
	users := NewUserRepo(q)
	projects := NewProjectRepo(q)
	return &Store{
		q:             q,
		tasks:         NewTaskRepo(q, projects, users),
		events:        NewEventRepo(q),
		projects:      projects,
		memberships:   NewMembershipRepo(q),
		users:         users,
		notifications: NewNotificationRepo(q),
	}
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity; used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Tasks() domain.TaskRepository                 { return s.tasks }
func (s *Store) Events() domain.TaskEventRepository           { return s.events }
func (s *Store) Projects() domain.ProjectRepository           { return s.projects }
func (s *Store) Memberships() domain.MembershipRepository     { return s.memberships }
func (s *Store) Users() domain.UserRepository                 { return s.users }
func (s *Store) Notifications() domain.NotificationRepository { return s.notifications }
