package workflow

import (
	"context"

	"github.com/gosuda/taskflow/internal/domain"
)

// Store is the persistence boundary of the engine.
type Store interface {
	Tasks() domain.TaskRepository
	Events() domain.TaskEventRepository
	Projects() domain.ProjectRepository
	Memberships() domain.MembershipRepository
	Users() domain.UserRepository
	Notifications() domain.NotificationRepository

	// RunInTx runs fn against a transactional view of the store. fn's changes
	// commit when it returns nil and roll back otherwise. Calling RunInTx on
	// the transactional view opens a nested savepoint.
	RunInTx(ctx context.Context, fn func(tx Store) error) error
}

// Notifier delivers user notifications. Implementations must not block the
// caller on delivery and must swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, *domain.Notification) {}

type nopPublisher struct{}

func (nopPublisher) PublishBoardEvent(context.Context, *domain.BoardEvent) error { return nil }

// effects are side effects gathered inside a transaction and released only
// after it commits.
type effects struct {
	notifications []*domain.Notification
	board         []*domain.BoardEvent
	transitions   []transitionMark
}

type transitionMark struct {
	action string
	auto   bool
}

func (fx *effects) notify(n *domain.Notification) {
	fx.notifications = append(fx.notifications, n)
}

func (fx *effects) publish(e *domain.BoardEvent) {
	fx.board = append(fx.board, e)
}

func (fx *effects) merge(other *effects) {
	fx.notifications = append(fx.notifications, other.notifications...)
	fx.board = append(fx.board, other.board...)
	fx.transitions = append(fx.transitions, other.transitions...)
}
