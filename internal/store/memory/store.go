// Package memory is an in-process implementation of the workflow store. It
// backs the engine tests and single-node development runs.
//
// Transactions are serialized: one transaction at a time works on a private
// copy of the data, which replaces the shared copy on commit. Writes made
// outside a transaction wait for any running transaction to finish.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/workflow"
)

type memberKey struct {
	scope uuid.UUID
	user  uuid.UUID
}

type data struct {
	tasks          map[uuid.UUID]*domain.Task
	events         []*domain.TaskEvent
	projects       map[uuid.UUID]*domain.Project
	projectMembers map[memberKey]*domain.ProjectMember
	memberships    map[memberKey]*domain.Membership
	users          map[uuid.UUID]*domain.User
	links          []*domain.UserMessengerLink
	notifications  []*domain.Notification
}

func newData() *data {
	return &data{
		tasks:          make(map[uuid.UUID]*domain.Task),
		projects:       make(map[uuid.UUID]*domain.Project),
		projectMembers: make(map[memberKey]*domain.ProjectMember),
		memberships:    make(map[memberKey]*domain.Membership),
		users:          make(map[uuid.UUID]*domain.User),
	}
}

// clone copies every record so a transaction can mutate freely.
func (d *data) clone() *data {
	c := &data{
		tasks:          make(map[uuid.UUID]*domain.Task, len(d.tasks)),
		events:         append([]*domain.TaskEvent(nil), d.events...),
		projects:       make(map[uuid.UUID]*domain.Project, len(d.projects)),
		projectMembers: make(map[memberKey]*domain.ProjectMember, len(d.projectMembers)),
		memberships:    make(map[memberKey]*domain.Membership, len(d.memberships)),
		users:          make(map[uuid.UUID]*domain.User, len(d.users)),
		links:          append([]*domain.UserMessengerLink(nil), d.links...),
		notifications:  append([]*domain.Notification(nil), d.notifications...),
	}
	for k, v := range d.tasks {
		t := *v
		c.tasks[k] = &t
	}
	for k, v := range d.projects {
		p := *v
		c.projects[k] = &p
	}
	for k, v := range d.projectMembers {
		m := *v
		c.projectMembers[k] = &m
	}
	for k, v := range d.memberships {
		m := *v
		c.memberships[k] = &m
	}
	for k, v := range d.users {
		u := *v
		c.users[k] = &u
	}
	return c
}

// state is the data a repository reads and writes: the shared copy for a
// Store, the private copy for a transaction.
type state interface {
	read(fn func(d *data))
	write(fn func(d *data) error) error
}

// Store is the shared, committed state.
type Store struct {
	txMu sync.Mutex   // held for the whole of a transaction or a direct write
	mu   sync.RWMutex // guards d
	d    *data
}

var _ workflow.Store = (*Store)(nil)

func New() *Store {
	return &Store{d: newData()}
}

func (s *Store) read(fn func(d *data)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.d)
}

func (s *Store) write(fn func(d *data) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.d)
}

func (s *Store) Tasks() domain.TaskRepository                 { return &taskRepo{st: s} }
func (s *Store) Events() domain.TaskEventRepository           { return &eventRepo{st: s} }
func (s *Store) Projects() domain.ProjectRepository           { return &projectRepo{st: s} }
func (s *Store) Memberships() domain.MembershipRepository     { return &membershipRepo{st: s} }
func (s *Store) Users() domain.UserRepository                 { return &userRepo{st: s} }
func (s *Store) Notifications() domain.NotificationRepository { return &notificationRepo{st: s} }

// RunInTx runs fn on a private copy of the data and publishes the copy when
// fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(tx workflow.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.d.clone()
	s.mu.RUnlock()

	tx := &txStore{d: work}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.d = tx.d
	s.mu.Unlock()
	return nil
}

// txStore is the view handed to a transaction body. It is only used by the
// goroutine that owns the transaction.
type txStore struct {
	d *data
}

func (t *txStore) read(fn func(d *data)) { fn(t.d) }

func (t *txStore) write(fn func(d *data) error) error { return fn(t.d) }

func (t *txStore) Tasks() domain.TaskRepository                 { return &taskRepo{st: t} }
func (t *txStore) Events() domain.TaskEventRepository           { return &eventRepo{st: t} }
func (t *txStore) Projects() domain.ProjectRepository           { return &projectRepo{st: t} }
func (t *txStore) Memberships() domain.MembershipRepository     { return &membershipRepo{st: t} }
func (t *txStore) Users() domain.UserRepository                 { return &userRepo{st: t} }
func (t *txStore) Notifications() domain.NotificationRepository { return &notificationRepo{st: t} }

// RunInTx on a transaction behaves like a savepoint: fn works on a copy that
// replaces the transaction's data only when fn succeeds.
func (t *txStore) RunInTx(ctx context.Context, fn func(tx workflow.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	nested := &txStore{d: t.d.clone()}
	if err := fn(nested); err != nil {
		return err
	}
	t.d = nested.d
	return nil
}
