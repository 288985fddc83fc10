package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
)

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	return &c
}

// sortTasks orders by creation time, then id, matching the SQL store.
func sortTasks(tasks []*domain.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID.String() < tasks[j].ID.String()
	})
}

type taskRepo struct{ st state }

func (r *taskRepo) Create(_ context.Context, t *domain.Task) error {
	return r.st.write(func(d *data) error {
		if _, ok := d.tasks[t.ID]; ok {
			return fmt.Errorf("taskRepo.Create: duplicate id %s", t.ID)
		}
		if _, ok := d.projects[t.ProjectID]; !ok {
			return fmt.Errorf("taskRepo.Create: project: %w", domain.ErrNotFound)
		}
		if t.ParentID != nil {
			if _, ok := d.tasks[*t.ParentID]; !ok {
				return fmt.Errorf("taskRepo.Create: parent: %w", domain.ErrNotFound)
			}
		}
		d.tasks[t.ID] = copyTask(t)
		return nil
	})
}

func (r *taskRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	var out *domain.Task
	r.st.read(func(d *data) {
		if t, ok := d.tasks[id]; ok {
			out = copyTask(t)
		}
	})
	if out == nil {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", domain.ErrNotFound)
	}
	return out, nil
}

// GetForUpdate needs no row lock here: transactions are already serialized.
func (r *taskRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return r.GetByID(ctx, id)
}

func (r *taskRepo) GetWithRelations(_ context.Context, id uuid.UUID) (*domain.TaskWithRelations, error) {
	var out *domain.TaskWithRelations
	r.st.read(func(d *data) {
		t, ok := d.tasks[id]
		if !ok {
			return
		}
		out = &domain.TaskWithRelations{Task: copyTask(t)}
		if p, ok := d.projects[t.ProjectID]; ok {
			pc := *p
			out.Project = &pc
		}
		if t.ParentID != nil {
			if p, ok := d.tasks[*t.ParentID]; ok {
				out.Parent = copyTask(p)
			}
		}
		for _, c := range d.tasks {
			if c.ParentID != nil && *c.ParentID == t.ID {
				out.Children = append(out.Children, copyTask(c))
			}
		}
		sortTasks(out.Children)
		if t.AssigneeID != nil {
			if u, ok := d.users[*t.AssigneeID]; ok {
				uc := *u
				out.Assignee = &uc
			}
		}
		if u, ok := d.users[t.CreatorID]; ok {
			uc := *u
			out.Creator = &uc
		}
	})
	if out == nil {
		return nil, fmt.Errorf("taskRepo.GetWithRelations: %w", domain.ErrNotFound)
	}
	if out.Project == nil {
		return nil, fmt.Errorf("taskRepo.GetWithRelations: project: %w", domain.ErrNotFound)
	}
	return out, nil
}

func (r *taskRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	var out []*domain.Task
	r.st.read(func(d *data) {
		for _, t := range d.tasks {
			if t.ProjectID == projectID {
				out = append(out, copyTask(t))
			}
		}
	})
	sortTasks(out)
	return out, nil
}

func (r *taskRepo) ListChildren(_ context.Context, parentID uuid.UUID) ([]*domain.Task, error) {
	var out []*domain.Task
	r.st.read(func(d *data) {
		for _, t := range d.tasks {
			if t.ParentID != nil && *t.ParentID == parentID {
				out = append(out, copyTask(t))
			}
		}
	})
	sortTasks(out)
	return out, nil
}

// ListDescendants walks level by level, so parents precede their children.
func (r *taskRepo) ListDescendants(_ context.Context, id uuid.UUID) ([]*domain.Task, error) {
	var out []*domain.Task
	r.st.read(func(d *data) {
		frontier := []uuid.UUID{id}
		for level := 0; level < domain.MaxDepth && len(frontier) > 0; level++ {
			var next []uuid.UUID
			var batch []*domain.Task
			for _, pid := range frontier {
				for _, t := range d.tasks {
					if t.ParentID != nil && *t.ParentID == pid {
						batch = append(batch, copyTask(t))
					}
				}
			}
			sortTasks(batch)
			for _, t := range batch {
				next = append(next, t.ID)
			}
			out = append(out, batch...)
			frontier = next
		}
	})
	return out, nil
}

func (r *taskRepo) CountByStatus(_ context.Context, projectID uuid.UUID) (map[domain.TaskStatus]int, error) {
	counts := make(map[domain.TaskStatus]int)
	r.st.read(func(d *data) {
		for _, t := range d.tasks {
			if t.ProjectID == projectID {
				counts[t.Status]++
			}
		}
	})
	return counts, nil
}

func (r *taskRepo) Update(_ context.Context, t *domain.Task) error {
	return r.st.write(func(d *data) error {
		cur, ok := d.tasks[t.ID]
		if !ok {
			return fmt.Errorf("taskRepo.Update: %w", domain.ErrNotFound)
		}
		cur.Title = t.Title
		cur.Description = t.Description
		cur.Priority = t.Priority
		cur.AssigneeID = t.AssigneeID
		cur.DueDate = t.DueDate
		cur.UpdatedAt = t.UpdatedAt
		return nil
	})
}

func (r *taskRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.TaskStatus, completedAt *time.Time) error {
	return r.st.write(func(d *data) error {
		cur, ok := d.tasks[id]
		if !ok {
			return fmt.Errorf("taskRepo.UpdateStatus: %w", domain.ErrNotFound)
		}
		cur.Status = status
		cur.CompletedAt = completedAt
		cur.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// Delete removes the task and, like the SQL foreign keys, everything that
// hangs off it.
func (r *taskRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.st.write(func(d *data) error {
		if _, ok := d.tasks[id]; !ok {
			return fmt.Errorf("taskRepo.Delete: %w", domain.ErrNotFound)
		}
		doomed := map[uuid.UUID]bool{id: true}
		for level := 0; level < domain.MaxDepth; level++ {
			for _, t := range d.tasks {
				if t.ParentID != nil && doomed[*t.ParentID] {
					doomed[t.ID] = true
				}
			}
		}
		for tid := range doomed {
			delete(d.tasks, tid)
		}
		kept := d.events[:0:0]
		for _, e := range d.events {
			if !doomed[e.TaskID] {
				kept = append(kept, e)
			}
		}
		d.events = kept
		return nil
	})
}

type eventRepo struct{ st state }

func (r *eventRepo) Append(_ context.Context, e *domain.TaskEvent) error {
	return r.st.write(func(d *data) error {
		if _, ok := d.tasks[e.TaskID]; !ok {
			return fmt.Errorf("taskEventRepo.Append: task: %w", domain.ErrNotFound)
		}
		c := *e
		c.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			c.Payload[k] = v
		}
		d.events = append(d.events, &c)
		return nil
	})
}

func (r *eventRepo) ListByTask(_ context.Context, taskID uuid.UUID) ([]*domain.TaskEvent, error) {
	var out []*domain.TaskEvent
	r.st.read(func(d *data) {
		for _, e := range d.events {
			if e.TaskID == taskID {
				c := *e
				out = append(out, &c)
			}
		}
	})
	return out, nil
}

type projectRepo struct{ st state }

func (r *projectRepo) Create(_ context.Context, p *domain.Project) error {
	return r.st.write(func(d *data) error {
		c := *p
		d.projects[p.ID] = &c
		return nil
	})
}

func (r *projectRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	var out *domain.Project
	r.st.read(func(d *data) {
		if p, ok := d.projects[id]; ok {
			c := *p
			out = &c
		}
	})
	if out == nil {
		return nil, fmt.Errorf("projectRepo.GetByID: %w", domain.ErrNotFound)
	}
	return out, nil
}

func (r *projectRepo) ListByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]*domain.Project, error) {
	var out []*domain.Project
	r.st.read(func(d *data) {
		for _, p := range d.projects {
			if p.WorkspaceID == workspaceID {
				c := *p
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *projectRepo) AddMember(_ context.Context, m *domain.ProjectMember) error {
	return r.st.write(func(d *data) error {
		if _, ok := d.projects[m.ProjectID]; !ok {
			return fmt.Errorf("projectRepo.AddMember: %w", domain.ErrNotFound)
		}
		c := *m
		d.projectMembers[memberKey{m.ProjectID, m.UserID}] = &c
		return nil
	})
}

func (r *projectRepo) IsLeaderMember(_ context.Context, projectID, userID uuid.UUID) (bool, error) {
	var leader bool
	r.st.read(func(d *data) {
		if m, ok := d.projectMembers[memberKey{projectID, userID}]; ok {
			leader = m.IsLeader
		}
	})
	return leader, nil
}

type membershipRepo struct{ st state }

func (r *membershipRepo) Create(_ context.Context, m *domain.Membership) error {
	return r.st.write(func(d *data) error {
		if !m.Role.IsValid() {
			return fmt.Errorf("membershipRepo.Create: invalid role %q", m.Role)
		}
		c := *m
		d.memberships[memberKey{m.WorkspaceID, m.UserID}] = &c
		return nil
	})
}

func (r *membershipRepo) GetMembership(_ context.Context, workspaceID, userID uuid.UUID) (*domain.Membership, error) {
	var out *domain.Membership
	r.st.read(func(d *data) {
		if m, ok := d.memberships[memberKey{workspaceID, userID}]; ok {
			c := *m
			out = &c
		}
	})
	if out == nil {
		return nil, fmt.Errorf("membershipRepo.GetMembership: %w", domain.ErrNotFound)
	}
	return out, nil
}

func (r *membershipRepo) ListByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]*domain.Membership, error) {
	var out []*domain.Membership
	r.st.read(func(d *data) {
		for k, m := range d.memberships {
			if k.scope == workspaceID {
				c := *m
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Role.Rank() > out[j].Role.Rank() })
	return out, nil
}

type userRepo struct{ st state }

func (r *userRepo) Create(_ context.Context, u *domain.User) error {
	return r.st.write(func(d *data) error {
		c := *u
		d.users[u.ID] = &c
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	var out *domain.User
	r.st.read(func(d *data) {
		if u, ok := d.users[id]; ok {
			c := *u
			out = &c
		}
	})
	if out == nil {
		return nil, fmt.Errorf("userRepo.GetByID: %w", domain.ErrNotFound)
	}
	return out, nil
}

func (r *userRepo) CreateMessengerLink(_ context.Context, link *domain.UserMessengerLink) error {
	return r.st.write(func(d *data) error {
		c := *link
		d.links = append(d.links, &c)
		return nil
	})
}

func (r *userRepo) ListMessengerLinks(_ context.Context, userID uuid.UUID) ([]*domain.UserMessengerLink, error) {
	var out []*domain.UserMessengerLink
	r.st.read(func(d *data) {
		for _, l := range d.links {
			if l.UserID == userID {
				c := *l
				out = append(out, &c)
			}
		}
	})
	return out, nil
}

type notificationRepo struct{ st state }

func (r *notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	return r.st.write(func(d *data) error {
		c := *n
		d.notifications = append(d.notifications, &c)
		return nil
	})
}

// ListByUser returns the newest notifications first.
func (r *notificationRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	r.st.read(func(d *data) {
		for i := len(d.notifications) - 1; i >= 0; i-- {
			n := d.notifications[i]
			if n.UserID != userID {
				continue
			}
			c := *n
			out = append(out, &c)
			if limit > 0 && len(out) == limit {
				return
			}
		}
	})
	return out, nil
}
