package v1

import (
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/workflow"
)

// Response bodies. Domain types carry no wire tags, so every payload goes
// through one of these.

type TaskBody struct {
	ID          uuid.UUID         `json:"id"`
	ProjectID   uuid.UUID         `json:"project_id"`
	ParentID    *uuid.UUID        `json:"parent_id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      domain.TaskStatus `json:"status" enum:"todo,in_progress,review,done"`
	Priority    domain.Priority   `json:"priority" enum:"low,medium,high,critical"`
	AssigneeID  *uuid.UUID        `json:"assignee_id,omitempty"`
	CreatorID   uuid.UUID         `json:"creator_id"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func newTaskBody(t *domain.Task) TaskBody {
	return TaskBody{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		ParentID:    t.ParentID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		AssigneeID:  t.AssigneeID,
		CreatorID:   t.CreatorID,
		DueDate:     t.DueDate,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func newTaskBodies(tasks []*domain.Task) []TaskBody {
	out := make([]TaskBody, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, newTaskBody(t))
	}
	return out
}

type UserBody struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

func newUserBody(u *domain.User) *UserBody {
	if u == nil {
		return nil
	}
	return &UserBody{ID: u.ID, Name: u.Name, Email: u.Email, AvatarURL: u.AvatarURL}
}

type ProjectBody struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	Name        string     `json:"name"`
	LeaderID    *uuid.UUID `json:"leader_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newProjectBody(p *domain.Project) ProjectBody {
	return ProjectBody{ID: p.ID, WorkspaceID: p.WorkspaceID, Name: p.Name, LeaderID: p.LeaderID, CreatedAt: p.CreatedAt}
}

// TaskDetailBody is a task with its project, parent, children and people.
type TaskDetailBody struct {
	TaskBody
	Project  ProjectBody `json:"project"`
	Parent   *TaskBody   `json:"parent,omitempty"`
	Children []TaskBody  `json:"children"`
	Assignee *UserBody   `json:"assignee,omitempty"`
	Creator  *UserBody   `json:"creator,omitempty"`
}

func newTaskDetailBody(twr *domain.TaskWithRelations) *TaskDetailBody {
	out := &TaskDetailBody{
		TaskBody: newTaskBody(twr.Task),
		Children: newTaskBodies(twr.Children),
		Assignee: newUserBody(twr.Assignee),
		Creator:  newUserBody(twr.Creator),
	}
	if twr.Project != nil {
		out.Project = newProjectBody(twr.Project)
	}
	if twr.Parent != nil {
		parent := newTaskBody(twr.Parent)
		out.Parent = &parent
	}
	return out
}

type EventBody struct {
	ID        uuid.UUID        `json:"id"`
	TaskID    uuid.UUID        `json:"task_id"`
	ActorID   uuid.UUID        `json:"actor_id"`
	Type      domain.EventType `json:"type"`
	Payload   map[string]any   `json:"payload,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func newEventBodies(events []*domain.TaskEvent) []EventBody {
	out := make([]EventBody, 0, len(events))
	for _, e := range events {
		out = append(out, EventBody{
			ID:        e.ID,
			TaskID:    e.TaskID,
			ActorID:   e.ActorID,
			Type:      e.Type,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// ResolutionBody reports what a transition request actually did.
type ResolutionBody struct {
	Outcome       workflow.Outcome  `json:"outcome"`
	ActualStatus  domain.TaskStatus `json:"actual_status"`
	Message       string            `json:"message"`
	StatusChanged bool              `json:"status_changed"`
	Task          *TaskBody         `json:"task,omitempty"`
}

func newResolutionBody(res *workflow.Resolution) *ResolutionBody {
	out := &ResolutionBody{
		Outcome:       res.Outcome,
		ActualStatus:  res.ActualStatus,
		Message:       res.Message,
		StatusChanged: res.StatusChanged,
	}
	if res.Task != nil {
		task := newTaskBody(res.Task)
		out.Task = &task
	}
	return out
}

type PermissionsBody struct {
	Role            domain.Role `json:"role,omitempty"`
	ProjectLeader   bool        `json:"project_leader"`
	CanView         bool        `json:"can_view"`
	CanEdit         bool        `json:"can_edit"`
	CanDelete       bool        `json:"can_delete"`
	CanChangeStatus bool        `json:"can_change_status"`
	CanReview       bool        `json:"can_review"`
}

type StatsBody struct {
	ProjectID      uuid.UUID      `json:"project_id"`
	ByStatus       map[string]int `json:"by_status"`
	Total          int            `json:"total"`
	CompletionRate float64        `json:"completion_rate"`
}

func newStatsBody(s *workflow.ProjectStats) *StatsBody {
	out := &StatsBody{
		ProjectID:      s.ProjectID,
		ByStatus:       make(map[string]int, len(s.ByStatus)),
		Total:          s.Total,
		CompletionRate: s.CompletionRate,
	}
	for status, n := range s.ByStatus {
		out.ByStatus[string(status)] = n
	}
	return out
}

type MembershipBody struct {
	WorkspaceID uuid.UUID   `json:"workspace_id"`
	UserID      uuid.UUID   `json:"user_id"`
	Role        domain.Role `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
}

func newMembershipBody(m *domain.Membership) MembershipBody {
	return MembershipBody{WorkspaceID: m.WorkspaceID, UserID: m.UserID, Role: m.Role, CreatedAt: m.CreatedAt}
}
