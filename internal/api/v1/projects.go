package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/workflow"
)

type CreateProjectInput struct {
	Body struct {
		Name     string     `json:"name" maxLength:"255" doc:"Project name"`
		LeaderID *uuid.UUID `json:"leader_id,omitempty" doc:"Designated project leader"`
	}
}

type ProjectOutput struct {
	Body ProjectBody
}

type ListProjectsOutput struct {
	Body []ProjectBody
}

type ProjectIDInput struct {
	ID uuid.UUID `path:"id" doc:"Project ID"`
}

type ListProjectTasksOutput struct {
	Body []TaskBody
}

type ProjectStatsOutput struct {
	Body *StatsBody
}

type AddProjectMemberInput struct {
	ID   uuid.UUID `path:"id" doc:"Project ID"`
	Body struct {
		UserID   uuid.UUID `json:"user_id" doc:"Workspace member to add"`
		IsLeader bool      `json:"is_leader,omitempty" doc:"Grant project leadership"`
	}
}

type AddProjectMemberOutput struct {
	Body struct {
		ProjectID uuid.UUID `json:"project_id"`
		UserID    uuid.UUID `json:"user_id"`
		IsLeader  bool      `json:"is_leader"`
	}
}

func RegisterProjectRoutes(api huma.API, engine ProjectEngine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create a project in the current workspace",
		Tags:          []string{"Projects"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateProjectInput) (*ProjectOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		workspaceID, err := workspaceFrom(ctx)
		if err != nil {
			return nil, err
		}

		p, err := engine.CreateProject(ctx, actorID, workflow.CreateProjectInput{
			WorkspaceID: workspaceID,
			Name:        input.Body.Name,
			LeaderID:    input.Body.LeaderID,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to create project")
		}

		return &ProjectOutput{Body: newProjectBody(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects in the current workspace",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, _ *struct{}) (*ListProjectsOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		workspaceID, err := workspaceFrom(ctx)
		if err != nil {
			return nil, err
		}

		projects, err := engine.ListProjects(ctx, actorID, workspaceID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list projects")
		}

		out := &ListProjectsOutput{Body: make([]ProjectBody, 0, len(projects))}
		for _, p := range projects {
			out.Body = append(out.Body, newProjectBody(p))
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/tasks",
		Summary:     "List every task of a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ListProjectTasksOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		tasks, err := engine.ListProjectTasks(ctx, actorID, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list tasks")
		}

		return &ListProjectTasksOutput{Body: newTaskBodies(tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project-stats",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/stats",
		Summary:     "Get the status histogram of a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ProjectStatsOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		stats, err := engine.GetProjectStats(ctx, actorID, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get project stats")
		}

		return &ProjectStatsOutput{Body: newStatsBody(stats)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-project-member",
		Method:      http.MethodPost,
		Path:        "/projects/{id}/members",
		Summary:     "Add a member to a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *AddProjectMemberInput) (*AddProjectMemberOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		m, err := engine.AddProjectMember(ctx, actorID, input.ID, input.Body.UserID, input.Body.IsLeader)
		if err != nil {
			return nil, toHTTPError(err, "failed to add project member")
		}

		out := &AddProjectMemberOutput{}
		out.Body.ProjectID = m.ProjectID
		out.Body.UserID = m.UserID
		out.Body.IsLeader = m.IsLeader
		return out, nil
	})
}
