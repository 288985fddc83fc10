package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskflow/internal/domain"
)

type BoardColumns struct {
	Todo       []TaskBody `json:"todo"`
	InProgress []TaskBody `json:"in_progress"`
	Review     []TaskBody `json:"review"`
	Done       []TaskBody `json:"done"`
}

type GetBoardOutput struct {
	Body *BoardColumns
}

// RegisterBoardRoutes serves the kanban snapshot; live changes arrive over
// the /ws/board feed.
func RegisterBoardRoutes(api huma.API, engine ProjectEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/board",
		Summary:     "Get the kanban board of a project",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *ProjectIDInput) (*GetBoardOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		tasks, err := engine.ListProjectTasks(ctx, actorID, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list tasks for board")
		}

		board := &BoardColumns{
			Todo:       make([]TaskBody, 0),
			InProgress: make([]TaskBody, 0),
			Review:     make([]TaskBody, 0),
			Done:       make([]TaskBody, 0),
		}

		for _, t := range tasks {
			switch t.Status {
			case domain.TaskStatusTodo:
				board.Todo = append(board.Todo, newTaskBody(t))
			case domain.TaskStatusInProgress:
				board.InProgress = append(board.InProgress, newTaskBody(t))
			case domain.TaskStatusReview:
				board.Review = append(board.Review, newTaskBody(t))
			case domain.TaskStatusDone:
				board.Done = append(board.Done, newTaskBody(t))
			}
		}

		return &GetBoardOutput{Body: board}, nil
	})
}
