package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/workflow"
)

type BatchInput struct {
	Body struct {
		TaskIDs []uuid.UUID `json:"task_ids" minItems:"1" maxItems:"100" doc:"Tasks to process, in order"`
	}
}

type BatchCompleteItemBody struct {
	TaskID  uuid.UUID             `json:"task_id"`
	Outcome workflow.BatchOutcome `json:"outcome" enum:"success,auto_reviewed,failed"`
	Status  domain.TaskStatus     `json:"status,omitempty"`
	Code    domain.ErrorCode      `json:"code,omitempty"`
	Reason  string                `json:"reason,omitempty"`
}

type BatchCompleteOutput struct {
	Body struct {
		Items        []BatchCompleteItemBody `json:"items"`
		Succeeded    int                     `json:"succeeded"`
		AutoReviewed int                     `json:"auto_reviewed"`
		Failed       int                     `json:"failed"`
	}
}

type BatchDeleteItemBody struct {
	TaskID  uuid.UUID        `json:"task_id"`
	Deleted bool             `json:"deleted"`
	Code    domain.ErrorCode `json:"code,omitempty"`
	Reason  string           `json:"reason,omitempty"`
}

type BatchDeleteOutput struct {
	Body struct {
		Items              []BatchDeleteItemBody `json:"items"`
		Deleted            int                   `json:"deleted"`
		Failed             int                   `json:"failed"`
		DescendantsDeleted int                   `json:"descendants_deleted"`
	}
}

// registerBatchRoutes registers the bulk operations. Per-item failures are
// reported in the body; the request itself still succeeds.
func registerBatchRoutes(api huma.API, engine TaskEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "batch-complete-tasks",
		Method:      http.MethodPost,
		Path:        "/tasks/batch/complete",
		Summary:     "Complete several tasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *BatchInput) (*BatchCompleteOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		res, err := engine.BatchComplete(ctx, actorID, input.Body.TaskIDs)
		if err != nil {
			return nil, toHTTPError(err, "failed to complete tasks")
		}

		out := &BatchCompleteOutput{}
		out.Body.Items = make([]BatchCompleteItemBody, 0, len(res.Items))
		for _, it := range res.Items {
			out.Body.Items = append(out.Body.Items, BatchCompleteItemBody{
				TaskID:  it.TaskID,
				Outcome: it.Outcome,
				Status:  it.Status,
				Code:    it.Code,
				Reason:  it.Reason,
			})
		}
		out.Body.Succeeded = res.Succeeded
		out.Body.AutoReviewed = res.AutoReviewed
		out.Body.Failed = res.Failed
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "batch-delete-tasks",
		Method:      http.MethodPost,
		Path:        "/tasks/batch/delete",
		Summary:     "Delete several tasks and their subtasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *BatchInput) (*BatchDeleteOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		res, err := engine.BatchDelete(ctx, actorID, input.Body.TaskIDs)
		if err != nil {
			return nil, toHTTPError(err, "failed to delete tasks")
		}

		out := &BatchDeleteOutput{}
		out.Body.Items = make([]BatchDeleteItemBody, 0, len(res.Items))
		for _, it := range res.Items {
			out.Body.Items = append(out.Body.Items, BatchDeleteItemBody{
				TaskID:  it.TaskID,
				Deleted: it.Deleted,
				Code:    it.Code,
				Reason:  it.Reason,
			})
		}
		out.Body.Deleted = res.Deleted
		out.Body.Failed = res.Failed
		out.Body.DescendantsDeleted = res.DescendantsDeleted
		return out, nil
	})
}
