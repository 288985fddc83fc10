package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/server/middleware"
)

// ErrorTypePrefix prefixes the problem type of every domain error; the
// suffix is the domain error code, e.g. "urn:taskflow:error:FORBIDDEN".
const ErrorTypePrefix = "urn:taskflow:error:"

func statusForCode(code domain.ErrorCode) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeInvalidTransition:
		return http.StatusConflict
	case domain.CodeMissingFields, domain.CodeInvalidStatus, domain.CodeInvalidPriority,
		domain.CodeInvalidParent, domain.CodeInvalidInitialStatus, domain.CodeUseStatusEndpoint,
		domain.CodeInvalidRole:
		return http.StatusBadRequest
	case domain.CodeMemberCannotAssignOthers, domain.CodeCannotAssignToObserver,
		domain.CodeMaxDepthExceeded, domain.CodeSubtaskNoReview:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// toHTTPError maps a workflow error to a problem response. Errors without a
// domain code become a 500 with the generic message msg; their details are
// logged, not returned.
func toHTTPError(err error, msg string) error {
	code := domain.CodeOf(err)
	status := statusForCode(code)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("api: " + msg)
		return huma.Error500InternalServerError(msg)
	}
	return &huma.ErrorModel{
		Type:   ErrorTypePrefix + string(code),
		Title:  http.StatusText(status),
		Status: status,
		Detail: domain.MessageOf(err),
	}
}

func actorFrom(ctx context.Context) (uuid.UUID, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, huma.Error401Unauthorized("missing user context")
	}
	return userID, nil
}

func workspaceFrom(ctx context.Context) (uuid.UUID, error) {
	workspaceID, ok := middleware.WorkspaceIDFromContext(ctx)
	if !ok {
		return uuid.Nil, huma.Error403Forbidden("missing workspace context")
	}
	return workspaceID, nil
}
