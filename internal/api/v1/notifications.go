package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskflow/internal/domain"
)

type ListNotificationsInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"200" default:"50" doc:"Max results"`
}

type ListNotificationsOutput struct {
	Body []*domain.Notification
}

func RegisterNotificationRoutes(api huma.API, inbox NotificationReader) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List the caller's notifications, newest first",
		Tags:        []string{"Notifications"},
	}, func(ctx context.Context, input *ListNotificationsInput) (*ListNotificationsOutput, error) {
		userID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		ns, err := inbox.ListByUser(ctx, userID, input.Limit)
		if err != nil {
			return nil, toHTTPError(err, "failed to list notifications")
		}
		if ns == nil {
			ns = []*domain.Notification{}
		}

		return &ListNotificationsOutput{Body: ns}, nil
	})
}
