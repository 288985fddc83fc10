package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/taskflow/internal/api/v1"
	"github.com/gosuda/taskflow/internal/api/ws"
	"github.com/gosuda/taskflow/internal/workflow"
)

func registerAPIRoutes(api huma.API, engine *workflow.Engine, backend Backend) {
	v1.RegisterTaskRoutes(api, engine)
	v1.RegisterProjectRoutes(api, engine)
	v1.RegisterBoardRoutes(api, engine)
	v1.RegisterWorkspaceRoutes(api, engine)
	v1.RegisterNotificationRoutes(api, backend.Notifications())
}

func registerAdminRoutes(api huma.API, engine *workflow.Engine) {
	v1.RegisterWorkspaceAdminRoutes(api, engine)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/board/{projectID}", hub.ServeBoard)
	r.Get("/notifications", hub.ServeNotifications)
}
