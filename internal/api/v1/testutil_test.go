package v1_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/taskflow/internal/api/v1"
	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/server/middleware"
	"github.com/gosuda/taskflow/internal/store/memory"
	"github.com/gosuda/taskflow/internal/workflow"
)

// fixture is a workspace with one project, served by the real engine over
// the in-memory store.
type fixture struct {
	api     humatest.TestAPI
	store   *memory.Store
	engine  *workflow.Engine
	project *domain.Project

	workspace uuid.UUID
	owner     uuid.UUID
	member    uuid.UUID
	observer  uuid.UUID
	outsider  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	_, api := humatest.New(t)
	f := &fixture{
		api:       api,
		store:     memory.New(),
		workspace: uuid.New(),
		owner:     uuid.New(),
		member:    uuid.New(),
		observer:  uuid.New(),
		outsider:  uuid.New(),
	}
	f.engine = workflow.New(f.store, nil, nil)

	ctx := context.Background()
	roles := map[uuid.UUID]domain.Role{
		f.owner:    domain.RoleOwner,
		f.member:   domain.RoleMember,
		f.observer: domain.RoleObserver,
	}
	for id, role := range roles {
		require.NoError(t, f.store.Memberships().Create(ctx, &domain.Membership{
			WorkspaceID: f.workspace,
			UserID:      id,
			Role:        role,
			CreatedAt:   time.Now(),
		}))
		require.NoError(t, f.store.Users().Create(ctx, &domain.User{ID: id, Name: string(role)}))
	}

	f.project = &domain.Project{
		ID:          uuid.New(),
		WorkspaceID: f.workspace,
		Name:        "apollo",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, f.store.Projects().Create(ctx, f.project))

	v1.RegisterTaskRoutes(api, f.engine)
	v1.RegisterProjectRoutes(api, f.engine)
	v1.RegisterBoardRoutes(api, f.engine)
	v1.RegisterWorkspaceRoutes(api, f.engine)
	v1.RegisterWorkspaceAdminRoutes(api, f.engine)
	v1.RegisterNotificationRoutes(api, f.store.Notifications())
	return f
}

// as returns a request context carrying userID in the fixture workspace.
func (f *fixture) as(userID uuid.UUID) context.Context {
	return middleware.WithIdentity(context.Background(), userID, f.workspace)
}

// createTask creates a task through the API as userID and returns it.
func (f *fixture) createTask(t *testing.T, userID uuid.UUID, body map[string]any) v1.TaskBody {
	t.Helper()

	if _, ok := body["project_id"]; !ok {
		body["project_id"] = f.project.ID.String()
	}
	resp := f.api.PostCtx(f.as(userID), "/tasks", body)
	require.Equal(t, 201, resp.Code, resp.Body.String())
	return decode[v1.TaskBody](t, resp)
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

// errorCode extracts the domain code from a problem response.
func errorCode(t *testing.T, resp *httptest.ResponseRecorder) domain.ErrorCode {
	t.Helper()

	problem := decode[huma.ErrorModel](t, resp)
	return domain.ErrorCode(strings.TrimPrefix(problem.Type, v1.ErrorTypePrefix))
}

// failingEngine fails every task operation it overrides with err.
type failingEngine struct {
	v1.TaskEngine
	err error
}

func (e failingEngine) GetTask(context.Context, uuid.UUID, uuid.UUID) (*domain.TaskWithRelations, error) {
	return nil, e.err
}

func (e failingEngine) BatchComplete(context.Context, uuid.UUID, []uuid.UUID) (*workflow.BatchCompleteResult, error) {
	return nil, e.err
}
