package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskflow/internal/config"
	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/server"
	"github.com/gosuda/taskflow/internal/server/middleware"
	"github.com/gosuda/taskflow/internal/store/memory"
	"github.com/gosuda/taskflow/internal/workflow"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type env struct {
	handler   http.Handler
	workspace uuid.UUID
	owner     uuid.UUID
	member    uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := memory.New()
	e := &env{workspace: uuid.New(), owner: uuid.New(), member: uuid.New()}
	for id, role := range map[uuid.UUID]domain.Role{e.owner: domain.RoleOwner, e.member: domain.RoleMember} {
		require.NoError(t, store.Memberships().Create(context.Background(), &domain.Membership{
			WorkspaceID: e.workspace, UserID: id, Role: role, CreatedAt: time.Now(),
		}))
	}

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: testSecret},
		Server: config.ServerConfig{
			Addr:         ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			CORSOrigins:  []string{"http://localhost:5173"},
			RateLimit:    1000,
			RateBurst:    1000,
		},
	}
	srv := server.New(t.Context(), cfg, workflow.New(store, nil, nil), store, nil)
	e.handler = srv.Handler()
	return e
}

func (e *env) do(t *testing.T, method, path string, userID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		tok, err := middleware.IssueToken(testSecret, userID, e.workspace, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", uuid.Nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPIAccess(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		user   func(e *env) uuid.UUID
		body   string
		status int
	}{
		{"no token", http.MethodGet, "/api/v1/projects", func(*env) uuid.UUID { return uuid.Nil }, "", http.StatusUnauthorized},
		{"not a member", http.MethodGet, "/api/v1/projects", func(*env) uuid.UUID { return uuid.New() }, "", http.StatusForbidden},
		{"member lists projects", http.MethodGet, "/api/v1/projects", func(e *env) uuid.UUID { return e.member }, "", http.StatusOK},
		{"member lists members", http.MethodGet, "/api/v1/workspace/members", func(e *env) uuid.UUID { return e.member }, "", http.StatusOK},
		{
			"member cannot grant roles", http.MethodPut, "/api/v1/workspace/members",
			func(e *env) uuid.UUID { return e.member },
			`{"user_id":"` + uuid.NewString() + `","role":"observer"}`, http.StatusForbidden,
		},
		{
			"owner grants roles", http.MethodPut, "/api/v1/workspace/members",
			func(e *env) uuid.UUID { return e.owner },
			`{"user_id":"` + uuid.NewString() + `","role":"observer"}`, http.StatusOK,
		},
		{"openapi document", http.MethodGet, "/api/v1/openapi.json", func(e *env) uuid.UUID { return e.member }, "", http.StatusOK},
		{"websocket without redis", http.MethodGet, "/ws/board/" + uuid.NewString(), func(e *env) uuid.UUID { return e.member }, "", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := e.do(t, tt.method, tt.path, tt.user(e), tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
