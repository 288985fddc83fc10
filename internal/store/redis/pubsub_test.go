package redis_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskflow/internal/domain"
	redisstore "github.com/gosuda/taskflow/internal/store/redis"
)

func TestBoardChannel(t *testing.T) {
	t.Parallel()

	workspaceID := uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
	projectID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		got := redisstore.BoardChannel(workspaceID, projectID)
		assert.Equal(t, "board:aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee:11111111-2222-3333-4444-555555555555", got)
	})

	t.Run("nil UUIDs", func(t *testing.T) {
		t.Parallel()

		got := redisstore.BoardChannel(uuid.Nil, uuid.Nil)
		assert.Equal(t, "board:00000000-0000-0000-0000-000000000000:00000000-0000-0000-0000-000000000000", got)
	})

	t.Run("different projects differ", func(t *testing.T) {
		t.Parallel()

		other := uuid.MustParse("99999999-8888-7777-6666-555544443333")
		assert.NotEqual(t, redisstore.BoardChannel(workspaceID, projectID), redisstore.BoardChannel(workspaceID, other))
	})
}

func TestUserChannel(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

	got := redisstore.UserChannel(id)
	assert.Equal(t, "user:aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", got)
	assert.True(t, strings.HasPrefix(got, "user:"))
	assert.NotEqual(t, redisstore.BoardChannel(id, id), got)
}

func TestBoardEventRoundTrip(t *testing.T) {
	t.Parallel()

	in := &domain.BoardEvent{
		Type:          domain.BoardTaskStatusChanged,
		WorkspaceID:   uuid.New(),
		ProjectID:     uuid.New(),
		TaskID:        uuid.New(),
		ActorID:       uuid.New(),
		Status:        domain.TaskStatusReview,
		AutoTriggered: true,
		At:            time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	payload, err := redisstore.EncodeBoardEvent(in)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"type":"task_status_changed"`)
	assert.Contains(t, string(payload), `"auto_triggered":true`)

	out, err := redisstore.DecodeBoardEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = redisstore.DecodeBoardEvent([]byte("{"))
	require.Error(t, err)
}
