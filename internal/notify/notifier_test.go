package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/messenger"
	"github.com/gosuda/taskflow/internal/notify"
)

// --- mocks ---

type mockMessenger struct {
	platform string

	mu            sync.Mutex
	notifications []sentNotification
	notifyErr     error
	calls         int
}

type sentNotification struct {
	externalID string
	notice     messenger.Notice
}

func (m *mockMessenger) SendNotification(_ context.Context, externalID string, notice messenger.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.notifyErr != nil {
		return m.notifyErr
	}
	m.notifications = append(m.notifications, sentNotification{externalID: externalID, notice: notice})
	return nil
}

func (m *mockMessenger) Platform() string { return m.platform }

func (m *mockMessenger) sent() []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentNotification(nil), m.notifications...)
}

type mockRegistry struct {
	messengers map[string]messenger.Messenger
}

func (r *mockRegistry) Get(platform string) (messenger.Messenger, bool) {
	m, ok := r.messengers[platform]
	return m, ok
}

type mockUserLinks struct {
	links []*domain.UserMessengerLink
	err   error
}

func (m *mockUserLinks) ListMessengerLinks(context.Context, uuid.UUID) ([]*domain.UserMessengerLink, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.links, nil
}

var hello = messenger.Notice{Title: "Task assigned", Text: "hello"} //nolint:gochecknoglobals // test fixture

// --- Notify tests ---

func TestNotify(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("happy path sends via first available link", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		slackMsg := &mockMessenger{platform: "slack"}
		reg := &mockRegistry{messengers: map[string]messenger.Messenger{"slack": slackMsg}}
		links := &mockUserLinks{
			links: []*domain.UserMessengerLink{
				{Platform: "slack", ExternalID: "U123"},
			},
		}

		n := notify.New(reg, links, notify.BreakerSettings{})
		err := n.Notify(ctx, userID, hello)

		require.NoError(t, err)
		sent := slackMsg.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "U123", sent[0].externalID)
		assert.Equal(t, hello, sent[0].notice)
	})

	t.Run("no links is not an error", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		reg := &mockRegistry{messengers: map[string]messenger.Messenger{}}
		n := notify.New(reg, &mockUserLinks{}, notify.BreakerSettings{})

		require.NoError(t, n.Notify(ctx, userID, hello))
	})

	t.Run("ListMessengerLinks error propagates", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		reg := &mockRegistry{messengers: map[string]messenger.Messenger{}}
		n := notify.New(reg, &mockUserLinks{err: errors.New("db error")}, notify.BreakerSettings{})

		err := n.Notify(ctx, userID, hello)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list links")
	})

	t.Run("falls through to second link on first failure", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		broken := &mockMessenger{platform: "slack", notifyErr: errors.New("slack down")}
		reg := &mockRegistry{messengers: map[string]messenger.Messenger{"slack": broken}}
		links := &mockUserLinks{
			links: []*domain.UserMessengerLink{
				{Platform: "slack", ExternalID: "U123"},
				{Platform: "slack", ExternalID: "U456"},
			},
		}

		n := notify.New(reg, links, notify.BreakerSettings{})
		err := n.Notify(ctx, userID, hello)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "all links failed")
		assert.Equal(t, 2, broken.calls)
	})
}

// --- NotifyVia tests ---

func TestNotifyVia(t *testing.T) {
	t.Parallel()

	t.Run("unknown platform returns ErrPlatformNotFound", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		reg := &mockRegistry{messengers: map[string]messenger.Messenger{}}
		n := notify.New(reg, &mockUserLinks{}, notify.BreakerSettings{})

		err := n.NotifyVia(ctx, "unknown", "U123", hello)
		require.ErrorIs(t, err, notify.ErrPlatformNotFound)
	})

	t.Run("breaker opens after consecutive failures", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		broken := &mockMessenger{platform: "slack", notifyErr: errors.New("timeout")}
		reg := &mockRegistry{messengers: map[string]messenger.Messenger{"slack": broken}}
		n := notify.New(reg, &mockUserLinks{}, notify.BreakerSettings{MaxFailures: 2, OpenTimeout: time.Minute})

		for range 2 {
			err := n.NotifyVia(ctx, "slack", "U123", hello)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "timeout")
		}

		err := n.NotifyVia(ctx, "slack", "U123", hello)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circuit breaker is open")
		assert.Equal(t, 2, broken.calls, "open breaker does not call the platform")
	})
}

// --- Dispatcher tests ---

type memInbox struct {
	mu    sync.Mutex
	items []*domain.Notification
	err   error
}

func (m *memInbox) Create(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, n)
	return nil
}

type mockLive struct {
	mu        sync.Mutex
	published []*domain.Notification
}

func (m *mockLive) PublishNotification(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, n)
	return nil
}

type mockPusher struct {
	mu      sync.Mutex
	notices []messenger.Notice
}

func (m *mockPusher) Notify(_ context.Context, _ uuid.UUID, notice messenger.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, notice)
	return nil
}

func TestDispatcher(t *testing.T) {
	t.Parallel()

	n := &domain.Notification{
		ID: uuid.New(), UserID: uuid.New(), Type: domain.NotificationApproved,
		Title: "Task approved", Message: "ship it",
	}

	t.Run("stores, publishes and pushes", func(t *testing.T) {
		t.Parallel()

		inbox, live, push := &memInbox{}, &mockLive{}, &mockPusher{}
		d := notify.NewDispatcher(inbox, live, push, time.Second)

		ctx, cancel := context.WithCancel(t.Context())
		d.Notify(ctx, n)
		cancel() // delivery must not depend on the caller's context
		d.Wait()

		require.Len(t, inbox.items, 1)
		require.Len(t, live.published, 1)
		require.Len(t, push.notices, 1)
		assert.Equal(t, messenger.Notice{Title: "Task approved", Text: "ship it"}, push.notices[0])
	})

	t.Run("inbox failure stops delivery", func(t *testing.T) {
		t.Parallel()

		inbox, push := &memInbox{err: errors.New("db down")}, &mockPusher{}
		d := notify.NewDispatcher(inbox, nil, push, time.Second)

		d.Notify(t.Context(), n)
		d.Wait()

		assert.Empty(t, push.notices)
	})

	t.Run("nil notification is ignored", func(t *testing.T) {
		t.Parallel()

		inbox := &memInbox{}
		d := notify.NewDispatcher(inbox, nil, nil, 0)
		d.Notify(t.Context(), nil)
		d.Wait()

		assert.Empty(t, inbox.items)
	})
}
