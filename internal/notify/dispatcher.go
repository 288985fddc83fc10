package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/messenger"
)

// Inbox persists notifications for later reading.
type Inbox interface {
	Create(ctx context.Context, n *domain.Notification) error
}

// LivePublisher pushes a notification to connected clients.
type LivePublisher interface {
	PublishNotification(ctx context.Context, n *domain.Notification) error
}

// Pusher delivers a notice to a user's messenger accounts.
type Pusher interface {
	Notify(ctx context.Context, userID uuid.UUID, notice messenger.Notice) error
}

// Dispatcher delivers engine notifications in the background: it stores the
// notification in the recipient's inbox, fans it out to live subscribers
// and pushes it to their messenger accounts. Failures are logged and never
// reach the caller.
type Dispatcher struct {
	inbox   Inbox
	live    LivePublisher // optional
	push    Pusher        // optional
	timeout time.Duration

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. live and push may be nil.
func NewDispatcher(inbox Inbox, live LivePublisher, push Pusher, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{inbox: inbox, live: live, push: push, timeout: timeout}
}

// Notify schedules delivery and returns immediately. Delivery outlives the
// caller's context but is bounded by the dispatcher timeout.
func (d *Dispatcher) Notify(ctx context.Context, n *domain.Notification) {
	if n == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		d.deliver(ctx, n)
	}()
}

// Wait blocks until every scheduled delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n *domain.Notification) {
	logger := log.With().
		Str("notification_id", n.ID.String()).
		Str("user_id", n.UserID.String()).
		Str("type", string(n.Type)).
		Logger()

	// 1. Inbox first; nothing else matters if it is not stored.
	if err := d.inbox.Create(ctx, n); err != nil {
		logger.Error().Err(err).Msg("notify: store notification")
		return
	}

	// 2. Live fan-out.
	if d.live != nil {
		if err := d.live.PublishNotification(ctx, n); err != nil {
			logger.Warn().Err(err).Msg("notify: publish notification")
		}
	}

	// 3. Messenger push.
	if d.push != nil {
		if err := d.push.Notify(ctx, n.UserID, messenger.Notice{Title: n.Title, Text: n.Message}); err != nil {
			logger.Warn().Err(err).Msg("notify: push notification")
		}
	}
}
