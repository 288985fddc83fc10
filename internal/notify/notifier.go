package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/messenger"
)

// ErrPlatformNotFound is returned when a messenger platform is not registered.
var ErrPlatformNotFound = errors.New("notify: platform not found") //nolint:gochecknoglobals // sentinel error

// MessengerRegistry maps platform names to Messenger implementations.
type MessengerRegistry interface {
	Get(platform string) (messenger.Messenger, bool)
}

// UserLinkResolver finds messenger links for a user.
type UserLinkResolver interface {
	ListMessengerLinks(ctx context.Context, userID uuid.UUID) ([]*domain.UserMessengerLink, error)
}

// BreakerSettings configures the per-platform circuit breakers.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long an open breaker rejects sends before probing.
	OpenTimeout time.Duration
}

// Notifier pushes notifications to users through their linked messenger
// accounts. Each platform sits behind its own circuit breaker so a failing
// chat API fails fast instead of stalling every delivery.
type Notifier struct {
	messengers MessengerRegistry
	userLinks  UserLinkResolver
	settings   BreakerSettings

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// New creates a new Notifier with the given messenger registry and user link resolver.
func New(messengers MessengerRegistry, userLinks UserLinkResolver, settings BreakerSettings) *Notifier {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	return &Notifier{
		messengers: messengers,
		userLinks:  userLinks,
		settings:   settings,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Notify sends a notice to the user via their first working messenger link.
// A user without links is not an error.
func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, notice messenger.Notice) error {
	links, err := n.userLinks.ListMessengerLinks(ctx, userID)
	if err != nil {
		return fmt.Errorf("notify.Notifier.Notify: list links: %w", err)
	}

	if len(links) == 0 {
		log.Debug().Str("user_id", userID.String()).Msg("notify: no messenger links")
		return nil
	}

	// Try each link until one succeeds.
	var lastErr error
	for _, link := range links {
		sendErr := n.NotifyVia(ctx, link.Platform, link.ExternalID, notice)
		if sendErr == nil {
			return nil
		}
		lastErr = sendErr
	}

	return fmt.Errorf("notify.Notifier.Notify: all links failed: %w", lastErr)
}

// NotifyVia sends a notice using a specific platform and external ID directly.
func (n *Notifier) NotifyVia(ctx context.Context, platform, externalID string, notice messenger.Notice) error {
	msg, ok := n.messengers.Get(platform)
	if !ok {
		return fmt.Errorf("notify.Notifier.NotifyVia: platform %q: %w", platform, ErrPlatformNotFound)
	}

	_, err := n.breaker(platform).Execute(func() (any, error) {
		return nil, msg.SendNotification(ctx, externalID, notice)
	})
	if err != nil {
		return fmt.Errorf("notify.Notifier.NotifyVia: send: %w", err)
	}

	return nil
}

func (n *Notifier) breaker(platform string) *gobreaker.CircuitBreaker {
	n.mu.Lock()
	defer n.mu.Unlock()

	cb, ok := n.breakers[platform]
	if ok {
		return cb
	}
	maxFailures := n.settings.MaxFailures
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "messenger-" + platform,
		MaxRequests: 1,
		Timeout:     n.settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("notify: breaker state changed")
		},
	})
	n.breakers[platform] = cb
	return cb
}
