package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gosuda/taskflow/internal/domain"
)

type PubSub struct {
	client *redis.Client
}

var _ domain.BoardPublisher = (*PubSub)(nil)

func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

// Ping checks connectivity; used by the health endpoint.
func (ps *PubSub) Ping(ctx context.Context) error {
	return ps.client.Ping(ctx).Err()
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// PublishBoardEvent sends e as JSON on its project's board channel.
func (ps *PubSub) PublishBoardEvent(ctx context.Context, e *domain.BoardEvent) error {
	payload, err := EncodeBoardEvent(e)
	if err != nil {
		return fmt.Errorf("redis.PubSub.PublishBoardEvent: %w", err)
	}
	return ps.Publish(ctx, BoardChannel(e.WorkspaceID, e.ProjectID), payload)
}

// PublishNotification pushes n on the recipient's live channel.
func (ps *PubSub) PublishNotification(ctx context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("redis.PubSub.PublishNotification: marshal: %w", err)
	}
	return ps.Publish(ctx, UserChannel(n.UserID), payload)
}

func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// EncodeBoardEvent is the wire form of a board event.
func EncodeBoardEvent(e *domain.BoardEvent) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal board event: %w", err)
	}
	return b, nil
}

// DecodeBoardEvent parses a payload produced by EncodeBoardEvent.
func DecodeBoardEvent(payload []byte) (*domain.BoardEvent, error) {
	var e domain.BoardEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("unmarshal board event: %w", err)
	}
	return &e, nil
}

// BoardChannel returns the Redis channel name for a project board.
func BoardChannel(workspaceID, projectID uuid.UUID) string {
	return "board:" + workspaceID.String() + ":" + projectID.String()
}

// UserChannel returns the Redis channel name for a user's live notifications.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
