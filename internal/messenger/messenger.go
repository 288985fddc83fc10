package messenger

import "context"

// Notice is a short, platform-neutral message for one person.
type Notice struct {
	Title string
	Text  string
}

// Messenger abstracts delivery to a chat platform. Implementations handle
// the platform API calls; the interface is platform-agnostic.
type Messenger interface {
	// SendNotification sends a direct message to a user by their external
	// platform ID (e.g. Slack user ID).
	SendNotification(ctx context.Context, userExternalID string, notice Notice) error

	// Platform returns the messenger platform identifier (e.g. "slack").
	Platform() string
}
