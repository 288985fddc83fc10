package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	AvatarURL string
	CreatedAt time.Time
}

type UserMessengerLink struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Platform   string // "slack"
	ExternalID string
	CreatedAt  time.Time
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	CreateMessengerLink(ctx context.Context, link *UserMessengerLink) error
	ListMessengerLinks(ctx context.Context, userID uuid.UUID) ([]*UserMessengerLink, error)
}
