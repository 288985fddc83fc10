package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskflow/internal/domain"
)

type UserRepo struct {
	q querier
}

func NewUserRepo(q querier) *UserRepo {
	return &UserRepo{q: q}
}

// --- Users ---

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO users (id, email, name, avatar_url, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		u.ID, nilIfEmpty(u.Email), u.Name, nilIfEmpty(u.AvatarURL), u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("userRepo.Create: %w", err)
	}

	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	var email, avatarURL *string

	err := r.q.QueryRow(ctx,
		`SELECT id, email, name, avatar_url, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &email, &u.Name, &avatarURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("userRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}

	u.Email = derefStr(email)
	u.AvatarURL = derefStr(avatarURL)

	return &u, nil
}

// --- Messenger Links ---

func (r *UserRepo) CreateMessengerLink(ctx context.Context, link *domain.UserMessengerLink) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO user_messenger_links (id, user_id, platform, external_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		link.ID, link.UserID, link.Platform, link.ExternalID, link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("userRepo.CreateMessengerLink: %w", err)
	}

	return nil
}

func (r *UserRepo) ListMessengerLinks(ctx context.Context, userID uuid.UUID) ([]*domain.UserMessengerLink, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, user_id, platform, external_id, created_at
		 FROM user_messenger_links WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("userRepo.ListMessengerLinks: %w", err)
	}
	defer rows.Close()

	var links []*domain.UserMessengerLink
	for rows.Next() {
		var link domain.UserMessengerLink
		err = rows.Scan(&link.ID, &link.UserID, &link.Platform, &link.ExternalID, &link.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("userRepo.ListMessengerLinks: scan: %w", err)
		}
		links = append(links, &link)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("userRepo.ListMessengerLinks: rows: %w", err)
	}

	return links, nil
}

// --- Helpers ---

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
