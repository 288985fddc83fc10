package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Claims is the bearer token payload. Tokens are issued by the identity
// provider in front of this service.
type Claims struct {
	jwt.RegisteredClaims
	WorkspaceID string `json:"wid"`
	UserID      string `json:"uid"`
}

// Auth verifies an HS256 bearer token and places the caller's user and
// workspace in the request context. The token may also arrive in the
// access_token query parameter, which browsers need for WebSocket upgrades.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				tok = r.URL.Query().Get("access_token")
			}
			if tok == "" {
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing credentials"}`, http.StatusUnauthorized)
				return
			}

			ctx, err := authenticateJWT(r.Context(), tok, jwtSecret)
			if err != nil {
				log.Debug().Err(err).Msg("auth: rejected token")
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"invalid credentials"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return auth[7:]
	}
	return ""
}

func authenticateJWT(ctx context.Context, tokenStr, secret string) (context.Context, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return ctx, err
	}
	if !token.Valid {
		return ctx, jwt.ErrTokenInvalidClaims
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return ctx, fmt.Errorf("uid: %w", err)
	}
	workspaceID, err := uuid.Parse(claims.WorkspaceID)
	if err != nil {
		return ctx, fmt.Errorf("wid: %w", err)
	}

	return WithIdentity(ctx, userID, workspaceID), nil
}

// IssueToken signs an HS256 token for userID in workspaceID. It backs the
// CLI's token command and the tests.
func IssueToken(secret string, userID, workspaceID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		WorkspaceID: workspaceID.String(),
		UserID:      userID.String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("middleware.IssueToken: %w", err)
	}
	return signed, nil
}
