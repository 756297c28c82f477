// Package auth resolves the user id that owns every row a composer session touches.
package auth

import (
	"context"
	"strings"

	supa "github.com/supabase-community/supabase-go"

	apperrors "github.com/dpshade/prompt-composer/internal/errors"
)

// Authenticator turns a bearer token into a user id
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// Static authenticates every request as one configured user. It backs local
// (SQLite or memory) deployments where there is no identity provider.
type Static struct {
	UserID string
}

// NewStatic creates a static authenticator
func NewStatic(userID string) *Static {
	return &Static{UserID: userID}
}

// Authenticate ignores the token and returns the configured user
func (s *Static) Authenticate(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(s.UserID) == "" {
		return "", apperrors.UnauthorizedError("No user configured")
	}
	return s.UserID, nil
}

// UserLookup resolves a token against an identity provider
type UserLookup func(token string) (string, error)

// Supabase validates tokens with the GoTrue API of a Supabase project
type Supabase struct {
	lookup UserLookup
}

// NewSupabase validates tokens through client.Auth
func NewSupabase(client *supa.Client) *Supabase {
	return NewSupabaseWithLookup(func(token string) (string, error) {
		resp, err := client.Auth.WithToken(token).GetUser()
		if err != nil {
			return "", err
		}
		return resp.ID.String(), nil
	})
}

// NewSupabaseWithLookup uses a custom lookup, mainly for tests
func NewSupabaseWithLookup(lookup UserLookup) *Supabase {
	return &Supabase{lookup: lookup}
}

// Authenticate returns the id of the user the token belongs to
func (s *Supabase) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperrors.UnauthorizedError("Missing bearer token")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	userID, err := s.lookup(token)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInvalidToken, "Invalid or expired token")
	}
	if userID == "" {
		return "", apperrors.NewAppError(apperrors.ErrCodeInvalidToken, "Token has no user")
	}
	return userID, nil
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
