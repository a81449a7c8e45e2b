package driving

import (
	"context"
	"time"

	"github.com/nimblechat/integrations-core/internal/core/domain"
)

// UpsertTokenRequest carries a plaintext provider credential to persist.
type UpsertTokenRequest struct {
	UserID string

	// Token is the plaintext credential; it is encrypted before storage.
	Token string

	// ExpiresIn is the credential lifetime in seconds; 0 applies the default.
	ExpiresIn int

	// Services is the granted scope list. On update, an empty value falls
	// back to the previously recorded list.
	Services []string

	// Email is the account email. On update, an empty value falls back to
	// the previously recorded one.
	Email string
}

// AccessToken is a decrypted, non-expired access token handed to an
// authorized caller.
type AccessToken struct {
	Token     string    `json:"accessToken"`
	Email     string    `json:"email"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"-"`
}

// RevokeResult reports how many records revocation actually removed, so the
// caller can distinguish "nothing to revoke" from "revoked".
type RevokeResult struct {
	AccessTokensDeleted  int64 `json:"accessTokenDeleted"`
	RefreshTokensDeleted int64 `json:"refreshTokenDeleted"`
}

// TokenService owns the business rules for access and refresh token records:
// lookup, creation, update-in-place, expiry-aware refresh and revocation.
type TokenService interface {
	// FindAccessToken looks up the user's access token record by its
	// deterministic identifier. Absence is nil, nil.
	FindAccessToken(ctx context.Context, userID string) (*domain.TokenRecord, error)

	// FindRefreshToken looks up the user's refresh token record.
	FindRefreshToken(ctx context.Context, userID string) (*domain.TokenRecord, error)

	// UpsertAccessToken updates the user's access token record in place, or
	// creates it when absent. Returns the stored record.
	UpsertAccessToken(ctx context.Context, req UpsertTokenRequest) (*domain.TokenRecord, error)

	// UpsertRefreshToken has the same update-if-present semantics. Creating
	// a fresh record requires both email and services; when either is
	// missing the call is a silent no-op returning nil, nil.
	UpsertRefreshToken(ctx context.Context, req UpsertTokenRequest) (*domain.TokenRecord, error)

	// UsableAccessToken returns a decrypted, non-expired access token,
	// refreshing first when the stored token is absent or about to expire.
	// Returns domain.ErrRefreshUnavailable when no usable token can be
	// produced; the caller must treat that as "user must re-authorize".
	UsableAccessToken(ctx context.Context, userID string) (*AccessToken, error)

	// Refresh mints a new access token from the stored refresh token and
	// persists it. Returns domain.ErrRefreshUnavailable on any failure.
	Refresh(ctx context.Context, userID string) (*domain.TokenRecord, error)

	// Revoke revokes the current access token at the provider and deletes
	// both token records. Returns domain.ErrNotFound when there is nothing
	// to revoke and domain.ErrRevokeFailed when the provider rejects the
	// call (nothing is deleted in that case).
	Revoke(ctx context.Context, userID string) (*RevokeResult, error)

	// EnabledServices maps the current access token's granted scopes to the
	// deduplicated set of logical service names. Absent token or absent
	// scope metadata yields an empty set, never an error.
	EnabledServices(ctx context.Context, userID string) ([]string, error)
}
