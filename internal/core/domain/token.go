package domain

import (
	"fmt"
	"time"
)

// ProviderGoogleWorkspace is the only provider shipped today. Persistence
// keys and endpoints are parameterised on the provider name so additional
// providers can be added without changing the core contracts.
const ProviderGoogleWorkspace = "google-workspace"

// TokenKind discriminates the persisted token records.
type TokenKind string

const (
	// TokenKindAccess is a short-lived provider credential.
	TokenKindAccess TokenKind = "access_token"

	// TokenKindRefresh is a long-lived credential used to mint new access tokens.
	TokenKindRefresh TokenKind = "refresh_token"

	// TokenKindInit correlates the first leg of the OAuth redirect flow.
	TokenKindInit TokenKind = "init"

	// TokenKindState correlates the provider callback via the OAuth state parameter.
	TokenKindState TokenKind = "state"
)

const (
	// DefaultAccessTokenTTL applies when the provider omits expires_in.
	DefaultAccessTokenTTL = time.Hour

	// DefaultRefreshTokenTTL applies when the provider omits a refresh token lifetime.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// HandshakeTokenTTL bounds init and state tokens.
	HandshakeTokenTTL = 5 * time.Minute

	// RefreshMargin is subtracted from an access token's expiry before use,
	// so callers never observe a token that expires mid-request.
	RefreshMargin = 60 * time.Second
)

// TokenMetadata carries the free-form attributes of a token record.
// Access and refresh tokens record the account email and the granted scope
// strings; handshake tokens record the single requested logical service and
// redundantly the owning user.
type TokenMetadata struct {
	Provider string   `json:"provider"`
	Email    string   `json:"email,omitempty"`
	Services []string `json:"services,omitempty"`
	Service  string   `json:"service,omitempty"`
	UserID   string   `json:"user_id,omitempty"`
}

// TokenRecord is the persisted unit of the token subsystem.
//
// For access and refresh tokens the Token field holds ciphertext of the
// provider credential. For init and state tokens it holds the random
// correlation value itself, stored in clear since it is the identity being
// matched rather than a credential.
type TokenRecord struct {
	UserID     string        `json:"user_id"`
	Identifier string        `json:"identifier"`
	Kind       TokenKind     `json:"kind"`
	Token      string        `json:"token"`
	ExpiresAt  time.Time     `json:"expires_at"`
	CreatedAt  time.Time     `json:"created_at"`
	Metadata   TokenMetadata `json:"metadata"`
}

// IsExpired reports whether the record is past its expiry instant.
// The comparison is strict: a record is valid until, not including, ExpiresAt.
func (r *TokenRecord) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// ExpiresWithin reports whether the record expires within the given margin.
func (r *TokenRecord) ExpiresWithin(margin time.Duration) bool {
	return time.Now().After(r.ExpiresAt.Add(-margin))
}

// AccessTokenIdentifier is the deterministic lookup key for a user's access token.
func AccessTokenIdentifier(provider, userID string) string {
	return fmt.Sprintf("integration-%s-access-token-%s", provider, userID)
}

// RefreshTokenIdentifier is the deterministic lookup key for a user's refresh token.
func RefreshTokenIdentifier(provider, userID string) string {
	return fmt.Sprintf("integration-%s-refresh-token-%s", provider, userID)
}

// HandshakeIdentifier keys an ephemeral init or state record. Handshake
// records are looked up by token value, not identifier, so the key only has
// to be unique per issuance.
func HandshakeIdentifier(provider, userID string, issuedAt time.Time) string {
	return fmt.Sprintf("integration-%s-%s-%d", provider, userID, issuedAt.UnixNano())
}
