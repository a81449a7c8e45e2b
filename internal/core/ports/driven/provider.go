package driven

import "context"

// ProviderTokenResponse is the token endpoint's answer to a refresh grant.
type ProviderTokenResponse struct {
	// AccessToken is the newly minted credential, in plaintext.
	AccessToken string

	// ExpiresIn is the credential lifetime in seconds.
	ExpiresIn int

	// Scopes is the granted scope list. A refresh response's scope list
	// replaces the one previously recorded, never unions with it.
	Scopes []string
}

// ProviderClient talks to the OAuth provider's token and revocation
// endpoints. Calls are synchronous with a bounded timeout; no retries.
type ProviderClient interface {
	// RefreshAccessToken exchanges a refresh token for a new access token
	// via grant_type=refresh_token.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*ProviderTokenResponse, error)

	// RevokeToken revokes a credential at the provider. A non-success HTTP
	// status is an error.
	RevokeToken(ctx context.Context, token string) error
}
