package driving

import "context"

// OAuthService orchestrates the provider redirect flow: init-token
// redemption, scope resolution, state issuance and the callback leg that
// persists the exchanged credentials.
type OAuthService interface {
	// BeginAuth redeems an init token and returns the provider
	// authorization URL to redirect the user to.
	BeginAuth(ctx context.Context, initToken string) (string, error)

	// CompleteAuth redeems the callback state, exchanges the authorization
	// code and persists the resulting access and refresh tokens.
	CompleteAuth(ctx context.Context, state, code string) error
}
