package driven

import "context"

// OAuthExchange is the outcome of the authorization-code exchange leg of the
// redirect flow, including the account email resolved from the provider
// profile.
type OAuthExchange struct {
	AccessToken           string
	RefreshToken          string
	ExpiresIn             int
	RefreshTokenExpiresIn int
	Scopes                []string
	Email                 string
}

// OAuthClient wraps the third-party OAuth client library performing the
// redirect and authorization-code exchange.
type OAuthClient interface {
	// AuthCodeURL builds the provider authorization URL for the given state
	// and scope set, requesting offline access and forcing consent so a
	// refresh token is always issued.
	AuthCodeURL(state string, scopes []string) string

	// Exchange trades an authorization code for tokens and resolves the
	// account email.
	Exchange(ctx context.Context, code string) (*OAuthExchange, error)
}
