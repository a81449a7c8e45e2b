package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
)

// Ensure OAuthClient implements the interface.
var _ driven.OAuthClient = (*OAuthClient)(nil)

const userinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

// defaultRefreshTokenLifetime applies when Google omits
// refresh_token_expires_in from the exchange response (roughly six months).
const defaultRefreshTokenLifetime = 180 * 24 * 3600

// OAuthClient wraps golang.org/x/oauth2 for the Google redirect and
// authorization-code exchange, and resolves the account email from the
// userinfo endpoint.
type OAuthClient struct {
	config      *oauth2.Config
	userinfoURL string
}

// NewOAuthClient creates a Google OAuth client.
func NewOAuthClient(clientID, clientSecret, redirectURL string) *OAuthClient {
	return &OAuthClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
		},
		userinfoURL: userinfoEndpoint,
	}
}

// AuthCodeURL builds the authorization URL. Offline access plus forced
// consent guarantees Google issues a refresh token on every grant.
func (c *OAuthClient) AuthCodeURL(state string, scopes []string) string {
	cfg := *c.config
	cfg.Scopes = scopes
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange trades the authorization code for tokens and fetches the account
// email.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (*driven.OAuthExchange, error) {
	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	expiresIn := 0
	if !token.Expiry.IsZero() {
		expiresIn = int(time.Until(token.Expiry).Seconds())
	}

	refreshExpiresIn := extraInt(token, "refresh_token_expires_in")
	if refreshExpiresIn == 0 {
		refreshExpiresIn = defaultRefreshTokenLifetime
	}

	var scopes []string
	if scope, ok := token.Extra("scope").(string); ok {
		scopes = strings.Fields(scope)
	}

	email, err := c.fetchEmail(ctx, token)
	if err != nil {
		return nil, err
	}

	return &driven.OAuthExchange{
		AccessToken:           token.AccessToken,
		RefreshToken:          token.RefreshToken,
		ExpiresIn:             expiresIn,
		RefreshTokenExpiresIn: refreshExpiresIn,
		Scopes:                scopes,
		Email:                 email,
	}, nil
}

// fetchEmail resolves the account email from the userinfo endpoint, covered
// by the baseline userinfo.email scope.
func (c *OAuthClient) fetchEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	client := c.config.Client(ctx, token)
	client.Timeout = 30 * time.Second

	req, err := http.NewRequestWithContext(ctx, "GET", c.userinfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("create userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read userinfo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo failed: status %d", resp.StatusCode)
	}

	var profile struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}

	return profile.Email, nil
}

// extraInt reads a numeric extra field from a token, tolerating the types
// the oauth2 library may produce.
func extraInt(token *oauth2.Token, key string) int {
	switch v := token.Extra(key).(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
