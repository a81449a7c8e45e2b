package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.ProviderClient = (*Provider)(nil)

const (
	tokenEndpoint  = "https://oauth2.googleapis.com/token"
	revokeEndpoint = "https://oauth2.googleapis.com/revoke"
)

// Provider talks to Google's OAuth token and revocation endpoints.
type Provider struct {
	clientID     string
	clientSecret string
	tokenURL     string
	revokeURL    string
	httpClient   *http.Client
}

// NewProvider creates a Google provider client.
func NewProvider(clientID, clientSecret string) *Provider {
	return &Provider{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenEndpoint,
		revokeURL:    revokeEndpoint,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// NewProviderWithEndpoints creates a provider client against custom endpoint
// URLs, used in tests.
func NewProviderWithEndpoints(clientID, clientSecret, tokenURL, revokeURL string) *Provider {
	p := NewProvider(clientID, clientSecret)
	p.tokenURL = tokenURL
	p.revokeURL = revokeURL
	return p
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (p *Provider) RefreshAccessToken(ctx context.Context, refreshToken string) (*driven.ProviderTokenResponse, error) {
	params := url.Values{
		"client_id":     {p.clientID},
		"client_secret": {p.clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token refresh failed: %s", string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		Scope       string `json:"scope"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if tokenResp.Error != "" {
		return nil, fmt.Errorf("oauth error: %s - %s", tokenResp.Error, tokenResp.ErrorDesc)
	}

	return &driven.ProviderTokenResponse{
		AccessToken: tokenResp.AccessToken,
		ExpiresIn:   tokenResp.ExpiresIn,
		Scopes:      strings.Fields(tokenResp.Scope),
	}, nil
}

// RevokeToken revokes a credential. A non-2xx status is an error; the caller
// keeps its records so the user can retry.
func (p *Provider) RevokeToken(ctx context.Context, token string) error {
	params := url.Values{"token": {token}}

	req, err := http.NewRequestWithContext(ctx, "POST", p.revokeURL, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("token revoke failed: status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
