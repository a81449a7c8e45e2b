package mocks

import (
	"context"
	"sync"

	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
)

// MockProviderClient is a fake OAuth provider for testing
type MockProviderClient struct {
	mu sync.Mutex

	RefreshResp *driven.ProviderTokenResponse
	RefreshErr  error
	RevokeErr   error

	refreshCalls int
	revokeCalls  int
	lastRefresh  string
	lastRevoked  string
}

// NewMockProviderClient creates a new MockProviderClient
func NewMockProviderClient() *MockProviderClient {
	return &MockProviderClient{}
}

func (m *MockProviderClient) RefreshAccessToken(ctx context.Context, refreshToken string) (*driven.ProviderTokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls++
	m.lastRefresh = refreshToken
	if m.RefreshErr != nil {
		return nil, m.RefreshErr
	}
	return m.RefreshResp, nil
}

func (m *MockProviderClient) RevokeToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeCalls++
	m.lastRevoked = token
	return m.RevokeErr
}

// RefreshCalls returns how many times RefreshAccessToken was invoked.
func (m *MockProviderClient) RefreshCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls
}

// RevokeCalls returns how many times RevokeToken was invoked.
func (m *MockProviderClient) RevokeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revokeCalls
}

// LastRefreshToken returns the refresh token passed to the last refresh call.
func (m *MockProviderClient) LastRefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRefresh
}

// LastRevokedToken returns the token passed to the last revoke call.
func (m *MockProviderClient) LastRevokedToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRevoked
}
