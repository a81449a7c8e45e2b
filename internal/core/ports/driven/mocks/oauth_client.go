package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
)

// MockOAuthClient is a fake OAuth redirect client for testing
type MockOAuthClient struct {
	mu sync.Mutex

	ExchangeResp *driven.OAuthExchange
	ExchangeErr  error

	exchangeCalls int
	lastCode      string
	lastState     string
	lastScopes    []string
}

// NewMockOAuthClient creates a new MockOAuthClient
func NewMockOAuthClient() *MockOAuthClient {
	return &MockOAuthClient{}
}

func (m *MockOAuthClient) AuthCodeURL(state string, scopes []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastState = state
	m.lastScopes = append([]string(nil), scopes...)
	return fmt.Sprintf("https://provider.example.com/auth?state=%s&scope=%s",
		state, strings.Join(scopes, "+"))
}

func (m *MockOAuthClient) Exchange(ctx context.Context, code string) (*driven.OAuthExchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchangeCalls++
	m.lastCode = code
	if m.ExchangeErr != nil {
		return nil, m.ExchangeErr
	}
	return m.ExchangeResp, nil
}

// LastState returns the state value passed to AuthCodeURL.
func (m *MockOAuthClient) LastState() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastState
}

// LastScopes returns the scopes passed to AuthCodeURL.
func (m *MockOAuthClient) LastScopes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastScopes
}

// ExchangeCalls returns how many times Exchange was invoked.
func (m *MockOAuthClient) ExchangeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchangeCalls
}
