package mocks

import (
	"context"
	"sync"

	"github.com/nimblechat/integrations-core/internal/core/domain"
	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
)

// MockTokenStore is an in-memory implementation of TokenStore for testing
type MockTokenStore struct {
	mu      sync.RWMutex
	records []*domain.TokenRecord

	CreateErr error
	FindErr   error
	UpdateErr error
	DeleteErr error
}

// NewMockTokenStore creates a new MockTokenStore
func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{}
}

func (m *MockTokenStore) Create(ctx context.Context, record *domain.TokenRecord) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *record
	m.records = append(m.records, &clone)
	return nil
}

func (m *MockTokenStore) Find(ctx context.Context, filter driven.TokenFilter) (*domain.TokenRecord, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if matches(rec, filter) {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *MockTokenStore) Update(ctx context.Context, filter driven.TokenFilter, update driven.TokenUpdate) (*domain.TokenRecord, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if matches(rec, filter) {
			rec.Token = update.Token
			rec.ExpiresAt = update.ExpiresAt
			rec.Metadata = update.Metadata
			clone := *rec
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTokenStore) DeleteMany(ctx context.Context, filter driven.TokenFilter) (int64, error) {
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*domain.TokenRecord
	var deleted int64
	for _, rec := range m.records {
		if matches(rec, filter) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return deleted, nil
}

func (m *MockTokenStore) Cleanup(ctx context.Context) error {
	return nil
}

// Count returns the number of stored records, for test assertions.
func (m *MockTokenStore) Count(filter driven.TokenFilter) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, rec := range m.records {
		if matches(rec, filter) {
			n++
		}
	}
	return n
}

func matches(rec *domain.TokenRecord, f driven.TokenFilter) bool {
	if f.IsEmpty() {
		return false
	}
	if f.UserID != "" && rec.UserID != f.UserID {
		return false
	}
	if f.Identifier != "" && rec.Identifier != f.Identifier {
		return false
	}
	if f.Token != "" && rec.Token != f.Token {
		return false
	}
	return true
}
