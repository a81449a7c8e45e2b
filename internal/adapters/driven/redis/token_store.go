package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimblechat/integrations-core/internal/core/domain"
	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TokenStore = (*TokenStore)(nil)

const (
	// Key prefixes for Redis
	tokenPrefix      = "integration:token:"
	tokenValuePrefix = "integration:token:value:"
	tokenUserPrefix  = "integration:token:user:"
)

// TokenStore implements driven.TokenStore using Redis.
// Records rely on Redis TTL for expiry, which makes this store a natural
// home for the short-lived handshake records: expired entries simply vanish
// and are observed as absent, exactly what the redeem paths expect.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore creates a new Redis-backed TokenStore
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// Create stores a record with TTL based on ExpiresAt
func (s *TokenStore) Create(ctx context.Context, record *domain.TokenRecord) error {
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		// Record already expired: don't save, and drop any previous copy so
		// an Update carrying a past expiry cannot leave stale keys behind
		pipe := s.client.Pipeline()
		pipe.Del(ctx, tokenPrefix+record.Identifier)
		pipe.Del(ctx, tokenValuePrefix+record.Token)
		pipe.SRem(ctx, tokenUserPrefix+record.UserID, record.Identifier)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop expired token record: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	// Use pipeline for atomic operations
	pipe := s.client.Pipeline()

	// Store record by identifier
	pipe.Set(ctx, tokenPrefix+record.Identifier, data, ttl)

	// Index by token value
	pipe.Set(ctx, tokenValuePrefix+record.Token, record.Identifier, ttl)

	// Add to user's record set
	pipe.SAdd(ctx, tokenUserPrefix+record.UserID, record.Identifier)
	pipe.Expire(ctx, tokenUserPrefix+record.UserID, 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save token record: %w", err)
	}

	return nil
}

// Find returns the first record matching the filter, or nil, nil when absent.
func (s *TokenStore) Find(ctx context.Context, filter driven.TokenFilter) (*domain.TokenRecord, error) {
	if filter.IsEmpty() {
		return nil, fmt.Errorf("empty token filter")
	}

	identifiers, err := s.resolveIdentifiers(ctx, filter)
	if err != nil {
		return nil, err
	}

	for _, id := range identifiers {
		record, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if record != nil && matches(record, filter) {
			return record, nil
		}
	}

	return nil, nil
}

// Update applies the patch to the matching record and returns it.
func (s *TokenStore) Update(ctx context.Context, filter driven.TokenFilter, update driven.TokenUpdate) (*domain.TokenRecord, error) {
	record, err := s.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}

	// Drop the old value index before the token changes
	if record.Token != update.Token {
		s.client.Del(ctx, tokenValuePrefix+record.Token)
	}

	record.Token = update.Token
	record.ExpiresAt = update.ExpiresAt
	record.Metadata = update.Metadata

	if err := s.Create(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// DeleteMany removes every record matching the filter.
func (s *TokenStore) DeleteMany(ctx context.Context, filter driven.TokenFilter) (int64, error) {
	if filter.IsEmpty() {
		return 0, fmt.Errorf("empty token filter")
	}

	identifiers, err := s.resolveIdentifiers(ctx, filter)
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, id := range identifiers {
		record, err := s.get(ctx, id)
		if err != nil {
			return deleted, err
		}
		if record == nil || !matches(record, filter) {
			continue
		}

		pipe := s.client.Pipeline()
		pipe.Del(ctx, tokenPrefix+record.Identifier)
		pipe.Del(ctx, tokenValuePrefix+record.Token)
		pipe.SRem(ctx, tokenUserPrefix+record.UserID, record.Identifier)
		if _, err := pipe.Exec(ctx); err != nil {
			return deleted, fmt.Errorf("failed to delete token record: %w", err)
		}
		deleted++
	}

	return deleted, nil
}

// Cleanup is a no-op: Redis TTL expires records natively.
func (s *TokenStore) Cleanup(ctx context.Context) error {
	return nil
}

// get retrieves a record by identifier, nil when absent.
func (s *TokenStore) get(ctx context.Context, identifier string) (*domain.TokenRecord, error) {
	data, err := s.client.Get(ctx, tokenPrefix+identifier).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token record: %w", err)
	}

	var record domain.TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token record: %w", err)
	}

	return &record, nil
}

// resolveIdentifiers lists candidate record identifiers for a filter, using
// the narrowest available index.
func (s *TokenStore) resolveIdentifiers(ctx context.Context, filter driven.TokenFilter) ([]string, error) {
	if filter.Identifier != "" {
		return []string{filter.Identifier}, nil
	}

	if filter.Token != "" {
		id, err := s.client.Get(ctx, tokenValuePrefix+filter.Token).Result()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve token value: %w", err)
		}
		return []string{id}, nil
	}

	ids, err := s.client.SMembers(ctx, tokenUserPrefix+filter.UserID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user token records: %w", err)
	}
	return ids, nil
}

func matches(record *domain.TokenRecord, f driven.TokenFilter) bool {
	if f.UserID != "" && record.UserID != f.UserID {
		return false
	}
	if f.Identifier != "" && record.Identifier != f.Identifier {
		return false
	}
	if f.Token != "" && record.Token != f.Token {
		return false
	}
	return true
}
