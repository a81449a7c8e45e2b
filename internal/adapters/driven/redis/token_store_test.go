package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nimblechat/integrations-core/internal/core/domain"
	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
)

// setupTestTokenStore creates a test Redis client and TokenStore
func setupTestTokenStore(t *testing.T) (*TokenStore, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewTokenStore(client)

	return store, mr, func() {
		client.Close()
		mr.Close()
	}
}

// createTestRecord creates an init record with default values
func createTestRecord(userID, token string) *domain.TokenRecord {
	now := time.Now()
	return &domain.TokenRecord{
		UserID:     userID,
		Identifier: domain.HandshakeIdentifier(domain.ProviderGoogleWorkspace, userID, now),
		Kind:       domain.TokenKindInit,
		Token:      token,
		ExpiresAt:  now.Add(domain.HandshakeTokenTTL),
		CreatedAt:  now,
		Metadata: domain.TokenMetadata{
			Provider: domain.ProviderGoogleWorkspace,
			Service:  "gmail",
			UserID:   userID,
		},
	}
}

func TestTokenStore_CreateAndFind(t *testing.T) {
	store, _, cleanup := setupTestTokenStore(t)
	defer cleanup()

	ctx := context.Background()
	record := createTestRecord("user-1", "token-abc")

	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("unexpected error creating record: %v", err)
	}

	// Lookup by token value
	found, err := store.Find(ctx, driven.TokenFilter{Token: "token-abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found == nil {
		t.Fatal("expected record to be found")
	}
	if found.UserID != "user-1" {
		t.Errorf("expected UserID user-1, got %s", found.UserID)
	}
	if found.Metadata.Service != "gmail" {
		t.Errorf("expected service gmail, got %s", found.Metadata.Service)
	}

	// Lookup by identifier
	found, err = store.Find(ctx, driven.TokenFilter{Identifier: record.Identifier})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found == nil || found.Token != "token-abc" {
		t.Errorf("expected record by identifier, got %+v", found)
	}

	// Lookup by user
	found, err = store.Find(ctx, driven.TokenFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found == nil {
		t.Error("expected record by user")
	}
}

func TestTokenStore_Create_AlreadyExpired(t *testing.T) {
	store, _, cleanup := setupTestTokenStore(t)
	defer cleanup()

	ctx := context.Background()
	record := createTestRecord("user-1", "token-abc")
	record.ExpiresAt = time.Now().Add(-time.Minute)

	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, err := store.Find(ctx, driven.TokenFilter{Token: "token-abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != nil {
		t.Error("expected expired record not to be stored")
	}
}

func TestTokenStore_Find_Absent(t *testing.T) {
	store, _, cleanup := setupTestTokenStore(t)
	defer cleanup()

	found, err := store.Find(context.Background(), driven.TokenFilter{Token: "never-stored"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != nil {
		t.Errorf("expected nil for absent record, got %+v", found)
	}
}

func TestTokenStore_Find_EmptyFilter(t *testing.T) {
	store, _, cleanup := setupTestTokenStore(t)
	defer cleanup()

	if _, err := store.Find(context.Background(), driven.TokenFilter{}); err == nil {
		t.Error("expected error for empty filter")
	}
}

func TestTokenStore_TTLExpiry(t *testing.T) {
	store, mr, cleanup := setupTestTokenStore(t)
	defer cleanup()

	ctx := context.Background()
	record := createTestRecord("user-1", "token-abc")

	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Advance past the handshake TTL; the record must be observed as absent
	mr.FastForward(domain.HandshakeTokenTTL + time.Second)

	found, err := store.Find(ctx, driven.TokenFilter{Token: "token-abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != nil {
		t.Error("expected record to expire")
	}
}

func TestTokenStore_Update(t *testing.T) {
	store, _, cleanup := setupTestTokenStore(t)
	defer cleanup()

	ctx := context.Background()
	record := createTestRecord("user-1", "token-old")
	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := store.Update(ctx, driven.TokenFilter{Token: "token-old"}, driven.TokenUpdate{
		Token:     "token-new",
		ExpiresAt: time.Now().Add(domain.HandshakeTokenTTL),
		Metadata: domain.TokenMetadata{
			Provider: domain.ProviderGoogleWorkspace,
			Service:  "drive",
			UserID:   "user-1",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Token != "token-new" {
		t.Errorf("expected updated token, got %s", updated.Token)
	}

	// Old value index must be gone
	found, err := store.Find(ctx, driven.TokenFilter{Token: "token-old"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != nil {
		t.Error("expected old token value to no longer resolve")
	}

	found, err = store.Find(ctx, driven.TokenFilter{Token: "token-new"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found == nil || found.Metadata.Service != "drive" {
		t.Errorf("expected updated record by new value, got %+v", found)
	}
}

func TestTokenStore_Update_NotFound(t *testing.T) {
	store, _, cleanup := setupTestTokenStore(t)
	defer cleanup()

	_, err := store.Update(context.Background(), driven.TokenFilter{Token: "absent"}, driven.TokenUpdate{
		Token:     "whatever",
		ExpiresAt: time.Now().Add(time.Minute),
	})
	if err != domain.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenStore_Update_PastExpiry(t *testing.T) {
	store, _, cleanup := setupTestTokenStore(t)
	defer cleanup()

	ctx := context.Background()
	record := createTestRecord("user-1", "token-abc")
	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("unexpected error creating record: %v", err)
	}

	// Back-dating the expiry must remove the record entirely, indexes included
	_, err := store.Update(ctx, driven.TokenFilter{Identifier: record.Identifier}, driven.TokenUpdate{
		Token:     "token-new",
		ExpiresAt: time.Now().Add(-time.Minute),
		Metadata:  record.Metadata,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, err := store.Find(ctx, driven.TokenFilter{Identifier: record.Identifier})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != nil {
		t.Error("expected record to be gone after expired update")
	}

	for _, token := range []string{"token-abc", "token-new"} {
		found, err = store.Find(ctx, driven.TokenFilter{Token: token})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found != nil {
			t.Errorf("expected no record via token %s", token)
		}
	}
}

func TestTokenStore_DeleteMany(t *testing.T) {
	store, _, cleanup := setupTestTokenStore(t)
	defer cleanup()

	ctx := context.Background()
	if err := store.Create(ctx, createTestRecord("user-1", "token-a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(time.Millisecond) // distinct identifiers
	if err := store.Create(ctx, createTestRecord("user-1", "token-b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleted, err := store.DeleteMany(ctx, driven.TokenFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deletions, got %d", deleted)
	}

	found, err := store.Find(ctx, driven.TokenFilter{Token: "token-a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != nil {
		t.Error("expected records to be deleted")
	}
}

func TestTokenStore_DeleteMany_NoMatch(t *testing.T) {
	store, _, cleanup := setupTestTokenStore(t)
	defer cleanup()

	deleted, err := store.DeleteMany(context.Background(), driven.TokenFilter{Token: "absent"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deletions, got %d", deleted)
	}
}
