package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nimblechat/integrations-core/internal/core/domain"
	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
	"github.com/nimblechat/integrations-core/internal/core/ports/driven/mocks"
	"github.com/nimblechat/integrations-core/internal/core/ports/driving"
)

func newTestHandshakeService() (*mocks.MockTokenStore, driving.HandshakeService) {
	store := mocks.NewMockTokenStore()
	svc := NewHandshakeService(HandshakeServiceConfig{
		Store:  store,
		Cipher: mocks.NewMockSecretCipher(),
	})
	return store, svc
}

func TestHandshakeService_InitRoundtrip(t *testing.T) {
	store, svc := newTestHandshakeService()
	ctx := context.Background()

	token, err := svc.IssueInit(ctx, "user-123", "gmail")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token value")
	}

	pair, err := svc.RedeemInit(ctx, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.UserID != "user-123" || pair.Service != "gmail" {
		t.Errorf("unexpected pair: %+v", pair)
	}

	// Redemption consumes the record
	if got := store.Count(driven.TokenFilter{Token: token}); got != 0 {
		t.Errorf("expected record to be consumed, %d remain", got)
	}
}

func TestHandshakeService_RedeemInit_SingleUse(t *testing.T) {
	_, svc := newTestHandshakeService()
	ctx := context.Background()

	token, err := svc.IssueInit(ctx, "user-123", "gmail")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.RedeemInit(ctx, token); err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}

	_, err = svc.RedeemInit(ctx, token)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid on second redemption, got %v", err)
	}
}

func TestHandshakeService_RedeemInit_Unknown(t *testing.T) {
	_, svc := newTestHandshakeService()

	_, err := svc.RedeemInit(context.Background(), "never-issued")
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestHandshakeService_RedeemInit_Expired(t *testing.T) {
	store, svc := newTestHandshakeService()
	ctx := context.Background()

	token, err := svc.IssueInit(ctx, "user-123", "gmail")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Push the record past its expiry
	if _, err := store.Update(ctx, driven.TokenFilter{Token: token}, driven.TokenUpdate{
		Token:     token,
		ExpiresAt: time.Now().Add(-time.Second),
		Metadata: domain.TokenMetadata{
			Provider: domain.ProviderGoogleWorkspace,
			Service:  "gmail",
			UserID:   "user-123",
		},
	}); err != nil {
		t.Fatalf("failed to expire record: %v", err)
	}

	_, err = svc.RedeemInit(ctx, token)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}

	// Expired records are deleted on redemption
	if got := store.Count(driven.TokenFilter{Token: token}); got != 0 {
		t.Errorf("expected expired record to be deleted, %d remain", got)
	}
}

func TestHandshakeService_RedeemInit_MissingService(t *testing.T) {
	store, svc := newTestHandshakeService()
	ctx := context.Background()

	now := time.Now()
	if err := store.Create(ctx, &domain.TokenRecord{
		UserID:     "user-123",
		Identifier: domain.HandshakeIdentifier(domain.ProviderGoogleWorkspace, "user-123", now),
		Kind:       domain.TokenKindInit,
		Token:      "raw-token",
		ExpiresAt:  now.Add(domain.HandshakeTokenTTL),
		CreatedAt:  now,
		Metadata: domain.TokenMetadata{
			Provider: domain.ProviderGoogleWorkspace,
			UserID:   "user-123",
		},
	}); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	_, err := svc.RedeemInit(ctx, "raw-token")
	if !errors.Is(err, domain.ErrInvalidService) {
		t.Errorf("expected ErrInvalidService, got %v", err)
	}
}

func TestHandshakeService_RedeemInit_MissingUser(t *testing.T) {
	store, svc := newTestHandshakeService()
	ctx := context.Background()

	now := time.Now()
	if err := store.Create(ctx, &domain.TokenRecord{
		Identifier: domain.HandshakeIdentifier(domain.ProviderGoogleWorkspace, "", now),
		Kind:       domain.TokenKindInit,
		Token:      "raw-token",
		ExpiresAt:  now.Add(domain.HandshakeTokenTTL),
		CreatedAt:  now,
		Metadata: domain.TokenMetadata{
			Provider: domain.ProviderGoogleWorkspace,
			Service:  "gmail",
		},
	}); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	_, err := svc.RedeemInit(ctx, "raw-token")
	if !errors.Is(err, domain.ErrInvalidUser) {
		t.Errorf("expected ErrInvalidUser, got %v", err)
	}
}

func TestHandshakeService_StateRoundtrip(t *testing.T) {
	store, svc := newTestHandshakeService()
	ctx := context.Background()

	if err := svc.IssueState(ctx, "user-123", "state-value", "drive"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pair, err := svc.RedeemState(ctx, "state-value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair == nil {
		t.Fatal("expected pair to be returned")
	}
	if pair.UserID != "user-123" || pair.Service != "drive" {
		t.Errorf("unexpected pair: %+v", pair)
	}

	if got := store.Count(driven.TokenFilter{Token: "state-value"}); got != 0 {
		t.Errorf("expected record to be consumed, %d remain", got)
	}
}

func TestHandshakeService_RedeemState_Unknown(t *testing.T) {
	_, svc := newTestHandshakeService()

	pair, err := svc.RedeemState(context.Background(), "never-issued")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair != nil {
		t.Errorf("expected nil pair for unknown state, got %+v", pair)
	}
}

func TestHandshakeService_RedeemState_SingleUse(t *testing.T) {
	_, svc := newTestHandshakeService()
	ctx := context.Background()

	if err := svc.IssueState(ctx, "user-123", "state-value", "drive"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pair, err := svc.RedeemState(ctx, "state-value"); err != nil || pair == nil {
		t.Fatalf("first redemption failed: pair=%v err=%v", pair, err)
	}

	pair, err := svc.RedeemState(ctx, "state-value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair != nil {
		t.Errorf("expected nil pair on second redemption, got %+v", pair)
	}
}

func TestHandshakeService_RedeemState_Expired(t *testing.T) {
	store, svc := newTestHandshakeService()
	ctx := context.Background()

	if err := svc.IssueState(ctx, "user-123", "state-value", "drive"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Update(ctx, driven.TokenFilter{Token: "state-value"}, driven.TokenUpdate{
		Token:     "state-value",
		ExpiresAt: time.Now().Add(-time.Second),
		Metadata: domain.TokenMetadata{
			Provider: domain.ProviderGoogleWorkspace,
			Service:  "drive",
			UserID:   "user-123",
		},
	}); err != nil {
		t.Fatalf("failed to expire record: %v", err)
	}

	pair, err := svc.RedeemState(ctx, "state-value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair != nil {
		t.Errorf("expected nil pair for expired state, got %+v", pair)
	}
	if got := store.Count(driven.TokenFilter{Token: "state-value"}); got != 0 {
		t.Errorf("expected expired record to be deleted, %d remain", got)
	}
}

func TestHandshakeService_RedeemState_MissingMetadata(t *testing.T) {
	store, svc := newTestHandshakeService()
	ctx := context.Background()

	now := time.Now()
	if err := store.Create(ctx, &domain.TokenRecord{
		UserID:     "user-123",
		Identifier: domain.HandshakeIdentifier(domain.ProviderGoogleWorkspace, "user-123", now),
		Kind:       domain.TokenKindState,
		Token:      "state-value",
		ExpiresAt:  now.Add(domain.HandshakeTokenTTL),
		CreatedAt:  now,
		Metadata: domain.TokenMetadata{
			Provider: domain.ProviderGoogleWorkspace,
			// No service, no user
		},
	}); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	pair, err := svc.RedeemState(ctx, "state-value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair != nil {
		t.Errorf("expected nil pair for metadata-less record, got %+v", pair)
	}
	// The record is still consumed
	if got := store.Count(driven.TokenFilter{Token: "state-value"}); got != 0 {
		t.Errorf("expected record to be consumed, %d remain", got)
	}
}
