package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nimblechat/integrations-core/internal/core/domain"
	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
	"github.com/nimblechat/integrations-core/internal/core/ports/driving"
)

// Ensure tokenService implements TokenService
var _ driving.TokenService = (*tokenService)(nil)

// TokenServiceConfig holds configuration for the token lifecycle service.
type TokenServiceConfig struct {
	// Store persists token records.
	Store driven.TokenStore

	// Cipher encrypts credentials at rest.
	Cipher driven.SecretCipher

	// Provider talks to the OAuth provider's token and revoke endpoints.
	Provider driven.ProviderClient

	// Registry maps granted scopes back to logical service names.
	Registry *domain.ScopeRegistry

	// ProviderName keys the persisted records; defaults to google-workspace.
	ProviderName string

	Logger *slog.Logger
}

// tokenService implements the TokenService interface.
type tokenService struct {
	store    driven.TokenStore
	cipher   driven.SecretCipher
	provider driven.ProviderClient
	registry *domain.ScopeRegistry
	name     string
	logger   *slog.Logger
}

// NewTokenService creates a new token lifecycle service.
func NewTokenService(cfg TokenServiceConfig) driving.TokenService {
	name := cfg.ProviderName
	if name == "" {
		name = domain.ProviderGoogleWorkspace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &tokenService{
		store:    cfg.Store,
		cipher:   cfg.Cipher,
		provider: cfg.Provider,
		registry: cfg.Registry,
		name:     name,
		logger:   logger,
	}
}

// FindAccessToken looks up the user's access token record.
// Absence is a normal result (nil, nil).
func (s *tokenService) FindAccessToken(ctx context.Context, userID string) (*domain.TokenRecord, error) {
	return s.store.Find(ctx, driven.TokenFilter{
		UserID:     userID,
		Identifier: domain.AccessTokenIdentifier(s.name, userID),
	})
}

// FindRefreshToken looks up the user's refresh token record.
func (s *tokenService) FindRefreshToken(ctx context.Context, userID string) (*domain.TokenRecord, error) {
	return s.store.Find(ctx, driven.TokenFilter{
		UserID:     userID,
		Identifier: domain.RefreshTokenIdentifier(s.name, userID),
	})
}

// UpsertAccessToken updates the user's access token in place, creating it
// when absent. New email and services values win; omitted ones fall back to
// the previous record's metadata.
func (s *tokenService) UpsertAccessToken(ctx context.Context, req driving.UpsertTokenRequest) (*domain.TokenRecord, error) {
	return s.upsert(ctx, req, domain.TokenKindAccess, domain.DefaultAccessTokenTTL, false)
}

// UpsertRefreshToken has the same update-if-present semantics. A refresh
// token is meaningless without knowing who it authorizes and for what, so
// creating a fresh record without email or services is a silent no-op.
func (s *tokenService) UpsertRefreshToken(ctx context.Context, req driving.UpsertTokenRequest) (*domain.TokenRecord, error) {
	return s.upsert(ctx, req, domain.TokenKindRefresh, domain.DefaultRefreshTokenTTL, true)
}

func (s *tokenService) upsert(ctx context.Context, req driving.UpsertTokenRequest, kind domain.TokenKind, defaultTTL time.Duration, requireIdentity bool) (*domain.TokenRecord, error) {
	identifier := domain.AccessTokenIdentifier(s.name, req.UserID)
	if kind == domain.TokenKindRefresh {
		identifier = domain.RefreshTokenIdentifier(s.name, req.UserID)
	}
	filter := driven.TokenFilter{UserID: req.UserID, Identifier: identifier}

	previous, err := s.store.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	ciphertext, err := s.cipher.EncryptString(req.Token)
	if err != nil {
		return nil, err
	}

	ttl := defaultTTL
	if req.ExpiresIn > 0 {
		ttl = time.Duration(req.ExpiresIn) * time.Second
	}
	now := time.Now()

	email := req.Email
	services := req.Services
	if previous != nil {
		if email == "" {
			email = previous.Metadata.Email
		}
		if len(services) == 0 {
			services = previous.Metadata.Services
		}

		updated, err := s.store.Update(ctx, filter, driven.TokenUpdate{
			Token:     ciphertext,
			ExpiresAt: now.Add(ttl),
			Metadata: domain.TokenMetadata{
				Provider: s.name,
				Email:    email,
				Services: services,
			},
		})
		if err == nil {
			return updated, nil
		}
		if err != domain.ErrNotFound {
			return nil, err
		}
		// Record vanished between find and update; fall through to create.
	}

	if requireIdentity && (email == "" || len(services) == 0) {
		return nil, nil
	}

	record := &domain.TokenRecord{
		UserID:     req.UserID,
		Identifier: identifier,
		Kind:       kind,
		Token:      ciphertext,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
		Metadata: domain.TokenMetadata{
			Provider: s.name,
			Email:    email,
			Services: services,
		},
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Refresh mints a new access token from the stored refresh token. Every
// failure path collapses to domain.ErrRefreshUnavailable - the caller must
// treat it as "user must re-authorize", never as an exception.
func (s *tokenService) Refresh(ctx context.Context, userID string) (*domain.TokenRecord, error) {
	s.logger.Debug("refreshing access token", "user_id", userID)

	refresh, err := s.FindRefreshToken(ctx, userID)
	if err != nil {
		s.logger.Error("refresh token lookup failed", "user_id", userID, "error", err)
		return nil, domain.ErrRefreshUnavailable
	}
	if refresh == nil {
		s.logger.Debug("no refresh token", "user_id", userID)
		return nil, domain.ErrRefreshUnavailable
	}
	if refresh.IsExpired() {
		s.logger.Warn("refresh token expired", "user_id", userID)
		return nil, domain.ErrRefreshUnavailable
	}

	plaintext, err := s.cipher.DecryptString(refresh.Token)
	if err != nil {
		s.logger.Error("refresh token decrypt failed", "user_id", userID, "error", err)
		return nil, domain.ErrRefreshUnavailable
	}

	resp, err := s.provider.RefreshAccessToken(ctx, plaintext)
	if err != nil {
		s.logger.Error("provider refresh failed", "user_id", userID, "error", err)
		return nil, domain.ErrRefreshUnavailable
	}

	if resp == nil {
		s.logger.Error("provider returned no refresh response", "user_id", userID)
		return nil, domain.ErrRefreshUnavailable
	}

	email := refresh.Metadata.Email
	if resp.AccessToken == "" || email == "" || len(resp.Scopes) == 0 {
		s.logger.Error("unusable refresh response", "user_id", userID)
		return nil, domain.ErrRefreshUnavailable
	}

	record, err := s.UpsertAccessToken(ctx, driving.UpsertTokenRequest{
		UserID:    userID,
		Token:     resp.AccessToken,
		ExpiresIn: resp.ExpiresIn,
		Services:  resp.Scopes,
		Email:     email,
	})
	if err != nil || record == nil {
		s.logger.Error("failed to persist refreshed access token", "user_id", userID, "error", err)
		return nil, domain.ErrRefreshUnavailable
	}
	return record, nil
}

// currentAccessRecord returns the stored access token record, refreshing
// first when it is absent or expires within the safety margin.
func (s *tokenService) currentAccessRecord(ctx context.Context, userID string) (*domain.TokenRecord, error) {
	record, err := s.FindAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		s.logger.Debug("no access token, refreshing", "user_id", userID)
		return s.Refresh(ctx, userID)
	}
	if record.ExpiresWithin(domain.RefreshMargin) {
		s.logger.Debug("access token near expiry, refreshing", "user_id", userID)
		return s.Refresh(ctx, userID)
	}
	return record, nil
}

// UsableAccessToken returns a decrypted access token the caller can never
// observe as expired.
func (s *tokenService) UsableAccessToken(ctx context.Context, userID string) (*driving.AccessToken, error) {
	record, err := s.currentAccessRecord(ctx, userID)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.cipher.DecryptString(record.Token)
	if err != nil {
		s.logger.Error("access token decrypt failed", "user_id", userID, "error", err)
		return nil, domain.ErrRefreshUnavailable
	}

	return &driving.AccessToken{
		Token:     plaintext,
		Email:     record.Metadata.Email,
		Scopes:    record.Metadata.Services,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// Revoke revokes the current access token at the provider, then deletes both
// token records. A provider rejection deletes nothing so the user can retry.
func (s *tokenService) Revoke(ctx context.Context, userID string) (*driving.RevokeResult, error) {
	record, err := s.currentAccessRecord(ctx, userID)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	plaintext, err := s.cipher.DecryptString(record.Token)
	if err != nil {
		return nil, err
	}

	if err := s.provider.RevokeToken(ctx, plaintext); err != nil {
		s.logger.Error("provider revoke failed", "user_id", userID, "error", err)
		return nil, domain.ErrRevokeFailed
	}

	accessDeleted, err := s.store.DeleteMany(ctx, driven.TokenFilter{
		Identifier: domain.AccessTokenIdentifier(s.name, userID),
	})
	if err != nil {
		return nil, err
	}
	if accessDeleted < 1 {
		s.logger.Warn("no access token record to delete", "user_id", userID)
	} else {
		s.logger.Info("access token deleted", "user_id", userID)
	}

	refreshDeleted, err := s.store.DeleteMany(ctx, driven.TokenFilter{
		Identifier: domain.RefreshTokenIdentifier(s.name, userID),
	})
	if err != nil {
		return nil, err
	}
	if refreshDeleted < 1 {
		s.logger.Warn("no refresh token record to delete", "user_id", userID)
	} else {
		s.logger.Info("refresh token deleted", "user_id", userID)
	}

	return &driving.RevokeResult{
		AccessTokensDeleted:  accessDeleted,
		RefreshTokensDeleted: refreshDeleted,
	}, nil
}

// EnabledServices resolves the current access token and maps its granted
// scopes to logical service names, deduplicated. No usable token or no scope
// metadata yields the empty set; only a failed store lookup is an error.
func (s *tokenService) EnabledServices(ctx context.Context, userID string) ([]string, error) {
	record, err := s.currentAccessRecord(ctx, userID)
	if errors.Is(err, domain.ErrRefreshUnavailable) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if record == nil {
		return []string{}, nil
	}
	if len(record.Metadata.Services) == 0 {
		s.logger.Warn("access token has no services metadata", "user_id", userID)
		return []string{}, nil
	}

	seen := make(map[string]bool)
	enabled := []string{}
	for _, scope := range record.Metadata.Services {
		service, ok := s.registry.ServiceFor(scope)
		if !ok || seen[service] {
			continue
		}
		seen[service] = true
		enabled = append(enabled, service)
	}
	return enabled, nil
}
