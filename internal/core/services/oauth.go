package services

import (
	"context"
	"log/slog"

	"github.com/nimblechat/integrations-core/internal/core/domain"
	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
	"github.com/nimblechat/integrations-core/internal/core/ports/driving"
)

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

// stateTokenBytes is the random length of an OAuth state value.
const stateTokenBytes = 32

// OAuthServiceConfig holds configuration for the OAuth flow orchestrator.
type OAuthServiceConfig struct {
	// Handshake issues and redeems the correlation tokens.
	Handshake driving.HandshakeService

	// Tokens persists the exchanged credentials.
	Tokens driving.TokenService

	// Registry resolves logical services to scope sets.
	Registry *domain.ScopeRegistry

	// Client is the external OAuth client performing redirect and exchange.
	Client driven.OAuthClient

	// Cipher supplies the random state value.
	Cipher driven.SecretCipher

	Logger *slog.Logger
}

// oauthService implements the OAuthService interface.
type oauthService struct {
	handshake driving.HandshakeService
	tokens    driving.TokenService
	registry  *domain.ScopeRegistry
	client    driven.OAuthClient
	cipher    driven.SecretCipher
	logger    *slog.Logger
}

// NewOAuthService creates a new OAuth flow orchestrator.
func NewOAuthService(cfg OAuthServiceConfig) driving.OAuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &oauthService{
		handshake: cfg.Handshake,
		tokens:    cfg.Tokens,
		registry:  cfg.Registry,
		client:    cfg.Client,
		cipher:    cfg.Cipher,
		logger:    logger,
	}
}

// BeginAuth redeems the init token, registers a fresh state value and
// returns the provider authorization URL.
func (s *oauthService) BeginAuth(ctx context.Context, initToken string) (string, error) {
	pair, err := s.handshake.RedeemInit(ctx, initToken)
	if err != nil {
		return "", err
	}

	scopes, ok := s.registry.ScopesFor(pair.Service)
	if !ok {
		return "", domain.ErrInvalidService
	}

	state, err := s.cipher.RandomToken(stateTokenBytes)
	if err != nil {
		return "", err
	}
	if err := s.handshake.IssueState(ctx, pair.UserID, state, pair.Service); err != nil {
		return "", err
	}

	s.logger.Debug("starting oauth flow", "user_id", pair.UserID, "service", pair.Service)
	return s.client.AuthCodeURL(state, scopes), nil
}

// CompleteAuth closes the loop on the provider callback: redeems the state,
// exchanges the code and persists the credentials.
func (s *oauthService) CompleteAuth(ctx context.Context, state, code string) error {
	pair, err := s.handshake.RedeemState(ctx, state)
	if err != nil {
		return err
	}
	if pair == nil {
		return domain.ErrStateInvalid
	}

	exchange, err := s.client.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("code exchange failed", "user_id", pair.UserID, "error", err)
		return domain.ErrOAuthFailed
	}

	if exchange.Email == "" {
		s.logger.Error("no email in provider profile", "user_id", pair.UserID)
		return domain.ErrMissingEmail
	}
	if exchange.AccessToken == "" && exchange.RefreshToken == "" {
		return domain.ErrOAuthFailed
	}

	if exchange.AccessToken != "" {
		if _, err := s.tokens.UpsertAccessToken(ctx, driving.UpsertTokenRequest{
			UserID:    pair.UserID,
			Token:     exchange.AccessToken,
			ExpiresIn: exchange.ExpiresIn,
			Services:  exchange.Scopes,
			Email:     exchange.Email,
		}); err != nil {
			return err
		}
	}

	if exchange.RefreshToken != "" {
		if _, err := s.tokens.UpsertRefreshToken(ctx, driving.UpsertTokenRequest{
			UserID:    pair.UserID,
			Token:     exchange.RefreshToken,
			ExpiresIn: exchange.RefreshTokenExpiresIn,
			Services:  exchange.Scopes,
			Email:     exchange.Email,
		}); err != nil {
			return err
		}
	}

	s.logger.Debug("oauth flow completed", "user_id", pair.UserID, "service", pair.Service)
	return nil
}
