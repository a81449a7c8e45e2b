package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/nimblechat/integrations-core/internal/core/domain"
	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
	"github.com/nimblechat/integrations-core/internal/core/ports/driving"
)

// Ensure handshakeService implements HandshakeService
var _ driving.HandshakeService = (*handshakeService)(nil)

// handshakeTokenBytes is the random length of an init token value.
const handshakeTokenBytes = 32

// HandshakeServiceConfig holds configuration for the handshake service.
type HandshakeServiceConfig struct {
	// Store persists the ephemeral records. May be a different store than
	// the long-lived token store (e.g. Redis with native TTL expiry).
	Store driven.TokenStore

	// Cipher supplies random token values.
	Cipher driven.SecretCipher

	// ProviderName keys the persisted records; defaults to google-workspace.
	ProviderName string

	Logger *slog.Logger
}

// handshakeService issues and redeems the single-use init and state tokens
// binding the OAuth redirect legs to a known user.
type handshakeService struct {
	store  driven.TokenStore
	cipher driven.SecretCipher
	name   string
	logger *slog.Logger
}

// NewHandshakeService creates a new handshake service.
func NewHandshakeService(cfg HandshakeServiceConfig) driving.HandshakeService {
	name := cfg.ProviderName
	if name == "" {
		name = domain.ProviderGoogleWorkspace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &handshakeService{
		store:  cfg.Store,
		cipher: cfg.Cipher,
		name:   name,
		logger: logger,
	}
}

// IssueInit mints an init token and returns its opaque value. The value
// travels outside the system and is later looked up purely by token value.
func (s *handshakeService) IssueInit(ctx context.Context, userID, service string) (string, error) {
	value, err := s.cipher.RandomToken(handshakeTokenBytes)
	if err != nil {
		return "", err
	}
	if err := s.create(ctx, domain.TokenKindInit, userID, value, service); err != nil {
		return "", err
	}
	s.logger.Debug("init token issued", "user_id", userID, "service", service)
	return value, nil
}

// IssueState records a caller-supplied OAuth state value.
func (s *handshakeService) IssueState(ctx context.Context, userID, state, service string) error {
	return s.create(ctx, domain.TokenKindState, userID, state, service)
}

func (s *handshakeService) create(ctx context.Context, kind domain.TokenKind, userID, value, service string) error {
	now := time.Now()
	return s.store.Create(ctx, &domain.TokenRecord{
		UserID:     userID,
		Identifier: domain.HandshakeIdentifier(s.name, userID, now),
		Kind:       kind,
		Token:      value,
		ExpiresAt:  now.Add(domain.HandshakeTokenTTL),
		CreatedAt:  now,
		Metadata: domain.TokenMetadata{
			Provider: s.name,
			Service:  service,
			UserID:   userID,
		},
	})
}

// RedeemInit resolves and consumes an init token. Expired tokens are deleted
// and reported as expired; redeemed tokens never resolve twice.
func (s *handshakeService) RedeemInit(ctx context.Context, token string) (*driving.HandshakePair, error) {
	record, err := s.store.Find(ctx, driven.TokenFilter{Token: token})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrTokenInvalid
	}
	if record.IsExpired() {
		if _, err := s.store.DeleteMany(ctx, driven.TokenFilter{Token: record.Token}); err != nil {
			s.logger.Error("failed to delete expired init token", "error", err)
		}
		return nil, domain.ErrTokenExpired
	}

	userID := record.Metadata.UserID
	if userID == "" {
		userID = record.UserID
	}
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	if record.Metadata.Service == "" {
		return nil, domain.ErrInvalidService
	}

	if _, err := s.store.DeleteMany(ctx, driven.TokenFilter{Token: record.Token}); err != nil {
		return nil, err
	}

	return &driving.HandshakePair{UserID: userID, Service: record.Metadata.Service}, nil
}

// RedeemState resolves and consumes a state value from the provider
// callback. The record is deleted once found regardless of outcome, so a
// state can never be redeemed twice; every anomaly yields nil, nil.
func (s *handshakeService) RedeemState(ctx context.Context, state string) (*driving.HandshakePair, error) {
	record, err := s.store.Find(ctx, driven.TokenFilter{Token: state})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	if record.IsExpired() {
		if _, err := s.store.DeleteMany(ctx, driven.TokenFilter{Token: record.Token}); err != nil {
			s.logger.Error("failed to delete expired state token", "error", err)
		}
		return nil, nil
	}

	stored := record.Token
	userID := record.Metadata.UserID
	service := record.Metadata.Service

	if _, err := s.store.DeleteMany(ctx, driven.TokenFilter{Token: record.Token}); err != nil {
		return nil, err
	}

	if service == "" || userID == "" || stored == "" {
		return nil, nil
	}
	if state != stored {
		// Possible tampering signal.
		s.logger.Warn("state mismatch", "user_id", userID)
		return nil, nil
	}

	return &driving.HandshakePair{UserID: userID, Service: service}, nil
}
