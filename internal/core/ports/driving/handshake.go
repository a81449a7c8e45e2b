package driving

import "context"

// HandshakePair identifies which user requested which logical service,
// recovered when a handshake token is redeemed.
type HandshakePair struct {
	UserID  string
	Service string
}

// HandshakeService issues and redeems the single-use, time-boxed correlation
// tokens that tie the two legs of the OAuth redirect flow back to a user.
type HandshakeService interface {
	// IssueInit mints an init token for the user and requested service and
	// returns its opaque value, to be embedded in a follow-up URL.
	IssueInit(ctx context.Context, userID, service string) (string, error)

	// RedeemInit resolves an init token by value and consumes it. Fails
	// with domain.ErrTokenInvalid, ErrTokenExpired, ErrInvalidUser or
	// ErrInvalidService.
	RedeemInit(ctx context.Context, token string) (*HandshakePair, error)

	// IssueState records a caller-supplied OAuth state value for the user
	// and service.
	IssueState(ctx context.Context, userID, state, service string) error

	// RedeemState resolves a state value from the provider callback and
	// consumes the record. Any anomaly (absent, expired, missing metadata,
	// value mismatch) yields nil, nil - the true pair must never leak.
	RedeemState(ctx context.Context, state string) (*HandshakePair, error)
}
