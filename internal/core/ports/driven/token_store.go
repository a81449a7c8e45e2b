package driven

import (
	"context"
	"time"

	"github.com/nimblechat/integrations-core/internal/core/domain"
)

// TokenFilter is an equality predicate over token records.
// Zero-valued fields are ignored; at least one field must be set.
type TokenFilter struct {
	UserID     string
	Identifier string
	Token      string
}

// IsEmpty reports whether no predicate field is set.
func (f TokenFilter) IsEmpty() bool {
	return f.UserID == "" && f.Identifier == "" && f.Token == ""
}

// TokenUpdate replaces the secret payload, expiry and metadata of a record.
type TokenUpdate struct {
	Token     string
	ExpiresAt time.Time
	Metadata  domain.TokenMetadata
}

// TokenStore persists token records. Implementations must not filter out
// expired records on Find: expiry handling is the caller's business rule
// (lazy expiry, metadata fallback on refresh).
type TokenStore interface {
	// Create stores a new token record.
	Create(ctx context.Context, record *domain.TokenRecord) error

	// Find returns the first record matching the filter, or nil, nil when
	// no record matches. Absence is a normal result, not an error.
	Find(ctx context.Context, filter TokenFilter) (*domain.TokenRecord, error)

	// Update applies the patch to the record matching the filter and returns
	// the updated record. Returns domain.ErrNotFound when nothing matches.
	Update(ctx context.Context, filter TokenFilter, update TokenUpdate) (*domain.TokenRecord, error)

	// DeleteMany removes every record matching the filter and reports how
	// many were removed.
	DeleteMany(ctx context.Context, filter TokenFilter) (int64, error)

	// Cleanup removes expired handshake records. Stores with native TTL
	// expiry may implement this as a no-op.
	Cleanup(ctx context.Context) error
}
