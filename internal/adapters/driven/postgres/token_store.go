package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/nimblechat/integrations-core/internal/core/domain"
	"github.com/nimblechat/integrations-core/internal/core/ports/driven"
)

// Ensure TokenStore implements the interface.
var _ driven.TokenStore = (*TokenStore)(nil)

// tokenColumns are the columns scanned into a TokenRecord, in order.
const tokenColumns = "identifier, user_id, kind, token, expires_at, created_at, provider, email, service, meta_user_id, services"

// TokenStore implements driven.TokenStore using PostgreSQL.
type TokenStore struct {
	db *DB
}

// NewTokenStore creates a new PostgreSQL-backed token store.
func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db}
}

// Create stores a new token record.
func (s *TokenStore) Create(ctx context.Context, record *domain.TokenRecord) error {
	query := `
		INSERT INTO integration_tokens (identifier, user_id, kind, token, expires_at, created_at, provider, email, service, meta_user_id, services)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.Identifier,
		record.UserID,
		string(record.Kind),
		record.Token,
		record.ExpiresAt,
		record.CreatedAt,
		record.Metadata.Provider,
		record.Metadata.Email,
		record.Metadata.Service,
		record.Metadata.UserID,
		pq.Array(record.Metadata.Services),
	)
	if err != nil {
		return fmt.Errorf("create token record: %w", err)
	}

	return nil
}

// Find returns the first record matching the filter, or nil, nil when none
// matches. Expired records are returned as stored; expiry is the caller's
// business rule.
func (s *TokenStore) Find(ctx context.Context, filter driven.TokenFilter) (*domain.TokenRecord, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM integration_tokens WHERE %s LIMIT 1", tokenColumns, where)

	record, err := scanToken(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find token record: %w", err)
	}

	return record, nil
}

// Update applies the patch to the matching record and returns it.
func (s *TokenStore) Update(ctx context.Context, filter driven.TokenFilter, update driven.TokenUpdate) (*domain.TokenRecord, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}

	n := len(args)
	query := fmt.Sprintf(`
		UPDATE integration_tokens
		SET token = $%d, expires_at = $%d, provider = $%d, email = $%d, service = $%d, meta_user_id = $%d, services = $%d
		WHERE %s
		RETURNING %s
	`, n+1, n+2, n+3, n+4, n+5, n+6, n+7, where, tokenColumns)

	args = append(args,
		update.Token,
		update.ExpiresAt,
		update.Metadata.Provider,
		update.Metadata.Email,
		update.Metadata.Service,
		update.Metadata.UserID,
		pq.Array(update.Metadata.Services),
	)

	record, err := scanToken(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update token record: %w", err)
	}

	return record, nil
}

// DeleteMany removes every record matching the filter.
func (s *TokenStore) DeleteMany(ctx context.Context, filter driven.TokenFilter) (int64, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM integration_tokens WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete token records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete token records: %w", err)
	}

	return deleted, nil
}

// Cleanup removes expired handshake records. Long-lived token records are
// kept even when expired: the refresh path reads their metadata.
func (s *TokenStore) Cleanup(ctx context.Context) error {
	query := `DELETE FROM integration_tokens WHERE expires_at < NOW() AND kind IN ($1, $2)`

	_, err := s.db.ExecContext(ctx, query, string(domain.TokenKindInit), string(domain.TokenKindState))
	if err != nil {
		return fmt.Errorf("cleanup handshake records: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*domain.TokenRecord, error) {
	var record domain.TokenRecord
	var kind string
	var services pq.StringArray

	err := row.Scan(
		&record.Identifier,
		&record.UserID,
		&kind,
		&record.Token,
		&record.ExpiresAt,
		&record.CreatedAt,
		&record.Metadata.Provider,
		&record.Metadata.Email,
		&record.Metadata.Service,
		&record.Metadata.UserID,
		&services,
	)
	if err != nil {
		return nil, err
	}

	record.Kind = domain.TokenKind(kind)
	record.Metadata.Services = []string(services)
	return &record, nil
}

func buildWhere(filter driven.TokenFilter) (string, []any, error) {
	if filter.IsEmpty() {
		return "", nil, fmt.Errorf("empty token filter")
	}

	var clauses []string
	var args []any
	add := func(column, value string) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.UserID != "" {
		add("user_id", filter.UserID)
	}
	if filter.Identifier != "" {
		add("identifier", filter.Identifier)
	}
	if filter.Token != "" {
		add("token", filter.Token)
	}

	return strings.Join(clauses, " AND "), args, nil
}
