package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested record was not found
	ErrNotFound = errors.New("not found")

	// ErrTokenInvalid indicates a handshake token that resolves to no record
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired indicates a record present but past its TTL
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidUser indicates a handshake record with no owning user
	ErrInvalidUser = errors.New("invalid user")

	// ErrInvalidService indicates an unknown or missing logical service
	ErrInvalidService = errors.New("invalid service")

	// ErrStateInvalid indicates the OAuth state could not be redeemed
	ErrStateInvalid = errors.New("invalid state")

	// ErrMissingEmail indicates the provider profile carried no email
	ErrMissingEmail = errors.New("missing email")

	// ErrRefreshUnavailable indicates a refresh could not produce a usable
	// access token; the user must re-authorize
	ErrRefreshUnavailable = errors.New("refresh unavailable")

	// ErrRevokeFailed indicates the provider rejected the revocation;
	// nothing was deleted so the caller can retry
	ErrRevokeFailed = errors.New("revoke failed")

	// ErrOAuthFailed indicates the provider denied or the exchange produced
	// no usable credentials
	ErrOAuthFailed = errors.New("oauth failed")

	// ErrAuthNotConfigured indicates a required secret is absent from the environment
	ErrAuthNotConfigured = errors.New("authentication not configured")
)

// Reason is the failure code carried on error-page redirects.
type Reason string

const (
	ReasonMissingToken   Reason = "missing_token"
	ReasonInvalidToken   Reason = "invalid_token"
	ReasonExpiredToken   Reason = "expired_token"
	ReasonInvalidUser    Reason = "invalid_user"
	ReasonInvalidService Reason = "invalid_service"
	ReasonInvalidState   Reason = "invalid_state"
	ReasonMissingEmail   Reason = "missing_email"
	ReasonFailedOAuth    Reason = "failed_oauth"
	ReasonServerError    Reason = "server_error"
)

// ReasonForError maps a domain error to the redirect reason shown to the user.
func ReasonForError(err error) Reason {
	switch {
	case errors.Is(err, ErrTokenInvalid):
		return ReasonInvalidToken
	case errors.Is(err, ErrTokenExpired):
		return ReasonExpiredToken
	case errors.Is(err, ErrInvalidUser):
		return ReasonInvalidUser
	case errors.Is(err, ErrInvalidService):
		return ReasonInvalidService
	case errors.Is(err, ErrStateInvalid):
		return ReasonInvalidState
	case errors.Is(err, ErrMissingEmail):
		return ReasonMissingEmail
	case errors.Is(err, ErrOAuthFailed):
		return ReasonFailedOAuth
	default:
		return ReasonServerError
	}
}
