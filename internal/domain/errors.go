package domain

import "errors"

var (
	// ErrInvalidInput covers malformed or missing identity fields.
	// Its wrapped detail is surfaced verbatim to the caller.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateActiveAttempt is returned when the identity already has an unresolved attempt.
	// The caller must finish or abandon the pending attempt first.
	ErrDuplicateActiveAttempt = errors.New("an active attempt already exists for this identity")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyResolved is returned on any transition attempted after success was recorded.
	ErrAlreadyResolved = errors.New("attempt already resolved")
	// ErrInvalidState is returned when an operation does not match the attempt's auth flow.
	ErrInvalidState = errors.New("attempt is not in a valid state for this operation")
	// ErrExpired means the attempt window has passed and a fresh check is required.
	ErrExpired      = errors.New("attempt expired")
	ErrCodeMismatch = errors.New("otp code mismatch")
	// ErrBlocked is terminal for the attempt; callers are told to contact support.
	ErrBlocked = errors.New("authentication blocked")
	// ErrIdentityBlocked is returned for identities flagged by the block policy.
	ErrIdentityBlocked = errors.New("identity blocked")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionRevoked  = errors.New("session revoked")
	ErrRateLimited     = errors.New("rate limited")
	// ErrDeliveryUnavailable means the OTP could not reach the identity.
	ErrDeliveryUnavailable = errors.New("otp delivery unavailable")
)
