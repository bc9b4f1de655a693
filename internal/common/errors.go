// Package common defines shared constants and sentinel errors used across
// the transport, service and repository layers of userhub. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Account errors.
	ErrDuplicateUser      = errors.New("user already registered")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidCredentials = errors.New("email or password is not valid")

	// Token errors (bad signature, malformed, wrong type or expired).
	ErrInvalidToken = errors.New("invalid token")

	// Mail errors.
	ErrEmailDeliveryFailed = errors.New("email delivery failed")
	ErrTooManyRequests     = errors.New("too many requests")
)
