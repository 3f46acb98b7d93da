// Package services defines the business logic for messages and bearer
// authentication. This file centralizes service-level error values so that
// they can be returned consistently by service methods and checked by callers
// with errors.Is.
//
// Translation of these errors into apierr values (and from there into HTTP
// responses) is performed at the handler layer.
package services

import "errors"

// Message-related errors.
var (
	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")
)

// Auth-related errors.
var (
	// ErrUnsupportedGrant is returned when a token request names a grant type
	// other than "user" or "client".
	ErrUnsupportedGrant = errors.New("unsupported grant type")

	// ErrInvalidCredentials is returned when the principal is unknown or the
	// secret does not match its stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned when a bearer token is malformed, carries a
	// bad signature, has expired, or is not present in the token store.
	ErrInvalidToken = errors.New("invalid token")
)
