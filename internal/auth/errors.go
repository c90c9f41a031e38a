package auth

import "errors"

var (
	// ErrInvalidCredentials covers every password-login failure mode
	// (unknown email, wrong password, OAuth-only account) so callers
	// cannot tell them apart.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrUnauthenticated means no usable identity could be established
	// from the request: missing, malformed or expired token, or the
	// token's subject no longer resolves to an active user.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrForbidden means the identity is known but lacks a required scope.
	ErrForbidden = errors.New("auth: insufficient scope")

	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")

	// Token verification failures. Both collapse to ErrUnauthenticated at
	// the HTTP boundary; the distinction exists for server-side logs only.
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenMalformed = errors.New("auth: token malformed")
)
