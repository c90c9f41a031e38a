package auth

import (
	"context"
	"errors"
	"fmt"
)

// Authenticator validates password logins against the credential store.
type Authenticator struct {
	users UserStore
}

func NewAuthenticator(users UserStore) (*Authenticator, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	return &Authenticator{users: users}, nil
}

// Authenticate verifies an email/password pair and returns the matching
// user. Every credential failure, including an OAuth-only account with
// no stored hash, returns ErrInvalidCredentials so callers cannot
// enumerate accounts. A credential-store fault is returned wrapped so
// the boundary can report it as an upstream failure rather than a
// rejected login.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	// OAuth-only accounts have no hash; they must never match any password.
	if user.PasswordHash == "" {
		return User{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}

	// Credentials checked out, but a disabled account never yields a
	// usable identity.
	if user.Disabled {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}
