package auth

import "context"

// UserStore describes the credential-store lookups required by the auth
// subsystem. Emails handed to implementations are already normalized
// (lower-cased, trimmed) by the callers in this package.
type UserStore interface {
	// FindByEmail returns ErrNotFound when no record matches.
	FindByEmail(ctx context.Context, email string) (User, error)

	// Create inserts a new user, assigning an ID when absent.
	// A duplicate email yields ErrAlreadyExists.
	Create(ctx context.Context, u *User) error

	// UpsertOAuth creates the user on first OAuth sign-in or refreshes
	// the display name on re-sign-in. The stored password hash is left
	// untouched for accounts that also have one.
	UpsertOAuth(ctx context.Context, email, name string) (User, error)

	// SetDisabled flips the account-disabled flag.
	SetDisabled(ctx context.Context, id string, disabled bool) error
}
