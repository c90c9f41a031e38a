package auth

import (
	"context"
	"errors"
	"fmt"
)

// Resolver is the request-time gate: it turns a raw bearer token plus
// an endpoint's required-scope set into a verified Principal, or one of
// ErrUnauthenticated / ErrForbidden.
type Resolver struct {
	codec *Codec
	users UserStore
}

func NewResolver(codec *Codec, users UserStore) (*Resolver, error) {
	if codec == nil {
		return nil, errors.New("auth: codec is required")
	}
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	return &Resolver{codec: codec, users: users}, nil
}

// Resolve verifies the token, re-resolves the current user record and
// enforces the required scopes. Expired and malformed tokens are
// reported identically; only a known identity missing a scope yields
// ErrForbidden. The token is never trusted as the sole source of user
// state: an account disabled since issuance is rejected here.
func (r *Resolver) Resolve(ctx context.Context, rawToken string, required []string) (Principal, error) {
	if rawToken == "" {
		return Principal{}, ErrUnauthenticated
	}

	claims, err := r.codec.Verify(rawToken)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := r.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{}, fmt.Errorf("resolve user: %w", err)
	}
	if user.Disabled {
		return Principal{}, ErrUnauthenticated
	}

	if missing := MissingScopes(claims.Scopes, required); len(missing) > 0 {
		return Principal{}, fmt.Errorf("%w: %v", ErrForbidden, missing)
	}

	return Principal{User: user, Scopes: claims.Scopes}, nil
}
