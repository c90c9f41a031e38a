package auth

import "time"

// User represents an account record as stored by the credential store.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is a verified identity together with the scopes granted to
// the bearer token it was resolved from. It is the only thing handlers
// see; raw claims never leave this package.
type Principal struct {
	User   User
	Scopes []string
}

// HasScope reports whether the principal's token carries the scope.
// Matching is exact string membership; there is no hierarchy.
func (p Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
