package auth

import "strings"

const (
	// ScopeMe grants read access to the current user's own profile.
	ScopeMe = "me"
	// ScopeItems grants read access to the current user's items.
	ScopeItems = "items"
)

// KnownScopes maps each recognised scope to its description, in the
// form advertised to clients requesting a token.
var KnownScopes = map[string]string{
	ScopeMe:    "Read information about the current user.",
	ScopeItems: "Read items.",
}

// KnownScope reports whether the scope name is part of the catalog.
func KnownScope(scope string) bool {
	_, ok := KnownScopes[scope]
	return ok
}

// NormalizeScopes trims, lower-cases and deduplicates a scope list,
// dropping empty entries. Order of first occurrence is preserved; nil
// is returned for an effectively empty list.
func NormalizeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(scopes))
	var normalized []string
	for _, scope := range scopes {
		scope = strings.TrimSpace(strings.ToLower(scope))
		if scope == "" {
			continue
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		normalized = append(normalized, scope)
	}
	return normalized
}

// MissingScopes returns the required scopes absent from the granted
// set. An empty result means the grant satisfies the requirement; an
// empty granted list satisfies only an empty requirement.
func MissingScopes(granted, required []string) []string {
	if len(required) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		set[s] = struct{}{}
	}
	var missing []string
	for _, s := range required {
		if _, ok := set[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}
