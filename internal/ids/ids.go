// Package ids generates the identifiers used as storage keys.
package ids

import "github.com/oklog/ulid/v2"

// New returns a fresh ULID. Ids sort by creation time, so list queries
// ordered by id read in insertion order and index pages stay warm.
func New() string {
	return ulid.Make().String()
}
