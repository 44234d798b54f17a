package lifecycle

import (
	"regexp"

	"github.com/google/uuid"
)

// KeyKind classifies a caller-supplied identifier string.
type KeyKind int

const (
	// KeyPrimary means the identifier matches the storage primary-key syntax.
	KeyPrimary KeyKind = iota
	// KeyBusiness means anything else: look up by business identifier.
	KeyBusiness
)

var objectIDHex = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ClassifyIdentifier decides whether an identifier string is a storage
// primary key (24-hex-char ObjectId for the mongo backend, canonical UUID
// for the SQL backends) or a business identifier.
//
// This is a heuristic, not a guarantee: a business identifier that happened
// to match the primary-key syntax would be misrouted. Business identifier
// prefixes therefore always include a non-hex character ("NOC", "SR"), which
// makes the collision impossible in practice. Callers perform exactly one
// lookup against the classified key; a miss is NotFound, never a fallback to
// the other lookup strategy, so classification bugs surface instead of
// hiding.
func ClassifyIdentifier(id string) KeyKind {
	if objectIDHex.MatchString(id) {
		return KeyPrimary
	}
	if len(id) == 36 {
		if _, err := uuid.Parse(id); err == nil {
			return KeyPrimary
		}
	}
	return KeyBusiness
}
