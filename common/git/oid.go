// Package git holds the textual forms of git object ids and reference names.
// It performs no repository access; resolving these values against a real
// repository belongs to the version-control collaborator.
package git

import (
	"errors"
	"fmt"
)

// ErrInvalidOid indicates that a string is not a valid object id encoding.
var ErrInvalidOid = errors.New("invalid object id")

// Oid is the textual form of a git object id (40 lowercase hex characters).
type Oid string

// ParseOid validates and returns the textual object id
func ParseOid(s string) (Oid, error) {
	if len(s) != 40 {
		return "", fmt.Errorf("%w: %q has length %d, want 40", ErrInvalidOid, s, len(s))
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: %q contains non-hex character %q", ErrInvalidOid, s, c)
		}
	}
	return Oid(s), nil
}

func (o Oid) String() string {
	return string(o)
}
