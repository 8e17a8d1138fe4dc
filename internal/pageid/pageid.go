// Package pageid parses and normalizes content store page identifiers.
//
// Page ids are UUIDs. The store keys records by the dashed form while
// generated URLs embed the compact 32-digit form.
package pageid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalid is returned for strings that are not page ids.
var ErrInvalid = errors.New("invalid page id")

// Parse validates id and returns its dashed, lowercase form.
func Parse(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("pageid: %q: %w", id, ErrInvalid)
	}
	return u.String(), nil
}

// Compact returns the 32-digit form of id. Strings that are not page ids
// are returned lowercased with dashes removed.
func Compact(id string) string {
	if u, err := uuid.Parse(strings.TrimSpace(id)); err == nil {
		return strings.ReplaceAll(u.String(), "-", "")
	}
	return strings.ReplaceAll(strings.ToLower(id), "-", "")
}

// Normalize returns the dashed form of id, or id unchanged when it does not parse.
func Normalize(id string) string {
	if p, err := Parse(id); err == nil {
		return p
	}
	return id
}

// Equal reports whether a and b name the same page.
func Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return Compact(a) == Compact(b)
}
