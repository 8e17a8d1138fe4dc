// Package apperr holds sentinel errors shared by the service and its
// transports.
package apperr

import "errors"

// ErrNotFound reports a slug, tag or page that is not part of the site.
var ErrNotFound = errors.New("not found")
