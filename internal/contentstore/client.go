// Package contentstore loads page record maps from the workspace content
// store and crawls the pages reachable from a root page.
package contentstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/blockpress/internal/models"
)

// ErrPageNotFound is returned when the store has no record map for a page.
var ErrPageNotFound = errors.New("contentstore: page not found")

// Client fetches the record map of one page.
type Client interface {
	FetchPage(ctx context.Context, pageID string) (*models.RecordMap, error)
}

// FetchFunc adapts a function to the fetch step of a crawl.
type FetchFunc func(ctx context.Context, pageID string) (*models.RecordMap, error)

// PageError reports the page a crawl failed on.
type PageError struct {
	PageID string
	Err    error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("contentstore: page %s: %v", e.PageID, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }
