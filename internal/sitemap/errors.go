package sitemap

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRootBlock is reported when a crawled record map does not
	// contain the block of the page it was fetched for.
	ErrMissingRootBlock = errors.New("record map lacks the page's root block")
	// ErrMissingRecordMap is reported when the store returned no record map.
	ErrMissingRecordMap = errors.New("no record map for page")
)

// CrawlError fails a whole site map build. Nothing partial is returned or
// cached when it occurs.
type CrawlError struct {
	PageID string
	Err    error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("sitemap: error loading page %q: %v", e.PageID, e.Err)
}

func (e *CrawlError) Unwrap() error { return e.Err }
