package contentstore

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
	"github.com/starford/blockpress/internal/recordmap"
)

// CrawlOptions tunes CrawlSpace.
type CrawlOptions struct {
	// Concurrency bounds the fetches in flight per level; <= 0 means 4.
	Concurrency int
}

// CrawlSpace walks the pages reachable from rootPageID breadth first and
// returns their record maps keyed by dashed page id.
//
// Each level of the walk is fetched concurrently and then consumed in queue
// order, so the enumeration order of the result depends only on the
// content. A page whose root block lives in another space is left out; an
// empty rootSpaceID adopts the root page's space. The first failed fetch
// aborts the crawl with a *PageError.
func CrawlSpace(ctx context.Context, rootPageID, rootSpaceID string, fetch FetchFunc, opts CrawlOptions) (*models.PageMap, error) {
	root, err := pageid.Parse(rootPageID)
	if err != nil {
		return nil, &PageError{PageID: rootPageID, Err: err}
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}

	pages := models.NewPageMap()
	seen := map[string]struct{}{root: {}}
	space := rootSpaceID
	level := []string{root}

	for len(level) > 0 {
		results := make([]*models.RecordMap, len(level))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i, id := range level {
			g.Go(func() error {
				rm, err := fetch(gctx, id)
				if err != nil {
					return &PageError{PageID: id, Err: err}
				}
				results[i] = rm
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []string
		for i, id := range level {
			rm := results[i]
			block := rm.GetBlock(id)
			if id == root && space == "" && block != nil {
				space = block.SpaceID
			}
			if block != nil && space != "" && block.SpaceID != "" && block.SpaceID != space {
				continue
			}
			pages.Add(id, rm)
			for _, sub := range recordmap.SubPageIDs(id, rm, space) {
				if _, ok := seen[sub]; ok {
					continue
				}
				seen[sub] = struct{}{}
				next = append(next, sub)
			}
		}
		level = next
	}
	return pages, nil
}
