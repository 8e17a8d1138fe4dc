// Package sitemap builds the memoized map of every page published from the
// workspace: the crawled record maps and the canonical slug of each page.
package sitemap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/blockpress/internal/canonical"
	"github.com/starford/blockpress/internal/contentstore"
	"github.com/starford/blockpress/internal/logfields"
	"github.com/starford/blockpress/internal/metrics"
	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
	"github.com/starford/blockpress/internal/recordmap"
)

// Options configures a Builder. It is fixed for the Builder's lifetime.
type Options struct {
	Site models.SiteConfig
	// EmbedRawID appends compact page ids to every slug.
	EmbedRawID bool
	// CreatedTimeProperty and LastEditedTimeProperty name page properties
	// that take precedence over the native timestamps. Empty disables.
	CreatedTimeProperty    string
	LastEditedTimeProperty string
	// PageURLOverrides maps slug -> page id.
	PageURLOverrides map[string]string
	Concurrency      int
}

// Builder produces site maps and memoizes them per root.
type Builder struct {
	client   contentstore.Client
	resolver *canonical.Resolver
	opts     Options
	logger   *slog.Logger
	rec      metrics.Recorder
	memo     *memo
}

// Option customizes a Builder.
type Option func(*Builder)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) { b.rec = metrics.OrNoop(r) }
}

// New returns a Builder fetching pages through client.
func New(client contentstore.Client, opts Options, options ...Option) *Builder {
	b := &Builder{
		client:   client,
		resolver: canonical.NewResolver(opts.PageURLOverrides),
		opts:     opts,
		logger:   slog.Default(),
		rec:      metrics.NoopRecorder{},
		memo:     newMemo(),
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// SiteMap builds (or returns the memoized) site map of the configured root.
func (b *Builder) SiteMap(ctx context.Context) (*models.SiteMap, error) {
	return b.BuildSiteMap(ctx, b.opts.Site.RootPageID, b.opts.Site.RootSpaceID)
}

// BuildSiteMap returns the site map of every page reachable from
// rootPageID within rootSpaceID. Results are memoized per argument pair;
// concurrent callers share one crawl and failures are not remembered.
func (b *Builder) BuildSiteMap(ctx context.Context, rootPageID, rootSpaceID string) (*models.SiteMap, error) {
	key := memoKey(rootPageID, rootSpaceID)
	sm, hit, err := b.memo.do(ctx, key, func(ctx context.Context) (*models.SiteMap, error) {
		return b.build(ctx, rootPageID, rootSpaceID)
	})
	if hit {
		b.rec.IncMemoHit()
	}
	return sm, err
}

// Invalidate drops the memoized site map for the given root so the next
// call crawls again. A crawl in flight still completes for its waiters.
func (b *Builder) Invalidate(rootPageID, rootSpaceID string) {
	b.memo.forget(memoKey(rootPageID, rootSpaceID))
}

// InvalidateAll drops every memoized site map.
func (b *Builder) InvalidateAll() {
	b.memo.forgetAll()
}

func (b *Builder) build(ctx context.Context, rootPageID, rootSpaceID string) (*models.SiteMap, error) {
	start := time.Now()
	sm, err := b.crawl(ctx, rootPageID, rootSpaceID)
	elapsed := time.Since(start)
	b.rec.ObserveCrawlDuration(elapsed)

	switch {
	case err == nil:
		b.rec.IncCrawlOutcome(metrics.OutcomeSuccess)
		b.logger.Info("sitemap: built",
			logfields.PageID(rootPageID),
			slog.Int("pages", len(sm.PageMap)),
			slog.Int("canonical_pages", len(sm.CanonicalPageMap)),
			logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		b.rec.IncCrawlOutcome(metrics.OutcomeCanceled)
	default:
		b.rec.IncCrawlOutcome(metrics.OutcomeFailed)
		b.logger.Error("sitemap: build failed", logfields.PageID(rootPageID), logfields.Error(err))
	}
	return sm, err
}

func (b *Builder) crawl(ctx context.Context, rootPageID, rootSpaceID string) (*models.SiteMap, error) {
	pages, err := contentstore.CrawlSpace(ctx, rootPageID, rootSpaceID, b.fetch, contentstore.CrawlOptions{
		Concurrency: b.opts.Concurrency,
	})
	if err != nil {
		var pe *contentstore.PageError
		if errors.As(err, &pe) {
			return nil, &CrawlError{PageID: pe.PageID, Err: pe.Err}
		}
		return nil, fmt.Errorf("sitemap: crawl: %w", err)
	}

	site := b.opts.Site
	site.RootPageID = pageid.Normalize(rootPageID)
	site.RootSpaceID = rootSpaceID
	sm := models.NewSiteMap(site, pages)

	for _, id := range pages.Order {
		data, err := b.canonicalize(id, pages.Pages[id])
		if err != nil {
			return nil, err
		}
		existing, inserted := sm.Insert(data)
		if !inserted {
			b.logger.Warn("sitemap: duplicate canonical page id",
				logfields.Slug(data.CanonicalPageID),
				logfields.PageID(data.PageID),
				slog.String("existing_page_id", existing.PageID))
			b.rec.IncDuplicateSlug()
		}
	}
	return sm, nil
}

// canonicalize derives the published metadata of one crawled page.
func (b *Builder) canonicalize(id string, rm *models.RecordMap) (models.CanonicalPageData, error) {
	if rm == nil {
		return models.CanonicalPageData{}, &CrawlError{PageID: id, Err: ErrMissingRecordMap}
	}
	block := rm.GetBlock(id)
	if block == nil {
		return models.CanonicalPageData{}, &CrawlError{PageID: id, Err: ErrMissingRootBlock}
	}
	return models.CanonicalPageData{
		PageID:          id,
		CanonicalPageID: b.resolver.Resolve(id, rm, canonical.Options{EmbedRawID: b.opts.EmbedRawID}),
		Title:           recordmap.TitleOf(block, rm),
		LastEditedTime:  b.lastEditedTime(id, block, rm),
		CreatedTime:     b.createdTime(id, block, rm),
	}, nil
}

// fetch loads one page for the crawl.
func (b *Builder) fetch(ctx context.Context, pageID string) (*models.RecordMap, error) {
	b.logger.Debug("crawl: fetch page", logfields.PageID(pageid.Compact(pageID)))
	rm, err := b.client.FetchPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	b.rec.AddPagesFetched(1)
	return rm, nil
}
