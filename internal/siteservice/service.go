// Package siteservice coordinates the site map builder, page index,
// renderer and publisher for the HTTP and MCP transports.
package siteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/blockpress/internal/apperr"
	"github.com/starford/blockpress/internal/feed"
	"github.com/starford/blockpress/internal/index"
	"github.com/starford/blockpress/internal/logfields"
	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/publish"
	"github.com/starford/blockpress/internal/recordmap"
	"github.com/starford/blockpress/internal/render"
	"github.com/starford/blockpress/internal/sitemap"
	"github.com/starford/blockpress/internal/tags"
)

// PageDetail is the full representation of a published page.
type PageDetail struct {
	Slug           string     `json:"slug"`
	PageID         string     `json:"pageId"`
	URL            string     `json:"url"`
	Title          string     `json:"title"`
	Tags           []string   `json:"tags"`
	CreatedTime    *time.Time `json:"createdTime"`
	LastEditedTime *time.Time `json:"lastEditedTime"`
	Excerpt        string     `json:"excerpt"`
	Markdown       string     `json:"markdown"`
	HTML           string     `json:"html"`
	Backlinks      []string   `json:"backlinks"`
}

// PageListItem is a lightweight item in a list response.
type PageListItem struct {
	Slug           string     `json:"slug"`
	PageID         string     `json:"pageId"`
	Title          string     `json:"title"`
	Tags           []string   `json:"tags"`
	CreatedTime    *time.Time `json:"createdTime"`
	LastEditedTime *time.Time `json:"lastEditedTime"`
}

// TagSummary is one tag of the blog collection.
type TagSummary struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// TaggedPages is the gallery filtered by one tag.
type TaggedPages struct {
	Tag   tags.Tag       `json:"tag"`
	Pages []PageListItem `json:"pages"`
}

// RebuildResult summarizes one Rebuild.
type RebuildResult struct {
	Pages      int              `json:"pages"`
	Duplicates int              `json:"duplicates"`
	Index      index.SyncResult `json:"index"`
	Published  *publish.Result  `json:"published,omitempty"`
	Duration   time.Duration    `json:"durationNs"`
	SiteMap    *models.SiteMap  `json:"-"`
}

// Listener is notified after every successful Rebuild.
type Listener func(RebuildResult)

// Service answers site queries from the memoized site map and the index.
type Service struct {
	builder   *sitemap.Builder
	db        *index.DB
	renderer  *render.Renderer
	publisher *publish.Publisher
	logger    *slog.Logger
	now       func() time.Time

	rebuildMu sync.Mutex

	mu          sync.Mutex
	listeners   []Listener
	lastRebuild time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher writes the static site on every Rebuild and serves page HTML.
func WithPublisher(p *publish.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock sets the clock used for feed dates.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a new site service.
func NewService(builder *sitemap.Builder, db *index.DB, renderer *render.Renderer, opts ...Option) *Service {
	s := &Service{
		builder:  builder,
		db:       db,
		renderer: renderer,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OnRebuild registers fn to run after every successful Rebuild.
func (s *Service) OnRebuild(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LastRebuild returns when the last successful Rebuild finished; zero
// before the first one.
func (s *Service) LastRebuild() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRebuild
}

// SiteMap returns the memoized site map of the configured root.
func (s *Service) SiteMap(ctx context.Context) (*models.SiteMap, error) {
	return s.builder.SiteMap(ctx)
}

// StaticPaths lists the URL path of every published page.
func (s *Service) StaticPaths(ctx context.Context) ([]string, error) {
	sm, err := s.SiteMap(ctx)
	if err != nil {
		return nil, err
	}
	return sm.StaticPaths(), nil
}

// GetPage renders the page published under slug and adds its backlinks.
func (s *Service) GetPage(ctx context.Context, slug string) (*PageDetail, error) {
	sm, err := s.SiteMap(ctx)
	if err != nil {
		return nil, err
	}
	data, ok := sm.Page(slug)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	page, err := s.renderer.Render(sm, data.PageID)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(slug)
	if err != nil {
		return nil, err
	}
	return &PageDetail{
		Slug:           slug,
		PageID:         data.PageID,
		URL:            sm.Site.Host() + sm.URLFor(data.PageID),
		Title:          data.Title,
		Tags:           nonNilSlice(page.Tags),
		CreatedTime:    data.CreatedTime,
		LastEditedTime: data.LastEditedTime,
		Excerpt:        page.Excerpt,
		Markdown:       page.Markdown,
		HTML:           page.HTML,
		Backlinks:      nonNilSlice(bl),
	}, nil
}

// PageHTML returns the full HTML document of the page under slug.
func (s *Service) PageHTML(ctx context.Context, slug string) ([]byte, error) {
	if s.publisher == nil {
		return nil, errors.New("siteservice: no publisher configured")
	}
	sm, err := s.SiteMap(ctx)
	if err != nil {
		return nil, err
	}
	html, err := s.publisher.PageHTML(sm, slug)
	if errors.Is(err, render.ErrPageNotCrawled) {
		return nil, apperr.ErrNotFound
	}
	return html, err
}

// ListPages returns paginated pages from the index with optional tag filter.
func (s *Service) ListPages(_ context.Context, limit, offset int, tag, sort string) ([]PageListItem, int, error) {
	rows, total, err := s.db.ListPages(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]PageListItem, len(rows))
	for i, r := range rows {
		items[i] = PageListItem{
			Slug:           r.Slug,
			PageID:         r.PageID,
			Title:          r.Title,
			Tags:           nonNilSlice(r.Tags),
			CreatedTime:    r.CreatedAt,
			LastEditedTime: r.EditedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph returns all nodes and links of the sub-page graph.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

// Tags lists the tags of the blog collection with their indexed page counts.
func (s *Service) Tags(ctx context.Context) ([]TagSummary, error) {
	sm, err := s.SiteMap(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.db.Tags()
	if err != nil {
		return nil, err
	}
	bySlug := make(map[string]int, len(counts))
	for _, c := range counts {
		bySlug[recordmap.NormalizeTitle(c.Name)] += c.Count
	}
	out := []TagSummary{}
	for _, t := range tags.List(sm.RecordMap(sm.Site.RootPageID)) {
		out = append(out, TagSummary{Name: t.Name, Slug: t.Slug, Count: bySlug[t.Slug]})
	}
	return out, nil
}

// TaggedPages filters the root gallery by tag. Unknown tags are ErrNotFound.
func (s *Service) TaggedPages(ctx context.Context, tag string) (*TaggedPages, error) {
	sm, err := s.SiteMap(ctx)
	if err != nil {
		return nil, err
	}
	rm := sm.RecordMap(sm.Site.RootPageID)
	filtered := tags.Filter(rm, tag)
	if filtered.Tag.Name == "" {
		return nil, apperr.ErrNotFound
	}
	res := &TaggedPages{Tag: filtered.Tag, Pages: []PageListItem{}}
	for _, id := range filtered.PageIDs {
		slug, ok := sm.SlugFor(id)
		if !ok {
			continue
		}
		data, _ := sm.Page(slug)
		item := PageListItem{
			Slug:           slug,
			PageID:         data.PageID,
			Title:          data.Title,
			CreatedTime:    data.CreatedTime,
			LastEditedTime: data.LastEditedTime,
		}
		if page := sm.RecordMap(id); page != nil {
			item.Tags = recordmap.PageTags(page.GetBlock(id), page)
		}
		item.Tags = nonNilSlice(item.Tags)
		res.Pages = append(res.Pages, item)
	}
	return res, nil
}

// Feed renders the RSS feed of the site.
func (s *Service) Feed(ctx context.Context) ([]byte, error) {
	sm, err := s.SiteMap(ctx)
	if err != nil {
		return nil, err
	}
	return feed.Build(sm, feed.Options{
		Now: s.now(),
		Describe: func(id string) string {
			rm := sm.RecordMap(id)
			return render.Excerpt(rm.GetBlock(id), rm)
		},
	})
}

// Rebuild drops the memoized site map, crawls again, syncs the index,
// publishes when a publisher is configured and notifies listeners.
// Concurrent calls run one after another.
func (s *Service) Rebuild(ctx context.Context) (RebuildResult, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()
	s.builder.InvalidateAll()
	sm, err := s.builder.SiteMap(ctx)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("siteservice: rebuild: %w", err)
	}
	res := RebuildResult{Pages: len(sm.CanonicalOrder), Duplicates: sm.Duplicates(), SiteMap: sm}

	if res.Index, err = index.Sync(ctx, s.db, sm, s.renderer, s.logger); err != nil {
		return res, fmt.Errorf("siteservice: sync index: %w", err)
	}
	if s.publisher != nil {
		if res.Published, err = s.publisher.Publish(ctx, sm); err != nil {
			return res, fmt.Errorf("siteservice: publish: %w", err)
		}
	}
	res.Duration = time.Since(start)

	s.logger.Info("siteservice: rebuilt",
		logfields.Count(res.Pages),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("indexed", res.Index.Indexed),
		slog.Int("removed", res.Index.Removed),
		logfields.DurationMS(float64(res.Duration.Microseconds())/1000))

	s.mu.Lock()
	s.lastRebuild = s.now()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(res)
	}
	return res, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
