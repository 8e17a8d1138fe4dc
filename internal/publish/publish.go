// Package publish writes a site map out as a static site.
package publish

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"path"
	"time"

	"github.com/starford/blockpress/internal/feed"
	"github.com/starford/blockpress/internal/logfields"
	"github.com/starford/blockpress/internal/metrics"
	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/recordmap"
	"github.com/starford/blockpress/internal/render"
	"github.com/starford/blockpress/internal/storage"
	"github.com/starford/blockpress/internal/tags"
)

//go:embed templates/*.html
var templateFS embed.FS

// PathsFile lists the published page paths.
const PathsFile = "paths.json"

// Result summarizes one publish.
type Result struct {
	Pages   int `json:"pages"`
	Tags    int `json:"tags"`
	Removed int `json:"removed"`
}

// Publisher renders pages and writes them through a storage provider.
type Publisher struct {
	store    storage.Provider
	renderer *render.Renderer
	logger   *slog.Logger
	rec      metrics.Recorder
	now      func() time.Time

	pageTmpl *template.Template
	tagTmpl  *template.Template
}

// Option customizes a Publisher.
type Option func(*Publisher)

func WithLogger(l *slog.Logger) Option       { return func(p *Publisher) { p.logger = l } }
func WithRecorder(r metrics.Recorder) Option { return func(p *Publisher) { p.rec = metrics.OrNoop(r) } }
func WithClock(now func() time.Time) Option  { return func(p *Publisher) { p.now = now } }

// New returns a Publisher writing into store.
func New(store storage.Provider, renderer *render.Renderer, opts ...Option) (*Publisher, error) {
	pageTmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("publish: parse page template: %w", err)
	}
	tagTmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/tag.html")
	if err != nil {
		return nil, fmt.Errorf("publish: parse tag template: %w", err)
	}
	p := &Publisher{
		store:    store,
		renderer: renderer,
		logger:   slog.Default(),
		rec:      metrics.NoopRecorder{},
		now:      time.Now,
		pageTmpl: pageTmpl,
		tagTmpl:  tagTmpl,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type postLink struct {
	URL     string
	Title   string
	Created *time.Time
}

type view struct {
	Site        models.SiteConfig
	Year        int
	Title       string
	Description string
	Canonical   string
	Image       string
	Created     *time.Time
	Tags        []tags.Tag
	Body        template.HTML
	Posts       []postLink
}

// Publish writes every canonical page, the tag pages, the feed and the
// path list, then removes HTML files left over from earlier publishes.
func (p *Publisher) Publish(ctx context.Context, sm *models.SiteMap) (*Result, error) {
	start := time.Now()
	written := map[string]struct{}{}
	write := func(name string, data []byte) error {
		if err := p.store.Write(name, data); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		written[name] = struct{}{}
		return nil
	}

	res := &Result{}
	excerpts := make(map[string]string, len(sm.CanonicalOrder))
	for _, data := range sm.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := p.renderer.Render(sm, data.PageID)
		if err != nil {
			return nil, fmt.Errorf("publish: %w", err)
		}
		excerpts[data.PageID] = page.Excerpt
		html, err := p.pageHTML(sm, data, page)
		if err != nil {
			return nil, err
		}
		if err := write(path.Join(data.CanonicalPageID, "index.html"), html); err != nil {
			return nil, err
		}
		if sm.IsRoot(data.PageID) {
			if err := write("index.html", html); err != nil {
				return nil, err
			}
		}
		res.Pages++
	}

	for _, t := range tags.List(sm.RecordMap(sm.Site.RootPageID)) {
		html, err := p.TagHTML(sm, t.Slug)
		if err != nil {
			return nil, err
		}
		if err := write(path.Join("tags", t.Slug, "index.html"), html); err != nil {
			return nil, err
		}
		res.Tags++
	}

	xml, err := feed.Build(sm, feed.Options{
		Now:      p.now(),
		Describe: func(id string) string { return excerpts[id] },
	})
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	if err := write(path.Base(feed.Path), xml); err != nil {
		return nil, err
	}

	paths, err := json.MarshalIndent(sm.StaticPaths(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("publish: encode paths: %w", err)
	}
	if err := write(PathsFile, append(paths, '\n')); err != nil {
		return nil, err
	}

	stale, err := p.store.List("", ".html")
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	for _, f := range stale {
		if _, ok := written[f.Path]; ok {
			continue
		}
		if err := p.store.Delete(f.Path); err != nil {
			p.logger.Warn("publish: remove stale file failed", logfields.Path(f.Path), logfields.Error(err))
			continue
		}
		res.Removed++
	}

	elapsed := time.Since(start)
	p.rec.ObservePublishDuration(elapsed)
	p.logger.Info("publish: done",
		slog.Int("pages", res.Pages),
		slog.Int("tags", res.Tags),
		slog.Int("removed", res.Removed),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return res, nil
}

// PageHTML renders the full HTML document of the page published under slug.
func (p *Publisher) PageHTML(sm *models.SiteMap, slug string) ([]byte, error) {
	data, ok := sm.Page(slug)
	if !ok {
		return nil, fmt.Errorf("publish: %w: %s", render.ErrPageNotCrawled, slug)
	}
	page, err := p.renderer.Render(sm, data.PageID)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	return p.pageHTML(sm, data, page)
}

func (p *Publisher) pageHTML(sm *models.SiteMap, data models.CanonicalPageData, page *render.Page) ([]byte, error) {
	v := p.baseView(sm)
	v.Title = data.Title
	if page.Excerpt != "" {
		v.Description = page.Excerpt
	}
	v.Canonical = sm.Site.Host() + sm.URLFor(data.PageID)
	v.Image = feed.SocialImageURL(sm.Site, data.PageID)
	v.Created = data.CreatedTime
	for _, name := range page.Tags {
		if slug := recordmap.NormalizeTitle(name); slug != "" {
			v.Tags = append(v.Tags, tags.Tag{Name: name, Slug: slug})
		}
	}
	v.Body = template.HTML(page.HTML) // goldmark escapes raw HTML
	if sm.IsRoot(data.PageID) {
		v.Title = ""
	}
	return p.execute(p.pageTmpl, v)
}

// TagHTML renders the listing page of one tag.
func (p *Publisher) TagHTML(sm *models.SiteMap, tag string) ([]byte, error) {
	rm := sm.RecordMap(sm.Site.RootPageID)
	filtered := tags.Filter(rm, tag)

	v := p.baseView(sm)
	v.Title = filtered.Tag.Name
	if v.Title == "" {
		v.Title = tag
	}
	v.Canonical = sm.Site.Host() + "/tags/" + recordmap.NormalizeTitle(tag)
	for _, id := range filtered.PageIDs {
		link := postLink{URL: sm.URLFor(id)}
		if slug, ok := sm.SlugFor(id); ok {
			data, _ := sm.Page(slug)
			link.Title, link.Created = data.Title, data.CreatedTime
		} else {
			link.Title = recordmap.TitleOf(rm.GetBlock(id), rm)
		}
		v.Posts = append(v.Posts, link)
	}
	return p.execute(p.tagTmpl, v)
}

func (p *Publisher) baseView(sm *models.SiteMap) view {
	return view{Site: sm.Site, Year: p.now().Year(), Description: sm.Site.Description}
}

func (p *Publisher) execute(t *template.Template, v view) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return nil, fmt.Errorf("publish: execute template: %w", err)
	}
	return buf.Bytes(), nil
}
