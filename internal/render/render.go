// Package render turns crawled pages into Markdown and HTML.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/recordmap"
)

// ErrPageNotCrawled is returned for pages missing from the site map.
var ErrPageNotCrawled = errors.New("render: page not in site map")

const excerptLimit = 280

// Page is one rendered page.
type Page struct {
	PageID   string
	Slug     string
	Title    string
	Tags     []string
	Markdown string
	HTML     string
	Excerpt  string
	// Links are the ids of pages this page links to, in document order.
	Links []string
}

// Renderer converts pages of a site map.
type Renderer struct {
	md goldmark.Markdown
}

// New returns a Renderer producing GitHub flavoured HTML.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithXHTML()),
		),
	}
}

// Render renders pageID as crawled into sm.
func (r *Renderer) Render(sm *models.SiteMap, pageID string) (*Page, error) {
	rm := sm.RecordMap(pageID)
	block := rm.GetBlock(pageID)
	if block == nil {
		return nil, fmt.Errorf("%w: %s", ErrPageNotCrawled, pageID)
	}
	md, links := Markdown(block, rm, sm.URLFor)
	html, err := r.HTML(md)
	if err != nil {
		return nil, fmt.Errorf("render: %s: %w", pageID, err)
	}
	slug, _ := sm.SlugFor(pageID)
	return &Page{
		PageID:   block.ID,
		Slug:     slug,
		Title:    recordmap.TitleOf(block, rm),
		Tags:     recordmap.PageTags(block, rm),
		Markdown: md,
		HTML:     html,
		Excerpt:  Excerpt(block, rm),
		Links:    links,
	}, nil
}

// Markdown renders the content of page and returns the ids of the pages
// it links to.
func Markdown(page *models.Block, rm *models.RecordMap, url URLFunc) (string, []string) {
	w := newMarkdownWriter(rm, url)
	w.writeChildren(page, 0, map[string]struct{}{page.ID: {}})
	out := w.b.String()
	if out != "" {
		out += "\n"
	}
	return out, w.links
}

// HTML converts Markdown to HTML.
func (r *Renderer) HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Excerpt returns the plain text of the first non-empty paragraph of
// page, cut at a word boundary when long.
func Excerpt(page *models.Block, rm *models.RecordMap) string {
	if page == nil {
		return ""
	}
	for _, id := range page.Content {
		b := rm.GetBlock(id)
		if b == nil || !b.IsAlive() || b.Type != "text" {
			continue
		}
		text := strings.Join(strings.Fields(b.Properties["title"].PlainText()), " ")
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) <= excerptLimit {
			return text
		}
		runes := []rune(text)[:excerptLimit]
		cut := string(runes)
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
		return cut + "…"
	}
	return ""
}
