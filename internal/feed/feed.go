// Package feed renders the site's RSS 2.0 feed.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
)

// Path is where the feed is served and published.
const Path = "/feed.xml"

// CacheControl is sent with the feed: cache for eight hours and serve
// stale while revalidating for as long again.
const CacheControl = "public, max-age=28800, stale-while-revalidate=28800"

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	DC      string   `xml:"xmlns:dc,attr"`
	Atom    string   `xml:"xmlns:atom,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title         string   `xml:"title"`
	Link          string   `xml:"link"`
	Description   string   `xml:"description"`
	Language      string   `xml:"language,omitempty"`
	Generator     string   `xml:"generator"`
	LastBuildDate string   `xml:"lastBuildDate"`
	Self          atomLink `xml:"atom:link"`
	Copyright     string   `xml:"copyright,omitempty"`
	WebMaster     string   `xml:"webMaster,omitempty"`
	Items         []item   `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type item struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	Description string     `xml:"description,omitempty"`
	GUID        guid       `xml:"guid"`
	Creator     string     `xml:"dc:creator,omitempty"`
	PubDate     string     `xml:"pubDate,omitempty"`
	Enclosure   *enclosure `xml:"enclosure"`
}

type guid struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int    `xml:"length,attr"`
}

// Options tunes a feed build.
type Options struct {
	// Now stamps lastBuildDate and the copyright year; zero means time.Now.
	Now time.Time
	// Describe returns an item description for a page; nil omits them.
	Describe func(pageID string) string
}

// Build renders the feed of sm: one item per canonical page except the
// root page, in canonical order.
func Build(sm *models.SiteMap, opts Options) ([]byte, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	site := sm.Site
	host := site.Host()

	ch := channel{
		Title:         site.Name,
		Link:          host,
		Description:   site.Description,
		Language:      site.Language,
		Generator:     "blockpress",
		LastBuildDate: now.UTC().Format(time.RFC1123Z),
		Self:          atomLink{Href: host + Path, Rel: "self", Type: "application/rss+xml"},
		WebMaster:     site.Author,
	}
	if site.Author != "" {
		ch.Copyright = fmt.Sprintf("%d %s", now.Year(), site.Author)
	}

	for _, page := range sm.Pages() {
		if sm.IsRoot(page.PageID) {
			continue
		}
		it := item{
			Title:   page.Title,
			Link:    host + "/" + page.CanonicalPageID,
			GUID:    guid{Value: page.PageID},
			Creator: site.Author,
		}
		if page.CreatedTime != nil {
			it.PubDate = page.CreatedTime.UTC().Format(time.RFC1123Z)
		}
		if opts.Describe != nil {
			it.Description = opts.Describe(page.PageID)
		}
		if img := SocialImageURL(site, page.PageID); img != "" {
			it.Enclosure = &enclosure{URL: img, Type: "image/jpeg"}
		}
		ch.Items = append(ch.Items, it)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	doc := rss{
		Version: "2.0",
		DC:      "http://purl.org/dc/elements/1.1/",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: ch,
	}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("feed: encode: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// SocialImageURL returns the preview image of a page, or "" when the site
// has no social image service.
func SocialImageURL(site models.SiteConfig, pageID string) string {
	if site.SocialImageBase == "" {
		return ""
	}
	return strings.TrimRight(site.SocialImageBase, "/") + "?id=" + pageid.Compact(pageID)
}
