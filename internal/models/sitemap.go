package models

import (
	"time"

	"github.com/starford/blockpress/internal/pageid"
)

// SiteConfig describes the published site.
type SiteConfig struct {
	Name            string `json:"name"`
	Domain          string `json:"domain"`
	Author          string `json:"author"`
	Description     string `json:"description"`
	Language        string `json:"language,omitempty"`
	RootPageID      string `json:"rootPageId"`
	RootSpaceID     string `json:"rootSpaceId,omitempty"`
	SocialImageBase string `json:"socialImageBase,omitempty"`
}

// Host returns the site origin, e.g. "https://example.com".
func (s SiteConfig) Host() string {
	if s.Domain == "" {
		return ""
	}
	return "https://" + s.Domain
}

// CanonicalPageData is the resolved metadata of one published page.
type CanonicalPageData struct {
	PageID          string     `json:"pageId"`
	CanonicalPageID string     `json:"canonicalPageId"`
	Title           string     `json:"title"`
	CreatedTime     *time.Time `json:"createdTime"`
	LastEditedTime  *time.Time `json:"lastEditedTime"`
}

// SiteMap is an immutable snapshot of the crawled site. Consumers read it
// and must not modify it after the builder returns it.
type SiteMap struct {
	Site             SiteConfig                   `json:"site"`
	PageMap          map[string]*RecordMap        `json:"pageMap"`
	CanonicalPageMap map[string]CanonicalPageData `json:"canonicalPageMap"`

	// PageOrder and CanonicalOrder hold the crawl enumeration order.
	PageOrder      []string `json:"-"`
	CanonicalOrder []string `json:"-"`

	slugs    map[string]string // compact page id -> slug
	shadowed map[string]string // compact page id -> slug taken by an earlier page
}

// NewSiteMap starts a site map over the crawled pages with an empty canonical map.
func NewSiteMap(site SiteConfig, pages *PageMap) *SiteMap {
	return &SiteMap{
		Site:             site,
		PageMap:          pages.Pages,
		PageOrder:        pages.Order,
		CanonicalPageMap: make(map[string]CanonicalPageData, pages.Len()),
		slugs:            make(map[string]string, pages.Len()),
	}
}

// Insert adds data under its canonical id unless that id is taken. When it
// is taken the existing entry is returned and nothing changes.
func (sm *SiteMap) Insert(data CanonicalPageData) (existing CanonicalPageData, inserted bool) {
	if prev, ok := sm.CanonicalPageMap[data.CanonicalPageID]; ok {
		if sm.shadowed == nil {
			sm.shadowed = make(map[string]string)
		}
		sm.shadowed[pageid.Compact(data.PageID)] = data.CanonicalPageID
		return prev, false
	}
	sm.CanonicalPageMap[data.CanonicalPageID] = data
	sm.CanonicalOrder = append(sm.CanonicalOrder, data.CanonicalPageID)
	if sm.slugs == nil {
		sm.slugs = make(map[string]string)
	}
	sm.slugs[pageid.Compact(data.PageID)] = data.CanonicalPageID
	return data, true
}

// Pages returns the canonical pages in enumeration order.
func (sm *SiteMap) Pages() []CanonicalPageData {
	out := make([]CanonicalPageData, 0, len(sm.CanonicalOrder))
	for _, slug := range sm.CanonicalOrder {
		out = append(out, sm.CanonicalPageMap[slug])
	}
	return out
}

// Page returns the canonical page published under slug.
func (sm *SiteMap) Page(slug string) (CanonicalPageData, bool) {
	p, ok := sm.CanonicalPageMap[slug]
	return p, ok
}

// SlugFor returns the canonical id under which pageID is published.
func (sm *SiteMap) SlugFor(pageID string) (string, bool) {
	slug, ok := sm.slugs[pageid.Compact(pageID)]
	return slug, ok
}

// URLFor returns the site-relative URL of pageID. The root page maps to
// "/". A page whose slug was taken by an earlier page links to that slug;
// pages never canonicalized fall back to their compact id.
func (sm *SiteMap) URLFor(pageID string) string {
	if pageid.Equal(pageID, sm.Site.RootPageID) {
		return "/"
	}
	if slug, ok := sm.SlugFor(pageID); ok {
		return "/" + slug
	}
	if slug, ok := sm.shadowed[pageid.Compact(pageID)]; ok {
		return "/" + slug
	}
	return "/" + pageid.Compact(pageID)
}

// RecordMap returns the crawled record map of pageID.
func (sm *SiteMap) RecordMap(pageID string) *RecordMap {
	if rm, ok := sm.PageMap[pageID]; ok {
		return rm
	}
	return sm.PageMap[pageid.Normalize(pageID)]
}

// IsRoot reports whether pageID is the site's root page.
func (sm *SiteMap) IsRoot(pageID string) bool {
	return pageid.Equal(pageID, sm.Site.RootPageID)
}

// StaticPaths lists the URL path of every canonical page in enumeration order.
func (sm *SiteMap) StaticPaths() []string {
	out := make([]string, 0, len(sm.CanonicalOrder))
	for _, slug := range sm.CanonicalOrder {
		out = append(out, "/"+slug)
	}
	return out
}

// Duplicates counts crawled pages that lost their slug to an earlier page.
func (sm *SiteMap) Duplicates() int {
	return len(sm.PageOrder) - len(sm.CanonicalOrder)
}
