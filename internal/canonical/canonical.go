// Package canonical derives the URL slug a page is published under.
package canonical

import (
	"strings"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
	"github.com/starford/blockpress/internal/recordmap"
)

// Options controls slug derivation.
type Options struct {
	// EmbedRawID appends the compact page id to every derived slug.
	EmbedRawID bool
}

// Resolver maps page ids to slugs. It is pure: the same inputs always give
// the same slug.
type Resolver struct {
	overrides map[string]string // compact page id -> slug
}

// NewResolver returns a resolver honouring explicit page URL overrides,
// given as slug -> page id the way they appear in the site configuration.
func NewResolver(pageURLOverrides map[string]string) *Resolver {
	r := &Resolver{overrides: make(map[string]string, len(pageURLOverrides))}
	for slug, id := range pageURLOverrides {
		slug = strings.Trim(slug, "/")
		if slug == "" {
			continue
		}
		key := pageid.Compact(id)
		// Lowest slug wins when one page is overridden twice.
		if prev, ok := r.overrides[key]; ok && prev < slug {
			continue
		}
		r.overrides[key] = slug
	}
	return r
}

// Resolve returns the slug for rawPageID. The first non-empty candidate
// wins: a configured override, the page's slug property, its normalized
// title, and finally its compact id. Overrides are used verbatim.
func (r *Resolver) Resolve(rawPageID string, rm *models.RecordMap, opts Options) string {
	compact := pageid.Compact(rawPageID)
	if r != nil {
		if slug, ok := r.overrides[compact]; ok {
			return slug
		}
	}

	block := rm.GetBlock(rawPageID)
	slug := ""
	if block != nil {
		if v, err := recordmap.ReadProperty("slug", block, rm); err == nil {
			slug = recordmap.NormalizeTitle(v.Text())
		}
		if slug == "" {
			slug = recordmap.NormalizeTitle(recordmap.TitleOf(block, rm))
		}
	}
	switch {
	case slug == "":
		return compact
	case opts.EmbedRawID:
		return slug + "-" + compact
	default:
		return slug
	}
}
