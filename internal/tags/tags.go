// Package tags lists the tags of the blog collection and filters its
// gallery by tag. Lookups are lenient: a record map without a collection,
// gallery view or tags property simply yields nothing.
package tags

import (
	"slices"
	"sort"
	"strings"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/recordmap"
)

// PropertyName is the schema property holding a post's tags.
const PropertyName = "tags"

// Tag is one option of the tags property.
type Tag struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Filtered is the result of filtering the gallery by one tag.
type Filtered struct {
	// Tag is the matched option; empty Name when no option matched.
	Tag     Tag      `json:"tag"`
	PageIDs []string `json:"pageIds"`
}

// List returns the tags defined on the first collection of rm, in schema
// option order, skipping options that normalize to nothing.
func List(rm *models.RecordMap) []Tag {
	c := firstCollection(rm)
	if c == nil {
		return nil
	}
	_, prop, ok := recordmap.SchemaProperty(c, PropertyName)
	if !ok {
		return nil
	}
	var out []Tag
	for _, opt := range prop.Options {
		if slug := recordmap.NormalizeTitle(opt.Value); slug != "" {
			out = append(out, Tag{Name: opt.Value, Slug: slug})
		}
	}
	return out
}

// Paths returns /tags/<slug> for every tag of rm.
func Paths(rm *models.RecordMap) []string {
	var out []string
	for _, t := range List(rm) {
		out = append(out, "/tags/"+t.Slug)
	}
	return out
}

// Filter returns the gallery rows of rm tagged rawTag. Tags compare by
// normalized title and a row's tag value may hold several comma separated
// tags.
func Filter(rm *models.RecordMap, rawTag string) Filtered {
	want := recordmap.NormalizeTitle(rawTag)
	c := firstCollection(rm)
	if c == nil || want == "" {
		return Filtered{}
	}
	view := galleryView(rm)
	if view == nil || galleryBlock(rm, view.ID) == nil {
		return Filtered{}
	}
	propID, prop, ok := recordmap.SchemaProperty(c, PropertyName)
	if !ok {
		return Filtered{}
	}

	res := Filtered{}
	for _, opt := range prop.Options {
		if recordmap.NormalizeTitle(opt.Value) == want {
			res.Tag = Tag{Name: opt.Value, Slug: want}
			break
		}
	}

	query, ok := rm.CollectionQuery[c.ID][view.ID]
	if !ok {
		return res
	}
	for _, id := range query.IDs() {
		block := rm.GetBlock(id)
		if block == nil || len(block.Properties[propID]) == 0 {
			continue
		}
		value := block.Properties[propID][0].Text
		if slices.ContainsFunc(strings.Split(value, ","), func(v string) bool {
			return recordmap.NormalizeTitle(v) == want
		}) {
			res.PageIDs = append(res.PageIDs, id)
		}
	}
	return res
}

func firstCollection(rm *models.RecordMap) *models.Collection {
	if rm == nil {
		return nil
	}
	ids := sortedKeys(rm.Collection)
	for _, id := range ids {
		if c := rm.Collection[id].Value; c != nil {
			return c
		}
	}
	return nil
}

func galleryView(rm *models.RecordMap) *models.CollectionView {
	for _, id := range sortedKeys(rm.CollectionView) {
		if v := rm.CollectionView[id].Value; v != nil && v.Type == "gallery" {
			return v
		}
	}
	return nil
}

func galleryBlock(rm *models.RecordMap, viewID string) *models.Block {
	for _, id := range sortedKeys(rm.Block) {
		b := rm.Block[id].Value
		if b != nil && b.Type == models.BlockTypeCollectionView && slices.Contains(b.ViewIDs, viewID) {
			return b
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
