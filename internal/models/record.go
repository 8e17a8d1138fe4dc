// Package models defines the content store record graph and the site map
// projected from it.
package models

import "github.com/starford/blockpress/internal/pageid"

// Block types that denote a page.
const (
	BlockTypePage               = "page"
	BlockTypeCollectionViewPage = "collection_view_page"
	BlockTypeCollectionView     = "collection_view"
)

// RecordMap is the record graph for one page as returned by the content store.
type RecordMap struct {
	Block           map[string]BlockRecord                      `json:"block"`
	Collection      map[string]CollectionRecord                 `json:"collection,omitempty"`
	CollectionView  map[string]CollectionViewRecord             `json:"collection_view,omitempty"`
	CollectionQuery map[string]map[string]CollectionQueryResult `json:"collection_query,omitempty"`
}

// BlockRecord wraps a block with the requester's role.
type BlockRecord struct {
	Role  string `json:"role,omitempty"`
	Value *Block `json:"value"`
}

// Block is a node of the page graph.
type Block struct {
	ID             string              `json:"id"`
	Type           string              `json:"type"`
	SpaceID        string              `json:"space_id,omitempty"`
	ParentID       string              `json:"parent_id,omitempty"`
	ParentTable    string              `json:"parent_table,omitempty"`
	Alive          *bool               `json:"alive,omitempty"`
	Content        []string            `json:"content,omitempty"`
	CollectionID   string              `json:"collection_id,omitempty"`
	ViewIDs        []string            `json:"view_ids,omitempty"`
	CreatedTime    Timestamp           `json:"created_time,omitzero"`
	LastEditedTime Timestamp           `json:"last_edited_time,omitzero"`
	Properties     map[string]RichText `json:"properties,omitempty"`
	Format         map[string]any      `json:"format,omitempty"`
}

// IsAlive reports whether the block has not been deleted.
func (b *Block) IsAlive() bool {
	return b.Alive == nil || *b.Alive
}

// IsPage reports whether the block is a page or a full-page collection.
func (b *Block) IsPage() bool {
	return b.Type == BlockTypePage || b.Type == BlockTypeCollectionViewPage
}

// Title returns the plain text of the block's title property.
func (b *Block) Title() string {
	return b.Properties["title"].PlainText()
}

// FormatString returns a string-valued format attribute.
func (b *Block) FormatString(key string) string {
	s, _ := b.Format[key].(string)
	return s
}

// CollectionRecord wraps a collection.
type CollectionRecord struct {
	Role  string      `json:"role,omitempty"`
	Value *Collection `json:"value"`
}

// Collection is a database: a schema shared by the pages it contains.
type Collection struct {
	ID       string                    `json:"id"`
	Name     RichText                  `json:"name,omitempty"`
	ParentID string                    `json:"parent_id,omitempty"`
	Schema   map[string]SchemaProperty `json:"schema"`
}

// SchemaProperty describes one column of a collection.
type SchemaProperty struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Options []SelectOption `json:"options,omitempty"`
}

// SelectOption is one choice of a select or multi_select property.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Value string `json:"value"`
	Color string `json:"color,omitempty"`
}

// CollectionViewRecord wraps a collection view.
type CollectionViewRecord struct {
	Role  string          `json:"role,omitempty"`
	Value *CollectionView `json:"value"`
}

// CollectionView is a presentation (table, gallery, ...) of a collection.
type CollectionView struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// CollectionQueryResult lists the blocks a view shows.
type CollectionQueryResult struct {
	BlockIDs               []string    `json:"blockIds,omitempty"`
	CollectionGroupResults *QueryGroup `json:"collection_group_results,omitempty"`
}

// QueryGroup is the grouped form of a query result.
type QueryGroup struct {
	BlockIDs []string `json:"blockIds"`
}

// IDs returns the result's block ids, preferring the grouped form.
func (q CollectionQueryResult) IDs() []string {
	if q.CollectionGroupResults != nil {
		return q.CollectionGroupResults.BlockIDs
	}
	return q.BlockIDs
}

// GetBlock returns the live or dead block stored under id in any id form.
func (rm *RecordMap) GetBlock(id string) *Block {
	if rm == nil || rm.Block == nil {
		return nil
	}
	if r, ok := rm.Block[id]; ok && r.Value != nil {
		return r.Value
	}
	if r, ok := rm.Block[pageid.Normalize(id)]; ok && r.Value != nil {
		return r.Value
	}
	if r, ok := rm.Block[pageid.Compact(id)]; ok && r.Value != nil {
		return r.Value
	}
	return nil
}

// GetCollection returns the collection stored under id.
func (rm *RecordMap) GetCollection(id string) *Collection {
	if rm == nil || rm.Collection == nil {
		return nil
	}
	if r, ok := rm.Collection[id]; ok && r.Value != nil {
		return r.Value
	}
	if r, ok := rm.Collection[pageid.Normalize(id)]; ok && r.Value != nil {
		return r.Value
	}
	return nil
}

// PageMap is the result of a crawl: record maps keyed by dashed page id,
// with the order in which the crawl enumerated them.
type PageMap struct {
	Order []string
	Pages map[string]*RecordMap
}

// NewPageMap returns an empty PageMap.
func NewPageMap() *PageMap {
	return &PageMap{Pages: make(map[string]*RecordMap)}
}

// Add records rm under id unless the id is already present.
func (pm *PageMap) Add(id string, rm *RecordMap) bool {
	if _, ok := pm.Pages[id]; ok {
		return false
	}
	pm.Pages[id] = rm
	pm.Order = append(pm.Order, id)
	return true
}

// Len returns the number of pages.
func (pm *PageMap) Len() int { return len(pm.Order) }
