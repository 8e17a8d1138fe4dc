// Package testutil provides shared fixtures: record map builders and
// on-disk content snapshots.
package testutil

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
	"github.com/starford/blockpress/internal/storage"
)

// SpaceID is the space every fixture block belongs to unless overridden.
const SpaceID = "8d4b1a3e-5c2f-4b7a-9e61-2f0d3c4b5a69"

// ID returns a deterministic dashed page id for n.
func ID(n int) string {
	return fmt.Sprintf("%08x-0000-4000-8000-%012x", n, n)
}

// BlockOption customizes a fixture block.
type BlockOption func(*models.Block)

// Title sets the block's title property.
func Title(s string) BlockOption {
	return func(b *models.Block) { b.Properties["title"] = Text(s) }
}

// Children sets the block's content ids.
func Children(ids ...string) BlockOption {
	return func(b *models.Block) { b.Content = append(b.Content, ids...) }
}

// Parent sets the parent id and table.
func Parent(id, table string) BlockOption {
	return func(b *models.Block) { b.ParentID, b.ParentTable = id, table }
}

// Space overrides the block's space.
func Space(id string) BlockOption {
	return func(b *models.Block) { b.SpaceID = id }
}

// Created sets the native created_time.
func Created(t time.Time) BlockOption {
	return func(b *models.Block) { b.CreatedTime = models.NewTimestamp(t) }
}

// Edited sets the native last_edited_time.
func Edited(t time.Time) BlockOption {
	return func(b *models.Block) { b.LastEditedTime = models.NewTimestamp(t) }
}

// Prop sets a raw property value.
func Prop(id string, rt models.RichText) BlockOption {
	return func(b *models.Block) { b.Properties[id] = rt }
}

// Dead marks the block as deleted.
func Dead() BlockOption {
	return func(b *models.Block) {
		alive := false
		b.Alive = &alive
	}
}

// Block builds a block of the given type.
func Block(id, typ string, opts ...BlockOption) *models.Block {
	b := &models.Block{
		ID:         pageid.Normalize(id),
		Type:       typ,
		SpaceID:    SpaceID,
		Properties: map[string]models.RichText{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// PageBlock builds a page block with a title.
func PageBlock(id, title string, opts ...BlockOption) *models.Block {
	return Block(id, models.BlockTypePage, append([]BlockOption{Title(title)}, opts...)...)
}

// Text builds an undecorated rich text value.
func Text(s string) models.RichText {
	return models.RichText{{Text: s}}
}

// DateText builds a rich text value carrying a date decoration.
func DateText(startDate string) models.RichText {
	arg, _ := json.Marshal(models.DateValue{Type: "date", StartDate: startDate})
	return models.RichText{{Text: "‣", Decorations: []models.Decoration{{Kind: "d", Args: []json.RawMessage{arg}}}}}
}

// Record builds a record map containing blocks.
func Record(blocks ...*models.Block) *models.RecordMap {
	rm := &models.RecordMap{
		Block:           map[string]models.BlockRecord{},
		Collection:      map[string]models.CollectionRecord{},
		CollectionView:  map[string]models.CollectionViewRecord{},
		CollectionQuery: map[string]map[string]models.CollectionQueryResult{},
	}
	for _, b := range blocks {
		rm.Block[b.ID] = models.BlockRecord{Role: "reader", Value: b}
	}
	return rm
}

// WithCollection adds a collection to rm and returns rm.
func WithCollection(rm *models.RecordMap, c *models.Collection) *models.RecordMap {
	rm.Collection[c.ID] = models.CollectionRecord{Role: "reader", Value: c}
	return rm
}

// WithView adds a collection view to rm and returns rm.
func WithView(rm *models.RecordMap, v *models.CollectionView) *models.RecordMap {
	rm.CollectionView[v.ID] = models.CollectionViewRecord{Role: "reader", Value: v}
	return rm
}

// WithQuery records the rows a view of a collection shows.
func WithQuery(rm *models.RecordMap, collectionID, viewID string, blockIDs ...string) *models.RecordMap {
	if rm.CollectionQuery[collectionID] == nil {
		rm.CollectionQuery[collectionID] = map[string]models.CollectionQueryResult{}
	}
	rm.CollectionQuery[collectionID][viewID] = models.CollectionQueryResult{BlockIDs: blockIDs}
	return rm
}

// Collection builds a collection with the given schema.
func Collection(id, name string, schema map[string]models.SchemaProperty) *models.Collection {
	return &models.Collection{ID: id, Name: Text(name), Schema: schema}
}

// SnapshotDir writes each record map as <compact id>.json into a temp
// directory and returns a provider rooted there.
func SnapshotDir(t *testing.T, pages map[string]*models.RecordMap) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	for id, rm := range pages {
		WriteSnapshot(t, store, id, rm)
	}
	return dir, store
}

// WriteSnapshot writes one record map into a snapshot provider.
func WriteSnapshot(t *testing.T, store storage.Provider, id string, rm *models.RecordMap) {
	t.Helper()
	data, err := json.Marshal(rm)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(pageid.Compact(id)+".json", data); err != nil {
		t.Fatal(err)
	}
}
