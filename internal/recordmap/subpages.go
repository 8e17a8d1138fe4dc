package recordmap

import (
	"sort"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
)

// SubPageIDs lists the pages referenced from the record map of pageID, in
// a deterministic order: pages reachable through the page's content tree
// first, then other page blocks present in the record map by id, then the
// rows of every collection query (collections and views by id). Dead
// blocks and blocks belonging to a space other than spaceID are skipped.
// Ids that do not parse are dropped. Returned ids are in dashed form and
// never include pageID itself.
func SubPageIDs(pageID string, rm *models.RecordMap, spaceID string) []string {
	if rm == nil {
		return nil
	}
	seen := map[string]struct{}{pageid.Compact(pageID): {}}
	var out []string
	add := func(id string) {
		norm, err := pageid.Parse(id)
		if err != nil {
			return
		}
		key := pageid.Compact(norm)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, norm)
	}
	eligible := func(b *models.Block) bool {
		if b == nil || !b.IsAlive() || !b.IsPage() {
			return false
		}
		return spaceID == "" || b.SpaceID == "" || b.SpaceID == spaceID
	}

	visited := make(map[string]struct{})
	var walk func(id string)
	walk = func(id string) {
		if _, ok := visited[id]; ok {
			return
		}
		visited[id] = struct{}{}
		b := rm.GetBlock(id)
		if b == nil {
			return
		}
		for _, child := range b.Content {
			cb := rm.GetBlock(child)
			if cb == nil {
				continue
			}
			if cb.IsPage() {
				if eligible(cb) {
					add(cb.ID)
				}
				continue
			}
			walk(child)
		}
	}
	walk(pageID)

	keys := make([]string, 0, len(rm.Block))
	for k := range rm.Block {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if b := rm.Block[k].Value; eligible(b) {
			add(k)
		}
	}

	collectionIDs := make([]string, 0, len(rm.CollectionQuery))
	for id := range rm.CollectionQuery {
		collectionIDs = append(collectionIDs, id)
	}
	sort.Strings(collectionIDs)
	for _, cid := range collectionIDs {
		views := rm.CollectionQuery[cid]
		viewIDs := make([]string, 0, len(views))
		for id := range views {
			viewIDs = append(viewIDs, id)
		}
		sort.Strings(viewIDs)
		for _, vid := range viewIDs {
			for _, id := range views[vid].IDs() {
				if b := rm.GetBlock(id); b != nil && !eligible(b) {
					continue
				}
				add(id)
			}
		}
	}
	return out
}
