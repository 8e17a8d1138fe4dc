package index

import (
	"context"
	"log/slog"

	"github.com/starford/blockpress/internal/checksum"
	"github.com/starford/blockpress/internal/logfields"
	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/render"
)

// SyncResult counts what one Sync changed.
type SyncResult struct {
	Indexed   int `json:"indexed"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

// Sync brings the index up to date with sm:
//   - pages whose content or metadata changed are rendered and upserted
//   - slugs no longer in sm are deleted from the index
//
// A page that fails to render is logged and skipped.
func Sync(ctx context.Context, db *DB, sm *models.SiteMap, r *render.Renderer, logger *slog.Logger) (SyncResult, error) {
	var res SyncResult
	checksums, err := db.AllChecksums()
	if err != nil {
		return res, err
	}

	live := make(map[string]struct{}, len(sm.CanonicalOrder))
	for _, data := range sm.Pages() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		live[data.CanonicalPageID] = struct{}{}

		cs, err := pageChecksum(sm, data)
		if err != nil {
			logger.Warn("sync: checksum failed", logfields.Slug(data.CanonicalPageID), logfields.Error(err))
			continue
		}
		if checksums[data.CanonicalPageID] == cs {
			res.Unchanged++
			continue
		}
		if err := indexPage(db, sm, r, data, cs); err != nil {
			logger.Warn("sync: index failed", logfields.Slug(data.CanonicalPageID), logfields.Error(err))
			continue
		}
		res.Indexed++
		logger.Debug("sync: indexed", logfields.Slug(data.CanonicalPageID))
	}

	for slug := range checksums {
		if _, ok := live[slug]; ok {
			continue
		}
		if err := db.DeletePage(slug); err != nil {
			logger.Warn("sync: delete failed", logfields.Slug(slug), logfields.Error(err))
			continue
		}
		res.Removed++
		logger.Debug("sync: removed stale", logfields.Slug(slug))
	}
	return res, nil
}

// pageChecksum fingerprints the canonical metadata together with the
// page's record map.
func pageChecksum(sm *models.SiteMap, data models.CanonicalPageData) (string, error) {
	return checksum.JSON(struct {
		Data      models.CanonicalPageData `json:"data"`
		RecordMap *models.RecordMap        `json:"recordMap"`
	}{data, sm.RecordMap(data.PageID)})
}

func indexPage(db *DB, sm *models.SiteMap, r *render.Renderer, data models.CanonicalPageData, cs string) error {
	page, err := r.Render(sm, data.PageID)
	if err != nil {
		return err
	}
	var links []string
	for _, id := range page.Links {
		if slug, ok := sm.SlugFor(id); ok && slug != data.CanonicalPageID {
			links = append(links, slug)
		}
	}
	row := PageRow{
		Slug:      data.CanonicalPageID,
		PageID:    data.PageID,
		Title:     data.Title,
		Checksum:  cs,
		Tags:      page.Tags,
		CreatedAt: data.CreatedTime,
		EditedAt:  data.LastEditedTime,
	}
	return db.UpsertPage(row, page.Markdown, links)
}
