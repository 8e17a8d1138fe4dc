// Package recordmap reads titles, properties and page references out of
// content store record maps.
package recordmap

import "github.com/starford/blockpress/internal/models"

// TitleOf returns the display title of block. Full-page and inline
// collections are titled by their collection's name.
func TitleOf(block *models.Block, rm *models.RecordMap) string {
	if block == nil {
		return ""
	}
	if block.Type == models.BlockTypeCollectionViewPage || block.Type == models.BlockTypeCollectionView {
		if c := rm.GetCollection(block.CollectionID); c != nil {
			if name := c.Name.PlainText(); name != "" {
				return name
			}
		}
	}
	return block.Title()
}
