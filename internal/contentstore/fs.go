package contentstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
	"github.com/starford/blockpress/internal/storage"
)

// FSClient serves record maps from a snapshot directory holding one
// <compact-id>.json file per page.
type FSClient struct {
	store storage.Provider
}

// NewFSClient returns a client reading snapshots from store.
func NewFSClient(store storage.Provider) *FSClient {
	return &FSClient{store: store}
}

// FetchPage reads and decodes the snapshot of pageID.
func (c *FSClient) FetchPage(ctx context.Context, pageID string) (*models.RecordMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := pageid.Parse(pageID)
	if err != nil {
		return nil, fmt.Errorf("contentstore: fetch: %w", err)
	}
	data, err := c.store.Read(pageid.Compact(id) + ".json")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("contentstore: fetch %s: %w", id, err)
	}
	var rm models.RecordMap
	if err := json.Unmarshal(data, &rm); err != nil {
		return nil, fmt.Errorf("contentstore: decode %s: %w", id, err)
	}
	return &rm, nil
}
