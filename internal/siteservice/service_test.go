package siteservice

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/blockpress/internal/apperr"
	"github.com/starford/blockpress/internal/contentstore"
	"github.com/starford/blockpress/internal/index"
	"github.com/starford/blockpress/internal/publish"
	"github.com/starford/blockpress/internal/render"
	"github.com/starford/blockpress/internal/sitemap"
	"github.com/starford/blockpress/internal/storage"
	"github.com/starford/blockpress/internal/testutil"
)

func newService(t *testing.T) (*Service, string) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	_, snapshots := testutil.SnapshotDir(t, testutil.BlogSnapshot())
	builder := sitemap.New(contentstore.NewFSClient(snapshots), sitemap.Options{Site: testutil.BlogSite()},
		sitemap.WithLogger(logger))

	f, err := os.CreateTemp("", "blockpress-svc-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	db, err := index.Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	out := t.TempDir()
	store, err := storage.NewFS(out)
	require.NoError(t, err)
	renderer := render.New()
	pub, err := publish.New(store, renderer, publish.WithLogger(logger))
	require.NoError(t, err)

	return NewService(builder, db, renderer, WithPublisher(pub), WithLogger(logger)), out
}

func TestRebuild(t *testing.T) {
	svc, out := newService(t)
	var notified []RebuildResult
	svc.OnRebuild(func(r RebuildResult) { notified = append(notified, r) })
	assert.True(t, svc.LastRebuild().IsZero())

	res, err := svc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Zero(t, res.Duplicates)
	assert.Equal(t, index.SyncResult{Indexed: 3}, res.Index)
	require.NotNil(t, res.Published)
	assert.Equal(t, 3, res.Published.Pages)
	assert.FileExists(t, out+"/first-post/index.html")
	require.Len(t, notified, 1)
	assert.Equal(t, 3, notified[0].Pages)
	assert.False(t, svc.LastRebuild().IsZero())

	res, err = svc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, index.SyncResult{Unchanged: 3}, res.Index)
	assert.Len(t, notified, 2)
}

func TestGetPage(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Rebuild(ctx)
	require.NoError(t, err)

	page, err := svc.GetPage(ctx, "first-post")
	require.NoError(t, err)
	assert.Equal(t, testutil.ID(10), page.PageID)
	assert.Equal(t, "https://notes.example.com/first-post", page.URL)
	assert.Equal(t, []string{"Go"}, page.Tags)
	assert.Equal(t, "Hello from Go.", page.Excerpt)
	assert.Contains(t, page.HTML, "Hello from Go.")
	assert.Contains(t, page.Backlinks, "home")

	_, err = svc.GetPage(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	html, err := svc.PageHTML(ctx, "second-post")
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>Second Post</h1>")
	_, err = svc.PageHTML(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListAndSearch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Rebuild(ctx)
	require.NoError(t, err)

	items, total, err := svc.ListPages(ctx, 10, 0, "go", "title")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "first-post", items[0].Slug)

	hits, err := svc.Search(ctx, "Hello", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "first-post", hits[0].Slug)

	paths, err := svc.StaticPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/home", "/first-post", "/second-post"}, paths)

	nodes, _, err := svc.Graph(ctx)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
}

func TestTags(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Rebuild(ctx)
	require.NoError(t, err)

	got, err := svc.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TagSummary{
		{Name: "Go", Slug: "go", Count: 1},
		{Name: "Rust", Slug: "rust", Count: 1},
	}, got)

	tagged, err := svc.TaggedPages(ctx, "Rust")
	require.NoError(t, err)
	assert.Equal(t, "rust", tagged.Tag.Slug)
	require.Len(t, tagged.Pages, 1)
	assert.Equal(t, "second-post", tagged.Pages[0].Slug)
	assert.Equal(t, []string{"Rust"}, tagged.Pages[0].Tags)

	_, err = svc.TaggedPages(ctx, "python")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFeed(t *testing.T) {
	svc, _ := newService(t)
	out, err := svc.Feed(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(out), "<link>https://notes.example.com/first-post</link>")
	assert.Contains(t, string(out), "<description>Hello from Go.</description>")
}
