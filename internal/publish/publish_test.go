package publish

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/blockpress/internal/contentstore"
	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/render"
	"github.com/starford/blockpress/internal/sitemap"
	"github.com/starford/blockpress/internal/storage"
	"github.com/starford/blockpress/internal/testutil"
)

func buildSiteMap(t *testing.T) *models.SiteMap {
	t.Helper()
	_, snapshots := testutil.SnapshotDir(t, testutil.BlogSnapshot())
	b := sitemap.New(contentstore.NewFSClient(snapshots), sitemap.Options{Site: testutil.BlogSite()},
		sitemap.WithLogger(slog.New(slog.DiscardHandler)))
	sm, err := b.SiteMap(context.Background())
	require.NoError(t, err)
	return sm
}

func newPublisher(t *testing.T) (*Publisher, string) {
	t.Helper()
	out := t.TempDir()
	store, err := storage.NewFS(out)
	require.NoError(t, err)
	p, err := New(store, render.New(),
		WithLogger(slog.New(slog.DiscardHandler)),
		WithClock(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }))
	require.NoError(t, err)
	return p, out
}

func read(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	require.NoError(t, err, name)
	return string(data)
}

func TestPublish(t *testing.T) {
	sm := buildSiteMap(t)
	p, out := newPublisher(t)

	require.NoError(t, os.MkdirAll(filepath.Join(out, "old-post"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "old-post", "index.html"), []byte("stale"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(out, "style.css"), []byte("body{}"), 0o644))

	res, err := p.Publish(context.Background(), sm)
	require.NoError(t, err)
	assert.Equal(t, &Result{Pages: 3, Tags: 2, Removed: 1}, res)

	home := read(t, out, "index.html")
	assert.Equal(t, home, read(t, out, "home/index.html"))
	assert.Contains(t, home, "<title>Field Notes</title>")
	assert.Contains(t, home, "Welcome to the blog.")
	assert.Contains(t, home, `<a href="/first-post">First Post</a>`)

	post := read(t, out, "first-post/index.html")
	assert.Contains(t, post, "<title>First Post | Field Notes</title>")
	assert.Contains(t, post, `<meta name="description" content="Hello from Go.">`)
	assert.Contains(t, post, `<link rel="canonical" href="https://notes.example.com/first-post">`)
	assert.Contains(t, post, `<time datetime="2024-03-01">March 1, 2024</time>`)
	assert.Contains(t, post, `<a class="tag" href="/tags/go">Go</a>`)
	assert.Contains(t, post, "&copy; 2025 Sam Doe")

	goTag := read(t, out, "tags/go/index.html")
	assert.Contains(t, goTag, `<a href="/first-post">First Post</a>`)
	assert.NotContains(t, goTag, "second-post")

	var paths []string
	require.NoError(t, json.Unmarshal([]byte(read(t, out, PathsFile)), &paths))
	assert.Equal(t, []string{"/home", "/first-post", "/second-post"}, paths)

	feed := read(t, out, "feed.xml")
	assert.Contains(t, feed, "<link>https://notes.example.com/first-post</link>")
	assert.Contains(t, feed, "<description>Hello from Go.</description>")
	assert.NotContains(t, feed, "https://notes.example.com/home</link>")

	assert.NoFileExists(t, filepath.Join(out, "old-post", "index.html"))
	assert.NoDirExists(t, filepath.Join(out, "old-post"))
	assert.FileExists(t, filepath.Join(out, "style.css"))

	again, err := p.Publish(context.Background(), sm)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Removed)
}

func TestPublish_Canceled(t *testing.T) {
	sm := buildSiteMap(t)
	p, _ := newPublisher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Publish(ctx, sm)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPageHTML_Unknown(t *testing.T) {
	sm := buildSiteMap(t)
	p, _ := newPublisher(t)
	_, err := p.PageHTML(sm, "nope")
	assert.ErrorIs(t, err, render.ErrPageNotCrawled)

	html, err := p.PageHTML(sm, "second-post")
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>Second Post</h1>")
}
