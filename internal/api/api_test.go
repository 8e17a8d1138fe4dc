package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/blockpress/internal/contentstore"
	"github.com/starford/blockpress/internal/index"
	"github.com/starford/blockpress/internal/metrics"
	"github.com/starford/blockpress/internal/publish"
	"github.com/starford/blockpress/internal/render"
	"github.com/starford/blockpress/internal/siteservice"
	"github.com/starford/blockpress/internal/sitemap"
	"github.com/starford/blockpress/internal/storage"
	"github.com/starford/blockpress/internal/testutil"
)

type recordedRequest struct {
	route  string
	status int
}

type fakeRecorder struct {
	metrics.NoopRecorder
	mu   sync.Mutex
	reqs []recordedRequest
}

func (f *fakeRecorder) IncHTTPRequest(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, recordedRequest{route, status})
}

// testEnv sets up a snapshot dir, SQLite DB, service, and server for testing.
func testEnv(t *testing.T) (http.Handler, *fakeRecorder) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	_, snapshots := testutil.SnapshotDir(t, testutil.BlogSnapshot())
	builder := sitemap.New(contentstore.NewFSClient(snapshots), sitemap.Options{Site: testutil.BlogSite()},
		sitemap.WithLogger(logger))

	dbFile, err := os.CreateTemp("", "blockpress-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	renderer := render.New()
	pub, err := publish.New(store, renderer, publish.WithLogger(logger))
	if err != nil {
		t.Fatalf("publish.New: %v", err)
	}

	svc := siteservice.NewService(builder, db, renderer, siteservice.WithPublisher(pub), siteservice.WithLogger(logger))
	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	rec := &fakeRecorder{}
	srv := NewServer(svc, ServerOptions{
		Recorder: rec,
		Metrics:  http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
	})
	return srv, rec
}

func do(t *testing.T, h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetPage(t *testing.T) {
	srv, _ := testEnv(t)

	w := do(t, srv, http.MethodGet, "/api/pages/first-post", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	var page PageDetail
	_ = json.Unmarshal(w.Body.Bytes(), &page)
	if page.Title != "First Post" {
		t.Errorf("title = %q, want First Post", page.Title)
	}
	if page.PageID != testutil.ID(10) {
		t.Errorf("pageId = %q", page.PageID)
	}
	if len(page.Backlinks) != 1 || page.Backlinks[0] != "home" {
		t.Errorf("backlinks = %v, want [home]", page.Backlinks)
	}
}

func TestGetPage_NotFound(t *testing.T) {
	srv, _ := testEnv(t)
	w := do(t, srv, http.MethodGet, "/api/pages/nonexistent", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListPages(t *testing.T) {
	srv, _ := testEnv(t)

	w := do(t, srv, http.MethodGet, "/api/pages?tag=rust", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp PageListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || len(resp.Pages) != 1 || resp.Pages[0].Slug != "second-post" {
		t.Errorf("list = %+v, want only second-post", resp)
	}

	w = do(t, srv, http.MethodGet, "/api/pages?limit=2&sort=title", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 3 || len(resp.Pages) != 2 || resp.Pages[0].Slug != "first-post" {
		t.Errorf("paged list = %+v", resp)
	}
}

func TestPathsAndSiteMap(t *testing.T) {
	srv, _ := testEnv(t)

	w := do(t, srv, http.MethodGet, "/api/paths", nil)
	var paths PathsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &paths)
	want := []string{"/home", "/first-post", "/second-post"}
	if strings.Join(paths.Paths, ",") != strings.Join(want, ",") {
		t.Errorf("paths = %v, want %v", paths.Paths, want)
	}

	w = do(t, srv, http.MethodGet, "/api/sitemap", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sitemap status = %d", w.Code)
	}
	var sm struct {
		CanonicalPageMap map[string]struct {
			PageID string `json:"pageId"`
		} `json:"canonicalPageMap"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &sm)
	if sm.CanonicalPageMap["second-post"].PageID != testutil.ID(11) {
		t.Errorf("canonicalPageMap = %+v", sm.CanonicalPageMap)
	}
}

func TestSearchEndpoint(t *testing.T) {
	srv, _ := testEnv(t)

	w := do(t, srv, http.MethodGet, "/api/search?q=Hello", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Slug != "first-post" {
		t.Errorf("results = %+v, want first-post", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	srv, _ := testEnv(t)
	w := do(t, srv, http.MethodGet, "/api/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTagsEndpoints(t *testing.T) {
	srv, _ := testEnv(t)

	w := do(t, srv, http.MethodGet, "/api/tags", nil)
	var tags TagsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &tags)
	if len(tags.Tags) != 2 || tags.Tags[0].Slug != "go" || tags.Tags[0].Count != 1 {
		t.Errorf("tags = %+v", tags.Tags)
	}

	w = do(t, srv, http.MethodGet, "/api/tags/go", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tagged status = %d", w.Code)
	}
	var tagged siteservice.TaggedPages
	_ = json.Unmarshal(w.Body.Bytes(), &tagged)
	if len(tagged.Pages) != 1 || tagged.Pages[0].Slug != "first-post" {
		t.Errorf("tagged = %+v", tagged)
	}

	w = do(t, srv, http.MethodGet, "/api/tags/python", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown tag status = %d, want 404", w.Code)
	}
}

func TestGraphEndpoint(t *testing.T) {
	srv, _ := testEnv(t)

	w := do(t, srv, http.MethodGet, "/api/graph", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graph status = %d", w.Code)
	}
	var resp GraphResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(resp.Nodes))
	}
	if len(resp.Links) != 2 {
		t.Errorf("links = %+v, want home -> both posts", resp.Links)
	}
}

func TestRevalidate(t *testing.T) {
	srv, _ := testEnv(t)

	w := do(t, srv, http.MethodPost, "/api/revalidate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("revalidate status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RevalidateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Pages != 3 || resp.Index.Unchanged != 3 {
		t.Errorf("revalidate = %+v", resp)
	}
}

func TestCooldownMiddleware(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h := CooldownMiddleware(30*time.Second, func() time.Time { return now })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	if w := do(t, h, http.MethodPost, "/", nil); w.Code != http.StatusNoContent {
		t.Fatalf("first status = %d, want 204", w.Code)
	}

	now = now.Add(10 * time.Second)
	w := do(t, h, http.MethodPost, "/", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "20" {
		t.Errorf("Retry-After = %q, want 20", got)
	}

	now = now.Add(20 * time.Second)
	if w := do(t, h, http.MethodPost, "/", nil); w.Code != http.StatusNoContent {
		t.Errorf("after cooldown status = %d, want 204", w.Code)
	}
}

func TestCooldownMiddleware_Disabled(t *testing.T) {
	h := CooldownMiddleware(0, time.Now)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))
	for i := 0; i < 3; i++ {
		if w := do(t, h, http.MethodPost, "/", nil); w.Code != http.StatusNoContent {
			t.Fatalf("call %d status = %d", i, w.Code)
		}
	}
}

func TestFeed(t *testing.T) {
	srv, _ := testEnv(t)

	w := do(t, srv, http.MethodGet, "/feed.xml", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("feed status = %d", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "public, max-age=28800, stale-while-revalidate=28800" {
		t.Errorf("Cache-Control = %q", got)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/rss+xml") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "<link>https://notes.example.com/first-post</link>") {
		t.Errorf("feed missing first post: %s", w.Body.String())
	}
}

func TestFeed_MethodNotAllowed(t *testing.T) {
	srv, _ := testEnv(t)

	w := do(t, srv, http.MethodPost, "/feed.xml", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"error":"method not allowed"}` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestPageHTML(t *testing.T) {
	srv, _ := testEnv(t)

	w := do(t, srv, http.MethodGet, "/first-post", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<h1>First Post</h1>") {
		t.Errorf("page html = %s", w.Body.String())
	}

	w = do(t, srv, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Welcome to the blog.") {
		t.Errorf("home status = %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown page status = %d, want 404", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, rec := testEnv(t)

	w := do(t, srv, http.MethodGet, "/health/live", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("live = %d %s", w.Code, w.Body.String())
	}
	w = do(t, srv, http.MethodGet, "/health/ready", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"lastRebuild"`) {
		t.Errorf("ready = %d %s", w.Code, w.Body.String())
	}
	w = do(t, srv, http.MethodGet, "/metrics", nil)
	if w.Body.String() != "# metrics" {
		t.Errorf("metrics body = %q", w.Body.String())
	}
	_ = do(t, srv, http.MethodGet, "/api/pages/nonexistent", nil)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	last := rec.reqs[len(rec.reqs)-1]
	if last.route != "/api/pages/{slug}" || last.status != http.StatusNotFound {
		t.Errorf("last recorded request = %+v", last)
	}
}
