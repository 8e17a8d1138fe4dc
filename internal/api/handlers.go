package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/blockpress/internal/apperr"
	"github.com/starford/blockpress/internal/feed"
	"github.com/starford/blockpress/internal/siteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *siteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *siteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// SiteMap handles GET /api/sitemap.
//
//	@Summary		Get the site map of the configured root
//	@Tags			site
//	@Produce		json
//	@Success		200	{object}	models.SiteMap
//	@Failure		502	{object}	errResponse
//	@Router			/sitemap [get]
func (h *Handler) SiteMap(w http.ResponseWriter, r *http.Request) {
	sm, err := h.svc.SiteMap(r.Context())
	if err != nil {
		writeError(w, "site map", err)
		return
	}
	writeJSON(w, http.StatusOK, sm)
}

// Paths handles GET /api/paths.
//
//	@Summary		List the URL path of every published page
//	@Tags			site
//	@Produce		json
//	@Success		200	{object}	PathsResponse
//	@Router			/paths [get]
func (h *Handler) Paths(w http.ResponseWriter, r *http.Request) {
	paths, err := h.svc.StaticPaths(r.Context())
	if err != nil {
		writeError(w, "paths", err)
		return
	}
	writeJSON(w, http.StatusOK, PathsResponse{Paths: paths})
}

// ListPages handles GET /api/pages.
//
//	@Summary		List pages with optional pagination and filtering
//	@Tags			pages
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(edited, created, title)
//	@Success		200		{object}	PageListResponse
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListPages(r.Context(), limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		writeError(w, "list pages", err)
		return
	}
	writeJSON(w, http.StatusOK, PageListResponse{Pages: items, Total: total})
}

// GetPage handles GET /api/pages/{slug}.
//
//	@Summary		Get a single rendered page by slug
//	@Tags			pages
//	@Produce		json
//	@Param			slug	path		string	true	"Canonical page id"
//	@Success		200		{object}	PageDetail
//	@Failure		404		{object}	errResponse
//	@Router			/pages/{slug} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.GetPage(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, "get page", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across pages
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	out := SearchResponse{Results: make([]SearchResult, len(results))}
	for i, res := range results {
		out.Results[i] = SearchResult{Slug: res.Slug, PageID: res.PageID, Title: res.Title, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, out)
}

// Tags handles GET /api/tags.
//
//	@Summary		List the tags of the blog collection
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		writeError(w, "tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

// TaggedPages handles GET /api/tags/{tag}.
//
//	@Summary		List the gallery pages carrying a tag
//	@Tags			tags
//	@Produce		json
//	@Param			tag	path		string	true	"Tag name or slug"
//	@Success		200	{object}	siteservice.TaggedPages
//	@Failure		404	{object}	errResponse
//	@Router			/tags/{tag} [get]
func (h *Handler) TaggedPages(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.TaggedPages(r.Context(), chi.URLParam(r, "tag"))
	if err != nil {
		writeError(w, "tagged pages", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the sub-page graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	out := GraphResponse{Nodes: make([]GraphNode, len(nodes)), Links: make([]GraphLink, len(links))}
	for i, n := range nodes {
		out.Nodes[i] = GraphNode{ID: n.Slug, Title: n.Title}
	}
	for i, l := range links {
		out.Links[i] = GraphLink{Source: l.Source, Target: l.Target}
	}
	writeJSON(w, http.StatusOK, out)
}

// Revalidate handles POST /api/revalidate.
//
//	@Summary		Crawl the workspace again and refresh index and output
//	@Tags			site
//	@Produce		json
//	@Success		200	{object}	RevalidateResponse
//	@Failure		429	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Router			/revalidate [post]
func (h *Handler) Revalidate(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Rebuild(r.Context())
	if err != nil {
		writeError(w, "revalidate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Feed handles /feed.xml. Only GET is allowed.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}
	out, err := h.svc.Feed(r.Context())
	if err != nil {
		writeError(w, "feed", err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", feed.CacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// Page handles GET /{slug} and GET / with the rendered HTML document.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		sm, err := h.svc.SiteMap(r.Context())
		if err != nil {
			writeHTMLError(w, r, err)
			return
		}
		slug, _ = sm.SlugFor(sm.Site.RootPageID)
	}
	html, err := h.svc.PageHTML(r.Context(), slug)
	if err != nil {
		writeHTMLError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

func writeHTMLError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	writeError(w, "page html", err)
}

// Ready reports 503 until the first rebuild has succeeded.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	last := h.svc.LastRebuild()
	if last.IsZero() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "lastRebuild": last.UTC().Format(time.RFC3339)})
}
