package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/blockpress/internal/feed"
	"github.com/starford/blockpress/internal/metrics"
	"github.com/starford/blockpress/internal/siteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// POST /revalidate accepts one request per cooldown. sseHandler, if
// non-nil, is mounted at GET /events.
func NewRouter(svc *siteservice.Service, cooldown time.Duration, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Site map.
	r.Get("/sitemap", h.SiteMap)
	r.Get("/paths", h.Paths)

	// Pages.
	r.Get("/pages", h.ListPages)
	r.Get("/pages/{slug}", h.GetPage)

	// Search.
	r.Get("/search", h.Search)

	// Tags.
	r.Get("/tags", h.Tags)
	r.Get("/tags/{tag}", h.TaggedPages)

	// Graph.
	r.Get("/graph", h.Graph)

	// Rebuild on demand.
	r.With(CooldownMiddleware(cooldown, time.Now)).Post("/revalidate", h.Revalidate)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// ServerOptions configures NewServer.
type ServerOptions struct {
	RevalidateCooldown time.Duration
	SSE                http.Handler
	Metrics            http.Handler
	Recorder           metrics.Recorder
}

// NewServer builds the full HTTP surface: health checks, /metrics, the
// API under /api, the feed and the rendered pages.
func NewServer(svc *siteservice.Service, opts ServerOptions) http.Handler {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware(opts.Recorder))

	// Health check endpoints.
	r.Get("/health/live", healthOK)
	r.Get("/health/ready", h.Ready)

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Mount("/api", NewRouter(svc, opts.RevalidateCooldown, opts.SSE))

	r.HandleFunc(feed.Path, h.Feed)
	r.Get("/", h.Page)
	r.Get("/{slug}", h.Page)

	return r
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
