// Package api implements the blockpress HTTP surface using chi: the JSON
// API under /api, the feed, and the rendered pages.
package api

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/blockpress/internal/metrics"
)

// CooldownMiddleware rejects requests with 429 while the previous
// accepted request is less than d old. A zero d disables it.
func CooldownMiddleware(d time.Duration, now func() time.Time) func(http.Handler) http.Handler {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d > 0 {
				mu.Lock()
				t := now()
				if wait := last.Add(d).Sub(t); !last.IsZero() && wait > 0 {
					mu.Unlock()
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
					writeJSON(w, http.StatusTooManyRequests, errorBody("revalidation cooling down"))
					return
				}
				last = t
				mu.Unlock()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MetricsMiddleware counts requests per matched route pattern and status.
func MetricsMiddleware(rec metrics.Recorder) func(http.Handler) http.Handler {
	rec = metrics.OrNoop(rec)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			rec.IncHTTPRequest(route, status)
		})
	}
}
