package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/blockpress/internal/apperr"
	"github.com/starford/blockpress/internal/logfields"
	"github.com/starford/blockpress/internal/sitemap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: json encode failed", logfields.Error(err))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps service errors to status codes; crawl failures are 502.
func writeError(w http.ResponseWriter, op string, err error) {
	var crawlErr *sitemap.CrawlError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.As(err, &crawlErr):
		slog.Error("api: "+op+" failed", logfields.PageID(crawlErr.PageID), logfields.Error(err))
		writeJSON(w, http.StatusBadGateway, errorBody("content store unavailable"))
	default:
		slog.Error("api: "+op+" failed", logfields.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
