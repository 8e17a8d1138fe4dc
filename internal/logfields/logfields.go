// Package logfields keeps structured log attribute names consistent across
// packages.
package logfields

import "log/slog"

const (
	KeyPageID     = "page_id"
	KeySpaceID    = "space_id"
	KeySlug       = "slug"
	KeyProperty   = "property"
	KeyPath       = "path"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyJob        = "job"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyError      = "error"
)

func PageID(id string) slog.Attr      { return slog.String(KeyPageID, id) }
func SpaceID(id string) slog.Attr     { return slog.String(KeySpaceID, id) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func Property(name string) slog.Attr  { return slog.String(KeyProperty, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Job(name string) slog.Attr       { return slog.String(KeyJob, name) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }

// Error renders err as a string attribute; nil yields an empty value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
