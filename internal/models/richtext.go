package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RichText is a property value: an ordered list of decorated text spans.
//
// On the wire each span is ["text"] or ["text", [["b"], ["a", "https://..."]]].
type RichText []Span

// Span is one run of text with its decorations.
type Span struct {
	Text        string
	Decorations []Decoration
}

// Decoration is a formatting or reference annotation on a span, e.g. "b",
// "i", "c", "s", "a" (link), "d" (date) or "p" (page mention).
type Decoration struct {
	Kind string
	Args []json.RawMessage
}

// PlainText concatenates the text of all spans.
func (rt RichText) PlainText() string {
	var b strings.Builder
	for _, s := range rt {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Has reports whether the span carries a decoration of the given kind.
func (s Span) Has(kind string) bool {
	_, ok := s.Decoration(kind)
	return ok
}

// Decoration returns the first decoration of the given kind.
func (s Span) Decoration(kind string) (Decoration, bool) {
	for _, d := range s.Decorations {
		if d.Kind == kind {
			return d, true
		}
	}
	return Decoration{}, false
}

// StringArg returns argument i as a string, or "" if it is absent or not a string.
func (d Decoration) StringArg(i int) string {
	if i >= len(d.Args) {
		return ""
	}
	var s string
	if err := json.Unmarshal(d.Args[i], &s); err != nil {
		return ""
	}
	return s
}

// DateValue is the payload of a "d" decoration.
type DateValue struct {
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	TimeZone  string `json:"time_zone,omitempty"`
}

// Date decodes the first argument of a "d" decoration.
func (d Decoration) Date() (*DateValue, error) {
	if d.Kind != "d" || len(d.Args) == 0 {
		return nil, fmt.Errorf("decoration %q is not a date", d.Kind)
	}
	var v DateValue
	if err := json.Unmarshal(d.Args[0], &v); err != nil {
		return nil, fmt.Errorf("decode date: %w", err)
	}
	return &v, nil
}

// Time converts the start of the date to a point in time. Dates without a
// time of day resolve to midnight UTC, datetimes honour TimeZone when set.
func (v *DateValue) Time() (time.Time, error) {
	if v.StartDate == "" {
		return time.Time{}, fmt.Errorf("date has no start_date")
	}
	if v.StartTime == "" {
		return time.Parse(time.DateOnly, v.StartDate)
	}
	loc := time.UTC
	if v.TimeZone != "" {
		l, err := time.LoadLocation(v.TimeZone)
		if err != nil {
			return time.Time{}, fmt.Errorf("date time zone: %w", err)
		}
		loc = l
	}
	return time.ParseInLocation("2006-01-02 15:04", v.StartDate+" "+v.StartTime, loc)
}

// UnmarshalJSON decodes the array form of a span.
func (s *Span) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("rich text span: %w", err)
	}
	*s = Span{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw[0], &s.Text); err != nil {
		return fmt.Errorf("rich text span text: %w", err)
	}
	if len(raw) < 2 {
		return nil
	}
	var decos [][]json.RawMessage
	if err := json.Unmarshal(raw[1], &decos); err != nil {
		return fmt.Errorf("rich text span decorations: %w", err)
	}
	for _, d := range decos {
		if len(d) == 0 {
			continue
		}
		var kind string
		if err := json.Unmarshal(d[0], &kind); err != nil {
			return fmt.Errorf("rich text decoration kind: %w", err)
		}
		s.Decorations = append(s.Decorations, Decoration{Kind: kind, Args: d[1:]})
	}
	return nil
}

// MarshalJSON encodes the span back to its array form.
func (s Span) MarshalJSON() ([]byte, error) {
	if len(s.Decorations) == 0 {
		return json.Marshal([]string{s.Text})
	}
	decos := make([][]json.RawMessage, 0, len(s.Decorations))
	for _, d := range s.Decorations {
		kind, _ := json.Marshal(d.Kind)
		decos = append(decos, append([]json.RawMessage{kind}, d.Args...))
	}
	return json.Marshal([]any{s.Text, decos})
}

// Timestamp is a block's native time field. The store emits epoch
// milliseconds; exports may carry RFC 3339 strings. Unparseable values are
// treated as absent.
type Timestamp struct {
	t time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{t: t} }

// Time returns the timestamp and whether it is set.
func (ts Timestamp) Time() (time.Time, bool) { return ts.t, !ts.t.IsZero() }

// MaxEpochMillis bounds the representable dates to ±100,000,000 days
// around the epoch.
const MaxEpochMillis = 8.64e15

// EpochMillis converts epoch milliseconds to a UTC time. NaN, infinities
// and values beyond MaxEpochMillis report false.
func EpochMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > MaxEpochMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

// IsZero reports whether the timestamp is unset.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// UnmarshalJSON accepts null, epoch milliseconds, or a date string.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	*ts = Timestamp{}
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		return nil
	}
	if s[0] != '"' {
		ms, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		ts.t, _ = EpochMillis(ms)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil
	}
	if ms, err := strconv.ParseInt(str, 10, 64); err == nil {
		ts.t, _ = EpochMillis(float64(ms))
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, str); err == nil {
			ts.t = t.UTC()
			return nil
		}
	}
	return nil
}

// MarshalJSON encodes the timestamp as epoch milliseconds.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(ts.t.UnixMilli(), 10)), nil
}
