package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

func TestStringHelperKeys(t *testing.T) {
	cases := []struct {
		attr slog.Attr
		key  string
		val  string
	}{
		{PageID("abc"), KeyPageID, "abc"},
		{SpaceID("space"), KeySpaceID, "space"},
		{Slug("hello-world"), KeySlug, "hello-world"},
		{Property("Published"), KeyProperty, "Published"},
		{Path("/tmp/x"), KeyPath, "/tmp/x"},
		{Job("rebuild"), KeyJob, "rebuild"},
		{Method("GET"), KeyMethod, "GET"},
	}
	for _, tc := range cases {
		if tc.attr.Key != tc.key {
			t.Fatalf("key = %q, want %q", tc.attr.Key, tc.key)
		}
		if got := tc.attr.Value.String(); got != tc.val {
			t.Fatalf("%s value = %q, want %q", tc.key, got, tc.val)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Count(3); a.Key != KeyCount || a.Value.Int64() != 3 {
		t.Fatalf("Count = %v", a)
	}
	if a := Status(404); a.Key != KeyStatus || a.Value.Int64() != 404 {
		t.Fatalf("Status = %v", a)
	}
	if a := DurationMS(1.5); a.Key != KeyDurationMS || a.Value.Float64() != 1.5 {
		t.Fatalf("DurationMS = %v", a)
	}
}

func TestError(t *testing.T) {
	if got := Error(nil).Value.String(); got != "" {
		t.Fatalf("Error(nil) = %q, want empty", got)
	}
	if got := Error(errors.New("boom")).Value.String(); got != "boom" {
		t.Fatalf("Error = %q, want %q", got, "boom")
	}
}
