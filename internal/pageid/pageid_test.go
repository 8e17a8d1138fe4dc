package pageid

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := map[string]string{
		"067dd719a912471ea9a3ac10710e7fdf":     "067dd719-a912-471e-a9a3-ac10710e7fdf",
		"067dd719-a912-471e-a9a3-ac10710e7fdf": "067dd719-a912-471e-a9a3-ac10710e7fdf",
		"067DD719A912471EA9A3AC10710E7FDF":     "067dd719-a912-471e-a9a3-ac10710e7fdf",
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("not-a-page")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestCompactAndEqual(t *testing.T) {
	if got := Compact("067dd719-a912-471e-a9a3-ac10710e7fdf"); got != "067dd719a912471ea9a3ac10710e7fdf" {
		t.Errorf("Compact = %q", got)
	}
	if !Equal("067dd719-a912-471e-a9a3-ac10710e7fdf", "067dd719a912471ea9a3ac10710e7fdf") {
		t.Error("dashed and compact forms should be equal")
	}
	if Equal("", "") {
		t.Error("empty ids should never be equal")
	}
}
