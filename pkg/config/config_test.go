package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	s.valid = true
	return nil
}

func TestExpand(t *testing.T) {
	t.Setenv("BLOCKPRESS_TEST_SET", "value")
	t.Setenv("BLOCKPRESS_TEST_EMPTY", "")

	tests := []struct {
		in, want string
	}{
		{"${BLOCKPRESS_TEST_SET}", "value"},
		{"${BLOCKPRESS_TEST_SET:-fallback}", "value"},
		{"${BLOCKPRESS_TEST_EMPTY:-fallback}", "fallback"},
		{"${BLOCKPRESS_TEST_UNSET:-}", ""},
		{"${BLOCKPRESS_TEST_UNSET}", ""},
		{"a-$BLOCKPRESS_TEST_SET-b", "a-value-b"},
	}
	for _, tt := range tests {
		if got := Expand(tt.in); got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("BLOCKPRESS_TEST_NAME", "blog")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("name: ${BLOCKPRESS_TEST_NAME}\nport: ${BLOCKPRESS_TEST_PORT:-8080}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "blog" || cfg.Port != 8080 || !cfg.valid {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestDecode_Errors(t *testing.T) {
	var cfg sample
	err := Decode([]byte("name: blog\nprot: 1\n"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "prot") {
		t.Errorf("unknown key: err = %v", err)
	}

	cfg = sample{}
	err = Decode([]byte("port: 1\n"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Errorf("validation: err = %v", err)
	}

	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err == nil {
		t.Error("missing file should fail")
	}
}
