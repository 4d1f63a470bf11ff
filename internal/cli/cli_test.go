package cli

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/perisponge/stormflow/pkg/errors"
	"github.com/perisponge/stormflow/pkg/pipeline"
)

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-test")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg-test", appName) {
		t.Errorf("dir = %s", dir)
	}
}

func TestCacheDirHome(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/tmp/home-test")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir: %v", err)
	}
	if dir != filepath.Join("/tmp/home-test", ".cache", appName) {
		t.Errorf("dir = %s", dir)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{pipeline.FormatJSON}},
		{"svg", []string{"svg"}},
		{"json,dot", []string{"json", "dot"}},
	}
	for _, tt := range tests {
		got := parseFormats(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}

func TestParseRetention(t *testing.T) {
	m, err := parseRetention([]string{"pond=150", "basin=300.5"})
	if err != nil {
		t.Fatalf("parseRetention: %v", err)
	}
	if m["pond"] != 150 || m["basin"] != 300.5 {
		t.Errorf("m = %v", m)
	}
}

func TestParseRetentionEmpty(t *testing.T) {
	m, err := parseRetention(nil)
	if err != nil {
		t.Fatalf("parseRetention: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil map, got %v", m)
	}
}

func TestParseRetentionInvalid(t *testing.T) {
	tests := []struct {
		name string
		spec string
		code errors.Code
	}{
		{"NoEquals", "pond", errors.ErrCodeInvalidInput},
		{"EmptyNode", "=150", errors.ErrCodeInvalidInput},
		{"BadVolume", "pond=abc", errors.ErrCodeInvalidInput},
		{"Negative", "pond=-5", errors.ErrCodeInvalidRetention},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRetention([]string{tt.spec})
			if errors.GetCode(err) != tt.code {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	for _, name := range []string{"evaluate", "table", "render", "validate", "cache", "serve", "completion"} {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %s", name)
		}
	}
}
