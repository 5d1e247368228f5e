package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig_Defaults(t *testing.T) {
	p, err := ParseConfig([]byte("source_paths: [src]\n"), "/proj/bridje.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Extension != ".brj" {
		t.Errorf("extension = %q, want .brj", p.Extension)
	}
	if p.MaxMacroDepth != DefaultMaxMacroDepth {
		t.Errorf("max_macro_depth = %d", p.MaxMacroDepth)
	}
	if p.Server.Addr != DefaultServerAddr {
		t.Errorf("server.addr = %q", p.Server.Addr)
	}
	if dirs := p.SourceDirs(); len(dirs) != 1 || dirs[0] != filepath.Join("/proj", "src") {
		t.Errorf("SourceDirs() = %v", dirs)
	}
}

func TestParseConfig_Full(t *testing.T) {
	yaml := `
source_paths:
  - src
  - /abs/lib
extension: .bridje
max_macro_depth: 32
log_level: debug
store: forms.db
server:
  addr: 0.0.0.0:9000
`
	p, err := ParseConfig([]byte(yaml), "/proj/bridje.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.MaxMacroDepth != 32 || p.Extension != ".bridje" || p.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("unexpected config: %+v", p)
	}
	if got := p.SourceDirs()[1]; got != "/abs/lib" {
		t.Errorf("absolute source path rewritten to %q", got)
	}
	if got := p.StorePath(); got != filepath.Join("/proj", "forms.db") {
		t.Errorf("StorePath() = %q", got)
	}
	if l, _ := ParseLogLevel(p.LogLevel); l != slog.LevelDebug {
		t.Errorf("log level = %v", l)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"negative depth", "max_macro_depth: -1\n", "max_macro_depth"},
		{"bad extension", "extension: brj\n", "extension"},
		{"bad level", "log_level: loud\n", "log_level"},
		{"empty source path", "source_paths: ['']\n", "source_paths[0]"},
		{"not yaml", "source_paths: [\n", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "bridje.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	if got, err := FindConfig(nested); err != nil || got != "" {
		t.Fatalf("FindConfig without file = %q, %v", got, err)
	}

	path := filepath.Join(root, ProjectFileName)
	if err := os.WriteFile(path, []byte("source_paths: [src]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FindConfig(nested)
	if err != nil || got != path {
		t.Errorf("FindConfig = %q, %v; want %q", got, err, path)
	}

	p, err := LoadConfig(got)
	if err != nil {
		t.Fatal(err)
	}
	if p.Dir != root {
		t.Errorf("Dir = %q, want %q", p.Dir, root)
	}
}
