package modules

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/symbols"
)

func syms(names ...string) []*symbols.Symbol {
	out := make([]*symbols.Symbol, len(names))
	for i, n := range names {
		out[i] = symbols.Intern(n)
	}
	return out
}

func order(t *testing.T, files []NSFile) []string {
	t.Helper()
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Header.NS.String()
	}
	return out
}

func TestResolveOrder(t *testing.T) {
	src := MapSource{
		"app":       `(ns app {:aliases {u util} :refers {text #{shout}}}) (def x 1)`,
		"util":      `(ns util {:aliases {t text}})`,
		"text":      `(ns text)`,
		"unrelated": `(ns unrelated)`,
	}

	files, err := NewResolver(src, nil).Resolve(syms("app"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := order(t, files), []string{"text", "util", "app"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if n := len(files[2].Forms); n != 1 {
		t.Errorf("app should keep 1 form after its header, got %d", n)
	}
}

func TestResolveSharedDependencyOnce(t *testing.T) {
	src := MapSource{
		"a":    `(ns a {:aliases {b b c c}})`,
		"b":    `(ns b {:aliases {base base}})`,
		"c":    `(ns c {:aliases {base base}})`,
		"base": `(ns base)`,
	}
	files, err := NewResolver(src, nil).Resolve(syms("a", "base"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := order(t, files), []string{"base", "b", "c", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestResolveSkipsLoaded(t *testing.T) {
	src := MapSource{
		"app": `(ns app {:aliases {u util}})`,
	}
	loaded := func(ns *symbols.Symbol) bool { return ns.String() == "util" }
	files, err := NewResolver(src, loaded).Resolve(syms("app"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := order(t, files); !reflect.DeepEqual(got, []string{"app"}) {
		t.Errorf("order = %v, want [app]", got)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      MapSource
		roots    []string
		code     diagnostics.ErrorCode
		subjects []string
	}{
		{
			name:     "two-namespace cycle",
			src:      MapSource{"a": `(ns a {:aliases {b b}})`, "b": `(ns b {:refers {a #{x}}})`},
			roots:    []string{"a"},
			code:     diagnostics.ErrCyclicNamespace,
			subjects: []string{"a", "b"},
		},
		{
			name:     "cycle below the root",
			src:      MapSource{"r": `(ns r {:aliases {a a}})`, "a": `(ns a {:aliases {b b}})`, "b": `(ns b {:aliases {a a}})`},
			roots:    []string{"r"},
			code:     diagnostics.ErrCyclicNamespace,
			subjects: []string{"a", "b"},
		},
		{
			name:  "missing dependency",
			src:   MapSource{"a": `(ns a {:aliases {m missing}})`},
			roots: []string{"a"},
			code:  diagnostics.ErrNamespaceNotFound,
		},
		{
			name:  "missing root",
			src:   MapSource{},
			roots: []string{"nope"},
			code:  diagnostics.ErrNamespaceNotFound,
		},
		{
			name:  "header names another namespace",
			src:   MapSource{"a": `(ns b)`},
			roots: []string{"a"},
			code:  diagnostics.ErrMalformedSpecialForm,
		},
		{
			name:  "no header",
			src:   MapSource{"a": `(def x 1)`},
			roots: []string{"a"},
			code:  diagnostics.ErrMalformedSpecialForm,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(tt.src, nil).Resolve(syms(tt.roots...))
			if !diagnostics.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if tt.subjects != nil {
				de := diagnostics.Find(err, tt.code)
				if !reflect.DeepEqual(de.Subjects, tt.subjects) {
					t.Errorf("subjects = %v, want %v", de.Subjects, tt.subjects)
				}
			}
		})
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my", "lib-core.brj")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("(ns my.lib-core)\n(def x 1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewDirSource("", t.TempDir(), dir)
	forms, err := src.Forms(symbols.Intern("my.lib-core"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forms) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(forms))
	}
	if forms[1].Pos().File != path {
		t.Errorf("forms should carry their file, got %q", forms[1].Pos().File)
	}

	_, err = NewResolver(src, nil).Resolve(syms("my.other"))
	if !diagnostics.HasCode(err, diagnostics.ErrNamespaceNotFound) {
		t.Errorf("expected %s, got %v", diagnostics.ErrNamespaceNotFound, err)
	}
}

func TestDirSourceNamespaces(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	for _, f := range []string{
		filepath.Join(first, "app.brj"),
		filepath.Join(first, "my", "util.brj"),
		filepath.Join(first, "notes.txt"),
		filepath.Join(second, "app.brj"),
		filepath.Join(second, "extra.brj"),
	} {
		if err := os.MkdirAll(filepath.Dir(f), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(f, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := NewDirSource("", first, second, filepath.Join(first, "missing")).Namespaces()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"app", "extra", "my.util"}) {
		t.Errorf("namespaces = %v", got)
	}
}

func TestSQLiteSource(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteSource(filepath.Join(t.TempDir(), "ns.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	if err := store.Put(ctx, "lib", "(ns lib)\n(def x 1)"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "lib", "(ns lib)\n(def x 2)\n(def y 3)"); err != nil {
		t.Fatalf("replacing: %v", err)
	}
	if err := store.Put(ctx, "app", "(ns app {:aliases {l lib}})"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "bad", "(ns other)"); !diagnostics.HasCode(err, diagnostics.ErrMalformedSpecialForm) {
		t.Errorf("storing a mismatched header should fail, got %v", err)
	}

	names, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"app", "lib"}) {
		t.Errorf("names = %v, want [app lib]", names)
	}

	files, err := NewResolver(Chain{MapSource{}, store}, nil).Resolve(syms("app"))
	if err != nil {
		t.Fatalf("resolving from store: %v", err)
	}
	if got := order(t, files); !reflect.DeepEqual(got, []string{"lib", "app"}) {
		t.Errorf("order = %v, want [lib app]", got)
	}
	if n := len(files[0].Forms); n != 2 {
		t.Errorf("lib should have the replaced source with 2 forms, got %d", n)
	}
}

func TestNSPath(t *testing.T) {
	if got, want := NSPath(symbols.Intern("a.b.c-d"), ".brj"), filepath.Join("a", "b", "c-d.brj"); got != want {
		t.Errorf("NSPath = %s, want %s", got, want)
	}
}

func TestNSName(t *testing.T) {
	if got := NSName(filepath.Join("a", "b", "c-d.brj"), ".brj"); got != "a.b.c-d" {
		t.Errorf("NSName = %s, want a.b.c-d", got)
	}
}
