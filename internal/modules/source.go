package modules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/funvibe/bridje/internal/config"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
)

// ErrNotFound is returned (possibly wrapped) by a Source that has no forms
// for the requested namespace.
var ErrNotFound = errors.New("namespace not found")

// Source supplies the forms of a namespace. The first form must be the
// namespace's (ns ...) header.
type Source interface {
	Forms(ns *symbols.Symbol) ([]reader.Form, error)
}

// NSPath maps a namespace name to a relative file path: `a.b-c` becomes
// `a/b-c.brj` for extension `.brj`.
func NSPath(ns *symbols.Symbol, ext string) string {
	parts := strings.Split(ns.String(), ".")
	return filepath.Join(parts...) + ext
}

// DirSource reads namespaces from files under a list of root directories.
// The first directory holding the file wins.
type DirSource struct {
	Dirs []string
	Ext  string
}

func NewDirSource(ext string, dirs ...string) *DirSource {
	if ext == "" {
		ext = config.SourceFileExt
	}
	return &DirSource{Dirs: dirs, Ext: ext}
}

func (s *DirSource) Forms(ns *symbols.Symbol) ([]reader.Form, error) {
	path, err := s.Path(ns)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return reader.ReadString(string(data), path)
}

// Path returns the file that holds ns.
func (s *DirSource) Path(ns *symbols.Symbol) (string, error) {
	rel := NSPath(ns, s.Ext)
	for _, dir := range s.Dirs {
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s (looked for %s)", ErrNotFound, ns, rel)
}

// Namespaces lists every namespace with a file under the source
// directories, sorted by name. A file shadowed by an earlier directory is
// listed once.
func (s *DirSource) Namespaces() ([]string, error) {
	seen := make(map[string]bool)
	for _, dir := range s.Dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, s.Ext) {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			seen[NSName(rel, s.Ext)] = true
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("listing %s: %w", dir, err)
		}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out, nil
}

// NSName is the inverse of NSPath.
func NSName(rel, ext string) string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ext)
	return strings.ReplaceAll(rel, "/", ".")
}

// MapSource serves namespaces from in-memory source text keyed by
// namespace name.
type MapSource map[string]string

func (s MapSource) Forms(ns *symbols.Symbol) ([]reader.Form, error) {
	src, ok := s[ns.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ns)
	}
	return reader.ReadString(src, ns.String()+config.SourceFileExt)
}

// Chain tries each source in order and returns the first that has the
// namespace. Errors other than ErrNotFound stop the search.
type Chain []Source

func (c Chain) Forms(ns *symbols.Symbol) ([]reader.Form, error) {
	for _, s := range c {
		forms, err := s.Forms(ns)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return forms, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, ns)
}
