package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Project is the parsed bridje.yaml.
type Project struct {
	// SourcePaths are directories searched for namespace sources, relative to
	// the project file.
	SourcePaths []string `yaml:"source_paths"`

	// Extension of source files. Defaults to .brj.
	Extension string `yaml:"extension,omitempty"`

	// MaxMacroDepth bounds nested macro expansion.
	MaxMacroDepth int `yaml:"max_macro_depth,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`

	// Store is an optional SQLite database of namespace sources, consulted
	// after SourcePaths.
	Store string `yaml:"store,omitempty"`

	Server ServerConfig `yaml:"server,omitempty"`

	// Dir is the directory the project file was loaded from.
	Dir string `yaml:"-"`
}

type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the configuration used when no project file exists.
func Default(dir string) *Project {
	p := &Project{SourcePaths: []string{"."}, Dir: dir}
	p.setDefaults()
	return p
}

// LoadConfig reads and parses a bridje.yaml file.
func LoadConfig(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses bridje.yaml content. The path is used for error
// messages and to anchor relative source paths.
func ParseConfig(data []byte, path string) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	p.Dir = filepath.Dir(path)
	if err := p.validate(path); err != nil {
		return nil, err
	}
	p.setDefaults()
	return &p, nil
}

// FindConfig searches for bridje.yaml from dir upwards. It returns "" when
// there is none.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (p *Project) validate(path string) error {
	if p.MaxMacroDepth < 0 {
		return fmt.Errorf("%s: max_macro_depth must not be negative", path)
	}
	if p.Extension != "" && !strings.HasPrefix(p.Extension, ".") {
		return fmt.Errorf("%s: extension %q must start with a dot", path, p.Extension)
	}
	if p.LogLevel != "" {
		if _, err := ParseLogLevel(p.LogLevel); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	for i, sp := range p.SourcePaths {
		if strings.TrimSpace(sp) == "" {
			return fmt.Errorf("%s: source_paths[%d] is empty", path, i)
		}
	}
	return nil
}

func (p *Project) setDefaults() {
	if len(p.SourcePaths) == 0 {
		p.SourcePaths = []string{"."}
	}
	if p.Extension == "" {
		p.Extension = SourceFileExt
	}
	if p.MaxMacroDepth == 0 {
		p.MaxMacroDepth = DefaultMaxMacroDepth
	}
	if p.LogLevel == "" {
		p.LogLevel = "info"
	}
	if p.Server.Addr == "" {
		p.Server.Addr = DefaultServerAddr
	}
}

// SourceDirs returns SourcePaths resolved against the project directory.
func (p *Project) SourceDirs() []string {
	out := make([]string, len(p.SourcePaths))
	for i, sp := range p.SourcePaths {
		if filepath.IsAbs(sp) {
			out[i] = sp
		} else {
			out[i] = filepath.Join(p.Dir, sp)
		}
	}
	return out
}

// StorePath returns the store path resolved against the project directory,
// or "" when no store is configured.
func (p *Project) StorePath() string {
	if p.Store == "" || filepath.IsAbs(p.Store) {
		return p.Store
	}
	return filepath.Join(p.Dir, p.Store)
}

func ParseLogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
	return l, nil
}
