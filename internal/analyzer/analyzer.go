// Package analyzer turns forms into typed expression trees: symbol
// resolution, special forms, macro expansion, type forms and inference.
package analyzer

import (
	"log/slog"

	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/config"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
)

// Analyzer analyses the forms of one namespace. It sees the environment
// snapshot it was created with plus whatever the caller commits through
// SetNSEnv between forms.
type Analyzer struct {
	resolver      *Resolver
	logger        *slog.Logger
	maxMacroDepth int
	macroDepth    int

	// self stands for the definition being analysed when its name is not
	// declared yet, so that recursive references resolve.
	self *env.DefVar
}

type Option func(*Analyzer)

func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithMaxMacroDepth bounds nested macro expansion.
func WithMaxMacroDepth(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxMacroDepth = n
		}
	}
}

// New creates an Analyzer for nsEnv against the environment snapshot rt.
func New(rt *env.RuntimeEnv, nsEnv *env.NSEnv, opts ...Option) *Analyzer {
	a := &Analyzer{
		resolver:      NewResolver(rt, nsEnv),
		logger:        slog.Default(),
		maxMacroDepth: config.DefaultMaxMacroDepth,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NSEnv returns the namespace environment analysis currently resolves against.
func (a *Analyzer) NSEnv() *env.NSEnv { return a.resolver.NSEnv }

// SetNSEnv installs the namespace environment produced by committing the
// previous form.
func (a *Analyzer) SetNSEnv(nsEnv *env.NSEnv) {
	a.resolver = a.resolver.WithNSEnv(nsEnv)
}

// AnalyzeExpr analyses a standalone expression at the top level of the
// namespace.
func (a *Analyzer) AnalyzeExpr(form reader.Form) (ast.ValueExpr, error) {
	return a.analyzeValue(topScope(), form)
}

var doSym = symbols.Intern(config.DoForm)

// FlattenDecls splices top-level (do ...) forms into their parent sequence.
func FlattenDecls(forms []reader.Form) []reader.Form {
	out := make([]reader.Form, 0, len(forms))
	for _, f := range forms {
		if l, ok := f.(*reader.ListForm); ok && len(l.Forms) > 1 && headIs(l, doSym) {
			out = append(out, FlattenDecls(l.Forms[1:])...)
			continue
		}
		out = append(out, f)
	}
	return out
}

func headIs(l *reader.ListForm, sym *symbols.Symbol) bool {
	if len(l.Forms) == 0 {
		return false
	}
	s, ok := l.Forms[0].(*reader.SymbolForm)
	return ok && s.Sym == sym
}
