// Package modules finds namespace sources and orders them so that every
// namespace comes after the namespaces it depends on.
package modules

import (
	"errors"
	"strings"

	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
)

// NSFile is a namespace ready for analysis: its parsed header and the
// forms following it.
type NSFile struct {
	Header *env.NSHeader
	Forms  []reader.Form
}

// Resolver orders namespaces dependency-first.
type Resolver struct {
	source Source
	loaded func(*symbols.Symbol) bool
}

// NewResolver creates a resolver reading from source. Namespaces for which
// loaded reports true are neither read nor returned.
func NewResolver(source Source, loaded func(*symbols.Symbol) bool) *Resolver {
	if loaded == nil {
		loaded = func(*symbols.Symbol) bool { return false }
	}
	return &Resolver{source: source, loaded: loaded}
}

// Resolve returns the transitive closure of roots that is not yet loaded,
// each namespace after all of its dependencies. Roots and header
// dependencies are visited in order, depth first.
func (r *Resolver) Resolve(roots []*symbols.Symbol) ([]NSFile, error) {
	var (
		out      []NSFile
		visiting []*symbols.Symbol
		onStack  = make(map[*symbols.Symbol]bool)
		seen     = make(map[*symbols.Symbol]bool)
	)

	var visit func(ns *symbols.Symbol, pos token.Position) error
	visit = func(ns *symbols.Symbol, pos token.Position) error {
		if seen[ns] || r.loaded(ns) {
			return nil
		}
		if onStack[ns] {
			return cycleError(ns, visiting, pos)
		}

		forms, err := r.source.Forms(ns)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return diagnostics.Wrap(diagnostics.ErrNamespaceNotFound, pos, err, "cannot find namespace %s", ns)
			}
			return err
		}
		header, err := headerOf(ns, forms)
		if err != nil {
			return err
		}

		visiting = append(visiting, ns)
		onStack[ns] = true
		for _, dep := range header.Deps() {
			if err := visit(dep, forms[0].Pos()); err != nil {
				return err
			}
		}
		visiting = visiting[:len(visiting)-1]
		delete(onStack, ns)

		seen[ns] = true
		out = append(out, NSFile{Header: header, Forms: forms[1:]})
		return nil
	}

	for _, root := range roots {
		if err := visit(root, token.Position{}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// headerOf parses the first form as the header of ns.
func headerOf(ns *symbols.Symbol, forms []reader.Form) (*env.NSHeader, error) {
	if len(forms) == 0 {
		return nil, diagnostics.NewError(diagnostics.ErrMalformedSpecialForm, token.Position{},
			"namespace %s is empty; expected an (ns %s ...) header", ns, ns)
	}
	header, err := env.ParseHeader(forms[0])
	if err != nil {
		return nil, err
	}
	if header.NS != ns {
		return nil, diagnostics.NewError(diagnostics.ErrMalformedSpecialForm, forms[0].Pos(),
			"expected namespace %s, found header for %s", ns, header.NS)
	}
	return header, nil
}

func cycleError(ns *symbols.Symbol, visiting []*symbols.Symbol, pos token.Position) error {
	start := 0
	for i, v := range visiting {
		if v == ns {
			start = i
			break
		}
	}
	cycle := visiting[start:]
	names := make([]string, 0, len(cycle)+1)
	for _, v := range cycle {
		names = append(names, v.String())
	}
	members := append([]string(nil), names...)
	names = append(names, ns.String())
	return diagnostics.NewError(diagnostics.ErrCyclicNamespace, pos,
		"cyclic namespace dependency: %s", strings.Join(names, " -> ")).WithSubjects(members...)
}
