package analyzer

import (
	"github.com/funvibe/bridje/internal/config"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
)

var coreNS = symbols.Intern(config.CoreNamespace)

// Resolver maps identifiers to global vars for one namespace, against an
// immutable environment snapshot.
type Resolver struct {
	Env   *env.RuntimeEnv
	NSEnv *env.NSEnv
}

func NewResolver(rt *env.RuntimeEnv, nsEnv *env.NSEnv) *Resolver {
	return &Resolver{Env: rt, NSEnv: nsEnv}
}

// WithNSEnv returns a resolver over an updated namespace environment.
func (r *Resolver) WithNSEnv(nsEnv *env.NSEnv) *Resolver {
	return &Resolver{Env: r.Env, NSEnv: nsEnv}
}

// Qualify names sym within the current namespace.
func (r *Resolver) Qualify(sym *symbols.Symbol) *symbols.QSymbol {
	return symbols.Qualify(r.NSEnv.NS, sym)
}

// Resolve looks up a bare symbol: the namespace's own declarations, then
// its refers, then the core namespace.
func (r *Resolver) Resolve(sym *symbols.Symbol, pos token.Position) (env.GlobalVar, error) {
	if v, ok := r.NSEnv.Get(sym); ok {
		return v, nil
	}
	if target, ok := r.NSEnv.Header.Refer(sym); ok {
		return r.ResolveQ(target, pos)
	}
	if r.NSEnv.NS != coreNS {
		if core, ok := r.Env.NS(coreNS); ok {
			if v, ok := core.Get(sym); ok {
				return v, nil
			}
		}
	}
	return nil, diagnostics.NewError(diagnostics.ErrUnresolvedSymbol, pos, "unable to resolve %s", sym)
}

// ResolveQ looks up a qualified symbol through the host imports and the
// alias table, falling back to a namespace of that name.
func (r *Resolver) ResolveQ(q *symbols.QSymbol, pos token.Position) (env.GlobalVar, error) {
	if host, ok := r.NSEnv.Header.Host(q.NS); ok {
		if v, ok := r.NSEnv.Host(q); ok {
			return v, nil
		}
		return nil, diagnostics.NewError(diagnostics.ErrUnresolvedSymbol, pos,
			"%s is not imported from host package %s", q, host.Package)
	}

	nsSym := q.NS
	if target, ok := r.NSEnv.Header.Alias(nsSym); ok {
		nsSym = target
	}

	var nsEnv *env.NSEnv
	if nsSym == r.NSEnv.NS {
		nsEnv = r.NSEnv
	} else {
		found, ok := r.Env.NS(nsSym)
		if !ok {
			return nil, diagnostics.NewError(diagnostics.ErrUnknownNamespace, pos, "unknown namespace %s in %s", nsSym, q)
		}
		nsEnv = found
	}

	if v, ok := nsEnv.Get(q.Base); ok {
		return v, nil
	}
	return nil, diagnostics.NewError(diagnostics.ErrUnresolvedSymbol, pos, "unable to resolve %s", q)
}
