package env

import (
	"github.com/funvibe/bridje/internal/config"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
)

// Alias maps a short namespace name to its target.
type Alias struct {
	Short  *symbols.Symbol
	Target *symbols.Symbol
}

// HostAlias binds a short name to functions of a host package. Decls are
// the (:: ...) forms typing each imported function; the analyser builds
// their types.
type HostAlias struct {
	Short   *symbols.Symbol
	Package *symbols.Symbol
	Decls   []reader.Form
}

// Refer makes a symbol from another namespace available unqualified.
type Refer struct {
	Short  *symbols.Symbol
	Target *symbols.QSymbol
}

// NSHeader is a namespace's parsed (ns ...) form. Entries keep their
// declaration order.
type NSHeader struct {
	NS      *symbols.Symbol
	Aliases []Alias
	Hosts   []HostAlias
	Refers  []Refer
}

func (h *NSHeader) Alias(short *symbols.Symbol) (*symbols.Symbol, bool) {
	for _, a := range h.Aliases {
		if a.Short == short {
			return a.Target, true
		}
	}
	return nil, false
}

func (h *NSHeader) Host(short *symbols.Symbol) (*HostAlias, bool) {
	for i := range h.Hosts {
		if h.Hosts[i].Short == short {
			return &h.Hosts[i], true
		}
	}
	return nil, false
}

func (h *NSHeader) Refer(short *symbols.Symbol) (*symbols.QSymbol, bool) {
	for _, r := range h.Refers {
		if r.Short == short {
			return r.Target, true
		}
	}
	return nil, false
}

// Deps returns the namespaces this header depends on: alias targets then
// refer targets, in declaration order, without duplicates. Host aliases
// name no namespace and are not included.
func (h *NSHeader) Deps() []*symbols.Symbol {
	var out []*symbols.Symbol
	seen := map[*symbols.Symbol]bool{h.NS: true}
	add := func(ns *symbols.Symbol) {
		if !seen[ns] {
			seen[ns] = true
			out = append(out, ns)
		}
	}
	for _, a := range h.Aliases {
		add(a.Target)
	}
	for _, r := range h.Refers {
		add(r.Target.NS)
	}
	return out
}

var (
	nsSym      = symbols.Intern("ns")
	aliasesKey = symbols.Intern(":aliases")
	refersKey  = symbols.Intern(":refers")
	hostSym    = symbols.Intern(config.HostForm)
)

// ParseHeader parses `(ns name {:aliases {short target ...} :refers {target #{sym ...}}})`.
// An alias target may also be `(host package (:: ...) ...)`, importing
// typed functions of a host package.
func ParseHeader(form reader.Form) (*NSHeader, error) {
	list, ok := form.(*reader.ListForm)
	if !ok || len(list.Forms) < 2 || !isSym(list.Forms[0], nsSym) {
		return nil, malformed(form, "expected namespace header (ns name ...)")
	}
	name, ok := list.Forms[1].(*reader.SymbolForm)
	if !ok || name.Sym.IsKeyword() {
		return nil, malformed(list.Forms[1], "namespace name must be a symbol")
	}

	h := &NSHeader{NS: name.Sym}
	switch len(list.Forms) {
	case 2:
		return h, nil
	case 3:
	default:
		return nil, malformed(form, "namespace header takes a name and at most one option map")
	}

	opts, ok := list.Forms[2].(*reader.RecordForm)
	if !ok || len(opts.Forms)%2 != 0 {
		return nil, malformed(list.Forms[2], "namespace options must be a map")
	}

	for i := 0; i < len(opts.Forms); i += 2 {
		key, val := opts.Forms[i], opts.Forms[i+1]
		entries, ok := val.(*reader.RecordForm)
		if !ok || len(entries.Forms)%2 != 0 {
			return nil, malformed(val, "namespace option %s must be a map", key)
		}
		switch {
		case isSym(key, aliasesKey):
			for j := 0; j < len(entries.Forms); j += 2 {
				short, err := plainSym(entries.Forms[j])
				if err != nil {
					return nil, err
				}
				if host, ok := entries.Forms[j+1].(*reader.ListForm); ok {
					alias, err := parseHost(short, host)
					if err != nil {
						return nil, err
					}
					h.Hosts = append(h.Hosts, alias)
					continue
				}
				target, err := plainSym(entries.Forms[j+1])
				if err != nil {
					return nil, err
				}
				h.Aliases = append(h.Aliases, Alias{Short: short, Target: target})
			}
		case isSym(key, refersKey):
			for j := 0; j < len(entries.Forms); j += 2 {
				target, err := plainSym(entries.Forms[j])
				if err != nil {
					return nil, err
				}
				var syms []reader.Form
				switch s := entries.Forms[j+1].(type) {
				case *reader.SetForm:
					syms = s.Forms
				case *reader.VectorForm:
					syms = s.Forms
				default:
					return nil, malformed(s, "refers of %s must be a set of symbols", target)
				}
				for _, sf := range syms {
					s, ok := sf.(*reader.SymbolForm)
					if !ok {
						return nil, malformed(sf, "expected symbol to refer")
					}
					h.Refers = append(h.Refers, Refer{Short: s.Sym, Target: symbols.Qualify(target, s.Sym)})
				}
			}
		default:
			return nil, malformed(key, "unknown namespace option %s", key)
		}
	}
	return h, nil
}

// parseHost parses (host package (:: ...) ...).
func parseHost(short *symbols.Symbol, list *reader.ListForm) (HostAlias, error) {
	if len(list.Forms) < 2 || !isSym(list.Forms[0], hostSym) {
		return HostAlias{}, malformed(list, "expected (host package decls...) for alias %s", short)
	}
	pkg, err := plainSym(list.Forms[1])
	if err != nil {
		return HostAlias{}, err
	}
	return HostAlias{Short: short, Package: pkg, Decls: list.Forms[2:]}, nil
}

func isSym(f reader.Form, sym *symbols.Symbol) bool {
	s, ok := f.(*reader.SymbolForm)
	return ok && s.Sym == sym
}

func plainSym(f reader.Form) (*symbols.Symbol, error) {
	s, ok := f.(*reader.SymbolForm)
	if !ok || s.Sym.IsKeyword() {
		return nil, malformed(f, "expected namespace symbol, got %s", f)
	}
	return s.Sym, nil
}

func malformed(f reader.Form, format string, args ...any) error {
	return diagnostics.NewError(diagnostics.ErrMalformedSpecialForm, f.Pos(), format, args...)
}
