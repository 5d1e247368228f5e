package env

import (
	"sort"

	"github.com/funvibe/bridje/internal/symbols"
)

func symbolHash(s *symbols.Symbol) uint32 { return StringHash(s.String()) }

// NSEnv is one namespace's declarations. Declare never mutates the receiver.
type NSEnv struct {
	NS     *symbols.Symbol
	Header *NSHeader
	vars   *PersistentMap[*symbols.Symbol, GlobalVar]
	hosts  map[*symbols.QSymbol]GlobalVar
}

func NewNSEnv(ns *symbols.Symbol, header *NSHeader) *NSEnv {
	if header == nil {
		header = &NSHeader{NS: ns}
	}
	return &NSEnv{NS: ns, Header: header, vars: EmptyMap[*symbols.Symbol, GlobalVar](symbolHash)}
}

// Declare returns an environment in which v shadows any earlier
// declaration of the same name.
func (e *NSEnv) Declare(v GlobalVar) *NSEnv {
	return &NSEnv{NS: e.NS, Header: e.Header, vars: e.vars.Put(v.Sym().Base, v), hosts: e.hosts}
}

// DeclareHost returns an environment with a host function imported under
// v's qualified name, alias/name.
func (e *NSEnv) DeclareHost(v GlobalVar) *NSEnv {
	hosts := make(map[*symbols.QSymbol]GlobalVar, len(e.hosts)+1)
	for q, hv := range e.hosts {
		hosts[q] = hv
	}
	hosts[v.Sym()] = v
	return &NSEnv{NS: e.NS, Header: e.Header, vars: e.vars, hosts: hosts}
}

// Host looks up an imported host function by alias/name.
func (e *NSEnv) Host(q *symbols.QSymbol) (GlobalVar, bool) {
	v, ok := e.hosts[q]
	return v, ok
}

func (e *NSEnv) Get(sym *symbols.Symbol) (GlobalVar, bool) {
	return e.vars.Get(sym)
}

func (e *NSEnv) Len() int {
	return e.vars.Len()
}

// Vars returns every declaration ordered by name.
func (e *NSEnv) Vars() []GlobalVar {
	keys := e.vars.Keys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	out := make([]GlobalVar, 0, len(keys))
	for _, k := range keys {
		v, _ := e.vars.Get(k)
		out = append(out, v)
	}
	return out
}
