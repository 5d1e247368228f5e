package typesystem

import (
	"sort"
	"strings"
	"sync"

	"github.com/funvibe/bridje/internal/symbols"
)

// RecordKey is a declared record field. TypeVars are the field type's
// parameters; a record type records one instantiation of them per key.
type RecordKey struct {
	Sym      *symbols.QSymbol
	TypeVars []TypeVar
	Type     MonoType
}

func NewRecordKey(sym *symbols.QSymbol, t MonoType) *RecordKey {
	return &RecordKey{Sym: sym, TypeVars: t.FreeTypeVars(), Type: t}
}

func (k *RecordKey) String() string { return k.Sym.String() }

// TypeParams returns the key's parameters as monotypes.
func (k *RecordKey) TypeParams() []MonoType {
	out := make([]MonoType, len(k.TypeVars))
	for i, tv := range k.TypeVars {
		out[i] = tv
	}
	return out
}

// VariantKey is a declared variant tag with ordered constructor parameters.
type VariantKey struct {
	Sym        *symbols.QSymbol
	TypeVars   []TypeVar
	ParamTypes []MonoType
}

func NewVariantKey(sym *symbols.QSymbol, params []MonoType) *VariantKey {
	return &VariantKey{Sym: sym, TypeVars: collectFTVs(params...), ParamTypes: params}
}

func (k *VariantKey) String() string { return k.Sym.String() }

func (k *VariantKey) TypeParams() []MonoType {
	out := make([]MonoType, len(k.TypeVars))
	for i, tv := range k.TypeVars {
		out[i] = tv
	}
	return out
}

// TypeAlias is created before its target is known so that aliases can refer
// to themselves and to each other. The target is written at most once.
type TypeAlias struct {
	Sym      *symbols.QSymbol
	TypeVars []TypeVar

	mu     sync.RWMutex
	target MonoType
}

func NewTypeAlias(sym *symbols.QSymbol, typeVars []TypeVar) *TypeAlias {
	return &TypeAlias{Sym: sym, TypeVars: typeVars}
}

func (a *TypeAlias) Target() MonoType {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.target
}

// SetTarget fills the alias target. A second write is an error.
func (a *TypeAlias) SetTarget(t MonoType) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.target != nil {
		return aliasRedefined(a)
	}
	a.target = t
	return nil
}

// KeySet is a set of record keys.
type KeySet map[*RecordKey]struct{}

func NewKeySet(keys ...*RecordKey) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Has(k *RecordKey) bool {
	_, ok := s[k]
	return ok
}

func (s KeySet) Union(o KeySet) KeySet {
	out := make(KeySet, len(s)+len(o))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range o {
		out[k] = struct{}{}
	}
	return out
}

func (s KeySet) Minus(o KeySet) KeySet {
	out := make(KeySet)
	for k := range s {
		if !o.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

func (s KeySet) Equal(o KeySet) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if !o.Has(k) {
			return false
		}
	}
	return true
}

func (s KeySet) Sorted() []*RecordKey {
	out := make([]*RecordKey, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sym.String() < out[j].Sym.String() })
	return out
}

func (s KeySet) Names() []string {
	out := make([]string, 0, len(s))
	for _, k := range s.Sorted() {
		out = append(out, k.Sym.String())
	}
	return out
}

func (s KeySet) String() string { return strings.Join(s.Names(), " ") }
