package typesystem

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/funvibe/bridje/internal/symbols"
)

// MonoType is a type without effects.
//
// Implementations are immutable; Apply and Map return new values.
type MonoType interface {
	String() string
	// UnifyEq decomposes an equation between two non-variable types.
	UnifyEq(other MonoType) (Unification, error)
	// Map rebuilds the type with f applied to each direct child type.
	Map(f func(MonoType) MonoType) MonoType
	Apply(m Mapping) MonoType
	FreeTypeVars() []TypeVar
}

// PrimType covers the fixed primitive types.
type PrimType int

const (
	BoolType PrimType = iota
	StrType
	IntType
	BigIntType
	FloatType
	BigFloatType
	SymbolType
	QSymbolType
)

var primNames = [...]string{"Bool", "Str", "Int", "BigInt", "Float", "BigFloat", "Symbol", "QSymbol"}

// PrimTypes maps type-form names to primitives.
var PrimTypes = map[string]PrimType{
	"Bool":     BoolType,
	"Str":      StrType,
	"Int":      IntType,
	"BigInt":   BigIntType,
	"Float":    FloatType,
	"BigFloat": BigFloatType,
	"Symbol":   SymbolType,
	"QSymbol":  QSymbolType,
}

func (p PrimType) String() string { return primNames[p] }

func (p PrimType) UnifyEq(other MonoType) (Unification, error) {
	if o, ok := other.(PrimType); ok && o == p {
		return Unification{}, nil
	}
	return Unification{}, mismatch(p, other)
}

func (p PrimType) Map(func(MonoType) MonoType) MonoType { return p }
func (p PrimType) Apply(Mapping) MonoType               { return p }
func (p PrimType) FreeTypeVars() []TypeVar              { return nil }

var typeVarCounter atomic.Uint64

// TypeVar is a unification variable. Identity is the ID.
type TypeVar struct {
	ID uint64
}

func NewTypeVar() TypeVar {
	return TypeVar{ID: typeVarCounter.Add(1)}
}

func (t TypeVar) String() string { return fmt.Sprintf("t%d", t.ID) }

func (t TypeVar) UnifyEq(other MonoType) (Unification, error) {
	return Unification{TypeEqs: []TypeEq{{t, other}}}, nil
}

func (t TypeVar) Map(func(MonoType) MonoType) MonoType { return t }

func (t TypeVar) Apply(m Mapping) MonoType {
	if r, ok := m.Types[t]; ok {
		return r
	}
	return t
}

func (t TypeVar) FreeTypeVars() []TypeVar { return []TypeVar{t} }

var rowVarCounter atomic.Uint64

// RowVar stands for the unknown remainder of a variant's tags.
// A closed row admits no further tags.
type RowVar struct {
	ID   uint64
	Open bool
}

func NewRowVar(open bool) RowVar {
	return RowVar{ID: rowVarCounter.Add(1), Open: open}
}

func (r RowVar) String() string {
	if r.Open {
		return fmt.Sprintf("r%d*", r.ID)
	}
	return fmt.Sprintf("r%d", r.ID)
}

type VectorType struct {
	Elem MonoType
}

func (v *VectorType) String() string { return "[" + v.Elem.String() + "]" }

func (v *VectorType) UnifyEq(other MonoType) (Unification, error) {
	o, ok := other.(*VectorType)
	if !ok {
		return Unification{}, mismatch(v, other)
	}
	return Unification{TypeEqs: []TypeEq{{v.Elem, o.Elem}}}, nil
}

func (v *VectorType) Map(f func(MonoType) MonoType) MonoType { return &VectorType{Elem: f(v.Elem)} }
func (v *VectorType) Apply(m Mapping) MonoType               { return v.Map(applyWith(m)) }
func (v *VectorType) FreeTypeVars() []TypeVar                { return v.Elem.FreeTypeVars() }

type SetType struct {
	Elem MonoType
}

func (s *SetType) String() string { return "#{" + s.Elem.String() + "}" }

func (s *SetType) UnifyEq(other MonoType) (Unification, error) {
	o, ok := other.(*SetType)
	if !ok {
		return Unification{}, mismatch(s, other)
	}
	return Unification{TypeEqs: []TypeEq{{s.Elem, o.Elem}}}, nil
}

func (s *SetType) Map(f func(MonoType) MonoType) MonoType { return &SetType{Elem: f(s.Elem)} }
func (s *SetType) Apply(m Mapping) MonoType               { return s.Map(applyWith(m)) }
func (s *SetType) FreeTypeVars() []TypeVar                { return s.Elem.FreeTypeVars() }

type FnType struct {
	Params []MonoType
	Return MonoType
}

func (f *FnType) String() string {
	parts := make([]string, 0, len(f.Params)+2)
	parts = append(parts, "Fn")
	for _, p := range f.Params {
		parts = append(parts, p.String())
	}
	parts = append(parts, f.Return.String())
	return "(" + strings.Join(parts, " ") + ")"
}

func (f *FnType) UnifyEq(other MonoType) (Unification, error) {
	o, ok := other.(*FnType)
	if !ok || len(o.Params) != len(f.Params) {
		return Unification{}, mismatch(f, other)
	}
	eqs := make([]TypeEq, 0, len(f.Params)+1)
	for i := range f.Params {
		eqs = append(eqs, TypeEq{f.Params[i], o.Params[i]})
	}
	eqs = append(eqs, TypeEq{f.Return, o.Return})
	return Unification{TypeEqs: eqs}, nil
}

func (f *FnType) Map(fn func(MonoType) MonoType) MonoType {
	return &FnType{Params: mapTypes(f.Params, fn), Return: fn(f.Return)}
}

func (f *FnType) Apply(m Mapping) MonoType { return f.Map(applyWith(m)) }

func (f *FnType) FreeTypeVars() []TypeVar {
	return collectFTVs(append(append([]MonoType(nil), f.Params...), f.Return)...)
}

// TypeAliasType is a reference to a named alias, expanded lazily on unification.
type TypeAliasType struct {
	Alias  *TypeAlias
	Params []MonoType
}

func (a *TypeAliasType) String() string {
	if len(a.Params) == 0 {
		return a.Alias.Sym.String()
	}
	parts := []string{a.Alias.Sym.String()}
	for _, p := range a.Params {
		parts = append(parts, p.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (a *TypeAliasType) UnifyEq(other MonoType) (Unification, error) {
	if o, ok := other.(*TypeAliasType); ok && o.Alias == a.Alias && len(o.Params) == len(a.Params) {
		eqs := make([]TypeEq, len(a.Params))
		for i := range a.Params {
			eqs[i] = TypeEq{a.Params[i], o.Params[i]}
		}
		return Unification{TypeEqs: eqs}, nil
	}
	target, err := a.Expand()
	if err != nil {
		return Unification{}, err
	}
	return Unification{TypeEqs: []TypeEq{{target, other}}}, nil
}

// Expand substitutes the alias parameters into its target.
func (a *TypeAliasType) Expand() (MonoType, error) {
	target := a.Alias.Target()
	if target == nil {
		return nil, aliasUndefined(a.Alias)
	}
	if len(a.Alias.TypeVars) == 0 {
		return target, nil
	}
	m := Mapping{Types: make(map[TypeVar]MonoType, len(a.Alias.TypeVars))}
	for i, tv := range a.Alias.TypeVars {
		if i < len(a.Params) {
			m.Types[tv] = a.Params[i]
		}
	}
	return target.Apply(m), nil
}

func (a *TypeAliasType) Map(f func(MonoType) MonoType) MonoType {
	return &TypeAliasType{Alias: a.Alias, Params: mapTypes(a.Params, f)}
}

func (a *TypeAliasType) Apply(m Mapping) MonoType { return a.Map(applyWith(m)) }
func (a *TypeAliasType) FreeTypeVars() []TypeVar  { return collectFTVs(a.Params...) }

// Type pairs a monotype with the effects evaluating it may invoke.
type Type struct {
	Mono    MonoType
	Effects EffectSet
}

func (t Type) String() string {
	if len(t.Effects) == 0 {
		return t.Mono.String()
	}
	return "(! " + t.Mono.String() + " " + t.Effects.String() + ")"
}

// EffectSet is a set of qualified effect names.
type EffectSet map[*symbols.QSymbol]struct{}

func NewEffectSet(syms ...*symbols.QSymbol) EffectSet {
	s := make(EffectSet, len(syms))
	for _, sym := range syms {
		s[sym] = struct{}{}
	}
	return s
}

func (s EffectSet) Has(sym *symbols.QSymbol) bool {
	_, ok := s[sym]
	return ok
}

func (s EffectSet) Union(others ...EffectSet) EffectSet {
	out := make(EffectSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	for _, o := range others {
		for k := range o {
			out[k] = struct{}{}
		}
	}
	return out
}

func (s EffectSet) Minus(syms ...*symbols.QSymbol) EffectSet {
	out := make(EffectSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	for _, k := range syms {
		delete(out, k)
	}
	return out
}

// Sorted returns the effects ordered by name.
func (s EffectSet) Sorted() []*symbols.QSymbol {
	out := make([]*symbols.QSymbol, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (s EffectSet) String() string {
	parts := make([]string, 0, len(s))
	for _, k := range s.Sorted() {
		parts = append(parts, k.String())
	}
	return "#{" + strings.Join(parts, " ") + "}"
}

func mapTypes(ts []MonoType, f func(MonoType) MonoType) []MonoType {
	if ts == nil {
		return nil
	}
	out := make([]MonoType, len(ts))
	for i, t := range ts {
		out[i] = f(t)
	}
	return out
}

func applyWith(m Mapping) func(MonoType) MonoType {
	return func(t MonoType) MonoType { return t.Apply(m) }
}

// collectFTVs returns the distinct free type variables in order of first appearance.
func collectFTVs(ts ...MonoType) []TypeVar {
	var out []TypeVar
	seen := make(map[TypeVar]bool)
	for _, t := range ts {
		for _, tv := range t.FreeTypeVars() {
			if !seen[tv] {
				seen[tv] = true
				out = append(out, tv)
			}
		}
	}
	return out
}

// IsPrimName reports whether name is a primitive type name.
func IsPrimName(name string) bool {
	_, ok := PrimTypes[name]
	return ok
}
