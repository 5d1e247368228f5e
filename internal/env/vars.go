// Package env holds the symbol tables: global variables, per-namespace
// environments and the versioned process-wide runtime environment.
package env

import (
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/typesystem"
)

// GlobalVar is anything a namespace can declare.
type GlobalVar interface {
	Sym() *symbols.QSymbol
	Type() typesystem.Type
	globalVar()
}

// DefVar is a value definition. Value is nil until the definition has been
// evaluated; a type declaration alone creates a DefVar without one.
type DefVar struct {
	QSym    *symbols.QSymbol
	T       typesystem.Type
	Value   any
	Defined bool
}

// EffectVar is a declared effect. Value is the redispatching function
// produced by the emitter; DefaultImpl is what it falls back to when no
// enclosing handler binds the effect.
type EffectVar struct {
	QSym        *symbols.QSymbol
	T           typesystem.Type
	DefaultImpl any
	Value       any
}

type RecordKeyVar struct {
	Key   *typesystem.RecordKey
	Value any
}

type VariantKeyVar struct {
	Key   *typesystem.VariantKey
	Value any
}

type TypeAliasVar struct {
	Alias *typesystem.TypeAlias
}

// MacroFunc expands a macro call. It receives the unanalysed argument forms.
type MacroFunc func(args []reader.Form) (reader.Form, error)

type DefMacroVar struct {
	QSym  *symbols.QSymbol
	T     typesystem.Type
	Value MacroFunc
}

func (v *DefVar) Sym() *symbols.QSymbol        { return v.QSym }
func (v *EffectVar) Sym() *symbols.QSymbol     { return v.QSym }
func (v *RecordKeyVar) Sym() *symbols.QSymbol  { return v.Key.Sym }
func (v *VariantKeyVar) Sym() *symbols.QSymbol { return v.Key.Sym }
func (v *TypeAliasVar) Sym() *symbols.QSymbol  { return v.Alias.Sym }
func (v *DefMacroVar) Sym() *symbols.QSymbol   { return v.QSym }

func (v *DefVar) Type() typesystem.Type        { return v.T }
func (v *EffectVar) Type() typesystem.Type     { return v.T }
func (v *RecordKeyVar) Type() typesystem.Type  { return typesystem.AccessorType(v.Key) }
func (v *VariantKeyVar) Type() typesystem.Type { return typesystem.ConstructorType(v.Key) }
func (v *DefMacroVar) Type() typesystem.Type   { return v.T }

// Type of an alias is the aliased type itself; aliases are not values.
func (v *TypeAliasVar) Type() typesystem.Type {
	return typesystem.Type{Mono: &typesystem.TypeAliasType{Alias: v.Alias, Params: typeParams(v.Alias.TypeVars)}}
}

func (*DefVar) globalVar()        {}
func (*EffectVar) globalVar()     {}
func (*RecordKeyVar) globalVar()  {}
func (*VariantKeyVar) globalVar() {}
func (*TypeAliasVar) globalVar()  {}
func (*DefMacroVar) globalVar()   {}

// RuntimeValue returns the var's runtime value, or nil if it has none.
func RuntimeValue(v GlobalVar) any {
	switch v := v.(type) {
	case *DefVar:
		return v.Value
	case *EffectVar:
		return v.Value
	case *RecordKeyVar:
		return v.Value
	case *VariantKeyVar:
		return v.Value
	case *DefMacroVar:
		return v.Value
	}
	return nil
}

func typeParams(tvs []typesystem.TypeVar) []typesystem.MonoType {
	out := make([]typesystem.MonoType, len(tvs))
	for i, tv := range tvs {
		out[i] = tv
	}
	return out
}
