package typesystem

import (
	"sort"
	"strings"
)

// VariantType is a row-polymorphic tagged union. Keys maps each possible
// tag to one instantiation of its type parameters.
type VariantType struct {
	Keys map[*VariantKey][]MonoType
	Row  RowVar
}

// ConstructorType is the type of a variant tag used as a value: a single-tag
// open variant, or a function producing one when the tag takes parameters.
func ConstructorType(key *VariantKey) Type {
	v := &VariantType{
		Keys: map[*VariantKey][]MonoType{key: key.TypeParams()},
		Row:  NewRowVar(true),
	}
	if len(key.ParamTypes) == 0 {
		return Type{Mono: v}
	}
	return Type{Mono: &FnType{Params: key.ParamTypes, Return: v}}
}

// SortedKeys returns the tags ordered by name.
func (v *VariantType) SortedKeys() []*VariantKey {
	return sortVariantKeys(v.Keys)
}

func sortVariantKeys(m map[*VariantKey][]MonoType) []*VariantKey {
	out := make([]*VariantKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sym.String() < out[j].Sym.String() })
	return out
}

func (v *VariantType) String() string {
	parts := []string{"+"}
	for _, k := range v.SortedKeys() {
		params := v.Keys[k]
		if len(params) == 0 {
			parts = append(parts, k.Sym.String())
			continue
		}
		sub := []string{k.Sym.String()}
		for _, p := range params {
			sub = append(sub, p.String())
		}
		parts = append(parts, "("+strings.Join(sub, " ")+")")
	}
	if v.Row.Open {
		parts = append(parts, "...")
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (v *VariantType) UnifyEq(other MonoType) (Unification, error) {
	o, ok := other.(*VariantType)
	if !ok {
		return Unification{}, mismatch(v, other)
	}

	var eqs []TypeEq
	for _, k := range v.SortedKeys() {
		ops, ok := o.Keys[k]
		if !ok {
			continue
		}
		ps := v.Keys[k]
		for i := 0; i < len(ps) && i < len(ops); i++ {
			eqs = append(eqs, TypeEq{ps[i], ops[i]})
		}
	}

	if v.Row == o.Row {
		return Unification{TypeEqs: eqs}, nil
	}

	newRow := NewRowVar(v.Row.Open && o.Row.Open)
	var missing []string

	// minus records on right's row the tags left has that right lacks.
	minus := func(left, right *VariantType) VariantEq {
		diff := make(map[*VariantKey][]MonoType)
		for k, ps := range left.Keys {
			if _, ok := right.Keys[k]; !ok {
				diff[k] = ps
			}
		}
		if !right.Row.Open {
			for _, k := range sortVariantKeys(diff) {
				missing = append(missing, k.Sym.String())
			}
		}
		return VariantEq{Row: right.Row, Keys: diff, NewRow: newRow}
	}

	variantEqs := []VariantEq{minus(v, o), minus(o, v)}
	if len(missing) > 0 {
		return Unification{}, missingTags(v, o, missing)
	}
	return Unification{TypeEqs: eqs, VariantEqs: variantEqs}, nil
}

func (v *VariantType) Map(f func(MonoType) MonoType) MonoType {
	keys := make(map[*VariantKey][]MonoType, len(v.Keys))
	for k, ps := range v.Keys {
		keys[k] = mapTypes(ps, f)
	}
	return &VariantType{Keys: keys, Row: v.Row}
}

func (v *VariantType) Apply(m Mapping) MonoType {
	res := v
	for i := 0; i <= len(m.Variants); i++ {
		ext, ok := m.Variants[res.Row]
		if !ok {
			break
		}
		keys := make(map[*VariantKey][]MonoType, len(res.Keys)+len(ext.Keys))
		for k, ps := range ext.Keys {
			keys[k] = ps
		}
		for k, ps := range res.Keys {
			keys[k] = ps
		}
		res = &VariantType{Keys: keys, Row: ext.Row}
	}
	return res.Map(applyWith(m))
}

func (v *VariantType) FreeTypeVars() []TypeVar {
	var ts []MonoType
	for _, k := range v.SortedKeys() {
		ts = append(ts, v.Keys[k]...)
	}
	return collectFTVs(ts...)
}
