package typesystem

import (
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/token"
)

// TypeEq is an equation between two monotypes.
type TypeEq struct {
	Left, Right MonoType
}

// VariantEq extends the tags of a variant row: every variant on Row
// gains Keys and continues on NewRow.
type VariantEq struct {
	Row    RowVar
	Keys   map[*VariantKey][]MonoType
	NewRow RowVar
}

// Unification is the result of decomposing one equation.
type Unification struct {
	TypeEqs    []TypeEq
	VariantEqs []VariantEq
}

// VariantRow is what a variant row variable has been resolved to.
type VariantRow struct {
	Keys map[*VariantKey][]MonoType
	Row  RowVar
}

// Mapping is the running substitution: ordinary type variables (which
// include record rows) and variant rows.
type Mapping struct {
	Types    map[TypeVar]MonoType
	Variants map[RowVar]VariantRow
}

func NewMapping() Mapping {
	return Mapping{Types: map[TypeVar]MonoType{}, Variants: map[RowVar]VariantRow{}}
}

// Compose returns m followed by n.
func (m Mapping) Compose(n Mapping) Mapping {
	out := Mapping{
		Types:    make(map[TypeVar]MonoType, len(m.Types)+len(n.Types)),
		Variants: make(map[RowVar]VariantRow, len(m.Variants)+len(n.Variants)),
	}
	for tv, t := range m.Types {
		out.Types[tv] = t.Apply(n)
	}
	for tv, t := range n.Types {
		out.Types[tv] = t
	}

	for rv, row := range m.Variants {
		keys := row.Keys
		next := row.Row
		if more, ok := n.Variants[row.Row]; ok {
			merged := make(map[*VariantKey][]MonoType, len(keys)+len(more.Keys))
			for k, ps := range more.Keys {
				merged[k] = ps
			}
			for k, ps := range keys {
				merged[k] = ps
			}
			keys = merged
			next = more.Row
		}
		applied := make(map[*VariantKey][]MonoType, len(keys))
		for k, ps := range keys {
			applied[k] = mapTypes(ps, applyWith(n))
		}
		out.Variants[rv] = VariantRow{Keys: applied, Row: next}
	}
	for rv, row := range n.Variants {
		out.Variants[rv] = row
	}
	return out
}

// MaxUnificationSteps bounds the equation queue; only self-referential
// aliases unified against structurally different types can reach it.
const MaxUnificationSteps = 1 << 16

// UnifyEqs solves eqs, returning the most general mapping.
//
// Each binding is applied to the remaining queue immediately so that no
// equation ever mentions a variable that is already resolved.
func UnifyEqs(eqs []TypeEq) (Mapping, error) {
	queue := append([]TypeEq(nil), eqs...)
	mapping := NewMapping()

	for steps := 0; len(queue) > 0; steps++ {
		if steps > MaxUnificationSteps {
			return mapping, diagnostics.NewError(diagnostics.ErrTypeMismatch, token.Position{}, "type unification did not terminate")
		}

		eq := queue[0]
		queue = queue[1:]

		t1, t2 := eq.Left, eq.Right
		switch t2.(type) {
		case TypeVar:
			t1, t2 = t2, t1
		case *TypeAliasType:
			if _, ok := t1.(TypeVar); !ok {
				t1, t2 = t2, t1
			}
		}

		if Equal(t1, t2) {
			continue
		}

		if tv, ok := t1.(TypeVar); ok {
			if occurs(tv, t2) {
				return mapping, diagnostics.NewError(diagnostics.ErrTypeMismatch, token.Position{},
					"infinite type: %s occurs in %s", tv, t2)
			}
			step := Mapping{Types: map[TypeVar]MonoType{tv: t2}}
			mapping = mapping.Compose(step)
			queue = applyEqs(queue, step)
			continue
		}

		u, err := t1.UnifyEq(t2)
		if err != nil {
			return mapping, err
		}
		queue = append(queue, u.TypeEqs...)

		for i, ve := range u.VariantEqs {
			step := Mapping{Variants: map[RowVar]VariantRow{ve.Row: {Keys: ve.Keys, Row: ve.NewRow}}}
			mapping = mapping.Compose(step)
			queue = applyEqs(queue, step)
			for j := i + 1; j < len(u.VariantEqs); j++ {
				for k, ps := range u.VariantEqs[j].Keys {
					u.VariantEqs[j].Keys[k] = mapTypes(ps, applyWith(step))
				}
			}
		}
	}

	return mapping, nil
}

// Unify solves a single equation.
func Unify(t1, t2 MonoType) (Mapping, error) {
	return UnifyEqs([]TypeEq{{t1, t2}})
}

func applyEqs(eqs []TypeEq, m Mapping) []TypeEq {
	for i, eq := range eqs {
		eqs[i] = TypeEq{eq.Left.Apply(m), eq.Right.Apply(m)}
	}
	return eqs
}

func occurs(tv TypeVar, t MonoType) bool {
	if _, ok := t.(TypeVar); ok {
		return false
	}
	for _, ftv := range t.FreeTypeVars() {
		if ftv == tv {
			return true
		}
	}
	return false
}

// Equal reports structural equality; type variables compare by identity.
func Equal(a, b MonoType) bool {
	switch x := a.(type) {
	case PrimType:
		y, ok := b.(PrimType)
		return ok && x == y
	case TypeVar:
		y, ok := b.(TypeVar)
		return ok && x == y
	case *VectorType:
		y, ok := b.(*VectorType)
		return ok && Equal(x.Elem, y.Elem)
	case *SetType:
		y, ok := b.(*SetType)
		return ok && Equal(x.Elem, y.Elem)
	case *FnType:
		y, ok := b.(*FnType)
		return ok && equalAll(x.Params, y.Params) && Equal(x.Return, y.Return)
	case *TypeAliasType:
		y, ok := b.(*TypeAliasType)
		return ok && x.Alias == y.Alias && equalAll(x.Params, y.Params)
	case *RecordType:
		y, ok := b.(*RecordType)
		if !ok || x.Row != y.Row || (x.HasKeys == nil) != (y.HasKeys == nil) {
			return false
		}
		if x.HasKeys != nil && !x.HasKeys.Equal(y.HasKeys) {
			return false
		}
		if !x.NeedsKeys.Equal(y.NeedsKeys) || len(x.KeyTypes) != len(y.KeyTypes) {
			return false
		}
		for k, ps := range x.KeyTypes {
			ops, ok := y.KeyTypes[k]
			if !ok || !equalAll(ps, ops) {
				return false
			}
		}
		return true
	case *VariantType:
		y, ok := b.(*VariantType)
		if !ok || x.Row != y.Row || len(x.Keys) != len(y.Keys) {
			return false
		}
		for k, ps := range x.Keys {
			ops, ok := y.Keys[k]
			if !ok || !equalAll(ps, ops) {
				return false
			}
		}
		return true
	}
	return false
}

func equalAll(as, bs []MonoType) bool {
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !Equal(as[i], bs[i]) {
			return false
		}
	}
	return true
}

func mismatch(t1, t2 MonoType) error {
	return diagnostics.NewError(diagnostics.ErrTypeMismatch, token.Position{}, "cannot unify %s with %s", t1, t2)
}

func missingKeys(r1, r2 *RecordType, missing KeySet) error {
	return diagnostics.NewError(diagnostics.ErrMissingRecordKeys, token.Position{},
		"cannot unify %s with %s: missing keys %s", r1, r2, missing).WithSubjects(missing.Names()...)
}

func missingTags(v1, v2 *VariantType, missing []string) error {
	return diagnostics.NewError(diagnostics.ErrMissingVariantTag, token.Position{},
		"cannot unify %s with %s: closed variant lacks tags", v1, v2).WithSubjects(missing...)
}

func aliasUndefined(a *TypeAlias) error {
	return diagnostics.NewError(diagnostics.ErrTypeMismatch, token.Position{}, "type alias %s is declared but not defined", a.Sym)
}

func aliasRedefined(a *TypeAlias) error {
	return diagnostics.NewError(diagnostics.ErrTypeMismatch, token.Position{}, "type alias %s is already defined", a.Sym)
}
