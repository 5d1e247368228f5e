package analyzer

import (
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/token"
	"github.com/funvibe/bridje/internal/typesystem"
)

func primTyping(p typesystem.PrimType) typing {
	return typing{mono: p, env: monoEnv{}, effects: typesystem.NewEffectSet()}
}

// inferCollection types a homogeneous collection literal.
func (in *inferrer) inferCollection(exprs []ast.ValueExpr, pos token.Position, wrap func(typesystem.MonoType) typesystem.MonoType) (typing, error) {
	typings, err := in.inferAll(exprs)
	if err != nil {
		return typing{}, err
	}
	elem := typesystem.NewTypeVar()
	eqs := make([]typesystem.TypeEq, len(typings))
	for i, t := range typings {
		eqs[i] = typesystem.TypeEq{Left: t.mono, Right: elem}
	}
	return combine(pos, wrap(elem), typings, eqs, nil)
}

// inferRecord types a record literal as a closed record of exactly its keys.
func (in *inferrer) inferRecord(e *ast.RecordExpr) (typing, error) {
	inst := typesystem.NewInstantiator()
	keys := typesystem.KeySet{}
	keyTypes := map[*typesystem.RecordKey][]typesystem.MonoType{}
	typings := make([]typing, 0, len(e.Entries))
	var eqs []typesystem.TypeEq

	for _, entry := range e.Entries {
		t, err := in.infer(entry.Expr)
		if err != nil {
			return typing{}, err
		}
		typings = append(typings, t)
		keys[entry.Key] = struct{}{}
		keyTypes[entry.Key] = inst.InstantiateAll(entry.Key.TypeParams())
		eqs = append(eqs, typesystem.TypeEq{Left: inst.Instantiate(entry.Key.Type), Right: t.mono})
	}

	rec := &typesystem.RecordType{
		HasKeys:   keys,
		NeedsKeys: typesystem.KeySet{},
		KeyTypes:  keyTypes,
		Row:       typesystem.NewTypeVar(),
	}
	return combine(e.Loc, rec, typings, eqs, nil)
}
