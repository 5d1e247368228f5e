package analyzer

import (
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/typesystem"
)

func (in *inferrer) inferIf(e *ast.IfExpr) (typing, error) {
	typings, err := in.inferAll([]ast.ValueExpr{e.Pred, e.Then, e.Else})
	if err != nil {
		return typing{}, err
	}
	ret := typesystem.NewTypeVar()
	return combine(e.Loc, ret, typings, []typesystem.TypeEq{
		{Left: typings[0].mono, Right: typesystem.BoolType},
		{Left: ret, Right: typings[1].mono},
		{Left: ret, Right: typings[2].mono},
	}, nil)
}

func (in *inferrer) inferDo(e *ast.DoExpr) (typing, error) {
	typings, err := in.inferAll(append(append([]ast.ValueExpr(nil), e.Exprs...), e.Expr))
	if err != nil {
		return typing{}, err
	}
	return combine(e.Loc, typings[len(typings)-1].mono, typings, nil, nil)
}

// inferBindings types binding expressions and returns the local types they
// fix.
func (in *inferrer) inferBindings(bindings []ast.Binding) ([]typing, []localType, error) {
	typings := make([]typing, 0, len(bindings)+1)
	lvs := make([]localType, 0, len(bindings))
	for _, b := range bindings {
		t, err := in.infer(b.Expr)
		if err != nil {
			return nil, nil, err
		}
		typings = append(typings, t)
		lvs = append(lvs, localType{local: b.Local, mono: t.mono})
	}
	return typings, lvs, nil
}

func (in *inferrer) inferLet(e *ast.LetExpr) (typing, error) {
	typings, lvs, err := in.inferBindings(e.Bindings)
	if err != nil {
		return typing{}, err
	}
	body, err := in.infer(e.Body)
	if err != nil {
		return typing{}, err
	}
	return combine(e.Loc, body.mono, append(typings, body), nil, lvs)
}

func (in *inferrer) inferLoop(e *ast.LoopExpr) (typing, error) {
	typings, lvs, err := in.inferBindings(e.Bindings)
	if err != nil {
		return typing{}, err
	}
	body, err := in.infer(e.Body)
	if err != nil {
		return typing{}, err
	}
	return combine(e.Loc, body.mono, append(typings, body), nil, lvs)
}

// inferRecur constrains each rebound local to its new value. A recur never
// returns, so its own type is unconstrained.
func (in *inferrer) inferRecur(e *ast.RecurExpr) (typing, error) {
	typings, lvs, err := in.inferBindings(e.Bindings)
	if err != nil {
		return typing{}, err
	}
	return combine(e.Loc, typesystem.NewTypeVar(), typings, nil, lvs)
}

// inferCase unifies the scrutinee with a variant of exactly the clause tags,
// open only when a default clause exists.
func (in *inferrer) inferCase(e *ast.CaseExpr) (typing, error) {
	ret := typesystem.NewTypeVar()
	scrutinee, err := in.infer(e.Expr)
	if err != nil {
		return typing{}, err
	}

	inst := typesystem.NewInstantiator()
	keys := map[*typesystem.VariantKey][]typesystem.MonoType{}
	typings := make([]typing, 0, len(e.Clauses)+2)
	var (
		eqs []typesystem.TypeEq
		lvs []localType
	)
	for _, cl := range e.Clauses {
		body, err := in.infer(cl.Body)
		if err != nil {
			return typing{}, err
		}
		typings = append(typings, body)
		eqs = append(eqs, typesystem.TypeEq{Left: ret, Right: body.mono})
		keys[cl.Key] = cl.Key.TypeParams()
		for i, lv := range cl.Bindings {
			lvs = append(lvs, localType{local: lv, mono: inst.Instantiate(cl.Key.ParamTypes[i])})
		}
	}

	variant := inst.Instantiate(&typesystem.VariantType{Keys: keys, Row: typesystem.NewRowVar(e.Default != nil)})
	typings = append(typings, scrutinee)
	eqs = append(eqs, typesystem.TypeEq{Left: scrutinee.mono, Right: variant})

	if e.Default != nil {
		def, err := in.infer(e.Default)
		if err != nil {
			return typing{}, err
		}
		typings = append(typings, def)
		eqs = append(eqs, typesystem.TypeEq{Left: ret, Right: def.mono})
	}
	return combine(e.Loc, ret, typings, eqs, lvs)
}
