package analyzer

import (
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/typesystem"
)

func localTyping(lv ast.LocalVar) (typing, error) {
	tv := typesystem.NewTypeVar()
	return typing{mono: tv, env: monoEnv{lv: tv}, effects: typesystem.NewEffectSet()}, nil
}

func (in *inferrer) inferFn(e *ast.FnExpr) (typing, error) {
	body, err := in.infer(e.Body)
	if err != nil {
		return typing{}, err
	}
	params := make([]typesystem.MonoType, len(e.Params))
	lvs := make([]localType, len(e.Params))
	for i, p := range e.Params {
		tv := typesystem.NewTypeVar()
		params[i] = tv
		lvs[i] = localType{local: p, mono: tv}
	}
	fn := &typesystem.FnType{Params: params, Return: body.mono}
	if e.Self != nil {
		lvs = append(lvs, localType{local: *e.Self, mono: fn})
	}
	t, err := combine(e.Loc, fn, []typing{body}, nil, lvs)
	if err != nil {
		return typing{}, err
	}
	for _, p := range e.Params {
		delete(t.env, p)
	}
	if e.Self != nil {
		delete(t.env, *e.Self)
	}
	return t, nil
}

// inferCall ignores the effect argument: it is threaded, not typed.
func (in *inferrer) inferCall(e *ast.CallExpr) (typing, error) {
	fn, err := in.infer(e.Fn)
	if err != nil {
		return typing{}, err
	}
	args, err := in.inferAll(e.Args)
	if err != nil {
		return typing{}, err
	}
	params := make([]typesystem.MonoType, len(args))
	eqs := make([]typesystem.TypeEq, 0, len(args)+1)
	for i := range args {
		params[i] = typesystem.NewTypeVar()
	}
	ret := typesystem.NewTypeVar()
	eqs = append(eqs, typesystem.TypeEq{Left: &typesystem.FnType{Params: params, Return: ret}, Right: fn.mono})
	for i, a := range args {
		eqs = append(eqs, typesystem.TypeEq{Left: a.mono, Right: params[i]})
	}
	return combine(e.Loc, ret, append(args, fn), eqs, nil)
}

func (in *inferrer) inferGlobal(e *ast.GlobalVarExpr) (typing, error) {
	if in.self != nil && e.Var == in.self {
		return localTyping(in.selfLocal)
	}
	t := e.Var.Type()
	if t.Mono == nil {
		return typing{mono: typesystem.NewTypeVar(), env: monoEnv{}, effects: typesystem.NewEffectSet()}, nil
	}
	return typing{
		mono:    typesystem.NewInstantiator().Instantiate(t.Mono),
		env:     monoEnv{},
		effects: typesystem.NewEffectSet().Union(t.Effects),
	}, nil
}

// inferWithFx removes the handled effects and adds whatever the handlers
// themselves invoke.
func (in *inferrer) inferWithFx(e *ast.WithFxExpr) (typing, error) {
	typings := make([]typing, 0, len(e.Fx)+1)
	var eqs []typesystem.TypeEq
	handled := make([]*symbols.QSymbol, 0, len(e.Fx))
	implEffects := typesystem.NewEffectSet()
	for _, fx := range e.Fx {
		t, err := in.infer(fx.Fn)
		if err != nil {
			return typing{}, err
		}
		typings = append(typings, t)
		implEffects = implEffects.Union(t.effects)
		handled = append(handled, fx.Var.QSym)
		if fx.Var.T.Mono != nil {
			eqs = append(eqs, typesystem.TypeEq{Left: t.mono, Right: typesystem.NewInstantiator().Instantiate(fx.Var.T.Mono)})
		}
	}
	body, err := in.infer(e.Body)
	if err != nil {
		return typing{}, err
	}
	t, err := combine(e.Loc, body.mono, append(typings, body), eqs, nil)
	if err != nil {
		return typing{}, err
	}
	t.effects = t.effects.Minus(handled...).Union(implEffects)
	return t, nil
}
