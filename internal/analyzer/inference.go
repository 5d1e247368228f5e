package analyzer

import (
	"sort"

	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/token"
	"github.com/funvibe/bridje/internal/typesystem"
)

// monoEnv records the type each free local is used at.
type monoEnv map[ast.LocalVar]typesystem.MonoType

// typing is the result of inferring one expression: its type, the types
// its free locals must have, and the effects it may invoke.
type typing struct {
	mono    typesystem.MonoType
	env     monoEnv
	effects typesystem.EffectSet
}

type localType struct {
	local ast.LocalVar
	mono  typesystem.MonoType
}

// inferrer holds the state of one top-level inference. References to self
// are typed like a local so that recursive definitions constrain their
// own type.
type inferrer struct {
	self      env.GlobalVar
	selfLocal ast.LocalVar
}

func newInferrer(self *env.DefVar) *inferrer {
	in := &inferrer{}
	if self != nil {
		in.self = self
		in.selfLocal = ast.NewLocalVar(self.QSym.Base)
	}
	return in
}

func sortedLocals(e monoEnv) []ast.LocalVar {
	out := make([]ast.LocalVar, 0, len(e))
	for lv := range e {
		out = append(out, lv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// combine is the fold point of every rule: it equates every use of each
// local, solves the equations and applies the solution to ret.
func combine(pos token.Position, ret typesystem.MonoType, typings []typing, extraEqs []typesystem.TypeEq, extraLVs []localType) (typing, error) {
	lvTVs := map[ast.LocalVar]typesystem.TypeVar{}
	var order []ast.LocalVar
	tvFor := func(lv ast.LocalVar) typesystem.TypeVar {
		tv, ok := lvTVs[lv]
		if !ok {
			tv = typesystem.NewTypeVar()
			lvTVs[lv] = tv
			order = append(order, lv)
		}
		return tv
	}

	eqs := append([]typesystem.TypeEq(nil), extraEqs...)
	for _, lt := range extraLVs {
		eqs = append(eqs, typesystem.TypeEq{Left: tvFor(lt.local), Right: lt.mono})
	}
	effects := typesystem.NewEffectSet()
	for _, t := range typings {
		for _, lv := range sortedLocals(t.env) {
			eqs = append(eqs, typesystem.TypeEq{Left: tvFor(lv), Right: t.env[lv]})
		}
		effects = effects.Union(t.effects)
	}

	m, err := typesystem.UnifyEqs(eqs)
	if err != nil {
		return typing{}, diagnostics.AtPos(err, pos)
	}

	out := monoEnv{}
	for _, lv := range order {
		out[lv] = lvTVs[lv].Apply(m)
	}
	return typing{mono: ret.Apply(m), env: out, effects: effects}, nil
}

func (in *inferrer) infer(expr ast.ValueExpr) (typing, error) {
	switch e := expr.(type) {
	case *ast.BoolExpr:
		return primTyping(typesystem.BoolType), nil
	case *ast.StringExpr:
		return primTyping(typesystem.StrType), nil
	case *ast.IntExpr:
		return primTyping(typesystem.IntType), nil
	case *ast.BigIntExpr:
		return primTyping(typesystem.BigIntType), nil
	case *ast.FloatExpr:
		return primTyping(typesystem.FloatType), nil
	case *ast.BigFloatExpr:
		return primTyping(typesystem.BigFloatType), nil
	case *ast.QuotedSymbolExpr:
		return primTyping(typesystem.SymbolType), nil
	case *ast.QuotedQSymbolExpr:
		return primTyping(typesystem.QSymbolType), nil
	case *ast.VectorExpr:
		return in.inferCollection(e.Exprs, e.Loc, func(t typesystem.MonoType) typesystem.MonoType {
			return &typesystem.VectorType{Elem: t}
		})
	case *ast.SetExpr:
		return in.inferCollection(e.Exprs, e.Loc, func(t typesystem.MonoType) typesystem.MonoType {
			return &typesystem.SetType{Elem: t}
		})
	case *ast.RecordExpr:
		return in.inferRecord(e)
	case *ast.IfExpr:
		return in.inferIf(e)
	case *ast.DoExpr:
		return in.inferDo(e)
	case *ast.LetExpr:
		return in.inferLet(e)
	case *ast.LoopExpr:
		return in.inferLoop(e)
	case *ast.RecurExpr:
		return in.inferRecur(e)
	case *ast.FnExpr:
		return in.inferFn(e)
	case *ast.CallExpr:
		return in.inferCall(e)
	case *ast.LocalVarExpr:
		return localTyping(e.Local)
	case *ast.GlobalVarExpr:
		return in.inferGlobal(e)
	case *ast.CaseExpr:
		return in.inferCase(e)
	case *ast.WithFxExpr:
		return in.inferWithFx(e)
	}
	return typing{}, diagnostics.NewError(diagnostics.ErrTypeMismatch, expr.Pos(), "cannot type %T", expr)
}

func (in *inferrer) inferAll(exprs []ast.ValueExpr) ([]typing, error) {
	out := make([]typing, 0, len(exprs))
	for _, e := range exprs {
		t, err := in.infer(e)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ValueExprType infers the type and effects of a closed expression.
func ValueExprType(expr ast.ValueExpr) (typesystem.Type, error) {
	t, err := newInferrer(nil).infer(expr)
	if err != nil {
		return typesystem.Type{}, err
	}
	return typesystem.Type{Mono: t.mono, Effects: t.effects}, nil
}
