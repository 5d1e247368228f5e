package evaluator

import (
	"github.com/funvibe/bridje/internal/analyzer"
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/pipeline"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
	"github.com/funvibe/bridje/internal/typesystem"
)

type analyseStep struct {
	a *analyzer.Analyzer
}

func (*analyseStep) Stage() pipeline.Stage { return pipeline.Analysing }

func (s *analyseStep) Process(ctx *pipeline.Context) *pipeline.Context {
	decl, err := s.a.AnalyzeDecl(ctx.Form)
	if err != nil {
		ctx.Err = diagnostics.AtPos(err, ctx.Form.Pos())
		return ctx
	}
	ctx.Decl = decl
	return ctx
}

type typeStep struct {
	a *analyzer.Analyzer
}

func (*typeStep) Stage() pipeline.Stage { return pipeline.Typing }

func (s *typeStep) Process(ctx *pipeline.Context) *pipeline.Context {
	decl, err := s.a.Infer(ctx.Decl)
	if err != nil {
		ctx.Err = diagnostics.AtPos(err, ctx.Form.Pos())
		return ctx
	}
	ctx.Decl = decl
	return ctx
}

// commitStep declares the form's var in the namespace, asking the emitter
// for its runtime value, and stages the updated namespace.
type commitStep struct {
	e *Evaluator
	a *analyzer.Analyzer
}

func (*commitStep) Stage() pipeline.Stage { return pipeline.Committing }

func (s *commitStep) Process(ctx *pipeline.Context) *pipeline.Context {
	nsEnv := s.a.NSEnv()
	next, value, err := s.commit(nsEnv, ctx.Decl)
	if err != nil {
		ctx.Err = diagnostics.AtPos(err, ctx.Decl.Pos())
		return ctx
	}
	ctx.Value = value
	if next != nsEnv {
		s.a.SetNSEnv(next)
		s.e.store.Stage(s.e.store.Working().Merge(next))
	}
	return ctx
}

func (s *commitStep) commit(nsEnv *env.NSEnv, decl ast.Decl) (*env.NSEnv, any, error) {
	em := s.e.emitter
	qualify := func(sym *symbols.Symbol) *symbols.QSymbol { return symbols.Qualify(nsEnv.NS, sym) }

	switch d := decl.(type) {
	case *ast.DefExpr:
		q := qualify(d.Sym)
		val, err := em.EvalValueExpr(d.Expr)
		if err != nil {
			return nil, nil, emitterError(err, d.Loc, "evaluating %s", q)
		}
		if existing, ok := nsEnv.Get(d.Sym); ok {
			if ev, ok := existing.(*env.EffectVar); ok {
				fn, err := em.EmitEffectFn(q, val)
				if err != nil {
					return nil, nil, emitterError(err, d.Loc, "emitting effect %s", q)
				}
				return nsEnv.Declare(&env.EffectVar{QSym: q, T: ev.T, DefaultImpl: val, Value: fn}), val, nil
			}
		}
		return nsEnv.Declare(&env.DefVar{QSym: q, T: d.Type, Value: val, Defined: true}), val, nil

	case *ast.VarDeclExpr:
		q := qualify(d.Sym)
		if !d.IsEffect {
			return nsEnv.Declare(&env.DefVar{QSym: q, T: d.Type}), nil, nil
		}
		fn, err := em.EmitEffectFn(q, nil)
		if err != nil {
			return nil, nil, emitterError(err, d.Loc, "emitting effect %s", q)
		}
		return nsEnv.Declare(&env.EffectVar{QSym: q, T: d.Type, Value: fn}), nil, nil

	case *ast.TypeAliasDeclExpr:
		if d.Type != nil {
			if err := d.Alias.SetTarget(d.Type); err != nil {
				return nil, nil, diagnostics.AtPos(err, d.Loc)
			}
		}
		return nsEnv.Declare(&env.TypeAliasVar{Alias: d.Alias}), nil, nil

	case *ast.RecordKeyDeclExpr:
		key := typesystem.NewRecordKey(qualify(d.Sym), d.Type)
		val, err := em.EmitRecordKey(key)
		if err != nil {
			return nil, nil, emitterError(err, d.Loc, "emitting record key %s", key.Sym)
		}
		return nsEnv.Declare(&env.RecordKeyVar{Key: key, Value: val}), val, nil

	case *ast.VariantKeyDeclExpr:
		key := typesystem.NewVariantKey(qualify(d.Sym), d.ParamTypes)
		val, err := em.EmitVariantKey(key)
		if err != nil {
			return nil, nil, emitterError(err, d.Loc, "emitting variant key %s", key.Sym)
		}
		return nsEnv.Declare(&env.VariantKeyVar{Key: key, Value: val}), val, nil

	case *ast.DefMacroExpr:
		q := qualify(d.Sym)
		fn, err := em.EmitDefMacroVar(d, nsEnv.NS)
		if err != nil {
			return nil, nil, emitterError(err, d.Loc, "emitting macro %s", q)
		}
		return nsEnv.Declare(&env.DefMacroVar{QSym: q, T: d.Type, Value: fn}), nil, nil

	case *ast.ExprDecl:
		val, err := em.EvalValueExpr(d.Expr)
		if err != nil {
			return nil, nil, emitterError(err, d.Loc, "evaluating expression")
		}
		return nsEnv, val, nil
	}
	return nsEnv, nil, nil
}

// emitterError keeps diagnostics from the emitter as they are and wraps
// anything else as an emitter failure.
func emitterError(err error, pos token.Position, format string, args ...any) error {
	if diagnostics.CodeOf(err) != "" {
		return diagnostics.AtPos(err, pos)
	}
	return diagnostics.Wrap(diagnostics.ErrEmitter, pos, err, format, args...)
}
