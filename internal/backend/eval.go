package backend

import (
	"fmt"
	"slices"

	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
	"github.com/funvibe/bridje/internal/typesystem"
)

// frame holds the locals of one function activation, keyed by LocalVar ID.
type frame map[uint64]any

// topFrame binds the default effect capability to the empty frame chain.
func topFrame() frame {
	return frame{ast.DefaultEffectLocal.ID: (*FxFrame)(nil)}
}

// recur carries rebound values back to the enclosing loop or fn. Recur is
// only ever in tail position, so it passes straight up through if, let,
// do, case and with-fx.
type recur struct {
	vals []any
}

func (in *Interpreter) eval(f frame, expr ast.ValueExpr) (any, error) {
	switch e := expr.(type) {
	case *ast.BoolExpr:
		return e.Value, nil
	case *ast.StringExpr:
		return e.Value, nil
	case *ast.IntExpr:
		return e.Value, nil
	case *ast.BigIntExpr:
		return e.Value, nil
	case *ast.FloatExpr:
		return e.Value, nil
	case *ast.BigFloatExpr:
		return e.Value, nil
	case *ast.QuotedSymbolExpr:
		return e.Sym, nil
	case *ast.QuotedQSymbolExpr:
		return e.Sym, nil

	case *ast.VectorExpr:
		return in.evalAll(f, e.Exprs)
	case *ast.SetExpr:
		elems, err := in.evalAll(f, e.Exprs)
		if err != nil {
			return nil, err
		}
		return NewSet(elems...), nil
	case *ast.RecordExpr:
		rec := &Record{Values: make(map[*typesystem.RecordKey]any, len(e.Entries))}
		for _, entry := range e.Entries {
			v, err := in.eval(f, entry.Expr)
			if err != nil {
				return nil, err
			}
			if _, dup := rec.Values[entry.Key]; dup {
				rec.Keys = slices.DeleteFunc(rec.Keys, func(k *typesystem.RecordKey) bool { return k == entry.Key })
			}
			rec.Keys = append(rec.Keys, entry.Key)
			rec.Values[entry.Key] = v
		}
		return rec, nil

	case *ast.IfExpr:
		pred, err := in.eval(f, e.Pred)
		if err != nil {
			return nil, err
		}
		b, ok := pred.(bool)
		if !ok {
			return nil, runtimeError(e.Pred.Pos(), "if expects a Bool, got %s", Format(pred))
		}
		if b {
			return in.eval(f, e.Then)
		}
		return in.eval(f, e.Else)

	case *ast.DoExpr:
		for _, x := range e.Exprs {
			if _, err := in.eval(f, x); err != nil {
				return nil, err
			}
		}
		return in.eval(f, e.Expr)

	case *ast.LetExpr:
		if err := in.bind(f, e.Bindings); err != nil {
			return nil, err
		}
		return in.eval(f, e.Body)

	case *ast.LoopExpr:
		if err := in.bind(f, e.Bindings); err != nil {
			return nil, err
		}
		for {
			v, err := in.eval(f, e.Body)
			if err != nil {
				return nil, err
			}
			r, ok := v.(*recur)
			if !ok {
				return v, nil
			}
			for i, b := range e.Bindings {
				f[b.Local.ID] = r.vals[i]
			}
		}

	case *ast.RecurExpr:
		vals := make([]any, len(e.Bindings))
		for i, b := range e.Bindings {
			v, err := in.eval(f, b.Expr)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return &recur{vals: vals}, nil

	case *ast.FnExpr:
		captured := make(map[uint64]any, len(e.Captures))
		for _, c := range e.Captures {
			captured[c.ID] = f[c.ID]
		}
		return &Closure{fn: e, captured: captured, interp: in}, nil

	case *ast.CallExpr:
		return in.evalCall(f, e)

	case *ast.LocalVarExpr:
		v, ok := f[e.Local.ID]
		if !ok {
			return nil, runtimeError(e.Loc, "local %s is not bound", e.Local)
		}
		return v, nil

	case *ast.GlobalVarExpr:
		return in.global(e.Var, e.Loc)

	case *ast.CaseExpr:
		return in.evalCase(f, e)

	case *ast.WithFxExpr:
		return in.evalWithFx(f, e)
	}
	return nil, fmt.Errorf("cannot evaluate %T", expr)
}

func (in *Interpreter) evalAll(f frame, exprs []ast.ValueExpr) ([]any, error) {
	out := make([]any, len(exprs))
	for i, x := range exprs {
		v, err := in.eval(f, x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (in *Interpreter) bind(f frame, bindings []ast.Binding) error {
	for _, b := range bindings {
		v, err := in.eval(f, b.Expr)
		if err != nil {
			return err
		}
		f[b.Local.ID] = v
	}
	return nil
}

func (in *Interpreter) evalCall(f frame, e *ast.CallExpr) (any, error) {
	fnVal, err := in.eval(f, e.Fn)
	if err != nil {
		return nil, err
	}
	fn, ok := fnVal.(Callable)
	if !ok {
		return nil, runtimeError(e.Loc, "%s is not a function", Format(fnVal))
	}
	args, err := in.evalAll(f, e.Args)
	if err != nil {
		return nil, err
	}

	var fx *FxFrame
	if e.EffectArg != nil {
		fx, _ = f[e.EffectArg.Local.ID].(*FxFrame)
	}

	if in.depth.Add(1) > maxEvalDepth {
		in.depth.Add(-1)
		return nil, runtimeError(e.Loc, "maximum call depth exceeded")
	}
	defer in.depth.Add(-1)

	v, err := fn.Call(fx, args)
	if err != nil {
		return nil, diagnostics.AtPos(wrapRuntime(err), e.Loc)
	}
	return v, nil
}

func wrapRuntime(err error) error {
	if diagnostics.CodeOf(err) != "" {
		return err
	}
	return diagnostics.Wrap(diagnostics.ErrEmitter, token.Position{}, err, "call failed")
}

func (in *Interpreter) evalCase(f frame, e *ast.CaseExpr) (any, error) {
	v, err := in.eval(f, e.Expr)
	if err != nil {
		return nil, err
	}
	variant, ok := v.(*Variant)
	if !ok {
		return nil, runtimeError(e.Expr.Pos(), "case expects a variant, got %s", Format(v))
	}
	for _, clause := range e.Clauses {
		if clause.Key != variant.Key {
			continue
		}
		for i, lv := range clause.Bindings {
			f[lv.ID] = variant.Args[i]
		}
		return in.eval(f, clause.Body)
	}
	if e.Default != nil {
		return in.eval(f, e.Default)
	}
	return nil, runtimeError(e.Loc, "no case clause matches %s", Format(variant))
}

func (in *Interpreter) evalWithFx(f frame, e *ast.WithFxExpr) (any, error) {
	outer, _ := f[e.OldFx.ID].(*FxFrame)
	fx := &FxFrame{Parent: outer, Impls: make(map[*symbols.QSymbol]Callable, len(e.Fx))}
	for _, def := range e.Fx {
		impl, err := in.eval(f, def.Fn)
		if err != nil {
			return nil, err
		}
		fx.Impls[def.Var.QSym] = impl.(Callable)
	}
	f[e.NewFx.ID] = fx
	return in.eval(f, e.Body)
}

// Call runs the closure body in a fresh frame. A recur in tail position
// rebinds the parameters and runs the body again.
// self is c as its own body sees it. Calls through a local pass no effect
// frame, so a closure taking one keeps the frame it was called with.
func (c *Closure) self(fx *FxFrame) *Closure {
	if c.fn.FxLocal == nil {
		return c
	}
	return &Closure{fn: c.fn, captured: c.captured, interp: c.interp, fx: fx}
}

func (c *Closure) Call(fx *FxFrame, args []any) (any, error) {
	if len(args) != len(c.fn.Params) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", c.Name(), len(c.fn.Params), len(args))
	}
	if fx == nil {
		fx = c.fx
	}
	f := make(frame, len(c.captured)+len(args)+2)
	for id, v := range c.captured {
		f[id] = v
	}
	if c.fn.Self != nil {
		f[c.fn.Self.ID] = c.self(fx)
	}
	if c.fn.FxLocal != nil {
		f[c.fn.FxLocal.ID] = fx
	}
	for i, p := range c.fn.Params {
		f[p.ID] = args[i]
	}
	for {
		v, err := c.interp.eval(f, c.fn.Body)
		if err != nil {
			return nil, err
		}
		r, ok := v.(*recur)
		if !ok {
			return v, nil
		}
		for i, p := range c.fn.Params {
			f[p.ID] = r.vals[i]
		}
	}
}
