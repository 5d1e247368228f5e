package analyzer

import (
	"fmt"

	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/typesystem"
)

// Infer types a declaration produced by AnalyzeDecl, checking definitions
// against any signature already declared for the same name. Definitions
// that may invoke effects are rewritten to take the effect capability.
func (a *Analyzer) Infer(decl ast.Decl) (ast.Decl, error) {
	switch d := decl.(type) {
	case *ast.DefExpr:
		return a.inferDef(d)
	case *ast.ExprDecl:
		t, err := ValueExprType(d.Expr)
		if err != nil {
			return nil, diagnostics.AtPos(err, d.Loc)
		}
		out := *d
		out.Type = t
		return &out, nil
	case *ast.DefMacroExpr:
		return a.inferDefMacro(d)
	}
	return decl, nil
}

func (a *Analyzer) inferDef(d *ast.DefExpr) (ast.Decl, error) {
	in := newInferrer(d.Self)
	t, err := in.infer(d.Expr)
	if err != nil {
		return nil, diagnostics.AtPos(err, d.Loc)
	}

	mono := t.mono
	if selfUse, ok := t.env[in.selfLocal]; ok && d.Self != nil {
		m, err := typesystem.Unify(selfUse, mono)
		if err != nil {
			return nil, diagnostics.AtPos(err, d.Loc)
		}
		mono = mono.Apply(m)
	}
	inferred := typesystem.Type{Mono: mono, Effects: t.effects}

	out := *d
	out.Type = inferred

	existing, _ := a.resolver.NSEnv.Get(d.Sym)
	_, isEffect := existing.(*env.EffectVar)
	if sig, ok := declaredSignature(existing); ok {
		if err := checkSignature(d, sig, inferred); err != nil {
			return nil, err
		}
		out.Type = sig
	}

	if isEffect || len(out.Type.Effects) > 0 {
		switch e := out.Expr.(type) {
		case *ast.FnExpr:
			out.Expr = e.WithFxLocal()
		default:
			if ft, ok := out.Type.Mono.(*typesystem.FnType); ok {
				out.Expr = threadEffects(e, len(ft.Params))
			}
		}
	}
	a.logger.Debug("inferred definition", "name", d.Sym.String(), "type", out.Type.String())
	return &out, nil
}

// declaredSignature returns the type a definition must match: that of an
// effect, or of a (:: ...) declaration not yet defined. A var that already
// has a value is simply redefined.
func declaredSignature(v env.GlobalVar) (typesystem.Type, bool) {
	switch v := v.(type) {
	case *env.EffectVar:
		return v.T, v.T.Mono != nil
	case *env.DefVar:
		return v.T, !v.Defined && v.T.Mono != nil
	}
	return typesystem.Type{}, false
}

// threadEffects wraps an effectful function value that is not a literal,
// such as a closure returned from a let, in a literal taking the effect
// capability. The expression is evaluated on each call with the caller's
// capability in scope.
func threadEffects(expr ast.ValueExpr, arity int) *ast.FnExpr {
	pos := expr.Pos()
	params := make([]ast.LocalVar, arity)
	args := make([]ast.ValueExpr, arity)
	for i := range params {
		params[i] = ast.NewLocalVar(symbols.Intern(fmt.Sprintf("arg%d", i)))
		args[i] = &ast.LocalVarExpr{Local: params[i], Loc: pos}
	}
	fn := &ast.FnExpr{
		Params: params,
		Body: &ast.CallExpr{
			Fn:        expr,
			EffectArg: &ast.LocalVarExpr{Local: ast.DefaultEffectLocal, Loc: pos},
			Args:      args,
			Loc:       pos,
		},
		Loc: pos,
	}
	fn.Captures = ast.FreeLocals(fn)
	return fn.WithFxLocal()
}

// checkSignature requires the inferred type to be at least as general as
// the declared one, with no effects beyond those declared. The declared
// type variables are instantiated and must stay distinct variables after
// unification: a definition may not fix what the declaration leaves open.
func checkSignature(d *ast.DefExpr, declared, inferred typesystem.Type) error {
	in := typesystem.NewInstantiator()
	inst := in.Instantiate(declared.Mono)
	m, err := typesystem.Unify(inst, inferred.Mono)
	if err != nil {
		return diagnostics.Wrap(diagnostics.ErrSignatureMismatch, d.Loc, err,
			"%s is declared as %s but defined as %s", d.Sym, declared.Mono, inferred.Mono)
	}
	seen := map[typesystem.TypeVar]bool{}
	for _, tv := range signatureVars(declared.Mono) {
		bound, ok := in.TypeVar(tv).Apply(m).(typesystem.TypeVar)
		if !ok || seen[bound] {
			return diagnostics.NewError(diagnostics.ErrSignatureMismatch, d.Loc,
				"%s is declared as %s but defined as the less general %s", d.Sym, declared.Mono, inferred.Mono)
		}
		seen[bound] = true
	}

	var extra []string
	for _, fx := range inferred.Effects.Sorted() {
		if !declared.Effects.Has(fx) {
			extra = append(extra, fx.String())
		}
	}
	if len(extra) > 0 {
		return diagnostics.NewError(diagnostics.ErrSignatureMismatch, d.Loc,
			"%s invokes undeclared effects", d.Sym).WithSubjects(extra...)
	}
	return nil
}

// signatureVars lists the type variables written in a declared type, in
// order of first occurrence. Record rows are skipped: unification binds
// them to the record's remaining keys.
func signatureVars(t typesystem.MonoType) []typesystem.TypeVar {
	var out []typesystem.TypeVar
	seen := map[typesystem.TypeVar]bool{}
	var walk func(typesystem.MonoType) typesystem.MonoType
	walk = func(t typesystem.MonoType) typesystem.MonoType {
		if tv, ok := t.(typesystem.TypeVar); ok {
			if !seen[tv] {
				seen[tv] = true
				out = append(out, tv)
			}
			return t
		}
		return t.Map(walk)
	}
	walk(t)
	return out
}

// inferDefMacro types a macro body. When the core Form type is loaded the
// macro must map forms to a form.
func (a *Analyzer) inferDefMacro(d *ast.DefMacroExpr) (ast.Decl, error) {
	t, err := newInferrer(nil).infer(d.Fn)
	if err != nil {
		return nil, diagnostics.AtPos(err, d.Loc)
	}
	out := *d
	out.Type = typesystem.Type{Mono: t.mono, Effects: t.effects}

	formVar, err := a.resolver.ResolveQ(FormAlias, d.Loc)
	if err != nil {
		return &out, nil
	}
	av, ok := formVar.(*env.TypeAliasVar)
	if !ok {
		return &out, nil
	}
	form := &typesystem.TypeAliasType{Alias: av.Alias}
	params := make([]typesystem.MonoType, len(d.Fn.Params))
	for i := range params {
		params[i] = form
	}
	want := &typesystem.FnType{Params: params, Return: form}
	if _, err := typesystem.Unify(want, t.mono); err != nil {
		return nil, diagnostics.Wrap(diagnostics.ErrSignatureMismatch, d.Loc, err,
			"macro %s must take and return forms", d.Sym)
	}
	out.Type = typesystem.Type{Mono: want, Effects: t.effects}
	return &out, nil
}
