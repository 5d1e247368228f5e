package analyzer

import (
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/config"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/typesystem"
)

var (
	typeDeclSym = symbols.Intern(config.TypeDeclForm)
	defxSym     = symbols.Intern(config.DefxForm)
	deftypeSym  = symbols.Intern(config.DeftypeForm)
	defmacroSym = symbols.Intern(config.DefmacroForm)
	nsFormSym   = symbols.Intern(config.NSForm)
)

// AnalyzeDecl analyses one top-level form of the namespace. Callers flatten
// top-level (do ...) forms with FlattenDecls first so that each declaration
// is committed before the next is analysed.
func (a *Analyzer) AnalyzeDecl(form reader.Form) (ast.Decl, error) {
	list, ok := form.(*reader.ListForm)
	if !ok || len(list.Forms) == 0 {
		return a.exprDecl(form)
	}

	if head, ok := list.Forms[0].(*reader.SymbolForm); ok {
		switch head.Sym {
		case defSym:
			return a.analyzeDef(list)
		case typeDeclSym:
			return a.analyzeTypeDecl(list)
		case defxSym:
			return a.analyzeDefx(list)
		case deftypeSym:
			return a.analyzeDeftype(list)
		case defmacroSym:
			return a.analyzeDefmacro(list)
		case nsFormSym:
			return nil, malformed(list.Loc, "ns must be the first form of a namespace")
		}
	}

	if m, ok := a.lookupHead(topScope(), list.Forms[0]).(*env.DefMacroVar); ok {
		expanded, err := a.expandMacro(m, list)
		if err != nil {
			return nil, err
		}
		a.macroDepth++
		defer func() { a.macroDepth-- }()
		return a.AnalyzeDecl(expanded)
	}

	return a.exprDecl(form)
}

func (a *Analyzer) exprDecl(form reader.Form) (ast.Decl, error) {
	expr, err := a.analyzeValue(topScope(), form)
	if err != nil {
		return nil, err
	}
	return &ast.ExprDecl{Expr: expr, Loc: form.Pos()}, nil
}

// declName checks a declared var name.
func declName(form reader.Form) (*symbols.Symbol, error) {
	s, ok := form.(*reader.SymbolForm)
	if !ok || s.Sym.IsKeyword() || s.Sym.Kind() != symbols.VarSym {
		return nil, malformed(form.Pos(), "expected a name, got %s", form)
	}
	return s.Sym, nil
}

// analyzeDef handles (def name expr) and (def (name params...) body...).
func (a *Analyzer) analyzeDef(list *reader.ListForm) (ast.Decl, error) {
	if len(list.Forms) < 3 {
		return nil, malformed(list.Loc, "def expects a name and a value")
	}

	var (
		name   *symbols.Symbol
		fnSig  *reader.ListForm
		params []ast.LocalVar
		err    error
	)
	switch target := list.Forms[1].(type) {
	case *reader.ListForm:
		if len(target.Forms) == 0 {
			return nil, malformed(target.Loc, "def expects (name params...)")
		}
		if name, err = declName(target.Forms[0]); err != nil {
			return nil, err
		}
		if params, err = a.analyzeParams(&reader.VectorForm{Forms: target.Forms[1:], Loc: target.Loc}); err != nil {
			return nil, err
		}
		fnSig = target
	default:
		if name, err = declName(target); err != nil {
			return nil, err
		}
		if len(list.Forms) != 3 {
			return nil, malformed(list.Loc, "def of a value expects exactly one expression")
		}
	}

	def := &ast.DefExpr{Sym: name, Loc: list.Loc}
	if _, ok := a.resolver.NSEnv.Get(name); !ok {
		def.Self = &env.DefVar{QSym: a.resolver.Qualify(name)}
		a.self = def.Self
		defer func() { a.self = nil }()
	}

	if fnSig != nil {
		def.Expr, err = a.buildFn(topScope(), name, params, list.Forms[2:], list.Loc)
	} else {
		def.Expr, err = a.analyzeValue(topScope(), list.Forms[2])
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}

// analyzeTypeDecl handles the (:: ...) forms: var signatures, record keys
// and variant tags.
func (a *Analyzer) analyzeTypeDecl(list *reader.ListForm) (ast.Decl, error) {
	if len(list.Forms) < 2 {
		return nil, malformed(list.Loc, ":: expects a name and a type")
	}
	b := a.newTypeBuilder()

	if s, ok := list.Forms[1].(*reader.SymbolForm); ok && s.Sym.IsKeyword() {
		switch s.Sym.Kind() {
		case symbols.RecordKeySym:
			if len(list.Forms) != 3 {
				return nil, malformed(list.Loc, "record key declaration expects exactly one type")
			}
			t, err := b.build(list.Forms[2])
			if err != nil {
				return nil, err
			}
			return &ast.RecordKeyDeclExpr{Sym: s.Sym, Type: t, Loc: list.Loc}, nil
		case symbols.VariantSym:
			params, err := b.buildAll(list.Forms[2:])
			if err != nil {
				return nil, err
			}
			return &ast.VariantKeyDeclExpr{Sym: s.Sym, ParamTypes: params, Loc: list.Loc}, nil
		}
		return nil, malformed(s.Loc, "cannot declare %s", s.Sym)
	}

	name, t, rest, err := a.signature(b, list)
	if err != nil {
		return nil, err
	}
	effects := typesystem.NewEffectSet()
	switch len(rest) {
	case 0:
	case 1:
		if effects, err = b.effectSet(rest[0]); err != nil {
			return nil, err
		}
	default:
		return nil, malformed(list.Loc, "unexpected forms after type of %s", name)
	}
	return &ast.VarDeclExpr{Sym: name, Type: typesystem.Type{Mono: t, Effects: effects}, Loc: list.Loc}, nil
}

// signature parses `name Type` or `(name Param...) Return` starting at
// list.Forms[1], returning the forms after the type.
func (a *Analyzer) signature(b *typeBuilder, list *reader.ListForm) (*symbols.Symbol, typesystem.MonoType, []reader.Form, error) {
	if len(list.Forms) < 3 {
		return nil, nil, nil, malformed(list.Loc, "%s expects a name and a type", list.Forms[0])
	}
	switch target := list.Forms[1].(type) {
	case *reader.ListForm:
		if len(target.Forms) == 0 {
			return nil, nil, nil, malformed(target.Loc, "expected (name params...)")
		}
		name, err := declName(target.Forms[0])
		if err != nil {
			return nil, nil, nil, err
		}
		params, err := b.buildAll(target.Forms[1:])
		if err != nil {
			return nil, nil, nil, err
		}
		ret, err := b.build(list.Forms[2])
		if err != nil {
			return nil, nil, nil, err
		}
		return name, &typesystem.FnType{Params: params, Return: ret}, list.Forms[3:], nil
	default:
		name, err := declName(target)
		if err != nil {
			return nil, nil, nil, err
		}
		t, err := b.build(list.Forms[2])
		if err != nil {
			return nil, nil, nil, err
		}
		return name, t, list.Forms[3:], nil
	}
}

// analyzeDefx handles (defx name Type) and (defx (name Param...) Return).
// The effect's own type carries the effect.
func (a *Analyzer) analyzeDefx(list *reader.ListForm) (ast.Decl, error) {
	b := a.newTypeBuilder()
	name, t, rest, err := a.signature(b, list)
	if err != nil {
		return nil, err
	}
	effects := typesystem.NewEffectSet(a.resolver.Qualify(name))
	if len(rest) == 1 {
		more, err := b.effectSet(rest[0])
		if err != nil {
			return nil, err
		}
		effects = effects.Union(more)
	} else if len(rest) > 1 {
		return nil, malformed(list.Loc, "unexpected forms after type of %s", name)
	}
	return &ast.VarDeclExpr{Sym: name, Type: typesystem.Type{Mono: t, Effects: effects}, IsEffect: true, Loc: list.Loc}, nil
}

// analyzeDeftype handles (deftype Name), (deftype Name Type) and
// (deftype (Name a...) Type). A forward declaration's alias is reused when
// the target is supplied later.
func (a *Analyzer) analyzeDeftype(list *reader.ListForm) (ast.Decl, error) {
	if len(list.Forms) < 2 || len(list.Forms) > 3 {
		return nil, malformed(list.Loc, "deftype expects a name and an optional type")
	}

	var (
		nameForm   reader.Form = list.Forms[1]
		paramForms []reader.Form
	)
	if l, ok := nameForm.(*reader.ListForm); ok {
		if len(l.Forms) == 0 {
			return nil, malformed(l.Loc, "deftype expects (Name params...)")
		}
		nameForm, paramForms = l.Forms[0], l.Forms[1:]
	}
	s, ok := nameForm.(*reader.SymbolForm)
	if !ok || s.Sym.Kind() != symbols.TypeAliasSym || typesystem.IsPrimName(s.Sym.Name()) {
		return nil, malformed(nameForm.Pos(), "expected a type name, got %s", nameForm)
	}
	paramSyms := make([]*symbols.Symbol, len(paramForms))
	for i, pf := range paramForms {
		ps, ok := pf.(*reader.SymbolForm)
		if !ok || ps.Sym.IsKeyword() || ps.Sym.Kind() != symbols.VarSym {
			return nil, malformed(pf.Pos(), "expected a type parameter, got %s", pf)
		}
		paramSyms[i] = ps.Sym
	}

	b := a.newTypeBuilder()
	var alias *typesystem.TypeAlias
	if v, ok := a.resolver.NSEnv.Get(s.Sym); ok {
		if av, ok := v.(*env.TypeAliasVar); ok && av.Alias.Target() == nil {
			if len(av.Alias.TypeVars) != len(paramSyms) {
				return nil, malformed(list.Loc, "type %s was declared with %d parameters, got %d",
					s.Sym, len(av.Alias.TypeVars), len(paramSyms))
			}
			alias = av.Alias
		} else if ok {
			return nil, malformed(list.Loc, "type %s is already defined", s.Sym)
		}
	}
	if alias == nil {
		tvs := make([]typesystem.TypeVar, len(paramSyms))
		for i := range paramSyms {
			tvs[i] = typesystem.NewTypeVar()
		}
		alias = typesystem.NewTypeAlias(a.resolver.Qualify(s.Sym), tvs)
	}
	for i, ps := range paramSyms {
		b.tvs[ps] = alias.TypeVars[i]
	}
	b.alias = alias

	decl := &ast.TypeAliasDeclExpr{Sym: s.Sym, Alias: alias, Loc: list.Loc}
	if len(list.Forms) == 3 {
		t, err := b.build(list.Forms[2])
		if err != nil {
			return nil, err
		}
		decl.Type = t
	}
	return decl, nil
}

// analyzeDefmacro handles (defmacro (name params...) body...).
func (a *Analyzer) analyzeDefmacro(list *reader.ListForm) (ast.Decl, error) {
	if len(list.Forms) < 3 {
		return nil, malformed(list.Loc, "defmacro expects (name params...) and a body")
	}
	sig, ok := list.Forms[1].(*reader.ListForm)
	if !ok || len(sig.Forms) == 0 {
		return nil, malformed(list.Forms[1].Pos(), "defmacro expects (name params...)")
	}
	name, err := declName(sig.Forms[0])
	if err != nil {
		return nil, err
	}
	params, err := a.analyzeParams(&reader.VectorForm{Forms: sig.Forms[1:], Loc: sig.Loc})
	if err != nil {
		return nil, err
	}
	fn, err := a.buildFn(topScope(), name, params, list.Forms[2:], list.Loc)
	if err != nil {
		return nil, err
	}
	return &ast.DefMacroExpr{Sym: name, Fn: fn, Loc: list.Loc}, nil
}
