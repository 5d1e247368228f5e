package analyzer

import (
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/config"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
)

var (
	ifSym     = symbols.Intern(config.IfForm)
	fnSym     = symbols.Intern(config.FnForm)
	letSym    = symbols.Intern(config.LetForm)
	caseSym   = symbols.Intern(config.CaseForm)
	loopSym   = symbols.Intern(config.LoopForm)
	recurSym  = symbols.Intern(config.RecurForm)
	withFxSym = symbols.Intern(config.WithFxForm)
	defSym    = symbols.Intern(config.DefForm)
	fxSym     = symbols.Intern(config.EffectLocalName)
)

func malformed(pos token.Position, format string, args ...any) error {
	return diagnostics.NewError(diagnostics.ErrMalformedSpecialForm, pos, format, args...)
}

func (a *Analyzer) analyzeValue(sc scope, form reader.Form) (ast.ValueExpr, error) {
	switch f := form.(type) {
	case *reader.BoolForm:
		return &ast.BoolExpr{Value: f.Value, Loc: f.Loc}, nil
	case *reader.StringForm:
		return &ast.StringExpr{Value: f.Value, Loc: f.Loc}, nil
	case *reader.IntForm:
		return &ast.IntExpr{Value: f.Value, Loc: f.Loc}, nil
	case *reader.BigIntForm:
		return &ast.BigIntExpr{Value: f.Value, Loc: f.Loc}, nil
	case *reader.FloatForm:
		return &ast.FloatExpr{Value: f.Value, Loc: f.Loc}, nil
	case *reader.BigFloatForm:
		return &ast.BigFloatExpr{Value: f.Value, Loc: f.Loc}, nil
	case *reader.SymbolForm:
		return a.analyzeSymbol(sc, f)
	case *reader.QSymbolForm:
		v, err := a.resolver.ResolveQ(f.Sym, f.Loc)
		if err != nil {
			return nil, err
		}
		return globalValue(v, f.Loc)
	case *reader.VectorForm:
		exprs, err := a.analyzeAll(sc.nonTail(), f.Forms)
		if err != nil {
			return nil, err
		}
		return &ast.VectorExpr{Exprs: exprs, Loc: f.Loc}, nil
	case *reader.SetForm:
		exprs, err := a.analyzeAll(sc.nonTail(), f.Forms)
		if err != nil {
			return nil, err
		}
		return &ast.SetExpr{Exprs: exprs, Loc: f.Loc}, nil
	case *reader.RecordForm:
		return a.analyzeRecord(sc.nonTail(), f)
	case *reader.QuoteForm:
		return a.analyzeQuote(f)
	case *reader.ListForm:
		return a.analyzeList(sc, f)
	}
	return nil, malformed(form.Pos(), "unexpected form %s", form)
}

func (a *Analyzer) analyzeAll(sc scope, forms []reader.Form) ([]ast.ValueExpr, error) {
	exprs := make([]ast.ValueExpr, 0, len(forms))
	for _, f := range forms {
		e, err := a.analyzeValue(sc, f)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

// resolveGlobal resolves a bare symbol that is not a local.
func (a *Analyzer) resolveGlobal(sym *symbols.Symbol, pos token.Position) (env.GlobalVar, error) {
	if v, ok := a.resolver.NSEnv.Get(sym); ok {
		return v, nil
	}
	if a.self != nil && a.self.QSym.Base == sym {
		return a.self, nil
	}
	return a.resolver.Resolve(sym, pos)
}

func (a *Analyzer) analyzeSymbol(sc scope, f *reader.SymbolForm) (ast.ValueExpr, error) {
	if !f.Sym.IsKeyword() {
		if lv, ok := sc.local(f.Sym); ok {
			return &ast.LocalVarExpr{Local: lv, Loc: f.Loc}, nil
		}
	}
	v, err := a.resolveGlobal(f.Sym, f.Loc)
	if err != nil {
		return nil, err
	}
	return globalValue(v, f.Loc)
}

func globalValue(v env.GlobalVar, pos token.Position) (ast.ValueExpr, error) {
	switch v.(type) {
	case *env.TypeAliasVar:
		return nil, malformed(pos, "type alias %s used as a value", v.Sym())
	case *env.DefMacroVar:
		return nil, malformed(pos, "macro %s used as a value", v.Sym())
	}
	return &ast.GlobalVarExpr{Var: v, Loc: pos}, nil
}

// lookupHead resolves the head of a list when it names a global, so that
// macros can be recognised before their arguments are analysed.
func (a *Analyzer) lookupHead(sc scope, head reader.Form) env.GlobalVar {
	var (
		v   env.GlobalVar
		err error
	)
	switch h := head.(type) {
	case *reader.SymbolForm:
		if _, ok := sc.local(h.Sym); ok && !h.Sym.IsKeyword() {
			return nil
		}
		v, err = a.resolveGlobal(h.Sym, h.Loc)
	case *reader.QSymbolForm:
		v, err = a.resolver.ResolveQ(h.Sym, h.Loc)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return v
}

func (a *Analyzer) analyzeList(sc scope, f *reader.ListForm) (ast.ValueExpr, error) {
	if len(f.Forms) == 0 {
		return nil, malformed(f.Loc, "cannot evaluate an empty list")
	}

	if head, ok := f.Forms[0].(*reader.SymbolForm); ok {
		switch head.Sym {
		case ifSym:
			return a.analyzeIf(sc, f)
		case doSym:
			if len(f.Forms) < 2 {
				return nil, malformed(f.Loc, "do requires at least one expression")
			}
			return a.analyzeBody(sc, f.Forms[1:], f.Loc)
		case letSym:
			return a.analyzeLet(sc, f)
		case loopSym:
			return a.analyzeLoop(sc, f)
		case recurSym:
			return a.analyzeRecur(sc, f)
		case fnSym:
			return a.analyzeFn(sc, f)
		case caseSym:
			return a.analyzeCase(sc, f)
		case withFxSym:
			return a.analyzeWithFx(sc, f)
		}
	}

	if m, ok := a.lookupHead(sc, f.Forms[0]).(*env.DefMacroVar); ok {
		expanded, err := a.expandMacro(m, f)
		if err != nil {
			return nil, err
		}
		a.macroDepth++
		defer func() { a.macroDepth-- }()
		return a.analyzeValue(sc, expanded)
	}

	return a.analyzeCall(sc, f)
}

// expandMacro invokes a macro on the unanalysed argument forms.
func (a *Analyzer) expandMacro(m *env.DefMacroVar, f *reader.ListForm) (reader.Form, error) {
	if a.macroDepth >= a.maxMacroDepth {
		return nil, diagnostics.NewError(diagnostics.ErrMacroExpansion, f.Loc,
			"macro expansion of %s exceeded depth %d", m.QSym, a.maxMacroDepth)
	}
	if m.Value == nil {
		return nil, diagnostics.NewError(diagnostics.ErrMacroExpansion, f.Loc, "macro %s has no value", m.QSym)
	}
	a.logger.Debug("expanding macro", "macro", m.QSym.String(), "pos", f.Loc.String(), "depth", a.macroDepth)
	out, err := m.Value(f.Forms[1:])
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.ErrMacroExpansion, f.Loc, err, "expanding %s", m.QSym)
	}
	if out == nil {
		return nil, diagnostics.NewError(diagnostics.ErrMacroExpansion, f.Loc, "macro %s returned no form", m.QSym)
	}
	return out, nil
}

func (a *Analyzer) analyzeCall(sc scope, f *reader.ListForm) (ast.ValueExpr, error) {
	inner := sc.nonTail()
	fn, err := a.analyzeValue(inner, f.Forms[0])
	if err != nil {
		return nil, err
	}
	args, err := a.analyzeAll(inner, f.Forms[1:])
	if err != nil {
		return nil, err
	}
	call := &ast.CallExpr{Fn: fn, Args: args, Loc: f.Loc}
	if g, ok := fn.(*ast.GlobalVarExpr); ok && a.takesEffects(g.Var) {
		call.EffectArg = &ast.LocalVarExpr{Local: sc.fx, Loc: f.Loc}
	}
	return call, nil
}

// takesEffects reports whether calls to v pass the effect capability. The
// definition under analysis has no type yet and always receives it.
func (a *Analyzer) takesEffects(v env.GlobalVar) bool {
	if a.self != nil && v == env.GlobalVar(a.self) {
		return true
	}
	return len(v.Type().Effects) > 0
}

// analyzeBody analyses an implicit do.
func (a *Analyzer) analyzeBody(sc scope, forms []reader.Form, pos token.Position) (ast.ValueExpr, error) {
	if len(forms) == 0 {
		return nil, malformed(pos, "expected at least one body expression")
	}
	if len(forms) == 1 {
		return a.analyzeValue(sc, forms[0])
	}
	exprs, err := a.analyzeAll(sc.nonTail(), forms[:len(forms)-1])
	if err != nil {
		return nil, err
	}
	last, err := a.analyzeValue(sc, forms[len(forms)-1])
	if err != nil {
		return nil, err
	}
	return &ast.DoExpr{Exprs: exprs, Expr: last, Loc: pos}, nil
}

func (a *Analyzer) analyzeIf(sc scope, f *reader.ListForm) (ast.ValueExpr, error) {
	if len(f.Forms) != 4 {
		return nil, malformed(f.Loc, "if expects a predicate, a then branch and an else branch, got %d forms", len(f.Forms)-1)
	}
	pred, err := a.analyzeValue(sc.nonTail(), f.Forms[1])
	if err != nil {
		return nil, err
	}
	then, err := a.analyzeValue(sc, f.Forms[2])
	if err != nil {
		return nil, err
	}
	els, err := a.analyzeValue(sc, f.Forms[3])
	if err != nil {
		return nil, err
	}
	return &ast.IfExpr{Pred: pred, Then: then, Else: els, Loc: f.Loc}, nil
}

// bindingSym checks that form can name a local.
func bindingSym(form reader.Form) (*symbols.Symbol, error) {
	s, ok := form.(*reader.SymbolForm)
	if !ok || s.Sym.IsKeyword() || s.Sym.Kind() != symbols.VarSym {
		return nil, malformed(form.Pos(), "expected a local name, got %s", form)
	}
	return s.Sym, nil
}

// analyzeBindings analyses `[name expr ...]`; each expression sees the
// names bound before it but not its own.
func (a *Analyzer) analyzeBindings(sc scope, form reader.Form, what string) ([]ast.Binding, scope, error) {
	vec, ok := form.(*reader.VectorForm)
	if !ok || len(vec.Forms)%2 != 0 {
		return nil, sc, malformed(form.Pos(), "%s expects a vector of name/expression pairs", what)
	}
	bindings := make([]ast.Binding, 0, len(vec.Forms)/2)
	inner := sc
	for i := 0; i < len(vec.Forms); i += 2 {
		sym, err := bindingSym(vec.Forms[i])
		if err != nil {
			return nil, sc, err
		}
		expr, err := a.analyzeValue(inner.nonTail(), vec.Forms[i+1])
		if err != nil {
			return nil, sc, err
		}
		lv := ast.NewLocalVar(sym)
		bindings = append(bindings, ast.Binding{Local: lv, Expr: expr})
		inner = inner.bind(lv)
	}
	return bindings, inner, nil
}

func (a *Analyzer) analyzeLet(sc scope, f *reader.ListForm) (ast.ValueExpr, error) {
	if len(f.Forms) < 3 {
		return nil, malformed(f.Loc, "let expects bindings and a body")
	}
	bindings, inner, err := a.analyzeBindings(sc, f.Forms[1], "let")
	if err != nil {
		return nil, err
	}
	body, err := a.analyzeBody(inner, f.Forms[2:], f.Loc)
	if err != nil {
		return nil, err
	}
	return &ast.LetExpr{Bindings: bindings, Body: body, Loc: f.Loc}, nil
}

func (a *Analyzer) analyzeLoop(sc scope, f *reader.ListForm) (ast.ValueExpr, error) {
	if len(f.Forms) < 3 {
		return nil, malformed(f.Loc, "loop expects bindings and a body")
	}
	bindings, inner, err := a.analyzeBindings(sc, f.Forms[1], "loop")
	if err != nil {
		return nil, err
	}
	locals := make([]ast.LocalVar, len(bindings))
	for i, b := range bindings {
		locals[i] = b.Local
	}
	body, err := a.analyzeBody(inner.withLoop(locals), f.Forms[2:], f.Loc)
	if err != nil {
		return nil, err
	}
	return &ast.LoopExpr{Bindings: bindings, Body: body, Loc: f.Loc}, nil
}

func (a *Analyzer) analyzeRecur(sc scope, f *reader.ListForm) (ast.ValueExpr, error) {
	if !sc.hasLoop {
		return nil, diagnostics.NewError(diagnostics.ErrRecurOutsideLoop, f.Loc, "recur must be in tail position of a loop or fn")
	}
	args := f.Forms[1:]
	if len(args) != len(sc.loop) {
		return nil, diagnostics.NewError(diagnostics.ErrRecurArityMismatch, f.Loc,
			"recur expects %d arguments, got %d", len(sc.loop), len(args))
	}
	exprs, err := a.analyzeAll(sc.nonTail(), args)
	if err != nil {
		return nil, err
	}
	bindings := make([]ast.Binding, len(exprs))
	for i, e := range exprs {
		bindings[i] = ast.Binding{Local: sc.loop[i], Expr: e}
	}
	return &ast.RecurExpr{Bindings: bindings, Loc: f.Loc}, nil
}

func (a *Analyzer) analyzeParams(form reader.Form) ([]ast.LocalVar, error) {
	var forms []reader.Form
	switch p := form.(type) {
	case *reader.VectorForm:
		forms = p.Forms
	case *reader.ListForm:
		forms = p.Forms
	default:
		return nil, malformed(form.Pos(), "expected a parameter vector, got %s", form)
	}
	params := make([]ast.LocalVar, 0, len(forms))
	for _, pf := range forms {
		sym, err := bindingSym(pf)
		if err != nil {
			return nil, err
		}
		params = append(params, ast.NewLocalVar(sym))
	}
	return params, nil
}

// buildFn analyses a function body over params. Captures are computed
// from the finished body.
func (a *Analyzer) buildFn(sc scope, name *symbols.Symbol, params []ast.LocalVar, body []reader.Form, pos token.Position) (*ast.FnExpr, error) {
	inner := sc.bind(params...).withLoop(params)
	expr, err := a.analyzeBody(inner, body, pos)
	if err != nil {
		return nil, err
	}
	fn := &ast.FnExpr{Name: name, Params: params, Body: expr, Loc: pos}
	fn.Captures = ast.FreeLocals(fn)
	return fn, nil
}

// analyzeFn handles (fn name? [params] body...).
func (a *Analyzer) analyzeFn(sc scope, f *reader.ListForm) (ast.ValueExpr, error) {
	rest := f.Forms[1:]
	var name *symbols.Symbol
	if len(rest) > 0 {
		if s, ok := rest[0].(*reader.SymbolForm); ok {
			sym, err := bindingSym(s)
			if err != nil {
				return nil, err
			}
			name = sym
			rest = rest[1:]
		}
	}
	if len(rest) < 2 {
		return nil, malformed(f.Loc, "fn expects a parameter vector and a body")
	}
	if _, ok := rest[0].(*reader.VectorForm); !ok {
		return nil, malformed(rest[0].Pos(), "fn parameters must be a vector")
	}
	params, err := a.analyzeParams(rest[0])
	if err != nil {
		return nil, err
	}
	if name == nil {
		return a.buildFn(sc, nil, params, rest[1:], f.Loc)
	}
	self := ast.NewLocalVar(name)
	fn, err := a.buildFn(sc.bind(self), name, params, rest[1:], f.Loc)
	if err != nil {
		return nil, err
	}
	fn.Self = &self
	fn.Captures = ast.FreeLocals(fn)
	return fn, nil
}

func (a *Analyzer) variantKeyVar(form reader.Form) (*env.VariantKeyVar, error) {
	var (
		v   env.GlobalVar
		err error
	)
	switch k := form.(type) {
	case *reader.SymbolForm:
		if k.Sym.Kind() != symbols.VariantSym {
			return nil, malformed(form.Pos(), "expected a variant tag, got %s", form)
		}
		v, err = a.resolveGlobal(k.Sym, k.Loc)
	case *reader.QSymbolForm:
		if k.Sym.Kind() != symbols.VariantSym {
			return nil, malformed(form.Pos(), "expected a variant tag, got %s", form)
		}
		v, err = a.resolver.ResolveQ(k.Sym, k.Loc)
	default:
		return nil, malformed(form.Pos(), "expected a variant tag, got %s", form)
	}
	if err != nil {
		return nil, err
	}
	kv, ok := v.(*env.VariantKeyVar)
	if !ok {
		return nil, malformed(form.Pos(), "%s is not a variant tag", v.Sym())
	}
	return kv, nil
}

// analyzeCase handles (case expr clause-head body ... default?).
func (a *Analyzer) analyzeCase(sc scope, f *reader.ListForm) (ast.ValueExpr, error) {
	if len(f.Forms) < 3 {
		return nil, malformed(f.Loc, "case expects an expression and at least one clause")
	}
	expr, err := a.analyzeValue(sc.nonTail(), f.Forms[1])
	if err != nil {
		return nil, err
	}

	forms := f.Forms[2:]
	var defaultForm reader.Form
	if len(forms)%2 == 1 {
		defaultForm = forms[len(forms)-1]
		forms = forms[:len(forms)-1]
	}

	ce := &ast.CaseExpr{Expr: expr, Loc: f.Loc}
	seen := map[*env.VariantKeyVar]bool{}
	for i := 0; i < len(forms); i += 2 {
		head := forms[i]
		var bindForms []reader.Form
		if l, ok := head.(*reader.ListForm); ok {
			if len(l.Forms) == 0 {
				return nil, malformed(l.Loc, "empty case clause")
			}
			head, bindForms = l.Forms[0], l.Forms[1:]
		}
		kv, err := a.variantKeyVar(head)
		if err != nil {
			return nil, err
		}
		if seen[kv] {
			return nil, malformed(head.Pos(), "duplicate case clause for %s", kv.Key.Sym)
		}
		seen[kv] = true
		if len(bindForms) != len(kv.Key.ParamTypes) {
			return nil, malformed(forms[i].Pos(), "%s takes %d bindings, got %d",
				kv.Key.Sym, len(kv.Key.ParamTypes), len(bindForms))
		}
		bindings := make([]ast.LocalVar, len(bindForms))
		for j, bf := range bindForms {
			sym, err := bindingSym(bf)
			if err != nil {
				return nil, err
			}
			bindings[j] = ast.NewLocalVar(sym)
		}
		body, err := a.analyzeValue(sc.bind(bindings...), forms[i+1])
		if err != nil {
			return nil, err
		}
		ce.Clauses = append(ce.Clauses, ast.CaseClause{Key: kv.Key, Bindings: bindings, Body: body})
	}

	if defaultForm != nil {
		if ce.Default, err = a.analyzeValue(sc, defaultForm); err != nil {
			return nil, err
		}
	}
	return ce, nil
}

// analyzeWithFx handles (with-fx [(def (effect params...) body...) ...] body...).
func (a *Analyzer) analyzeWithFx(sc scope, f *reader.ListForm) (ast.ValueExpr, error) {
	if len(f.Forms) < 3 {
		return nil, malformed(f.Loc, "with-fx expects a vector of effect definitions and a body")
	}
	vec, ok := f.Forms[1].(*reader.VectorForm)
	if !ok {
		return nil, malformed(f.Forms[1].Pos(), "with-fx expects a vector of effect definitions")
	}

	wf := &ast.WithFxExpr{OldFx: sc.fx, NewFx: ast.NewLocalVar(fxSym), Loc: f.Loc}
	seen := map[*env.EffectVar]bool{}
	for _, df := range vec.Forms {
		def, ok := df.(*reader.ListForm)
		if !ok || len(def.Forms) < 3 || !headIs(def, defSym) {
			return nil, malformed(df.Pos(), "expected (def (effect params...) body...)")
		}
		sig, ok := def.Forms[1].(*reader.ListForm)
		if !ok || len(sig.Forms) == 0 {
			return nil, malformed(def.Forms[1].Pos(), "expected (effect params...)")
		}
		nameForm, ok := sig.Forms[0].(*reader.SymbolForm)
		if !ok {
			return nil, malformed(sig.Forms[0].Pos(), "expected an effect name, got %s", sig.Forms[0])
		}
		v, err := a.resolveGlobal(nameForm.Sym, nameForm.Loc)
		if err != nil {
			return nil, err
		}
		ev, ok := v.(*env.EffectVar)
		if !ok {
			return nil, malformed(nameForm.Loc, "%s is not an effect", v.Sym())
		}
		if seen[ev] {
			return nil, malformed(nameForm.Loc, "effect %s handled twice", ev.QSym)
		}
		seen[ev] = true

		params := make([]ast.LocalVar, 0, len(sig.Forms)-1)
		for _, pf := range sig.Forms[1:] {
			sym, err := bindingSym(pf)
			if err != nil {
				return nil, err
			}
			params = append(params, ast.NewLocalVar(sym))
		}
		fn, err := a.buildFn(sc, nameForm.Sym, params, def.Forms[2:], def.Loc)
		if err != nil {
			return nil, err
		}
		wf.Fx = append(wf.Fx, ast.EffectDef{Var: ev, Fn: fn})
	}

	body, err := a.analyzeBody(sc.withFx(wf.NewFx), f.Forms[2:], f.Loc)
	if err != nil {
		return nil, err
	}
	wf.Body = body
	return wf, nil
}

// analyzeRecord handles {:key expr ...}. A repeated key keeps its last
// expression, placed where the last occurrence appears.
func (a *Analyzer) analyzeRecord(sc scope, f *reader.RecordForm) (ast.ValueExpr, error) {
	if len(f.Forms)%2 != 0 {
		return nil, malformed(f.Loc, "record literal needs an even number of forms")
	}
	var entries []ast.RecordEntry
	for i := 0; i < len(f.Forms); i += 2 {
		kv, err := a.recordKeyVar(f.Forms[i])
		if err != nil {
			return nil, err
		}
		expr, err := a.analyzeValue(sc, f.Forms[i+1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.RecordEntry{Key: kv.Key, Expr: expr})
	}
	return &ast.RecordExpr{Entries: entries, Loc: f.Loc}, nil
}

func (a *Analyzer) recordKeyVar(form reader.Form) (*env.RecordKeyVar, error) {
	var (
		v   env.GlobalVar
		err error
	)
	switch k := form.(type) {
	case *reader.SymbolForm:
		if k.Sym.Kind() != symbols.RecordKeySym {
			return nil, malformed(form.Pos(), "expected a record key, got %s", form)
		}
		v, err = a.resolveGlobal(k.Sym, k.Loc)
	case *reader.QSymbolForm:
		if k.Sym.Kind() != symbols.RecordKeySym {
			return nil, malformed(form.Pos(), "expected a record key, got %s", form)
		}
		v, err = a.resolver.ResolveQ(k.Sym, k.Loc)
	default:
		return nil, malformed(form.Pos(), "expected a record key, got %s", form)
	}
	if err != nil {
		return nil, err
	}
	kv, ok := v.(*env.RecordKeyVar)
	if !ok {
		return nil, malformed(form.Pos(), "%s is not a record key", v.Sym())
	}
	return kv, nil
}
