package analyzer

import (
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/typesystem"
)

var (
	userNS  = symbols.Intern("user")
	otherNS = symbols.Intern("other")
	ifForm  = &reader.SymbolForm{Sym: symbols.Intern("if")}
)

func fnType(ret typesystem.MonoType, params ...typesystem.MonoType) typesystem.Type {
	return typesystem.Type{Mono: &typesystem.FnType{Params: params, Return: ret}}
}

// testCore is a minimal core namespace: arithmetic, a swapping macro and a
// macro that never stops expanding.
func testCore() *env.NSEnv {
	q := func(name string) *symbols.QSymbol { return symbols.Qualify(coreNS, symbols.Intern(name)) }
	core := env.NewNSEnv(coreNS, nil)
	core = core.Declare(&env.DefVar{QSym: q("+"), T: fnType(typesystem.IntType, typesystem.IntType, typesystem.IntType), Defined: true})
	core = core.Declare(&env.DefVar{QSym: q("inc"), T: fnType(typesystem.IntType, typesystem.IntType), Defined: true})
	core = core.Declare(&env.DefVar{QSym: q("str"), T: fnType(typesystem.StrType, typesystem.IntType), Defined: true})
	core = core.Declare(&env.DefMacroVar{QSym: q("unless"), Value: func(args []reader.Form) (reader.Form, error) {
		if len(args) != 3 {
			return nil, errors.New("unless takes 3 forms")
		}
		return &reader.ListForm{Forms: []reader.Form{ifForm, args[0], args[2], args[1]}, Loc: args[0].Pos()}, nil
	}})
	core = core.Declare(&env.DefMacroVar{QSym: q("forever"), Value: func(args []reader.Form) (reader.Form, error) {
		return &reader.ListForm{Forms: []reader.Form{&reader.SymbolForm{Sym: symbols.Intern("forever")}}}, nil
	}})
	return core
}

// testNS analyses source into the user namespace, committing each
// declaration into the namespace environment the way the evaluator does,
// minus runtime values.
type testNS struct {
	t *testing.T
	a *Analyzer
}

func newTestNS(t *testing.T, header string, opts ...Option) *testNS {
	t.Helper()
	rt := env.NewRuntimeEnv().Merge(testCore())

	other := env.NewNSEnv(otherNS, nil)
	other = other.Declare(&env.DefVar{QSym: symbols.Qualify(otherNS, symbols.Intern("helper")), T: typesystem.Type{Mono: typesystem.IntType}, Defined: true})
	rt = rt.Merge(other)

	var h *env.NSHeader
	if header != "" {
		forms, err := reader.ReadString(header, "header.brj")
		if err != nil {
			t.Fatalf("reading header: %v", err)
		}
		if h, err = env.ParseHeader(forms[0]); err != nil {
			t.Fatalf("parsing header: %v", err)
		}
	}
	return &testNS{t: t, a: New(rt, env.NewNSEnv(userNS, h), opts...)}
}

// eval analyses, types and commits every form of src, returning the typed
// declarations.
func (n *testNS) eval(src string) ([]ast.Decl, error) {
	n.t.Helper()
	forms, err := reader.ReadString(src, "test.brj")
	if err != nil {
		n.t.Fatalf("reading %q: %v", src, err)
	}
	var out []ast.Decl
	for _, form := range FlattenDecls(forms) {
		decl, err := n.a.AnalyzeDecl(form)
		if err != nil {
			return out, err
		}
		if decl, err = n.a.Infer(decl); err != nil {
			return out, err
		}
		n.commit(decl)
		out = append(out, decl)
	}
	return out, nil
}

func (n *testNS) mustEval(src string) []ast.Decl {
	n.t.Helper()
	decls, err := n.eval(src)
	if err != nil {
		n.t.Fatalf("unexpected error: %v\ninput: %s", err, src)
	}
	return decls
}

func (n *testNS) lastExpr(src string) *ast.ExprDecl {
	n.t.Helper()
	decls := n.mustEval(src)
	d, ok := decls[len(decls)-1].(*ast.ExprDecl)
	if !ok {
		n.t.Fatalf("expected an expression, got %T", decls[len(decls)-1])
	}
	return d
}

func (n *testNS) commit(decl ast.Decl) {
	nsEnv := n.a.NSEnv()
	q := func(s *symbols.Symbol) *symbols.QSymbol { return symbols.Qualify(userNS, s) }
	switch d := decl.(type) {
	case *ast.DefExpr:
		if _, ok := nsEnv.Get(d.Sym); ok {
			if _, isEffect := mustGet(nsEnv, d.Sym).(*env.EffectVar); isEffect {
				return
			}
		}
		nsEnv = nsEnv.Declare(&env.DefVar{QSym: q(d.Sym), T: d.Type, Defined: true})
	case *ast.VarDeclExpr:
		if d.IsEffect {
			nsEnv = nsEnv.Declare(&env.EffectVar{QSym: q(d.Sym), T: d.Type})
		} else {
			nsEnv = nsEnv.Declare(&env.DefVar{QSym: q(d.Sym), T: d.Type})
		}
	case *ast.TypeAliasDeclExpr:
		if d.Type != nil {
			if err := d.Alias.SetTarget(d.Type); err != nil {
				n.t.Fatalf("setting alias target: %v", err)
			}
		}
		nsEnv = nsEnv.Declare(&env.TypeAliasVar{Alias: d.Alias})
	case *ast.RecordKeyDeclExpr:
		nsEnv = nsEnv.Declare(&env.RecordKeyVar{Key: typesystem.NewRecordKey(q(d.Sym), d.Type)})
	case *ast.VariantKeyDeclExpr:
		nsEnv = nsEnv.Declare(&env.VariantKeyVar{Key: typesystem.NewVariantKey(q(d.Sym), d.ParamTypes)})
	case *ast.DefMacroExpr:
		nsEnv = nsEnv.Declare(&env.DefMacroVar{QSym: q(d.Sym), T: d.Type})
	}
	n.a.SetNSEnv(nsEnv)
}

func mustGet(nsEnv *env.NSEnv, sym *symbols.Symbol) env.GlobalVar {
	v, _ := nsEnv.Get(sym)
	return v
}

// expectAnalyzerError asserts that processing input fails with code.
func expectAnalyzerError(t *testing.T, input string, code diagnostics.ErrorCode) error {
	t.Helper()
	_, err := newTestNS(t, "").eval(input)
	if err == nil {
		t.Fatalf("expected error %s, but got none\ninput: %s", code, input)
	}
	if !diagnostics.HasCode(err, code) {
		t.Fatalf("expected error %s, got: %v\ninput: %s", code, err, input)
	}
	return err
}

// expectAnalyzerErrorContains asserts an error with the given code whose message contains substr.
func expectAnalyzerErrorContains(t *testing.T, input string, code diagnostics.ErrorCode, substr string) {
	t.Helper()
	e := expectAnalyzerError(t, input, code)
	if !strings.Contains(e.Error(), substr) {
		t.Errorf("expected error message to contain %q, got: %s", substr, e.Error())
	}
}
