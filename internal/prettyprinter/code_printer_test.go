package prettyprinter

import (
	"testing"

	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/symbols"
)

func TestPrintNumbersLocals(t *testing.T) {
	build := func() ast.ValueExpr {
		x1 := ast.NewLocalVar(symbols.Intern("x"))
		x2 := ast.NewLocalVar(symbols.Intern("x"))
		return &ast.LetExpr{
			Bindings: []ast.Binding{
				{Local: x1, Expr: &ast.IntExpr{Value: 1}},
				{Local: x2, Expr: &ast.VectorExpr{Exprs: []ast.ValueExpr{&ast.LocalVarExpr{Local: x1}}}},
			},
			Body: &ast.LocalVarExpr{Local: x2},
		}
	}

	first, second := Print(build()), Print(build())
	if first != second {
		t.Errorf("expected identical output, got %q and %q", first, second)
	}
	want := "(let [x#1 1 x#2 [x#1]] x#2)"
	if first != want {
		t.Errorf("Print() = %q, want %q", first, want)
	}
}

func TestPrintEffects(t *testing.T) {
	fn := (&ast.FnExpr{
		Params: []ast.LocalVar{ast.NewLocalVar(symbols.Intern("a"))},
		Body:   &ast.StringExpr{Value: "hi"},
	}).WithFxLocal()

	got := Print(fn)
	want := `(fn [^_fx a#1] "hi")`
	if got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}
