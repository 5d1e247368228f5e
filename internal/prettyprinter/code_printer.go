// Package prettyprinter renders analysed expressions back as source-like
// text. Locals are numbered in the order they are first seen, so trees
// that differ only in local identities print identically.
package prettyprinter

import (
	"bytes"
	"strconv"

	"github.com/funvibe/bridje/internal/ast"
)

type CodePrinter struct {
	buf    bytes.Buffer
	locals map[ast.LocalVar]int
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{locals: map[ast.LocalVar]int{}}
}

// Print renders expr.
func Print(expr ast.ValueExpr) string {
	p := NewCodePrinter()
	expr.Accept(p)
	return p.String()
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *CodePrinter) local(lv ast.LocalVar) {
	if lv == ast.DefaultEffectLocal {
		p.write(lv.Sym.String())
		return
	}
	n, ok := p.locals[lv]
	if !ok {
		n = len(p.locals) + 1
		p.locals[lv] = n
	}
	p.write(lv.Sym.String())
	p.write("#")
	p.write(strconv.Itoa(n))
}

func (p *CodePrinter) exprs(exprs []ast.ValueExpr) {
	for i, e := range exprs {
		if i > 0 {
			p.write(" ")
		}
		e.Accept(p)
	}
}

func (p *CodePrinter) bindings(bs []ast.Binding) {
	p.write("[")
	for i, b := range bs {
		if i > 0 {
			p.write(" ")
		}
		p.local(b.Local)
		p.write(" ")
		b.Expr.Accept(p)
	}
	p.write("]")
}

func (p *CodePrinter) VisitBoolExpr(e *ast.BoolExpr) { p.write(strconv.FormatBool(e.Value)) }

func (p *CodePrinter) VisitStringExpr(e *ast.StringExpr) { p.write(strconv.Quote(e.Value)) }

func (p *CodePrinter) VisitIntExpr(e *ast.IntExpr) { p.write(strconv.FormatInt(e.Value, 10)) }

func (p *CodePrinter) VisitBigIntExpr(e *ast.BigIntExpr) { p.write(e.Value.String() + "N") }

func (p *CodePrinter) VisitFloatExpr(e *ast.FloatExpr) {
	p.write(strconv.FormatFloat(e.Value, 'g', -1, 64))
}

func (p *CodePrinter) VisitBigFloatExpr(e *ast.BigFloatExpr) { p.write(e.Value.Text('g', -1) + "M") }

func (p *CodePrinter) VisitQuotedSymbolExpr(e *ast.QuotedSymbolExpr) { p.write("'" + e.Sym.String()) }

func (p *CodePrinter) VisitQuotedQSymbolExpr(e *ast.QuotedQSymbolExpr) {
	p.write("'" + e.Sym.String())
}

func (p *CodePrinter) VisitVectorExpr(e *ast.VectorExpr) {
	p.write("[")
	p.exprs(e.Exprs)
	p.write("]")
}

func (p *CodePrinter) VisitSetExpr(e *ast.SetExpr) {
	p.write("#{")
	p.exprs(e.Exprs)
	p.write("}")
}

func (p *CodePrinter) VisitRecordExpr(e *ast.RecordExpr) {
	p.write("{")
	for i, entry := range e.Entries {
		if i > 0 {
			p.write(" ")
		}
		p.write(entry.Key.Sym.String())
		p.write(" ")
		entry.Expr.Accept(p)
	}
	p.write("}")
}

func (p *CodePrinter) VisitIfExpr(e *ast.IfExpr) {
	p.write("(if ")
	p.exprs([]ast.ValueExpr{e.Pred, e.Then, e.Else})
	p.write(")")
}

func (p *CodePrinter) VisitDoExpr(e *ast.DoExpr) {
	p.write("(do ")
	p.exprs(e.Exprs)
	p.write(" ")
	e.Expr.Accept(p)
	p.write(")")
}

func (p *CodePrinter) VisitLetExpr(e *ast.LetExpr) {
	p.write("(let ")
	p.bindings(e.Bindings)
	p.write(" ")
	e.Body.Accept(p)
	p.write(")")
}

func (p *CodePrinter) VisitLoopExpr(e *ast.LoopExpr) {
	p.write("(loop ")
	p.bindings(e.Bindings)
	p.write(" ")
	e.Body.Accept(p)
	p.write(")")
}

func (p *CodePrinter) VisitRecurExpr(e *ast.RecurExpr) {
	p.write("(recur")
	for _, b := range e.Bindings {
		p.write(" ")
		b.Expr.Accept(p)
	}
	p.write(")")
}

func (p *CodePrinter) VisitFnExpr(e *ast.FnExpr) {
	p.write("(fn ")
	if e.Name != nil {
		p.write(e.Name.String())
		p.write(" ")
	}
	p.write("[")
	if e.FxLocal != nil {
		p.write("^")
		p.local(*e.FxLocal)
		if len(e.Params) > 0 {
			p.write(" ")
		}
	}
	for i, param := range e.Params {
		if i > 0 {
			p.write(" ")
		}
		p.local(param)
	}
	p.write("] ")
	e.Body.Accept(p)
	p.write(")")
}

func (p *CodePrinter) VisitCallExpr(e *ast.CallExpr) {
	p.write("(")
	e.Fn.Accept(p)
	if e.EffectArg != nil {
		p.write(" ^")
		p.local(e.EffectArg.Local)
	}
	for _, arg := range e.Args {
		p.write(" ")
		arg.Accept(p)
	}
	p.write(")")
}

func (p *CodePrinter) VisitLocalVarExpr(e *ast.LocalVarExpr) { p.local(e.Local) }

func (p *CodePrinter) VisitGlobalVarExpr(e *ast.GlobalVarExpr) { p.write(e.Var.Sym().String()) }

func (p *CodePrinter) VisitCaseExpr(e *ast.CaseExpr) {
	p.write("(case ")
	e.Expr.Accept(p)
	for _, cl := range e.Clauses {
		p.write(" ")
		if len(cl.Bindings) == 0 {
			p.write(cl.Key.Sym.String())
		} else {
			p.write("(")
			p.write(cl.Key.Sym.String())
			for _, b := range cl.Bindings {
				p.write(" ")
				p.local(b)
			}
			p.write(")")
		}
		p.write(" ")
		cl.Body.Accept(p)
	}
	if e.Default != nil {
		p.write(" ")
		e.Default.Accept(p)
	}
	p.write(")")
}

func (p *CodePrinter) VisitWithFxExpr(e *ast.WithFxExpr) {
	p.write("(with-fx ^")
	p.local(e.OldFx)
	p.write(" [")
	for i, fx := range e.Fx {
		if i > 0 {
			p.write(" ")
		}
		p.write(fx.Var.QSym.String())
		p.write(" ")
		fx.Fn.Accept(p)
	}
	p.write("] ^")
	p.local(e.NewFx)
	p.write(" ")
	e.Body.Accept(p)
	p.write(")")
}
