package analyzer

import (
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
)

// Form variant tags declared by the core namespace. Quoted forms other
// than bare symbols are built from these constructors.
var (
	FormAlias       = symbols.Qualify(coreNS, symbols.Intern("Form"))
	BoolFormTag     = coreTag("BoolForm")
	StringFormTag   = coreTag("StringForm")
	IntFormTag      = coreTag("IntForm")
	BigIntFormTag   = coreTag("BigIntForm")
	FloatFormTag    = coreTag("FloatForm")
	BigFloatFormTag = coreTag("BigFloatForm")
	SymbolFormTag   = coreTag("SymbolForm")
	QSymbolFormTag  = coreTag("QSymbolForm")
	ListFormTag     = coreTag("ListForm")
	VectorFormTag   = coreTag("VectorForm")
	SetFormTag      = coreTag("SetForm")
	RecordFormTag   = coreTag("RecordForm")
	QuoteFormTag    = coreTag("QuoteForm")
)

func coreTag(name string) *symbols.QSymbol {
	return symbols.Qualify(coreNS, symbols.Intern(":"+name))
}

func (a *Analyzer) analyzeQuote(f *reader.QuoteForm) (ast.ValueExpr, error) {
	switch q := f.Form.(type) {
	case *reader.SymbolForm:
		return &ast.QuotedSymbolExpr{Sym: q.Sym, Loc: f.Loc}, nil
	case *reader.QSymbolForm:
		return &ast.QuotedQSymbolExpr{Sym: q.Sym, Loc: f.Loc}, nil
	}
	return a.quoteForm(f.Form)
}

// quoteForm builds the expression constructing form as a Form value.
func (a *Analyzer) quoteForm(form reader.Form) (ast.ValueExpr, error) {
	pos := form.Pos()
	switch f := form.(type) {
	case *reader.BoolForm:
		return a.construct(BoolFormTag, pos, &ast.BoolExpr{Value: f.Value, Loc: pos})
	case *reader.StringForm:
		return a.construct(StringFormTag, pos, &ast.StringExpr{Value: f.Value, Loc: pos})
	case *reader.IntForm:
		return a.construct(IntFormTag, pos, &ast.IntExpr{Value: f.Value, Loc: pos})
	case *reader.BigIntForm:
		return a.construct(BigIntFormTag, pos, &ast.BigIntExpr{Value: f.Value, Loc: pos})
	case *reader.FloatForm:
		return a.construct(FloatFormTag, pos, &ast.FloatExpr{Value: f.Value, Loc: pos})
	case *reader.BigFloatForm:
		return a.construct(BigFloatFormTag, pos, &ast.BigFloatExpr{Value: f.Value, Loc: pos})
	case *reader.SymbolForm:
		return a.construct(SymbolFormTag, pos, &ast.QuotedSymbolExpr{Sym: f.Sym, Loc: pos})
	case *reader.QSymbolForm:
		return a.construct(QSymbolFormTag, pos, &ast.QuotedQSymbolExpr{Sym: f.Sym, Loc: pos})
	case *reader.ListForm:
		return a.quoteSeq(ListFormTag, pos, f.Forms)
	case *reader.VectorForm:
		return a.quoteSeq(VectorFormTag, pos, f.Forms)
	case *reader.SetForm:
		return a.quoteSeq(SetFormTag, pos, f.Forms)
	case *reader.RecordForm:
		return a.quoteSeq(RecordFormTag, pos, f.Forms)
	case *reader.QuoteForm:
		inner, err := a.quoteForm(f.Form)
		if err != nil {
			return nil, err
		}
		return a.construct(QuoteFormTag, pos, inner)
	}
	return nil, malformed(pos, "cannot quote %s", form)
}

func (a *Analyzer) quoteSeq(tag *symbols.QSymbol, pos token.Position, forms []reader.Form) (ast.ValueExpr, error) {
	exprs := make([]ast.ValueExpr, 0, len(forms))
	for _, f := range forms {
		e, err := a.quoteForm(f)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return a.construct(tag, pos, &ast.VectorExpr{Exprs: exprs, Loc: pos})
}

func (a *Analyzer) construct(tag *symbols.QSymbol, pos token.Position, arg ast.ValueExpr) (ast.ValueExpr, error) {
	v, err := a.resolver.ResolveQ(tag, pos)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(*env.VariantKeyVar); !ok {
		return nil, malformed(pos, "%s is not a variant tag", tag)
	}
	return &ast.CallExpr{Fn: &ast.GlobalVarExpr{Var: v, Loc: pos}, Args: []ast.ValueExpr{arg}, Loc: pos}, nil
}
