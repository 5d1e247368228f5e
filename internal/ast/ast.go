// Package ast defines the analysed expression tree.
package ast

import (
	"sync/atomic"

	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
)

var localVarCounter atomic.Uint64

// LocalVar is a binding introduced by let, fn, loop, case or with-fx.
// Two LocalVars are the same binding iff their IDs are equal.
type LocalVar struct {
	ID  uint64
	Sym *symbols.Symbol
}

func NewLocalVar(sym *symbols.Symbol) LocalVar {
	return LocalVar{ID: localVarCounter.Add(1), Sym: sym}
}

func (lv LocalVar) String() string { return lv.Sym.String() }

// DefaultEffectLocal holds the effect capability outside any with-fx.
// ID 0 is never handed out by NewLocalVar.
var DefaultEffectLocal = LocalVar{ID: 0, Sym: symbols.Intern("_fx")}

// Node is implemented by every analysed expression.
type Node interface {
	Pos() token.Position
	Accept(v Visitor)
}

// ValueExpr is an analysed, scope-resolved expression.
type ValueExpr interface {
	Node
	valueExpr()
}

type Visitor interface {
	VisitBoolExpr(e *BoolExpr)
	VisitStringExpr(e *StringExpr)
	VisitIntExpr(e *IntExpr)
	VisitBigIntExpr(e *BigIntExpr)
	VisitFloatExpr(e *FloatExpr)
	VisitBigFloatExpr(e *BigFloatExpr)
	VisitQuotedSymbolExpr(e *QuotedSymbolExpr)
	VisitQuotedQSymbolExpr(e *QuotedQSymbolExpr)
	VisitVectorExpr(e *VectorExpr)
	VisitSetExpr(e *SetExpr)
	VisitRecordExpr(e *RecordExpr)
	VisitIfExpr(e *IfExpr)
	VisitDoExpr(e *DoExpr)
	VisitLetExpr(e *LetExpr)
	VisitLoopExpr(e *LoopExpr)
	VisitRecurExpr(e *RecurExpr)
	VisitFnExpr(e *FnExpr)
	VisitCallExpr(e *CallExpr)
	VisitLocalVarExpr(e *LocalVarExpr)
	VisitGlobalVarExpr(e *GlobalVarExpr)
	VisitCaseExpr(e *CaseExpr)
	VisitWithFxExpr(e *WithFxExpr)
}
