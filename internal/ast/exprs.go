package ast

import (
	"math/big"

	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
	"github.com/funvibe/bridje/internal/typesystem"
)

type BoolExpr struct {
	Value bool
	Loc   token.Position
}

type StringExpr struct {
	Value string
	Loc   token.Position
}

type IntExpr struct {
	Value int64
	Loc   token.Position
}

type BigIntExpr struct {
	Value *big.Int
	Loc   token.Position
}

type FloatExpr struct {
	Value float64
	Loc   token.Position
}

type BigFloatExpr struct {
	Value *big.Float
	Loc   token.Position
}

type QuotedSymbolExpr struct {
	Sym *symbols.Symbol
	Loc token.Position
}

type QuotedQSymbolExpr struct {
	Sym *symbols.QSymbol
	Loc token.Position
}

type VectorExpr struct {
	Exprs []ValueExpr
	Loc   token.Position
}

type SetExpr struct {
	Exprs []ValueExpr
	Loc   token.Position
}

type RecordEntry struct {
	Key  *typesystem.RecordKey
	Expr ValueExpr
}

// RecordExpr entries are in source order. A key may repeat; every entry is
// evaluated and the last one for a key supplies its value.
type RecordExpr struct {
	Entries []RecordEntry
	Loc     token.Position
}

type IfExpr struct {
	Pred, Then, Else ValueExpr
	Loc              token.Position
}

// DoExpr evaluates Exprs for effect, then Expr for its value.
type DoExpr struct {
	Exprs []ValueExpr
	Expr  ValueExpr
	Loc   token.Position
}

type Binding struct {
	Local LocalVar
	Expr  ValueExpr
}

type LetExpr struct {
	Bindings []Binding
	Body     ValueExpr
	Loc      token.Position
}

type LoopExpr struct {
	Bindings []Binding
	Body     ValueExpr
	Loc      token.Position
}

// RecurExpr rebinds each loop local; Bindings matches the recur target
// one-to-one and in order.
type RecurExpr struct {
	Bindings []Binding
	Loc      token.Position
}

// FnExpr is a function literal. When FxLocal is set the function takes the
// caller's effect capability and binds it to FxLocal.
// FnExpr is a function literal. Self, when set, is the local a named fn
// sees itself as inside its body.
type FnExpr struct {
	Name     *symbols.Symbol
	Self     *LocalVar
	Params   []LocalVar
	Body     ValueExpr
	Captures []LocalVar
	FxLocal  *LocalVar
	Loc      token.Position
}

// CallExpr passes EffectArg ahead of Args when the callee's type carries effects.
type CallExpr struct {
	Fn        ValueExpr
	EffectArg *LocalVarExpr
	Args      []ValueExpr
	Loc       token.Position
}

type LocalVarExpr struct {
	Local LocalVar
	Loc   token.Position
}

type GlobalVarExpr struct {
	Var env.GlobalVar
	Loc token.Position
}

type CaseClause struct {
	Key      *typesystem.VariantKey
	Bindings []LocalVar
	Body     ValueExpr
}

type CaseExpr struct {
	Expr    ValueExpr
	Clauses []CaseClause
	Default ValueExpr // nil when the case must be exhaustive
	Loc     token.Position
}

type EffectDef struct {
	Var *env.EffectVar
	Fn  *FnExpr
}

// WithFxExpr binds NewFx to a capability that handles Fx and chains to OldFx.
type WithFxExpr struct {
	OldFx LocalVar
	Fx    []EffectDef
	NewFx LocalVar
	Body  ValueExpr
	Loc   token.Position
}

func (e *BoolExpr) Pos() token.Position          { return e.Loc }
func (e *StringExpr) Pos() token.Position        { return e.Loc }
func (e *IntExpr) Pos() token.Position           { return e.Loc }
func (e *BigIntExpr) Pos() token.Position        { return e.Loc }
func (e *FloatExpr) Pos() token.Position         { return e.Loc }
func (e *BigFloatExpr) Pos() token.Position      { return e.Loc }
func (e *QuotedSymbolExpr) Pos() token.Position  { return e.Loc }
func (e *QuotedQSymbolExpr) Pos() token.Position { return e.Loc }
func (e *VectorExpr) Pos() token.Position        { return e.Loc }
func (e *SetExpr) Pos() token.Position           { return e.Loc }
func (e *RecordExpr) Pos() token.Position        { return e.Loc }
func (e *IfExpr) Pos() token.Position            { return e.Loc }
func (e *DoExpr) Pos() token.Position            { return e.Loc }
func (e *LetExpr) Pos() token.Position           { return e.Loc }
func (e *LoopExpr) Pos() token.Position          { return e.Loc }
func (e *RecurExpr) Pos() token.Position         { return e.Loc }
func (e *FnExpr) Pos() token.Position            { return e.Loc }
func (e *CallExpr) Pos() token.Position          { return e.Loc }
func (e *LocalVarExpr) Pos() token.Position      { return e.Loc }
func (e *GlobalVarExpr) Pos() token.Position     { return e.Loc }
func (e *CaseExpr) Pos() token.Position          { return e.Loc }
func (e *WithFxExpr) Pos() token.Position        { return e.Loc }

func (e *BoolExpr) Accept(v Visitor)          { v.VisitBoolExpr(e) }
func (e *StringExpr) Accept(v Visitor)        { v.VisitStringExpr(e) }
func (e *IntExpr) Accept(v Visitor)           { v.VisitIntExpr(e) }
func (e *BigIntExpr) Accept(v Visitor)        { v.VisitBigIntExpr(e) }
func (e *FloatExpr) Accept(v Visitor)         { v.VisitFloatExpr(e) }
func (e *BigFloatExpr) Accept(v Visitor)      { v.VisitBigFloatExpr(e) }
func (e *QuotedSymbolExpr) Accept(v Visitor)  { v.VisitQuotedSymbolExpr(e) }
func (e *QuotedQSymbolExpr) Accept(v Visitor) { v.VisitQuotedQSymbolExpr(e) }
func (e *VectorExpr) Accept(v Visitor)        { v.VisitVectorExpr(e) }
func (e *SetExpr) Accept(v Visitor)           { v.VisitSetExpr(e) }
func (e *RecordExpr) Accept(v Visitor)        { v.VisitRecordExpr(e) }
func (e *IfExpr) Accept(v Visitor)            { v.VisitIfExpr(e) }
func (e *DoExpr) Accept(v Visitor)            { v.VisitDoExpr(e) }
func (e *LetExpr) Accept(v Visitor)           { v.VisitLetExpr(e) }
func (e *LoopExpr) Accept(v Visitor)          { v.VisitLoopExpr(e) }
func (e *RecurExpr) Accept(v Visitor)         { v.VisitRecurExpr(e) }
func (e *FnExpr) Accept(v Visitor)            { v.VisitFnExpr(e) }
func (e *CallExpr) Accept(v Visitor)          { v.VisitCallExpr(e) }
func (e *LocalVarExpr) Accept(v Visitor)      { v.VisitLocalVarExpr(e) }
func (e *GlobalVarExpr) Accept(v Visitor)     { v.VisitGlobalVarExpr(e) }
func (e *CaseExpr) Accept(v Visitor)          { v.VisitCaseExpr(e) }
func (e *WithFxExpr) Accept(v Visitor)        { v.VisitWithFxExpr(e) }

func (*BoolExpr) valueExpr()          {}
func (*StringExpr) valueExpr()        {}
func (*IntExpr) valueExpr()           {}
func (*BigIntExpr) valueExpr()        {}
func (*FloatExpr) valueExpr()         {}
func (*BigFloatExpr) valueExpr()      {}
func (*QuotedSymbolExpr) valueExpr()  {}
func (*QuotedQSymbolExpr) valueExpr() {}
func (*VectorExpr) valueExpr()        {}
func (*SetExpr) valueExpr()           {}
func (*RecordExpr) valueExpr()        {}
func (*IfExpr) valueExpr()            {}
func (*DoExpr) valueExpr()            {}
func (*LetExpr) valueExpr()           {}
func (*LoopExpr) valueExpr()          {}
func (*RecurExpr) valueExpr()         {}
func (*FnExpr) valueExpr()            {}
func (*CallExpr) valueExpr()          {}
func (*LocalVarExpr) valueExpr()      {}
func (*GlobalVarExpr) valueExpr()     {}
func (*CaseExpr) valueExpr()          {}
func (*WithFxExpr) valueExpr()        {}

// WithFxLocal returns a copy of fn that takes the effect capability as
// DefaultEffectLocal.
func (e *FnExpr) WithFxLocal() *FnExpr {
	cp := *e
	fx := DefaultEffectLocal
	cp.FxLocal = &fx
	caps := make([]LocalVar, 0, len(e.Captures))
	for _, c := range e.Captures {
		if c != DefaultEffectLocal {
			caps = append(caps, c)
		}
	}
	cp.Captures = caps
	return &cp
}
