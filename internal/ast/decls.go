package ast

import (
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
	"github.com/funvibe/bridje/internal/typesystem"
)

// Decl is an analysed top-level form.
type Decl interface {
	Pos() token.Position
	decl()
}

// DefExpr defines a value. Type is filled in by inference: the declared
// type when the name already has one, else the inferred type of Expr.
// Self is set when the name was undeclared; recursive references in Expr
// point at it.
type DefExpr struct {
	Sym  *symbols.Symbol
	Expr ValueExpr
	Type typesystem.Type
	Self *env.DefVar
	Loc  token.Position
}

// VarDeclExpr declares a var's type without a value. Effect declarations
// set IsEffect.
type VarDeclExpr struct {
	Sym      *symbols.Symbol
	Type     typesystem.Type
	IsEffect bool
	Loc      token.Position
}

// TypeAliasDeclExpr declares an alias. Alias may come from an earlier
// forward declaration; Type is nil when this is itself a forward declaration.
type TypeAliasDeclExpr struct {
	Sym   *symbols.Symbol
	Alias *typesystem.TypeAlias
	Type  typesystem.MonoType
	Loc   token.Position
}

type RecordKeyDeclExpr struct {
	Sym  *symbols.Symbol
	Type typesystem.MonoType
	Loc  token.Position
}

type VariantKeyDeclExpr struct {
	Sym        *symbols.Symbol
	ParamTypes []typesystem.MonoType
	Loc        token.Position
}

// DefMacroExpr defines a macro. Fn takes and returns forms.
type DefMacroExpr struct {
	Sym  *symbols.Symbol
	Fn   *FnExpr
	Type typesystem.Type
	Loc  token.Position
}

// ExprDecl is a bare top-level expression, evaluated for effect.
type ExprDecl struct {
	Expr ValueExpr
	Type typesystem.Type
	Loc  token.Position
}

// HostImportDecl is one function imported from a host package by a
// namespace header alias. It is referred to as Alias/Sym.
type HostImportDecl struct {
	Alias   *symbols.Symbol
	Package *symbols.Symbol
	Sym     *symbols.Symbol
	Type    typesystem.Type
	Loc     token.Position
}

func (d *DefExpr) Pos() token.Position            { return d.Loc }
func (d *VarDeclExpr) Pos() token.Position        { return d.Loc }
func (d *TypeAliasDeclExpr) Pos() token.Position  { return d.Loc }
func (d *RecordKeyDeclExpr) Pos() token.Position  { return d.Loc }
func (d *VariantKeyDeclExpr) Pos() token.Position { return d.Loc }
func (d *DefMacroExpr) Pos() token.Position       { return d.Loc }
func (d *ExprDecl) Pos() token.Position           { return d.Loc }
func (d *HostImportDecl) Pos() token.Position     { return d.Loc }

func (*DefExpr) decl()            {}
func (*VarDeclExpr) decl()        {}
func (*TypeAliasDeclExpr) decl()  {}
func (*RecordKeyDeclExpr) decl()  {}
func (*VariantKeyDeclExpr) decl() {}
func (*DefMacroExpr) decl()       {}
func (*ExprDecl) decl()           {}
func (*HostImportDecl) decl()     {}
