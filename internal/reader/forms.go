// Package reader turns source text into Forms: parsed but unanalysed syntax.
package reader

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
)

// Form is a parsed syntax node.
type Form interface {
	Pos() token.Position
	String() string
	formNode()
}

type BoolForm struct {
	Value bool
	Loc   token.Position
}

type StringForm struct {
	Value string
	Loc   token.Position
}

type IntForm struct {
	Value int64
	Loc   token.Position
}

type BigIntForm struct {
	Value *big.Int
	Loc   token.Position
}

type FloatForm struct {
	Value float64
	Loc   token.Position
}

type BigFloatForm struct {
	Value *big.Float
	Loc   token.Position
}

// SymbolForm is a bare symbol or keyword.
type SymbolForm struct {
	Sym *symbols.Symbol
	Loc token.Position
}

// QSymbolForm is a namespace-qualified symbol or keyword.
type QSymbolForm struct {
	Sym *symbols.QSymbol
	Loc token.Position
}

type ListForm struct {
	Forms []Form
	Loc   token.Position
}

type VectorForm struct {
	Forms []Form
	Loc   token.Position
}

type SetForm struct {
	Forms []Form
	Loc   token.Position
}

type RecordForm struct {
	Forms []Form
	Loc   token.Position
}

// QuoteForm is 'form.
type QuoteForm struct {
	Form Form
	Loc  token.Position
}

func (f *BoolForm) Pos() token.Position     { return f.Loc }
func (f *StringForm) Pos() token.Position   { return f.Loc }
func (f *IntForm) Pos() token.Position      { return f.Loc }
func (f *BigIntForm) Pos() token.Position   { return f.Loc }
func (f *FloatForm) Pos() token.Position    { return f.Loc }
func (f *BigFloatForm) Pos() token.Position { return f.Loc }
func (f *SymbolForm) Pos() token.Position   { return f.Loc }
func (f *QSymbolForm) Pos() token.Position  { return f.Loc }
func (f *ListForm) Pos() token.Position     { return f.Loc }
func (f *VectorForm) Pos() token.Position   { return f.Loc }
func (f *SetForm) Pos() token.Position      { return f.Loc }
func (f *RecordForm) Pos() token.Position   { return f.Loc }
func (f *QuoteForm) Pos() token.Position    { return f.Loc }

func (*BoolForm) formNode()     {}
func (*StringForm) formNode()   {}
func (*IntForm) formNode()      {}
func (*BigIntForm) formNode()   {}
func (*FloatForm) formNode()    {}
func (*BigFloatForm) formNode() {}
func (*SymbolForm) formNode()   {}
func (*QSymbolForm) formNode()  {}
func (*ListForm) formNode()     {}
func (*VectorForm) formNode()   {}
func (*SetForm) formNode()      {}
func (*RecordForm) formNode()   {}
func (*QuoteForm) formNode()    {}

func (f *BoolForm) String() string     { return strconv.FormatBool(f.Value) }
func (f *StringForm) String() string   { return strconv.Quote(f.Value) }
func (f *IntForm) String() string      { return strconv.FormatInt(f.Value, 10) }
func (f *BigIntForm) String() string   { return f.Value.String() + "N" }
func (f *FloatForm) String() string    { return strconv.FormatFloat(f.Value, 'g', -1, 64) }
func (f *BigFloatForm) String() string { return f.Value.Text('g', -1) + "M" }
func (f *SymbolForm) String() string   { return f.Sym.String() }
func (f *QSymbolForm) String() string  { return f.Sym.String() }
func (f *ListForm) String() string     { return "(" + joinForms(f.Forms) + ")" }
func (f *VectorForm) String() string   { return "[" + joinForms(f.Forms) + "]" }
func (f *SetForm) String() string      { return "#{" + joinForms(f.Forms) + "}" }
func (f *RecordForm) String() string   { return "{" + joinForms(f.Forms) + "}" }
func (f *QuoteForm) String() string    { return "'" + f.Form.String() }

func joinForms(forms []Form) string {
	parts := make([]string, len(forms))
	for i, f := range forms {
		parts[i] = f.String()
	}
	return strings.Join(parts, " ")
}

// Sym is a convenience constructor used by host-side macros.
func Sym(text string) Form {
	switch id := symbols.Read(text).(type) {
	case *symbols.QSymbol:
		return &QSymbolForm{Sym: id}
	case *symbols.Symbol:
		return &SymbolForm{Sym: id}
	}
	return nil
}

// List builds a list form positioned at pos.
func List(pos token.Position, forms ...Form) Form {
	return &ListForm{Forms: forms, Loc: pos}
}
