package backend

import (
	"fmt"
	"math/big"

	"github.com/funvibe/bridje/internal/analyzer"
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
	"github.com/funvibe/bridje/internal/typesystem"
)

// EmitDefMacroVar evaluates a macro's function and wraps it to take and
// return forms.
func (in *Interpreter) EmitDefMacroVar(expr *ast.DefMacroExpr, ns *symbols.Symbol) (env.MacroFunc, error) {
	v, err := in.EvalValueExpr(expr.Fn)
	if err != nil {
		return nil, err
	}
	fn := v.(Callable)
	name := symbols.Qualify(ns, expr.Sym)

	return func(args []reader.Form) (out reader.Form, err error) {
		pos := expr.Loc
		if len(args) > 0 {
			pos = args[0].Pos()
		}
		defer in.recoverInto(pos, &err)

		conv := &formConverter{in: in, pos: pos}
		vals := make([]any, len(args))
		for i, a := range args {
			if vals[i], err = conv.toValue(a); err != nil {
				return nil, err
			}
		}
		res, err := fn.Call(nil, vals)
		if err != nil {
			return nil, err
		}
		in.logger.Debug("macro expanded", "macro", name.String())
		return conv.toForm(res)
	}, nil
}

// formConverter maps between reader forms and Form variant values.
type formConverter struct {
	in   *Interpreter
	pos  token.Position
	keys map[*symbols.QSymbol]*typesystem.VariantKey
}

func (c *formConverter) key(tag *symbols.QSymbol) (*typesystem.VariantKey, error) {
	if k, ok := c.keys[tag]; ok {
		return k, nil
	}
	v, ok := c.in.globals().Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("form tag %s is not defined", tag)
	}
	vk, ok := v.(*env.VariantKeyVar)
	if !ok {
		return nil, fmt.Errorf("%s is not a variant tag", tag)
	}
	if c.keys == nil {
		c.keys = make(map[*symbols.QSymbol]*typesystem.VariantKey)
	}
	c.keys[tag] = vk.Key
	return vk.Key, nil
}

func (c *formConverter) variant(tag *symbols.QSymbol, arg any) (any, error) {
	k, err := c.key(tag)
	if err != nil {
		return nil, err
	}
	return &Variant{Key: k, Args: []any{arg}}, nil
}

func (c *formConverter) toValue(form reader.Form) (any, error) {
	switch f := form.(type) {
	case *reader.BoolForm:
		return c.variant(analyzer.BoolFormTag, f.Value)
	case *reader.StringForm:
		return c.variant(analyzer.StringFormTag, f.Value)
	case *reader.IntForm:
		return c.variant(analyzer.IntFormTag, f.Value)
	case *reader.BigIntForm:
		return c.variant(analyzer.BigIntFormTag, f.Value)
	case *reader.FloatForm:
		return c.variant(analyzer.FloatFormTag, f.Value)
	case *reader.BigFloatForm:
		return c.variant(analyzer.BigFloatFormTag, f.Value)
	case *reader.SymbolForm:
		return c.variant(analyzer.SymbolFormTag, f.Sym)
	case *reader.QSymbolForm:
		return c.variant(analyzer.QSymbolFormTag, f.Sym)
	case *reader.ListForm:
		return c.seq(analyzer.ListFormTag, f.Forms)
	case *reader.VectorForm:
		return c.seq(analyzer.VectorFormTag, f.Forms)
	case *reader.SetForm:
		return c.seq(analyzer.SetFormTag, f.Forms)
	case *reader.RecordForm:
		return c.seq(analyzer.RecordFormTag, f.Forms)
	case *reader.QuoteForm:
		inner, err := c.toValue(f.Form)
		if err != nil {
			return nil, err
		}
		return c.variant(analyzer.QuoteFormTag, inner)
	}
	return nil, fmt.Errorf("cannot convert %T to a form value", form)
}

func (c *formConverter) seq(tag *symbols.QSymbol, forms []reader.Form) (any, error) {
	elems := make([]any, len(forms))
	for i, f := range forms {
		v, err := c.toValue(f)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return c.variant(tag, elems)
}

func (c *formConverter) toForm(v any) (reader.Form, error) {
	variant, ok := v.(*Variant)
	if !ok || len(variant.Args) != 1 {
		return nil, fmt.Errorf("macro returned %s, which is not a form", Format(v))
	}
	arg := variant.Args[0]
	pos := c.pos

	switch variant.Key.Sym {
	case analyzer.BoolFormTag:
		return &reader.BoolForm{Value: arg.(bool), Loc: pos}, nil
	case analyzer.StringFormTag:
		return &reader.StringForm{Value: arg.(string), Loc: pos}, nil
	case analyzer.IntFormTag:
		return &reader.IntForm{Value: arg.(int64), Loc: pos}, nil
	case analyzer.BigIntFormTag:
		return &reader.BigIntForm{Value: arg.(*big.Int), Loc: pos}, nil
	case analyzer.FloatFormTag:
		return &reader.FloatForm{Value: arg.(float64), Loc: pos}, nil
	case analyzer.BigFloatFormTag:
		return &reader.BigFloatForm{Value: arg.(*big.Float), Loc: pos}, nil
	case analyzer.SymbolFormTag:
		return &reader.SymbolForm{Sym: arg.(*symbols.Symbol), Loc: pos}, nil
	case analyzer.QSymbolFormTag:
		return &reader.QSymbolForm{Sym: arg.(*symbols.QSymbol), Loc: pos}, nil
	case analyzer.QuoteFormTag:
		inner, err := c.toForm(arg)
		if err != nil {
			return nil, err
		}
		return &reader.QuoteForm{Form: inner, Loc: pos}, nil
	}

	elems, err := c.toForms(arg)
	if err != nil {
		return nil, err
	}
	switch variant.Key.Sym {
	case analyzer.ListFormTag:
		return &reader.ListForm{Forms: elems, Loc: pos}, nil
	case analyzer.VectorFormTag:
		return &reader.VectorForm{Forms: elems, Loc: pos}, nil
	case analyzer.SetFormTag:
		return &reader.SetForm{Forms: elems, Loc: pos}, nil
	case analyzer.RecordFormTag:
		return &reader.RecordForm{Forms: elems, Loc: pos}, nil
	}
	return nil, fmt.Errorf("unknown form tag %s", variant.Key.Sym)
}

func (c *formConverter) toForms(v any) ([]reader.Form, error) {
	elems, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a vector of forms, got %s", Format(v))
	}
	out := make([]reader.Form, len(elems))
	for i, e := range elems {
		f, err := c.toForm(e)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
