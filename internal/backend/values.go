package backend

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/typesystem"
)

// Runtime values are plain Go values: bool, string, int64, *big.Int,
// float64, *big.Float, *symbols.Symbol, *symbols.QSymbol and []any for
// vectors, plus the types below.

// Callable is anything that can be applied. fx is the caller's effect
// capability; callables that do not take it ignore it.
type Callable interface {
	Call(fx *FxFrame, args []any) (any, error)
}

// FxFrame is one with-fx handler frame. Frames are immutable and chain to
// the frame that was active where the with-fx was evaluated.
type FxFrame struct {
	Parent *FxFrame
	Impls  map[*symbols.QSymbol]Callable
}

// Lookup walks the frame chain for a handler of sym. It returns the
// handler and the frame enclosing the one that bound it.
func (f *FxFrame) Lookup(sym *symbols.QSymbol) (Callable, *FxFrame, bool) {
	for fr := f; fr != nil; fr = fr.Parent {
		if impl, ok := fr.Impls[sym]; ok {
			return impl, fr.Parent, true
		}
	}
	return nil, nil, false
}

// Closure is an evaluated fn expression.
type Closure struct {
	fn       *ast.FnExpr
	captured map[uint64]any
	interp   *Interpreter

	// fx stands in for a missing effect frame. Only a named fn's reference
	// to itself carries one.
	fx *FxFrame
}

func (c *Closure) Name() string {
	if c.fn.Name != nil {
		return c.fn.Name.String()
	}
	return "fn"
}

// Builtin is a function implemented in Go. Arity -1 accepts any number of
// arguments.
type Builtin struct {
	Name  string
	Arity int
	Fn    func(args []any) (any, error)
}

func (b *Builtin) Call(_ *FxFrame, args []any) (any, error) {
	if b.Arity >= 0 && len(args) != b.Arity {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", b.Name, b.Arity, len(args))
	}
	return b.Fn(args)
}

// EffectFn dispatches an effect to the nearest enclosing handler, falling
// back to the effect's default implementation.
type EffectFn struct {
	Sym     *symbols.QSymbol
	Default Callable
	interp  *Interpreter
}

func (e *EffectFn) Call(fx *FxFrame, args []any) (any, error) {
	if impl, outer, ok := fx.Lookup(e.Sym); ok {
		return impl.Call(outer, args)
	}
	def := e.Default
	if def == nil {
		def = e.interp.defaultImpl(e.Sym)
	}
	if def == nil {
		return nil, fmt.Errorf("effect %s is not handled and has no default implementation", e.Sym)
	}
	return def.Call(fx, args)
}

// Record maps keys to values. Keys keeps insertion order.
type Record struct {
	Keys   []*typesystem.RecordKey
	Values map[*typesystem.RecordKey]any
}

func (r *Record) Get(k *typesystem.RecordKey) (any, bool) {
	v, ok := r.Values[k]
	return v, ok
}

// Variant is a tagged value.
type Variant struct {
	Key  *typesystem.VariantKey
	Args []any
}

// Set holds distinct values in insertion order.
type Set struct {
	elems []any
	index map[string]struct{}
}

func NewSet(elems ...any) *Set {
	s := &Set{index: make(map[string]struct{}, len(elems))}
	for _, e := range elems {
		s.add(e)
	}
	return s
}

func (s *Set) add(e any) {
	k := Format(e)
	if _, ok := s.index[k]; ok {
		return
	}
	s.index[k] = struct{}{}
	s.elems = append(s.elems, e)
}

func (s *Set) Elems() []any { return s.elems }
func (s *Set) Len() int     { return len(s.elems) }

func (s *Set) Contains(e any) bool {
	_, ok := s.index[Format(e)]
	return ok
}

// Format renders a value as source-like text.
func Format(v any) string {
	var sb strings.Builder
	format(&sb, v)
	return sb.String()
}

func format(sb *strings.Builder, v any) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("nil")
	case bool:
		sb.WriteString(strconv.FormatBool(v))
	case string:
		sb.WriteString(strconv.Quote(v))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case *big.Int:
		sb.WriteString(v.String())
		sb.WriteString("N")
	case float64:
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case *big.Float:
		sb.WriteString(v.Text('g', -1))
		sb.WriteString("M")
	case *symbols.Symbol:
		sb.WriteString(v.String())
	case *symbols.QSymbol:
		sb.WriteString(v.String())
	case []any:
		formatSeq(sb, "[", "]", v)
	case *Set:
		formatSeq(sb, "#{", "}", v.elems)
	case *Record:
		sb.WriteString("{")
		for i, k := range v.Keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k.Sym.String())
			sb.WriteString(" ")
			format(sb, v.Values[k])
		}
		sb.WriteString("}")
	case *Variant:
		if len(v.Args) == 0 {
			sb.WriteString(v.Key.Sym.String())
			return
		}
		sb.WriteString("(")
		sb.WriteString(v.Key.Sym.String())
		for _, a := range v.Args {
			sb.WriteString(" ")
			format(sb, a)
		}
		sb.WriteString(")")
	case *Closure:
		fmt.Fprintf(sb, "<fn %s>", v.Name())
	case *Builtin:
		fmt.Fprintf(sb, "<builtin %s>", v.Name)
	case *EffectFn:
		fmt.Fprintf(sb, "<effect %s>", v.Sym)
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}

func formatSeq(sb *strings.Builder, open, close string, elems []any) {
	sb.WriteString(open)
	for i, e := range elems {
		if i > 0 {
			sb.WriteString(" ")
		}
		format(sb, e)
	}
	sb.WriteString(close)
}

// Equal is structural equality over runtime values.
func Equal(a, b any) bool {
	switch a := a.(type) {
	case *big.Int:
		o, ok := b.(*big.Int)
		return ok && a.Cmp(o) == 0
	case *big.Float:
		o, ok := b.(*big.Float)
		return ok && a.Cmp(o) == 0
	case []any:
		o, ok := b.([]any)
		if !ok || len(a) != len(o) {
			return false
		}
		for i := range a {
			if !Equal(a[i], o[i]) {
				return false
			}
		}
		return true
	case *Set:
		o, ok := b.(*Set)
		if !ok || a.Len() != o.Len() {
			return false
		}
		for _, e := range a.elems {
			if !o.Contains(e) {
				return false
			}
		}
		return true
	case *Record:
		o, ok := b.(*Record)
		if !ok || len(a.Values) != len(o.Values) {
			return false
		}
		for k, v := range a.Values {
			ov, ok := o.Values[k]
			if !ok || !Equal(v, ov) {
				return false
			}
		}
		return true
	case *Variant:
		o, ok := b.(*Variant)
		if !ok || a.Key != o.Key || len(a.Args) != len(o.Args) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], o.Args[i]) {
				return false
			}
		}
		return true
	case bool, string, int64, float64, *symbols.Symbol, *symbols.QSymbol:
		return a == b
	}
	return a == b
}
