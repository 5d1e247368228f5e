// Package backend evaluates typed expression trees by walking them. It is
// the emitter behind the evaluator: definitions, record keys, variant
// tags, effects and macros all become Go values here.
package backend

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
	"github.com/funvibe/bridje/internal/typesystem"
)

const maxEvalDepth = 10000

// Interpreter is a tree-walking emitter.
type Interpreter struct {
	globals func() *env.RuntimeEnv
	out     io.Writer
	clock   func() time.Time
	logger  *slog.Logger
	depth   atomic.Int32
}

type Option func(*Interpreter)

// WithOutput sets where the default println! implementation writes.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithClock sets the time source of the default now! implementation.
func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) { in.clock = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// New creates an interpreter. globals returns the latest committed
// environment; it is consulted for globals referenced before they had a
// value, such as recursive definitions.
func New(globals func() *env.RuntimeEnv, opts ...Option) *Interpreter {
	in := &Interpreter{globals: globals, out: os.Stdout, clock: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// EvalValueExpr evaluates a closed top-level expression.
func (in *Interpreter) EvalValueExpr(expr ast.ValueExpr) (v any, err error) {
	defer in.recoverInto(expr.Pos(), &err)
	return in.eval(topFrame(), expr)
}

// EmitRecordKey returns the accessor function of key.
func (in *Interpreter) EmitRecordKey(key *typesystem.RecordKey) (any, error) {
	return &Builtin{Name: key.Sym.String(), Arity: 1, Fn: func(args []any) (any, error) {
		rec, ok := args[0].(*Record)
		if !ok {
			return nil, fmt.Errorf("%s applied to %s, which is not a record", key.Sym, Format(args[0]))
		}
		v, ok := rec.Get(key)
		if !ok {
			return nil, fmt.Errorf("record %s has no key %s", Format(rec), key.Sym)
		}
		return v, nil
	}}, nil
}

// EmitVariantKey returns the constructor of key, or the variant value
// itself when the tag takes no parameters.
func (in *Interpreter) EmitVariantKey(key *typesystem.VariantKey) (any, error) {
	if len(key.ParamTypes) == 0 {
		return &Variant{Key: key}, nil
	}
	return &Builtin{Name: key.Sym.String(), Arity: len(key.ParamTypes), Fn: func(args []any) (any, error) {
		return &Variant{Key: key, Args: append([]any(nil), args...)}, nil
	}}, nil
}

// EmitEffectFn returns the dispatching function of an effect. A nil
// default defers to whatever default is committed when it is called.
func (in *Interpreter) EmitEffectFn(sym *symbols.QSymbol, defaultImpl any) (any, error) {
	fn := &EffectFn{Sym: sym, interp: in}
	if defaultImpl != nil {
		c, ok := defaultImpl.(Callable)
		if !ok {
			return nil, fmt.Errorf("default implementation of %s is not a function", sym)
		}
		fn.Default = c
	}
	return fn, nil
}

func (in *Interpreter) defaultImpl(sym *symbols.QSymbol) Callable {
	v, ok := in.globals().Lookup(sym)
	if !ok {
		return nil
	}
	ev, ok := v.(*env.EffectVar)
	if !ok || ev.DefaultImpl == nil {
		return nil
	}
	c, _ := ev.DefaultImpl.(Callable)
	return c
}

// global returns the value of a global, looking it up by name when the
// referenced var has none yet.
func (in *Interpreter) global(v env.GlobalVar, pos token.Position) (any, error) {
	if val := env.RuntimeValue(v); val != nil {
		return val, nil
	}
	if cur, ok := in.globals().Lookup(v.Sym()); ok {
		if val := env.RuntimeValue(cur); val != nil {
			return val, nil
		}
	}
	return nil, runtimeError(pos, "%s is declared but has no value", v.Sym())
}

func runtimeError(pos token.Position, format string, args ...any) error {
	return diagnostics.NewError(diagnostics.ErrEmitter, pos, format, args...)
}

func (in *Interpreter) recoverInto(pos token.Position, err *error) {
	if r := recover(); r != nil {
		in.logger.Error("evaluation panicked", "pos", pos.String(), "panic", r)
		*err = runtimeError(pos, "evaluation failed: %v", r)
	}
}
