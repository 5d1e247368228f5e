package backend

import (
	"context"
	"fmt"

	"github.com/funvibe/bridje/internal/config"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/evaluator"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/typesystem"
)

var coreNS = symbols.Intern(config.CoreNamespace)

// prelude is the part of brj.core written in the language itself. It runs
// after the Go builtins are installed.
const prelude = `
(deftype Form)

(:: :BoolForm Bool)
(:: :StringForm Str)
(:: :IntForm Int)
(:: :BigIntForm BigInt)
(:: :FloatForm Float)
(:: :BigFloatForm BigFloat)
(:: :SymbolForm Symbol)
(:: :QSymbolForm QSymbol)
(:: :ListForm [Form])
(:: :VectorForm [Form])
(:: :SetForm [Form])
(:: :RecordForm [Form])
(:: :QuoteForm Form)

(deftype Form
  (+ (:BoolForm Bool) (:StringForm Str)
     (:IntForm Int) (:BigIntForm BigInt)
     (:FloatForm Float) (:BigFloatForm BigFloat)
     (:SymbolForm Symbol) (:QSymbolForm QSymbol)
     (:ListForm [Form]) (:VectorForm [Form]) (:SetForm [Form]) (:RecordForm [Form])
     (:QuoteForm Form)))

(defmacro (unless pred then else)
  (:ListForm [(:SymbolForm 'if) pred else then]))
`

// InstallCore adds brj.core to the evaluator's environment: the Go
// builtins first, then the prelude.
func InstallCore(ctx context.Context, ev *evaluator.Evaluator, in *Interpreter) error {
	ev.Install(in.CoreNSEnv())
	if _, err := ev.EvalString(ctx, coreNS, prelude); err != nil {
		return fmt.Errorf("loading %s prelude: %w", coreNS, err)
	}
	return nil
}

func fnType(ret typesystem.MonoType, params ...typesystem.MonoType) typesystem.Type {
	return typesystem.Type{Mono: &typesystem.FnType{Params: params, Return: ret}}
}

// CoreNSEnv returns brj.core with its Go builtins.
func (in *Interpreter) CoreNSEnv() *env.NSEnv {
	nsEnv := env.NewNSEnv(coreNS, nil)
	def := func(name string, t typesystem.Type, arity int, fn func([]any) (any, error)) {
		nsEnv = nsEnv.Declare(&env.DefVar{
			QSym:    symbols.Qualify(coreNS, symbols.Intern(name)),
			T:       t,
			Value:   &Builtin{Name: name, Arity: arity, Fn: fn},
			Defined: true,
		})
	}

	var (
		intInt  = fnType(typesystem.IntType, typesystem.IntType, typesystem.IntType)
		intBool = fnType(typesystem.BoolType, typesystem.IntType, typesystem.IntType)
	)
	arith := func(op func(a, b int64) int64) func([]any) (any, error) {
		return func(args []any) (any, error) { return op(args[0].(int64), args[1].(int64)), nil }
	}
	compare := func(op func(a, b int64) bool) func([]any) (any, error) {
		return func(args []any) (any, error) { return op(args[0].(int64), args[1].(int64)), nil }
	}

	def("+", intInt, 2, arith(func(a, b int64) int64 { return a + b }))
	def("-", intInt, 2, arith(func(a, b int64) int64 { return a - b }))
	def("*", intInt, 2, arith(func(a, b int64) int64 { return a * b }))
	def("<", intBool, 2, compare(func(a, b int64) bool { return a < b }))
	def(">", intBool, 2, compare(func(a, b int64) bool { return a > b }))
	def("inc", fnType(typesystem.IntType, typesystem.IntType), 1, func(args []any) (any, error) {
		return args[0].(int64) + 1, nil
	})
	def("dec", fnType(typesystem.IntType, typesystem.IntType), 1, func(args []any) (any, error) {
		return args[0].(int64) - 1, nil
	})
	def("not", fnType(typesystem.BoolType, typesystem.BoolType), 1, func(args []any) (any, error) {
		return !args[0].(bool), nil
	})

	a := typesystem.NewTypeVar()
	def("=", fnType(typesystem.BoolType, a, a), 2, func(args []any) (any, error) {
		return Equal(args[0], args[1]), nil
	})

	b := typesystem.NewTypeVar()
	def("str", fnType(typesystem.StrType, b), 1, func(args []any) (any, error) {
		if s, ok := args[0].(string); ok {
			return s, nil
		}
		return Format(args[0]), nil
	})

	c := typesystem.NewTypeVar()
	vecC := &typesystem.VectorType{Elem: c}
	def("concat", fnType(vecC, vecC, vecC), 2, func(args []any) (any, error) {
		x, y := args[0].([]any), args[1].([]any)
		out := make([]any, 0, len(x)+len(y))
		return append(append(out, x...), y...), nil
	})

	d := typesystem.NewTypeVar()
	def("count", fnType(typesystem.IntType, &typesystem.VectorType{Elem: d}), 1, func(args []any) (any, error) {
		return int64(len(args[0].([]any))), nil
	})

	e := typesystem.NewTypeVar()
	vecE := &typesystem.VectorType{Elem: e}
	def("conj", fnType(vecE, vecE, e), 2, func(args []any) (any, error) {
		x := args[0].([]any)
		out := make([]any, 0, len(x)+1)
		return append(append(out, x...), args[1]), nil
	})

	f := typesystem.NewTypeVar()
	def("pr-str", fnType(typesystem.StrType, f), 1, func(args []any) (any, error) {
		return Format(args[0]), nil
	})

	// (reduce f init xs) folds xs from the left.
	acc, elem := typesystem.NewTypeVar(), typesystem.NewTypeVar()
	reducer := &typesystem.FnType{Params: []typesystem.MonoType{acc, elem}, Return: acc}
	def("reduce", fnType(acc, reducer, acc, &typesystem.VectorType{Elem: elem}), 3, func(args []any) (any, error) {
		fn, ok := args[0].(Callable)
		if !ok {
			return nil, fmt.Errorf("reduce expects a function, got %s", Format(args[0]))
		}
		res := args[1]
		for _, x := range args[2].([]any) {
			var err error
			if res, err = fn.Call(nil, []any{res, x}); err != nil {
				return nil, err
			}
		}
		return res, nil
	})

	effect := func(name string, t typesystem.Type, arity int, fn func([]any) (any, error)) {
		sym := symbols.Qualify(coreNS, symbols.Intern(name))
		impl := &Builtin{Name: name, Arity: arity, Fn: fn}
		t.Effects = typesystem.NewEffectSet(sym)
		nsEnv = nsEnv.Declare(&env.EffectVar{
			QSym:        sym,
			T:           t,
			DefaultImpl: impl,
			Value:       &EffectFn{Sym: sym, Default: impl, interp: in},
		})
	}

	effect("println!", fnType(typesystem.StrType, typesystem.StrType), 1, func(args []any) (any, error) {
		s := args[0].(string)
		if _, err := fmt.Fprintln(in.out, s); err != nil {
			return nil, err
		}
		return s, nil
	})
	// now! is milliseconds since the Unix epoch.
	effect("now!", fnType(typesystem.IntType), 0, func([]any) (any, error) {
		return in.clock().UnixMilli(), nil
	})

	return nsEnv
}
