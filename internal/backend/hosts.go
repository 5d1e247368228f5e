package backend

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/typesystem"
)

// hostFn is a Go function a namespace can import through a host alias.
// sig is the only type it may be imported at.
type hostFn struct {
	sig string
	fn  func(args []any) (any, error)
}

func strFn(f func(string) string) hostFn {
	return hostFn{sig: "(Fn Str Str)", fn: func(args []any) (any, error) { return f(args[0].(string)), nil }}
}

func strPred(f func(string, string) bool) hostFn {
	return hostFn{sig: "(Fn Str Str Bool)", fn: func(args []any) (any, error) {
		return f(args[0].(string), args[1].(string)), nil
	}}
}

func anyStrings(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

var hostPackages = map[string]map[string]hostFn{
	"strings": {
		"to-upper":   strFn(strings.ToUpper),
		"to-lower":   strFn(strings.ToLower),
		"trim-space": strFn(strings.TrimSpace),
		"contains":   strPred(strings.Contains),
		"has-prefix": strPred(strings.HasPrefix),
		"has-suffix": strPred(strings.HasSuffix),
		"repeat": {sig: "(Fn Str Int Str)", fn: func(args []any) (any, error) {
			n := args[1].(int64)
			if n < 0 {
				return nil, fmt.Errorf("negative repeat count %d", n)
			}
			return strings.Repeat(args[0].(string), int(n)), nil
		}},
		"split": {sig: "(Fn Str Str [Str])", fn: func(args []any) (any, error) {
			return anyStrings(strings.Split(args[0].(string), args[1].(string))), nil
		}},
		"join": {sig: "(Fn [Str] Str Str)", fn: func(args []any) (any, error) {
			elems := args[0].([]any)
			ss := make([]string, len(elems))
			for i, e := range elems {
				ss[i] = e.(string)
			}
			return strings.Join(ss, args[1].(string)), nil
		}},
	},
	"strconv": {
		"itoa": {sig: "(Fn Int Str)", fn: func(args []any) (any, error) {
			return strconv.FormatInt(args[0].(int64), 10), nil
		}},
		"atoi": {sig: "(Fn Str Int)", fn: func(args []any) (any, error) {
			return strconv.ParseInt(args[0].(string), 10, 64)
		}},
		"quote": strFn(strconv.Quote),
	},
	"math": {
		"sqrt":  {sig: "(Fn Float Float)", fn: func(args []any) (any, error) { return math.Sqrt(args[0].(float64)), nil }},
		"floor": {sig: "(Fn Float Float)", fn: func(args []any) (any, error) { return math.Floor(args[0].(float64)), nil }},
		"pow": {sig: "(Fn Float Float Float)", fn: func(args []any) (any, error) {
			return math.Pow(args[0].(float64), args[1].(float64)), nil
		}},
	},
}

// EmitHostImport looks the function up in the host package table and
// checks it is imported at its Go type.
func (in *Interpreter) EmitHostImport(decl *ast.HostImportDecl) (any, error) {
	pkg, ok := hostPackages[decl.Package.Name()]
	if !ok {
		return nil, fmt.Errorf("unknown host package %s", decl.Package)
	}
	f, ok := pkg[decl.Sym.Name()]
	if !ok {
		return nil, fmt.Errorf("host package %s has no function %s", decl.Package, decl.Sym)
	}
	if got := decl.Type.Mono.String(); got != f.sig {
		return nil, fmt.Errorf("%s/%s has type %s, not %s", decl.Package, decl.Sym, f.sig, got)
	}
	ft, ok := decl.Type.Mono.(*typesystem.FnType)
	if !ok {
		return nil, fmt.Errorf("%s/%s must be imported as a function", decl.Package, decl.Sym)
	}
	return &Builtin{Name: decl.Alias.Name() + "/" + decl.Sym.Name(), Arity: len(ft.Params), Fn: f.fn}, nil
}
